package domain

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsActive reports whether the booking still occupies its slot for
// conflict purposes.
func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingConfirmed
}

// Amenity is a bookable shared resource (clubhouse, court, guest
// parking). MaxPerResident caps how many active bookings one principal
// may hold on it at once.
type Amenity struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	MaxPerResident int       `json:"max_per_resident"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Booking reserves [StartTime, EndTime) of an amenity on a given date.
// Times are "HH:MM" within BookingDate; the half-open interval makes
// back-to-back slots legal.
type Booking struct {
	ID           int64         `json:"id"`
	AmenityID    int64         `json:"amenity_id"`
	ResidentID   int64         `json:"resident_id"`
	BookingDate  time.Time     `json:"booking_date"`
	StartTime    string        `json:"start_time"`
	EndTime      string        `json:"end_time"`
	Status       BookingStatus `json:"status"`
	CancelReason string        `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
