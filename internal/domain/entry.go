package domain

import "time"

type EntryType string

const (
	EntryVisitor  EntryType = "visitor"
	EntryDelivery EntryType = "delivery"
	EntryStaff    EntryType = "staff"
	EntryCab      EntryType = "cab"
)

func ParseEntryType(s string) (EntryType, bool) {
	switch EntryType(s) {
	case EntryVisitor, EntryDelivery, EntryStaff, EntryCab:
		return EntryType(s), true
	default:
		return "", false
	}
}

type EntryStatus string

const (
	EntryPending    EntryStatus = "pending"
	EntryApproved   EntryStatus = "approved"
	EntryRejected   EntryStatus = "rejected"
	EntryCheckedOut EntryStatus = "checked_out"
)

var entryTransitions = map[EntryStatus][]EntryStatus{
	EntryPending:  {EntryApproved, EntryRejected},
	EntryApproved: {EntryCheckedOut},
}

func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	for _, t := range entryTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Entry is the durable record of a physical crossing. It is created
// either ad-hoc (pending, needs resident approval), by the auto-approval
// resolver (already approved), or by consuming a credential.
type Entry struct {
	ID                 int64       `json:"id"`
	Type               EntryType   `json:"type"`
	Status             EntryStatus `json:"status"`
	UnitID             int64       `json:"unit_id"`
	GuardID            int64       `json:"guard_id"`
	VisitorName        string      `json:"visitor_name"`
	VisitorPhone       string      `json:"visitor_phone,omitempty"`
	VehicleNumber      string      `json:"vehicle_number,omitempty"`
	WasAutoApproved    bool        `json:"was_auto_approved"`
	AutoApprovalReason string      `json:"auto_approval_reason,omitempty"`
	RejectReason       string      `json:"reject_reason,omitempty"`
	CheckInTime        time.Time   `json:"check_in_time"`
	CheckOutTime       *time.Time  `json:"check_out_time,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

type EntryRequestStatus string

const (
	RequestPending  EntryRequestStatus = "pending"
	RequestApproved EntryRequestStatus = "approved"
	RequestRejected EntryRequestStatus = "rejected"
	RequestExpired  EntryRequestStatus = "expired"
)

var entryRequestTransitions = map[EntryRequestStatus][]EntryRequestStatus{
	RequestPending: {RequestApproved, RequestRejected, RequestExpired},
}

func (s EntryRequestStatus) CanTransitionTo(next EntryRequestStatus) bool {
	for _, t := range entryRequestTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s EntryRequestStatus) IsTerminal() bool {
	return len(entryRequestTransitions[s]) == 0
}

// EntryRequest is the ephemeral, TTL-bound precursor of an Entry: a guard
// raises it, a resident of the target unit resolves it before ExpiresAt.
type EntryRequest struct {
	ID           int64              `json:"id"`
	Type         EntryType          `json:"type"`
	Status       EntryRequestStatus `json:"status"`
	UnitID       int64              `json:"unit_id"`
	GuardID      int64              `json:"guard_id"`
	VisitorName  string             `json:"visitor_name"`
	VisitorPhone string             `json:"visitor_phone,omitempty"`
	RejectReason string             `json:"reject_reason,omitempty"`
	EntryID      *int64             `json:"entry_id,omitempty"`
	ExpiresAt    time.Time          `json:"expires_at"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
