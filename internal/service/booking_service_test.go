package service

import (
	"context"
	"testing"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/domain"
	"github.com/Agastya221/society-gate-backend/pkg/config"
)

type bookingFixture struct {
	svc      BookingService
	bookings *mockBookingRepo
	now      time.Time
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	bookings := newMockBookingRepo()
	bookings.amenities[1] = &domain.Amenity{ID: 1, Name: "Clubhouse", MaxPerResident: 2, IsActive: true}
	bookings.amenities[2] = &domain.Amenity{ID: 2, Name: "Old Court", IsActive: false}

	svc := NewBookingService(bookings, &mockBus{}, fixedClock(now),
		config.AccessConfig{DefaultBookingCap: 2})
	return &bookingFixture{svc: svc, bookings: bookings, now: now}
}

func (f *bookingFixture) propose(t *testing.T, resident domain.Principal, start, end string) (*domain.Booking, error) {
	t.Helper()
	return f.svc.Propose(context.Background(), resident, ProposeBookingInput{
		AmenityID:   1,
		BookingDate: f.now.AddDate(0, 0, 1),
		StartTime:   start,
		EndTime:     end,
	})
}

func TestProposeBooking_Validation(t *testing.T) {
	f := newBookingFixture(t)

	if _, err := f.propose(t, testGuard, "10:00", "11:00"); !domain.IsKind(err, domain.KindAccessDenied) {
		t.Fatalf("guard booking: got %v", err)
	}
	if _, err := f.propose(t, testResident, "11:00", "10:00"); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("inverted slot: got %v", err)
	}
	if _, err := f.propose(t, testResident, "10:00", "10:00"); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("empty slot: got %v", err)
	}
	if _, err := f.propose(t, testResident, "10am", "11:00"); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("malformed time: got %v", err)
	}

	if _, err := f.svc.Propose(context.Background(), testResident, ProposeBookingInput{
		AmenityID: 2, BookingDate: f.now, StartTime: "10:00", EndTime: "11:00",
	}); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("inactive amenity: got %v", err)
	}
	if _, err := f.svc.Propose(context.Background(), testResident, ProposeBookingInput{
		AmenityID: 99, BookingDate: f.now, StartTime: "10:00", EndTime: "11:00",
	}); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("unknown amenity: got %v", err)
	}
}

func TestProposeBooking_OverlapMatrix(t *testing.T) {
	other := domain.Principal{ID: 9, Role: domain.RoleResident, UnitID: 44, IsActive: true}

	tests := []struct {
		name       string
		start, end string
		conflict   bool
	}{
		{"identical slot", "10:00", "12:00", true},
		{"contained inside", "10:30", "11:30", true},
		{"overlaps start", "09:00", "10:30", true},
		{"overlaps end", "11:30", "13:00", true},
		{"covers entirely", "09:00", "13:00", true},
		{"back-to-back before is legal", "08:00", "10:00", false},
		{"back-to-back after is legal", "12:00", "14:00", false},
		{"disjoint earlier", "06:00", "07:00", false},
		{"disjoint later", "15:00", "16:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture(t)
			if _, err := f.propose(t, testResident, "10:00", "12:00"); err != nil {
				t.Fatal(err)
			}

			_, err := f.propose(t, other, tt.start, tt.end)
			if tt.conflict {
				if !domain.IsKind(err, domain.KindSchedulingConflict) {
					t.Fatalf("expected SCHEDULING_CONFLICT, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestProposeBooking_CancelledSlotFreesTheTime(t *testing.T) {
	f := newBookingFixture(t)
	b, err := f.propose(t, testResident, "10:00", "12:00")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Cancel(context.Background(), testResident, b.ID, "plans changed"); err != nil {
		t.Fatal(err)
	}

	other := domain.Principal{ID: 9, Role: domain.RoleResident, UnitID: 44, IsActive: true}
	if _, err := f.propose(t, other, "10:00", "12:00"); err != nil {
		t.Fatalf("cancelled slot still blocks: %v", err)
	}
}

func TestProposeBooking_PerResidentCap(t *testing.T) {
	f := newBookingFixture(t)

	if _, err := f.propose(t, testResident, "08:00", "09:00"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.propose(t, testResident, "10:00", "11:00"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.propose(t, testResident, "12:00", "13:00"); !domain.IsKind(err, domain.KindQuotaExhausted) {
		t.Fatalf("third active booking: got %v", err)
	}

	// Another resident is not throttled by my bookings.
	other := domain.Principal{ID: 9, Role: domain.RoleResident, UnitID: 44, IsActive: true}
	if _, err := f.propose(t, other, "14:00", "15:00"); err != nil {
		t.Fatalf("other resident: %v", err)
	}
}

func TestBooking_AdminLifecycle(t *testing.T) {
	f := newBookingFixture(t)
	b, _ := f.propose(t, testResident, "10:00", "12:00")

	if err := f.svc.Confirm(context.Background(), testResident, b.ID); !domain.IsKind(err, domain.KindAccessDenied) {
		t.Fatalf("resident confirming: got %v", err)
	}
	if err := f.svc.Confirm(context.Background(), testAdmin, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Confirm(context.Background(), testAdmin, b.ID); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("double confirm: got %v", err)
	}

	if err := f.svc.Complete(context.Background(), testAdmin, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Cancel(context.Background(), testAdmin, b.ID, ""); !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("cancel of completed booking: got %v", err)
	}
}

func TestBooking_OwnerOnlyCancel(t *testing.T) {
	f := newBookingFixture(t)
	b, _ := f.propose(t, testResident, "10:00", "12:00")

	other := domain.Principal{ID: 9, Role: domain.RoleResident, UnitID: 44, IsActive: true}
	if err := f.svc.Cancel(context.Background(), other, b.ID, ""); !domain.IsKind(err, domain.KindAccessDenied) {
		t.Fatalf("stranger cancelling: got %v", err)
	}
	// Admins may cancel anything still active.
	if err := f.svc.Cancel(context.Background(), testAdmin, b.ID, "maintenance day"); err != nil {
		t.Fatal(err)
	}
}
