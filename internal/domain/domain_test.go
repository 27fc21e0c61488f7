package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestEntryStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to EntryStatus
		ok       bool
	}{
		{EntryPending, EntryApproved, true},
		{EntryPending, EntryRejected, true},
		{EntryPending, EntryCheckedOut, false},
		{EntryApproved, EntryCheckedOut, true},
		{EntryApproved, EntryRejected, false},
		{EntryRejected, EntryApproved, false},
		{EntryCheckedOut, EntryApproved, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestEntryRequestStatusTerminal(t *testing.T) {
	if RequestPending.IsTerminal() {
		t.Error("pending must not be terminal")
	}
	for _, s := range []EntryRequestStatus{RequestApproved, RequestRejected, RequestExpired} {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
		if s.CanTransitionTo(RequestPending) {
			t.Errorf("%s must not reopen", s)
		}
	}
}

func TestGatePassStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to GatePassStatus
		ok       bool
	}{
		{PassPending, PassApproved, true},
		{PassPending, PassRejected, true},
		{PassPending, PassUsed, false},
		{PassApproved, PassUsed, true},
		{PassApproved, PassRejected, false},
		{PassUsed, PassApproved, false},
		{PassRejected, PassApproved, false},
		{PassExpired, PassApproved, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestParseGatePassStatus_LegacyActiveAlias(t *testing.T) {
	got, ok := ParseGatePassStatus("active")
	if !ok || got != PassApproved {
		t.Fatalf("ParseGatePassStatus(active) = %s, %v", got, ok)
	}
	if _, ok := ParseGatePassStatus("wishful"); ok {
		t.Fatal("unknown status accepted")
	}
}

func TestPreApprovalRemainingUses(t *testing.T) {
	p := PreApproval{MaxUses: 3, UsedCount: 1}
	if p.RemainingUses() != 2 {
		t.Fatalf("remaining = %d", p.RemainingUses())
	}
	p.UsedCount = 5
	if p.RemainingUses() != 0 {
		t.Fatal("overcounted record must clamp to zero")
	}
}

func TestBookingStatusIsActive(t *testing.T) {
	for s, want := range map[BookingStatus]bool{
		BookingPending:   true,
		BookingConfirmed: true,
		BookingCancelled: false,
		BookingCompleted: false,
	} {
		if s.IsActive() != want {
			t.Errorf("%s.IsActive() = %v", s, s.IsActive())
		}
	}
}

func TestPrincipalIsResidentOf(t *testing.T) {
	p := Principal{ID: 7, Role: RoleResident, UnitID: 42, IsActive: true}
	if !p.IsResidentOf(42) {
		t.Fatal("resident of own unit")
	}
	if p.IsResidentOf(43) {
		t.Fatal("resident of foreign unit")
	}
	p.IsActive = false
	if p.IsResidentOf(42) {
		t.Fatal("inactive resident")
	}
	g := Principal{ID: 1, Role: RoleGuard, IsActive: true}
	if g.IsResidentOf(42) {
		t.Fatal("guard treated as resident")
	}
}

func TestUnitLabel(t *testing.T) {
	if got := (Unit{Block: "A", Number: "101"}).Label(); got != "A-101" {
		t.Fatalf("label = %q", got)
	}
	if got := (Unit{Number: "7"}).Label(); got != "7" {
		t.Fatalf("blockless label = %q", got)
	}
}

func TestErrorKindExtraction(t *testing.T) {
	err := ErrQuotaExhausted("no uses left")
	kind, ok := KindOf(err)
	if !ok || kind != KindQuotaExhausted {
		t.Fatalf("KindOf = %s, %v", kind, ok)
	}

	wrapped := fmt.Errorf("consume: %w", err)
	if !IsKind(wrapped, KindQuotaExhausted) {
		t.Fatal("kind lost through wrapping")
	}

	if _, ok := KindOf(errors.New("disk on fire")); ok {
		t.Fatal("infrastructure error classified as business error")
	}
}
