package domain

import "time"

type PreApprovalStatus string

const (
	PreApprovalActive    PreApprovalStatus = "active"
	PreApprovalUsed      PreApprovalStatus = "used"
	PreApprovalExpired   PreApprovalStatus = "expired"
	PreApprovalCancelled PreApprovalStatus = "cancelled"
)

var preApprovalTransitions = map[PreApprovalStatus][]PreApprovalStatus{
	PreApprovalActive: {PreApprovalUsed, PreApprovalExpired, PreApprovalCancelled},
}

func (s PreApprovalStatus) CanTransitionTo(next PreApprovalStatus) bool {
	for _, t := range preApprovalTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// PreApproval is a resident-issued, multi-use QR credential for a named
// visitor. UsedCount never exceeds MaxUses; the status flips to "used"
// exactly when the last use is claimed.
type PreApproval struct {
	ID           int64             `json:"id"`
	Serial       string            `json:"serial"`
	Status       PreApprovalStatus `json:"status"`
	UnitID       int64             `json:"unit_id"`
	ResidentID   int64             `json:"resident_id"`
	VisitorName  string            `json:"visitor_name"`
	VisitorPhone string            `json:"visitor_phone,omitempty"`
	ValidFrom    time.Time         `json:"valid_from"`
	ValidUntil   time.Time         `json:"valid_until"`
	MaxUses      int               `json:"max_uses"`
	UsedCount    int               `json:"used_count"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (p PreApproval) RemainingUses() int {
	if p.UsedCount >= p.MaxUses {
		return 0
	}
	return p.MaxUses - p.UsedCount
}

type GatePassPurpose string

const (
	PassMaterialMove GatePassPurpose = "material_move"
	PassMaintenance  GatePassPurpose = "maintenance"
	PassVehicle      GatePassPurpose = "vehicle"
)

func ParseGatePassPurpose(s string) (GatePassPurpose, bool) {
	switch GatePassPurpose(s) {
	case PassMaterialMove, PassMaintenance, PassVehicle:
		return GatePassPurpose(s), true
	default:
		return "", false
	}
}

type GatePassStatus string

const (
	PassPending  GatePassStatus = "pending"
	PassApproved GatePassStatus = "approved"
	PassRejected GatePassStatus = "rejected"
	PassUsed     GatePassStatus = "used"
	PassExpired  GatePassStatus = "expired"
)

// ParseGatePassStatus accepts "active" as a legacy alias for "approved";
// older issued passes carried it.
func ParseGatePassStatus(s string) (GatePassStatus, bool) {
	if s == "active" {
		return PassApproved, true
	}
	switch GatePassStatus(s) {
	case PassPending, PassApproved, PassRejected, PassUsed, PassExpired:
		return GatePassStatus(s), true
	default:
		return "", false
	}
}

var gatePassTransitions = map[GatePassStatus][]GatePassStatus{
	PassPending:  {PassApproved, PassRejected, PassExpired},
	PassApproved: {PassUsed, PassExpired},
}

func (s GatePassStatus) CanTransitionTo(next GatePassStatus) bool {
	for _, t := range gatePassTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// GatePass is a single-use credential for a one-off purpose (moving
// material out, a maintenance visit, a vehicle). IsUsed flips false→true
// at most once, and only while approved and inside the validity window.
type GatePass struct {
	ID           int64           `json:"id"`
	Serial       string          `json:"serial"`
	Purpose      GatePassPurpose `json:"purpose"`
	Status       GatePassStatus  `json:"status"`
	UnitID       int64           `json:"unit_id"`
	ResidentID   int64           `json:"resident_id"`
	Description  string          `json:"description,omitempty"`
	ValidFrom    time.Time       `json:"valid_from"`
	ValidUntil   time.Time       `json:"valid_until"`
	IsUsed       bool            `json:"is_used"`
	UsedAt       *time.Time      `json:"used_at,omitempty"`
	UsedByGuard  *int64          `json:"used_by_guard,omitempty"`
	RejectReason string          `json:"reject_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
