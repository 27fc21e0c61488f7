package domain

import "time"

type Role string

const (
	RoleGuard    Role = "guard"
	RoleResident Role = "resident"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleGuard, RoleResident, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Principal is the already-authenticated actor attached to every engine
// operation. Residents belong to exactly one unit; UnitID is zero for
// guards and admins.
type Principal struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	UnitID   int64  `json:"unit_id,omitempty"`
	IsActive bool   `json:"is_active"`
}

func (p Principal) IsResidentOf(unitID int64) bool {
	return p.Role == RoleResident && p.IsActive && p.UnitID == unitID
}

// Unit is a flat: the target of every entry authorization.
type Unit struct {
	ID        int64     `json:"id"`
	Block     string    `json:"block"`
	Number    string    `json:"number"`
	CreatedAt time.Time `json:"created_at"`
}

// Label returns the human form used in notifications, e.g. "A-101".
func (u Unit) Label() string {
	if u.Block == "" {
		return u.Number
	}
	return u.Block + "-" + u.Number
}
