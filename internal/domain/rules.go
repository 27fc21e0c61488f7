package domain

import "time"

// AutoApprovalRule is a standing, resident-authored policy: deliveries
// from ProviderTag may enter the unit without asking, on the allowed
// days and inside the optional time window. An empty AllowedDays means
// every day; empty TimeFrom/TimeUntil means any time of day.
type AutoApprovalRule struct {
	ID          int64          `json:"id"`
	UnitID      int64          `json:"unit_id"`
	ResidentID  int64          `json:"resident_id"`
	ProviderTag string         `json:"provider_tag"`
	AllowedDays []time.Weekday `json:"allowed_days,omitempty"`
	TimeFrom    string         `json:"time_from,omitempty"`  // "HH:MM"
	TimeUntil   string         `json:"time_until,omitempty"` // "HH:MM", may be earlier than TimeFrom (wraps midnight)
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (r AutoApprovalRule) AllowsDay(d time.Weekday) bool {
	if len(r.AllowedDays) == 0 {
		return true
	}
	for _, day := range r.AllowedDays {
		if day == d {
			return true
		}
	}
	return false
}

func (r AutoApprovalRule) HasTimeWindow() bool {
	return r.TimeFrom != "" && r.TimeUntil != ""
}

// ExpectedDelivery is a one-shot expectation: a single arrival from
// ProviderTag on ExpectedDate may enter without asking. Consumed at most
// once regardless of any standing rule for the same provider.
type ExpectedDelivery struct {
	ID           int64     `json:"id"`
	UnitID       int64     `json:"unit_id"`
	ResidentID   int64     `json:"resident_id"`
	ProviderTag  string    `json:"provider_tag"`
	ExpectedDate time.Time `json:"expected_date"`
	IsUsed       bool      `json:"is_used"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
