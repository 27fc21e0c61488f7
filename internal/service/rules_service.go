package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/domain"
	"github.com/Agastya221/society-gate-backend/internal/repo/postgres"
	"github.com/Agastya221/society-gate-backend/pkg/clock"
)

type CreateRuleInput struct {
	ProviderTag string
	AllowedDays []time.Weekday
	TimeFrom    string
	TimeUntil   string
}

// RulesService manages the resident-authored auto-approval policies the
// resolver evaluates at the gate.
type RulesService interface {
	CreateRule(ctx context.Context, resident domain.Principal, in CreateRuleInput) (*domain.AutoApprovalRule, error)
	DeactivateRule(ctx context.Context, resident domain.Principal, id int64) error
	ListRules(ctx context.Context, resident domain.Principal) ([]domain.AutoApprovalRule, error)
	ExpectDelivery(ctx context.Context, resident domain.Principal, providerTag string, date time.Time) (*domain.ExpectedDelivery, error)
}

type rulesService struct {
	rules postgres.RulesRepo
	clock clock.Clock
}

func NewRulesService(rules postgres.RulesRepo, clk clock.Clock) RulesService {
	return &rulesService{rules: rules, clock: clk}
}

func (s *rulesService) CreateRule(ctx context.Context, resident domain.Principal, in CreateRuleInput) (*domain.AutoApprovalRule, error) {
	if resident.Role != domain.RoleResident || !resident.IsActive {
		return nil, domain.ErrAccessDenied("only an active resident may create auto-approval rules")
	}
	if in.ProviderTag == "" {
		return nil, domain.ErrValidation("provider tag is required")
	}
	// Both ends or neither; a half-open window is a client bug.
	if (in.TimeFrom == "") != (in.TimeUntil == "") {
		return nil, domain.ErrValidation("time window needs both time_from and time_until")
	}
	if in.TimeFrom != "" {
		if _, err := MinutesOfDay(in.TimeFrom); err != nil {
			return nil, err
		}
		if _, err := MinutesOfDay(in.TimeUntil); err != nil {
			return nil, err
		}
	}
	for _, d := range in.AllowedDays {
		if d < time.Sunday || d > time.Saturday {
			return nil, domain.ErrValidation("invalid weekday %d", d)
		}
	}

	rule, err := s.rules.CreateRule(ctx, &domain.AutoApprovalRule{
		UnitID:      resident.UnitID,
		ResidentID:  resident.ID,
		ProviderTag: in.ProviderTag,
		AllowedDays: in.AllowedDays,
		TimeFrom:    in.TimeFrom,
		TimeUntil:   in.TimeUntil,
	})
	if err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	return rule, nil
}

func (s *rulesService) DeactivateRule(ctx context.Context, resident domain.Principal, id int64) error {
	rules, err := s.rules.ListRulesByUnit(ctx, resident.UnitID)
	if err != nil {
		return err
	}
	var found *domain.AutoApprovalRule
	for i := range rules {
		if rules[i].ID == id {
			found = &rules[i]
			break
		}
	}
	if found == nil {
		return domain.ErrNotFound("rule %d not found for unit %d", id, resident.UnitID)
	}
	if !resident.IsResidentOf(found.UnitID) {
		return domain.ErrAccessDenied("only a resident of the unit may deactivate its rules")
	}

	won, err := s.rules.DeactivateRule(ctx, id, s.clock.Now())
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidState("rule %d is already inactive", id)
	}
	return nil
}

func (s *rulesService) ListRules(ctx context.Context, resident domain.Principal) ([]domain.AutoApprovalRule, error) {
	if resident.Role != domain.RoleResident {
		return nil, domain.ErrAccessDenied("only residents list unit rules")
	}
	return s.rules.ListRulesByUnit(ctx, resident.UnitID)
}

func (s *rulesService) ExpectDelivery(ctx context.Context, resident domain.Principal, providerTag string, date time.Time) (*domain.ExpectedDelivery, error) {
	if resident.Role != domain.RoleResident || !resident.IsActive {
		return nil, domain.ErrAccessDenied("only an active resident may expect deliveries")
	}
	if providerTag == "" {
		return nil, domain.ErrValidation("provider tag is required")
	}
	today := s.clock.Now().Truncate(24 * time.Hour)
	if date.Before(today) {
		return nil, domain.ErrValidation("expected date %s is in the past", date.Format("2006-01-02"))
	}

	ed, err := s.rules.CreateExpected(ctx, &domain.ExpectedDelivery{
		UnitID:       resident.UnitID,
		ResidentID:   resident.ID,
		ProviderTag:  providerTag,
		ExpectedDate: date,
	})
	if err != nil {
		return nil, fmt.Errorf("create expected delivery: %w", err)
	}
	return ed, nil
}
