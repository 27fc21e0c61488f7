package service

import (
	"context"
	"fmt"

	"github.com/Agastya221/society-gate-backend/internal/repo/postgres"
	"github.com/Agastya221/society-gate-backend/pkg/clock"
	"github.com/Agastya221/society-gate-backend/pkg/logger"
)

const (
	ReasonExpectedDelivery = "expected delivery"
	ReasonStandingRule     = "standing rule"
	ReasonPreApproved      = "pre-approved"
)

// Grant is the resolver's positive answer: entry may proceed without
// asking the resident.
type Grant struct {
	Reason string
	RuleID int64
}

// AutoApprovalResolver decides whether a provider arrival at a unit is
// covered by a one-shot expectation or a standing rule. Expectations win
// and are consumed; a lost claim race falls through to the standing rule
// instead of denying outright.
type AutoApprovalResolver interface {
	Resolve(ctx context.Context, unitID int64, providerTag string) (*Grant, error)
}

type autoApprovalResolver struct {
	rules postgres.RulesRepo
	clock clock.Clock
}

func NewAutoApprovalResolver(rules postgres.RulesRepo, clk clock.Clock) AutoApprovalResolver {
	return &autoApprovalResolver{rules: rules, clock: clk}
}

func (r *autoApprovalResolver) Resolve(ctx context.Context, unitID int64, providerTag string) (*Grant, error) {
	now := r.clock.Now()

	ed, err := r.rules.FindOpenExpected(ctx, unitID, providerTag, now)
	if err != nil {
		return nil, fmt.Errorf("find expected delivery: %w", err)
	}
	if ed != nil {
		claimed, err := r.rules.ClaimExpected(ctx, ed.ID, now)
		if err != nil {
			return nil, fmt.Errorf("claim expected delivery: %w", err)
		}
		if claimed {
			return &Grant{Reason: ReasonExpectedDelivery, RuleID: ed.ID}, nil
		}
		// A concurrent arrival took the expectation. The standing rule
		// below may still cover this one.
		logger.DebugContext(ctx, "Expected delivery claim lost, checking standing rule",
			"unit_id", unitID, "provider", providerTag)
	}

	rule, err := r.rules.FindActiveRule(ctx, unitID, providerTag)
	if err != nil {
		return nil, fmt.Errorf("find standing rule: %w", err)
	}
	if rule == nil {
		return nil, nil
	}
	if !rule.AllowsDay(now.Weekday()) {
		return nil, nil
	}
	if rule.HasTimeWindow() {
		active, err := WindowActiveAt(rule.TimeFrom, rule.TimeUntil, now)
		if err != nil {
			// A malformed stored window should deny, not fail the scan.
			logger.WarnContext(ctx, "Standing rule has malformed time window",
				"rule_id", rule.ID, "error", err)
			return nil, nil
		}
		if !active {
			return nil, nil
		}
	}
	return &Grant{Reason: ReasonStandingRule, RuleID: rule.ID}, nil
}
