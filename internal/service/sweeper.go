package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/platform/notify"
	"github.com/Agastya221/society-gate-backend/internal/repo/postgres"
	"github.com/Agastya221/society-gate-backend/pkg/clock"
	"github.com/Agastya221/society-gate-backend/pkg/config"
	"github.com/Agastya221/society-gate-backend/pkg/events"
	"github.com/Agastya221/society-gate-backend/pkg/logger"
)

// Sweeper eagerly expires overdue authorizations on a wall-clock
// schedule. Every pass is one bulk conditional update per entity kind,
// so a rerun (or an overlapping run after an overrun) that finds nothing
// overdue updates zero rows.
type Sweeper struct {
	requests     postgres.EntryRequestRepo
	preApprovals postgres.PreApprovalRepo
	gatePasses   postgres.GatePassRepo
	bus          events.Publisher
	notifier     notify.Notifier
	clock        clock.Clock

	requestInterval    time.Duration
	credentialInterval time.Duration
}

func NewSweeper(
	requests postgres.EntryRequestRepo,
	preApprovals postgres.PreApprovalRepo,
	gatePasses postgres.GatePassRepo,
	bus events.Publisher,
	notifier notify.Notifier,
	clk clock.Clock,
	cfg config.AccessConfig,
) *Sweeper {
	return &Sweeper{
		requests:           requests,
		preApprovals:       preApprovals,
		gatePasses:         gatePasses,
		bus:                bus,
		notifier:           notifier,
		clock:              clk,
		requestInterval:    cfg.RequestSweepInterval,
		credentialInterval: cfg.CredentialSweepInterval,
	}
}

// Run blocks until ctx is done, ticking each sweep on its own cadence.
// Entry requests live minutes, so they sweep faster than credentials.
func (s *Sweeper) Run(ctx context.Context) error {
	requestTicker := time.NewTicker(s.requestInterval)
	defer requestTicker.Stop()
	credentialTicker := time.NewTicker(s.credentialInterval)
	defer credentialTicker.Stop()

	logger.Info("Sweeper started",
		"request_interval", s.requestInterval.String(),
		"credential_interval", s.credentialInterval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-requestTicker.C:
			if err := s.SweepEntryRequests(ctx); err != nil {
				logger.Error("Entry request sweep failed", "error", err)
			}
		case <-credentialTicker.C:
			if err := s.SweepCredentials(ctx); err != nil {
				logger.Error("Credential sweep failed", "error", err)
			}
		}
	}
}

// SweepEntryRequests expires overdue pending requests and tells each
// originating guard the visitor was never answered.
func (s *Sweeper) SweepEntryRequests(ctx context.Context) error {
	now := s.clock.Now()
	expired, err := s.requests.ExpireOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("expire entry requests: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	logger.Info("Expired overdue entry requests", "count", len(expired))
	for _, req := range expired {
		if err := s.bus.Publish(ctx, events.EntryRequestResolved, events.EntryRequestResolvedEvent{
			RequestID:  req.ID,
			UnitID:     req.UnitID,
			GuardID:    req.GuardID,
			Outcome:    "expired",
			ResolvedAt: now,
		}); err != nil {
			logger.ErrorContext(ctx, "Failed to publish request expired event", "error", err, "request_id", req.ID)
		}
		s.notifier.NotifyPrincipal(ctx, req.GuardID, notify.Notification{
			Kind:        "entry.request.expired",
			Title:       "Entry request expired",
			Message:     fmt.Sprintf("No resident answered for %s", req.VisitorName),
			ReferenceID: req.ID,
		})
	}
	return nil
}

// SweepCredentials expires overdue pre-approvals and gate passes. Nobody
// is waiting at the gate for these, so counts are logged but no
// per-record notifications go out.
func (s *Sweeper) SweepCredentials(ctx context.Context) error {
	now := s.clock.Now()

	preApprovals, err := s.preApprovals.ExpireOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("expire pre-approvals: %w", err)
	}
	gatePasses, err := s.gatePasses.ExpireOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("expire gate passes: %w", err)
	}

	if preApprovals > 0 || gatePasses > 0 {
		logger.Info("Expired overdue credentials",
			"pre_approvals", preApprovals, "gate_passes", gatePasses)
	}
	return nil
}
