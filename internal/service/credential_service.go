package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Agastya221/society-gate-backend/internal/domain"
	"github.com/Agastya221/society-gate-backend/internal/platform/notify"
	"github.com/Agastya221/society-gate-backend/internal/platform/token"
	"github.com/Agastya221/society-gate-backend/internal/repo/postgres"
	"github.com/Agastya221/society-gate-backend/pkg/clock"
	"github.com/Agastya221/society-gate-backend/pkg/events"
	"github.com/Agastya221/society-gate-backend/pkg/logger"
)

type IssuePreApprovalInput struct {
	VisitorName  string
	VisitorPhone string
	ValidFrom    time.Time
	ValidUntil   time.Time
	MaxUses      int
}

type IssuedPreApproval struct {
	PreApproval *domain.PreApproval
	Token       string
}

type RequestGatePassInput struct {
	Purpose     domain.GatePassPurpose
	Description string
	ValidFrom   time.Time
	ValidUntil  time.Time
}

type RequestedGatePass struct {
	GatePass *domain.GatePass
	Token    string
}

type CredentialService interface {
	IssuePreApproval(ctx context.Context, resident domain.Principal, in IssuePreApprovalInput) (*IssuedPreApproval, error)
	// ConsumePreApproval validates the scanned QR token, claims one use
	// and materializes the Entry; a lost quota race creates nothing.
	ConsumePreApproval(ctx context.Context, guard domain.Principal, qrToken string) (*domain.Entry, error)
	CancelPreApproval(ctx context.Context, resident domain.Principal, id int64) error
	ListPreApprovals(ctx context.Context, resident domain.Principal, limit, offset int) ([]domain.PreApproval, error)

	RequestGatePass(ctx context.Context, resident domain.Principal, in RequestGatePassInput) (*RequestedGatePass, error)
	ApproveGatePass(ctx context.Context, admin domain.Principal, id int64) error
	RejectGatePass(ctx context.Context, admin domain.Principal, id int64, reason string) error
	ScanGatePass(ctx context.Context, guard domain.Principal, qrToken string) (*domain.GatePass, error)
	CancelGatePass(ctx context.Context, resident domain.Principal, id int64) error
	ListPendingGatePasses(ctx context.Context, admin domain.Principal, limit, offset int) ([]domain.GatePass, error)
}

type credentialService struct {
	preApprovals postgres.PreApprovalRepo
	gatePasses   postgres.GatePassRepo
	codec        *token.Codec
	bus          events.Publisher
	notifier     notify.Notifier
	clock        clock.Clock
}

func NewCredentialService(
	preApprovals postgres.PreApprovalRepo,
	gatePasses postgres.GatePassRepo,
	codec *token.Codec,
	bus events.Publisher,
	notifier notify.Notifier,
	clk clock.Clock,
) CredentialService {
	return &credentialService{
		preApprovals: preApprovals,
		gatePasses:   gatePasses,
		codec:        codec,
		bus:          bus,
		notifier:     notifier,
		clock:        clk,
	}
}

func (s *credentialService) IssuePreApproval(ctx context.Context, resident domain.Principal, in IssuePreApprovalInput) (*IssuedPreApproval, error) {
	if resident.Role != domain.RoleResident || !resident.IsActive {
		return nil, domain.ErrAccessDenied("only an active resident may issue pre-approvals")
	}
	if err := validateWindow(in.ValidFrom, in.ValidUntil, s.clock.Now()); err != nil {
		return nil, err
	}
	if in.MaxUses < 1 {
		return nil, domain.ErrValidation("max uses must be at least 1, got %d", in.MaxUses)
	}
	if in.VisitorName == "" {
		return nil, domain.ErrValidation("visitor name is required")
	}

	p, err := s.preApprovals.Create(ctx, &domain.PreApproval{
		Serial:       uuid.NewString(),
		UnitID:       resident.UnitID,
		ResidentID:   resident.ID,
		VisitorName:  in.VisitorName,
		VisitorPhone: in.VisitorPhone,
		ValidFrom:    in.ValidFrom,
		ValidUntil:   in.ValidUntil,
		MaxUses:      in.MaxUses,
	})
	if err != nil {
		return nil, fmt.Errorf("create pre-approval: %w", err)
	}

	qr, err := s.codec.Issue(token.KindPreApproval, p.Serial, p.UnitID, p.ResidentID, p.VisitorName, p.ValidUntil)
	if err != nil {
		return nil, fmt.Errorf("sign pre-approval token: %w", err)
	}

	if err := s.bus.Publish(ctx, events.PreApprovalIssued, events.PreApprovalConsumedEvent{
		PreApprovalID: p.ID,
		UnitID:        p.UnitID,
		MaxUses:       p.MaxUses,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish pre-approval issued event", "error", err, "pre_approval_id", p.ID)
	}

	return &IssuedPreApproval{PreApproval: p, Token: qr}, nil
}

func (s *credentialService) ConsumePreApproval(ctx context.Context, guard domain.Principal, qrToken string) (*domain.Entry, error) {
	if guard.Role != domain.RoleGuard || !guard.IsActive {
		return nil, domain.ErrAccessDenied("only an active guard may scan credentials")
	}

	claims, err := s.codec.Verify(qrToken, token.KindPreApproval)
	if err != nil {
		return nil, err
	}

	p, err := s.preApprovals.FindBySerial(ctx, claims.Serial)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound("pre-approval %s not found", claims.Serial)
	}

	now := s.clock.Now()
	switch p.Status {
	case domain.PreApprovalCancelled:
		return nil, domain.ErrInvalidState("pre-approval was cancelled by the resident")
	case domain.PreApprovalExpired:
		return nil, domain.ErrExpiredCredential("pre-approval has expired")
	case domain.PreApprovalUsed:
		return nil, domain.ErrQuotaExhausted("pre-approval has no remaining uses")
	}
	if now.Before(p.ValidFrom) {
		return nil, domain.ErrNotYetValid("pre-approval is valid from %s", p.ValidFrom.Format(time.RFC3339))
	}
	if now.After(p.ValidUntil) {
		// Lazy expiry: flip the row on the way out so the status catches
		// up even before the sweeper runs.
		if _, err := s.preApprovals.MarkExpired(ctx, p.ID, now); err != nil {
			logger.WarnContext(ctx, "Failed to expire overdue pre-approval", "error", err, "pre_approval_id", p.ID)
		}
		return nil, domain.ErrExpiredCredential("pre-approval expired at %s", p.ValidUntil.Format(time.RFC3339))
	}

	entry, updated, err := s.preApprovals.ConsumeAndCreateEntry(ctx, p.ID, &domain.Entry{
		Type:               domain.EntryVisitor,
		UnitID:             p.UnitID,
		GuardID:            guard.ID,
		VisitorName:        p.VisitorName,
		VisitorPhone:       p.VisitorPhone,
		AutoApprovalReason: ReasonPreApproved,
		CheckInTime:        now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.PreApprovalConsumed, events.PreApprovalConsumedEvent{
		PreApprovalID: updated.ID,
		EntryID:       entry.ID,
		UnitID:        updated.UnitID,
		GuardID:       guard.ID,
		UsedCount:     updated.UsedCount,
		MaxUses:       updated.MaxUses,
		ConsumedAt:    now,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish pre-approval consumed event", "error", err, "pre_approval_id", updated.ID)
	}

	s.notifier.NotifyUnit(ctx, updated.UnitID, notify.Notification{
		Kind:        "preapproval.consumed",
		Title:       "Pre-approved visitor arrived",
		Message:     fmt.Sprintf("%s entered (%d of %d uses)", p.VisitorName, updated.UsedCount, updated.MaxUses),
		ReferenceID: entry.ID,
	})

	return entry, nil
}

func (s *credentialService) CancelPreApproval(ctx context.Context, resident domain.Principal, id int64) error {
	p, err := s.preApprovals.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.ErrNotFound("pre-approval %d not found", id)
	}
	if p.ResidentID != resident.ID {
		return domain.ErrAccessDenied("only the issuing resident may cancel")
	}

	won, err := s.preApprovals.Cancel(ctx, id, s.clock.Now())
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidState("pre-approval is already %s", p.Status)
	}

	if err := s.bus.Publish(ctx, events.PreApprovalCancelled, events.PreApprovalConsumedEvent{
		PreApprovalID: id,
		UnitID:        p.UnitID,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish pre-approval cancelled event", "error", err, "pre_approval_id", id)
	}
	return nil
}

func (s *credentialService) ListPreApprovals(ctx context.Context, resident domain.Principal, limit, offset int) ([]domain.PreApproval, error) {
	if resident.Role != domain.RoleResident {
		return nil, domain.ErrAccessDenied("only residents list their pre-approvals")
	}
	return s.preApprovals.ListByResident(ctx, resident.ID, limit, offset)
}

func (s *credentialService) RequestGatePass(ctx context.Context, resident domain.Principal, in RequestGatePassInput) (*RequestedGatePass, error) {
	if resident.Role != domain.RoleResident || !resident.IsActive {
		return nil, domain.ErrAccessDenied("only an active resident may request a gate pass")
	}
	if err := validateWindow(in.ValidFrom, in.ValidUntil, s.clock.Now()); err != nil {
		return nil, err
	}

	gp, err := s.gatePasses.Create(ctx, &domain.GatePass{
		Serial:      uuid.NewString(),
		Purpose:     in.Purpose,
		UnitID:      resident.UnitID,
		ResidentID:  resident.ID,
		Description: in.Description,
		ValidFrom:   in.ValidFrom,
		ValidUntil:  in.ValidUntil,
	})
	if err != nil {
		return nil, fmt.Errorf("create gate pass: %w", err)
	}

	qr, err := s.codec.Issue(token.KindGatePass, gp.Serial, gp.UnitID, gp.ResidentID, "", gp.ValidUntil)
	if err != nil {
		return nil, fmt.Errorf("sign gate pass token: %w", err)
	}

	if err := s.bus.Publish(ctx, events.GatePassRequested, events.GatePassUsedEvent{
		GatePassID: gp.ID,
		UnitID:     gp.UnitID,
		Purpose:    string(gp.Purpose),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish gate pass requested event", "error", err, "gate_pass_id", gp.ID)
	}

	return &RequestedGatePass{GatePass: gp, Token: qr}, nil
}

func (s *credentialService) ApproveGatePass(ctx context.Context, admin domain.Principal, id int64) error {
	return s.resolveGatePass(ctx, admin, id, "", true)
}

func (s *credentialService) RejectGatePass(ctx context.Context, admin domain.Principal, id int64, reason string) error {
	return s.resolveGatePass(ctx, admin, id, reason, false)
}

func (s *credentialService) resolveGatePass(ctx context.Context, admin domain.Principal, id int64, reason string, approve bool) error {
	if admin.Role != domain.RoleAdmin {
		return domain.ErrAccessDenied("gate pass review is an admin operation")
	}

	gp, err := s.gatePasses.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if gp == nil {
		return domain.ErrNotFound("gate pass %d not found", id)
	}

	now := s.clock.Now()
	var won bool
	if approve {
		won, err = s.gatePasses.Approve(ctx, id, now)
	} else {
		won, err = s.gatePasses.Reject(ctx, id, reason, now)
	}
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidState("gate pass is already %s", gp.Status)
	}

	outcome := "approved"
	msg := fmt.Sprintf("Your %s gate pass was approved", gp.Purpose)
	if !approve {
		outcome = "rejected"
		msg = fmt.Sprintf("Your %s gate pass was rejected: %s", gp.Purpose, reason)
	}
	if err := s.bus.Publish(ctx, events.GatePassResolved, events.GatePassUsedEvent{
		GatePassID: id,
		UnitID:     gp.UnitID,
		Purpose:    string(gp.Purpose),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish gate pass resolved event", "error", err, "gate_pass_id", id, "outcome", outcome)
	}
	s.notifier.NotifyPrincipal(ctx, gp.ResidentID, notify.Notification{
		Kind:        "gatepass." + outcome,
		Title:       "Gate pass " + outcome,
		Message:     msg,
		ReferenceID: id,
	})
	return nil
}

func (s *credentialService) ScanGatePass(ctx context.Context, guard domain.Principal, qrToken string) (*domain.GatePass, error) {
	if guard.Role != domain.RoleGuard || !guard.IsActive {
		return nil, domain.ErrAccessDenied("only an active guard may scan credentials")
	}

	claims, err := s.codec.Verify(qrToken, token.KindGatePass)
	if err != nil {
		return nil, err
	}

	gp, err := s.gatePasses.FindBySerial(ctx, claims.Serial)
	if err != nil {
		return nil, err
	}
	if gp == nil {
		return nil, domain.ErrNotFound("gate pass %s not found", claims.Serial)
	}

	now := s.clock.Now()
	switch {
	case gp.IsUsed || gp.Status == domain.PassUsed:
		return nil, domain.ErrAlreadyUsed("gate pass was already used")
	case gp.Status == domain.PassRejected:
		return nil, domain.ErrInvalidState("gate pass was rejected")
	case gp.Status == domain.PassExpired:
		return nil, domain.ErrExpiredCredential("gate pass has expired")
	case gp.Status == domain.PassPending:
		return nil, domain.ErrInvalidState("gate pass is awaiting admin approval")
	}
	if now.Before(gp.ValidFrom) {
		return nil, domain.ErrNotYetValid("gate pass is valid from %s", gp.ValidFrom.Format(time.RFC3339))
	}
	if now.After(gp.ValidUntil) {
		if _, err := s.gatePasses.MarkExpired(ctx, gp.ID, now); err != nil {
			logger.WarnContext(ctx, "Failed to expire overdue gate pass", "error", err, "gate_pass_id", gp.ID)
		}
		return nil, domain.ErrExpiredCredential("gate pass expired at %s", gp.ValidUntil.Format(time.RFC3339))
	}

	won, err := s.gatePasses.ClaimUse(ctx, gp.ID, guard.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.ErrAlreadyUsed("gate pass was claimed by a concurrent scan")
	}

	if err := s.bus.Publish(ctx, events.GatePassUsed, events.GatePassUsedEvent{
		GatePassID: gp.ID,
		UnitID:     gp.UnitID,
		GuardID:    guard.ID,
		Purpose:    string(gp.Purpose),
		UsedAt:     now,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish gate pass used event", "error", err, "gate_pass_id", gp.ID)
	}
	s.notifier.NotifyPrincipal(ctx, gp.ResidentID, notify.Notification{
		Kind:        "gatepass.used",
		Title:       "Gate pass used",
		Message:     fmt.Sprintf("Your %s gate pass was used at the gate", gp.Purpose),
		ReferenceID: gp.ID,
	})

	return s.gatePasses.FindByID(ctx, gp.ID)
}

func (s *credentialService) CancelGatePass(ctx context.Context, resident domain.Principal, id int64) error {
	gp, err := s.gatePasses.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if gp == nil {
		return domain.ErrNotFound("gate pass %d not found", id)
	}
	if gp.ResidentID != resident.ID {
		return domain.ErrAccessDenied("only the requesting resident may cancel")
	}
	if gp.IsUsed {
		return domain.ErrAlreadyUsed("gate pass was already used")
	}

	won, err := s.gatePasses.Cancel(ctx, id, s.clock.Now())
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidState("gate pass is already %s", gp.Status)
	}
	return nil
}

func (s *credentialService) ListPendingGatePasses(ctx context.Context, admin domain.Principal, limit, offset int) ([]domain.GatePass, error) {
	if admin.Role != domain.RoleAdmin {
		return nil, domain.ErrAccessDenied("gate pass review is an admin operation")
	}
	return s.gatePasses.ListPending(ctx, limit, offset)
}

// validateWindow rejects inverted or already-dead validity windows.
func validateWindow(from, until, now time.Time) error {
	if !from.Before(until) {
		return domain.ErrValidation("valid_from must precede valid_until")
	}
	if until.Before(now) {
		return domain.ErrValidation("valid_until is in the past")
	}
	return nil
}
