package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/domain"
	"github.com/Agastya221/society-gate-backend/internal/platform/notify"
	"github.com/Agastya221/society-gate-backend/internal/repo/postgres"
	"github.com/Agastya221/society-gate-backend/pkg/clock"
	"github.com/Agastya221/society-gate-backend/pkg/config"
	"github.com/Agastya221/society-gate-backend/pkg/events"
	"github.com/Agastya221/society-gate-backend/pkg/logger"
)

type ArrivalInput struct {
	UnitID       int64
	Type         domain.EntryType
	ProviderTag  string
	VisitorName  string
	VisitorPhone string
}

// ArrivalResult carries exactly one of Entry (auto-approved, walk them
// in) or Request (resident has been asked).
type ArrivalResult struct {
	Entry   *domain.Entry
	Request *domain.EntryRequest
}

type EntryService interface {
	// ReportArrival is the guard's "someone is at the gate" event: the
	// resolver is consulted first, and only an uncovered arrival turns
	// into a pending entry request.
	ReportArrival(ctx context.Context, guard domain.Principal, in ArrivalInput) (*ArrivalResult, error)
	CreateRequest(ctx context.Context, guard domain.Principal, in ArrivalInput) (*domain.EntryRequest, error)
	ApproveRequest(ctx context.Context, resident domain.Principal, requestID int64) (*domain.Entry, error)
	RejectRequest(ctx context.Context, resident domain.Principal, requestID int64, reason string) error
	CreateAdhocEntry(ctx context.Context, guard domain.Principal, in ArrivalInput) (*domain.Entry, error)
	ApproveEntry(ctx context.Context, resident domain.Principal, entryID int64) error
	RejectEntry(ctx context.Context, resident domain.Principal, entryID int64, reason string) error
	Checkout(ctx context.Context, guard domain.Principal, entryID int64) (*domain.Entry, error)
	ListUnitEntries(ctx context.Context, p domain.Principal, unitID int64, limit, offset int) ([]domain.Entry, error)
	ListPendingRequests(ctx context.Context, resident domain.Principal) ([]domain.EntryRequest, error)
}

type entryService struct {
	entries    postgres.EntryRepo
	requests   postgres.EntryRequestRepo
	principals postgres.PrincipalRepo
	resolver   AutoApprovalResolver
	bus        events.Publisher
	notifier   notify.Notifier
	clock      clock.Clock
	requestTTL time.Duration
}

func NewEntryService(
	entries postgres.EntryRepo,
	requests postgres.EntryRequestRepo,
	principals postgres.PrincipalRepo,
	resolver AutoApprovalResolver,
	bus events.Publisher,
	notifier notify.Notifier,
	clk clock.Clock,
	cfg config.AccessConfig,
) EntryService {
	return &entryService{
		entries:    entries,
		requests:   requests,
		principals: principals,
		resolver:   resolver,
		bus:        bus,
		notifier:   notifier,
		clock:      clk,
		requestTTL: cfg.EntryRequestTTL,
	}
}

func (s *entryService) ReportArrival(ctx context.Context, guard domain.Principal, in ArrivalInput) (*ArrivalResult, error) {
	if err := s.checkGuard(ctx, guard, in.UnitID); err != nil {
		return nil, err
	}

	grant, err := s.resolver.Resolve(ctx, in.UnitID, in.ProviderTag)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		req, err := s.createRequest(ctx, guard, in)
		if err != nil {
			return nil, err
		}
		return &ArrivalResult{Request: req}, nil
	}

	now := s.clock.Now()
	entry, err := s.entries.Create(ctx, &domain.Entry{
		Type:               in.Type,
		Status:             domain.EntryApproved,
		UnitID:             in.UnitID,
		GuardID:            guard.ID,
		VisitorName:        in.VisitorName,
		VisitorPhone:       in.VisitorPhone,
		WasAutoApproved:    true,
		AutoApprovalReason: grant.Reason,
		CheckInTime:        now,
	})
	if err != nil {
		return nil, fmt.Errorf("create auto-approved entry: %w", err)
	}

	if err := s.bus.Publish(ctx, events.AccessAutoApproved, events.AutoApprovedEvent{
		EntryID:     entry.ID,
		UnitID:      entry.UnitID,
		ProviderTag: in.ProviderTag,
		Reason:      grant.Reason,
		ApprovedAt:  now,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish auto-approval event", "error", err, "entry_id", entry.ID)
	}

	s.notifier.NotifyUnit(ctx, entry.UnitID, notify.Notification{
		Kind:        "entry.auto_approved",
		Title:       "Entry auto-approved",
		Message:     fmt.Sprintf("%s entered automatically (%s)", entry.VisitorName, grant.Reason),
		ReferenceID: entry.ID,
	})

	return &ArrivalResult{Entry: entry}, nil
}

func (s *entryService) CreateRequest(ctx context.Context, guard domain.Principal, in ArrivalInput) (*domain.EntryRequest, error) {
	if err := s.checkGuard(ctx, guard, in.UnitID); err != nil {
		return nil, err
	}
	return s.createRequest(ctx, guard, in)
}

func (s *entryService) createRequest(ctx context.Context, guard domain.Principal, in ArrivalInput) (*domain.EntryRequest, error) {
	now := s.clock.Now()
	req, err := s.requests.Create(ctx, &domain.EntryRequest{
		Type:         in.Type,
		UnitID:       in.UnitID,
		GuardID:      guard.ID,
		VisitorName:  in.VisitorName,
		VisitorPhone: in.VisitorPhone,
		ExpiresAt:    now.Add(s.requestTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("create entry request: %w", err)
	}

	if err := s.bus.Publish(ctx, events.EntryRequestCreated, events.EntryRequestCreatedEvent{
		RequestID:   req.ID,
		UnitID:      req.UnitID,
		GuardID:     req.GuardID,
		EntryType:   string(req.Type),
		VisitorName: req.VisitorName,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   req.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish entry request event", "error", err, "request_id", req.ID)
	}

	s.notifier.NotifyUnit(ctx, req.UnitID, notify.Notification{
		Kind:        "entry.request",
		Title:       "Visitor at gate",
		Message:     fmt.Sprintf("%s (%s) is waiting at the gate", req.VisitorName, req.Type),
		ReferenceID: req.ID,
	})

	return req, nil
}

func (s *entryService) ApproveRequest(ctx context.Context, resident domain.Principal, requestID int64) (*domain.Entry, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrNotFound("entry request %d not found", requestID)
	}
	if !resident.IsResidentOf(req.UnitID) {
		return nil, domain.ErrAccessDenied("only an active resident of the unit may approve")
	}
	if req.Status != domain.RequestPending {
		return nil, domain.ErrInvalidState("entry request is already %s", req.Status)
	}

	now := s.clock.Now()
	if now.After(req.ExpiresAt) {
		// Lazy expiry: flip the record on the way out. The sweeper would
		// get to it eventually; the caller should not have to wait.
		if _, err := s.requests.MarkExpired(ctx, requestID, now); err != nil {
			logger.WarnContext(ctx, "Failed to expire overdue request", "error", err, "request_id", requestID)
		}
		return nil, domain.ErrExpiredCredential("entry request expired at %s", req.ExpiresAt.Format(time.RFC3339))
	}

	entry, won, err := s.requests.ApproveAndMaterialize(ctx, requestID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.ErrInvalidState("entry request was resolved concurrently")
	}

	s.publishRequestResolved(ctx, req, "approved", &entry.ID, now)
	s.notifier.NotifyPrincipal(ctx, req.GuardID, notify.Notification{
		Kind:        "entry.request.approved",
		Title:       "Entry approved",
		Message:     fmt.Sprintf("%s may enter", req.VisitorName),
		ReferenceID: req.ID,
	})

	return entry, nil
}

func (s *entryService) RejectRequest(ctx context.Context, resident domain.Principal, requestID int64, reason string) error {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return domain.ErrNotFound("entry request %d not found", requestID)
	}
	if !resident.IsResidentOf(req.UnitID) {
		return domain.ErrAccessDenied("only an active resident of the unit may reject")
	}
	if req.Status != domain.RequestPending {
		return domain.ErrInvalidState("entry request is already %s", req.Status)
	}

	now := s.clock.Now()
	if now.After(req.ExpiresAt) {
		if _, err := s.requests.MarkExpired(ctx, requestID, now); err != nil {
			logger.WarnContext(ctx, "Failed to expire overdue request", "error", err, "request_id", requestID)
		}
		return domain.ErrExpiredCredential("entry request expired at %s", req.ExpiresAt.Format(time.RFC3339))
	}

	won, err := s.requests.Reject(ctx, requestID, reason, now)
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidState("entry request was resolved concurrently")
	}

	s.publishRequestResolved(ctx, req, "rejected", nil, now)
	s.notifier.NotifyPrincipal(ctx, req.GuardID, notify.Notification{
		Kind:        "entry.request.rejected",
		Title:       "Entry rejected",
		Message:     fmt.Sprintf("%s was turned away: %s", req.VisitorName, reason),
		ReferenceID: req.ID,
	})

	return nil
}

func (s *entryService) CreateAdhocEntry(ctx context.Context, guard domain.Principal, in ArrivalInput) (*domain.Entry, error) {
	if err := s.checkGuard(ctx, guard, in.UnitID); err != nil {
		return nil, err
	}

	entry, err := s.entries.Create(ctx, &domain.Entry{
		Type:         in.Type,
		Status:       domain.EntryPending,
		UnitID:       in.UnitID,
		GuardID:      guard.ID,
		VisitorName:  in.VisitorName,
		VisitorPhone: in.VisitorPhone,
		CheckInTime:  s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	s.notifier.NotifyUnit(ctx, entry.UnitID, notify.Notification{
		Kind:        "entry.pending",
		Title:       "Entry awaiting approval",
		Message:     fmt.Sprintf("%s (%s) awaits your approval", entry.VisitorName, entry.Type),
		ReferenceID: entry.ID,
	})

	return entry, nil
}

func (s *entryService) ApproveEntry(ctx context.Context, resident domain.Principal, entryID int64) error {
	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return domain.ErrNotFound("entry %d not found", entryID)
	}
	if !resident.IsResidentOf(entry.UnitID) {
		return domain.ErrAccessDenied("only an active resident of the unit may approve")
	}

	now := s.clock.Now()
	won, err := s.entries.Approve(ctx, entryID, now)
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidState("entry is no longer pending")
	}

	if err := s.bus.Publish(ctx, events.EntryApproved, events.EntryRequestResolvedEvent{
		RequestID:  entryID,
		UnitID:     entry.UnitID,
		GuardID:    entry.GuardID,
		Outcome:    "approved",
		ResolvedAt: now,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish entry approved event", "error", err, "entry_id", entryID)
	}
	s.notifier.NotifyPrincipal(ctx, entry.GuardID, notify.Notification{
		Kind:        "entry.approved",
		Title:       "Entry approved",
		Message:     fmt.Sprintf("%s may enter", entry.VisitorName),
		ReferenceID: entryID,
	})
	return nil
}

func (s *entryService) RejectEntry(ctx context.Context, resident domain.Principal, entryID int64, reason string) error {
	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return domain.ErrNotFound("entry %d not found", entryID)
	}
	if !resident.IsResidentOf(entry.UnitID) {
		return domain.ErrAccessDenied("only an active resident of the unit may reject")
	}

	now := s.clock.Now()
	won, err := s.entries.Reject(ctx, entryID, reason, now)
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidState("entry is no longer pending")
	}

	s.notifier.NotifyPrincipal(ctx, entry.GuardID, notify.Notification{
		Kind:        "entry.rejected",
		Title:       "Entry rejected",
		Message:     fmt.Sprintf("%s was turned away", entry.VisitorName),
		ReferenceID: entryID,
	})
	return nil
}

func (s *entryService) Checkout(ctx context.Context, guard domain.Principal, entryID int64) (*domain.Entry, error) {
	if guard.Role != domain.RoleGuard {
		return nil, domain.ErrAccessDenied("checkout is a guard operation")
	}

	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrNotFound("entry %d not found", entryID)
	}

	now := s.clock.Now()
	won, err := s.entries.Checkout(ctx, entryID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.ErrInvalidState("entry %d is not approved or already checked out", entryID)
	}

	if err := s.bus.Publish(ctx, events.EntryCheckedOut, events.EntryCheckedOutEvent{
		EntryID:      entryID,
		UnitID:       entry.UnitID,
		GuardID:      guard.ID,
		CheckOutTime: now,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish checkout event", "error", err, "entry_id", entryID)
	}

	return s.entries.FindByID(ctx, entryID)
}

func (s *entryService) ListUnitEntries(ctx context.Context, p domain.Principal, unitID int64, limit, offset int) ([]domain.Entry, error) {
	switch p.Role {
	case domain.RoleAdmin, domain.RoleGuard:
	case domain.RoleResident:
		if !p.IsResidentOf(unitID) {
			return nil, domain.ErrAccessDenied("residents may list only their own unit")
		}
	default:
		return nil, domain.ErrAccessDenied("unknown role")
	}
	return s.entries.ListByUnit(ctx, unitID, limit, offset)
}

func (s *entryService) ListPendingRequests(ctx context.Context, resident domain.Principal) ([]domain.EntryRequest, error) {
	if resident.Role != domain.RoleResident || !resident.IsActive {
		return nil, domain.ErrAccessDenied("only active residents have pending requests")
	}
	return s.requests.ListPendingByUnit(ctx, resident.UnitID)
}

// checkGuard verifies the acting principal is an active guard and the
// target unit exists.
func (s *entryService) checkGuard(ctx context.Context, guard domain.Principal, unitID int64) error {
	if guard.Role != domain.RoleGuard || !guard.IsActive {
		return domain.ErrAccessDenied("only an active guard may raise gate events")
	}
	unit, err := s.principals.FindUnit(ctx, unitID)
	if err != nil {
		return err
	}
	if unit == nil {
		return domain.ErrNotFound("unit %d not found", unitID)
	}
	return nil
}

func (s *entryService) publishRequestResolved(ctx context.Context, req *domain.EntryRequest, outcome string, entryID *int64, at time.Time) {
	if err := s.bus.Publish(ctx, events.EntryRequestResolved, events.EntryRequestResolvedEvent{
		RequestID:  req.ID,
		UnitID:     req.UnitID,
		GuardID:    req.GuardID,
		Outcome:    outcome,
		EntryID:    entryID,
		ResolvedAt: at,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish request resolved event", "error", err, "request_id", req.ID)
	}
}
