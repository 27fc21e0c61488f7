package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/domain"
	"github.com/Agastya221/society-gate-backend/internal/repo/postgres"
	"github.com/Agastya221/society-gate-backend/pkg/clock"
	"github.com/Agastya221/society-gate-backend/pkg/config"
	"github.com/Agastya221/society-gate-backend/pkg/events"
	"github.com/Agastya221/society-gate-backend/pkg/logger"
)

type ProposeBookingInput struct {
	AmenityID   int64
	BookingDate time.Time
	StartTime   string // "HH:MM"
	EndTime     string // "HH:MM"
}

type BookingService interface {
	// Propose validates the slot and inserts it as pending. Conflict
	// detection happens inside the repository transaction; two
	// overlapping proposals cannot both succeed.
	Propose(ctx context.Context, resident domain.Principal, in ProposeBookingInput) (*domain.Booking, error)
	Confirm(ctx context.Context, admin domain.Principal, id int64) error
	Cancel(ctx context.Context, p domain.Principal, id int64, reason string) error
	Complete(ctx context.Context, admin domain.Principal, id int64) error
	ListDay(ctx context.Context, amenityID int64, day time.Time) ([]domain.Booking, error)
}

type bookingService struct {
	bookings   postgres.BookingRepo
	bus        events.Publisher
	clock      clock.Clock
	defaultCap int
}

func NewBookingService(bookings postgres.BookingRepo, bus events.Publisher, clk clock.Clock, cfg config.AccessConfig) BookingService {
	return &bookingService{
		bookings:   bookings,
		bus:        bus,
		clock:      clk,
		defaultCap: cfg.DefaultBookingCap,
	}
}

func (s *bookingService) Propose(ctx context.Context, resident domain.Principal, in ProposeBookingInput) (*domain.Booking, error) {
	if resident.Role != domain.RoleResident || !resident.IsActive {
		return nil, domain.ErrAccessDenied("only an active resident may book amenities")
	}

	start, err := MinutesOfDay(in.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := MinutesOfDay(in.EndTime)
	if err != nil {
		return nil, err
	}
	if start >= end {
		return nil, domain.ErrValidation("start time %s must precede end time %s", in.StartTime, in.EndTime)
	}

	amenity, err := s.bookings.FindAmenity(ctx, in.AmenityID)
	if err != nil {
		return nil, err
	}
	if amenity == nil || !amenity.IsActive {
		return nil, domain.ErrNotFound("amenity %d not found", in.AmenityID)
	}
	cap := amenity.MaxPerResident
	if cap <= 0 {
		cap = s.defaultCap
	}

	b, err := s.bookings.Propose(ctx, &domain.Booking{
		AmenityID:   in.AmenityID,
		ResidentID:  resident.ID,
		BookingDate: in.BookingDate,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
	}, cap)
	if err != nil {
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.BookingProposed, events.BookingProposedEvent{
		BookingID:   b.ID,
		AmenityID:   b.AmenityID,
		ResidentID:  b.ResidentID,
		BookingDate: b.BookingDate,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		CreatedAt:   b.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking proposed event", "error", err, "booking_id", b.ID)
	}

	return b, nil
}

func (s *bookingService) Confirm(ctx context.Context, admin domain.Principal, id int64) error {
	if admin.Role != domain.RoleAdmin {
		return domain.ErrAccessDenied("booking confirmation is an admin operation")
	}

	b, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return domain.ErrNotFound("booking %d not found", id)
	}

	now := s.clock.Now()
	won, err := s.bookings.Confirm(ctx, id, now)
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidState("booking is already %s", b.Status)
	}

	s.publishResolved(ctx, b, "confirmed", "", now)
	return nil
}

func (s *bookingService) Cancel(ctx context.Context, p domain.Principal, id int64, reason string) error {
	b, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return domain.ErrNotFound("booking %d not found", id)
	}
	if p.Role != domain.RoleAdmin && b.ResidentID != p.ID {
		return domain.ErrAccessDenied("only the booking owner may cancel")
	}

	now := s.clock.Now()
	won, err := s.bookings.Cancel(ctx, id, reason, now)
	if err != nil {
		return err
	}
	if !won {
		// The slot resolved concurrently (completed, or an admin raced
		// us). Report it as a state problem, not a fault.
		return domain.ErrInvalidState("booking is already %s", b.Status)
	}

	s.publishResolved(ctx, b, "cancelled", reason, now)
	return nil
}

func (s *bookingService) Complete(ctx context.Context, admin domain.Principal, id int64) error {
	if admin.Role != domain.RoleAdmin {
		return domain.ErrAccessDenied("booking completion is an admin operation")
	}

	now := s.clock.Now()
	won, err := s.bookings.Complete(ctx, id, now)
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidState("booking %d is not confirmed", id)
	}
	return nil
}

func (s *bookingService) ListDay(ctx context.Context, amenityID int64, day time.Time) ([]domain.Booking, error) {
	return s.bookings.ListForAmenityDate(ctx, amenityID, day)
}

func (s *bookingService) publishResolved(ctx context.Context, b *domain.Booking, outcome, reason string, at time.Time) {
	subject := events.BookingConfirmed
	if outcome == "cancelled" {
		subject = events.BookingCancelled
	}
	if err := s.bus.Publish(ctx, subject, events.BookingResolvedEvent{
		BookingID:  b.ID,
		AmenityID:  b.AmenityID,
		ResidentID: b.ResidentID,
		Outcome:    outcome,
		Reason:     reason,
		ResolvedAt: at,
	}); err != nil {
		logger.ErrorContext(ctx, fmt.Sprintf("Failed to publish booking %s event", outcome), "error", err, "booking_id", b.ID)
	}
}
