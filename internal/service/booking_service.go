package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"marketplace-api/internal/authz"
	"marketplace-api/internal/events"
	"marketplace-api/internal/model"
	"marketplace-api/internal/repository"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrSessionFull      = errors.New("this session is fully booked")
	ErrAlreadyBooked    = errors.New("you have already booked this session")
	ErrNotBookingOwner  = errors.New("booking belongs to another user")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
)

type BookingService interface {
	CreateBooking(ctx context.Context, caller *authz.Caller, sessionID uuid.UUID) (*model.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID, caller *authz.Caller) (*model.BookingDetails, error)
	ListBookings(ctx context.Context, caller *authz.Caller) ([]model.BookingDetails, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, caller *authz.Caller) error
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	publisher   events.EventPublisher
}

func NewBookingService(repo repository.BookingRepository, pub events.EventPublisher) BookingService {
	return &bookingService{bookingRepo: repo, publisher: pub}
}

// CreateBooking reserves a seat for the caller. The repository runs the
// capacity check and insert atomically, so the sentinel mapping here is
// the whole business-rule surface.
func (s *bookingService) CreateBooking(ctx context.Context, caller *authz.Caller, sessionID uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookingRepo.CreateConfirmed(ctx, caller.ID, sessionID)

	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionMissing):
			return nil, ErrSessionNotFound
		case errors.Is(err, repository.ErrSessionFull):
			return nil, ErrSessionFull
		case errors.Is(err, repository.ErrAlreadyBooked):
			return nil, ErrAlreadyBooked
		default:
			return nil, err
		}
	}

	go func() {
		if err := s.publisher.PublishBookingCreated(booking); err != nil {
			slog.Error("publishing booking.created", slog.String("error", err.Error()))
		}
	}()

	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID uuid.UUID, caller *authz.Caller) (*model.BookingDetails, error) {
	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// A booking outside the caller's visibility reads as not-found, so
	// the ledger does not leak which IDs exist.
	if booking == nil || !authz.CanViewBooking(caller, booking) {
		return nil, ErrBookingNotFound
	}

	return booking, nil
}

// ListBookings applies the visibility rule: creators audit reservations
// on their own sessions, everyone else sees only their own bookings.
func (s *bookingService) ListBookings(ctx context.Context, caller *authz.Caller) ([]model.BookingDetails, error) {
	if caller.Role == model.RoleCreator {
		return s.bookingRepo.ListBySessionCreator(ctx, caller.ID)
	}
	return s.bookingRepo.ListByUser(ctx, caller.ID)
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, caller *authz.Caller) error {
	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		return ErrBookingNotFound
	}

	if !authz.CanCancelBooking(caller, booking) {
		return ErrNotBookingOwner
	}

	if err := s.bookingRepo.Cancel(ctx, bookingID); err != nil {
		if errors.Is(err, repository.ErrNotConfirmed) {
			return ErrAlreadyCancelled
		}

		return err
	}

	go func() {
		if err := s.publisher.PublishBookingCancelled(booking.ID, booking.SessionID); err != nil {
			slog.Error("publishing booking.cancelled", slog.String("error", err.Error()))
		}
	}()

	return nil
}
