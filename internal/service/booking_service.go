package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"localbiz/internal/auth"
	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
	"localbiz/internal/repository"
)

// BookingInput carries the fields of a new booking. Amount defaults to the service price.
type BookingInput struct {
	ProviderID  uuid.UUID
	ServiceID   *uuid.UUID
	ScheduledAt time.Time
	Description string
	Amount      *decimal.Decimal
}

// BookingService handles booking creation and the booking lifecycle.
type BookingService interface {
	CreateBooking(ctx context.Context, actor *auth.Identity, input BookingInput) (*model.Booking, error)
	GetBooking(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.BookingView, error)
	ListBookings(ctx context.Context, actor *auth.Identity, page repository.Page) ([]model.BookingView, int64, error)
	ListProviderBookings(ctx context.Context, actor *auth.Identity, page repository.Page) ([]model.BookingView, int64, error)
	UpdateBookingStatus(ctx context.Context, actor *auth.Identity, id uuid.UUID, status model.BookingStatus) (*model.Booking, error)
	CancelBooking(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.Booking, error)
	DeleteBooking(ctx context.Context, actor *auth.Identity, id uuid.UUID) error
}

type bookingService struct {
	bookingRepo  repository.BookingRepository
	providerRepo repository.ProviderRepository
	allowPast    bool
	now          func() time.Time
	logger       *zap.Logger
}

// NewBookingService creates a new booking service. allowPast disables the check that
// bookings are scheduled in the future.
func NewBookingService(
	bookingRepo repository.BookingRepository,
	providerRepo repository.ProviderRepository,
	allowPast bool,
	logger *zap.Logger,
) BookingService {
	return &bookingService{
		bookingRepo:  bookingRepo,
		providerRepo: providerRepo,
		allowPast:    allowPast,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, actor *auth.Identity, input BookingInput) (*model.Booking, error) {
	if input.ProviderID == uuid.Nil {
		return nil, fmt.Errorf("%w: provider_id is required", apperrors.ErrValidation)
	}
	if input.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_at is required", apperrors.ErrValidation)
	}
	if !s.allowPast && input.ScheduledAt.Before(s.now()) {
		return nil, apperrors.ErrBookingInPast
	}

	provider, err := s.providerRepo.FindByID(ctx, input.ProviderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: provider", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("find provider: %w", err)
	}
	if provider.Status != model.ProviderStatusActive {
		return nil, fmt.Errorf("%w: provider is not accepting bookings", apperrors.ErrValidation)
	}

	if input.Amount != nil && input.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", apperrors.ErrValidation)
	}

	booking := &model.Booking{
		UserID:      actor.UserID,
		ProviderID:  provider.ID,
		ServiceID:   input.ServiceID,
		ScheduledAt: input.ScheduledAt.UTC(),
		Description: input.Description,
		TotalAmount: decimal.Zero,
		Status:      model.BookingStatusPending,
	}
	err = s.bookingRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.BookingRepository) error {
		if input.ServiceID != nil {
			svc, err := repo.FindServiceForShare(ctx, *input.ServiceID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: service", apperrors.ErrNotFound)
				}
				return fmt.Errorf("find service: %w", err)
			}
			if svc.ProviderID != provider.ID {
				return fmt.Errorf("%w: service does not belong to provider", apperrors.ErrValidation)
			}
			if !svc.Active {
				return fmt.Errorf("%w: service is not available", apperrors.ErrValidation)
			}
			booking.TotalAmount = svc.Price
		}
		if input.Amount != nil {
			booking.TotalAmount = *input.Amount
		}
		if err := repo.Create(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("user_id", actor.UserID.String()),
		zap.String("provider_id", provider.ID.String()),
	)
	return booking, nil
}

// bookingScope lets non-admins see bookings they made and bookings of providers they run.
func bookingScope(actor *auth.Identity) repository.Scope {
	if actor.IsAdmin() {
		return repository.Scope{}
	}
	return repository.Participant(actor.UserID)
}

func (s *bookingService) GetBooking(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.BookingView, error) {
	view, err := s.bookingRepo.Get(ctx, bookingScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return view, nil
}

// ListBookings lists the caller's own bookings, or every booking for admins.
func (s *bookingService) ListBookings(ctx context.Context, actor *auth.Identity, page repository.Page) ([]model.BookingView, int64, error) {
	scope := repository.OwnedBy(actor.UserID)
	if actor.IsAdmin() {
		scope = repository.Scope{}
	}
	return s.bookingRepo.List(ctx, scope, page)
}

// ListProviderBookings lists bookings made with providers the caller operates.
func (s *bookingService) ListProviderBookings(ctx context.Context, actor *auth.Identity, page repository.Page) ([]model.BookingView, int64, error) {
	scope := repository.OperatedBy(actor.UserID)
	if actor.IsAdmin() {
		scope = repository.Scope{}
	}
	return s.bookingRepo.List(ctx, scope, page)
}

// canActOn reports whether actor may change the status of booking. repo must be the
// transaction's repository so the lookup shares its connection.
func canActOn(ctx context.Context, repo repository.BookingRepository, actor *auth.Identity, booking *model.Booking) (bool, error) {
	if actor.IsAdmin() || booking.UserID == actor.UserID {
		return true, nil
	}
	if actor.Role != model.RoleProvider {
		return false, nil
	}
	owner, err := repo.ProviderOwner(ctx, booking.ProviderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find provider owner: %w", err)
	}
	return owner != nil && *owner == actor.UserID, nil
}

func (s *bookingService) UpdateBookingStatus(ctx context.Context, actor *auth.Identity, id uuid.UUID, status model.BookingStatus) (*model.Booking, error) {
	var updated *model.Booking
	err := s.bookingRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.BookingRepository) error {
		booking, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		allowed, err := canActOn(ctx, repo, actor, booking)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.ErrNotFound
		}
		if err := checkBookingTransition(booking.Status, status); err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, id, status); err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		booking.Status = status
		updated = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking status changed",
		zap.String("booking_id", id.String()),
		zap.String("status", string(status)),
		zap.String("actor_id", actor.UserID.String()),
	)
	return updated, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.Booking, error) {
	return s.UpdateBookingStatus(ctx, actor, id, model.BookingStatusCancelled)
}

// DeleteBooking soft deletes a booking. Only its owner or an admin may do so.
func (s *bookingService) DeleteBooking(ctx context.Context, actor *auth.Identity, id uuid.UUID) error {
	err := s.bookingRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.BookingRepository) error {
		booking, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		if booking.UserID != actor.UserID && !actor.IsAdmin() {
			return apperrors.ErrNotFound
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("booking deleted", zap.String("booking_id", id.String()), zap.String("actor_id", actor.UserID.String()))
	return nil
}
