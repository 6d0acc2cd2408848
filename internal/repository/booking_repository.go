package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"localbiz/internal/model"
)

// BookingRepository defines booking persistence and the booking side of the query façade.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error
	// FindServiceForShare reads a service under a shared row lock held until commit, so
	// the service cannot be deleted while a booking for it is being inserted.
	FindServiceForShare(ctx context.Context, id uuid.UUID) (*model.Service, error)
	// ProviderOwner returns the user operating a provider, nil when it has none.
	ProviderOwner(ctx context.Context, providerID uuid.UUID) (*uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, scope Scope, id uuid.UUID) (*model.BookingView, error)
	List(ctx context.Context, scope Scope, page Page) ([]model.BookingView, int64, error)
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo BookingRepository) error) error
}

type bookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(booking).Error
}

// FindByIDForUpdate finds a booking by ID with row-level lock for update.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error {
	return r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *bookingRepository) FindServiceForShare(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var service model.Service
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"}).
		Where("id = ?", id).First(&service).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *bookingRepository) ProviderOwner(ctx context.Context, providerID uuid.UUID) (*uuid.UUID, error) {
	var provider model.Provider
	if err := r.db.WithContext(ctx).Select("id", "user_id").
		Where("id = ?", providerID).First(&provider).Error; err != nil {
		return nil, err
	}
	return provider.UserID, nil
}

func (r *bookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Booking{}).Error
}

const bookingViewColumns = "bookings.*, users.full_name AS user_name, users.email AS user_email, " +
	"services.name AS service_name, providers.name AS provider_name"

// scoped builds the joined booking query with the visibility predicate in the WHERE clause.
func (r *bookingRepository) scoped(ctx context.Context, scope Scope) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Booking{}).
		Joins("LEFT JOIN users ON users.id = bookings.user_id").
		Joins("LEFT JOIN services ON services.id = bookings.service_id").
		Joins("LEFT JOIN providers ON providers.id = bookings.provider_id")
	switch {
	case scope.OwnerID != nil && scope.ProviderUserID != nil:
		q = q.Where("(bookings.user_id = ? OR providers.user_id = ?)", *scope.OwnerID, *scope.ProviderUserID)
	case scope.OwnerID != nil:
		q = q.Where("bookings.user_id = ?", *scope.OwnerID)
	case scope.ProviderUserID != nil:
		q = q.Where("providers.user_id = ?", *scope.ProviderUserID)
	}
	return q
}

func (r *bookingRepository) Get(ctx context.Context, scope Scope, id uuid.UUID) (*model.BookingView, error) {
	var views []model.BookingView
	if err := r.scoped(ctx, scope).Select(bookingViewColumns).
		Where("bookings.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &views[0], nil
}

func (r *bookingRepository) List(ctx context.Context, scope Scope, page Page) ([]model.BookingView, int64, error) {
	var (
		views []model.BookingView
		total int64
	)

	base := r.scoped(ctx, scope).Session(&gorm.Session{})
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := page.apply(base).Select(bookingViewColumns).
		Order("bookings.created_at DESC").Scan(&views).Error; err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// WithTransaction executes a function within a database transaction.
func (r *bookingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo BookingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &bookingRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
