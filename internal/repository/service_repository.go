package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"localbiz/internal/model"
)

// ServiceFilter narrows service listings.
type ServiceFilter struct {
	ProviderID *uuid.UUID
	CategoryID *uuid.UUID
	ActiveOnly bool
}

// ServiceView is a service joined with its provider and category names.
type ServiceView struct {
	model.Service
	ProviderName string `json:"provider_name"`
	CategoryName string `json:"category_name,omitempty"`
}

// ServiceRepository defines persistence operations for bookable services.
type ServiceRepository interface {
	Create(ctx context.Context, service *model.Service) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Service, error)
	Get(ctx context.Context, id uuid.UUID) (*ServiceView, error)
	List(ctx context.Context, filter ServiceFilter, page Page) ([]ServiceView, int64, error)
	// DeleteOrDeactivate removes a service no booking references and deactivates one that
	// is referenced. It reports whether the service was deactivated.
	DeleteOrDeactivate(ctx context.Context, id uuid.UUID) (bool, error)
}

type serviceRepository struct {
	db *gorm.DB
}

// NewServiceRepository creates a new service repository.
func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(ctx context.Context, service *model.Service) error {
	return r.db.WithContext(ctx).Create(service).Error
}

func (r *serviceRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Service{}).Where("id = ?", id).Updates(fields).Error
}

func (r *serviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var service model.Service
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&service).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Service{}).
		Joins("LEFT JOIN providers ON providers.id = services.provider_id").
		Joins("LEFT JOIN categories ON categories.id = services.category_id")
}

const serviceViewColumns = "services.*, providers.name AS provider_name, categories.name AS category_name"

func (r *serviceRepository) Get(ctx context.Context, id uuid.UUID) (*ServiceView, error) {
	var views []ServiceView
	if err := r.joined(ctx).Select(serviceViewColumns).Where("services.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &views[0], nil
}

func (r *serviceRepository) List(ctx context.Context, filter ServiceFilter, page Page) ([]ServiceView, int64, error) {
	var (
		views []ServiceView
		total int64
	)

	q := r.joined(ctx)
	if filter.ProviderID != nil {
		q = q.Where("services.provider_id = ?", *filter.ProviderID)
	}
	if filter.CategoryID != nil {
		q = q.Where("services.category_id = ?", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		q = q.Where("services.active = ?", true)
	}
	base := q.Session(&gorm.Session{})

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := page.apply(base).Select(serviceViewColumns).Order("services.created_at DESC").Scan(&views).Error; err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// DeleteOrDeactivate locks the service row before counting its bookings, so a booking
// being created for it either commits first and is counted or waits and finds it gone.
func (r *serviceRepository) DeleteOrDeactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	deactivated := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var service model.Service
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&service).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Unscoped().Model(&model.Booking{}).Where("service_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			deactivated = true
			return tx.Model(&model.Service{}).Where("id = ?", id).Update("active", false).Error
		}
		return tx.Where("id = ?", id).Delete(&model.Service{}).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		// Still referenced by a row the count could not see.
		return true, r.Update(ctx, id, map[string]interface{}{"active": false})
	}
	return deactivated, err
}
