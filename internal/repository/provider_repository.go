package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"localbiz/internal/model"
)

// ProviderFilter narrows provider listings.
type ProviderFilter struct {
	CategoryID *uuid.UUID
	UserID     *uuid.UUID
	Status     model.ProviderStatus
}

// ProviderRepository defines provider persistence operations.
type ProviderRepository interface {
	Create(ctx context.Context, provider *model.Provider) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	List(ctx context.Context, filter ProviderFilter, page Page) ([]model.Provider, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type providerRepository struct {
	db *gorm.DB
}

// NewProviderRepository creates a new provider repository.
func NewProviderRepository(db *gorm.DB) ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) Create(ctx context.Context, provider *model.Provider) error {
	return r.db.WithContext(ctx).Create(provider).Error
}

func (r *providerRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Provider{}).Where("id = ?", id).Updates(fields).Error
}

func (r *providerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	var provider model.Provider
	if err := r.db.WithContext(ctx).Preload("Category").Where("id = ?", id).First(&provider).Error; err != nil {
		return nil, err
	}
	return &provider, nil
}

func (r *providerRepository) List(ctx context.Context, filter ProviderFilter, page Page) ([]model.Provider, int64, error) {
	var (
		providers []model.Provider
		total     int64
	)

	q := r.db.WithContext(ctx).Model(&model.Provider{})
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	base := q.Session(&gorm.Session{})

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := page.apply(base).Preload("Category").Order("created_at DESC").Find(&providers).Error; err != nil {
		return nil, 0, err
	}
	return providers, total, nil
}

func (r *providerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Provider{}).Error
}
