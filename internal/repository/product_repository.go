package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"localbiz/internal/model"
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	ProviderID *uuid.UUID
	CategoryID *uuid.UUID
	ActiveOnly bool
}

// ProductRepository defines catalog operations on products. Stock is written at creation
// only; decrements belong to OrderRepository.
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter, page Page) ([]model.Product, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CreateVariant(ctx context.Context, variant *model.ProductVariant) error
	FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*model.ProductVariant, error)
	UpdateVariant(ctx context.Context, variantID uuid.UUID, fields map[string]interface{}) error
	DeleteVariant(ctx context.Context, variantID uuid.UUID) error
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	delete(fields, "stock")
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Updates(fields).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter, page Page) ([]model.Product, int64, error) {
	var (
		products []model.Product
		total    int64
	)

	q := r.db.WithContext(ctx).Model(&model.Product{})
	if filter.ProviderID != nil {
		q = q.Where("provider_id = ?", *filter.ProviderID)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	base := q.Session(&gorm.Session{})

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := page.apply(base).Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) CreateVariant(ctx context.Context, variant *model.ProductVariant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

// FindVariant loads a variant only when it belongs to the given product.
func (r *productRepository) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	if err := r.db.WithContext(ctx).Where("id = ? AND product_id = ?", variantID, productID).First(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *productRepository) UpdateVariant(ctx context.Context, variantID uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.ProductVariant{}).Where("id = ?", variantID).Updates(fields).Error
}

func (r *productRepository) DeleteVariant(ctx context.Context, variantID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", variantID).Delete(&model.ProductVariant{}).Error
}
