package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"localbiz/internal/auth"
	"localbiz/internal/cache"
	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
	"localbiz/internal/repository"
)

const providerCacheTTL = 5 * time.Minute

// ProviderInput carries the fields of a new provider. UserID is only honoured for admins;
// providers always own what they create.
type ProviderInput struct {
	UserID     *uuid.UUID
	CategoryID *uuid.UUID
	Name       string
	Bio        string
	Address    string
	Phone      string
	Email      string
	HourlyRate *decimal.Decimal
	Status     model.ProviderStatus
}

// ProviderUpdate lists the provider fields to change. Nil fields are left alone.
type ProviderUpdate struct {
	CategoryID *uuid.UUID
	Name       *string
	Bio        *string
	Address    *string
	Phone      *string
	Email      *string
	HourlyRate *decimal.Decimal
	Status     *model.ProviderStatus
}

// ServiceInput carries the fields of a new service.
type ServiceInput struct {
	ProviderID      uuid.UUID
	CategoryID      *uuid.UUID
	Name            string
	Description     string
	Price           decimal.Decimal
	DurationMinutes int
}

// ServiceUpdate lists the service fields to change.
type ServiceUpdate struct {
	CategoryID      *uuid.UUID
	Name            *string
	Description     *string
	Price           *decimal.Decimal
	DurationMinutes *int
	Active          *bool
}

// ProductInput carries the fields of a new product, including its initial stock.
type ProductInput struct {
	ProviderID  uuid.UUID
	CategoryID  *uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// ProductUpdate lists the product fields to change. Stock is not among them.
type ProductUpdate struct {
	CategoryID  *uuid.UUID
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Active      *bool
}

// VariantInput carries the fields of a new product variant. A nil price inherits the
// product's price.
type VariantInput struct {
	Name  string
	Price *decimal.Decimal
	Stock int
}

// VariantUpdate lists the variant fields to change.
type VariantUpdate struct {
	Name   *string
	Price  *decimal.Decimal
	Stock  *int
	Active *bool
}

// CatalogService handles categories, providers, services and products.
type CatalogService interface {
	CreateCategory(ctx context.Context, name string, kind model.CategoryKind) (*model.Category, error)
	ListCategories(ctx context.Context, kind model.CategoryKind) ([]model.Category, error)

	CreateProvider(ctx context.Context, actor *auth.Identity, input ProviderInput) (*model.Provider, error)
	GetProvider(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	ListProviders(ctx context.Context, filter repository.ProviderFilter, page repository.Page) ([]model.Provider, int64, error)
	UpdateProvider(ctx context.Context, actor *auth.Identity, id uuid.UUID, input ProviderUpdate) (*model.Provider, error)
	DeleteProvider(ctx context.Context, actor *auth.Identity, id uuid.UUID) error

	CreateService(ctx context.Context, actor *auth.Identity, input ServiceInput) (*model.Service, error)
	GetService(ctx context.Context, id uuid.UUID) (*repository.ServiceView, error)
	ListServices(ctx context.Context, filter repository.ServiceFilter, page repository.Page) ([]repository.ServiceView, int64, error)
	UpdateService(ctx context.Context, actor *auth.Identity, id uuid.UUID, input ServiceUpdate) (*model.Service, error)
	DeleteService(ctx context.Context, actor *auth.Identity, id uuid.UUID) error

	CreateProduct(ctx context.Context, actor *auth.Identity, input ProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter, page repository.Page) ([]model.Product, int64, error)
	UpdateProduct(ctx context.Context, actor *auth.Identity, id uuid.UUID, input ProductUpdate) (*model.Product, error)
	DeleteProduct(ctx context.Context, actor *auth.Identity, id uuid.UUID) error

	CreateVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*model.ProductVariant, error)
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input VariantUpdate) (*model.ProductVariant, error)
	DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error
}

type catalogService struct {
	categoryRepo repository.CategoryRepository
	providerRepo repository.ProviderRepository
	serviceRepo  repository.ServiceRepository
	productRepo  repository.ProductRepository
	cache        *cache.Client
	logger       *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	providerRepo repository.ProviderRepository,
	serviceRepo repository.ServiceRepository,
	productRepo repository.ProductRepository,
	cache *cache.Client,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		categoryRepo: categoryRepo,
		providerRepo: providerRepo,
		serviceRepo:  serviceRepo,
		productRepo:  productRepo,
		cache:        cache,
		logger:       logger,
	}
}

// Categories

func (s *catalogService) CreateCategory(ctx context.Context, name string, kind model.CategoryKind) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}
	if kind == "" {
		kind = model.CategoryKindService
	}
	if kind != model.CategoryKindService && kind != model.CategoryKindShop {
		return nil, fmt.Errorf("%w: unknown category kind %q", apperrors.ErrValidation, kind)
	}

	category := &model.Category{Name: name, Slug: slugify(name), Kind: kind}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context, kind model.CategoryKind) ([]model.Category, error) {
	return s.categoryRepo.List(ctx, kind)
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// checkCategory verifies that a referenced category exists.
func (s *catalogService) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: category not found", apperrors.ErrValidation)
		}
		return fmt.Errorf("find category: %w", err)
	}
	return nil
}

// Providers

func providerCacheKey(id uuid.UUID) string {
	return "provider:" + id.String()
}

func (s *catalogService) CreateProvider(ctx context.Context, actor *auth.Identity, input ProviderInput) (*model.Provider, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}
	if input.Status != "" && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, input.Status)
	}
	if input.HourlyRate != nil && input.HourlyRate.IsNegative() {
		return nil, fmt.Errorf("%w: hourly_rate must not be negative", apperrors.ErrValidation)
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	owner := actor.UserID
	if actor.IsAdmin() && input.UserID != nil {
		owner = *input.UserID
	}

	provider := &model.Provider{
		UserID:     &owner,
		CategoryID: input.CategoryID,
		Name:       strings.TrimSpace(input.Name),
		Bio:        input.Bio,
		Address:    input.Address,
		Phone:      input.Phone,
		Email:      input.Email,
		HourlyRate: input.HourlyRate,
		Status:     input.Status,
	}
	if err := s.providerRepo.Create(ctx, provider); err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	s.logger.Info("provider created", zap.String("provider_id", provider.ID.String()), zap.String("owner_id", owner.String()))
	return provider, nil
}

// GetProvider reads through the cache.
func (s *catalogService) GetProvider(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	var cached model.Provider
	if s.cache.GetJSON(ctx, providerCacheKey(id), &cached) {
		return &cached, nil
	}

	provider, err := s.providerRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	s.cache.SetJSON(ctx, providerCacheKey(id), provider, providerCacheTTL)
	return provider, nil
}

func (s *catalogService) ListProviders(ctx context.Context, filter repository.ProviderFilter, page repository.Page) ([]model.Provider, int64, error) {
	return s.providerRepo.List(ctx, filter, page)
}

// ownedProvider loads a provider and checks that actor may manage it. A missing provider
// is reported before a permission failure.
func (s *catalogService) ownedProvider(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.Provider, error) {
	provider, err := s.providerRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: provider", apperrors.ErrNotFound)
		}
		return nil, err
	}
	if !actor.IsAdmin() && !provider.OwnedBy(actor.UserID) {
		return nil, apperrors.ErrForbidden
	}
	return provider, nil
}

func (s *catalogService) UpdateProvider(ctx context.Context, actor *auth.Identity, id uuid.UUID, input ProviderUpdate) (*model.Provider, error) {
	if _, err := s.ownedProvider(ctx, actor, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.CategoryID != nil {
		if err := s.checkCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *input.CategoryID
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: name must not be empty", apperrors.ErrValidation)
		}
		fields["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Bio != nil {
		fields["bio"] = *input.Bio
	}
	if input.Address != nil {
		fields["address"] = *input.Address
	}
	if input.Phone != nil {
		fields["phone"] = *input.Phone
	}
	if input.Email != nil {
		fields["email"] = *input.Email
	}
	if input.HourlyRate != nil {
		if input.HourlyRate.IsNegative() {
			return nil, fmt.Errorf("%w: hourly_rate must not be negative", apperrors.ErrValidation)
		}
		fields["hourly_rate"] = *input.HourlyRate
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, *input.Status)
		}
		fields["status"] = *input.Status
	}

	if len(fields) > 0 {
		if err := s.providerRepo.Update(ctx, id, fields); err != nil {
			return nil, fmt.Errorf("update provider: %w", err)
		}
		_ = s.cache.Delete(ctx, providerCacheKey(id))
	}
	return s.providerRepo.FindByID(ctx, id)
}

func (s *catalogService) DeleteProvider(ctx context.Context, actor *auth.Identity, id uuid.UUID) error {
	if _, err := s.ownedProvider(ctx, actor, id); err != nil {
		return err
	}
	if err := s.providerRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete provider: %w", err)
	}
	_ = s.cache.Delete(ctx, providerCacheKey(id))
	s.logger.Info("provider deleted", zap.String("provider_id", id.String()), zap.String("actor_id", actor.UserID.String()))
	return nil
}

// Services

func (s *catalogService) CreateService(ctx context.Context, actor *auth.Identity, input ServiceInput) (*model.Service, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}
	if input.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", apperrors.ErrValidation)
	}
	if input.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: duration_minutes must not be negative", apperrors.ErrValidation)
	}
	if _, err := s.ownedProvider(ctx, actor, input.ProviderID); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	svc := &model.Service{
		ProviderID:      input.ProviderID,
		CategoryID:      input.CategoryID,
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		Price:           input.Price,
		DurationMinutes: input.DurationMinutes,
		Active:          true,
	}
	if err := s.serviceRepo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

func (s *catalogService) GetService(ctx context.Context, id uuid.UUID) (*repository.ServiceView, error) {
	view, err := s.serviceRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return view, nil
}

func (s *catalogService) ListServices(ctx context.Context, filter repository.ServiceFilter, page repository.Page) ([]repository.ServiceView, int64, error) {
	return s.serviceRepo.List(ctx, filter, page)
}

func (s *catalogService) ownedService(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.Service, error) {
	svc, err := s.serviceRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	if _, err := s.ownedProvider(ctx, actor, svc.ProviderID); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *catalogService) UpdateService(ctx context.Context, actor *auth.Identity, id uuid.UUID, input ServiceUpdate) (*model.Service, error) {
	if _, err := s.ownedService(ctx, actor, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.CategoryID != nil {
		if err := s.checkCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *input.CategoryID
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: name must not be empty", apperrors.ErrValidation)
		}
		fields["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must not be negative", apperrors.ErrValidation)
		}
		fields["price"] = *input.Price
	}
	if input.DurationMinutes != nil {
		if *input.DurationMinutes < 0 {
			return nil, fmt.Errorf("%w: duration_minutes must not be negative", apperrors.ErrValidation)
		}
		fields["duration_minutes"] = *input.DurationMinutes
	}
	if input.Active != nil {
		fields["active"] = *input.Active
	}

	if len(fields) > 0 {
		if err := s.serviceRepo.Update(ctx, id, fields); err != nil {
			return nil, fmt.Errorf("update service: %w", err)
		}
	}
	return s.serviceRepo.FindByID(ctx, id)
}

// DeleteService removes a service, or deactivates it when bookings still reference it.
func (s *catalogService) DeleteService(ctx context.Context, actor *auth.Identity, id uuid.UUID) error {
	if _, err := s.ownedService(ctx, actor, id); err != nil {
		return err
	}

	deactivated, err := s.serviceRepo.DeleteOrDeactivate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("delete service: %w", err)
	}
	if deactivated {
		s.logger.Info("service deactivated", zap.String("service_id", id.String()))
		return nil
	}
	s.logger.Info("service deleted", zap.String("service_id", id.String()))
	return nil
}

// Products

func (s *catalogService) CreateProduct(ctx context.Context, actor *auth.Identity, input ProductInput) (*model.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}
	if input.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", apperrors.ErrValidation)
	}
	if input.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", apperrors.ErrValidation)
	}
	if _, err := s.ownedProvider(ctx, actor, input.ProviderID); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &model.Product{
		ProviderID:  input.ProviderID,
		CategoryID:  input.CategoryID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Active:      true,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter, page repository.Page) ([]model.Product, int64, error) {
	return s.productRepo.List(ctx, filter, page)
}

func (s *catalogService) ownedProduct(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProvider(ctx, actor, product.ProviderID); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct edits product details. Stock is only ever changed by placing orders.
func (s *catalogService) UpdateProduct(ctx context.Context, actor *auth.Identity, id uuid.UUID, input ProductUpdate) (*model.Product, error) {
	if _, err := s.ownedProduct(ctx, actor, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.CategoryID != nil {
		if err := s.checkCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *input.CategoryID
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: name must not be empty", apperrors.ErrValidation)
		}
		fields["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must not be negative", apperrors.ErrValidation)
		}
		fields["price"] = *input.Price
	}
	if input.Active != nil {
		fields["active"] = *input.Active
	}

	if len(fields) > 0 {
		if err := s.productRepo.Update(ctx, id, fields); err != nil {
			return nil, fmt.Errorf("update product: %w", err)
		}
	}
	return s.productRepo.FindByID(ctx, id)
}

func (s *catalogService) DeleteProduct(ctx context.Context, actor *auth.Identity, id uuid.UUID) error {
	if _, err := s.ownedProduct(ctx, actor, id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.Info("product deleted", zap.String("product_id", id.String()))
	return nil
}

// Variants

func (s *catalogService) CreateVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*model.ProductVariant, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}
	if input.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", apperrors.ErrValidation)
	}
	price := product.Price
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must not be negative", apperrors.ErrValidation)
		}
		price = *input.Price
	}

	variant := &model.ProductVariant{
		ProductID: product.ID,
		Name:      strings.TrimSpace(input.Name),
		Price:     price,
		Stock:     input.Stock,
		Active:    true,
	}
	if err := s.productRepo.CreateVariant(ctx, variant); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}
	return variant, nil
}

func (s *catalogService) findVariant(ctx context.Context, productID, variantID uuid.UUID) (*model.ProductVariant, error) {
	variant, err := s.productRepo.FindVariant(ctx, productID, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return variant, nil
}

func (s *catalogService) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input VariantUpdate) (*model.ProductVariant, error) {
	if _, err := s.findVariant(ctx, productID, variantID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: name must not be empty", apperrors.ErrValidation)
		}
		fields["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must not be negative", apperrors.ErrValidation)
		}
		fields["price"] = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, fmt.Errorf("%w: stock must not be negative", apperrors.ErrValidation)
		}
		fields["stock"] = *input.Stock
	}
	if input.Active != nil {
		fields["active"] = *input.Active
	}

	if len(fields) > 0 {
		if err := s.productRepo.UpdateVariant(ctx, variantID, fields); err != nil {
			return nil, fmt.Errorf("update variant: %w", err)
		}
	}
	return s.findVariant(ctx, productID, variantID)
}

func (s *catalogService) DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	if _, err := s.findVariant(ctx, productID, variantID); err != nil {
		return err
	}
	if err := s.productRepo.DeleteVariant(ctx, variantID); err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}
	s.logger.Info("variant deleted", zap.String("product_id", productID.String()), zap.String("variant_id", variantID.String()))
	return nil
}
