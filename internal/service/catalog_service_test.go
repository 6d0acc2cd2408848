package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"localbiz/internal/auth"
	"localbiz/internal/dbtest"
	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
	"localbiz/internal/repository"
)

func newCatalogService(gdb *gorm.DB) CatalogService {
	return NewCatalogService(
		repository.NewCategoryRepository(gdb),
		repository.NewProviderRepository(gdb),
		repository.NewServiceRepository(gdb),
		repository.NewProductRepository(gdb),
		nil,
		zap.NewNop(),
	)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "home-cleaning", slugify("Home Cleaning"))
	assert.Equal(t, "a-c-repair", slugify("  A/C  Repair! "))
	assert.Equal(t, "grocery", slugify("Grocery"))
}

func TestCatalogService_Categories(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := newCatalogService(gdb)
	ctx := context.Background()

	plumbing, err := svc.CreateCategory(ctx, "Plumbing", "")
	require.NoError(t, err)
	assert.Equal(t, "plumbing", plumbing.Slug)
	assert.Equal(t, model.CategoryKindService, plumbing.Kind)

	_, err = svc.CreateCategory(ctx, "Grocery", model.CategoryKindShop)
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, "Plumbing", model.CategoryKindService)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.CreateCategory(ctx, "Bakery", model.CategoryKind("market"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	shops, err := svc.ListCategories(ctx, model.CategoryKindShop)
	require.NoError(t, err)
	require.Len(t, shops, 1)
	assert.Equal(t, "Grocery", shops[0].Name)
}

func TestCatalogService_CreateProvider(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := newCatalogService(gdb)
	ctx := context.Background()
	operator := dbtest.User(t, gdb, "op@example.com", model.RoleProvider)
	admin := dbtest.User(t, gdb, "admin@example.com", model.RoleAdmin)
	someoneElse := uuid.New()

	provider, err := svc.CreateProvider(ctx, &auth.Identity{UserID: operator.ID, Role: model.RoleProvider}, ProviderInput{
		Name:   "Bright Cleaners",
		UserID: &someoneElse,
	})
	require.NoError(t, err)
	require.NotNil(t, provider.UserID)
	assert.Equal(t, operator.ID, *provider.UserID, "providers always own what they create")
	assert.Equal(t, model.ProviderStatusActive, provider.Status)

	provider, err = svc.CreateProvider(ctx, &auth.Identity{UserID: admin.ID, Role: model.RoleAdmin}, ProviderInput{
		Name:   "Assigned Shop",
		UserID: &operator.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, operator.ID, *provider.UserID)

	missing := uuid.New()
	_, err = svc.CreateProvider(ctx, &auth.Identity{UserID: admin.ID, Role: model.RoleAdmin}, ProviderInput{
		Name:       "Ghost Category",
		CategoryID: &missing,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.CreateProvider(ctx, &auth.Identity{UserID: admin.ID, Role: model.RoleAdmin}, ProviderInput{
		Name:   "Odd",
		Status: model.ProviderStatus("banned"),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

func TestCatalogService_NotFoundBeforeForbidden(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := newCatalogService(gdb)
	ctx := context.Background()
	owner := dbtest.User(t, gdb, "owner@example.com", model.RoleProvider)
	intruder := &auth.Identity{UserID: uuid.New(), Role: model.RoleProvider}
	provider := dbtest.Provider(t, gdb, owner, "Owner's Shop")
	product := dbtest.Product(t, gdb, provider, "Milk", 2, 10)
	name := "Renamed"

	_, err := svc.UpdateProvider(ctx, intruder, uuid.New(), ProviderUpdate{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.UpdateProvider(ctx, intruder, provider.ID, ProviderUpdate{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	assert.ErrorIs(t, svc.DeleteProduct(ctx, intruder, uuid.New()), apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, intruder, product.ID), apperrors.ErrForbidden)

	_, err = svc.CreateProduct(ctx, intruder, ProductInput{ProviderID: provider.ID, Name: "Eggs"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCatalogService_UpdateProvider(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := newCatalogService(gdb)
	ctx := context.Background()
	owner := dbtest.User(t, gdb, "owner@example.com", model.RoleProvider)
	actor := &auth.Identity{UserID: owner.ID, Role: model.RoleProvider}
	provider := dbtest.Provider(t, gdb, owner, "Old Name")

	name := "New Name"
	rate := decimal.NewFromInt(45)
	inactive := model.ProviderStatusInactive
	updated, err := svc.UpdateProvider(ctx, actor, provider.ID, ProviderUpdate{Name: &name, HourlyRate: &rate, Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, model.ProviderStatusInactive, updated.Status)
	require.NotNil(t, updated.HourlyRate)
	assert.True(t, updated.HourlyRate.Equal(rate))

	fetched, err := svc.GetProvider(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", fetched.Name)

	require.NoError(t, svc.DeleteProvider(ctx, actor, provider.ID))
	_, err = svc.GetProvider(ctx, provider.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCatalogService_Services(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := newCatalogService(gdb)
	ctx := context.Background()
	owner := dbtest.User(t, gdb, "owner@example.com", model.RoleProvider)
	actor := &auth.Identity{UserID: owner.ID, Role: model.RoleProvider}
	provider := dbtest.Provider(t, gdb, owner, "Fix It")
	category, err := svc.CreateCategory(ctx, "Handyman", model.CategoryKindService)
	require.NoError(t, err)

	created, err := svc.CreateService(ctx, actor, ServiceInput{
		ProviderID:      provider.ID,
		CategoryID:      &category.ID,
		Name:            "Shelf mounting",
		Price:           decimal.NewFromInt(35),
		DurationMinutes: 45,
	})
	require.NoError(t, err)
	assert.True(t, created.Active)

	view, err := svc.GetService(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fix It", view.ProviderName)
	assert.Equal(t, "Handyman", view.CategoryName)

	list, total, err := svc.ListServices(ctx, repository.ServiceFilter{CategoryID: &category.ID, ActiveOnly: true}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	_, err = svc.CreateService(ctx, actor, ServiceInput{ProviderID: provider.ID, Name: "Cheap", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCatalogService_DeleteService(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := newCatalogService(gdb)
	ctx := context.Background()
	owner := dbtest.User(t, gdb, "owner@example.com", model.RoleProvider)
	customer := dbtest.User(t, gdb, "customer@example.com", model.RoleUser)
	actor := &auth.Identity{UserID: owner.ID, Role: model.RoleProvider}
	provider := dbtest.Provider(t, gdb, owner, "Fix It")
	unused := dbtest.Service(t, gdb, provider, "Unused", 10)
	booked := dbtest.Service(t, gdb, provider, "Booked", 10)
	require.NoError(t, gdb.Create(&model.Booking{
		UserID:      customer.ID,
		ProviderID:  provider.ID,
		ServiceID:   &booked.ID,
		ScheduledAt: time.Now().Add(time.Hour),
		Status:      model.BookingStatusPending,
	}).Error)

	require.NoError(t, svc.DeleteService(ctx, actor, unused.ID))
	_, err := svc.GetService(ctx, unused.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, svc.DeleteService(ctx, actor, booked.ID))
	view, err := svc.GetService(ctx, booked.ID)
	require.NoError(t, err)
	assert.False(t, view.Active)
}

func TestCatalogService_DeleteServiceRacingBooking(t *testing.T) {
	for i := 0; i < 10; i++ {
		gdb := dbtest.Open(t)
		catalog := newCatalogService(gdb)
		bookings := NewBookingService(repository.NewBookingRepository(gdb), repository.NewProviderRepository(gdb), true, zap.NewNop())
		owner := dbtest.User(t, gdb, "owner@example.com", model.RoleProvider)
		customer := dbtest.User(t, gdb, "customer@example.com", model.RoleUser)
		provider := dbtest.Provider(t, gdb, owner, "Fix It")
		target := dbtest.Service(t, gdb, provider, "Boiler check", 40)

		var (
			wg        sync.WaitGroup
			bookErr   error
			deleteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, bookErr = bookings.CreateBooking(context.Background(), &auth.Identity{UserID: customer.ID, Role: model.RoleUser}, BookingInput{
				ProviderID:  provider.ID,
				ServiceID:   &target.ID,
				ScheduledAt: time.Now().Add(time.Hour),
			})
		}()
		go func() {
			defer wg.Done()
			deleteErr = catalog.DeleteService(context.Background(), &auth.Identity{UserID: owner.ID, Role: model.RoleProvider}, target.ID)
		}()
		wg.Wait()
		require.NoError(t, deleteErr)

		var stored model.Service
		require.NoError(t, gdb.Unscoped().Where("id = ?", target.ID).First(&stored).Error)
		if bookErr == nil {
			// The booking won: the service must survive, deactivated.
			assert.False(t, stored.DeletedAt.Valid)
			assert.False(t, stored.Active)
		} else {
			assert.ErrorIs(t, bookErr, apperrors.ErrNotFound)
			assert.True(t, stored.DeletedAt.Valid)
		}
	}
}

func TestCatalogService_UpdateProductNeverTouchesStock(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := newCatalogService(gdb)
	ctx := context.Background()
	owner := dbtest.User(t, gdb, "owner@example.com", model.RoleProvider)
	actor := &auth.Identity{UserID: owner.ID, Role: model.RoleProvider}
	provider := dbtest.Provider(t, gdb, owner, "Grocer")

	product, err := svc.CreateProduct(ctx, actor, ProductInput{ProviderID: provider.ID, Name: "Bread", Price: decimal.NewFromInt(3), Stock: 12})
	require.NoError(t, err)

	price := decimal.NewFromInt(4)
	active := false
	updated, err := svc.UpdateProduct(ctx, actor, product.ID, ProductUpdate{Price: &price, Active: &active})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
	assert.False(t, updated.Active)
	assert.Equal(t, 12, updated.Stock)

	_, total, err := svc.ListProducts(ctx, repository.ProductFilter{ProviderID: &provider.ID, ActiveOnly: true}, repository.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = svc.CreateProduct(ctx, actor, ProductInput{ProviderID: provider.ID, Name: "Negative", Stock: -1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCatalogService_ProductVariants(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := newCatalogService(gdb)
	ctx := context.Background()
	owner := dbtest.User(t, gdb, "owner@example.com", model.RoleProvider)
	provider := dbtest.Provider(t, gdb, owner, "Grocer")
	product := dbtest.Product(t, gdb, provider, "Coffee", 9, 20)
	other := dbtest.Product(t, gdb, provider, "Tea", 5, 20)

	_, err := svc.CreateVariant(ctx, uuid.New(), VariantInput{Name: "250g"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.CreateVariant(ctx, product.ID, VariantInput{Name: " "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	small, err := svc.CreateVariant(ctx, product.ID, VariantInput{Name: "250g", Stock: 4})
	require.NoError(t, err)
	assert.True(t, small.Price.Equal(decimal.NewFromInt(9)))
	assert.True(t, small.Active)

	bigPrice := decimal.NewFromInt(30)
	big, err := svc.CreateVariant(ctx, product.ID, VariantInput{Name: "1kg", Price: &bigPrice})
	require.NoError(t, err)

	loaded, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Variants, 2)
	assert.Equal(t, "250g", loaded.Variants[0].Name)
	assert.Equal(t, "1kg", loaded.Variants[1].Name)

	stock := 0
	updated, err := svc.UpdateVariant(ctx, product.ID, small.ID, VariantUpdate{Stock: &stock})
	require.NoError(t, err)
	assert.Zero(t, updated.Stock)

	negative := -1
	_, err = svc.UpdateVariant(ctx, product.ID, small.ID, VariantUpdate{Stock: &negative})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// A variant is only reachable through its own product.
	_, err = svc.UpdateVariant(ctx, other.ID, small.ID, VariantUpdate{Stock: &stock})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteVariant(ctx, other.ID, big.ID), apperrors.ErrNotFound)

	require.NoError(t, svc.DeleteVariant(ctx, product.ID, big.ID))
	loaded, err = svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Variants, 1)
	assert.Equal(t, small.ID, loaded.Variants[0].ID)
	assert.Equal(t, 20, dbtest.Stock(t, gdb, product.ID))
}
