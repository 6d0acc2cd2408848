package service

import (
	"context"
	"sync"
	"testing"

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

type orderFixture struct {
	db       *gorm.DB
	service  OrderService
	customer *auth.Identity
	other    *auth.Identity
	admin    *auth.Identity
	shop     *model.Provider
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	gdb := dbtest.Open(t)

	customer := dbtest.User(t, gdb, "customer@example.com", model.RoleUser)
	other := dbtest.User(t, gdb, "other@example.com", model.RoleUser)
	admin := dbtest.User(t, gdb, "admin@example.com", model.RoleAdmin)
	owner := dbtest.User(t, gdb, "shop@example.com", model.RoleProvider)

	return &orderFixture{
		db:       gdb,
		service:  NewOrderService(repository.NewOrderRepository(gdb), zap.NewNop()),
		customer: &auth.Identity{UserID: customer.ID, Role: model.RoleUser},
		other:    &auth.Identity{UserID: other.ID, Role: model.RoleUser},
		admin:    &auth.Identity{UserID: admin.ID, Role: model.RoleAdmin},
		shop:     dbtest.Provider(t, gdb, owner, "Corner Pharmacy"),
	}
}

func (f *orderFixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&n).Error)
	return n
}

func (f *orderFixture) itemCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.OrderItem{}).Count(&n).Error)
	return n
}

func TestOrderService_CreateOrder_Success(t *testing.T) {
	f := newOrderFixture(t)
	product := dbtest.Product(t, f.db, f.shop, "Paracetamol", 100, 5)

	order, err := f.service.CreateOrder(context.Background(), f.customer, OrderInput{
		Items:           []OrderLine{{ProductID: product.ID, Quantity: 2}},
		DeliveryAddress: "12 Main St",
	})

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(200)), "total was %s", order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, order.ID, order.Items[0].OrderID)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 3, dbtest.Stock(t, f.db, product.ID))
	assert.Equal(t, int64(1), f.itemCount(t))
}

func TestOrderService_CreateOrder_TotalSumsLines(t *testing.T) {
	f := newOrderFixture(t)
	p := dbtest.Product(t, f.db, f.shop, "Bandages", 15, 10)
	q := dbtest.Product(t, f.db, f.shop, "Thermometer", 40, 2)

	order, err := f.service.CreateOrder(context.Background(), f.customer, OrderInput{
		Items: []OrderLine{
			{ProductID: p.ID, Quantity: 3},
			{ProductID: q.ID, Quantity: 1},
			{ProductID: p.ID, Quantity: 2},
		},
		DeliveryAddress: "12 Main St",
	})

	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(115)), "total was %s", order.TotalAmount)
	assert.Len(t, order.Items, 3)
	assert.Equal(t, 5, dbtest.Stock(t, f.db, p.ID))
	assert.Equal(t, 1, dbtest.Stock(t, f.db, q.ID))
}

func TestOrderService_CreateOrder_RollsBackEverything(t *testing.T) {
	f := newOrderFixture(t)
	p := dbtest.Product(t, f.db, f.shop, "Soap", 10, 4)
	q := dbtest.Product(t, f.db, f.shop, "Shampoo", 20, 0)

	_, err := f.service.CreateOrder(context.Background(), f.customer, OrderInput{
		Items: []OrderLine{
			{ProductID: p.ID, Quantity: 1},
			{ProductID: q.ID, Quantity: 1},
		},
		DeliveryAddress: "12 Main St",
	})

	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Equal(t, 4, dbtest.Stock(t, f.db, p.ID))
	assert.Equal(t, 0, dbtest.Stock(t, f.db, q.ID))
	assert.Zero(t, f.orderCount(t))
	assert.Zero(t, f.itemCount(t))
}

func TestOrderService_CreateOrder_Rejections(t *testing.T) {
	f := newOrderFixture(t)
	p := dbtest.Product(t, f.db, f.shop, "Soap", 10, 4)
	inactive := dbtest.Product(t, f.db, f.shop, "Retired", 10, 4)
	require.NoError(t, f.db.Model(inactive).Update("active", false).Error)

	tests := []struct {
		name    string
		input   OrderInput
		wantErr error
	}{
		{
			name:    "empty order",
			input:   OrderInput{DeliveryAddress: "12 Main St"},
			wantErr: apperrors.ErrEmptyOrder,
		},
		{
			name:    "unknown product",
			input:   OrderInput{Items: []OrderLine{{ProductID: p.ID, Quantity: 1}, {ProductID: uuid.New(), Quantity: 1}}, DeliveryAddress: "12 Main St"},
			wantErr: apperrors.ErrProductNotFound,
		},
		{
			name:    "inactive product",
			input:   OrderInput{Items: []OrderLine{{ProductID: inactive.ID, Quantity: 1}}, DeliveryAddress: "12 Main St"},
			wantErr: apperrors.ErrProductNotFound,
		},
		{
			name:    "duplicate lines exceed stock together",
			input:   OrderInput{Items: []OrderLine{{ProductID: p.ID, Quantity: 3}, {ProductID: p.ID, Quantity: 2}}, DeliveryAddress: "12 Main St"},
			wantErr: apperrors.ErrInsufficientStock,
		},
		{
			name:    "zero quantity",
			input:   OrderInput{Items: []OrderLine{{ProductID: p.ID, Quantity: 0}}, DeliveryAddress: "12 Main St"},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "missing address",
			input:   OrderInput{Items: []OrderLine{{ProductID: p.ID, Quantity: 1}}},
			wantErr: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := f.service.CreateOrder(context.Background(), f.customer, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, order)
		})
	}

	assert.Equal(t, 4, dbtest.Stock(t, f.db, p.ID))
	assert.Zero(t, f.orderCount(t))
}

func TestOrderService_CreateOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	f := newOrderFixture(t)
	product := dbtest.Product(t, f.db, f.shop, "Insulin", 50, 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.CreateOrder(context.Background(), f.customer, OrderInput{
				Items:           []OrderLine{{ProductID: product.ID, Quantity: 3}},
				DeliveryAddress: "12 Main St",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, apperrors.ErrInsufficientStock) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 2, dbtest.Stock(t, f.db, product.ID))
	assert.Equal(t, int64(1), f.orderCount(t))
}

func TestOrderService_CreateOrder_IdempotencyKey(t *testing.T) {
	f := newOrderFixture(t)
	product := dbtest.Product(t, f.db, f.shop, "Vitamins", 30, 10)
	input := OrderInput{
		Items:           []OrderLine{{ProductID: product.ID, Quantity: 2}},
		DeliveryAddress: "12 Main St",
		IdempotencyKey:  "checkout-42",
	}

	first, err := f.service.CreateOrder(context.Background(), f.customer, input)
	require.NoError(t, err)
	second, err := f.service.CreateOrder(context.Background(), f.customer, input)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 8, dbtest.Stock(t, f.db, product.ID))
	assert.Equal(t, int64(1), f.orderCount(t))

	// The same key from another user is a different order.
	_, err = f.service.CreateOrder(context.Background(), f.other, input)
	require.NoError(t, err)
	assert.Equal(t, 6, dbtest.Stock(t, f.db, product.ID))
}

func TestOrderService_Visibility(t *testing.T) {
	f := newOrderFixture(t)
	product := dbtest.Product(t, f.db, f.shop, "Soap", 10, 10)
	ctx := context.Background()

	mine, err := f.service.CreateOrder(ctx, f.customer, OrderInput{Items: []OrderLine{{ProductID: product.ID, Quantity: 1}}, DeliveryAddress: "A"})
	require.NoError(t, err)
	_, err = f.service.CreateOrder(ctx, f.other, OrderInput{Items: []OrderLine{{ProductID: product.ID, Quantity: 1}}, DeliveryAddress: "B"})
	require.NoError(t, err)

	views, total, err := f.service.ListOrders(ctx, f.customer, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, views, 1)
	assert.Equal(t, mine.ID, views[0].ID)
	assert.Equal(t, "customer@example.com", views[0].UserEmail)
	assert.Len(t, views[0].Items, 1)

	_, total, err = f.service.ListOrders(ctx, f.admin, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, err = f.service.GetOrder(ctx, f.other, mine.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	view, err := f.service.GetOrder(ctx, f.admin, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, view.ID)
}

func TestOrderService_StatusTransitions(t *testing.T) {
	f := newOrderFixture(t)
	product := dbtest.Product(t, f.db, f.shop, "Soap", 10, 10)
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, f.customer, OrderInput{Items: []OrderLine{{ProductID: product.ID, Quantity: 4}}, DeliveryAddress: "A"})
	require.NoError(t, err)

	_, err = f.service.UpdateOrderStatus(ctx, f.other, order.ID, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.service.UpdateOrderStatus(ctx, f.customer, order.ID, model.OrderStatus("teleported"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)

	updated, err := f.service.UpdateOrderStatus(ctx, f.admin, order.ID, model.OrderStatusShipped)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Nil(t, updated)

	updated, err = f.service.UpdateOrderStatus(ctx, f.admin, order.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, updated.Status)

	cancelled, err := f.service.CancelOrder(ctx, f.customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 6, dbtest.Stock(t, f.db, product.ID))

	_, err = f.service.UpdateOrderStatus(ctx, f.admin, order.ID, model.OrderStatusPending)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.service.UpdateOrderStatus(ctx, f.customer, uuid.New(), model.OrderStatusCancelled)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
