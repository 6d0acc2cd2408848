package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
)

// OrderRepository defines order persistence, the only writer of product stock, and the
// order side of the query façade.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
	LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
	Get(ctx context.Context, scope Scope, id uuid.UUID) (*model.OrderView, error)
	List(ctx context.Context, scope Scope, page Page) ([]model.OrderView, int64, error)
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo OrderRepository) error) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order row followed by one row per item.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	items := order.Items
	order.Items = nil
	defer func() { order.Items = items }()

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for i := range items {
		items[i].OrderID = order.ID
		if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&items[i]).Error; err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}
	return nil
}

// FindByIDForUpdate finds an order by ID with row-level lock for update.
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("user_id = ? AND idempotency_key = ?", userID, key).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// LockProducts loads the given products with row-level locks, taken in id order so two
// orders touching the same products cannot deadlock. Missing ids are absent from the map.
func (r *orderRepository) LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	var products []model.Product
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ? AND active = ?", ids, true).
		Order("id ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}

	locked := make(map[uuid.UUID]*model.Product, len(products))
	for i := range products {
		locked[products[i].ID] = &products[i]
	}
	return locked, nil
}

// DecrementStock removes quantity units from a product's stock only if that many are
// available. Zero affected rows means the stock was insufficient.
func (r *orderRepository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", productID, apperrors.ErrInsufficientStock)
	}
	return nil
}

const orderViewColumns = "orders.*, users.full_name AS user_name, users.email AS user_email"

func (r *orderRepository) scoped(ctx context.Context, scope Scope) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Order{}).
		Joins("LEFT JOIN users ON users.id = orders.user_id")
	if scope.OwnerID != nil {
		q = q.Where("orders.user_id = ?", *scope.OwnerID)
	}
	return q
}

func (r *orderRepository) Get(ctx context.Context, scope Scope, id uuid.UUID) (*model.OrderView, error) {
	var views []model.OrderView
	if err := r.scoped(ctx, scope).Select(orderViewColumns).
		Where("orders.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	if err := r.attachItems(ctx, views); err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (r *orderRepository) List(ctx context.Context, scope Scope, page Page) ([]model.OrderView, int64, error) {
	var (
		views []model.OrderView
		total int64
	)

	base := r.scoped(ctx, scope).Session(&gorm.Session{})
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := page.apply(base).Select(orderViewColumns).
		Order("orders.created_at DESC").Scan(&views).Error; err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, views); err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (r *orderRepository) attachItems(ctx context.Context, views []model.OrderView) error {
	if len(views) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(views))
	index := make(map[uuid.UUID]int, len(views))
	for i, v := range views {
		ids[i] = v.ID
		index[v.ID] = i
	}

	var items []model.OrderItem
	if err := r.db.WithContext(ctx).Where("order_id IN ?", ids).Find(&items).Error; err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	for _, item := range items {
		i := index[item.OrderID]
		views[i].Items = append(views[i].Items, item)
	}
	return nil
}

// WithTransaction executes a function within a database transaction.
func (r *orderRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo OrderRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &orderRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
