package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"localbiz/internal/auth"
	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
	"localbiz/internal/repository"
)

// OrderLine is one requested product and quantity.
type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderInput carries everything needed to place an order.
type OrderInput struct {
	Items           []OrderLine
	DeliveryAddress string
	// IdempotencyKey, when set, makes a retried request return the order it already created.
	IdempotencyKey string
}

// OrderService handles order placement and the order lifecycle.
type OrderService interface {
	CreateOrder(ctx context.Context, actor *auth.Identity, input OrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.OrderView, error)
	ListOrders(ctx context.Context, actor *auth.Identity, page repository.Page) ([]model.OrderView, int64, error)
	UpdateOrderStatus(ctx context.Context, actor *auth.Identity, id uuid.UUID, status model.OrderStatus) (*model.Order, error)
	CancelOrder(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.Order, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	logger    *zap.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(orderRepo repository.OrderRepository, logger *zap.Logger) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

// CreateOrder places an order atomically. Every product row involved is locked before
// any line is checked, so two concurrent orders for the same product are serialized and
// cannot both pass the stock check. Any failure rolls back the order, its items and all
// stock changes.
func (s *orderService) CreateOrder(ctx context.Context, actor *auth.Identity, input OrderInput) (*model.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.ErrEmptyOrder
	}
	address := strings.TrimSpace(input.DeliveryAddress)
	if address == "" {
		return nil, fmt.Errorf("%w: delivery address is required", apperrors.ErrValidation)
	}
	for i, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: item %d: product_id is required", apperrors.ErrValidation, i)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d: quantity must be positive", apperrors.ErrValidation, i)
		}
	}

	var key *string
	if k := strings.TrimSpace(input.IdempotencyKey); k != "" {
		key = &k
		existing, err := s.orderRepo.FindByIdempotencyKey(ctx, actor.UserID, k)
		if err == nil {
			s.logger.Info("order replayed", zap.String("order_id", existing.ID.String()))
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check idempotency key: %w", err)
		}
	}

	var order *model.Order
	err := s.orderRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.OrderRepository) error {
		products, err := repo.LockProducts(ctx, distinctProductIDs(input.Items))
		if err != nil {
			return fmt.Errorf("lock products: %w", err)
		}

		remaining := make(map[uuid.UUID]int, len(products))
		for id, p := range products {
			remaining[id] = p.Stock
		}

		items := make([]model.OrderItem, 0, len(input.Items))
		total := decimal.Zero
		for _, line := range input.Items {
			product, ok := products[line.ProductID]
			if !ok {
				return fmt.Errorf("%w: %s", apperrors.ErrProductNotFound, line.ProductID)
			}
			if line.Quantity > remaining[line.ProductID] {
				return fmt.Errorf("%w: %s has %d, requested %d",
					apperrors.ErrInsufficientStock, product.Name, remaining[line.ProductID], line.Quantity)
			}
			remaining[line.ProductID] -= line.Quantity

			subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(subtotal)
			items = append(items, model.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
				Subtotal:  subtotal,
			})
		}

		order = &model.Order{
			UserID:          actor.UserID,
			TotalAmount:     total,
			DeliveryAddress: address,
			Status:          model.OrderStatusPending,
			IdempotencyKey:  key,
			Items:           items,
		}
		if err := repo.Create(ctx, order); err != nil {
			return err
		}

		for _, line := range input.Items {
			if err := repo.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if key != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with a retry carrying the same key.
			existing, findErr := s.orderRepo.FindByIdempotencyKey(ctx, actor.UserID, *key)
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", actor.UserID.String()),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	return order, nil
}

// distinctProductIDs returns the product ids of lines, deduplicated and sorted so row
// locks are always taken in the same order.
func distinctProductIDs(lines []OrderLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func orderScope(actor *auth.Identity) repository.Scope {
	if actor.IsAdmin() {
		return repository.Scope{}
	}
	return repository.OwnedBy(actor.UserID)
}

func (s *orderService) GetOrder(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.OrderView, error) {
	view, err := s.orderRepo.Get(ctx, orderScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return view, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor *auth.Identity, page repository.Page) ([]model.OrderView, int64, error) {
	return s.orderRepo.List(ctx, orderScope(actor), page)
}

// UpdateOrderStatus moves an order along the lifecycle. Orders the caller cannot see are
// reported as not found.
func (s *orderService) UpdateOrderStatus(ctx context.Context, actor *auth.Identity, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	var updated *model.Order
	err := s.orderRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.OrderRepository) error {
		order, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		if order.UserID != actor.UserID && !actor.IsAdmin() {
			return apperrors.ErrNotFound
		}
		if err := checkOrderTransition(order.Status, status); err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, id, status); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		order.Status = status
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status changed",
		zap.String("order_id", id.String()),
		zap.String("status", string(status)),
		zap.String("actor_id", actor.UserID.String()),
	)
	return updated, nil
}

// CancelOrder cancels an order that has not shipped yet. Stock is not restored.
func (s *orderService) CancelOrder(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.Order, error) {
	return s.UpdateOrderStatus(ctx, actor, id, model.OrderStatusCancelled)
}
