package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"localbiz/internal/model"
	"localbiz/internal/service"
)

// HeaderIdempotencyKey lets a client retry order creation without placing the order twice.
const HeaderIdempotencyKey = "Idempotency-Key"

// OrderHandler handles order endpoints.
type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// OrderItemRequest is one line of an order.
type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest represents an order placement.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"dive"`
	DeliveryAddress string             `json:"delivery_address" validate:"required"`
}

// OrderStatusRequest carries the target status of an order.
type OrderStatusRequest struct {
	Status model.OrderStatus `json:"status" validate:"required"`
}

// ListOrders godoc
// @Summary List my orders
// @Description Admins see every order.
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} Response{data=[]model.OrderView}
// @Failure 401 {object} errors.ErrorResponse
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	page := pageFrom(c)
	orders, total, err := h.orderService.ListOrders(c.Request().Context(), identity, page)
	if err != nil {
		return err
	}
	return paged(c, orders, page, total)
}

// CreateOrder godoc
// @Summary Place an order
// @Description Stock for every line is checked and decremented atomically.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Retry key"
// @Param request body CreateOrderRequest true "Order"
// @Success 201 {object} Response{data=model.Order}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	lines := make([]service.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, service.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orderService.CreateOrder(c.Request().Context(), identity, service.OrderInput{
		Items:           lines,
		DeliveryAddress: req.DeliveryAddress,
		IdempotencyKey:  strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey)),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "order created", order)
}

// GetOrder godoc
// @Summary Get order by id
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} Response{data=model.OrderView}
// @Failure 404 {object} errors.ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.orderService.GetOrder(c.Request().Context(), identity, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", view)
}

// UpdateOrderStatus godoc
// @Summary Move an order to a new status
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param request body OrderStatusRequest true "Target status"
// @Success 200 {object} Response{data=model.Order}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /orders/{id}/status [put]
func (h *OrderHandler) UpdateOrderStatus(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req OrderStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	order, err := h.orderService.UpdateOrderStatus(c.Request().Context(), identity, id, req.Status)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "order updated", order)
}

// CancelOrder godoc
// @Summary Cancel an order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} Response{data=model.Order}
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.orderService.CancelOrder(c.Request().Context(), identity, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "order cancelled", order)
}
