package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"localbiz/internal/model"
	"localbiz/internal/service"
)

// BookingHandler handles booking endpoints.
type BookingHandler struct {
	bookingService service.BookingService
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBookingRequest represents a booking request. total_amount defaults to the service price.
type CreateBookingRequest struct {
	ProviderID  uuid.UUID        `json:"provider_id" validate:"required"`
	ServiceID   *uuid.UUID       `json:"service_id"`
	ScheduledAt time.Time        `json:"scheduled_at" validate:"required"`
	Description string           `json:"description"`
	TotalAmount *decimal.Decimal `json:"total_amount" swaggertype:"string"`
}

// BookingStatusRequest carries the target status of a booking.
type BookingStatusRequest struct {
	Status model.BookingStatus `json:"status" validate:"required"`
}

// ListBookings godoc
// @Summary List my bookings
// @Description Admins see every booking.
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} Response{data=[]model.BookingView}
// @Failure 401 {object} errors.ErrorResponse
// @Router /bookings [get]
func (h *BookingHandler) ListBookings(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	page := pageFrom(c)
	bookings, total, err := h.bookingService.ListBookings(c.Request().Context(), identity, page)
	if err != nil {
		return err
	}
	return paged(c, bookings, page, total)
}

// ListProviderBookings godoc
// @Summary List bookings for the providers I operate
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} Response{data=[]model.BookingView}
// @Failure 403 {object} errors.ErrorResponse
// @Router /provider/bookings [get]
func (h *BookingHandler) ListProviderBookings(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	page := pageFrom(c)
	bookings, total, err := h.bookingService.ListProviderBookings(c.Request().Context(), identity, page)
	if err != nil {
		return err
	}
	return paged(c, bookings, page, total)
}

// CreateBooking godoc
// @Summary Book a provider
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBookingRequest true "Booking"
// @Success 201 {object} Response{data=model.Booking}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CreateBookingRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	booking, err := h.bookingService.CreateBooking(c.Request().Context(), identity, service.BookingInput{
		ProviderID:  req.ProviderID,
		ServiceID:   req.ServiceID,
		ScheduledAt: req.ScheduledAt,
		Description: req.Description,
		Amount:      req.TotalAmount,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "booking created", booking)
}

// GetBooking godoc
// @Summary Get booking by id
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} Response{data=model.BookingView}
// @Failure 404 {object} errors.ErrorResponse
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.bookingService.GetBooking(c.Request().Context(), identity, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", view)
}

// UpdateBookingStatus godoc
// @Summary Move a booking to a new status
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body BookingStatusRequest true "Target status"
// @Success 200 {object} Response{data=model.Booking}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /bookings/{id}/status [put]
func (h *BookingHandler) UpdateBookingStatus(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req BookingStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	booking, err := h.bookingService.UpdateBookingStatus(c.Request().Context(), identity, id, req.Status)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "booking updated", booking)
}

// CancelBooking godoc
// @Summary Cancel a booking
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} Response{data=model.Booking}
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	booking, err := h.bookingService.CancelBooking(c.Request().Context(), identity, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "booking cancelled", booking)
}

// DeleteBooking godoc
// @Summary Delete a booking
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} Response
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /bookings/{id} [delete]
func (h *BookingHandler) DeleteBooking(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.bookingService.DeleteBooking(c.Request().Context(), identity, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "booking deleted", nil)
}
