package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"localbiz/internal/repository"
	"localbiz/internal/service"
)

// ServiceHandler handles the bookable service endpoints.
type ServiceHandler struct {
	catalog service.CatalogService
}

// NewServiceHandler creates a new service handler.
func NewServiceHandler(catalog service.CatalogService) *ServiceHandler {
	return &ServiceHandler{catalog: catalog}
}

// CreateServiceRequest represents a new bookable service.
type CreateServiceRequest struct {
	ProviderID      uuid.UUID       `json:"provider_id" validate:"required"`
	CategoryID      *uuid.UUID      `json:"category_id"`
	Name            string          `json:"name" validate:"required,max=255"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price" swaggertype:"string"`
	DurationMinutes int             `json:"duration_minutes" validate:"gte=0"`
}

// UpdateServiceRequest lists the service fields to change.
type UpdateServiceRequest struct {
	CategoryID      *uuid.UUID       `json:"category_id"`
	Name            *string          `json:"name" validate:"omitempty,max=255"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price" swaggertype:"string"`
	DurationMinutes *int             `json:"duration_minutes" validate:"omitempty,gte=0"`
	Active          *bool            `json:"active"`
}

// ListServices godoc
// @Summary List services, inactive ones included for admins
// @Tags services
// @Produce json
// @Param provider_id query string false "Provider ID"
// @Param category_id query string false "Category ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} Response{data=[]repository.ServiceView}
// @Failure 400 {object} errors.ErrorResponse
// @Router /services [get]
func (h *ServiceHandler) ListServices(c echo.Context) error {
	providerID, err := queryID(c, "provider_id")
	if err != nil {
		return err
	}
	categoryID, err := queryID(c, "category_id")
	if err != nil {
		return err
	}
	page := pageFrom(c)
	services, total, err := h.catalog.ListServices(c.Request().Context(), repository.ServiceFilter{
		ProviderID: providerID,
		CategoryID: categoryID,
		ActiveOnly: !seesInactive(c),
	}, page)
	if err != nil {
		return err
	}
	return paged(c, services, page, total)
}

// GetService godoc
// @Summary Get service by id
// @Tags services
// @Produce json
// @Param id path string true "Service ID"
// @Success 200 {object} Response{data=repository.ServiceView}
// @Failure 404 {object} errors.ErrorResponse
// @Router /services/{id} [get]
func (h *ServiceHandler) GetService(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.catalog.GetService(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", view)
}

// CreateService godoc
// @Summary Create a service
// @Tags services
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateServiceRequest true "Service"
// @Success 201 {object} Response{data=model.Service}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /services [post]
func (h *ServiceHandler) CreateService(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CreateServiceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	created, err := h.catalog.CreateService(c.Request().Context(), identity, service.ServiceInput{
		ProviderID:      req.ProviderID,
		CategoryID:      req.CategoryID,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "service created", created)
}

// UpdateService godoc
// @Summary Update a service
// @Tags services
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Service ID"
// @Param request body UpdateServiceRequest true "Fields to change"
// @Success 200 {object} Response{data=model.Service}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /services/{id} [put]
func (h *ServiceHandler) UpdateService(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateServiceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	updated, err := h.catalog.UpdateService(c.Request().Context(), identity, id, service.ServiceUpdate{
		CategoryID:      req.CategoryID,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		Active:          req.Active,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "service updated", updated)
}

// DeleteService godoc
// @Summary Delete a service
// @Description A service that has bookings is deactivated instead of removed.
// @Tags services
// @Produce json
// @Security BearerAuth
// @Param id path string true "Service ID"
// @Success 200 {object} Response
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /services/{id} [delete]
func (h *ServiceHandler) DeleteService(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteService(c.Request().Context(), identity, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "service deleted", nil)
}
