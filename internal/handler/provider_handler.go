package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"localbiz/internal/model"
	"localbiz/internal/repository"
	"localbiz/internal/service"
)

// ProviderHandler handles provider endpoints.
type ProviderHandler struct {
	catalog service.CatalogService
}

// NewProviderHandler creates a new provider handler.
func NewProviderHandler(catalog service.CatalogService) *ProviderHandler {
	return &ProviderHandler{catalog: catalog}
}

// CreateProviderRequest represents a new provider. user_id is only honoured for admins.
type CreateProviderRequest struct {
	UserID     *uuid.UUID           `json:"user_id"`
	CategoryID *uuid.UUID           `json:"category_id"`
	Name       string               `json:"name" validate:"required,max=255"`
	Bio        string               `json:"bio"`
	Address    string               `json:"address"`
	Phone      string               `json:"phone" validate:"omitempty,max=32"`
	Email      string               `json:"email" validate:"omitempty,email"`
	HourlyRate *decimal.Decimal     `json:"hourly_rate" swaggertype:"string"`
	Status     model.ProviderStatus `json:"status"`
}

// UpdateProviderRequest lists the provider fields to change.
type UpdateProviderRequest struct {
	CategoryID *uuid.UUID            `json:"category_id"`
	Name       *string               `json:"name" validate:"omitempty,max=255"`
	Bio        *string               `json:"bio"`
	Address    *string               `json:"address"`
	Phone      *string               `json:"phone" validate:"omitempty,max=32"`
	Email      *string               `json:"email" validate:"omitempty,email"`
	HourlyRate *decimal.Decimal      `json:"hourly_rate" swaggertype:"string"`
	Status     *model.ProviderStatus `json:"status"`
}

// ListProviders godoc
// @Summary List providers
// @Tags providers
// @Produce json
// @Param category_id query string false "Category ID"
// @Param status query string false "active, inactive or pending"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} Response{data=[]model.Provider}
// @Failure 400 {object} errors.ErrorResponse
// @Router /providers [get]
func (h *ProviderHandler) ListProviders(c echo.Context) error {
	categoryID, err := queryID(c, "category_id")
	if err != nil {
		return err
	}
	page := pageFrom(c)
	providers, total, err := h.catalog.ListProviders(c.Request().Context(), repository.ProviderFilter{
		CategoryID: categoryID,
		Status:     model.ProviderStatus(c.QueryParam("status")),
	}, page)
	if err != nil {
		return err
	}
	return paged(c, providers, page, total)
}

// GetProvider godoc
// @Summary Get provider by id
// @Tags providers
// @Produce json
// @Param id path string true "Provider ID"
// @Success 200 {object} Response{data=model.Provider}
// @Failure 404 {object} errors.ErrorResponse
// @Router /providers/{id} [get]
func (h *ProviderHandler) GetProvider(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	provider, err := h.catalog.GetProvider(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", provider)
}

// CreateProvider godoc
// @Summary Create a provider
// @Tags providers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProviderRequest true "Provider"
// @Success 201 {object} Response{data=model.Provider}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /providers [post]
func (h *ProviderHandler) CreateProvider(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CreateProviderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	provider, err := h.catalog.CreateProvider(c.Request().Context(), identity, service.ProviderInput{
		UserID:     req.UserID,
		CategoryID: req.CategoryID,
		Name:       req.Name,
		Bio:        req.Bio,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      req.Email,
		HourlyRate: req.HourlyRate,
		Status:     req.Status,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "provider created", provider)
}

// UpdateProvider godoc
// @Summary Update a provider
// @Tags providers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Provider ID"
// @Param request body UpdateProviderRequest true "Fields to change"
// @Success 200 {object} Response{data=model.Provider}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /providers/{id} [put]
func (h *ProviderHandler) UpdateProvider(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateProviderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	provider, err := h.catalog.UpdateProvider(c.Request().Context(), identity, id, service.ProviderUpdate{
		CategoryID: req.CategoryID,
		Name:       req.Name,
		Bio:        req.Bio,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      req.Email,
		HourlyRate: req.HourlyRate,
		Status:     req.Status,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "provider updated", provider)
}

// DeleteProvider godoc
// @Summary Delete a provider
// @Tags providers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Provider ID"
// @Success 200 {object} Response
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /providers/{id} [delete]
func (h *ProviderHandler) DeleteProvider(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteProvider(c.Request().Context(), identity, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "provider deleted", nil)
}
