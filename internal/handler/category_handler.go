package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"localbiz/internal/model"
	"localbiz/internal/service"
)

// CategoryHandler handles category endpoints.
type CategoryHandler struct {
	catalog service.CatalogService
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(catalog service.CatalogService) *CategoryHandler {
	return &CategoryHandler{catalog: catalog}
}

// CreateCategoryRequest represents a new category.
type CreateCategoryRequest struct {
	Name string             `json:"name" validate:"required,max=128"`
	Kind model.CategoryKind `json:"kind" validate:"omitempty,oneof=service shop"`
}

// ListCategories godoc
// @Summary List categories
// @Tags categories
// @Produce json
// @Param kind query string false "service or shop"
// @Success 200 {object} Response{data=[]model.Category}
// @Router /categories [get]
func (h *CategoryHandler) ListCategories(c echo.Context) error {
	categories, err := h.catalog.ListCategories(c.Request().Context(), model.CategoryKind(c.QueryParam("kind")))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", categories)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCategoryRequest true "Category"
// @Success 201 {object} Response{data=model.Category}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /categories [post]
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	var req CreateCategoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	category, err := h.catalog.CreateCategory(c.Request().Context(), req.Name, req.Kind)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "category created", category)
}
