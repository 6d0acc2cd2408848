package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"localbiz/internal/repository"
	"localbiz/internal/service"
)

// ProductHandler handles shop product endpoints.
type ProductHandler struct {
	catalog service.CatalogService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(catalog service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// CreateProductRequest represents a new product with its initial stock.
type CreateProductRequest struct {
	ProviderID  uuid.UUID       `json:"provider_id" validate:"required"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" swaggertype:"string"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

// UpdateProductRequest lists the product fields to change. Stock only moves through orders.
type UpdateProductRequest struct {
	CategoryID  *uuid.UUID       `json:"category_id"`
	Name        *string          `json:"name" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" swaggertype:"string"`
	Active      *bool            `json:"active"`
}

// CreateVariantRequest represents a new product variant. Price defaults to the product's.
type CreateVariantRequest struct {
	Name  string           `json:"name" validate:"required,max=255"`
	Price *decimal.Decimal `json:"price" swaggertype:"string"`
	Stock int              `json:"stock" validate:"gte=0"`
}

// UpdateVariantRequest lists the variant fields to change.
type UpdateVariantRequest struct {
	Name   *string          `json:"name" validate:"omitempty,max=255"`
	Price  *decimal.Decimal `json:"price" swaggertype:"string"`
	Stock  *int             `json:"stock" validate:"omitempty,gte=0"`
	Active *bool            `json:"active"`
}

// ListProducts godoc
// @Summary List products, inactive ones included for admins
// @Tags products
// @Produce json
// @Param provider_id query string false "Provider ID"
// @Param category_id query string false "Category ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} Response{data=[]model.Product}
// @Failure 400 {object} errors.ErrorResponse
// @Router /products [get]
func (h *ProductHandler) ListProducts(c echo.Context) error {
	providerID, err := queryID(c, "provider_id")
	if err != nil {
		return err
	}
	categoryID, err := queryID(c, "category_id")
	if err != nil {
		return err
	}
	page := pageFrom(c)
	products, total, err := h.catalog.ListProducts(c.Request().Context(), repository.ProductFilter{
		ProviderID: providerID,
		CategoryID: categoryID,
		ActiveOnly: !seesInactive(c),
	}, page)
	if err != nil {
		return err
	}
	return paged(c, products, page, total)
}

// GetProduct godoc
// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} Response{data=model.Product}
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id} [get]
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", product)
}

// CreateProduct godoc
// @Summary Create a product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProductRequest true "Product"
// @Success 201 {object} Response{data=model.Product}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products [post]
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CreateProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.CreateProduct(c.Request().Context(), identity, service.ProductInput{
		ProviderID:  req.ProviderID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "product created", product)
}

// UpdateProduct godoc
// @Summary Update a product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param request body UpdateProductRequest true "Fields to change"
// @Success 200 {object} Response{data=model.Product}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id} [put]
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.UpdateProduct(c.Request().Context(), identity, id, service.ProductUpdate{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Active:      req.Active,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "product updated", product)
}

// DeleteProduct godoc
// @Summary Delete a product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 200 {object} Response
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	identity, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteProduct(c.Request().Context(), identity, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "product deleted", nil)
}

// CreateVariant godoc
// @Summary Add a variant to a product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param request body CreateVariantRequest true "Variant"
// @Success 201 {object} Response{data=model.ProductVariant}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id}/variants [post]
func (h *ProductHandler) CreateVariant(c echo.Context) error {
	productID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req CreateVariantRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	variant, err := h.catalog.CreateVariant(c.Request().Context(), productID, service.VariantInput{
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "variant created", variant)
}

// UpdateVariant godoc
// @Summary Update a product variant
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param variantId path string true "Variant ID"
// @Param request body UpdateVariantRequest true "Fields to change"
// @Success 200 {object} Response{data=model.ProductVariant}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id}/variants/{variantId} [put]
func (h *ProductHandler) UpdateVariant(c echo.Context) error {
	productID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	variantID, err := pathID(c, "variantId")
	if err != nil {
		return err
	}
	var req UpdateVariantRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	variant, err := h.catalog.UpdateVariant(c.Request().Context(), productID, variantID, service.VariantUpdate{
		Name:   req.Name,
		Price:  req.Price,
		Stock:  req.Stock,
		Active: req.Active,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "variant updated", variant)
}

// DeleteVariant godoc
// @Summary Delete a product variant
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param variantId path string true "Variant ID"
// @Success 200 {object} Response
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id}/variants/{variantId} [delete]
func (h *ProductHandler) DeleteVariant(c echo.Context) error {
	productID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	variantID, err := pathID(c, "variantId")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteVariant(c.Request().Context(), productID, variantID); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "variant deleted", nil)
}
