package router

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"localbiz/internal/auth"
	"localbiz/internal/config"
	"localbiz/internal/handler"
	"localbiz/internal/middleware"
	"localbiz/internal/model"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Category *handler.CategoryHandler
	Provider *handler.ProviderHandler
	Service  *handler.ServiceHandler
	Product  *handler.ProductHandler
	Booking  *handler.BookingHandler
	Order    *handler.OrderHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *zap.Logger,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	h Handlers,
) {
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger, !cfg.IsProduction())
	e.Validator = NewValidator()

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authed := middleware.Authenticate(jwtService, tokenStore, false)
	identified := middleware.Authenticate(jwtService, tokenStore, true)
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleProvider)
	admin := middleware.RequireRole(model.RoleAdmin)
	limited := middleware.NewRateLimiter(cfg.AuthRateLimit, 0, 10*time.Minute).Middleware()

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/signup", h.Auth.Signup, limited)
	api.POST("/auth/login", h.Auth.Login, limited)
	api.POST("/auth/refresh", h.Auth.Refresh, limited)

	api.GET("/categories", h.Category.ListCategories)
	api.GET("/providers", h.Provider.ListProviders)
	api.GET("/providers/:id", h.Provider.GetProvider)
	api.GET("/services", h.Service.ListServices, identified)
	api.GET("/services/:id", h.Service.GetService)
	api.GET("/products", h.Product.ListProducts, identified)
	api.GET("/products/:id", h.Product.GetProduct)

	// Authenticated routes
	api.POST("/auth/logout", h.Auth.Logout, authed)
	api.GET("/users/me", h.User.Me, authed)
	api.PUT("/users/me", h.User.UpdateMe, authed)

	api.GET("/bookings", h.Booking.ListBookings, authed)
	api.POST("/bookings", h.Booking.CreateBooking, authed)
	api.GET("/bookings/:id", h.Booking.GetBooking, authed)
	api.PUT("/bookings/:id/status", h.Booking.UpdateBookingStatus, authed)
	api.POST("/bookings/:id/cancel", h.Booking.CancelBooking, authed)
	api.DELETE("/bookings/:id", h.Booking.DeleteBooking, authed)

	api.GET("/orders", h.Order.ListOrders, authed)
	api.POST("/orders", h.Order.CreateOrder, authed)
	api.GET("/orders/:id", h.Order.GetOrder, authed)
	api.PUT("/orders/:id/status", h.Order.UpdateOrderStatus, authed)
	api.POST("/orders/:id/cancel", h.Order.CancelOrder, authed)

	// Admin or provider
	api.POST("/providers", h.Provider.CreateProvider, authed, staff)
	api.PUT("/providers/:id", h.Provider.UpdateProvider, authed, staff)
	api.DELETE("/providers/:id", h.Provider.DeleteProvider, authed, staff)
	api.POST("/services", h.Service.CreateService, authed, staff)
	api.PUT("/services/:id", h.Service.UpdateService, authed, staff)
	api.DELETE("/services/:id", h.Service.DeleteService, authed, staff)
	api.POST("/products", h.Product.CreateProduct, authed, staff)
	api.PUT("/products/:id", h.Product.UpdateProduct, authed, staff)
	api.DELETE("/products/:id", h.Product.DeleteProduct, authed, staff)
	api.GET("/provider/bookings", h.Booking.ListProviderBookings, authed, staff)

	// Admin only
	api.POST("/categories", h.Category.CreateCategory, authed, admin)
	api.GET("/users", h.User.ListUsers, authed, admin)
	api.GET("/users/:id", h.User.GetUser, authed, admin)
	api.DELETE("/users/:id", h.User.DeleteUser, authed, admin)
	api.POST("/products/:id/variants", h.Product.CreateVariant, authed, admin)
	api.PUT("/products/:id/variants/:variantId", h.Product.UpdateVariant, authed, admin)
	api.DELETE("/products/:id/variants/:variantId", h.Product.DeleteVariant, authed, admin)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator installed on the echo instance.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
