package errors

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrValidation is returned when input is malformed or incomplete.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned when a request carries no usable identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenMissing is returned when authentication is required but no bearer token was sent.
	ErrTokenMissing = errors.New("authentication token missing")
	// ErrInvalidToken is returned when a token is malformed, tampered with, expired or revoked.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrForbidden is returned when the caller is authenticated but not permitted.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a resource does not exist or is not visible to the caller.
	ErrNotFound = errors.New("resource not found")
	// ErrProductNotFound is returned when an order line references a missing product.
	ErrProductNotFound = errors.New("product not found")
	// ErrDuplicateIdentifier is returned when a login identifier is already registered.
	ErrDuplicateIdentifier = errors.New("email already registered")
	// ErrConflict is returned when a write collides with existing state.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientStock is returned when an order line exceeds available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrEmptyOrder is returned when an order has no line items.
	ErrEmptyOrder = errors.New("order must contain at least one item")
	// ErrInvalidStatus is returned when a status value is not recognized.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTransition is returned when a status change is not allowed from the current state.
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrBookingInPast is returned when a booking is scheduled before now.
	ErrBookingInPast = errors.New("booking must be scheduled in the future")
	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited = errors.New("too many requests")
)

// ErrorResponse represents the standardized failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Success: false,
		Message: e.Message,
		Code:    e.Code,
	}
}

var mappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrBookingInPast, http.StatusBadRequest, "BOOKING_IN_PAST"},
	{ErrTokenMissing, http.StatusUnauthorized, "TOKEN_MISSING"},
	{ErrInvalidToken, http.StatusUnauthorized, "TOKEN_INVALID"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrDuplicateIdentifier, http.StatusConflict, "DUPLICATE_IDENTIFIER"},
	{ErrConflict, http.StatusConflict, "CONFLICT"},
	{ErrInsufficientStock, http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
	{ErrEmptyOrder, http.StatusUnprocessableEntity, "EMPTY_ORDER"},
	{ErrInvalidStatus, http.StatusUnprocessableEntity, "INVALID_STATUS"},
	{ErrInvalidTransition, http.StatusUnprocessableEntity, "INVALID_TRANSITION"},
	{ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
}

// MapErrorToHTTP maps domain errors, possibly wrapped, to HTTP errors. The message of a
// wrapped domain error keeps its context; unknown errors become a 500 whose detail is
// only exposed when exposeInternal is set.
func MapErrorToHTTP(err error, exposeInternal bool) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, err.Error(), m.code)
		}
	}
	message := "internal server error"
	if exposeInternal && err != nil {
		message = err.Error()
	}
	return NewHTTPError(http.StatusInternalServerError, message, "INTERNAL_ERROR")
}
