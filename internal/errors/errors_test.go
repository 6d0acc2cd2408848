package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing token", ErrTokenMissing, http.StatusUnauthorized, "TOKEN_MISSING"},
		{"invalid token", ErrInvalidToken, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"not found", ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"duplicate", ErrDuplicateIdentifier, http.StatusConflict, "DUPLICATE_IDENTIFIER"},
		{"wrapped stock", fmt.Errorf("product %s: %w", "p1", ErrInsufficientStock), http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
		{"empty order", ErrEmptyOrder, http.StatusUnprocessableEntity, "EMPTY_ORDER"},
		{"invalid status", ErrInvalidStatus, http.StatusUnprocessableEntity, "INVALID_STATUS"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"deadline", fmt.Errorf("list orders: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{"unknown", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err, false)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestMapErrorToHTTP_SuppressesInternalDetail(t *testing.T) {
	err := errors.New("dial tcp 10.0.0.3:3306: connection refused")

	assert.Equal(t, "internal server error", MapErrorToHTTP(err, false).Message)
	assert.Equal(t, err.Error(), MapErrorToHTTP(err, true).Message)
}

func TestMapErrorToHTTP_KeepsWrappedContext(t *testing.T) {
	err := fmt.Errorf("product 42: %w", ErrProductNotFound)

	httpErr := MapErrorToHTTP(err, false)
	assert.Equal(t, "product 42: product not found", httpErr.Message)
	assert.False(t, httpErr.ToErrorResponse().Success)
}
