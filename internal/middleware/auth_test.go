package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localbiz/internal/auth"
	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
)

// revocationList is an in-memory TokenStoreInterface for middleware tests.
type revocationList struct {
	revoked map[string]bool
}

func (r *revocationList) StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, ttl time.Duration) error {
	return nil
}

func (r *revocationList) GetRefreshToken(ctx context.Context, tokenID string) (uuid.UUID, error) {
	return uuid.Nil, nil
}

func (r *revocationList) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return nil
}

func (r *revocationList) RevokeAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	r.revoked[tokenID] = true
	return nil
}

func (r *revocationList) IsAccessTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	return r.revoked[tokenID], nil
}

func newTestServer(t *testing.T, optional bool, roles ...model.Role) (*echo.Echo, *auth.JWTService, *revocationList) {
	t.Helper()
	jwtService := auth.NewJWTService("middleware-secret")
	store := &revocationList{revoked: map[string]bool{}}

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		httpErr := apperrors.MapErrorToHTTP(err, false)
		_ = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	chain := []echo.MiddlewareFunc{Authenticate(jwtService, store, optional)}
	if len(roles) > 0 {
		chain = append(chain, RequireRole(roles...))
	}
	e.GET("/whoami", func(c echo.Context) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, identity.UserID.String()+" "+string(identity.Role))
	}, chain...)
	return e, jwtService, store
}

func do(e *echo.Echo, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	e, jwtService, _ := newTestServer(t, false)
	userID := uuid.New()
	valid, _, err := jwtService.Issue(userID, model.RoleUser, time.Hour)
	require.NoError(t, err)
	expired, _, err := jwtService.Issue(userID, model.RoleUser, -time.Minute)
	require.NoError(t, err)
	refresh, _, err := jwtService.IssueRefresh(userID, model.RoleUser, time.Hour)
	require.NoError(t, err)
	forged, _, err := auth.NewJWTService("other-secret").Issue(userID, model.RoleAdmin, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, userID.String() + " user"},
		{"no header", "", http.StatusUnauthorized, "TOKEN_MISSING"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"foreign signature", "Bearer " + forged, http.StatusUnauthorized, "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	e, jwtService, store := newTestServer(t, false)
	token, claims, err := jwtService.Issue(uuid.New(), model.RoleUser, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(e, "Bearer "+token).Code)

	require.NoError(t, store.RevokeAccessToken(context.Background(), claims.ID, time.Hour))
	rec := do(e, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_INVALID")
}

func TestAuthenticate_Optional(t *testing.T) {
	e, jwtService, _ := newTestServer(t, true)
	userID := uuid.New()
	token, _, err := jwtService.Issue(userID, model.RoleProvider, time.Hour)
	require.NoError(t, err)

	rec := do(e, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	rec = do(e, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID.String()+" provider", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(e, "Bearer broken").Code)
}

func TestRequireRole(t *testing.T) {
	e, jwtService, _ := newTestServer(t, false, model.RoleAdmin, model.RoleProvider)

	user, _, err := jwtService.Issue(uuid.New(), model.RoleUser, time.Hour)
	require.NoError(t, err)
	provider, _, err := jwtService.Issue(uuid.New(), model.RoleProvider, time.Hour)
	require.NoError(t, err)

	rec := do(e, "Bearer "+user)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")

	assert.Equal(t, http.StatusOK, do(e, "Bearer "+provider).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "").Code)
}
