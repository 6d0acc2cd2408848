package middleware

import (
	"errors"
	"fmt"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"localbiz/internal/auth"
	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
)

const identityKey = "identity"

// Authenticate verifies the bearer token of each request and stores the caller's
// identity in the context. Revoked access tokens are rejected. With optional set,
// requests without an Authorization header continue anonymously.
func Authenticate(jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, optional bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:             identityKey,
		TokenLookup:            "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContinueOnIgnoredError: optional,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			identity, err := jwtService.Verify(token)
			if err != nil {
				return nil, err
			}
			revoked, err := tokenStore.IsAccessTokenRevoked(c.Request().Context(), identity.TokenID)
			if err != nil {
				return nil, fmt.Errorf("check token revocation: %w", err)
			}
			if revoked {
				return nil, fmt.Errorf("%w: token revoked", apperrors.ErrInvalidToken)
			}
			return identity, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var extractErr *echojwt.TokenExtractionError
			if errors.As(err, &extractErr) {
				if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
					return fmt.Errorf("%w: malformed authorization header", apperrors.ErrInvalidToken)
				}
				if optional {
					return nil
				}
				return apperrors.ErrTokenMissing
			}
			if errors.Is(err, apperrors.ErrInvalidToken) {
				return err
			}
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
		},
	})
}

// IdentityFrom returns the authenticated caller, if any.
func IdentityFrom(c echo.Context) (*auth.Identity, bool) {
	identity, ok := c.Get(identityKey).(*auth.Identity)
	return identity, ok && identity != nil
}

// RequireRole admits only callers holding one of roles. It must run after Authenticate.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return apperrors.ErrUnauthorized
			}
			if _, ok := allowed[identity.Role]; !ok {
				return apperrors.ErrForbidden
			}
			return next(c)
		}
	}
}
