package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
)

const (
	// TokenTypeAccess marks tokens accepted by the access control middleware.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks tokens only accepted by the refresh endpoint.
	TokenTypeRefresh = "refresh"
)

// Claims represents JWT claims. The subject is the user id.
type Claims struct {
	Role model.Role `json:"role"`
	Type string     `json:"typ"`
	jwt.RegisteredClaims
}

// Identity is the verified caller attached to a request.
type Identity struct {
	UserID    uuid.UUID
	Role      model.Role
	TokenID   string
	ExpiresAt time.Time
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == model.RoleAdmin
}

// JWTService handles JWT token generation and validation. The signing key is held here
// and never embedded in a token.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue signs an access token for subjectID with the given role and lifetime.
func (s *JWTService) Issue(subjectID uuid.UUID, role model.Role, ttl time.Duration) (string, *Claims, error) {
	return s.sign(subjectID, role, TokenTypeAccess, ttl)
}

// IssueRefresh signs a refresh token. Its id is what the token store tracks.
func (s *JWTService) IssueRefresh(subjectID uuid.UUID, role model.Role, ttl time.Duration) (string, *Claims, error) {
	return s.sign(subjectID, role, TokenTypeRefresh, ttl)
}

func (s *JWTService) sign(subjectID uuid.UUID, role model.Role, tokenType string, ttl time.Duration) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		Role: role,
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subjectID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, claims, nil
}

// Verify validates an access token and returns the identity it carries.
func (s *JWTService) Verify(tokenString string) (*Identity, error) {
	return s.verify(tokenString, TokenTypeAccess)
}

// VerifyRefresh validates a refresh token.
func (s *JWTService) VerifyRefresh(tokenString string) (*Identity, error) {
	return s.verify(tokenString, TokenTypeRefresh)
}

func (s *JWTService) verify(tokenString, tokenType string) (*Identity, error) {
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.Type != tokenType || !claims.Role.Valid() || claims.ExpiresAt == nil {
		return nil, apperrors.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	return &Identity{
		UserID:    userID,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
