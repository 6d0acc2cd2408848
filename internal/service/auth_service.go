package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"localbiz/internal/auth"
	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
	"localbiz/internal/repository"
)

const bcryptCost = 10

// dummyHash is compared against when the email is unknown so both login failures cost
// one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)

// SignupInput carries the fields of a self-service registration.
type SignupInput struct {
	FullName string
	Email    string
	Password string
	Phone    string
	Address  string
	// Role may be user or provider; admins are only created from the command line.
	Role model.Role
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthService handles authentication operations.
type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, expiresAt time.Time, err error)
	Logout(ctx context.Context, actor *auth.Identity, refreshToken string) error
	CreateAdmin(ctx context.Context, fullName, email, password string) (*model.User, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	accessTTL, refreshTTL time.Duration,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a user with a hashed password and logs them in.
func (s *authService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	role := input.Role
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleProvider {
		return nil, fmt.Errorf("%w: role must be user or provider", apperrors.ErrValidation)
	}

	user := &model.User{
		FullName: input.FullName,
		Email:    input.Email,
		Phone:    strings.TrimSpace(input.Phone),
		Address:  strings.TrimSpace(input.Address),
		Role:     role,
	}
	if err := s.createUser(ctx, user, input.Password); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))
	return s.issue(ctx, user)
}

func (s *authService) createUser(ctx context.Context, user *model.User, password string) error {
	user.Email = normalizeEmail(user.Email)
	user.FullName = strings.TrimSpace(user.FullName)
	if user.Email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", apperrors.ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)

	return s.userRepo.Create(ctx, user)
}

// Login authenticates a user by email and password. Unknown emails and wrong passwords
// fail identically.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

func (s *authService) issue(ctx context.Context, user *model.User) (*AuthResult, error) {
	accessToken, accessClaims, err := s.jwtService.Issue(user.ID, user.Role, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, refreshClaims, err := s.jwtService.IssueRefresh(user.ID, user.Role, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	// Store refresh token in Redis
	if err := s.tokenStore.StoreRefreshToken(ctx, refreshClaims.ID, user.ID, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessClaims.ExpiresAt.Time,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token carrying the user's
// current role.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	identity, err := s.jwtService.VerifyRefresh(refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}

	storedUserID, err := s.tokenStore.GetRefreshToken(ctx, identity.TokenID)
	if err != nil || storedUserID != identity.UserID {
		return "", time.Time{}, fmt.Errorf("%w: refresh token revoked", apperrors.ErrInvalidToken)
	}

	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", time.Time{}, fmt.Errorf("%w: user no longer exists", apperrors.ErrInvalidToken)
		}
		return "", time.Time{}, fmt.Errorf("find user: %w", err)
	}

	accessToken, claims, err := s.jwtService.Issue(user.ID, user.Role, s.accessTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, claims.ExpiresAt.Time, nil
}

// Logout revokes the caller's access token and, when given, its refresh token.
func (s *authService) Logout(ctx context.Context, actor *auth.Identity, refreshToken string) error {
	if err := s.tokenStore.RevokeAccessToken(ctx, actor.TokenID, time.Until(actor.ExpiresAt)); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}

	if refreshToken == "" {
		return nil
	}
	identity, err := s.jwtService.VerifyRefresh(refreshToken)
	if err != nil {
		return err
	}
	if identity.UserID != actor.UserID {
		return apperrors.ErrForbidden
	}
	return s.tokenStore.DeleteRefreshToken(ctx, identity.TokenID)
}

// CreateAdmin creates an administrator account.
func (s *authService) CreateAdmin(ctx context.Context, fullName, email, password string) (*model.User, error) {
	user := &model.User{FullName: fullName, Email: email, Role: model.RoleAdmin}
	if err := s.createUser(ctx, user, password); err != nil {
		return nil, err
	}
	s.logger.Info("admin created", zap.String("user_id", user.ID.String()))
	return user, nil
}
