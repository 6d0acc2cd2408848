package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"localbiz/internal/auth"
	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
	"localbiz/internal/repository"
)

// ProfileUpdate lists the profile fields a user may change about themselves.
type ProfileUpdate struct {
	FullName *string
	Phone    *string
	Address  *string
}

// UserService handles profile and user administration operations.
type UserService interface {
	GetProfile(ctx context.Context, actor *auth.Identity) (*model.User, error)
	UpdateProfile(ctx context.Context, actor *auth.Identity, input ProfileUpdate) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context, page repository.Page) ([]model.User, int64, error)
	DeleteUser(ctx context.Context, actor *auth.Identity, id uuid.UUID) error
}

type userService struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(userRepo repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *userService) GetProfile(ctx context.Context, actor *auth.Identity) (*model.User, error) {
	return s.GetUser(ctx, actor.UserID)
}

func (s *userService) UpdateProfile(ctx context.Context, actor *auth.Identity, input ProfileUpdate) (*model.User, error) {
	if _, err := s.GetUser(ctx, actor.UserID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: full_name must not be empty", apperrors.ErrValidation)
		}
		fields["full_name"] = name
	}
	if input.Phone != nil {
		fields["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		fields["address"] = strings.TrimSpace(*input.Address)
	}
	if len(fields) > 0 {
		if err := s.userRepo.Update(ctx, actor.UserID, fields); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}
	return s.GetUser(ctx, actor.UserID)
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, page repository.Page) ([]model.User, int64, error) {
	return s.userRepo.List(ctx, page)
}

// DeleteUser removes a user account. Admins cannot delete themselves.
func (s *userService) DeleteUser(ctx context.Context, actor *auth.Identity, id uuid.UUID) error {
	if id == actor.UserID {
		return fmt.Errorf("%w: cannot delete your own account", apperrors.ErrConflict)
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id.String()), zap.String("actor_id", actor.UserID.String()))
	return nil
}
