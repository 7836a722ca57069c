package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/hassan-nahid/school-of-music-server/models"
	"github.com/hassan-nahid/school-of-music-server/repository"
)

// UserService defines the interface for user and role management.
type UserService interface {
	ListUsers(ctx context.Context) ([]models.User, *ServiceError)
	ListInstructors(ctx context.Context) ([]models.User, *ServiceError)
	HasRole(ctx context.Context, principal models.Principal, email string, role models.Role) (bool, *ServiceError)
	CreateUser(ctx context.Context, user *models.User) (string, bool, *ServiceError)
	SetRole(ctx context.Context, id string, role models.Role) (*models.UpdateResult, *ServiceError)
	DeleteUser(ctx context.Context, id string) (*models.DeleteResult, *ServiceError)
	// ResolveRole returns the stored role for email; unknown users are students.
	ResolveRole(ctx context.Context, email string) (models.Role, error)
}

type userServiceImpl struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserService(repo repository.UserRepository, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userServiceImpl{repo: repo, logger: logger}
}

func (s *userServiceImpl) ListUsers(ctx context.Context) ([]models.User, *ServiceError) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, storeError("Failed to list users", err)
	}
	return users, nil
}

func (s *userServiceImpl) ListInstructors(ctx context.Context) ([]models.User, *ServiceError) {
	users, err := s.repo.FindByRole(ctx, models.RoleInstructor)
	if err != nil {
		s.logger.Error("Failed to list instructors", zap.Error(err))
		return nil, storeError("Failed to list instructors", err)
	}
	return users, nil
}

// HasRole answers a role check. Asking about someone else always yields false.
func (s *userServiceImpl) HasRole(ctx context.Context, principal models.Principal, email string, role models.Role) (bool, *ServiceError) {
	if !principal.Owns(email) {
		return false, nil
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		s.logger.Error("Failed to load user", zap.String("email", email), zap.Error(err))
		return false, storeError("Failed to load user", err)
	}
	return user.EffectiveRole() == role, nil
}

// CreateUser inserts a new account as a student. The bool reports an existing account with that email.
func (s *userServiceImpl) CreateUser(ctx context.Context, user *models.User) (string, bool, *ServiceError) {
	user.Email = strings.TrimSpace(user.Email)
	if user.Email == "" {
		return "", false, validationError("email is required", nil)
	}

	_, err := s.repo.FindByEmail(ctx, user.Email)
	if err == nil {
		return "", true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("Failed to check existing user", zap.String("email", user.Email), zap.Error(err))
		return "", false, storeError("Failed to create user", err)
	}

	user.Role = ""
	id, err := s.repo.Insert(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		return "", true, nil
	}
	if err != nil {
		s.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return "", false, storeError("Failed to create user", err)
	}
	s.logger.Info("User created", zap.String("email", user.Email))
	return id, false, nil
}

func (s *userServiceImpl) SetRole(ctx context.Context, id string, role models.Role) (*models.UpdateResult, *ServiceError) {
	res, err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"role": role})
	if err != nil {
		return nil, mapStoreError("Failed to update user", err)
	}
	s.logger.Info("User role changed", zap.String("user_id", id), zap.String("role", string(role)))
	return res, nil
}

func (s *userServiceImpl) DeleteUser(ctx context.Context, id string) (*models.DeleteResult, *ServiceError) {
	n, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return nil, mapStoreError("Failed to delete user", err)
	}
	return &models.DeleteResult{DeletedCount: n}, nil
}

func (s *userServiceImpl) ResolveRole(ctx context.Context, email string) (models.Role, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return models.RoleStudent, nil
	}
	if err != nil {
		return "", err
	}
	return user.EffectiveRole(), nil
}

// mapStoreError turns repository sentinels into client errors and anything else into a store failure.
func mapStoreError(message string, err error) *ServiceError {
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		return validationError("invalid id", err)
	case errors.Is(err, repository.ErrNotFound):
		return notFoundError("Not found")
	default:
		return storeError(message, err)
	}
}
