package service

import (
	"context"
	"errors"

	"github.com/spec-kit/tour-service/internal/domain"
	"github.com/spec-kit/tour-service/internal/repository"
	apperrors "github.com/spec-kit/tour-service/pkg/util"
)

// UserService covers profile self-service and administrative user management.
// Password mutation is out of its reach; that goes through AuthService only.
type UserService struct {
	users repository.UserStore
}

// NewUserService builds the service.
func NewUserService(users repository.UserStore) *UserService {
	return &UserService{users: users}
}

// UpdateMe changes the caller's name and/or email.
func (s *UserService) UpdateMe(ctx context.Context, userID string, name, email *string) (*domain.User, error) {
	if name == nil && email == nil {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}
	if email != nil {
		normalized := normalizeEmail(*email)
		if normalized == "" {
			return nil, apperrors.NewValidationError("email must not be empty", nil)
		}
		email = &normalized
	}

	user, err := s.users.UpdateProfile(ctx, userID, name, email)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateEmail()
		}
		return nil, err
	}
	return user, nil
}

// DeleteMe soft-deletes the caller's account. The record stays in the store
// but disappears from every lookup.
func (s *UserService) DeleteMe(ctx context.Context, userID string) error {
	return s.users.Deactivate(ctx, userID)
}

// GetUser returns a single account by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns a page of active accounts.
func (s *UserService) ListUsers(ctx context.Context, page, pageSize int) ([]domain.User, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	return s.users.List(ctx, pageSize, (page-1)*pageSize)
}

// UpdateUser applies an administrative partial update. Role values outside
// the closed set are rejected.
func (s *UserService) UpdateUser(ctx context.Context, id string, update repository.AdminUserUpdate) (*domain.User, error) {
	if update.Role != nil && !update.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *update.Role})
	}
	if update.Email != nil {
		normalized := normalizeEmail(*update.Email)
		update.Email = &normalized
	}

	user, err := s.users.UpdateFields(ctx, id, update)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperrors.NewNotFound("user")
		}
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateEmail()
		}
		return nil, err
	}
	return user, nil
}

// DeleteUser soft-deletes an account by id.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Deactivate(ctx, id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.NewNotFound("user")
		}
		return err
	}
	return nil
}
