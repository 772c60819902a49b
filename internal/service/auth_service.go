package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tour-service/internal/auth"
	"github.com/spec-kit/tour-service/internal/config"
	"github.com/spec-kit/tour-service/internal/domain"
	"github.com/spec-kit/tour-service/internal/mail"
	"github.com/spec-kit/tour-service/internal/repository"
	apperrors "github.com/spec-kit/tour-service/pkg/util"
)

const minPasswordLength = 8

// AuthService coordinates the credential lifecycle: signup, login,
// forgot/reset password and authenticated password change.
type AuthService struct {
	users         repository.UserStore
	mailer        mail.Mailer
	hasher        *auth.PasswordHasher
	tokens        *auth.TokenManager
	resets        *auth.ResetTokenManager
	logger        *zap.Logger
	publicBaseURL string
	resetTTL      time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the auth service.
type AuthDependencies struct {
	UserStore repository.UserStore
	Mailer    mail.Mailer
	Hasher    *auth.PasswordHasher
	Logger    *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:         deps.UserStore,
		mailer:        deps.Mailer,
		hasher:        deps.Hasher,
		tokens:        auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		resets:        auth.NewResetTokenManager(cfg.Auth.PasswordResetTTLMinutes),
		logger:        deps.Logger,
		publicBaseURL: strings.TrimRight(cfg.App.PublicBaseURL, "/"),
		resetTTL:      time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Signup creates a new account and logs it in.
func (s *AuthService) Signup(ctx context.Context, name, email, password, passwordConfirm string) (*domain.User, string, time.Time, error) {
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name and email required", nil)
	}
	if err := validateNewPassword(password, passwordConfirm); err != nil {
		return nil, "", time.Time{}, err
	}

	user, err := s.users.Create(ctx, repository.NewUser{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     domain.RoleUser,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, "", time.Time{}, apperrors.NewDuplicateEmail()
		}
		return nil, "", time.Time{}, err
	}

	return s.issueSession(user)
}

// Login authenticates by email and password. A missing account and a wrong
// password produce the identical failure; there is no existence oracle here.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email and password required", nil)
	}

	user, err := s.users.GetByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
		}
		return nil, "", time.Time{}, err
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
	}

	return s.issueSession(user)
}

// ForgotPassword generates a reset secret, persists only its digest and
// mails the raw value. If delivery fails the stored digest is cleared so no
// shadow-valid token survives without a delivered secret.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.NewNotFound("user")
		}
		return err
	}

	token, err := s.resets.Generate()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, token.Digest, token.ExpiresAt); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", s.publicBaseURL, token.Raw)
	msg := mail.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %d minutes)", int(s.resetTTL.Minutes())),
		Body: fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s\n"+
			"If you didn't forget your password, please ignore this email.", resetURL),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.Error("failed to roll back reset token after delivery failure",
				zap.String("user_id", user.ID), zap.Error(clearErr))
		}
		return apperrors.NewEmailDeliveryFailed(err)
	}
	return nil
}

// ResetPassword consumes a raw reset secret and sets a new password. Unknown
// and expired secrets collapse into the same failure.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, password, passwordConfirm string) (*domain.User, string, time.Time, error) {
	if err := validateNewPassword(password, passwordConfirm); err != nil {
		return nil, "", time.Time{}, err
	}

	digest := auth.HashResetToken(rawToken)
	user, err := s.users.GetByResetToken(ctx, digest, s.resets.Now())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", time.Time{}, apperrors.NewResetTokenInvalid()
		}
		return nil, "", time.Time{}, err
	}

	updated, err := s.users.SavePassword(ctx, user.ID, password)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	return s.issueSession(updated)
}

// UpdatePassword changes the password of an authenticated user after
// verifying the current one, then mints a fresh session. Tokens issued
// before this instant are rejected by the middleware from now on.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, currentPassword, password, passwordConfirm string) (*domain.User, string, time.Time, error) {
	if currentPassword == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("current password required", nil)
	}
	if err := validateNewPassword(password, passwordConfirm); err != nil {
		return nil, "", time.Time{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !s.hasher.Compare(user.PasswordHash, currentPassword) {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("your current password is incorrect")
	}

	updated, err := s.users.SavePassword(ctx, user.ID, password)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	return s.issueSession(updated)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) issueSession(user *domain.User) (*domain.User, string, time.Time, error) {
	token, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateNewPassword(password, confirm string) error {
	if password == "" {
		return apperrors.NewValidationError("password required", nil)
	}
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if password != confirm {
		return apperrors.NewValidationError("password confirmation does not match", nil)
	}
	return nil
}
