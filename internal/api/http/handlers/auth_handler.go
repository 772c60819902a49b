package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tour-service/internal/api/dto"
	"github.com/spec-kit/tour-service/internal/auth"
	"github.com/spec-kit/tour-service/internal/domain"
	"github.com/spec-kit/tour-service/internal/service"
	apperrors "github.com/spec-kit/tour-service/pkg/util"
)

const sessionCookieName = "jwt"

// AuthHandler exposes the credential lifecycle endpoints.
type AuthHandler struct {
	auth         *service.AuthService
	cookieSecure bool
}

// NewAuthHandler constructs handler. secureCookies should be true only for
// production-grade deployments.
func NewAuthHandler(authService *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: authService, cookieSecure: secureCookies}
}

// Signup handles POST /api/v1/users/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, exp, err := h.auth.Signup(c.UserContext(), req.Name, req.Email, req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusCreated, user, token, exp)
}

// Login handles POST /api/v1/users/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, exp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, user, token, exp)
}

// ForgotPassword handles POST /api/v1/users/forgotPassword.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.auth.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{"message": "password reset link sent to email"},
	})
}

// ResetPassword handles PATCH /api/v1/users/resetPassword/:token.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, exp, err := h.auth.ResetPassword(c.UserContext(), c.Params("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, user, token, exp)
}

// UpdatePassword handles PATCH /api/v1/users/updateMyPassword.
func (h *AuthHandler) UpdatePassword(c *fiber.Ctx) error {
	current, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewUnauthorized("you are not logged in")
	}

	var req dto.UpdatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, exp, err := h.auth.UpdatePassword(c.UserContext(), current.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, user, token, exp)
}

// sendSession writes the session artifact both as an HTTP-only cookie and in
// the JSON body, mirroring the token's absolute expiry on the cookie.
func (h *AuthHandler) sendSession(c *fiber.Ctx, status int, user *domain.User, token string, exp time.Time) error {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Expires:  exp,
		HTTPOnly: true,
		Secure:   h.cookieSecure,
	})

	return c.Status(status).JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}
