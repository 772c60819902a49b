package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tour-service/internal/domain"
	apperrors "github.com/spec-kit/tour-service/pkg/util"
)

const currentUserKey = "auth_current_user"

// UserLoader is the slice of the user store the middleware needs: resolving
// a token subject to a live account.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Middleware authenticates bearer tokens and attaches the resolved user to
// the request context.
type Middleware struct {
	tokens *TokenManager
	users  UserLoader
}

// NewMiddleware constructs the authentication middleware.
func NewMiddleware(tokens *TokenManager, users UserLoader) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes. A token is accepted
// only if its signature verifies, it has not expired, its subject still
// exists and is active, and it was issued after the last password rotation.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return apperrors.NewUnauthorized("you are not logged in")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.Parse(parts[1])
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return apperrors.NewUnauthorized("your session has expired, please log in again")
		}
		return apperrors.NewUnauthorized("invalid session token")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.NewUnauthorized("the user belonging to this token no longer exists")
		}
		return apperrors.MapError(err)
	}
	if !user.Active {
		return apperrors.NewUnauthorized("the user belonging to this token no longer exists")
	}

	if user.PasswordChangedAfter(claims.IssuedAt.Time) {
		return apperrors.NewUnauthorized("password changed recently, please log in again")
	}

	c.Locals(currentUserKey, user)
	return c.Next()
}

// CurrentUser retrieves the authenticated account set by Handle.
func CurrentUser(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(currentUserKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}
