package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tour-service/internal/domain"
	apperrors "github.com/spec-kit/tour-service/pkg/util"
)

// RequireRole passes the request through only when the authenticated user's
// role is a member of the allowed set. Must run after Middleware.Handle.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return apperrors.NewUnauthorized("you are not logged in")
		}
		if _, exists := allowedSet[user.Role]; !exists {
			return apperrors.NewForbidden("you do not have permission to perform this action")
		}
		return c.Next()
	}
}
