package dto

import (
	"time"

	"github.com/spec-kit/tour-service/internal/domain"
)

// UserResponse is the outward shape of an account. The password hash and
// reset-token fields are deliberately absent.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewUserResponse maps a domain user to its outward shape.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// UpdateMeRequest payload for profile self-service. The password fields
// exist only so their presence can be rejected with a redirect to
// /updateMyPassword.
type UpdateMeRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"passwordConfirm"`
}

// AdminUpdateUserRequest payload for administrative user updates.
type AdminUpdateUserRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}
