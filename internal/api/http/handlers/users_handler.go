package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tour-service/internal/api/dto"
	"github.com/spec-kit/tour-service/internal/auth"
	"github.com/spec-kit/tour-service/internal/domain"
	"github.com/spec-kit/tour-service/internal/repository"
	"github.com/spec-kit/tour-service/internal/service"
	apperrors "github.com/spec-kit/tour-service/pkg/util"
)

// UsersHandler exposes profile self-service and admin user management.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Me handles GET /api/v1/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewUnauthorized("you are not logged in")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": dto.NewUserResponse(user)}})
}

// UpdateMe handles PATCH /api/v1/users/updateMe. Name and email only;
// password traffic is redirected to its own endpoint.
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewUnauthorized("you are not logged in")
	}

	var req dto.UpdateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Password != "" || req.PasswordConfirm != "" {
		return apperrors.NewValidationError("this route is not for password updates, please use /updateMyPassword", nil)
	}

	updated, err := h.users.UpdateMe(c.UserContext(), user.ID, req.Name, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": dto.NewUserResponse(updated)}})
}

// DeleteMe handles DELETE /api/v1/users/deleteMe (soft-delete).
func (h *UsersHandler) DeleteMe(c *fiber.Ctx) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewUnauthorized("you are not logged in")
	}
	if err := h.users.DeleteMe(c.UserContext(), user.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// List handles GET /api/v1/users (admin).
func (h *UsersHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 50)

	users, err := h.users.ListUsers(c.UserContext(), page, pageSize)
	if err != nil {
		return err
	}

	resp := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"users": resp}})
}

// Get handles GET /api/v1/users/:id (admin).
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": dto.NewUserResponse(user)}})
}

// Create handles POST /api/v1/users (admin). Account creation goes through
// signup so the credential flow cannot be bypassed.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	return apperrors.NewDomainError("NOT_IMPLEMENTED",
		"this route is not defined, please use /signup instead",
		http.StatusInternalServerError, nil)
}

// Update handles PATCH /api/v1/users/:id (admin). Never touches passwords.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.AdminUpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	update := repository.AdminUserUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Active: req.Active,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		update.Role = &role
	}

	user, err := h.users.UpdateUser(c.UserContext(), c.Params("id"), update)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": dto.NewUserResponse(user)}})
}

// Delete handles DELETE /api/v1/users/:id (admin, soft-delete).
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
