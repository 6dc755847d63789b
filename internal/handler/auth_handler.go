package handler

import (
	"errors"

	"go-udhar-pos/internal/middleware"
	"go-udhar-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Login handles user authentication
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if req.Username == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Username and password are required"})
	}

	response, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(response)
}

// Me returns the acting user.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.Identity(c))
}

// ChangePassword
// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Old and new password are required"})
	}

	userID, err := uuid.Parse(middleware.Identity(c).ID)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid session"})
	}

	err = h.authService.ChangePassword(c.UserContext(), userID, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "Password changed successfully"})
	case errors.Is(err, service.ErrWrongPassword):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	default:
		return respondError(c, err)
	}
}
