package middleware

import (
	"strings"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by RequireAuth.
const (
	LocalUserID   = "user_id"
	LocalUserName = "user_name"
	LocalUserRole = "user_role"
)

// RequireAuth validates the bearer token and puts the acting user into the
// request locals.
func RequireAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		who, err := auth.Identify(c.UserContext(), parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}

		c.Locals(LocalUserID, who.ID)
		c.Locals(LocalUserName, who.Name)
		c.Locals(LocalUserRole, who.Role)

		return c.Next()
	}
}

// RequireRole lets the request through only for one of the given roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalUserRole).(string)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires role " + strings.Join(roles, " or "),
		})
	}
}

// RequireAdmin is RequireRole(model.RoleAdmin).
func RequireAdmin() fiber.Handler {
	return RequireRole(model.RoleAdmin)
}

// Identity reads the acting user set by RequireAuth.
func Identity(c *fiber.Ctx) model.Identity {
	id, _ := c.Locals(LocalUserID).(string)
	name, _ := c.Locals(LocalUserName).(string)
	role, _ := c.Locals(LocalUserRole).(string)
	return model.Identity{ID: id, Name: name, Role: role}
}
