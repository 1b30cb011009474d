package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nightlif34/Ninja-Otc/internal/model"
	"github.com/nightlif34/Ninja-Otc/internal/service"
)

const RoleKey = "role"

// RequireRole gates a route group by the computed role hierarchy. A
// rejection says "access denied" and nothing more.
func RequireRole(users *service.UserService, min model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		role, err := users.RoleOf(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to check role",
			})
		}

		if !role.AtLeast(min) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "access denied",
			})
		}

		c.Locals(RoleKey, role)
		return c.Next()
	}
}

// GetRole returns the role resolved by RequireRole for this request.
func GetRole(c *fiber.Ctx) model.Role {
	role, ok := c.Locals(RoleKey).(model.Role)
	if !ok {
		return model.RoleUser
	}
	return role
}
