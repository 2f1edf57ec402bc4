package middleware

import (
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/dto"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"github.com/gofiber/fiber/v2"
)

// RoleRequired lets the request through only if the acting profile has one
// of roles. It must run after ActingProfile.
func RoleRequired(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile := Profile(c)
		if profile == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Code: "AUTHENTICATION", Message: "Unauthorized",
			})
		}
		if contains(roles, profile.Role) {
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Code: "AUTHORIZATION", Message: "Insufficient role",
		})
	}
}

func contains(list []models.Role, val models.Role) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
