package middleware

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/dto"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const profileLocal = "profile"

type ProfileResolver interface {
	ResolveActingProfile(ctx context.Context, principalID string) (*models.Profile, error)
}

// PrincipalID extracts the subject claim set by JWTProtected. It returns ""
// when no token is present.
func PrincipalID(c *fiber.Ctx) string {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}

// ActingProfile resolves the principal into a profile on every request and
// stores it for handlers.
func ActingProfile(resolver ProfileResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, err := resolver.ResolveActingProfile(c.UserContext(), PrincipalID(c))
		if err != nil {
			status := fiber.StatusUnauthorized
			message := "Unauthorized"
			if apperr.CodeOf(err) != apperr.CodeAuthentication {
				status = fiber.StatusBadGateway
				message = "Failed to resolve profile"
			}
			return c.Status(status).JSON(dto.ErrorResponse{
				Error: true, Code: string(apperr.CodeOf(err)), Message: message,
			})
		}
		c.Locals(profileLocal, profile)
		return c.Next()
	}
}

// Profile returns the profile stored by ActingProfile, or nil.
func Profile(c *fiber.Ctx) *models.Profile {
	p, _ := c.Locals(profileLocal).(*models.Profile)
	return p
}

// SetProfile is used by tests and alternative authenticators.
func SetProfile(c *fiber.Ctx, p *models.Profile) {
	c.Locals(profileLocal, p)
}
