package middleware

import (
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/config"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JWTProtected verifies the HS256 access token issued by AuthService and
// leaves it under Locals("user") for PrincipalID. It only authenticates;
// ActingProfile turns the subject into a profile and its lead scope.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Code:    string(apperr.CodeAuthentication),
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}
