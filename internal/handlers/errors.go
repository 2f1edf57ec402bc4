package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// statusFor maps an error code to its HTTP status.
func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeAuthentication:
		return fiber.StatusUnauthorized
	case apperr.CodeAuthorization:
		return fiber.StatusForbidden
	case apperr.CodeNotFound:
		return fiber.StatusNotFound
	case apperr.CodeInvalidState:
		return fiber.StatusConflict
	case apperr.CodeValidation:
		return fiber.StatusBadRequest
	case apperr.CodeDependency:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as dto.ErrorResponse. Dependency and unknown errors
// are logged and their details withheld.
func writeError(c *fiber.Ctx, err error) error {
	code := apperr.CodeOf(err)
	status := statusFor(code)
	message := err.Error()

	if status >= 500 {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"code", string(code),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"error", err.Error(),
		)
		message = "Upstream dependency failed"
		if code == "" {
			message = "Internal server error"
		}
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Error:   true,
		Code:    string(code),
		Message: message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Code: string(apperr.CodeValidation), Message: message,
	})
}
