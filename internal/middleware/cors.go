package middleware

import (
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows the configured CRM front-end origins to call the lead and auth
// routes. Only the verbs the router serves are allowed, and X-Request-ID is
// exposed so the UI can quote it when reporting a failed lead operation.
func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept, X-Request-ID",
		AllowMethods:     "GET, POST, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    fiber.HeaderXRequestID,
		AllowCredentials: false,
	})
}
