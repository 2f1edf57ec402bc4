package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/config"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	resolver middleware.ProfileResolver,
	authHandler *handlers.AuthHandler,
	leadHandler *handlers.LeadHandler,
	healthHandler *handlers.HealthHandler,
) {
	// Prometheus scrape endpoint, outside the API rate limits
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	protected := []fiber.Handler{middleware.JWTProtected(cfg), middleware.ActingProfile(resolver)}

	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Get("/auth/me", append(protected, authHandler.Me)...)

	leads := api.Group("/leads", protected...)
	leads.Get("/", leadHandler.List)
	leads.Get("/stats", leadHandler.Stats)
	leads.Get("/:id", leadHandler.Get)
	leads.Post("/", leadHandler.Create)
	leads.Patch("/:id", leadHandler.Update)
	leads.Delete("/:id", leadHandler.Delete)
	leads.Post("/:id/archive", leadHandler.Archive)
	leads.Post("/:id/restore", leadHandler.Restore)
	leads.Post("/:id/convert", leadHandler.Convert)
	leads.Post("/:id/assign", middleware.RoleRequired(models.RoleTeamLead, models.RoleAdmin), leadHandler.Assign)
}
