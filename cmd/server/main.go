package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/access"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/cache"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/config"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/database"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/logging"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/notify"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/repository"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/routes"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.StdoutHandler(cfg.LogLevel),
		pgLogHandler,
	)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Lead cache
	store, err := cache.NewStore(cfg.CacheMaxEntries, cfg.CacheTTL)
	if err != nil {
		slog.Error("cache init failed", "error", err)
		os.Exit(1)
	}
	invalidator := cache.NewManager(store, slog.Default())

	// Repositories
	profileRepo := repository.NewProfileRepository(database.DB)
	leadRepo := repository.NewLeadRepository(database.DB)
	contactRepo := repository.NewContactRepository(database.DB)
	tokenRepo := repository.NewTokenRepository(database.DB)

	resolver := access.NewResolver(profileRepo)

	// Assignment notifications
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	var dispatcher notify.Dispatcher = notify.NopDispatcher{}
	var broker *notify.Broker
	if cfg.NotificationsEnabled() {
		broker, err = notify.Connect(cfg.AMQPURL)
		if err != nil {
			slog.Error("rabbitmq connection failed", "error", err)
			os.Exit(1)
		}
		deliveries, err := broker.Consume("crm-notify-worker")
		if err != nil {
			slog.Error("rabbitmq consume failed", "queue", notify.QueueName, "error", err)
			os.Exit(1)
		}
		dispatcher = notify.NewAMQPDispatcher(broker.Publisher())
		mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
		worker := notify.NewWorker(profileRepo, mailer, slog.Default())
		go worker.Run(workerCtx, deliveries)
		slog.Info("assignment notifications enabled", "exchange", notify.ExchangeName, "queue", notify.QueueName)
	} else {
		slog.Info("assignment notifications disabled")
	}

	// Services
	authService := services.NewAuthService(profileRepo, tokenRepo, cfg)
	queryService := services.NewLeadQueryService(leadRepo, resolver, store, slog.Default())
	lifecycleService := services.NewLeadLifecycleService(
		leadRepo, profileRepo, resolver, contactRepo, invalidator, dispatcher, slog.Default(),
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	leadHandler := handlers.NewLeadHandler(queryService, lifecycleService)
	healthHandler := handlers.NewHealthHandler(database.Ping, store.Len)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.Metrics())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, resolver, authHandler, leadHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	stopWorker()
	if broker != nil {
		if err := broker.Close(); err != nil {
			slog.Error("rabbitmq close error", "error", err)
		}
	}

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
