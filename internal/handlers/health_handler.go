package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	ping      func() error
	cacheSize func() int
}

func NewHealthHandler(ping func() error, cacheSize func() int) *HealthHandler {
	return &HealthHandler{ping: ping, cacheSize: cacheSize}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"
	if err := h.ping(); err != nil {
		status = "degraded"
		dbStatus = "unhealthy: " + err.Error()
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		CacheKeys: h.cacheSize(),
	})
}
