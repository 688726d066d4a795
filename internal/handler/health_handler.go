package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db          *gorm.DB
	environment string
}

func NewHealthHandler(db *gorm.DB, environment string) *HealthHandler {
	return &HealthHandler{db: db, environment: environment}
}

// Health reports database reachability and the gateway environment
// GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	database := "connected"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
		database = "disconnected"
	}

	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"database":  database,
		"gateway":   h.environment,
	})
}
