package handlers

import (
	"recoup/internal/repositories/cache"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	cache *cache.Service
}

func NewHealthHandler(cacheService *cache.Service) *HealthHandler {
	return &HealthHandler{cache: cacheService}
}

func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	redisStatus := "connected"
	if err := h.cache.HealthCheck(c.Context()); err != nil {
		redisStatus = "unreachable"
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": "1.0.0",
		"services": fiber.Map{
			"database": "connected",
			"redis":    redisStatus,
		},
	})
}
