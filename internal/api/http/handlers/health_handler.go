package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const dependencyProbeTimeout = 2 * time.Second

// pinger is anything whose connectivity gates readiness.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	started     time.Time
	deps        map[string]pinger
}

// NewHealthHandler returns a handler probing the given backing stores.
func NewHealthHandler(serviceName, version string, postgres, redis pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		started:     time.Now(),
		deps: map[string]pinger{
			"postgres": postgres,
			"redis":    redis,
		},
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

// Ready reports service readiness by pinging every dependency.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), dependencyProbeTimeout)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
		} else {
			depStatus[name] = "ok"
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
