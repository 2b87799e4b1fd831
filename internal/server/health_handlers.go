package server

import (
	"context"
	"errors"
	"time"

	"github.com/arvi1709/AI-library/internal/models"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 5 * time.Second

var errRedisNotConfigured = errors.New("not configured")

// dependencyCheck is one backing service the API cannot serve without.
type dependencyCheck struct {
	name  string
	probe func(ctx context.Context) error
}

func (s *Server) dependencyChecks() []dependencyCheck {
	return []dependencyCheck{
		{name: "database", probe: func(ctx context.Context) error {
			sqlDB, err := s.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		// Realtime fan-out, token revocation and WebSocket tickets all live in Redis.
		{name: "redis", probe: func(ctx context.Context) error {
			if s.redis == nil {
				return errRedisNotConfigured
			}
			return s.redis.Ping(ctx).Err()
		}},
	}
}

// LivenessCheck handles GET /health/live
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now().UTC()})
}

// ReadinessCheck handles GET /health/ready. Any failing dependency turns
// the whole probe into a 503.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	checks := fiber.Map{}
	ready := true
	for _, dep := range s.dependencyChecks() {
		if err := dep.probe(ctx); err != nil {
			checks[dep.name] = "down: " + err.Error()
			ready = false
			continue
		}
		checks[dep.name] = "up"
	}

	code, status := fiber.StatusOK, "ready"
	if !ready {
		code, status = fiber.StatusServiceUnavailable, "not_ready"
	}
	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": checks,
		"time":   time.Now().UTC(),
	})
}

// GetCategories returns the curated story categories.
// @Summary List categories
// @Tags stories
// @Produce json
// @Success 200 {array} string
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	return c.JSON(models.MasterCategories)
}

// GetFeatureFlags reports the configured flags and how they resolve for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	raw, evaluated := map[string]string{}, map[string]bool{}
	if s.featureFlags != nil {
		raw = s.featureFlags.Raw()
		evaluated = s.featureFlags.Snapshot(currentUserID(c))
	}
	return c.JSON(fiber.Map{"raw": raw, "evaluated": evaluated})
}
