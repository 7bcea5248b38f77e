package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// RegisterHealthRoutes wires liveness and readiness probes. Readiness covers
// the two dependencies a batch run cannot proceed without: the operation
// store and the rate limiter backend.
func RegisterHealthRoutes(app fiber.Router, sqlDB *sql.DB, rdb *redis.Client) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(sqlDB, rdb))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func ReadyzHandler(sqlDB *sql.DB, rdb *redis.Client) fiber.Handler {
	checks := []struct {
		name string
		ping func(ctx context.Context) error
	}{
		{name: "postgres", ping: sqlDB.PingContext},
		{name: "redis", ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		results := fiber.Map{}
		healthy := true
		for _, check := range checks {
			state := "ok"
			if err := check.ping(ctx); err != nil {
				state = "down"
				healthy = false
			}
			results[check.name] = state
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if !healthy {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": results,
		})
	}
}
