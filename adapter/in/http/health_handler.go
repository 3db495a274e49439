package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"triage_server/adapter/out/messaging"
)

// BreakerStater reports the classification circuit breaker state.
type BreakerStater interface {
	BreakerState() string
}

type HealthHandler struct {
	db      *sqlx.DB
	redis   *redis.Client
	stream  *messaging.RedisStream
	breaker BreakerStater
}

func NewHealthHandler(db *sqlx.DB, rdb *redis.Client, stream *messaging.RedisStream, breaker BreakerStater) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   rdb,
		stream:  stream,
		breaker: breaker,
	}
}

func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
	app.Get("/queues", h.Queues)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	// Check PostgreSQL
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks["postgres"] = "healthy"
		}
	} else {
		checks["postgres"] = "not configured"
	}

	// Check Redis
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "not configured"
	}

	if h.breaker != nil {
		checks["classifier_breaker"] = h.breaker.BreakerState()
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Queues reports depth and pending counts per job stream.
func (h *HealthHandler) Queues(c *fiber.Ctx) error {
	if h.stream == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "queues not configured",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	streams := []string{
		messaging.StreamClassify,
		messaging.StreamRetry,
		messaging.StreamRoute,
		messaging.StreamDLQ,
	}

	queues := make(map[string]fiber.Map, len(streams))
	for _, name := range streams {
		depth, err := h.stream.Depth(ctx, name)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "queue stats unavailable: " + err.Error(),
			})
		}
		pending, err := h.stream.Pending(ctx, name)
		if err != nil {
			// Stream may exist without the group yet
			pending = 0
		}
		queues[name] = fiber.Map{
			"depth":   depth,
			"pending": pending,
		}
	}

	return c.JSON(fiber.Map{
		"queues":    queues,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
