package handler

import (
	"log/slog"
	"net/http"

	"github.com/fieldworkhq/orgcore/internal/infrastructure/redis"
	"github.com/fieldworkhq/orgcore/pkg/database"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pool   *database.ConnectionPool
	redis  *redis.Client
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler. Both pool and redis may be
// nil when the server runs against the in-memory backend.
func NewHealthHandler(pool *database.ConnectionPool, redisClient *redis.Client, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{pool: pool, redis: redisClient, logger: logger}
}

// Healthz handles GET /healthz.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz. It reports degraded when a configured backing
// store is unreachable.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if h.pool != nil {
		if err := h.pool.Health(r.Context()); err != nil {
			h.logger.Error("database health check failed", slog.String("error", err.Error()))
			checks["database"] = "unreachable"
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(r.Context()); err != nil {
			h.logger.Error("redis health check failed", slog.String("error", err.Error()))
			checks["redis"] = "unreachable"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}
