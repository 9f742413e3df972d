package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fieldworkhq/orgcore/internal/infrastructure/redis"
	"github.com/fieldworkhq/orgcore/internal/security"
	"github.com/fieldworkhq/orgcore/internal/security/middleware"
)

const defaultActivityLimit = 50

// ActivityHandler serves the recent admin activity feed.
type ActivityHandler struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(redisClient *redis.Client, logger *slog.Logger) *ActivityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityHandler{redis: redisClient, logger: logger}
}

// Recent handles GET /api/activity. Superuser only: the feed spans every
// organization.
func (h *ActivityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !actor.HasRole(security.RoleSuperuser) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return
	}
	if h.redis == nil {
		writeJSON(w, http.StatusOK, []json.RawMessage{})
		return
	}

	limit := int64(defaultActivityLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	raw, err := h.redis.RecentActivity(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read activity feed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	entries := make([]json.RawMessage, 0, len(raw))
	for _, item := range raw {
		entries = append(entries, json.RawMessage(item))
	}
	writeJSON(w, http.StatusOK, entries)
}
