package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fieldworkhq/orgcore/internal/reliability/circuitbreaker"
)

// defaultMaxFeedEntries caps the Redis activity feed when no limit is given.
const defaultMaxFeedEntries = 500

// FeedSink receives serialized audit entries for the admin activity feed.
// The Redis client implements it; a nil sink disables the feed.
type FeedSink interface {
	PushActivity(ctx context.Context, entry string, max int64) error
}

// Entry is one audited admin action.
type Entry struct {
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id"`
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	Details    string    `json:"details"`
	Timestamp  time.Time `json:"timestamp"`
}

// Logger writes audit entries to the structured log and, when a sink is
// configured, to the activity feed. Feed writes go through a circuit breaker
// so a Redis outage never blocks or fails the audited mutation itself.
type Logger struct {
	logger     *slog.Logger
	sink       FeedSink
	maxEntries int64
	breaker    *circuitbreaker.Breaker
}

// NewLogger creates an audit logger. sink may be nil. maxEntries bounds the
// activity feed length; values below 1 fall back to the default.
func NewLogger(logger *slog.Logger, sink FeedSink, maxEntries int64) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if maxEntries < 1 {
		maxEntries = defaultMaxFeedEntries
	}
	return &Logger{
		logger:     logger,
		sink:       sink,
		maxEntries: maxEntries,
		breaker:    circuitbreaker.New(5, 2, 30*time.Second),
	}
}

// LogAction records an audited action.
func (al *Logger) LogAction(ctx context.Context, tenantID, userID, action, resource, resourceID, status, details string) {
	entry := Entry{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		TenantID:   tenantID,
		UserID:     userID,
		Status:     status,
		Details:    details,
		Timestamp:  time.Now(),
	}

	al.logger.Info("audit",
		slog.String("action", entry.Action),
		slog.String("resource", entry.Resource),
		slog.String("resource_id", entry.ResourceID),
		slog.String("tenant_id", entry.TenantID),
		slog.String("user_id", entry.UserID),
		slog.String("status", entry.Status),
		slog.String("details", entry.Details),
	)

	al.publish(ctx, entry)
}

// LogTenantMutation records a hierarchy mutation (create/rename/grant/delete).
func (al *Logger) LogTenantMutation(ctx context.Context, tenantID, userID, operation, status, details string) {
	al.LogAction(ctx, tenantID, userID, operation, "tenant", tenantID, status, details)
}

// LogDenied records a refused authorization.
func (al *Logger) LogDenied(ctx context.Context, tenantID, userID, reason string) {
	al.LogAction(ctx, tenantID, userID, "access_denied", "api", "", "denied", reason)
}

func (al *Logger) publish(ctx context.Context, entry Entry) {
	if al.sink == nil {
		return
	}
	if !al.breaker.Allow() {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := al.sink.PushActivity(ctx, string(raw), al.maxEntries); err != nil {
		al.breaker.RecordFailure()
		al.logger.Warn("activity feed write failed", slog.String("error", err.Error()))
		return
	}
	al.breaker.RecordSuccess()
}
