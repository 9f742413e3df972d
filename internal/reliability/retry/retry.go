package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config holds retry strategy configuration.
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns sensible retry defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// Do runs fn with doubling backoff until it succeeds, the attempts are
// exhausted, or the context is cancelled. Used for startup connections to
// storage so a briefly unavailable dependency does not kill the process.
func Do[T any](ctx context.Context, cfg *Config, log *slog.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if cfg == nil {
		cfg = DefaultConfig()
	}

	backoff := cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}
		log.Warn("operation failed, retrying",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return zero, fmt.Errorf("operation %q failed after %d attempts: %w", op, cfg.MaxAttempts, lastErr)
}
