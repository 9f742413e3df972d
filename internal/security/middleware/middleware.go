package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fieldworkhq/orgcore/internal/security"
	"github.com/fieldworkhq/orgcore/internal/security/auth"
	"github.com/fieldworkhq/orgcore/internal/security/ratelimit"
)

type actorContextKey struct{}

// publicPaths need no actor identity: probes and metrics scrapes.
var publicPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// ActorMiddleware verifies the gateway-minted bearer token and attaches the
// actor identity to the request context.
func ActorMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("token validation failed", slog.String("error", err.Error()))
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			actor := security.Actor{
				UserID:   claims.UserID,
				TenantID: claims.TenantID,
				Roles:    claims.RoleNames(),
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RateLimitMiddleware enforces the per-tenant request limit.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			actor, _ := ActorFromContext(r.Context())
			if !limiter.Allow(actor.TenantID) {
				log.Warn("rate limit exceeded", slog.String("tenant_id", actor.TenantID))
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithActor attaches an actor to a context.
func WithActor(ctx context.Context, actor security.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext retrieves the actor attached by ActorMiddleware.
func ActorFromContext(ctx context.Context) (security.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(security.Actor)
	return actor, ok
}
