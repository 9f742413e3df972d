package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fieldworkhq/orgcore/internal/featureflags"
	"github.com/fieldworkhq/orgcore/internal/handler"
	"github.com/fieldworkhq/orgcore/internal/hierarchy"
	"github.com/fieldworkhq/orgcore/internal/infrastructure/logger"
	"github.com/fieldworkhq/orgcore/internal/infrastructure/redis"
	"github.com/fieldworkhq/orgcore/internal/migrations"
	"github.com/fieldworkhq/orgcore/internal/observability/metrics"
	"github.com/fieldworkhq/orgcore/internal/observability/tracing"
	"github.com/fieldworkhq/orgcore/internal/reliability/retry"
	"github.com/fieldworkhq/orgcore/internal/repository"
	"github.com/fieldworkhq/orgcore/internal/security"
	"github.com/fieldworkhq/orgcore/internal/security/audit"
	"github.com/fieldworkhq/orgcore/internal/security/auth"
	"github.com/fieldworkhq/orgcore/internal/security/middleware"
	"github.com/fieldworkhq/orgcore/internal/security/ratelimit"
	"github.com/fieldworkhq/orgcore/internal/service"
	"github.com/fieldworkhq/orgcore/internal/worker"
	"github.com/fieldworkhq/orgcore/pkg/config"
	"github.com/fieldworkhq/orgcore/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting orgcore server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless OTEL_EXPORTER_OTLP_ENDPOINT is set)
	shutdownTracing, err := tracing.Init(ctx, log, "orgcore", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to Postgres and run migrations
	pool, err := retry.Do(ctx, retry.DefaultConfig(), log, "postgres connect",
		func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, cfg.DatabaseURL, log)
		})
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.Up(pool.DB()); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Initialize Redis (activity feed). The server runs without it.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, activity feed disabled", slog.String("error", err.Error()))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// 6. Initialize repositories
	db := pool.DB()
	tenantRepo := repository.NewPostgresTenantRepository(db, log)
	userRepo := repository.NewPostgresUserRepository(db, log)
	roleRepo := repository.NewPostgresRoleRepository(db, log)
	appRegistry := repository.NewPostgresApplicationRegistry(db, log)
	uow := repository.NewPostgresUnitOfWork(db, log)

	// 7. Initialize hierarchy resolvers and authorization
	resolver := hierarchy.NewResolver(tenantRepo, log)
	scopes := hierarchy.NewScopeResolver(resolver, log)
	permissions := hierarchy.NewPermissionResolver(tenantRepo, log)
	authorizer := security.NewAuthorizer(scopes, log)

	var feedSink audit.FeedSink
	if redisClient != nil {
		feedSink = redisClient
	}
	auditLogger := audit.NewLogger(log, feedSink, int64(cfg.ActivityFeedMaxEntries))

	// 8. Initialize services
	tenantService := service.NewTenantService(uow, appRegistry, scopes, auditLogger, log)
	userService := service.NewUserService(userRepo, scopes, auditLogger, log)

	// 9. Initialize handlers
	tenantsHandler := handler.NewTenantsHandler(tenantService, authorizer, auditLogger, log)
	treeHandler := handler.NewTreeHandler(tenantRepo, scopes, permissions, authorizer, log)
	usersHandler := handler.NewUsersHandler(userService, authorizer, auditLogger, log)
	rolesHandler := handler.NewRolesHandler(roleRepo, resolver, log)
	activityHandler := handler.NewActivityHandler(redisClient, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)

	// 9a. Security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "orgcore")
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)

	// 10. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tenants", tenantsHandler.Create)
	mux.HandleFunc("PATCH /api/tenants/{id}", tenantsHandler.Rename)
	mux.HandleFunc("PUT /api/tenants/{id}/permissions", tenantsHandler.UpdatePermissions)
	mux.HandleFunc("DELETE /api/tenants/{id}", tenantsHandler.Delete)
	mux.HandleFunc("GET /api/tenants/tree", treeHandler.Tree)
	mux.HandleFunc("GET /api/tenants/{id}/permissions", treeHandler.EffectivePermissions)
	mux.HandleFunc("POST /api/users", usersHandler.Create)
	mux.HandleFunc("GET /api/users", usersHandler.List)
	mux.HandleFunc("POST /api/users/{id}/relocate", usersHandler.Relocate)
	mux.HandleFunc("GET /api/roles", rolesHandler.List)
	mux.HandleFunc("POST /api/roles", rolesHandler.Create)
	mux.HandleFunc("GET /api/activity", activityHandler.Recent)
	mux.HandleFunc("GET /healthz", healthHandler.Healthz)
	mux.HandleFunc("GET /readyz", healthHandler.Readyz)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> tracing -> actor -> rate limit -> CORS.
	// The actor must be resolved before the limiter so requests are limited
	// per tenant rather than globally.
	rootHandler := withRequestID(
		otelhttp.NewHandler(
			middleware.ActorMiddleware(tokenManager, log)(
				middleware.RateLimitMiddleware(rateLimiter, log)(handlerWithCORS),
			),
			"orgcore",
		),
		log,
	)

	// 11. Start the integrity checker when the flag is on
	if featureflags.IntegrityChecker.Enabled() {
		checker := worker.NewIntegrityChecker(
			tenantRepo,
			log,
			time.Duration(cfg.IntegrityScanMinutes)*time.Minute,
		)
		go checker.Start(ctx)
	}

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.Bool("activity_feed", redisClient != nil),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(ctx))

		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(rec.status), elapsed)
		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration_ms", elapsed),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
