// Package main is the entrypoint for the Scriptgate API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/scriptgate/scriptgate/internal/cache"
	"github.com/scriptgate/scriptgate/internal/clock"
	"github.com/scriptgate/scriptgate/internal/config"
	"github.com/scriptgate/scriptgate/internal/handler"
	"github.com/scriptgate/scriptgate/internal/metrics"
	"github.com/scriptgate/scriptgate/internal/middleware"
	"github.com/scriptgate/scriptgate/internal/repository"
	"github.com/scriptgate/scriptgate/internal/server"
	"github.com/scriptgate/scriptgate/internal/service"
	"github.com/scriptgate/scriptgate/internal/store"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	clk := clock.System()

	// Initialize stores
	var (
		keyStore    store.KeyStore
		scriptStore store.ScriptStore
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		defer repo.Close()
		logger.Info("connected to database")
		keyStore = repo.NewKeyStore(clk)
		scriptStore = repo.NewScriptStore(clk)
	default:
		keyStore = store.NewMemoryKeyStore(clk)
		scriptStore = store.NewMemoryScriptStore(clk)
		logger.Info("using in-memory stores")
	}

	// Initialize cache (optional, needed for rate limiting)
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		defer cacheClient.Close()
		logger.Info("connected to Redis")
	}

	// Initialize service
	recorder := metrics.NewInMemory()
	entitlements := service.NewEntitlementService(keyStore, scriptStore, clk, cfg.FreePlan, recorder)

	// Initialize handlers
	h := handler.New()
	keyHandler := handler.NewKeyHandler(entitlements, logger)
	scriptHandler := handler.NewScriptHandler(entitlements, logger)
	rawHandler := handler.NewRawHandler(entitlements, logger)
	metricsHandler := handler.NewMetricsHandler(recorder)

	var cacheChecker handler.HealthChecker
	if cacheClient != nil {
		cacheChecker = cacheClient
	}
	healthHandler := handler.NewHealthHandler(pinger{entitlements.PingStores}, cacheChecker)

	// Setup router
	r := setupRouter(h, healthHandler, keyHandler, scriptHandler, rawHandler, metricsHandler, cacheClient, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"store", cfg.StoreDriver,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// pinger adapts a ping function to the handler.HealthChecker interface.
type pinger struct {
	fn func(context.Context) error
}

func (p pinger) Ping(ctx context.Context) error {
	return p.fn(ctx)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	keyHandler *handler.KeyHandler,
	scriptHandler *handler.ScriptHandler,
	rawHandler *handler.RawHandler,
	metricsHandler *handler.MetricsHandler,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	adminAuth := middleware.AdminAuth(middleware.AdminAuthConfig{
		Logger:    logger,
		TokenHash: cfg.AdminTokenHash,
	})

	freeKeyLimit := middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger:  logger,
		Cache:   cacheClient,
		Enabled: cfg.RateLimitEnabled,
		Scope:   "freekey",
		RPS:     cfg.FreeKeyRPS,
		Burst:   cfg.FreeKeyBurst,
	})
	rawLimit := middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger:  logger,
		Cache:   cacheClient,
		Enabled: cfg.RateLimitEnabled,
		Scope:   "raw",
		RPS:     cfg.RawRPS,
		Burst:   cfg.RawBurst,
	})

	r.Route("/api", func(r chi.Router) {
		r.With(freeKeyLimit).Post("/free-key", keyHandler.FreeKey)
		r.Post("/check-key", keyHandler.CheckKey)

		r.Route("/scripts", func(r chi.Router) {
			r.Post("/", scriptHandler.Create)
			r.Get("/", scriptHandler.List)
			r.With(adminAuth).Delete("/{id}", scriptHandler.Delete)
		})

		// List management keeps the original /users path shape.
		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}", scriptHandler.GetLists)
			r.Post("/{id}/{listType}", scriptHandler.AddToList)
			r.Delete("/{id}/{listType}", scriptHandler.RemoveFromList)
		})

		r.With(adminAuth).Get("/metrics", metricsHandler.Snapshot)
	})

	// Script delivery for connected clients
	r.With(rawLimit).Get("/raw/{id}", rawHandler.Raw)

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
