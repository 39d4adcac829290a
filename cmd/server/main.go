package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/garnizeh/careerpal/api"
	dbfs "github.com/garnizeh/careerpal/db"
	"github.com/garnizeh/careerpal/internal/ai"
	"github.com/garnizeh/careerpal/internal/config"
	"github.com/garnizeh/careerpal/internal/db"
	"github.com/garnizeh/careerpal/internal/oauth"
	"github.com/garnizeh/careerpal/internal/ratelimit"
	"github.com/garnizeh/careerpal/pkg/blob"
	"github.com/garnizeh/careerpal/pkg/ollama"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	ai.SetLogger(logger)
	oauth.SetLogger(logger)
	ratelimit.SetLogger(logger)
	blob.SetLogger(logger)
	ollama.SetLogger(logger)

	logger.Info("starting careerpal", "version", version, "build_time", buildTime, "env", cfg.Env)

	ctx := context.Background()

	// Open database connection
	database, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
			log.Fatalf("Failed to migrate DB: %v", err)
		}
	}

	completer, checks, closeEngine, err := newCompleter(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create AI engine: %v", err)
	}
	engine, err := ai.NewEngine(ctx, completer, cfg.EngineConfig)
	if err != nil {
		log.Fatalf("Failed to create AI engine: %v", err)
	}

	store, err := blob.Open(ctx, cfg.Blob.BucketURL)
	if err != nil {
		log.Fatalf("Failed to open blob bucket: %v", err)
	}

	limiter, rdb := newLimiter(ctx, cfg, logger)
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	registry := oauth.NewRegistry(cfg.Social, cfg.BaseURL)
	for _, p := range registry.Configured() {
		logger.Info("oauth provider configured", "provider", string(p))
	}

	handler := api.SetupRoutes(cfg, version, buildTime, api.Deps{
		DB:         database,
		Engine:     engine,
		Blobs:      store,
		OAuth:      registry,
		Limiter:    limiter,
		HTTPClient: blob.NewPublicClient(cfg.APITimeout),
		Checks:     checks,
	})

	// Create HTTP server; AI calls can outlive the API timeout
	writeTimeout := cfg.APITimeout
	if cfg.EngineConfig.Timeout+5*time.Second > writeTimeout {
		writeTimeout = cfg.EngineConfig.Timeout + 5*time.Second
	}
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	if closeEngine != nil {
		if err := closeEngine(); err != nil {
			logger.Error("error closing AI client", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("error closing redis", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("error closing blob bucket", "error", err)
	}
	if err := database.Close(); err != nil {
		logger.Error("error closing DB", "error", err)
	}

	logger.Info("server exited")
}

// newCompleter builds the configured model backend and its health checks.
func newCompleter(ctx context.Context, cfg *config.Config) (ai.Completer, map[string]api.HealthCheck, func() error, error) {
	checks := map[string]api.HealthCheck{}

	switch cfg.EngineConfig.Provider {
	case config.EngineGemini:
		c, err := ai.NewGeminiCompleter(ctx, cfg.Gemini.APIKey, cfg.EngineConfig.Model, cfg.EngineConfig.Temperature)
		if err != nil {
			return nil, nil, nil, err
		}
		return c, checks, nil, nil
	default:
		client, err := ollama.NewDefaultClient(cfg.Ollama)
		if err != nil {
			return nil, nil, nil, err
		}
		checks["ollama"] = client.Health
		return ai.NewOllamaCompleter(client, cfg.EngineConfig.Model, cfg.EngineConfig.Temperature), checks, client.Close, nil
	}
}

// newLimiter prefers Redis so limits hold across instances, and falls back to
// an in-process limiter when Redis is not configured or unreachable.
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, *redis.Client) {
	rl := cfg.RateLimit
	if rl.RedisAddr != "" {
		rdb, err := ratelimit.Dial(ctx, rl.RedisAddr, rl.RedisPassword, rl.RedisDB)
		if err == nil {
			logger.Info("rate limiter: redis", "addr", rl.RedisAddr, "per_minute", rl.PerMinute)
			return ratelimit.NewRedisLimiter(rdb, rl.PerMinute), rdb
		}
		logger.Warn("rate limiter: redis unavailable, using local limiter", "addr", rl.RedisAddr, "error", err)
	}

	logger.Info("rate limiter: local", "per_minute", rl.PerMinute, "burst", rl.Burst)
	return ratelimit.NewLocalLimiter(rl.PerMinute, rl.Burst), nil
}
