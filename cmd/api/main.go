// Package main is the entry point for the API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/vibemap/internal/api"
	"github.com/onnwee/vibemap/internal/config"
	"github.com/onnwee/vibemap/internal/db"
	"github.com/onnwee/vibemap/internal/health"
	"github.com/onnwee/vibemap/internal/idempotency"
	"github.com/onnwee/vibemap/internal/jobs"
	"github.com/onnwee/vibemap/internal/middleware"
	"github.com/onnwee/vibemap/internal/place"
	"github.com/onnwee/vibemap/internal/ranking"
	"github.com/onnwee/vibemap/internal/review"
	"github.com/onnwee/vibemap/internal/session"
	"github.com/onnwee/vibemap/internal/tracing"
	"github.com/onnwee/vibemap/migrations"
)

const (
	serviceName     = "vibemap-api"
	shutdownTimeout = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (env vars take precedence)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Vibemap API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	env := config.DefaultEnv
	if cfg != nil {
		env = cfg.Env
	}
	logger := middleware.NewLogger(env)
	slog.SetDefault(logger)

	if len(errs) > 0 {
		for _, err := range errs {
			logger.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}

	summary := cfg.LogSummary()
	attrs := make([]any, 0, len(summary)*2)
	for k, v := range summary {
		attrs = append(attrs, k, v)
	}
	logger.Info("configuration loaded", attrs...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// run wires dependencies, serves until ctx is cancelled, then shuts down.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSampleRate,
		InsecureMode: cfg.TracingInsecure,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracing", "error", err)
		}
	}()

	deps, err := newDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Initial load failures are not fatal: /ready reports "loading" and the
	// refresh job keeps retrying.
	if err := deps.session.Load(ctx); err != nil {
		logger.Error("initial data load failed", "error", err)
	}

	if cfg.RefreshIntervalSeconds > 0 {
		job := session.NewRefreshJob(session.RefreshJobConfig{
			Interval:   time.Duration(cfg.RefreshIntervalSeconds) * time.Second,
			Logger:     logger,
			JobMetrics: deps.jobMetrics,
		}, deps.session)
		if err := job.Start(ctx); err != nil {
			return fmt.Errorf("failed to start refresh job: %w", err)
		}
		defer job.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      newHandler(cfg, deps, tracerProvider.IsEnabled()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serve(ctx, server, logger)
}

// serve runs server until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// dependencies holds the long-lived components shared by the handlers.
type dependencies struct {
	session        *session.Session
	registry       *prometheus.Registry
	httpMetrics    *middleware.Metrics
	jobMetrics     *jobs.Metrics
	rateLimitStore middleware.RateLimitStore
	idempotency    idempotency.Repository
	dbChecker      api.HealthChecker
	redisChecker   api.HealthChecker

	closers []func() error
}

// Close releases database and Redis connections.
func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			slog.Warn("failed to close dependency", "error", err)
		}
	}
}

func newDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{registry: prometheus.NewRegistry()}
	deps.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps.httpMetrics = middleware.NewMetrics()
	sessionMetrics := session.NewMetrics()
	deps.jobMetrics = jobs.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		deps.httpMetrics.Register,
		sessionMetrics.Register,
		deps.jobMetrics.Register,
	} {
		if err := register(deps.registry); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	var (
		places  place.Repository
		reviews review.Repository
	)
	if cfg.DatabaseURL != "" {
		conn, err := openDatabase(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, conn.Close)
		deps.dbChecker = health.NewDBChecker(conn)
		places = place.NewPostgresRepository(conn, logger)
		reviews = review.NewPostgresRepository(conn, logger)
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory repositories")
		places = place.NewInMemoryRepository()
		reviews = review.NewInMemoryRepository()
	}

	limits, err := ranking.LoadLimits(cfg.RankingConfigPath)
	if err != nil {
		logger.Warn("using default ranking limits", "error", err)
	}
	engine := ranking.NewEngine(limits, nil)

	deps.session = session.New(places, reviews, engine, session.Config{
		PlacesLimit:  cfg.PlacesLimit,
		ReviewsLimit: cfg.ReviewsLimit,
		Logger:       logger,
		Metrics:      sessionMetrics,
	})

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		deps.closers = append(deps.closers, client.Close)
		deps.redisChecker = health.NewRedisChecker(client)
		deps.rateLimitStore = middleware.NewRedisRateLimitStore(client).
			WithMetrics(deps.httpMetrics).
			WithLogger(logger)
		deps.idempotency = idempotency.NewRedisRepository(client, idempotency.DefaultExpiry)
	} else {
		store := middleware.NewInMemoryRateLimitStore()
		store.StartCleanup(ctx, 5*time.Minute)
		deps.rateLimitStore = store

		idem := idempotency.NewInMemoryRepository()
		idempotency.StartCleanup(ctx, idem, time.Hour, idempotency.DefaultExpiry, logger)
		deps.idempotency = idem
	}

	return deps, nil
}

func openDatabase(ctx context.Context, url string, logger *slog.Logger) (*sql.DB, error) {
	conn, err := db.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	applied, err := db.Migrate(ctx, conn, migrations.FS, logger)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("database ready", "migrations_applied", applied)
	return conn, nil
}

// newHandler builds the router and wraps it in the middleware chain:
// RequestID, Logging, Tracing, HTTPMetrics, CORS, then the global rate limit.
func newHandler(cfg *config.Config, deps *dependencies, tracingEnabled bool) http.Handler {
	globalLimit := middleware.RateLimitConfig{RequestsPerWindow: cfg.RateLimitPerMinute, WindowDuration: time.Minute}
	reviewLimit := middleware.RateLimitConfig{RequestsPerWindow: cfg.ReviewLimitPerMinute, WindowDuration: time.Minute}
	keyFunc := middleware.IPKeyFunc()
	// Review submissions count against both limits, so they need their own bucket.
	reviewKeyFunc := func(r *http.Request) string { return "review:" + keyFunc(r) }

	router := api.NewRouter(api.RouterConfig{
		Service: deps.session,
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			DBChecker:    deps.dbChecker,
			RedisChecker: deps.redisChecker,
			LoadState:    deps.session,
		}),
		MetricsHandler: promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{Registry: deps.registry}),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		ReviewLimiter:  middleware.RateLimiter(deps.rateLimitStore, reviewLimit, reviewKeyFunc, deps.httpMetrics),

		ReviewIdempotency: middleware.Idempotency(deps.idempotency, slog.Default()),
	})

	var handler http.Handler = router
	handler = middleware.RateLimiter(deps.rateLimitStore, globalLimit, keyFunc, deps.httpMetrics)(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins))(handler)
	handler = middleware.HTTPMetrics(deps.httpMetrics)(handler)
	if tracingEnabled {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.Logging(slog.Default())(handler)
	handler = middleware.RequestID(handler)
	return handler
}
