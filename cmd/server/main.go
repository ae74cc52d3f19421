package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/casepulse/casepulse-backend/internal/api/middleware"
	"github.com/casepulse/casepulse-backend/internal/api/rest"
	"github.com/casepulse/casepulse-backend/internal/api/websocket"
	"github.com/casepulse/casepulse-backend/internal/config"
	"github.com/casepulse/casepulse-backend/internal/detect"
	"github.com/casepulse/casepulse-backend/internal/kafka"
	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/internal/notifications"
	"github.com/casepulse/casepulse-backend/internal/pkg/logger"
	"github.com/casepulse/casepulse-backend/internal/pkg/tracing"
	"github.com/casepulse/casepulse-backend/internal/repository"
	"github.com/casepulse/casepulse-backend/internal/service"
	"github.com/casepulse/casepulse-backend/internal/trending"
	"github.com/casepulse/casepulse-backend/migrations"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("casepulse backend failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.StdLogger(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("casepulse backend starting", "version", version, "driver", cfg.DatabaseDriver, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := applyMigrations(store); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("database ready")

	shutdownTracing, err := tracing.Init(cfg.Tracing.ServiceName, cfg.Tracing.OTLPEndpoint, cfg.Tracing.SamplingRate)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing()

	detectCfg, err := detectionConfig(cfg.Detection)
	if err != nil {
		return err
	}
	engine, err := detect.NewEngine(store, detectCfg, log)
	if err != nil {
		return fmt.Errorf("build detection engine: %w", err)
	}
	analyzer := trending.NewAnalyzer(store, store, log)
	notifier := notifications.NewNotifier(store.ListNotificationChannels, log)

	hub := websocket.NewHub(ctx)
	go hub.Run()

	detection := service.NewDetectionService(engine, store, analyzer, hub, notifier, log)

	scheduler := service.NewScheduler(detection, cfg.Scheduler, log)
	scheduler.Start(ctx)

	var consumer *kafka.Consumer
	if len(cfg.Kafka.Brokers) > 0 {
		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID,
			func(ctx context.Context, window models.TimeWindow) error {
				_, err := detection.Run(ctx, window)
				return err
			}, log)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error("kafka consumer stopped", "error", err)
			}
		}()
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.StructuredLog)
	router.Use(middleware.SecureHeaders)
	router.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))
	router.Use(middleware.RateLimit())

	healthz := rest.NewHealthzHandler(store)
	router.HandleFunc("/healthz/live", healthz.Live).Methods("GET")
	router.HandleFunc("/healthz/ready", healthz.Ready).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	rest.SetupRoutes(api, rest.NewHandler(detection, store, store, store, log))

	wsHandler := websocket.NewHandler(ctx, hub, cfg.AllowedOrigins)
	router.HandleFunc("/ws/feed", wsHandler.ServeWS).Methods("GET")

	middleware.WarnOnWildcardOrigins(cfg.AllowedOrigins, log)
	corsWrapper := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	})

	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      corsWrapper.Handler(router),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	scheduler.Stop()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Error("closing kafka consumer", "error", err)
		}
	}
	hub.Stop()

	shutdownTimeout := time.Duration(cfg.ShutdownTimeoutSec) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

// openStore picks the repository implementation from the configured
// driver. SQLite is the default for single-node deployments.
func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		return repository.NewPostgresRepository(cfg.DatabaseURL)
	case "", "sqlite":
		return repository.NewSQLiteRepository(cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

// applyMigrations replays every embedded migration in filename order.
// Statements are written to be re-runnable (CREATE TABLE IF NOT EXISTS).
func applyMigrations(store repository.Store) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	for _, name := range names {
		sql, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := store.RunMigrations(string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// detectionConfig materializes the immutable engine config from the
// loaded application config. Zero values fall back to the shipped
// defaults so a partial config file stays valid.
func detectionConfig(dc config.DetectionConfig) (detect.Config, error) {
	out := detect.DefaultConfig()

	if dc.SpikeFactor > 0 {
		out.SpikeFactor = dc.SpikeFactor
	}
	if dc.MinBaselineCount > 0 {
		out.MinBaselineCount = dc.MinBaselineCount
	}
	if dc.MinCaseCount > 0 {
		out.MinCaseCount = dc.MinCaseCount
	}
	if dc.MaxSampleCases > 0 {
		out.MaxSampleCases = dc.MaxSampleCases
	}
	if dc.DetectorTimeoutSec > 0 {
		out.DetectorTimeout = time.Duration(dc.DetectorTimeoutSec) * time.Second
	}
	if len(dc.DefaultThresholds) > 0 {
		m, err := windowMap(dc.DefaultThresholds)
		if err != nil {
			return detect.Config{}, fmt.Errorf("detection.default_thresholds: %w", err)
		}
		out.DefaultThresholds = m
	}
	if len(dc.ThresholdOverrides) > 0 {
		overrides := make(map[string]map[models.TimeWindow]int, len(dc.ThresholdOverrides))
		for unit, perWindow := range dc.ThresholdOverrides {
			m, err := windowMap(perWindow)
			if err != nil {
				return detect.Config{}, fmt.Errorf("detection.threshold_overrides[%s]: %w", unit, err)
			}
			overrides[unit] = m
		}
		out.ThresholdOverrides = overrides
	}
	if len(dc.UrgencyKeywords) > 0 {
		out.UrgencyKeywords = dc.UrgencyKeywords
	}
	if len(dc.MisclassificationKeywords) > 0 {
		out.MisclassificationKeywords = dc.MisclassificationKeywords
	}
	return out, nil
}

func windowMap(byName map[string]int) (map[models.TimeWindow]int, error) {
	out := make(map[models.TimeWindow]int, len(byName))
	for name, threshold := range byName {
		window, err := models.ParseTimeWindow(name)
		if err != nil {
			return nil, err
		}
		out[window] = threshold
	}
	return out, nil
}
