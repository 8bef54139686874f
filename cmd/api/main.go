package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/whisperservice/internal/api"
	"github.com/nikhilbhutani/whisperservice/internal/api/handlers"
	"github.com/nikhilbhutani/whisperservice/internal/audit"
	"github.com/nikhilbhutani/whisperservice/internal/auth"
	"github.com/nikhilbhutani/whisperservice/internal/config"
	"github.com/nikhilbhutani/whisperservice/internal/database"
	"github.com/nikhilbhutani/whisperservice/internal/observability"
	"github.com/nikhilbhutani/whisperservice/internal/queue"
	"github.com/nikhilbhutani/whisperservice/internal/stt"
	"github.com/nikhilbhutani/whisperservice/internal/transcription"
	"github.com/nikhilbhutani/whisperservice/internal/usage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Telemetry.LogLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()

	telemetry, err := observability.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	engine, err := stt.New(cfg.Engine)
	if err != nil {
		slog.Error("failed to create inference engine", "error", err)
		os.Exit(1)
	}

	var (
		observers []transcription.Observer
		reaper    transcription.Reaper
		usageRec  *usage.Recorder
		auditSvc  *audit.Service
		checks    = map[string]handlers.Pinger{}
	)
	if telemetry != nil {
		observers = append(observers, telemetry)
	}

	// Redis is optional: usage counters and deferred cleanup
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable at startup", "error", err)
		}

		usageRec = usage.NewRecorder(rdb)
		observers = append(observers, usageRec)
		checks["redis"] = usageRec

		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()
		reaper = qc
	}

	// Database is optional: transcription log
	if cfg.Database.Enabled() {
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, running without transcription log", "error", err)
		} else {
			defer pool.Close()
			if n, err := database.RunMigrations(ctx, pool, cfg.Database.MigrationsPath); err != nil {
				slog.Warn("migrations failed", "error", err)
			} else if n > 0 {
				slog.Info("migrations applied", "count", n)
			}
			auditSvc = audit.NewService(pool)
			observers = append(observers, auditSvc)
			checks["database"] = pool
		}
	}

	svc := transcription.NewService(engine, transcription.NewIntake(cfg.Audio.TempDir, cfg.Audio.TempSuffix), transcription.Options{
		ModelID:    cfg.Model.ID,
		AllowEmpty: cfg.Audio.AllowEmptyTranscript,
		Logger:     logger,
		Reaper:     reaper,
		Observers:  observers,
	})

	router := api.NewRouter(api.Deps{
		Config:    cfg,
		Service:   svc,
		Telemetry: telemetry,
		Auth:      auth.NewMiddleware(cfg.Auth),
		Usage:     usageRec,
		Audit:     auditSvc,
		Checks:    checks,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting whisper service",
			"addr", cfg.Addr(),
			"model", cfg.Model.ID,
			"engine", engine.Name(),
			"auth", cfg.Auth.Enabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown", "error", err)
	}
	slog.Info("server stopped")
}
