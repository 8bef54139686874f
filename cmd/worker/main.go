package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/whisperservice/internal/config"
	"github.com/nikhilbhutani/whisperservice/internal/queue"
	"github.com/nikhilbhutani/whisperservice/internal/queue/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Telemetry.LogLevel}))
	slog.SetDefault(logger)

	if !cfg.Redis.Enabled() {
		slog.Error("worker requires REDIS_ADDR")
		os.Exit(1)
	}

	redisOpt := queue.RedisOpt(cfg.Redis)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Reaper.Concurrency,
		Queues: map[string]int{
			queue.QueueMaintenance: 1,
		},
		Logger: newAsynqLogger(logger),
	})

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeAudioReap, workers.NewReapWorker(cfg.Audio.TempDir).ProcessTask)
	registry.Register(queue.TypeAudioSweep, workers.NewSweepWorker(cfg.Audio.TempDir, cfg.Reaper.MaxAge).ProcessTask)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: newAsynqLogger(logger)})
	spec := fmt.Sprintf("@every %s", cfg.Reaper.SweepInterval)
	if _, err := scheduler.Register(spec, queue.NewAudioSweepTask(), asynq.Queue(queue.QueueMaintenance), asynq.Unique(cfg.Reaper.SweepInterval)); err != nil {
		slog.Error("failed to register sweep", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		slog.Error("scheduler error", "error", err)
		srv.Shutdown()
		os.Exit(1)
	}

	slog.Info("starting worker",
		"concurrency", cfg.Reaper.Concurrency,
		"audio_dir", cfg.Audio.TempDir,
		"sweep", spec,
		"max_age", cfg.Reaper.MaxAge.String(),
		"tasks", registry.Types(),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker")
	scheduler.Shutdown()
	srv.Shutdown()
}
