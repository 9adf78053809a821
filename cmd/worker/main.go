package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/catalogo-muebles/internal/app"
	"github.com/noah-isme/catalogo-muebles/internal/config"
	"github.com/noah-isme/catalogo-muebles/internal/jobs"
	"github.com/noah-isme/catalogo-muebles/internal/lock"
	"github.com/noah-isme/catalogo-muebles/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	if cfg.RedisURL == "" {
		logger.Fatal().Msg("REDIS_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, "catalogo-worker", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()

	connOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri")
	}

	worker := jobs.NewWorker(deps.Catalog, lock.Locker{R: deps.Redis}, cfg.CatalogSourceTimeout+30*time.Second, logger)

	srv := asynq.NewServer(connOpt, asynq.Config{
		Concurrency:     cfg.WorkerConcurrency,
		Queues:          map[string]int{jobs.DefaultQueue: 1},
		Logger:          asynqLogger{logger: logger},
		ShutdownTimeout: cfg.HTTPShutdownTimeout,
	})
	if err := srv.Start(worker.Mux()); err != nil {
		logger.Fatal().Err(err).Msg("start asynq server")
	}

	scheduler := asynq.NewScheduler(connOpt, &asynq.SchedulerOpts{Logger: asynqLogger{logger: logger}})
	entryID, err := jobs.RegisterSchedule(scheduler, cfg.CatalogWarmInterval, jobs.DefaultQueue)
	if err != nil {
		logger.Fatal().Err(err).Msg("register warm schedule")
	}
	if entryID != "" {
		if err := scheduler.Start(); err != nil {
			logger.Fatal().Err(err).Msg("start scheduler")
		}
		logger.Info().Str("entry", entryID).Dur("interval", cfg.CatalogWarmInterval).Msg("catalog warm scheduled")
	}

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	<-ctx.Done()

	if entryID != "" {
		scheduler.Shutdown()
	}
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
