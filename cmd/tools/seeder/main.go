package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"

	"github.com/noah-isme/catalogo-muebles/internal/app"
	"github.com/noah-isme/catalogo-muebles/internal/catalog"
	"github.com/noah-isme/catalogo-muebles/internal/config"
	"github.com/noah-isme/catalogo-muebles/internal/jobs"
	"github.com/noah-isme/catalogo-muebles/internal/migrations"
	"github.com/noah-isme/catalogo-muebles/internal/obs"
	"github.com/noah-isme/catalogo-muebles/internal/resilience"
)

func main() {
	migrate := flag.Bool("migrate", true, "apply pending migrations before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "seeder").Logger()

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *migrate {
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := resilience.Retry(ctx, 5, 500*time.Millisecond, db.PingContext); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	snap := catalog.StaticDataset()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("begin transaction")
	}
	if err := seedCatalog(ctx, tx, snap); err != nil {
		_ = tx.Rollback()
		logger.Error().Err(err).Msg("seed catalog")
		os.Exit(1)
	}
	if err := tx.Commit(); err != nil {
		logger.Fatal().Err(err).Msg("commit seed")
	}
	logger.Info().
		Int("products", len(snap.Products)).
		Int("fabrics", len(snap.Fabrics)).
		Int("providers", len(snap.Providers)).
		Int("rules", len(snap.Rules)).
		Msg("catalog seed complete")

	if cfg.RedisURL == "" {
		return
	}
	connOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("skip cache invalidation")
		return
	}
	taskClient := asynq.NewClient(connOpt)
	defer taskClient.Close()

	enq := jobs.Enqueuer{Client: taskClient}
	info, err := enq.Invalidate(ctx, "seed", true)
	if err == nil {
		if info != nil {
			logger.Info().Str("task_id", info.ID).Msg("catalog invalidation enqueued")
		}
		return
	}
	logger.Warn().Err(err).Msg("enqueue invalidation, dropping cache directly")

	client, err := app.OpenRedis(cfg.RedisURL, false, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("skip cache invalidation")
		return
	}
	defer client.Close()
	if gen, err := catalog.NewCache(client, cfg.CatalogCacheTTL).Invalidate(ctx); err != nil {
		logger.Warn().Err(err).Msg("invalidate catalog cache")
	} else {
		logger.Info().Str("generation", gen).Msg("catalog cache invalidated")
	}
}
