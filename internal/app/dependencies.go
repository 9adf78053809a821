package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/catalogo-muebles/internal/catalog"
	"github.com/noah-isme/catalogo-muebles/internal/config"
	"github.com/noah-isme/catalogo-muebles/internal/health"
	"github.com/noah-isme/catalogo-muebles/internal/jobs"
	"github.com/noah-isme/catalogo-muebles/internal/migrations"
	"github.com/noah-isme/catalogo-muebles/internal/obs"
	"github.com/noah-isme/catalogo-muebles/internal/ratelimit"
	"github.com/noah-isme/catalogo-muebles/internal/repo"
	"github.com/noah-isme/catalogo-muebles/internal/resilience"
)

// Dependencies enumerates the services shared by the API and the worker.
// DB and Redis are nil when not configured.
type Dependencies struct {
	DB           *pgxpool.Pool
	Redis        *redis.Client
	TaskClient   *asynq.Client
	Enqueuer     jobs.Enqueuer
	LimiterStore ratelimit.Store
	Breaker      *resilience.Breaker
	Catalog      *catalog.Service
	Logger       zerolog.Logger
}

// Build connects the configured backends and assembles the catalog service.
// An unreachable database is not fatal: the catalog falls back to the static
// dataset until the store recovers.
func Build(ctx context.Context, cfg *config.Config, appName string, logger zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: logger}

	if cfg.UsePostgres() {
		if cfg.DBAutoMigrate {
			if err := migrations.Up(cfg.DatabaseURL); err != nil {
				logger.Error().Err(err).Msg("auto migrate")
			}
		}
		pool, err := OpenPostgres(ctx, cfg.DatabaseURL, appName)
		if err != nil {
			return nil, err
		}
		if err := pingWithRetry(ctx, pool); err != nil {
			logger.Warn().Err(err).Msg("catalog_db_unreachable_at_start")
		}
		deps.DB = pool
	}

	if cfg.RedisURL != "" {
		client, err := OpenRedis(cfg.RedisURL, cfg.MetricsEnabled, logger)
		if err != nil {
			deps.Close()
			return nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis_unreachable_at_start")
		}
		deps.Redis = client

		connOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("parse asynq redis uri: %w", err)
		}
		deps.TaskClient = asynq.NewClient(connOpt)
		deps.Enqueuer = jobs.Enqueuer{Client: deps.TaskClient}
		deps.LimiterStore = ratelimit.RedisStore{Client: client, Prefix: "ratelimit:"}
	} else {
		deps.LimiterStore = ratelimit.NewMemoryStore("ratelimit", time.Minute)
	}

	deps.Breaker = resilience.NewBreaker(cfg.CircuitDBMinRequests, cfg.CircuitDBFailureRatio, cfg.CircuitDBOpenFor).
		WithTarget("catalog_db").
		WithLogger(logger)

	svcCfg := catalog.ServiceConfig{
		Breaker:         deps.Breaker,
		Logger:          logger,
		Timeout:         cfg.CatalogSourceTimeout,
		DefaultPageSize: cfg.CatalogDefaultPageSize,
		MaxPageSize:     cfg.CatalogMaxPageSize,
		MaxPriceDefault: cfg.CatalogMaxPriceDefault,
	}
	if deps.DB != nil {
		svcCfg.Source = repo.NewCatalogStore(deps.DB)
	}
	if deps.Redis != nil && cfg.CatalogCacheTTL > 0 {
		svcCfg.Cache = catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL)
	}
	svc, err := catalog.NewService(svcCfg)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("initialise catalog service: %w", err)
	}
	deps.Catalog = svc
	return deps, nil
}

// OpenPostgres builds a traced pgx pool. It does not wait for the server.
func OpenPostgres(ctx context.Context, databaseURL, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, nil
}

// OpenRedis parses url and returns an instrumented client.
func OpenRedis(url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	return client, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return resilience.Retry(ctx, 3, 200*time.Millisecond, pool.Ping)
}

// Checker adapts the optional backends to health probes.
func (d *Dependencies) Checker() health.Checker {
	return readinessChecker{db: d.DB, redis: d.Redis}
}

// Close releases every opened backend.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.TaskClient != nil {
		if err := d.TaskClient.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close asynq client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return health.ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return health.ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return errors.Join(errors.New("redis ping failed"), err)
	}
	return nil
}
