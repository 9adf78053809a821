package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/catalogo-muebles/internal/catalog"
	"github.com/noah-isme/catalogo-muebles/internal/lock"
	"github.com/noah-isme/catalogo-muebles/internal/obs"
)

const warmLockKey = "lock:catalog:warm"

// Catalog is the part of catalog.Service the worker drives.
type Catalog interface {
	Invalidate(ctx context.Context) error
	Refresh(ctx context.Context) (catalog.Snapshot, error)
}

// Locker serialises cache warming across worker replicas.
type Locker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Worker handles catalog maintenance tasks.
type Worker struct {
	Catalog  Catalog
	Locker   Locker
	LockTTL  time.Duration
	Logger   zerolog.Logger
	duration metric.Float64Histogram
}

// NewWorker wires a Worker and its job duration instrument.
func NewWorker(c Catalog, locker Locker, lockTTL time.Duration, logger zerolog.Logger) *Worker {
	w := &Worker{Catalog: c, Locker: locker, LockTTL: lockTTL, Logger: logger}
	hist, err := otel.Meter("catalogo/jobs").Float64Histogram(
		"catalog.job.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Catalog maintenance task duration"),
	)
	if err == nil {
		w.duration = hist
	}
	return w
}

// Mux routes task types to handlers.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCacheInvalidate, w.HandleInvalidate)
	mux.HandleFunc(TypeCacheWarm, w.HandleWarm)
	return mux
}

// HandleInvalidate drops cached snapshots and optionally warms the cache.
func (w *Worker) HandleInvalidate(ctx context.Context, t *asynq.Task) (err error) {
	defer w.track(ctx, TypeCacheInvalidate, time.Now(), &err)
	if w.Catalog == nil {
		return fmt.Errorf("jobs: catalog not configured: %w", asynq.SkipRetry)
	}
	payload, err := decodeInvalidate(t.Payload())
	if err != nil {
		return err
	}
	if err = w.Catalog.Invalidate(ctx); err != nil {
		return err
	}
	w.Logger.Info().Str("reason", payload.Reason).Msg("catalog_cache_invalidate_done")
	if payload.Warm {
		return w.warm(ctx)
	}
	return nil
}

// HandleWarm reloads the primary source into the cache. Only one replica
// warms at a time; the others skip.
func (w *Worker) HandleWarm(ctx context.Context, _ *asynq.Task) (err error) {
	defer w.track(ctx, TypeCacheWarm, time.Now(), &err)
	if w.Catalog == nil {
		return fmt.Errorf("jobs: catalog not configured: %w", asynq.SkipRetry)
	}
	return w.warm(ctx)
}

func (w *Worker) warm(ctx context.Context) error {
	refresh := func(ctx context.Context) error {
		snap, err := w.Catalog.Refresh(ctx)
		if err != nil {
			return err
		}
		w.Logger.Info().
			Str("source", snap.Source).
			Int("products", len(snap.Products)).
			Msg("catalog_cache_warmed")
		return nil
	}
	if w.Locker == nil {
		return refresh(ctx)
	}
	ttl := w.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	err := w.Locker.TryWithLock(ctx, warmLockKey, ttl, refresh)
	if errors.Is(err, lock.ErrNotAcquired) {
		w.Logger.Debug().Msg("catalog_cache_warm_skipped")
		return nil
	}
	return err
}

func (w *Worker) track(ctx context.Context, taskType string, start time.Time, errp *error) {
	result := "ok"
	if *errp != nil {
		result = "error"
		w.Logger.Error().Err(*errp).Str("task", taskType).Msg("catalog_job_failed")
	}
	obs.IncCounter(obs.CatalogJobsTotal, taskType, result)
	if w.duration != nil {
		w.duration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond),
			metric.WithAttributes(attribute.String("task", taskType), attribute.String("result", result)))
	}
}
