package ratelimit

import (
	"context"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MemoryStore is a per-process fixed window limiter used when Redis is not
// configured.
type MemoryStore struct {
	store limiter.Store
}

// NewMemoryStore builds an in-memory store that sweeps expired keys every
// cleanup interval.
func NewMemoryStore(prefix string, cleanup time.Duration) MemoryStore {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return MemoryStore{store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: cleanup,
	})}
}

// Allow counts an event for key against max events per window.
func (m MemoryStore) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	if m.store == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, ResetAt: time.Now().Add(window)}, nil
	}
	res, err := m.store.Get(ctx, key, limiter.Rate{Period: window, Limit: int64(max)})
	if err != nil {
		return Decision{ResetAt: time.Now().Add(window)}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Remaining: int(res.Remaining),
		ResetAt:   time.Unix(res.Reset, 0),
	}, nil
}
