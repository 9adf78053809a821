package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	cacheGenerationKey = "catalog:snapshot:gen"
	cacheSnapshotKey   = "catalog:snapshot:"
)

var errStaleGeneration = errors.New("catalog: cache generation changed")

// Cache stores catalog snapshots in Redis. Keys embed a generation token so
// Invalidate can retire every cached snapshot with a single write.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client yields a cache that never hits.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.Enabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.Enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// GetSnapshot returns the snapshot cached under the current generation.
func (c *Cache) GetSnapshot(ctx context.Context) (Snapshot, bool, error) {
	var snap Snapshot
	if !c.Enabled() {
		return snap, false, nil
	}
	key, err := c.SnapshotKey(ctx)
	if err != nil {
		return snap, false, err
	}
	ok, err := c.GetJSON(ctx, key, &snap)
	return snap, ok, err
}

// PutSnapshot stores snap under the current generation.
func (c *Cache) PutSnapshot(ctx context.Context, snap Snapshot) error {
	if !c.Enabled() {
		return nil
	}
	key, err := c.SnapshotKey(ctx)
	if err != nil {
		return err
	}
	_, err = c.PutSnapshotAt(ctx, key, snap)
	return err
}

// PutSnapshotAt stores snap under key only while key still belongs to the
// current generation. It reports false when an Invalidate retired key first.
func (c *Cache) PutSnapshotAt(ctx context.Context, key string, snap Snapshot) (bool, error) {
	if !c.Enabled() || key == "" {
		return false, nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return false, err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		gen, err := tx.Get(ctx, cacheGenerationKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return errStaleGeneration
			}
			return err
		}
		if cacheSnapshotKey+gen != key {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, cacheGenerationKey)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, err
	}
}

// Invalidate rotates the generation token and returns the new one. Snapshots
// written under older generations are left to expire.
func (c *Cache) Invalidate(ctx context.Context) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	gen := uuid.NewString()
	if err := c.client.Set(ctx, cacheGenerationKey, gen, 0).Err(); err != nil {
		return "", err
	}
	return gen, nil
}

// SnapshotKey resolves the key for the current generation, creating the
// generation token on first use. Callers that load data should resolve it
// before loading and write back with PutSnapshotAt.
func (c *Cache) SnapshotKey(ctx context.Context) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	gen, err := c.client.Get(ctx, cacheGenerationKey).Result()
	if err == nil {
		return cacheSnapshotKey + gen, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", err
	}
	candidate := uuid.NewString()
	if _, err := c.client.SetNX(ctx, cacheGenerationKey, candidate, 0).Result(); err != nil {
		return "", err
	}
	gen, err = c.client.Get(ctx, cacheGenerationKey).Result()
	if err != nil {
		return "", err
	}
	return cacheSnapshotKey + gen, nil
}
