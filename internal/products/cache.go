package products

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StockStatusKey(productID string) string
}

// StatusCache keeps short-lived stock status snapshots in Redis.
type StatusCache struct {
	store redisStore
	ttl   time.Duration
}

func NewStatusCache(store redisStore, ttl time.Duration) *StatusCache {
	if store == nil {
		return nil
	}
	return &StatusCache{store: store, ttl: ttl}
}

// Get reports a cache hit with the decoded status.
func (c *StatusCache) Get(ctx context.Context, productID uuid.UUID) (StockStatus, bool, error) {
	if c == nil {
		return StockStatus{}, false, nil
	}
	raw, err := c.store.Get(ctx, c.store.StockStatusKey(productID.String()))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return StockStatus{}, false, nil
		}
		return StockStatus{}, false, err
	}
	var status StockStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return StockStatus{}, false, nil
	}
	return status, true, nil
}

func (c *StatusCache) Put(ctx context.Context, productID uuid.UUID, status StockStatus) error {
	if c == nil || c.ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.store.StockStatusKey(productID.String()), string(payload), c.ttl)
}

func (c *StatusCache) Invalidate(ctx context.Context, productID uuid.UUID) error {
	if c == nil {
		return nil
	}
	return c.store.Del(ctx, c.store.StockStatusKey(productID.String()))
}
