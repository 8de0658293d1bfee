package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atishaytuli/YURL/internal/types"
)

// ErrMiss reports that a code has no cached resolution. Any other error
// from the cache is a transient Redis failure.
var ErrMiss = errors.New("cache miss")

// Cache holds recently resolved codes so the redirect hot path can skip
// the relational store.
type Cache struct {
	rdb *redis.Client
}

func ConnectRedis(addr, password string) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Cache{rdb: rdb}, nil
}

func (c *Cache) GetResolved(ctx context.Context, code string) (*types.ResolvedLink, error) {
	val, err := c.rdb.Get(ctx, code).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	var resolved types.ResolvedLink
	if err := json.Unmarshal([]byte(val), &resolved); err != nil {
		return nil, err
	}
	return &resolved, nil
}

func (c *Cache) SetResolved(ctx context.Context, code string, resolved *types.ResolvedLink, expiration time.Duration) error {
	data, err := json.Marshal(resolved)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, code, data, expiration).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
