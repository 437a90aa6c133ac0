package pricing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/planwise/planwise/internal/logger"
)

const cacheKeyPrefix = "planwise:pricing:"

// Cache stores pricing responses by key.
type Cache interface {
	Get(ctx context.Context, key string) (Response, bool, error)
	Set(ctx context.Context, key string, resp Response, ttl time.Duration) error
}

// RedisCache keeps responses in redis as JSON.
type RedisCache struct {
	Client *redis.Client
}

func (c RedisCache) Get(ctx context.Context, key string) (Response, bool, error) {
	raw, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, err
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, false, err
	}
	return resp, true, nil
}

func (c RedisCache) Set(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, raw, ttl).Err()
}

// MemoryCache keeps responses in process.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Response, bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return Response{}, false, nil
	}
	resp, ok := v.(Response)
	return resp, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, resp Response, ttl time.Duration) error {
	c.store.Set(key, resp, ttl)
	return nil
}

// Cached serves repeated lookups from a cache. Only successful live responses
// are stored so a degraded provider is retried on the next turn.
type Cached struct {
	Next  Lookup
	Cache Cache
	TTL   time.Duration
	Log   *logger.Logger
}

func (c Cached) Search(ctx context.Context, params Params) Response {
	key := CacheKey(params)
	if resp, ok, err := c.Cache.Get(ctx, key); err != nil {
		c.logger().Warn("pricing cache read failed", "error", err)
	} else if ok {
		return resp
	}

	resp := c.Next.Search(ctx, params)
	if resp.Status != StatusOK || resp.Provider == ProviderMock || len(resp.Results) == 0 {
		return resp
	}
	if err := c.Cache.Set(ctx, key, resp, c.TTL); err != nil {
		c.logger().Warn("pricing cache write failed", "error", err)
	}
	return resp
}

func (c Cached) logger() *logger.Logger {
	if c.Log == nil {
		return logger.Nop()
	}
	return c.Log
}

// CacheKey derives a stable key from the normalized request.
func CacheKey(params Params) string {
	norm := Params{
		Query:    strings.ToLower(strings.Join(strings.Fields(params.Query), " ")),
		Location: strings.ToLower(strings.TrimSpace(params.Location)),
		Currency: strings.ToUpper(strings.TrimSpace(params.Currency)),
		Limit:    params.limit(),
	}
	raw, _ := json.Marshal(norm)
	sum := sha256.Sum256(raw)
	return cacheKeyPrefix + hex.EncodeToString(sum[:16])
}
