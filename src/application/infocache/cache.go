package infocache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"mediagrab-be-server/src/lib/cerr"

	"github.com/redis/go-redis/v9"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// InfoCache keeps recently looked-up video metadata so repeated checks
// of the same URL don't hit the extraction tool every time.
//
//counterfeiter:generate . InfoCache
type InfoCache interface {
	// Lookup unmarshals the cached value into out and reports whether
	// the key was present.
	Lookup(ctx context.Context, key string, out interface{}) (bool, error)
	Store(ctx context.Context, key string, value interface{}) error
}

var _ InfoCache = RedisCache{}

func NewRedisCache(addr string, ttl time.Duration) RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	return RedisCache{
		client: client,
		ttl:    ttl,
	}
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (r RedisCache) Lookup(ctx context.Context, key string, out interface{}) (bool, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, cerr.Field("cache_key", key).
			Wrap(err).Error("Failed to read from the info cache")
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return false, cerr.Field("cache_key", key).
			Wrap(err).Error("Failed to unmarshal cached info")
	}

	return true, nil
}

func (r RedisCache) Store(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return cerr.Field("cache_key", key).
			Wrap(err).Error("Failed to marshal info for caching")
	}

	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return cerr.Field("cache_key", key).
			Wrap(err).Error("Failed to write to the info cache")
	}

	return nil
}

var _ InfoCache = NoopCache{}

// NoopCache stands in when no cache backend is configured.
type NoopCache struct{}

func (NoopCache) Lookup(context.Context, string, interface{}) (bool, error) {
	return false, nil
}

func (NoopCache) Store(context.Context, string, interface{}) error {
	return nil
}
