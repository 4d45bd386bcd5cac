package cache

import (
	"context"
	"time"
)

// Cache stores rendered diagrams under string keys with an optional TTL.
// A zero TTL means the entry never expires.
//
// Get reports a missing, expired or unreadable entry as [ErrCacheMiss]. Any
// other error is a backend failure; callers log it and render anyway.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NullCache backs --no-cache: every Get misses and every Set is dropped.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NullCache) Delete(context.Context, string) error { return nil }

func (NullCache) Close() error { return nil }

var _ Cache = NullCache{}
