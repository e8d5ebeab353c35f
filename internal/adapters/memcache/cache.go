// Package memcache is an in-process domain.Cache; the ingestor keeps upstream
// payloads in it for the length of a run.
package memcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"

	"hotel_search/internal/adapters/observability"
)

type Cache struct{ c *cache.Cache }

func New(defaultTTL, cleanup time.Duration) *Cache {
	return &Cache{c: cache.New(defaultTTL, cleanup)}
}

// Values are stored encoded so callers never share memory with the cache.
func (m *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	observability.ObserveCache("memory", "hit")
	return true, json.Unmarshal(v.([]byte), dst)
}

func (m *Cache) Set(_ context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ttl := cache.DefaultExpiration
	if ttlSec > 0 {
		ttl = time.Duration(ttlSec) * time.Second
	}
	m.c.Set(key, b, ttl)
	observability.ObserveCache("memory", "set")
	return nil
}

func (m *Cache) Del(_ context.Context, key string) error {
	m.c.Delete(key)
	observability.ObserveCache("memory", "del")
	return nil
}
