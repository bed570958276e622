package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process cache with per-entry expiry
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a cache whose entries default to ttl and whose expired
// entries are swept every cleanup interval.
func NewMemory(ttl, cleanup time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cleanup <= 0 {
		cleanup = 2 * ttl
	}
	return &Memory{c: gocache.New(ttl, cleanup)}
}

func (m *Memory) Get(_ context.Context, code string) (string, error) {
	v, ok := m.c.Get(code)
	if !ok {
		return "", ErrMiss
	}
	return v.(string), nil
}

func (m *Memory) Set(_ context.Context, code, originalURL string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(code, originalURL, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.c.Delete(code)
	return nil
}

// Len returns the number of entries, expired ones included until swept
func (m *Memory) Len() int {
	return m.c.ItemCount()
}

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}

var _ Cache = (*Memory)(nil)
