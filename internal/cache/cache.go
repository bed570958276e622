// Package cache holds the resolution cache: a derived, time-bounded copy of
// short_code -> original_url. The store stays the source of truth.
package cache

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL bounds how long a cached mapping may outlive a missed invalidation
const DefaultTTL = 300 * time.Second

// ErrMiss is returned by Get when the code is not cached
var ErrMiss = errors.New("cache miss")

// Cache maps short codes to original URLs
type Cache interface {
	Get(ctx context.Context, code string) (string, error)
	Set(ctx context.Context, code, originalURL string, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
	Close() error
}
