// Package cache holds the look-aside cache placed in front of the link store.
// Entries are keyed by short code: the target URL of a link and its stats.
package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/axellelanca/shortener/internal/models"
)

// ErrMiss is returned when the key isn't cached.
var ErrMiss = errors.New("cache: miss")

// Cache stores resolved URLs and link stats. Callers treat every error other
// than ErrMiss as an unavailable cache and fall back to the store.
//
// Populating is add-only: Add* leaves an existing entry in place. Invalidate*
// replaces the entry with a marker kept for hold; reads miss while it lives
// and Add* can't overwrite it, so a store read that started before the
// invalidation can't put the old value back.
type Cache interface {
	GetURL(ctx context.Context, code string) (string, error)
	AddURL(ctx context.Context, code, url string, ttl time.Duration) error
	InvalidateURL(ctx context.Context, code string, hold time.Duration) error

	GetStats(ctx context.Context, code string) (*models.LinkStats, error)
	AddStats(ctx context.Context, code string, stats *models.LinkStats, ttl time.Duration) error
	InvalidateStats(ctx context.Context, code string, hold time.Duration) error

	Close() error
}

// Supported cache drivers.
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
	DriverNone   = "none"
)

// Options configures New.
type Options struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	// CleanupInterval is how often the memory backend purges expired items.
	CleanupInterval time.Duration
}

// New builds the cache selected by opts.Driver. The redis backend pings the
// server before returning.
func New(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Driver {
	case DriverRedis:
		return NewRedis(ctx, opts)
	case DriverMemory, "":
		return NewMemory(opts.CleanupInterval), nil
	case DriverNone:
		return Noop{}, nil
	default:
		return nil, errors.Errorf("unknown cache driver %q", opts.Driver)
	}
}
