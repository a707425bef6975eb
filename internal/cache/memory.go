package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/axellelanca/shortener/internal/models"
)

// invalidated marks an entry dropped by a mutation.
type invalidated struct{}

// Memory is an in-process cache for single instance deployments.
type Memory struct {
	urls  *gocache.Cache
	stats *gocache.Cache
}

// NewMemory creates an empty cache purging expired items every cleanupInterval.
func NewMemory(cleanupInterval time.Duration) *Memory {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &Memory{
		urls:  gocache.New(gocache.NoExpiration, cleanupInterval),
		stats: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (m *Memory) GetURL(_ context.Context, code string) (string, error) {
	v, ok := m.urls.Get(code)
	if !ok {
		return "", ErrMiss
	}
	url, ok := v.(string)
	if !ok {
		return "", ErrMiss
	}
	return url, nil
}

// AddURL ignores the error go-cache returns when the key is already present.
func (m *Memory) AddURL(_ context.Context, code, url string, ttl time.Duration) error {
	_ = m.urls.Add(code, url, ttl)
	return nil
}

func (m *Memory) InvalidateURL(_ context.Context, code string, hold time.Duration) error {
	m.urls.Set(code, invalidated{}, hold)
	return nil
}

// GetStats returns a copy so callers can't mutate the cached value.
func (m *Memory) GetStats(_ context.Context, code string) (*models.LinkStats, error) {
	v, ok := m.stats.Get(code)
	if !ok {
		return nil, ErrMiss
	}
	stats, ok := v.(models.LinkStats)
	if !ok {
		return nil, ErrMiss
	}
	return &stats, nil
}

func (m *Memory) AddStats(_ context.Context, code string, stats *models.LinkStats, ttl time.Duration) error {
	_ = m.stats.Add(code, *stats, ttl)
	return nil
}

func (m *Memory) InvalidateStats(_ context.Context, code string, hold time.Duration) error {
	m.stats.Set(code, invalidated{}, hold)
	return nil
}

func (m *Memory) Close() error {
	m.urls.Flush()
	m.stats.Flush()
	return nil
}
