package cache

import (
	"context"
	"time"

	"github.com/axellelanca/shortener/internal/models"
)

// Noop disables caching: every read misses and writes are dropped.
type Noop struct{}

func (Noop) GetURL(context.Context, string) (string, error) { return "", ErrMiss }

func (Noop) AddURL(context.Context, string, string, time.Duration) error { return nil }

func (Noop) InvalidateURL(context.Context, string, time.Duration) error { return nil }

func (Noop) GetStats(context.Context, string) (*models.LinkStats, error) { return nil, ErrMiss }

func (Noop) AddStats(context.Context, string, *models.LinkStats, time.Duration) error { return nil }

func (Noop) InvalidateStats(context.Context, string, time.Duration) error { return nil }

func (Noop) Close() error { return nil }
