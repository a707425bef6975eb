package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/axellelanca/shortener/internal/models"
)

const (
	fieldOriginalURL = "original_url"
	fieldCreatedAt   = "created_at"
	fieldClickCount  = "click_count"
	fieldLastUsedAt  = "last_used_at"
	fieldInvalidated = "invalidated"

	// invalidatedURL can't be a stored target: targets are never empty.
	invalidatedURL = "\x00invalidated"
)

// Redis stores URLs as strings and stats as hashes.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedis connects to the server described by opts and checks it answers.
func NewRedis(ctx context.Context, opts Options) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis: failed to connect to %s", opts.RedisAddr)
	}
	return NewRedisWithClient(client, opts.KeyPrefix), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, keyPrefix string) *Redis {
	return &Redis{client: client, keyPrefix: keyPrefix}
}

func (r *Redis) urlKey(code string) string {
	return fmt.Sprintf("%surl:%s", r.keyPrefix, code)
}

func (r *Redis) statsKey(code string) string {
	return fmt.Sprintf("%sstats:%s", r.keyPrefix, code)
}

func (r *Redis) GetURL(ctx context.Context, code string) (string, error) {
	url, err := r.client.Get(ctx, r.urlKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", errors.Wrapf(err, "redis: failed to get %s", r.urlKey(code))
	}
	if url == invalidatedURL {
		return "", ErrMiss
	}
	return url, nil
}

// AddURL relies on SET NX.
func (r *Redis) AddURL(ctx context.Context, code, url string, ttl time.Duration) error {
	if err := r.client.SetNX(ctx, r.urlKey(code), url, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis: failed to add %s", r.urlKey(code))
	}
	return nil
}

func (r *Redis) InvalidateURL(ctx context.Context, code string, hold time.Duration) error {
	if err := r.client.Set(ctx, r.urlKey(code), invalidatedURL, hold).Err(); err != nil {
		return errors.Wrapf(err, "redis: failed to invalidate %s", r.urlKey(code))
	}
	return nil
}

// GetStats reads the stats hash. An invalidated or corrupt hash counts as a
// miss; a corrupt one is also dropped so it can be repopulated.
func (r *Redis) GetStats(ctx context.Context, code string) (*models.LinkStats, error) {
	key := r.statsKey(code)
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redis: failed to get %s", key)
	}
	if len(fields) == 0 {
		return nil, ErrMiss
	}
	if _, ok := fields[fieldInvalidated]; ok {
		return nil, ErrMiss
	}

	stats, err := decodeStats(fields)
	if err != nil {
		_ = r.client.Del(ctx, key).Err()
		return nil, ErrMiss
	}
	return stats, nil
}

// AddStats writes the hash and its expiry only if the key is absent. The key
// is watched so a concurrent invalidation aborts the write.
func (r *Redis) AddStats(ctx context.Context, code string, stats *models.LinkStats, ttl time.Duration) error {
	key := r.statsKey(code)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil || n > 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldOriginalURL, stats.OriginalURL,
				fieldCreatedAt, stats.CreatedAt.UTC().Format(time.RFC3339Nano),
				fieldClickCount, stats.ClickCount,
				fieldLastUsedAt, stats.LastUsedAt.UTC().Format(time.RFC3339Nano),
			)
			pipe.Expire(ctx, key, ttl)
			return nil
		})
		return err
	}, key)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return errors.Wrapf(err, "redis: failed to add %s", key)
	}
	return nil
}

func (r *Redis) InvalidateStats(ctx context.Context, code string, hold time.Duration) error {
	key := r.statsKey(code)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldInvalidated, "1")
		pipe.Expire(ctx, key, hold)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "redis: failed to invalidate %s", key)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func decodeStats(fields map[string]string) (*models.LinkStats, error) {
	url, ok := fields[fieldOriginalURL]
	if !ok {
		return nil, errors.New("missing original_url")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, err
	}
	clicks, err := strconv.ParseInt(fields[fieldClickCount], 10, 64)
	if err != nil {
		return nil, err
	}
	lastUsedAt, err := time.Parse(time.RFC3339Nano, fields[fieldLastUsedAt])
	if err != nil {
		return nil, err
	}
	return &models.LinkStats{
		OriginalURL: url,
		CreatedAt:   createdAt,
		ClickCount:  clicks,
		LastUsedAt:  lastUsedAt,
	}, nil
}
