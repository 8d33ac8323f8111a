package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
)

// CacheRepository keeps run summaries and audit reports in Redis as JSON documents.
type CacheRepository struct {
	client redis.Cmdable
	logger *zap.Logger
}

// NewCacheRepository builds the repository. With a nil client reads miss and writes are dropped.
func NewCacheRepository(client redis.Cmdable, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

func (r *CacheRepository) offline() bool { return r == nil || r.client == nil }

// Get decodes the document stored at key into dest. Missing and corrupt entries are both misses;
// corrupt ones are unlinked so the next write starts clean.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.offline() {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if decodeErr := json.Unmarshal(raw, dest); decodeErr != nil {
		r.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(decodeErr))
		if err := r.client.Unlink(ctx, key).Err(); err != nil {
			r.logger.Warn("unlink of corrupt cache entry failed", zap.String("key", key), zap.Error(err))
		}
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set writes value at key for ttl.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.offline() {
		return nil
	}
	doc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache document %s: %w", key, err)
	}
	return wrapRedis("set", key, r.client.Set(ctx, key, doc, ttl).Err())
}

// Delete unlinks keys; absent keys are ignored.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if r.offline() || len(keys) == 0 {
		return nil
	}
	return wrapRedis("unlink", fmt.Sprint(keys), r.client.Unlink(ctx, keys...).Err())
}

// Ping is used by the readiness probe. An offline repository reports healthy since caching is optional.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if r.offline() {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

func wrapRedis(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("redis %s %s: %w", op, key, err)
}
