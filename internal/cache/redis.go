package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/riftword/autocomplete/internal/metrics"
)

// RedisCache implements Adapter over go-redis, grounded on the
// teacher's internal/cache.RedisCache. History is kept in a Redis list
// under a fixed key, trimmed with LTRIM after every push rather than
// read-modify-write in Go, so concurrent service instances sharing one
// Redis don't race on the trim.
type RedisCache struct {
	client     *redis.Client
	ttl        time.Duration
	historyKey string
	bound      int
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

// Config holds Redis connection parameters.
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	TTL          time.Duration
	HistoryBound int
}

// NewRedisCache dials Redis and returns an Adapter over it, failing
// fast (logger.Fatal) if the initial ping fails, matching the
// teacher's startup behavior for a required dependency.
func NewRedisCache(cfg Config, logger *logrus.Logger, metricsInstance *metrics.Metrics) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	logger.Info("Successfully connected to Redis")

	bound := cfg.HistoryBound
	if bound <= 0 {
		bound = DefaultHistoryBound
	}

	return &RedisCache{
		client:     rdb,
		ttl:        cfg.TTL,
		historyKey: "autocomplete:history",
		bound:      bound,
		logger:     logger,
		metrics:    metricsInstance,
	}
}

func (r *RedisCache) buildKey(query string) string {
	return fmt.Sprintf("autocomplete:q:%s", query)
}

// Get returns the cached results for query.
func (r *RedisCache) Get(ctx context.Context, query string) ([]string, bool) {
	start := time.Now()
	key := r.buildKey(query)

	val, err := r.client.Get(ctx, key).Result()
	r.metrics.RecordCacheOperation("get", "redis", time.Since(start))

	if err == redis.Nil {
		r.metrics.RecordCacheMiss("redis")
		return nil, false
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to get from cache")
		r.metrics.RecordError("cache", "get_failed")
		return nil, false
	}

	var results []string
	if err := json.Unmarshal([]byte(val), &results); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal cached results")
		r.metrics.RecordError("cache", "unmarshal_failed")
		return nil, false
	}

	r.metrics.RecordCacheHit("redis")
	r.client.Expire(ctx, key, r.ttl)
	return results, true
}

// Set stores results for query.
func (r *RedisCache) Set(ctx context.Context, query string, results []string) error {
	start := time.Now()
	key := r.buildKey(query)

	data, err := json.Marshal(results)
	if err != nil {
		r.metrics.RecordError("cache", "marshal_failed")
		return err
	}

	err = r.client.Set(ctx, key, data, r.ttl).Err()
	r.metrics.RecordCacheOperation("set", "redis", time.Since(start))
	if err != nil {
		r.logger.WithError(err).Error("Failed to set cache")
		r.metrics.RecordError("cache", "set_failed")
		return err
	}
	return nil
}

// Delete evicts query.
func (r *RedisCache) Delete(ctx context.Context, query string) error {
	start := time.Now()
	err := r.client.Del(ctx, r.buildKey(query)).Err()
	r.metrics.RecordCacheOperation("delete", "redis", time.Since(start))
	if err != nil {
		r.logger.WithError(err).Error("Failed to delete from cache")
		r.metrics.RecordError("cache", "delete_failed")
		return err
	}
	return nil
}

// PushHistory left-pushes query onto the history list and trims it to
// the configured bound.
func (r *RedisCache) PushHistory(ctx context.Context, query string) error {
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.historyKey, query)
	pipe.LTrim(ctx, r.historyKey, 0, int64(r.bound-1))
	_, err := pipe.Exec(ctx)
	if err != nil {
		r.metrics.RecordError("cache", "push_history_failed")
	}
	return err
}

// GetHistory returns up to limit of the most recently pushed queries.
func (r *RedisCache) GetHistory(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > r.bound {
		limit = r.bound
	}
	return r.client.LRange(ctx, r.historyKey, 0, int64(limit-1)).Result()
}

// Close closes the underlying Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
