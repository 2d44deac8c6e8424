// Package cache provides a Redis-backed cache for scan results. A cached
// entry is keyed by the text, the detector selection and the rule snapshot
// version, so a rule reload naturally misses instead of serving stale
// findings. Cache failures are logged and treated as misses: scanning
// never depends on Redis being up.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/zhcheck/zhcheck/internal/engine"
	"github.com/zhcheck/zhcheck/internal/issue"
)

// ResultCache handles Redis-based caching of scan results.
type ResultCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache creates a new Redis-based result cache and verifies the
// connection.
func NewResultCache(config *Config, logger *zap.Logger) (*ResultCache, error) {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "zhcheck"
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	rc := &ResultCache{
		client: client,
		config: config,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Result cache initialized",
		zap.String("addr", config.Addr),
		zap.Duration("default_ttl", config.DefaultTTL))
	return rc, nil
}

// Get looks up the cached result for a scan. A Redis error or corrupted
// entry is a miss, never a failure.
func (rc *ResultCache) Get(ctx context.Context, text string, modes issue.ModeSet, rulesVersion int64) (*engine.Result, bool) {
	key := rc.key(text, modes, rulesVersion)

	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		rc.misses.Add(1)
		return nil, false
	} else if err != nil {
		rc.misses.Add(1)
		rc.logger.Warn("Cache lookup failed", zap.Error(err))
		return nil, false
	}

	var cached CachedResult
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		rc.logger.Warn("Failed to unmarshal cached result", zap.Error(err))
		rc.client.Del(ctx, key)
		rc.misses.Add(1)
		return nil, false
	}

	rc.hits.Add(1)
	rc.logger.Debug("Cache hit", zap.String("key", key))
	return cached.Result, true
}

// Store caches a scan result with the configured TTL. Failures are logged
// and swallowed.
func (rc *ResultCache) Store(ctx context.Context, text string, modes issue.ModeSet, rulesVersion int64, result *engine.Result) {
	key := rc.key(text, modes, rulesVersion)

	data, err := json.Marshal(CachedResult{Result: result, CachedAt: time.Now()})
	if err != nil {
		rc.logger.Warn("Failed to marshal result for caching", zap.Error(err))
		return
	}
	if err := rc.client.Set(ctx, key, data, rc.config.DefaultTTL).Err(); err != nil {
		rc.logger.Warn("Failed to cache result", zap.Error(err))
		return
	}
	rc.logger.Debug("Result cached", zap.String("key", key))
}

// GetStats returns cache performance statistics.
func (rc *ResultCache) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Hits:   rc.hits.Load(),
		Misses: rc.misses.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	keys, err := rc.client.DBSize(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis key count: %w", err)
	}
	stats.TotalKeys = keys
	return stats, nil
}

// Clear removes all cached scan results under the configured prefix.
func (rc *ResultCache) Clear(ctx context.Context) error {
	iter := rc.client.Scan(ctx, 0, rc.config.KeyPrefix+":*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	batchSize := 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := rc.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	rc.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (rc *ResultCache) Close() error {
	if rc.client != nil {
		return rc.client.Close()
	}
	return nil
}

// key derives the cache key: one scan is identified by its text, its
// detector selection and the rule snapshot version it ran against.
func (rc *ResultCache) key(text string, modes issue.ModeSet, rulesVersion int64) string {
	hasher := sha256.New()
	hasher.Write([]byte(text))
	hasher.Write([]byte{0})
	hasher.Write([]byte(modes.Key()))
	hasher.Write([]byte{0})
	hasher.Write([]byte(fmt.Sprintf("%d", rulesVersion)))
	hash := hex.EncodeToString(hasher.Sum(nil))
	return fmt.Sprintf("%s:scan:%s", rc.config.KeyPrefix, hash[:32])
}
