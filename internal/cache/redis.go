package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/universal-product-parser/internal/models"
)

const redisKeyPrefix = "parser:result:"

// RedisCache shares extraction results across parser instances. TTL
// handling is delegated to redis; capacity is redis's concern, so no
// FIFO bookkeeping here.
type RedisCache struct {
	client      *redis.Client
	directTTL   time.Duration
	renderedTTL time.Duration
	logger      *slog.Logger
}

func NewRedisCache(ctx context.Context, addr string, db int, directTTL, renderedTTL time.Duration, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisCache{
		client:      client,
		directTTL:   directTTL,
		renderedTTL: renderedTTL,
		logger:      logger.With("component", "redis_cache"),
	}, nil
}

func (c *RedisCache) Get(url string) (*models.ProductRecord, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := c.client.Get(ctx, redisKeyPrefix+url).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Error("cache read failed", "error", err, "url", url)
		}
		return nil, false
	}

	var record models.ProductRecord
	if err := json.Unmarshal(data, &record); err != nil {
		c.logger.Error("corrupt cache entry", "error", err, "url", url)
		return nil, false
	}

	return &record, true
}

func (c *RedisCache) Set(url string, record *models.ProductRecord, strategy models.Strategy) {
	data, err := json.Marshal(record)
	if err != nil {
		c.logger.Error("failed to marshal record", "error", err, "url", url)
		return
	}

	ttl := c.directTTL
	if strategy == models.StrategyRendered {
		ttl = c.renderedTTL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.client.Set(ctx, redisKeyPrefix+url, data, ttl).Err(); err != nil {
		c.logger.Error("cache write failed", "error", err, "url", url)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
