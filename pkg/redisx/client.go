package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danghamo/twieo/pkg/logger"
)

// Client wraps redis.Client with logging helpers
type Client struct {
	*redis.Client
	url    string
	logger *logger.Logger
}

// NewClient creates a new Redis client from URL and verifies the connection
func NewClient(redisURL string, log *logger.Logger) (*Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL cannot be empty")
	}

	if log == nil {
		log = logger.GetGlobalLogger()
	}

	redisOptions, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := &Client{
		Client: redis.NewClient(redisOptions),
		url:    redisURL,
		logger: log.WithComponent("redisx"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client.logger.Info("Redis client connected successfully",
		zap.String("addr", redisOptions.Addr),
		zap.Int("db", redisOptions.DB),
		zap.Int("pool_size", redisOptions.PoolSize),
	)

	return client, nil
}

// URL returns the URL the client was created from
func (c *Client) URL() string {
	return c.url
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	c.logger.Info("Closing Redis connection")
	return c.Client.Close()
}

// HealthCheck performs a health check on the Redis connection
func (c *Client) HealthCheck(ctx context.Context) error {
	start := time.Now()
	err := c.Ping(ctx).Err()
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Redis health check failed",
			zap.Error(err),
			zap.Duration("duration", duration),
		)
		return err
	}

	c.logger.Debug("Redis health check passed",
		zap.Duration("duration", duration),
	)

	return nil
}

// RPushWithLogging appends values to the tail of a list with logging
func (c *Client) RPushWithLogging(ctx context.Context, key string, values ...any) (int64, error) {
	start := time.Now()
	result := c.RPush(ctx, key, values...)
	duration := time.Since(start)

	if result.Err() != nil {
		c.logger.Error("Failed to append to list",
			zap.String("key", key),
			zap.Duration("duration", duration),
			zap.Error(result.Err()),
		)
		return 0, result.Err()
	}

	c.logger.Debug("Appended to list",
		zap.String("key", key),
		zap.Int64("length", result.Val()),
		zap.Duration("duration", duration),
	)

	return result.Val(), nil
}

// LRangeWithLogging reads a list range with logging
func (c *Client) LRangeWithLogging(ctx context.Context, key string, start, stop int64) ([]string, error) {
	began := time.Now()
	result := c.LRange(ctx, key, start, stop)
	duration := time.Since(began)

	if result.Err() != nil {
		c.logger.Error("Failed to read list",
			zap.String("key", key),
			zap.Duration("duration", duration),
			zap.Error(result.Err()),
		)
		return nil, result.Err()
	}

	c.logger.Debug("Read list",
		zap.String("key", key),
		zap.Int("item_count", len(result.Val())),
		zap.Duration("duration", duration),
	)

	return result.Val(), nil
}
