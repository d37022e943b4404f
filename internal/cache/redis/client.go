package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/devfeed/backend/internal/cache"
	"github.com/devfeed/backend/pkg/circuitbreaker"
	"github.com/devfeed/backend/pkg/logger"
)

// Client implements cache.Distributed on redis. Every call runs through a
// circuit breaker so a dead redis short-circuits to fast failures instead of
// stacking connection timeouts on the request path.
type Client struct {
	client *redis.Client
	cb     *circuitbreaker.CircuitBreaker
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("redis", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          15 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	logger.Info("Redis cache tier initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, cb: cb}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	miss := false

	err := c.cb.Execute(ctx, func() error {
		b, err := c.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			miss = true
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	if miss {
		return nil, cache.ErrNotFound
	}
	return data, nil
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.cb.Execute(ctx, func() error {
		return c.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := c.cb.Execute(ctx, func() error {
		return c.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}
