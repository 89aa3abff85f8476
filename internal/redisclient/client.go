package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fulfillment-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// CacheOrder stores an order snapshot for the admin read path
func (c *Client) CacheOrder(ctx context.Context, order *models.Order, ttl time.Duration) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	return c.rdb.Set(ctx, orderKey(order.ID), data, ttl).Err()
}

// GetCachedOrder retrieves a cached order; returns nil without error on a
// cache miss
func (c *Client) GetCachedOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	data, err := c.rdb.Get(ctx, orderKey(orderID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached order: %w", err)
	}
	return &order, nil
}

// InvalidateOrder drops the cached snapshot after a mutation
func (c *Client) InvalidateOrder(ctx context.Context, orderID int64) error {
	return c.rdb.Del(ctx, orderKey(orderID)).Err()
}

// AcquireLock acquires a short-TTL lock; the reconciler uses it so a
// periodic sync and a manual sync never run for the same order at once
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}
