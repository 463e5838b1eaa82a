package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	stockKey      = "inventory:stock"
	sessionPrefix = "session:"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies the connection
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

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SetStock records the stock of one product in the mirror hash
func (c *Client) SetStock(ctx context.Context, productID int64, stock int) error {
	return c.rdb.HSet(ctx, stockKey, strconv.FormatInt(productID, 10), stock).Err()
}

// GetStock reads the mirrored stock of a product. found is false when the product is not mirrored.
func (c *Client) GetStock(ctx context.Context, productID int64) (int, bool, error) {
	val, err := c.rdb.HGet(ctx, stockKey, strconv.FormatInt(productID, 10)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// DeleteStock removes a product from the mirror
func (c *Client) DeleteStock(ctx context.Context, productID int64) error {
	return c.rdb.HDel(ctx, stockKey, strconv.FormatInt(productID, 10)).Err()
}

// SyncStock replaces the whole mirror with stocks
func (c *Client) SyncStock(ctx context.Context, stocks map[int64]int) error {
	values := make(map[string]interface{}, len(stocks))
	for id, stock := range stocks {
		values[strconv.FormatInt(id, 10)] = stock
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, stockKey)
		if len(values) > 0 {
			pipe.HSet(ctx, stockKey, values)
		}
		return nil
	})
	return err
}

// SaveSession stores a session under its token with a TTL
func (c *Client) SaveSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return c.rdb.Set(ctx, sessionPrefix+session.Token, data, ttl).Err()
}

// GetSession loads a session, nil when the token is unknown or expired
func (c *Client) GetSession(ctx context.Context, token string) (*models.Session, error) {
	data, err := c.rdb.Get(ctx, sessionPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, sessionPrefix+token).Err()
}
