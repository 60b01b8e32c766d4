package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/s33g/promptfit/internal/config"
)

// Client is a Redis connection shared by the summary store, history and
// quota checks. Every key it hands out carries the configured prefix.
type Client struct {
	rdb  *redis.Client
	keys *Keys
	addr string
}

// NewClient dials Redis and fails unless the server answers a ping
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	c := &Client{
		rdb:  redis.NewClient(redisOptions(cfg)),
		keys: NewKeys(cfg.KeyPrefix),
		addr: cfg.Address,
	}

	if err := c.Ping(ctx); err != nil {
		c.rdb.Close()
		return nil, err
	}
	return c, nil
}

// redisOptions resolves the password from password_env, never from the file itself
func redisOptions(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{Addr: cfg.Address, DB: cfg.DB}
	if cfg.PasswordEnv != "" {
		opts.Password = os.Getenv(cfg.PasswordEnv)
	}
	return opts
}

// Ping checks that the server is reachable
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis at %s unreachable: %w", c.addr, err)
	}
	return nil
}

// Address is the configured server address
func (c *Client) Address() string { return c.addr }

func (c *Client) Close() error { return c.rdb.Close() }

// Redis exposes the go-redis client for pipelines and scripts
func (c *Client) Redis() *redis.Client { return c.rdb }

func (c *Client) Keys() *Keys { return c.keys }
