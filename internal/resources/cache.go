package resources

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"preflight/internal/config"
	"preflight/pkg/errors"
)

// Cache brings a Redis-compatible cache service online. The connection probe
// is a PING; initialization opens the long-lived client and records the
// server version reported by INFO.
type Cache struct {
	base
	cfg *config.CacheConfig

	mu     sync.Mutex
	client *redis.Client
}

// NewCache creates the cache variant from its configuration.
func NewCache(name string, cfg *config.CacheConfig, logger *zap.Logger) *Cache {
	return &Cache{
		base: newBase(name, logger),
		cfg:  cfg,
	}
}

func (c *Cache) ValidateConfiguration() error {
	if c.cfg == nil {
		return c.fail(errors.NewConfiguration("cache configuration is missing"))
	}
	return validateConfig(c.status, c.cfg)
}

// TestConnection pings the cache once with a throwaway client.
func (c *Cache) TestConnection(ctx context.Context) error {
	probe := redis.NewClient(c.options())
	defer probe.Close()

	if err := probe.Ping(ctx).Err(); err != nil {
		return c.fail(errors.NewConnectivity("cache ping failed", err))
	}
	return nil
}

// Initialize opens the long-lived client and records server diagnostics.
func (c *Cache) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return nil
	}

	client := redis.NewClient(c.options())
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return c.fail(errors.NewConnectivity("cache unreachable", err))
	}

	if info, err := client.Info(ctx, "server").Result(); err == nil {
		if version := parseRedisVersion(info); version != "" {
			c.status.AddData("server_version", version)
		}
	}
	c.status.AddData("addr", c.cfg.Addr)
	c.status.AddData("db", c.cfg.DB)

	c.client = client
	c.logger.Info("cache client connected", zap.String("addr", c.cfg.Addr))
	return nil
}

// Client returns the live cache client, or nil before initialization.
func (c *Cache) Client() *redis.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// Close releases the cache client. Safe to call on an uninitialized Cache.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil {
		return errors.NewResource("failed to close cache client", err)
	}
	c.logger.Info("cache client closed")
	return nil
}

func (c *Cache) options() *redis.Options {
	return &redis.Options{
		Addr:     c.cfg.Addr,
		Password: c.cfg.Password,
		DB:       c.cfg.DB,
		PoolSize: c.cfg.PoolSize,
	}
}

// parseRedisVersion extracts redis_version from an INFO server section.
func parseRedisVersion(info string) string {
	for _, line := range strings.Split(info, "\r\n") {
		if v, ok := strings.CutPrefix(line, "redis_version:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
