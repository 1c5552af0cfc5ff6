package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/talentrail/talentrail-backend/internal/logger"
)

// PublishedVersionCache caches the current published version per template
// name so the hot step-start path skips a database round trip. It is a pure
// optimization: every method tolerates a nil cache and cache misses.
type PublishedVersionCache interface {
	Get(ctx context.Context, name string) (int, bool)
	Set(ctx context.Context, name string, version int)
	Invalidate(ctx context.Context, name string)
	Close() error
}

type versionCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewPublishedVersionCache(log *logger.Logger) (PublishedVersionCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &versionCache{
		log: log.With("service", "PublishedVersionCache"),
		rdb: rdb,
		ttl: 10 * time.Minute,
	}, nil
}

func cacheKey(name string) string {
	return "template:published:" + name
}

func (c *versionCache) Get(ctx context.Context, name string) (int, bool) {
	if c == nil || c.rdb == nil {
		return 0, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey(name)).Result()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("Cache read failed", "template", name, "error", err)
		}
		return 0, false
	}
	version, err := strconv.Atoi(raw)
	if err != nil || version < 1 {
		return 0, false
	}
	return version, true
}

func (c *versionCache) Set(ctx context.Context, name string, version int) {
	if c == nil || c.rdb == nil || version < 1 {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(name), strconv.Itoa(version), c.ttl).Err(); err != nil {
		c.log.Warn("Cache write failed", "template", name, "error", err)
	}
}

func (c *versionCache) Invalidate(ctx context.Context, name string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, cacheKey(name)).Err(); err != nil {
		c.log.Warn("Cache invalidation failed", "template", name, "error", err)
	}
}

func (c *versionCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
