package extract

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/scribe/internal/helpers"
)

// DefaultCacheTTL is how long extracted text stays reusable. Pages
// change slowly relative to research runs, so a day is plenty.
const DefaultCacheTTL = 24 * time.Hour

// RedisCache keys extracted text by a fingerprint of the canonical
// URL, so tracking-parameter variants of the same page share an entry.
// Redis errors are logged and treated as misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *log.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags)
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) key(url string) string {
	fp, err := helpers.URLFingerprint(url)
	if err != nil {
		// Unparseable URLs still get a stable, if unshared, key.
		fp = url
	}
	return "extract:" + fp
}

func (c *RedisCache) Get(ctx context.Context, url string) (string, bool) {
	text, err := c.client.Get(ctx, c.key(url)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Printf("cache get failed for %s: %v", url, err)
		}
		return "", false
	}
	return text, true
}

func (c *RedisCache) Set(ctx context.Context, url, text string) {
	if err := c.client.Set(ctx, c.key(url), text, c.ttl).Err(); err != nil {
		c.logger.Printf("cache set failed for %s: %v", url, err)
	}
}
