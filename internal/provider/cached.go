package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/formpilot/formpilot/internal/resolve"
)

// Cached wraps a generation backend with a Redis answer cache. Cache failures
// are logged and ignored; the wrapped backend is always the source of truth.
type Cached struct {
	inner  resolve.Backend
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCached decorates inner with a Redis cache. Entries expire after ttl.
func NewCached(inner resolve.Backend, client *redis.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cached{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
	}
}

func (c *Cached) Tag() resolve.Source { return c.inner.Tag() }

func (c *Cached) Generate(ctx context.Context, question, userContext string) (string, error) {
	key := cacheKey(c.inner.Tag(), question, userContext)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil && cached != "" {
		return cached, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Printf("cache read failed: %v", err)
	}

	answer, err := c.inner.Generate(ctx, question, userContext)
	if err != nil {
		return "", err
	}
	if answer != "" {
		if err := c.client.Set(ctx, key, answer, c.ttl).Err(); err != nil {
			c.logger.Printf("cache write failed: %v", err)
		}
	}
	return answer, nil
}

// cacheKey derives a stable key from the tier tag and the full prompt inputs,
// so changed user context never serves a stale answer.
func cacheKey(tag resolve.Source, question, userContext string) string {
	sum := sha256.Sum256([]byte(question + "\x00" + userContext))
	return fmt.Sprintf("formpilot:answer:%s:%s", tag, hex.EncodeToString(sum[:]))
}
