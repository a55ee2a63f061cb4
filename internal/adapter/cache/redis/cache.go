// Package redis caches concept explanations keyed by the question text.
// Cache failures are logged and treated as misses so a down Redis never
// breaks the explanation path.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/preppal/interview-prep-ai/internal/domain"
)

const keyPrefix = "explanation:"

// Cache is an ExplanationCache backed by Redis.
type Cache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// New builds a Cache around an existing Redis client.
func New(rdb *goredis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Key returns the cache key for a question: a stable hash so arbitrary
// question text never leaks into Redis key space.
func Key(question string) string {
	sum := sha256.Sum256([]byte(question))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *Cache) Get(ctx context.Context, question string) (*domain.ConceptExplanation, bool) {
	raw, err := c.rdb.Get(ctx, Key(question)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			slog.Warn("explanation cache get failed", slog.Any("error", err))
		}
		return nil, false
	}
	var exp domain.ConceptExplanation
	if err := json.Unmarshal(raw, &exp); err != nil {
		slog.Warn("explanation cache entry corrupt", slog.Any("error", err))
		return nil, false
	}
	return &exp, true
}

func (c *Cache) Set(ctx context.Context, question string, exp *domain.ConceptExplanation) {
	raw, err := json.Marshal(exp)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, Key(question), raw, c.ttl).Err(); err != nil {
		slog.Warn("explanation cache set failed", slog.Any("error", err))
	}
}

// Ping verifies connectivity, used by the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
