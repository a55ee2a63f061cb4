package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preppal/interview-prep-ai/internal/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, ttl), mr
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	exp := &domain.ConceptExplanation{Title: "Closures", Explanation: "Captures variables."}
	c.Set(ctx, "What is a closure?", exp)

	got, ok := c.Get(ctx, "What is a closure?")
	require.True(t, ok)
	assert.Equal(t, exp, got)
}

func TestCache_MissOnUnknownQuestion(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	_, ok := c.Get(context.Background(), "never asked")
	assert.False(t, ok)
}

func TestCache_EntryExpires(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "q", &domain.ConceptExplanation{Title: "T"})
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "q")
	assert.False(t, ok)
}

func TestCache_CorruptEntryIsAMiss(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)

	require.NoError(t, mr.Set(Key("q"), "{not json"))
	_, ok := c.Get(context.Background(), "q")
	assert.False(t, ok)
}

func TestKey_StableAndOpaque(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Key("same question"), Key("same question"))
	assert.NotEqual(t, Key("a"), Key("b"))
	assert.NotContains(t, Key("what is SQL injection'; --"), "SQL")
	assert.Contains(t, Key("q"), "explanation:")
}

func TestCache_Ping(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	require.NoError(t, c.Ping(context.Background()))

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}
