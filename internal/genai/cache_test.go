package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-receptionist/internal/common/logger"
)

func testCache(t *testing.T) (*ResponseCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewResponseCache(client, logger.NewNoOpLogger()), mr
}

func TestResponseCache_HitMiss(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	key := cache.Key("What are your hours?", "ctx123")
	_, ok := cache.Get(ctx, key)
	assert.False(t, ok)

	cache.Set(ctx, key, "We are open 11 to 9.")
	val, ok := cache.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "We are open 11 to 9.", val)
}

func TestResponseCache_KeyNormalization(t *testing.T) {
	cache, _ := testCache(t)

	// Case and surrounding whitespace do not change the key.
	assert.Equal(t, cache.Key("  What ARE your hours?  ", "h"), cache.Key("what are your hours?", "h"))
	// Different retrieved context yields a different key.
	assert.NotEqual(t, cache.Key("what are your hours?", "a"), cache.Key("what are your hours?", "b"))
}

func TestResponseCache_TTLExpiry(t *testing.T) {
	cache, mr := testCache(t)
	ctx := context.Background()

	key := cache.Key("q", "")
	cache.Set(ctx, key, "answer")

	mr.FastForward(23 * time.Hour)
	_, ok := cache.Get(ctx, key)
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)
	_, ok = cache.Get(ctx, key)
	assert.False(t, ok)
}

type scriptedGenerator struct {
	text  string
	err   error
	calls int
}

func (g *scriptedGenerator) Generate(ctx context.Context, query string, history []Message, passages []Passage) (string, string, error) {
	g.calls++
	if g.err != nil {
		return "apology", ProvenanceLLMError, g.err
	}
	return g.text, ProvenanceLLM, nil
}

func TestCachedGenerator(t *testing.T) {
	cache, _ := testCache(t)
	gen := &scriptedGenerator{text: "fresh answer"}
	cg := NewCachedGenerator(gen, cache)
	ctx := context.Background()

	passages := []Passage{{Text: "Opening hours: daily."}}

	text, provenance, err := cg.Generate(ctx, "when are you open", nil, passages)
	require.NoError(t, err)
	assert.Equal(t, "fresh answer", text)
	assert.Equal(t, ProvenanceLLM, provenance)
	assert.Equal(t, 1, gen.calls)

	text, provenance, err = cg.Generate(ctx, "when are you open", nil, passages)
	require.NoError(t, err)
	assert.Equal(t, "fresh answer", text)
	assert.Equal(t, ProvenanceLLMCached, provenance)
	assert.Equal(t, 1, gen.calls, "second identical query never reaches the generator")
}

func TestCachedGenerator_ErrorsNotCached(t *testing.T) {
	cache, _ := testCache(t)
	gen := &scriptedGenerator{err: errors.New("api down")}
	cg := NewCachedGenerator(gen, cache)
	ctx := context.Background()

	_, provenance, err := cg.Generate(ctx, "q", nil, nil)
	assert.Error(t, err)
	assert.Equal(t, ProvenanceLLMError, provenance)

	_, _, _ = cg.Generate(ctx, "q", nil, nil)
	assert.Equal(t, 2, gen.calls, "failed responses are not cached")
}
