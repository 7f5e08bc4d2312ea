package genai

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ai-receptionist/internal/common/logger"
	"ai-receptionist/internal/common/metrics"
)

const cacheTTL = 24 * time.Hour

// ResponseCache stores generated responses in redis so repeated
// questions over the same retrieved context skip the paid LLM call.
type ResponseCache struct {
	client *redis.Client
	logger logger.Logger
}

func NewResponseCache(client *redis.Client, log logger.Logger) *ResponseCache {
	return &ResponseCache{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "response_cache"}),
	}
}

// Key derives the cache key from the normalized query and a hash of the
// retrieved context, so the same question against different context
// never collides.
func (rc *ResponseCache) Key(query, contextHash string) string {
	keyString := fmt.Sprintf("%s:%s", strings.ToLower(strings.TrimSpace(query)), contextHash)
	sum := md5.Sum([]byte(keyString))
	return "genai:response:" + hex.EncodeToString(sum[:])
}

// Get returns the cached response, if any. Redis errors count as misses.
func (rc *ResponseCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := rc.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			rc.logger.Warn("response cache read failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		metrics.ResponseCacheLookups.WithLabelValues("miss").Inc()
		return "", false
	}
	metrics.ResponseCacheLookups.WithLabelValues("hit").Inc()
	return val, true
}

// Set stores a response with the 24h TTL. Write failures are logged
// only; caching is an optimization, never a dependency.
func (rc *ResponseCache) Set(ctx context.Context, key, response string) {
	if err := rc.client.Set(ctx, key, response, cacheTTL).Err(); err != nil {
		rc.logger.Warn("response cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// ContextHash fingerprints retrieved passages for cache keying.
func ContextHash(passages []Passage) string {
	if len(passages) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range passages {
		b.WriteString(p.Text)
		b.WriteString("\n\n")
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// CachedGenerator wraps a Generator with the response cache. Cache hits
// carry the cached provenance tag and never touch the network.
type CachedGenerator struct {
	generator Generator
	cache     *ResponseCache
}

func NewCachedGenerator(generator Generator, cache *ResponseCache) *CachedGenerator {
	return &CachedGenerator{generator: generator, cache: cache}
}

func (cg *CachedGenerator) Generate(ctx context.Context, query string, history []Message, passages []Passage) (string, string, error) {
	key := cg.cache.Key(query, ContextHash(passages))
	if cached, ok := cg.cache.Get(ctx, key); ok {
		return cached, ProvenanceLLMCached, nil
	}

	text, provenance, err := cg.generator.Generate(ctx, query, history, passages)
	if err != nil {
		return text, provenance, err
	}

	cg.cache.Set(ctx, key, text)
	return text, provenance, nil
}
