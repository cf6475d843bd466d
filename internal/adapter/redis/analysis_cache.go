// Package redis caches provider analysis results so repeated runs over the
// same text do not burn provider quota.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/bakeyeon/sentiment-translator/internal/domain"
)

const analysisCacheTTL = 1 * time.Hour

// Store is the narrow cache surface the provider decorator needs. Misses and
// backend failures both report ok=false; the decorator treats them the same.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

type redisStore struct {
	rdb goredis.Cmdable
}

// NewStore wraps a go-redis client as a cache store.
func NewStore(rdb goredis.Cmdable) Store {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool) {
	data, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("Analysis cache GET failed", "error", err)
		}
		return "", false
	}
	return data, true
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.Warn("Analysis cache SET failed", "error", err)
	}
}

// NewClientFromURL connects a go-redis client and verifies the connection.
func NewClientFromURL(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// CachingProvider decorates an analysis provider with a read-through cache.
// Sentiment and translation results are cached by content hash; emoji gap
// suggestions are ephemeral and always pass through. Concurrent identical
// requests are collapsed with singleflight so a burst of sessions analyzing
// the same text costs one provider call.
type CachingProvider struct {
	next  domain.AnalysisProvider
	store Store
	ttl   time.Duration
	group singleflight.Group
}

func NewCachingProvider(next domain.AnalysisProvider, store Store) *CachingProvider {
	return &CachingProvider{
		next:  next,
		store: store,
		ttl:   analysisCacheTTL,
	}
}

func (c *CachingProvider) AnalyzeSentiment(ctx context.Context, text string) (domain.SentimentReading, error) {
	if strings.TrimSpace(text) == "" {
		return c.next.AnalyzeSentiment(ctx, text)
	}

	key := cacheKey("sentiment", text)
	return cached(ctx, c, key, func() (domain.SentimentReading, error) {
		return c.next.AnalyzeSentiment(ctx, text)
	})
}

func (c *CachingProvider) TranslateAndAnalyze(ctx context.Context, text, sourceLangCode, targetLangName string) (domain.TranslationResult, error) {
	key := cacheKey("translation", text, sourceLangCode, targetLangName)
	return cached(ctx, c, key, func() (domain.TranslationResult, error) {
		return c.next.TranslateAndAnalyze(ctx, text, sourceLangCode, targetLangName)
	})
}

// SuggestEmojiGap is never cached: suggestions are discarded on the next edit
// and the same delta rarely recurs.
func (c *CachingProvider) SuggestEmojiGap(ctx context.Context, req domain.EmojiGapRequest) (domain.EmojiSuggestion, error) {
	return c.next.SuggestEmojiGap(ctx, req)
}

// cached runs op through the cache and singleflight group under key.
func cached[T any](ctx context.Context, c *CachingProvider, key string, op func() (T, error)) (T, error) {
	if data, ok := c.store.Get(ctx, key); ok {
		var v T
		if err := json.Unmarshal([]byte(data), &v); err == nil {
			return v, nil
		}
		slog.Warn("Dropping undecodable analysis cache entry", "key", key)
	}

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, err := op()
		if err != nil {
			return nil, err
		}

		if encoded, err := json.Marshal(v); err == nil {
			c.store.Set(ctx, key, string(encoded), c.ttl)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

func cacheKey(op string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(op))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return "analysis_cache:" + op + ":" + hex.EncodeToString(h.Sum(nil))
}
