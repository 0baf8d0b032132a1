package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SearchCache 是搜索结果缓存的最小接口，internal/cache.Manager 满足该接口。
type SearchCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CachedSearchProvider 为搜索加上缓存，并合并并发的相同查询。
type CachedSearchProvider struct {
	inner  WebSearchProvider
	cache  SearchCache
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger

	onLookup func(hit bool)
}

func NewCachedSearchProvider(inner WebSearchProvider, cache SearchCache, ttl time.Duration, logger *zap.Logger) *CachedSearchProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedSearchProvider{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "search_cache")),
	}
}

// OnLookup 注册缓存命中回调，用于指标统计。
func (c *CachedSearchProvider) OnLookup(fn func(hit bool)) *CachedSearchProvider {
	c.onLookup = fn
	return c
}

func (c *CachedSearchProvider) Name() string { return c.inner.Name() }

func (c *CachedSearchProvider) Search(ctx context.Context, query string, opts WebSearchOptions) ([]WebSearchResult, error) {
	key := cacheKey(c.inner.Name(), query, opts)

	v, err, shared := c.group.Do(key, func() (any, error) {
		if c.cache != nil {
			var cached []WebSearchResult
			if err := c.cache.GetJSON(ctx, key, &cached); err == nil {
				c.logger.Debug("search cache hit", zap.String("query", query))
				c.lookup(true)
				return cached, nil
			}
			c.lookup(false)
		}

		results, err := c.inner.Search(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			if err := c.cache.SetJSON(ctx, key, results, c.ttl); err != nil {
				c.logger.Warn("search cache set failed", zap.Error(err))
			}
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("search shared with concurrent caller", zap.String("query", query))
	}
	return v.([]WebSearchResult), nil
}

func (c *CachedSearchProvider) lookup(hit bool) {
	if c.onLookup != nil {
		c.onLookup(hit)
	}
}

func cacheKey(provider, query string, opts WebSearchOptions) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("search:%s:%s:%d:%s", provider, opts.Region, opts.MaxResults, hex.EncodeToString(sum[:8]))
}
