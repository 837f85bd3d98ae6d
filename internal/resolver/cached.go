package resolver

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/justchokingaround/vidsource/internal/metrics"
	"github.com/justchokingaround/vidsource/internal/providers"
)

// OutcomeResolver is a Resolver that reports where its candidates came from
type OutcomeResolver interface {
	Resolver
	ResolveOutcome(ctx context.Context, req providers.SourceRequest) ([]providers.VideoSource, string)
}

// Cached memoizes another Resolver by request key. Empty results are never
// stored, and when inner is an OutcomeResolver only aggregator results are,
// so a later call can still pick up a recovered aggregator.
type Cached struct {
	inner Resolver
	cache *lru.LRU[string, []providers.VideoSource]
}

// NewCached wraps inner with an expiring LRU of the given size
func NewCached(inner Resolver, size int, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: lru.NewLRU[string, []providers.VideoSource](size, nil, ttl),
	}
}

// Resolve returns a cached result when present, otherwise resolves and stores it
func (c *Cached) Resolve(ctx context.Context, req providers.SourceRequest) []providers.VideoSource {
	key := req.Key()
	if sources, ok := c.cache.Get(key); ok {
		metrics.RecordCacheLookup(true)
		return cloneSources(sources)
	}
	metrics.RecordCacheLookup(false)

	sources, cacheable := c.resolve(ctx, req)
	if cacheable && len(sources) > 0 {
		c.cache.Add(key, cloneSources(sources))
	}
	return sources
}

func (c *Cached) resolve(ctx context.Context, req providers.SourceRequest) ([]providers.VideoSource, bool) {
	if inner, ok := c.inner.(OutcomeResolver); ok {
		sources, outcome := inner.ResolveOutcome(ctx, req)
		return sources, outcome == metrics.OutcomeAggregator
	}
	return c.inner.Resolve(ctx, req), true
}

// Invalidate drops the cached result for req
func (c *Cached) Invalidate(req providers.SourceRequest) {
	c.cache.Remove(req.Key())
}

// Purge drops every cached entry
func (c *Cached) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached requests
func (c *Cached) Len() int {
	return c.cache.Len()
}

func cloneSources(sources []providers.VideoSource) []providers.VideoSource {
	out := make([]providers.VideoSource, len(sources))
	for i, s := range sources {
		s.Subtitles = append([]providers.CaptionRef(nil), s.Subtitles...)
		out[i] = s
	}
	return out
}
