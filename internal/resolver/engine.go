package resolver

import (
	"context"
	"log/slog"

	"github.com/justchokingaround/vidsource/internal/metrics"
	"github.com/justchokingaround/vidsource/internal/providers"
)

// Resolver produces the ordered candidate list for a request
type Resolver interface {
	Resolve(ctx context.Context, req providers.SourceRequest) []providers.VideoSource
}

// SourceFetcher is the primary source of candidates, normally the aggregator
type SourceFetcher interface {
	ID() string
	Sources(ctx context.Context, req providers.SourceRequest) ([]providers.VideoSource, error)
}

// Engine merges aggregator results with the provider registry. It holds no
// state between calls and is safe for concurrent use.
type Engine struct {
	primary  SourceFetcher
	registry *providers.Registry
	fallback *providers.FallbackGenerator
	logger   *slog.Logger
}

// NewEngine creates a resolution engine. primary may be nil, in which case
// every resolution goes straight to the fallback generator.
func NewEngine(primary SourceFetcher, registry *providers.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		primary:  primary,
		registry: registry,
		fallback: providers.NewFallbackGenerator(registry, logger),
		logger:   logger,
	}
}

// Registry returns the provider registry the engine ranks against
func (e *Engine) Registry() *providers.Registry {
	return e.registry
}

// Resolve returns deduplicated candidates sorted by provider priority.
// Failures only shrink the list; an empty list means nothing could be produced.
func (e *Engine) Resolve(ctx context.Context, req providers.SourceRequest) []providers.VideoSource {
	sources, _ := e.ResolveOutcome(ctx, req)
	return sources
}

// ResolveOutcome is Resolve that also reports where the candidates came from:
// metrics.OutcomeAggregator, OutcomeFallback or OutcomeEmpty.
func (e *Engine) ResolveOutcome(ctx context.Context, req providers.SourceRequest) ([]providers.VideoSource, string) {
	sources, outcome := e.primarySources(ctx, req)

	if len(sources) == 0 {
		sources = e.fallback.Generate(req)
		outcome = metrics.OutcomeFallback
	}

	present := make(map[string]bool, len(sources))
	for _, s := range sources {
		present[s.Provider] = true
	}

	for _, p := range e.registry.ForKind(req.Kind) {
		if present[p.ID] {
			continue
		}
		embedURL, err := p.GenerateURL(req)
		if err != nil {
			e.logger.Debug("provider cannot serve request", "provider", p.ID, "kind", req.Kind, "error", err)
			continue
		}
		sources = append(sources, providers.VideoSource{
			ID:       p.ID + "-embed",
			Name:     p.Name,
			Quality:  providers.QualityAuto,
			URL:      embedURL,
			Kind:     providers.SourceKindEmbed,
			Provider: p.ID,
		})
		present[p.ID] = true
	}

	sources = dedupe(sources)
	e.registry.SortByPriority(sources)

	if len(sources) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	metrics.RecordResolution(outcome)

	e.logger.Debug("resolved sources",
		"kind", req.Kind,
		"id", req.ContentID(),
		"outcome", outcome,
		"count", len(sources),
	)

	return sources, outcome
}

func (e *Engine) primarySources(ctx context.Context, req providers.SourceRequest) ([]providers.VideoSource, string) {
	if e.primary == nil {
		return nil, metrics.OutcomeFallback
	}

	sources, err := e.primary.Sources(ctx, req)
	if err != nil {
		e.logger.Warn("aggregator failed, using fallback providers", "aggregator", e.primary.ID(), "error", err)
		metrics.RecordProviderFailure(e.primary.ID())
		return nil, metrics.OutcomeFallback
	}
	return sources, metrics.OutcomeAggregator
}

// dedupe drops later sources that repeat a (provider, url) pair
func dedupe(sources []providers.VideoSource) []providers.VideoSource {
	type key struct{ provider, url string }

	seen := make(map[key]bool, len(sources))
	out := make([]providers.VideoSource, 0, len(sources))
	for _, s := range sources {
		k := key{s.Provider, s.URL}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
