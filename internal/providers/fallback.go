package providers

import (
	"fmt"
	"log/slog"
)

// FallbackGenerator builds embed sources directly from the registry without
// any network access
type FallbackGenerator struct {
	registry *Registry
	logger   *slog.Logger
}

// NewFallbackGenerator creates a fallback generator over registry
func NewFallbackGenerator(registry *Registry, logger *slog.Logger) *FallbackGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackGenerator{registry: registry, logger: logger}
}

// Generate returns one source per provider that can build a URL for req, in priority order
func (g *FallbackGenerator) Generate(req SourceRequest) []VideoSource {
	var sources []VideoSource
	for _, p := range g.registry.ForKind(req.Kind) {
		embedURL, err := p.GenerateURL(req)
		if err != nil {
			g.logger.Debug("skipping fallback provider", "provider", p.ID, "error", err)
			continue
		}
		sources = append(sources, VideoSource{
			ID:       p.ID + "-fallback",
			Name:     fmt.Sprintf("%s (Fallback)", p.Name),
			Quality:  QualityAuto,
			URL:      embedURL,
			Kind:     SourceKindEmbed,
			Provider: p.ID,
		})
	}
	return sources
}
