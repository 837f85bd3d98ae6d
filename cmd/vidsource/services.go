package main

import (
	"fmt"
	"log/slog"

	"github.com/justchokingaround/vidsource/internal/config"
	"github.com/justchokingaround/vidsource/internal/providers"
	"github.com/justchokingaround/vidsource/internal/providers/api"
	"github.com/justchokingaround/vidsource/internal/resolver"
	"github.com/justchokingaround/vidsource/internal/subtitles"
)

// services holds the resolution stack built from configuration
type services struct {
	registry  *providers.Registry
	engine    *resolver.Engine
	resolver  resolver.Resolver
	fallback  *providers.FallbackGenerator
	subtitles *subtitles.Service
}

func buildServices(cfg *config.Config, logger *slog.Logger) (*services, error) {
	theme := providers.EmbedTheme{
		PrimaryColor:   cfg.Providers.Theme.PrimaryColor,
		SecondaryColor: cfg.Providers.Theme.SecondaryColor,
		IconColor:      cfg.Providers.Theme.IconColor,
		Autoplay:       cfg.Providers.Theme.Autoplay,
	}
	enabled := providers.FilterProviders(providers.EmbedProviders(theme), cfg.Providers.Disabled)

	registry, err := providers.NewRegistry(enabled...)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}
	logger.Debug("provider registry ready", "providers", registry.List())

	aggregatorID := cfg.API.ProviderID
	if aggregatorID == "" {
		aggregatorID = providers.DefaultAggregatorID
	}
	aggregator := providers.NewAggregator(api.NewClient(cfg, logger), aggregatorID, logger)

	engine := resolver.NewEngine(aggregator, registry, logger)
	var res resolver.Resolver = engine
	if cfg.Cache.Size > 0 {
		res = resolver.NewCached(engine, cfg.Cache.Size, cfg.Cache.TTL)
	}

	return &services{
		registry:  registry,
		engine:    engine,
		resolver:  res,
		fallback:  providers.NewFallbackGenerator(registry, logger),
		subtitles: subtitles.NewService(cfg, logger),
	}, nil
}
