package providers

import (
	"context"
	"log/slog"

	"github.com/justchokingaround/vidsource/internal/providers/api"
)

// SourceAPI is the subset of the aggregator API client the adapter needs
type SourceAPI interface {
	GetMovieSources(ctx context.Context, movieID string) (*api.SourcesResponse, error)
	GetTVSources(ctx context.Context, seriesID string, season, episode int) (*api.SourcesResponse, error)
	GetAnimeSources(ctx context.Context, anilistID string, episode int, dubbed bool) (*api.SourcesResponse, error)
}

// Aggregator adapts the aggregation API to normalized sources
type Aggregator struct {
	client SourceAPI
	id     string
	logger *slog.Logger
}

// NewAggregator creates an aggregator adapter. id tags sources that do not
// name their own upstream provider.
func NewAggregator(client SourceAPI, id string, logger *slog.Logger) *Aggregator {
	if id == "" {
		id = DefaultAggregatorID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{client: client, id: id, logger: logger}
}

// ID returns the provider id used for untagged aggregator sources
func (a *Aggregator) ID() string {
	return a.id
}

// Sources fetches and normalizes the aggregator's sources for req. A request
// missing the identifiers for its kind yields no sources without a network call.
func (a *Aggregator) Sources(ctx context.Context, req SourceRequest) ([]VideoSource, error) {
	if err := req.Validate(); err != nil {
		return nil, nil
	}

	var (
		resp *api.SourcesResponse
		err  error
	)
	switch req.Kind {
	case MediaKindMovie:
		resp, err = a.client.GetMovieSources(ctx, req.MovieID)
	case MediaKindSeries:
		resp, err = a.client.GetTVSources(ctx, req.SeriesID, req.Season, req.Episode)
	case MediaKindAnime:
		resp, err = a.client.GetAnimeSources(ctx, req.AniListID, req.Episode, req.Dubbed)
	}
	if err != nil {
		return nil, err
	}

	sources := APIResponseToSources(resp, a.id)
	a.logger.Debug("aggregator sources", "kind", req.Kind, "id", req.ContentID(), "count", len(sources))
	return sources, nil
}
