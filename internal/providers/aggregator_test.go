package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/vidsource/internal/providers/api"
)

type fakeSourceAPI struct {
	calls []string
	resp  *api.SourcesResponse
	err   error
}

func (f *fakeSourceAPI) GetMovieSources(ctx context.Context, movieID string) (*api.SourcesResponse, error) {
	f.calls = append(f.calls, "movie:"+movieID)
	return f.resp, f.err
}

func (f *fakeSourceAPI) GetTVSources(ctx context.Context, seriesID string, season, episode int) (*api.SourcesResponse, error) {
	f.calls = append(f.calls, "tv:"+seriesID)
	return f.resp, f.err
}

func (f *fakeSourceAPI) GetAnimeSources(ctx context.Context, anilistID string, episode int, dubbed bool) (*api.SourcesResponse, error) {
	call := "anime:" + anilistID + ":sub"
	if dubbed {
		call = "anime:" + anilistID + ":dub"
	}
	f.calls = append(f.calls, call)
	return f.resp, f.err
}

func TestAggregator_Sources(t *testing.T) {
	t.Run("routes by media kind", func(t *testing.T) {
		fake := &fakeSourceAPI{resp: &api.SourcesResponse{
			Sources: []api.Source{{Name: "Alpha", URL: "https://a.example/1"}},
		}}
		agg := NewAggregator(fake, "", nil)

		ctx := context.Background()
		_, err := agg.Sources(ctx, SourceRequest{Kind: MediaKindMovie, MovieID: "550"})
		require.NoError(t, err)
		_, err = agg.Sources(ctx, SourceRequest{Kind: MediaKindSeries, SeriesID: "1399", Season: 1, Episode: 1})
		require.NoError(t, err)
		sources, err := agg.Sources(ctx, SourceRequest{Kind: MediaKindAnime, AniListID: "21", Episode: 5, Dubbed: true})
		require.NoError(t, err)

		assert.Equal(t, []string{"movie:550", "tv:1399", "anime:21:dub"}, fake.calls)
		require.Len(t, sources, 1)
		assert.Equal(t, "p-stream-0", sources[0].ID)
	})

	t.Run("skips network for incomplete requests", func(t *testing.T) {
		fake := &fakeSourceAPI{}
		agg := NewAggregator(fake, "p-stream", nil)

		sources, err := agg.Sources(context.Background(), SourceRequest{Kind: MediaKindSeries, SeriesID: "1399"})
		require.NoError(t, err)
		assert.Empty(t, sources)
		assert.Empty(t, fake.calls)
	})

	t.Run("propagates client errors", func(t *testing.T) {
		fake := &fakeSourceAPI{err: errors.New("boom")}
		agg := NewAggregator(fake, "p-stream", nil)

		_, err := agg.Sources(context.Background(), SourceRequest{Kind: MediaKindMovie, MovieID: "550"})
		assert.EqualError(t, err, "boom")
	})
}
