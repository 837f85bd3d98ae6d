package main

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/vidsource/internal/config"
	"github.com/justchokingaround/vidsource/internal/database"
	"github.com/justchokingaround/vidsource/internal/providers"
	"github.com/justchokingaround/vidsource/internal/resolver"
)

func newRequestCmd(t *testing.T, flags ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addRequestFlags(cmd)
	addOutputFlag(cmd)
	cmd.Flags().Bool("sub", false, "")
	require.NoError(t, cmd.Flags().Parse(flags))
	return cmd
}

func TestRequestFromArgs(t *testing.T) {
	req, err := requestFromArgs(newRequestCmd(t), []string{"movie", "550"})
	require.NoError(t, err)
	assert.Equal(t, providers.SourceRequest{Kind: providers.MediaKindMovie, MovieID: "550"}, req)

	req, err = requestFromArgs(newRequestCmd(t, "-s", "1", "-e", "2"), []string{"tv", "1399"})
	require.NoError(t, err)
	assert.Equal(t, providers.SourceRequest{Kind: providers.MediaKindSeries, SeriesID: "1399", Season: 1, Episode: 2}, req)

	req, err = requestFromArgs(newRequestCmd(t, "--episode", "5", "--dub"), []string{"anime", "21"})
	require.NoError(t, err)
	assert.True(t, req.Dubbed)

	_, err = requestFromArgs(newRequestCmd(t), []string{"series", "1399"})
	assert.ErrorIs(t, err, providers.ErrInvalidRequest)

	_, err = requestFromArgs(newRequestCmd(t), []string{"podcast", "1"})
	assert.ErrorIs(t, err, providers.ErrInvalidRequest)
}

func TestRender(t *testing.T) {
	sources := []providers.VideoSource{{ID: "vidplus-embed", Name: "VidPlus", Quality: "auto", URL: "https://player.vidplus.to/embed/movie/550", Kind: providers.SourceKindEmbed, Provider: "vidplus"}}
	rows := [][]string{{"1", "vidplus-embed", "VidPlus"}}

	tests := []struct {
		format string
		want   []string
	}{
		{"table", []string{"ID", "vidplus-embed", "VidPlus"}},
		{"json", []string{`"id": "vidplus-embed"`, `"type": "embed"`}},
		{"yaml", []string{"id: vidplus-embed", "type: embed", "url: https://player.vidplus.to/embed/movie/550"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cmd := newRequestCmd(t, "-o", tt.format)
			var out bytes.Buffer
			cmd.SetOut(&out)

			require.NoError(t, render(cmd, sources, []string{"#", "ID", "Name"}, rows))
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestRender_EmptyAndUnknownFormat(t *testing.T) {
	cmd := newRequestCmd(t)
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, render(cmd, []providers.VideoSource{}, []string{"#"}, nil))
	assert.Contains(t, out.String(), "No results")

	cmd = newRequestCmd(t, "-o", "xml")
	assert.Error(t, render(cmd, nil, nil, nil))
}

func TestApplyAudioPreference(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open(&config.DatabaseConfig{Path: database.MemoryPath})
	require.NoError(t, err)
	defer func() { _ = database.Close(db) }()
	require.NoError(t, database.SaveAudioPreference(db, 21, database.PreferenceDub))

	anime := providers.SourceRequest{Kind: providers.MediaKindAnime, AniListID: "21", Episode: 5}

	got := applyAudioPreference(newRequestCmd(t), db, anime)
	assert.True(t, got.Dubbed, "stored preference applies without flags")

	got = applyAudioPreference(newRequestCmd(t, "--sub"), db, anime)
	assert.False(t, got.Dubbed, "--sub wins over the stored preference")

	dubbed := anime
	dubbed.Dubbed = true
	require.NoError(t, database.SaveAudioPreference(db, 21, database.PreferenceSub))
	got = applyAudioPreference(newRequestCmd(t, "--dub"), db, dubbed)
	assert.True(t, got.Dubbed, "--dub wins over the stored preference")

	got = applyAudioPreference(newRequestCmd(t), db, anime)
	assert.False(t, got.Dubbed)

	movie := providers.SourceRequest{Kind: providers.MediaKindMovie, MovieID: "550"}
	assert.Equal(t, movie, applyAudioPreference(newRequestCmd(t), db, movie))
	assert.Equal(t, anime, applyAudioPreference(newRequestCmd(t), nil, anime))
}

func TestBuildServices(t *testing.T) {
	cfg := &config.Config{
		API:       config.APIConfig{BaseURL: "http://127.0.0.1:1"},
		Providers: config.ProvidersConfig{Disabled: []string{providers.SuperEmbedID}},
		Cache:     config.CacheConfig{Size: 8},
	}
	svc, err := buildServices(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.Equal(t, 2, svc.registry.Len())
	assert.NotContains(t, svc.registry.List(), providers.SuperEmbedID)
	assert.IsType(t, &resolver.Cached{}, svc.resolver, "a cache wraps the engine when enabled")
}
