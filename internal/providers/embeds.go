package providers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Built-in embed provider ids
const (
	VidPlusID    = "vidplus"
	VidNestID    = "vidnest"
	SuperEmbedID = "superembed"
)

// EmbedTheme holds the presentation parameters passed to embed players that accept them
type EmbedTheme struct {
	PrimaryColor   string
	SecondaryColor string
	IconColor      string
	Autoplay       bool
}

// DefaultEmbedTheme returns the stock player theme
func DefaultEmbedTheme() EmbedTheme {
	return EmbedTheme{
		PrimaryColor:   "fbc9ff",
		SecondaryColor: "f8b4ff",
		IconColor:      "fbc9ff",
		Autoplay:       true,
	}
}

// EmbedProviders returns the built-in provider catalog
func EmbedProviders(theme EmbedTheme) []Provider {
	return []Provider{
		NewProvider(VidPlusID, "VidPlus", 1,
			[]MediaKind{MediaKindMovie, MediaKindSeries, MediaKindAnime},
			vidPlusURL(theme)).WithCapabilities(true, true),
		NewProvider(VidNestID, "Vidnest", 2,
			[]MediaKind{MediaKindMovie, MediaKindSeries, MediaKindAnime},
			vidNestURL),
		NewProvider(SuperEmbedID, "SuperEmbed", 3,
			[]MediaKind{MediaKindMovie, MediaKindSeries},
			superEmbedURL),
	}
}

// FilterProviders drops providers whose id is listed in disabled
func FilterProviders(all []Provider, disabled []string) []Provider {
	if len(disabled) == 0 {
		return all
	}
	skip := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		skip[strings.ToLower(strings.TrimSpace(id))] = true
	}

	kept := make([]Provider, 0, len(all))
	for _, p := range all {
		if !skip[p.ID] {
			kept = append(kept, p)
		}
	}
	return kept
}

// queryParams keeps insertion order, which embed players are known to be picky about
type queryParams []string

func (q *queryParams) add(key, value string) {
	*q = append(*q, url.QueryEscape(key)+"="+url.QueryEscape(value))
}

func (q queryParams) encode() string {
	return strings.Join(q, "&")
}

func vidPlusURL(theme EmbedTheme) func(SourceRequest) (string, error) {
	const baseURL = "https://player.vidplus.to/embed"

	return func(req SourceRequest) (string, error) {
		var params queryParams
		params.add("primarycolor", theme.PrimaryColor)
		params.add("secondarycolor", theme.SecondaryColor)
		params.add("iconcolor", theme.IconColor)
		params.add("autoplay", strconv.FormatBool(theme.Autoplay))
		params.add("poster", "true")
		params.add("title", "true")
		params.add("watchparty", "false")

		switch {
		case req.Kind == MediaKindMovie && req.MovieID != "":
			return fmt.Sprintf("%s/movie/%s?%s", baseURL, url.PathEscape(req.MovieID), params.encode()), nil
		case req.Kind == MediaKindSeries && req.SeriesID != "" && req.Season > 0 && req.Episode > 0:
			return fmt.Sprintf("%s/tv/%s/%d/%d?%s", baseURL, url.PathEscape(req.SeriesID), req.Season, req.Episode, params.encode()), nil
		case req.Kind == MediaKindAnime && req.AniListID != "" && req.Episode > 0:
			params.add("dub", strconv.FormatBool(req.Dubbed))
			return fmt.Sprintf("%s/anime/%s/%d?%s", baseURL, url.PathEscape(req.AniListID), req.Episode, params.encode()), nil
		}
		return "", fmt.Errorf("%w: invalid parameters for %s", ErrUnsupportedRequest, req.Kind)
	}
}

func vidNestURL(req SourceRequest) (string, error) {
	const baseURL = "https://vidnest.fun"

	switch {
	case req.Kind == MediaKindMovie && req.MovieID != "":
		return fmt.Sprintf("%s/movie/%s", baseURL, url.PathEscape(req.MovieID)), nil
	case req.Kind == MediaKindSeries && req.SeriesID != "" && req.Season > 0 && req.Episode > 0:
		return fmt.Sprintf("%s/tv/%s/%d/%d", baseURL, url.PathEscape(req.SeriesID), req.Season, req.Episode), nil
	case req.Kind == MediaKindAnime && req.AniListID != "" && req.Episode > 0:
		audio := "sub"
		if req.Dubbed {
			audio = "dub"
		}
		return fmt.Sprintf("%s/anime/%s/%d/%s", baseURL, url.PathEscape(req.AniListID), req.Episode, audio), nil
	}
	return "", fmt.Errorf("%w: invalid parameters for %s", ErrUnsupportedRequest, req.Kind)
}

func superEmbedURL(req SourceRequest) (string, error) {
	const baseURL = "https://multiembed.mov/directstream.php"

	switch {
	case req.Kind == MediaKindMovie && req.MovieID != "":
		return fmt.Sprintf("%s?video_id=%s&tmdb=1", baseURL, url.QueryEscape(req.MovieID)), nil
	case req.Kind == MediaKindSeries && req.SeriesID != "" && req.Season > 0 && req.Episode > 0:
		return fmt.Sprintf("%s?video_id=%s&tmdb=1&s=%d&e=%d", baseURL, url.QueryEscape(req.SeriesID), req.Season, req.Episode), nil
	}
	return "", fmt.Errorf("%w: SuperEmbed does not support %s", ErrUnsupportedRequest, req.Kind)
}
