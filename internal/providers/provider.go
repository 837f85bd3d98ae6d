package providers

import (
	"errors"
	"fmt"
	"strings"
)

// MediaKind represents the kind of content a request targets
type MediaKind string

const (
	MediaKindMovie  MediaKind = "movie"
	MediaKindSeries MediaKind = "series"
	MediaKindAnime  MediaKind = "anime"
)

// ParseMediaKind parses a media kind, accepting "tv" as an alias for series
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return MediaKindMovie, nil
	case "series", "tv", "show":
		return MediaKindSeries, nil
	case "anime":
		return MediaKindAnime, nil
	default:
		return "", fmt.Errorf("%w: unknown media kind %q", ErrInvalidRequest, s)
	}
}

// String returns the string representation of MediaKind
func (k MediaKind) String() string {
	return string(k)
}

// SourceKind tells the rendering surface how to treat a source URL
type SourceKind string

const (
	SourceKindEmbed  SourceKind = "embed"  // Page to be framed or opened
	SourceKindDirect SourceKind = "direct" // Media URL the surface can play itself
)

// QualityAuto is the quality label used when a provider does not report one
const QualityAuto = "Auto"

var (
	// ErrInvalidRequest is returned when a request lacks the identifiers its media kind requires
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnsupportedRequest is returned by a provider that cannot build a URL for a request
	ErrUnsupportedRequest = errors.New("provider does not support request")
)

// SourceRequest describes what the viewer wants to watch
type SourceRequest struct {
	MovieID   string    `json:"movie_id,omitempty"`
	SeriesID  string    `json:"series_id,omitempty"`
	AniListID string    `json:"anilist_id,omitempty"`
	Season    int       `json:"season,omitempty"`
	Episode   int       `json:"episode,omitempty"`
	Kind      MediaKind `json:"kind"`
	Dubbed    bool      `json:"dubbed,omitempty"`
}

// NewSourceRequest builds a request, placing id in the field the kind uses
func NewSourceRequest(kind MediaKind, id string, season, episode int, dubbed bool) SourceRequest {
	req := SourceRequest{Kind: kind, Season: season, Episode: episode, Dubbed: dubbed}
	switch kind {
	case MediaKindMovie:
		req.MovieID = id
	case MediaKindSeries:
		req.SeriesID = id
	case MediaKindAnime:
		req.AniListID = id
	}
	return req
}

// ContentID returns the identifier that is meaningful for the request's kind
func (r SourceRequest) ContentID() string {
	switch r.Kind {
	case MediaKindMovie:
		return r.MovieID
	case MediaKindSeries:
		return r.SeriesID
	case MediaKindAnime:
		return r.AniListID
	default:
		return ""
	}
}

// Validate checks that the identifiers required by the media kind are present
func (r SourceRequest) Validate() error {
	switch r.Kind {
	case MediaKindMovie:
		if r.MovieID == "" {
			return fmt.Errorf("%w: movie requires a movie id", ErrInvalidRequest)
		}
	case MediaKindSeries:
		if r.SeriesID == "" || r.Season <= 0 || r.Episode <= 0 {
			return fmt.Errorf("%w: series requires a series id, season and episode", ErrInvalidRequest)
		}
	case MediaKindAnime:
		if r.AniListID == "" || r.Episode <= 0 {
			return fmt.Errorf("%w: anime requires an anilist id and episode", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown media kind %q", ErrInvalidRequest, r.Kind)
	}
	return nil
}

// Key returns the identifying parameter tuple of the request.
// Two requests with the same key resolve to the same sources.
func (r SourceRequest) Key() string {
	return fmt.Sprintf("%s|%s|%d|%d|%t", r.Kind, r.ContentID(), r.Season, r.Episode, r.Dubbed)
}

// CaptionRef is a caption file advertised alongside a source
type CaptionRef struct {
	Language string `json:"language"`
	URL      string `json:"url"`
	Label    string `json:"label"`
}

// VideoSource is one playable candidate for a request
type VideoSource struct {
	// ID is unique within a single resolution result only
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Quality   string       `json:"quality"`
	URL       string       `json:"url"`
	Kind      SourceKind   `json:"type"`
	Provider  string       `json:"provider"`
	Subtitles []CaptionRef `json:"subtitles,omitempty"`
}

// Provider describes a known embed provider. Providers are immutable values
// built once at startup.
type Provider struct {
	ID                       string      `json:"id"`
	Name                     string      `json:"name"`
	Priority                 int         `json:"priority"` // lower is preferred
	Kinds                    []MediaKind `json:"kinds"`
	SupportsSubtitles        bool        `json:"supports_subtitles"`
	SupportsQualitySelection bool        `json:"supports_quality_selection"`

	urlFunc func(SourceRequest) (string, error)
}

// NewProvider creates a provider descriptor with the given URL rule
func NewProvider(id, name string, priority int, kinds []MediaKind, urlFunc func(SourceRequest) (string, error)) Provider {
	return Provider{
		ID:       id,
		Name:     name,
		Priority: priority,
		Kinds:    append([]MediaKind(nil), kinds...),
		urlFunc:  urlFunc,
	}
}

// WithCapabilities returns a copy of p with the given capability flags
func (p Provider) WithCapabilities(subtitles, qualitySelection bool) Provider {
	p.SupportsSubtitles = subtitles
	p.SupportsQualitySelection = qualitySelection
	return p
}

// Supports reports whether the provider declares support for kind
func (p Provider) Supports(kind MediaKind) bool {
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// GenerateURL builds the embed URL for req. It fails with ErrUnsupportedRequest
// when the provider does not cover the request's kind or identifiers are missing.
func (p Provider) GenerateURL(req SourceRequest) (string, error) {
	if !p.Supports(req.Kind) || p.urlFunc == nil {
		return "", fmt.Errorf("%w: %s does not support %s", ErrUnsupportedRequest, p.ID, req.Kind)
	}
	return p.urlFunc(req)
}
