package subtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/justchokingaround/vidsource/internal/config"
	"github.com/justchokingaround/vidsource/internal/metrics"
	"github.com/justchokingaround/vidsource/internal/providers"
	providerhttp "github.com/justchokingaround/vidsource/internal/providers/http"
)

// Track providers
const (
	ProviderOpenSubtitles = "OpenSubtitles"
	ProviderFallback      = "Fallback"
	ProviderEmbedded      = "Embedded"
)

// MaxCaptionSize bounds downloaded caption files
const MaxCaptionSize = 5 << 20

// ErrInvalidCaptionURL is returned for caption URLs the service refuses to fetch
var ErrInvalidCaptionURL = errors.New("invalid caption url")

// EmbeddedTrackID identifies the placeholder track for subtitles burned into anime sub streams
const EmbeddedTrackID = "embedded"

// Track is one selectable subtitle option. An empty URL means the option has
// no external caption file.
type Track struct {
	ID          string `json:"id"`
	Language    string `json:"language"`
	CountryCode string `json:"country"`
	URL         string `json:"url"`
	Provider    string `json:"provider"`
}

// Service lists subtitle tracks and fetches caption files
type Service struct {
	baseURL    string
	httpClient *providerhttp.Client
	captions   *providerhttp.Client
	timeout    time.Duration
	debug      bool
	logger     *slog.Logger
}

// NewService creates a subtitle service from configuration
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	var subCfg config.SubtitlesConfig
	var debug bool
	if cfg != nil {
		subCfg = cfg.Subtitles
		debug = cfg.Advanced.Debug
	}

	return &Service{
		baseURL: strings.TrimRight(subCfg.BaseURL, "/"),
		httpClient: providerhttp.NewClient(providerhttp.ClientConfig{
			Timeout: subCfg.Timeout,
			Debug:   debug,
			Logger:  logger,
		}),
		captions: providerhttp.NewClient(providerhttp.ClientConfig{
			Timeout:     subCfg.Timeout,
			MaxBodySize: MaxCaptionSize,
			Debug:       debug,
			Logger:      logger,
		}),
		timeout: subCfg.Timeout,
		debug:   debug,
		logger:  logger,
	}
}

// PublicCaptionsOnly returns a copy of the service whose caption downloads
// refuse loopback, private and link-local hosts. Listing is unaffected.
func (s *Service) PublicCaptionsOnly() *Service {
	guarded := *s
	guarded.captions = providerhttp.NewClient(providerhttp.ClientConfig{
		Timeout:     s.timeout,
		MaxBodySize: MaxCaptionSize,
		PublicOnly:  true,
		Debug:       s.debug,
		Logger:      s.logger,
	})
	return &guarded
}

// FallbackTracks returns the fixed list offered when no listing is available
func FallbackTracks() []Track {
	defaults := []struct{ id, language, country string }{
		{"1", "English", "US"},
		{"2", "Spanish", "ES"},
		{"3", "French", "FR"},
		{"4", "German", "DE"},
		{"5", "Italian", "IT"},
	}

	tracks := make([]Track, 0, len(defaults))
	for _, n := range defaults {
		tracks = append(tracks, Track{
			ID:          n.id,
			Language:    n.language,
			CountryCode: n.country,
			Provider:    ProviderFallback,
		})
	}
	return tracks
}

// trackID accepts both numeric and string ids
type trackID string

func (id *trackID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = trackID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unsupported subtitle id %s", data)
	}
	*id = trackID(n.String())
	return nil
}

type listingEntry struct {
	ID       trackID `json:"id"`
	Language string  `json:"language"`
	URL      string  `json:"url"`
}

// ListTracks lists subtitle tracks for a title. It never fails: any error, or
// a kind without a listing endpoint, yields FallbackTracks.
func (s *Service) ListTracks(ctx context.Context, contentID string, kind providers.MediaKind, season, episode int) []Track {
	endpoint, ok := s.listingURL(contentID, kind, season, episode)
	if !ok {
		metrics.RecordSubtitleFallback()
		return FallbackTracks()
	}

	resp, err := s.httpClient.Get(ctx, endpoint, map[string]string{"Accept": "application/json"})
	if err != nil {
		s.logger.Warn("failed to fetch subtitles", "url", endpoint, "error", err)
		metrics.RecordSubtitleFallback()
		return FallbackTracks()
	}

	var entries []listingEntry
	if err := decodeListing(resp.Body(), &entries); err != nil {
		s.logger.Warn("failed to parse subtitle listing", "url", endpoint, "error", err)
		metrics.RecordSubtitleFallback()
		return FallbackTracks()
	}

	tracks := make([]Track, 0, len(entries))
	for _, e := range entries {
		tracks = append(tracks, Track{
			ID:          string(e.ID),
			Language:    e.Language,
			CountryCode: CountryCode(e.Language),
			URL:         e.URL,
			Provider:    ProviderOpenSubtitles,
		})
	}

	s.logger.Debug("listed subtitle tracks", "id", contentID, "kind", kind, "count", len(tracks))
	return tracks
}

// decodeListing requires a JSON array; null and objects are parse failures
func decodeListing(body []byte, entries *[]listingEntry) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return fmt.Errorf("subtitle listing is not an array")
	}
	return json.Unmarshal(body, entries)
}

func (s *Service) listingURL(contentID string, kind providers.MediaKind, season, episode int) (string, bool) {
	if s.baseURL == "" || contentID == "" {
		return "", false
	}

	id := url.PathEscape(contentID)
	switch kind {
	case providers.MediaKindMovie:
		return fmt.Sprintf("%s/movie/%s", s.baseURL, id), true
	case providers.MediaKindSeries:
		if season <= 0 || episode <= 0 {
			return "", false
		}
		return fmt.Sprintf("%s/tv/%s/season/%d/episode/%d", s.baseURL, id, season, episode), true
	default:
		return "", false
	}
}

// TracksFor applies the per-kind track policy for a request. Dubbed anime has
// no subtitle options; subbed anime carries its subtitles inside the stream.
func (s *Service) TracksFor(ctx context.Context, req providers.SourceRequest) []Track {
	if req.Kind == providers.MediaKindAnime {
		if req.Dubbed {
			return nil
		}
		return []Track{{
			ID:          EmbeddedTrackID,
			Language:    "Embedded",
			CountryCode: DefaultCountryCode,
			Provider:    ProviderEmbedded,
		}}
	}
	return s.ListTracks(ctx, req.ContentID(), req.Kind, req.Season, req.Episode)
}

// FetchCues downloads and parses a caption file. An empty URL yields no cues
// and no error.
func (s *Service) FetchCues(ctx context.Context, captionURL string) ([]Cue, error) {
	if captionURL == "" {
		return nil, nil
	}

	u, err := url.Parse(captionURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCaptionURL, captionURL)
	}

	body, err := s.captions.GetText(ctx, captionURL)
	if errors.Is(err, providerhttp.ErrBlockedAddress) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCaptionURL, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch captions: %w", err)
	}

	cues := ParseCaptions(body)
	s.logger.Debug("fetched captions", "url", captionURL, "cues", len(cues))
	return cues, nil
}
