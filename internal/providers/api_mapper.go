package providers

import (
	"fmt"

	"github.com/justchokingaround/vidsource/internal/providers/api"
)

// DefaultAggregatorID tags aggregator sources that do not name their own provider
const DefaultAggregatorID = "p-stream"

// APIResponseToSources converts an aggregator response into normalized sources.
// Missing fields fall back to defaults; unrecognizable payloads yield an empty list.
func APIResponseToSources(resp *api.SourcesResponse, aggregatorID string) []VideoSource {
	if resp == nil {
		return nil
	}
	if aggregatorID == "" {
		aggregatorID = DefaultAggregatorID
	}

	shared := APISubtitlesToCaptions(resp.Subtitles)
	var sources []VideoSource

	for i, s := range resp.Sources {
		if s.URL == "" {
			continue
		}

		provider := s.Provider
		if provider == "" {
			provider = aggregatorID
		}

		captions := APISubtitlesToCaptions(s.Subtitles)
		if len(captions) == 0 {
			captions = shared
		}

		sources = append(sources, VideoSource{
			ID:        fmt.Sprintf("%s-%d", aggregatorID, i),
			Name:      firstNonEmpty(s.Name, s.Server, fmt.Sprintf("Source %d", i+1)),
			Quality:   firstNonEmpty(s.Quality, QualityAuto),
			URL:       s.URL,
			Kind:      SourceKindEmbed,
			Provider:  provider,
			Subtitles: captions,
		})
	}

	if resp.URL != "" {
		sources = append(sources, VideoSource{
			ID:        aggregatorID + "-direct",
			Name:      "P-Stream Direct",
			Quality:   firstNonEmpty(resp.Quality, QualityAuto),
			URL:       resp.URL,
			Kind:      SourceKindDirect,
			Provider:  aggregatorID,
			Subtitles: shared,
		})
	}

	return sources
}

// APISubtitlesToCaptions normalizes aggregator subtitle entries, dropping those without a URL
func APISubtitlesToCaptions(subs []api.Subtitle) []CaptionRef {
	var captions []CaptionRef
	for _, sub := range subs {
		if sub.URL == "" {
			continue
		}
		language := firstNonEmpty(sub.Language, sub.Lang, "Unknown")
		captions = append(captions, CaptionRef{
			Language: language,
			URL:      sub.URL,
			Label:    firstNonEmpty(sub.Label, sub.Language, "Unknown"),
		})
	}
	return captions
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
