package api

import (
	"bytes"
	"encoding/json"
)

// SourcesResponse is the aggregator's answer for one title or episode.
// Either Sources or URL (or both) may be present.
type SourcesResponse struct {
	Sources   []Source   `json:"sources"`
	URL       string     `json:"url,omitempty"`
	Quality   string     `json:"quality,omitempty"`
	Subtitles []Subtitle `json:"subtitles"`
}

// Source represents one upstream server reported by the aggregator
type Source struct {
	Name      string     `json:"name,omitempty"`
	Server    string     `json:"server,omitempty"`
	Provider  string     `json:"provider,omitempty"`
	Quality   string     `json:"quality,omitempty"`
	URL       string     `json:"url"`
	Subtitles []Subtitle `json:"subtitles,omitempty"`
}

// Subtitle represents a caption file advertised by the aggregator
type Subtitle struct {
	Language string `json:"language,omitempty"`
	Lang     string `json:"lang,omitempty"`
	URL      string `json:"url"`
	Label    string `json:"label,omitempty"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// The aggregator fronts several scrapers and field types drift between them.
// Decoding keeps whatever is recognizable: numbers and booleans become
// strings, lists that are not arrays are ignored, and entries that are not
// objects are skipped.

func (r *SourcesResponse) UnmarshalJSON(data []byte) error {
	fields, ok := objectFields(data)
	*r = SourcesResponse{}
	if !ok {
		return nil
	}

	for _, raw := range arrayItems(fields["sources"]) {
		if sf, ok := objectFields(raw); ok {
			var s Source
			s.fill(sf)
			r.Sources = append(r.Sources, s)
		}
	}
	r.URL = looseString(fields["url"])
	r.Quality = looseString(fields["quality"])
	r.Subtitles = subtitleList(fields["subtitles"])
	return nil
}

func (s *Source) UnmarshalJSON(data []byte) error {
	*s = Source{}
	if fields, ok := objectFields(data); ok {
		s.fill(fields)
	}
	return nil
}

func (s *Source) fill(fields map[string]json.RawMessage) {
	s.Name = looseString(fields["name"])
	s.Server = looseString(fields["server"])
	s.Provider = looseString(fields["provider"])
	s.Quality = looseString(fields["quality"])
	s.URL = looseString(fields["url"])
	s.Subtitles = subtitleList(fields["subtitles"])
}

func (s *Subtitle) UnmarshalJSON(data []byte) error {
	*s = Subtitle{}
	if fields, ok := objectFields(data); ok {
		s.fill(fields)
	}
	return nil
}

func (s *Subtitle) fill(fields map[string]json.RawMessage) {
	s.Language = looseString(fields["language"])
	s.Lang = looseString(fields["lang"])
	s.URL = looseString(fields["url"])
	s.Label = looseString(fields["label"])
}

func subtitleList(raw json.RawMessage) []Subtitle {
	var subs []Subtitle
	for _, item := range arrayItems(raw) {
		if fields, ok := objectFields(item); ok {
			var sub Subtitle
			sub.fill(fields)
			subs = append(subs, sub)
		}
	}
	return subs
}

func objectFields(data []byte) (map[string]json.RawMessage, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func arrayItems(raw json.RawMessage) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// looseString renders a JSON scalar as text; null, objects and arrays yield ""
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return ""
		}
		if b {
			return "true"
		}
		return "false"
	case 'n', '{', '[':
		return ""
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	}
}
