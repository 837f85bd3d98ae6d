package session

import (
	"errors"

	"github.com/justchokingaround/vidsource/internal/providers"
	"github.com/justchokingaround/vidsource/internal/subtitles"
)

// State is the lifecycle state of a playback session
type State string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateError    State = "error"
	StateRetrying State = "retrying"
	StateClosed   State = "closed"
)

// Menu identifies which overlay menu is open
type Menu string

const (
	MenuNone      Menu = ""
	MenuSources   Menu = "sources"
	MenuSubtitles Menu = "subtitles"
	MenuSettings  Menu = "settings"
)

// DefaultMaxRetries caps user-initiated reloads per parameter set
const DefaultMaxRetries = 3

var (
	ErrNoSourcesAvailable   = errors.New("no sources available")
	ErrSourceLoadFailure    = errors.New("source failed to load")
	ErrSubtitleFetchFailure = errors.New("subtitle fetch failed")
	ErrRetriesExhausted     = errors.New("retries exhausted")
	ErrSessionClosed        = errors.New("session closed")
	ErrUnknownSource        = errors.New("unknown source")
	ErrUnknownTrack         = errors.New("unknown subtitle track")
	ErrInvalidState         = errors.New("operation not allowed in current state")
)

// Snapshot is a read-only copy of a session's state
type Snapshot struct {
	ID               string                  `json:"id"`
	Request          providers.SourceRequest `json:"request"`
	Candidates       []providers.VideoSource `json:"candidates"`
	Active           *providers.VideoSource  `json:"active,omitempty"`
	Tracks           []subtitles.Track       `json:"tracks"`
	ActiveSubtitleID string                  `json:"active_subtitle_id,omitempty"`
	Cues             []subtitles.Cue         `json:"cues,omitempty"`
	State            State                   `json:"state"`
	RetryCount       int                     `json:"retry_count"`
	MaxRetries       int                     `json:"max_retries"`
	RetriesExhausted bool                    `json:"retries_exhausted"`
	Err              string                  `json:"error,omitempty"`
	Menu             Menu                    `json:"menu,omitempty"`
	Banner           string                  `json:"banner,omitempty"`
	ControlsVisible  bool                    `json:"controls_visible"`
}

// ActiveTrack returns the selected subtitle track, if any
func (s Snapshot) ActiveTrack() (subtitles.Track, bool) {
	if s.ActiveSubtitleID == "" {
		return subtitles.Track{}, false
	}
	for _, t := range s.Tracks {
		if t.ID == s.ActiveSubtitleID {
			return t, true
		}
	}
	return subtitles.Track{}, false
}
