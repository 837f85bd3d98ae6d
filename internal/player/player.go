package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justchokingaround/vidsource/internal/providers"
)

// ErrNotPlayable is returned when a source cannot be handed to an external player
var ErrNotPlayable = errors.New("source cannot be played externally")

// Surface plays a resolved source outside the terminal
type Surface interface {
	Play(ctx context.Context, url string, options PlayOptions) error
	Stop(ctx context.Context) error

	GetProgress(ctx context.Context) (*PlaybackProgress, error)
	Seek(ctx context.Context, position time.Duration) error

	OnProgressUpdate(callback func(progress PlaybackProgress))
	OnPlaybackEnd(callback func())
	OnError(callback func(err error))

	IsPlaying() bool
}

// PlayOptions contains options for starting playback
type PlayOptions struct {
	StartTime  time.Duration `json:"start_time,omitempty"`
	Fullscreen bool          `json:"fullscreen"`

	SubtitleURL  string `json:"subtitle_url,omitempty"`
	SubtitleLang string `json:"subtitle_lang,omitempty"`

	Headers   map[string]string `json:"headers,omitempty"`
	Referer   string            `json:"referer,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`

	Title string `json:"title,omitempty"`

	// ExtraArgs are appended to the player command line
	ExtraArgs []string `json:"extra_args,omitempty"`
}

// PlaybackProgress is the position reported by an external player
type PlaybackProgress struct {
	CurrentTime time.Duration `json:"current_time"`
	Duration    time.Duration `json:"duration"`
	Paused      bool          `json:"paused"`
	EOF         bool          `json:"eof"`
}

// Percentage returns how far playback has progressed, 0 when the duration is unknown
func (p PlaybackProgress) Percentage() float64 {
	if p.Duration <= 0 {
		return 0
	}
	return float64(p.CurrentTime) / float64(p.Duration) * 100
}

// PlaybackState represents the state of the player
type PlaybackState string

const (
	StatePlaying PlaybackState = "playing"
	StateStopped PlaybackState = "stopped"
	StateLoading PlaybackState = "loading"
	StateError   PlaybackState = "error"
)

// String returns the string representation of PlaybackState
func (s PlaybackState) String() string {
	return string(s)
}

// OptionsFor builds play options for a direct source. Embed pages are not
// media and are rejected with ErrNotPlayable.
func OptionsFor(src providers.VideoSource, subtitleURL, subtitleLang, title string, start time.Duration) (PlayOptions, error) {
	if src.Kind != providers.SourceKindDirect {
		return PlayOptions{}, fmt.Errorf("%w: %s is an embed page", ErrNotPlayable, src.Name)
	}
	if title == "" {
		title = src.Name
	}
	return PlayOptions{
		StartTime:    start,
		SubtitleURL:  subtitleURL,
		SubtitleLang: subtitleLang,
		Title:        title,
	}, nil
}
