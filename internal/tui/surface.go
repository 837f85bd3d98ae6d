package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justchokingaround/vidsource/internal/player"
	"github.com/justchokingaround/vidsource/internal/session"
)

// surfaceClock holds the latest position reported by an external player.
// Player callbacks run on their own goroutines; the model reads it on tick.
type surfaceClock struct {
	mu       sync.Mutex
	position time.Duration
	known    bool
	ended    bool
}

func (c *surfaceClock) update(p player.PlaybackProgress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = p.CurrentTime
	c.known = true
}

func (c *surfaceClock) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended = true
}

func (c *surfaceClock) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c = surfaceClock{}
}

func (c *surfaceClock) read() (position time.Duration, known, ended bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position, c.known, c.ended
}

// attachSurface routes external player events into the session: a player
// that fails to start or dies counts as a load failure of the active source.
func attachSurface(surface player.Surface, ctrl *session.Controller, clock *surfaceClock) {
	surface.OnProgressUpdate(clock.update)
	surface.OnPlaybackEnd(clock.end)
	surface.OnError(func(err error) {
		// rejected when the session is already failed or closed
		_ = ctrl.ReportLoadFailure(err.Error())
	})
}

// playExternal hands the active direct source and subtitle track to the
// external player
func (m *Model) playExternal() tea.Cmd {
	if m.surface == nil {
		return setStatus("No external player configured")
	}
	active := m.snap.Active
	if active == nil {
		return setStatus("No active source")
	}

	var subURL, subLang string
	if track, ok := m.snap.ActiveTrack(); ok && track.URL != "" {
		subURL, subLang = track.URL, track.Language
	}

	opts, err := player.OptionsFor(*active, subURL, subLang, describeRequest(m.snap.Request), m.position)
	if errors.Is(err, player.ErrNotPlayable) {
		// embed pages only render in a browser
		return m.openActive()
	}
	if err != nil {
		return setStatus(err.Error())
	}

	m.clock.reset()
	m.surfaceFor = active.ID
	surface, url := m.surface, active.URL
	return func() tea.Msg {
		if err := surface.Play(context.Background(), url, opts); err != nil {
			return statusMsg("Failed to start player: " + err.Error())
		}
		return statusMsg("Playing in external player")
	}
}

// stopExternal stops the external player if it is showing a source other
// than the active one
func (m *Model) stopExternal() tea.Cmd {
	if m.surface == nil || m.surfaceFor == "" {
		return nil
	}
	if m.snap.Active != nil && m.snap.Active.ID == m.surfaceFor && m.snap.State != session.StateClosed {
		return nil
	}
	m.surfaceFor = ""
	m.clock.reset()
	surface := m.surface
	return func() tea.Msg {
		_ = surface.Stop(context.Background())
		return nil
	}
}

// seekExternal mirrors a seek to the external player
func (m *Model) seekExternal() tea.Cmd {
	if m.surface == nil || m.surfaceFor == "" || !m.surface.IsPlaying() {
		return nil
	}
	surface, pos := m.surface, m.position
	return func() tea.Msg {
		if err := surface.Seek(context.Background(), pos); err != nil {
			return statusMsg(err.Error())
		}
		return nil
	}
}
