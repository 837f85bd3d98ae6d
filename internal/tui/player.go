package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gorm.io/gorm"

	"github.com/justchokingaround/vidsource/internal/database"
	"github.com/justchokingaround/vidsource/internal/player"
	"github.com/justchokingaround/vidsource/internal/providers"
	"github.com/justchokingaround/vidsource/internal/session"
	"github.com/justchokingaround/vidsource/internal/subtitles"
	"github.com/justchokingaround/vidsource/internal/tui/components/help"
	"github.com/justchokingaround/vidsource/internal/tui/components/picker"
	"github.com/justchokingaround/vidsource/internal/tui/styles"
	"github.com/justchokingaround/vidsource/internal/tui/utils"
)

const (
	seekStep        = 10 * time.Second
	statusDuration  = 2500 * time.Millisecond
	settingDub      = "audio"
	settingOpen     = "open"
	settingCopy     = "copy"
	settingRetry    = "retry"
	settingFailure  = "report"
	settingPlay     = "play"
	failureByViewer = "reported by viewer"
)

type (
	tickMsg        time.Time
	clearStatusMsg struct{}
	statusMsg      string
	startErrMsg    struct{ err error }
)

// Copier writes text to the clipboard
type Copier interface {
	Copy(ctx context.Context, text string) error
}

// Model renders one playback session and forwards input to its controller
type Model struct {
	ctrl    *session.Controller
	keys    *session.KeyHub
	feed    *snapshotFeed
	req     providers.SourceRequest
	db      *gorm.DB
	copier  Copier
	openURL func(string) error
	surface player.Surface
	clock   *surfaceClock
	logger  *slog.Logger

	snap       session.Snapshot
	menu       session.Menu
	picker     picker.Model
	help       help.Model
	position   time.Duration
	playing    string // active source id the clock belongs to
	surfaceFor string // source id handed to the external player
	width      int
	height     int
	status     string
	quitting   bool
}

func newModel(ctrl *session.Controller, keys *session.KeyHub, feed *snapshotFeed, clock *surfaceClock, req providers.SourceRequest, deps Deps) *Model {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		ctrl:    ctrl,
		keys:    keys,
		feed:    feed,
		req:     req,
		db:      deps.DB,
		copier:  deps.Clipboard,
		openURL: deps.OpenURL,
		surface: deps.Surface,
		clock:   clock,
		logger:  logger,
		snap:    ctrl.Snapshot(),
		help:    newHelp(req, deps.Surface != nil),
		width:   80,
		height:  24,
	}
}

func newHelp(req providers.SourceRequest, external bool) help.Model {
	h := help.New()
	h.SetSession(req.Kind == providers.MediaKindAnime, external)
	h, _ = h.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return h
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.feed.wait(), m.start(m.req), tick())
}

func (m *Model) start(req providers.SourceRequest) tea.Cmd {
	return func() tea.Msg {
		if err := m.ctrl.Start(req); err != nil {
			return startErrMsg{err: err}
		}
		return nil
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.applySnapshot(session.Snapshot(msg))
		if m.snap.State == session.StateClosed {
			m.quitting = true
			return m, tea.Batch(m.stopExternal(), tea.Quit)
		}
		return m, tea.Batch(m.feed.wait(), m.stopExternal())

	case startErrMsg:
		m.status = "Cannot start: " + msg.err.Error()
		return m, nil

	case tickMsg:
		if m.surfaceFor != "" {
			if pos, known, ended := m.clock.read(); known {
				m.position = pos
				if ended {
					m.surfaceFor = ""
				}
			}
		} else if m.snap.State == session.StateReady {
			m.position += time.Second
		}
		return m, tick()

	case statusMsg:
		m.status = string(msg)
		return m, clearStatusAfter(statusDuration)

	case clearStatusMsg:
		m.status = ""
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help, _ = m.help.Update(msg)
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionMotion {
			m.ctrl.PointerMoved()
		}
		return m, nil

	case picker.SelectedMsg:
		return m, m.selectItem(msg.ID)

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

// keyName maps a key message to the names used in configuration
func keyName(msg tea.KeyMsg) string {
	switch s := msg.String(); s {
	case " ":
		return "space"
	default:
		return s
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.help.IsVisible() {
		switch keyName(msg) {
		case "?", "esc":
			m.help.Hide()
		case "ctrl+c", "q":
			m.quitting = true
			m.ctrl.Close()
			return tea.Quit
		default:
			m.help, _ = m.help.Update(msg)
		}
		return nil
	}

	if m.menu != session.MenuNone && m.picker.Filtering() {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return cmd
	}

	key := keyName(msg)
	switch key {
	case "ctrl+c", "q":
		m.quitting = true
		m.ctrl.Close()
		return tea.Quit
	case "?":
		m.help.SetContext(m.helpContext())
		m.help.Toggle()
		return nil
	}

	if m.menu != session.MenuNone {
		switch key {
		case "esc":
			m.ctrl.CloseMenu()
			return nil
		case "j", "k", "up", "down", "enter", "/":
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return cmd
		}
	}

	if m.keys != nil && m.keys.Dispatch(key) {
		return nil
	}

	switch key {
	case "s":
		m.ctrl.ToggleMenu(session.MenuSources)
	case "c":
		m.ctrl.ToggleMenu(session.MenuSubtitles)
	case ",":
		m.ctrl.ToggleMenu(session.MenuSettings)
	case "left", "h":
		m.position = max(0, m.position-seekStep)
		return m.seekExternal()
	case "right", "l":
		m.position += seekStep
		return m.seekExternal()
	case "p":
		return m.playExternal()
	case "o":
		return m.openActive()
	case "y":
		return m.copyActive()
	case "f":
		return m.reportFailure()
	case "r":
		return m.retry()
	case "d":
		return m.toggleAudio()
	}
	return nil
}

func (m *Model) helpContext() help.Context {
	if m.menu == session.MenuNone {
		return help.PlayerContext
	}
	return help.MenuContext
}

func (m *Model) applySnapshot(s session.Snapshot) {
	prevMenu := m.menu
	m.snap = s
	m.menu = s.Menu
	m.req = s.Request
	m.help.SetSession(s.Request.Kind == providers.MediaKindAnime, m.surface != nil)

	activeID := ""
	if s.Active != nil {
		activeID = s.Active.ID
	}
	if activeID != m.playing {
		m.playing = activeID
		m.position = 0
	}

	if m.menu == session.MenuNone {
		return
	}
	title, items := menuItems(s, m.surface != nil)
	if m.menu != prevMenu {
		m.picker = picker.New(title, items)
		m.picker, _ = m.picker.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	} else {
		m.picker = m.picker.SetItems(items)
	}
}

// menuItems lists the rows of the open menu
func menuItems(s session.Snapshot, external bool) (string, []picker.Item) {
	switch s.Menu {
	case session.MenuSources:
		items := make([]picker.Item, 0, len(s.Candidates))
		for _, c := range s.Candidates {
			items = append(items, picker.Item{
				ID:     c.ID,
				Label:  c.Name,
				Detail: fmt.Sprintf("%s · %s · %s", c.Quality, c.Kind, c.Provider),
				Active: s.Active != nil && s.Active.ID == c.ID,
			})
		}
		return "Sources", items

	case session.MenuSubtitles:
		items := []picker.Item{{ID: "", Label: "Off", Active: s.ActiveSubtitleID == ""}}
		for _, t := range s.Tracks {
			items = append(items, picker.Item{
				ID:     t.ID,
				Label:  t.Language,
				Detail: t.CountryCode + " · " + t.Provider,
				Active: s.ActiveSubtitleID == t.ID,
			})
		}
		return "Subtitles", items

	case session.MenuSettings:
		var items []picker.Item
		if s.Request.Kind == providers.MediaKindAnime {
			audio := "Sub"
			if s.Request.Dubbed {
				audio = "Dub"
			}
			items = append(items, picker.Item{ID: settingDub, Label: "Audio", Detail: audio})
		}
		if external {
			items = append(items, picker.Item{ID: settingPlay, Label: "Play in external player"})
		}
		items = append(items,
			picker.Item{ID: settingOpen, Label: "Open in browser"},
			picker.Item{ID: settingCopy, Label: "Copy source URL"},
			picker.Item{ID: settingFailure, Label: "Source is not playing"},
			picker.Item{ID: settingRetry, Label: "Retry", Detail: fmt.Sprintf("%d/%d", s.RetryCount, s.MaxRetries)},
		)
		return "Settings", items
	}
	return "", nil
}

func (m *Model) selectItem(id string) tea.Cmd {
	switch m.menu {
	case session.MenuSources:
		if err := m.ctrl.SwitchSource(id); err != nil {
			return setStatus("Cannot switch source: " + err.Error())
		}
	case session.MenuSubtitles:
		err := m.ctrl.SwitchSubtitle(id)
		m.ctrl.CloseMenu()
		if err != nil {
			return setStatus("Cannot switch subtitles: " + err.Error())
		}
	case session.MenuSettings:
		m.ctrl.CloseMenu()
		switch id {
		case settingDub:
			return m.toggleAudio()
		case settingPlay:
			return m.playExternal()
		case settingOpen:
			return m.openActive()
		case settingCopy:
			return m.copyActive()
		case settingFailure:
			return m.reportFailure()
		case settingRetry:
			return m.retry()
		}
	}
	return nil
}

func (m *Model) openActive() tea.Cmd {
	active := m.snap.Active
	if active == nil {
		return setStatus("No active source")
	}
	if m.openURL == nil {
		return setStatus("Opening URLs is not supported here")
	}
	url, open := active.URL, m.openURL
	return func() tea.Msg {
		if err := open(url); err != nil {
			return statusMsg("Failed to open browser: " + err.Error())
		}
		return statusMsg("Opened in browser")
	}
}

func (m *Model) copyActive() tea.Cmd {
	active := m.snap.Active
	if active == nil {
		return setStatus("No active source")
	}
	if m.copier == nil {
		return setStatus("Clipboard unavailable")
	}
	url, copier := active.URL, m.copier
	return func() tea.Msg {
		if err := copier.Copy(context.Background(), url); err != nil {
			return statusMsg("Failed to copy: " + err.Error())
		}
		return statusMsg("Source URL copied to clipboard")
	}
}

func (m *Model) reportFailure() tea.Cmd {
	if err := m.ctrl.ReportLoadFailure(failureByViewer); err != nil {
		return setStatus(err.Error())
	}
	return nil
}

func (m *Model) retry() tea.Cmd {
	if err := m.ctrl.Retry(); err != nil {
		return setStatus("Cannot retry: " + err.Error())
	}
	return nil
}

// toggleAudio flips dub/sub for anime, remembers the choice and restarts the
// session with the new parameters
func (m *Model) toggleAudio() tea.Cmd {
	if m.req.Kind != providers.MediaKindAnime {
		return setStatus("Audio selection is only available for anime")
	}

	req := m.req
	req.Dubbed = !req.Dubbed

	if m.db != nil {
		if id, err := strconv.Atoi(req.AniListID); err == nil {
			if err := database.SaveAudioPreference(m.db, id, database.PreferenceFor(req.Dubbed)); err != nil {
				m.logger.Warn("failed to save audio preference", "anilist_id", id, "error", err)
			}
		}
	}

	m.req = req
	return m.start(req)
}

func setStatus(s string) tea.Cmd {
	return func() tea.Msg { return statusMsg(s) }
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.help.IsVisible() {
		return m.help.View()
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("vidsource") + " " + styles.SubtitleStyle.Render(describeRequest(m.snap.Request)))
	b.WriteString("  " + styles.FormatStateBadge(string(m.snap.State)) + "\n\n")

	if active := m.snap.Active; active != nil {
		b.WriteString(styles.SubtitleStyle.Render(active.Name))
		b.WriteString("  " + styles.MetadataStyle.Render(fmt.Sprintf("%s · %s · %d candidates", active.Quality, active.Provider, len(m.snap.Candidates))) + "\n")
		b.WriteString(styles.URLStyle.Render(utils.TruncateWithWidth(active.URL, max(20, m.width-6))) + "\n")
	} else if m.snap.State == session.StateLoading || m.snap.State == session.StateRetrying {
		b.WriteString(styles.MetadataStyle.Render("Finding sources...") + "\n")
	}

	if m.snap.Banner != "" {
		b.WriteString("\n" + styles.BannerStyle.Render(m.snap.Banner) + "\n")
		if m.snap.RetriesExhausted {
			b.WriteString(styles.HelpStyle.Render("Retries exhausted, pick another source with s") + "\n")
		}
	}

	b.WriteString("\n" + m.captionView() + "\n")

	if m.snap.ControlsVisible {
		b.WriteString("\n" + m.controlsView() + "\n")
	}

	if m.menu != session.MenuNone {
		b.WriteString("\n" + styles.PopupStyle.Render(m.picker.View()) + "\n")
	}

	if m.status != "" {
		b.WriteString("\n" + styles.FooterStyle.Render(m.status))
	}

	return styles.AppStyle.Render(b.String())
}

func (m *Model) captionView() string {
	width := max(20, m.width-8)
	if track, ok := m.snap.ActiveTrack(); ok && track.ID == subtitles.EmbeddedTrackID {
		return styles.HelpStyle.Render("Subtitles are burned into this stream")
	}
	cue, ok := subtitles.CueAt(m.snap.Cues, m.position.Seconds())
	if !ok {
		return ""
	}
	return styles.CaptionStyle.Width(width).Render(utils.WrapCaption(cue.Text, width-2, 2))
}

func (m *Model) controlsView() string {
	sub := "off"
	if track, ok := m.snap.ActiveTrack(); ok {
		sub = track.Language
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.SubtitleStyle.Render(subtitles.FormatClock(m.position.Seconds())),
		styles.MetadataStyle.Render("  subtitles: "+sub),
		styles.MetadataStyle.Render(fmt.Sprintf("  retries: %d/%d", m.snap.RetryCount, m.snap.MaxRetries)),
	)
	keys := "s: sources • c: subtitles • ,: settings • ←/→: seek • o: open • y: copy • f: not playing • r: retry"
	if m.surface != nil {
		keys += " • p: play externally"
	}
	if m.snap.Request.Kind == providers.MediaKindAnime {
		keys += " • d: dub/sub"
	}
	keys += " • ?: help • esc: close"
	return line + "\n" + styles.HelpStyle.Render(keys)
}

// describeRequest renders a short label such as "series 1399 S01E02"
func describeRequest(req providers.SourceRequest) string {
	switch req.Kind {
	case providers.MediaKindSeries:
		return fmt.Sprintf("series %s S%02dE%02d", req.SeriesID, req.Season, req.Episode)
	case providers.MediaKindAnime:
		audio := "sub"
		if req.Dubbed {
			audio = "dub"
		}
		return fmt.Sprintf("anime %s episode %d (%s)", req.AniListID, req.Episode, audio)
	case providers.MediaKindMovie:
		return "movie " + req.MovieID
	}
	return ""
}
