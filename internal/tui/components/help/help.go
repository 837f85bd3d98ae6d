package help

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justchokingaround/vidsource/internal/tui/styles"
)

// Context represents which part of the player the help is shown for
type Context int

const (
	GlobalContext Context = iota
	PlayerContext
	MenuContext
)

// Shortcut is a key binding with its description
type Shortcut struct {
	Key         string
	Description string
	Contexts    []Context
	// Anime and External restrict the shortcut to sessions that support it
	Anime    bool
	External bool
}

// Model is the help overlay
type Model struct {
	context      Context
	width        int
	height       int
	visible      bool
	anime        bool
	external     bool
	scrollOffset int
}

var allShortcuts = []Shortcut{
	{Key: "?", Description: "Show/hide this help", Contexts: []Context{GlobalContext}},
	{Key: "q / ctrl+c", Description: "Quit", Contexts: []Context{GlobalContext}},

	{Key: "space", Description: "Show controls", Contexts: []Context{PlayerContext}},
	{Key: "esc", Description: "Close the session", Contexts: []Context{PlayerContext}},
	{Key: "s", Description: "Sources menu", Contexts: []Context{PlayerContext}},
	{Key: "c", Description: "Subtitles menu", Contexts: []Context{PlayerContext}},
	{Key: ",", Description: "Settings menu", Contexts: []Context{PlayerContext}},
	{Key: "←/→ or h/l", Description: "Seek 10 seconds", Contexts: []Context{PlayerContext}},
	{Key: "p", Description: "Play in external player", Contexts: []Context{PlayerContext}, External: true},
	{Key: "o", Description: "Open source in browser", Contexts: []Context{PlayerContext}},
	{Key: "y", Description: "Copy source URL", Contexts: []Context{PlayerContext}},
	{Key: "f", Description: "Report source not playing", Contexts: []Context{PlayerContext}},
	{Key: "r", Description: "Retry after a failure", Contexts: []Context{PlayerContext}},
	{Key: "d", Description: "Switch dub/sub", Contexts: []Context{PlayerContext}, Anime: true},

	{Key: "↑/↓ or j/k", Description: "Move selection", Contexts: []Context{MenuContext}},
	{Key: "enter", Description: "Choose item", Contexts: []Context{MenuContext}},
	{Key: "/", Description: "Filter items", Contexts: []Context{MenuContext}},
	{Key: "esc", Description: "Close menu", Contexts: []Context{MenuContext}},

	{Key: "enter", Description: "Keep filter (while typing)", Contexts: []Context{MenuContext}},
	{Key: "esc", Description: "Clear filter (while typing)", Contexts: []Context{MenuContext}},
}

// New creates a hidden help overlay
func New() Model {
	return Model{context: PlayerContext}
}

// SetContext sets the context whose shortcuts are listed
func (m *Model) SetContext(ctx Context) {
	if m.context != ctx {
		m.scrollOffset = 0
	}
	m.context = ctx
}

// SetSession tells the overlay which optional features the session has
func (m *Model) SetSession(anime, external bool) {
	m.anime = anime
	m.external = external
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if !m.visible {
			return m, nil
		}
		switch msg.String() {
		case "up", "k":
			m.scrollOffset = max(0, m.scrollOffset-1)
		case "down", "j":
			m.scrollOffset++
		case "home", "g":
			m.scrollOffset = 0
		case "end", "G":
			m.scrollOffset = 1 << 20 // clamped in View
		}
	}
	return m, nil
}

func (m Model) View() string {
	if !m.visible || m.width == 0 || m.height == 0 {
		return ""
	}

	var content strings.Builder
	content.WriteString(styles.HelpStyle.Render("j/k scroll • g/G top/bottom • esc/? close"))
	content.WriteString("\n\n")

	m.writeSection(&content, "General", m.shortcutsFor(GlobalContext))
	if name := contextName(m.context); name != "" {
		content.WriteString("\n")
		m.writeSection(&content, name, m.shortcutsFor(m.context))
	}

	lines := strings.Split(strings.TrimRight(content.String(), "\n"), "\n")

	available := max(6, m.height-6)
	offset := min(m.scrollOffset, max(0, len(lines)-available))
	end := min(len(lines), offset+available)

	title := "KEYBOARD SHORTCUTS"
	if len(lines) > available {
		title += fmt.Sprintf(" (%d-%d/%d)", offset+1, end, len(lines))
	}

	boxWidth := min(56, max(30, m.width-4))
	titleBar := styles.TitleStyle.
		Width(boxWidth - 4).
		Align(lipgloss.Center).
		Render(title)

	box := styles.PopupStyle.
		Padding(0, 1).
		Width(boxWidth).
		Render(titleBar + "\n\n" + strings.Join(lines[offset:end], "\n"))

	if lipgloss.Height(box) >= m.height {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) writeSection(b *strings.Builder, name string, shortcuts []Shortcut) {
	if len(shortcuts) == 0 {
		return
	}
	b.WriteString(styles.SubtitleStyle.Render(name))
	b.WriteString("\n")

	keyStyle := lipgloss.NewStyle().Foreground(styles.OxocarbonPurple).Bold(true).Width(14)
	for _, sc := range shortcuts {
		b.WriteString("  " + keyStyle.Render(sc.Key) + styles.MetadataStyle.Render(sc.Description) + "\n")
	}
}

// shortcutsFor lists the shortcuts of ctx that apply to the current session
func (m Model) shortcutsFor(ctx Context) []Shortcut {
	var out []Shortcut
	for _, sc := range allShortcuts {
		if sc.Anime && !m.anime || sc.External && !m.external {
			continue
		}
		for _, c := range sc.Contexts {
			if c == ctx {
				out = append(out, sc)
				break
			}
		}
	}
	return out
}

// Toggle toggles the visibility of the overlay
func (m *Model) Toggle() {
	m.visible = !m.visible
	m.scrollOffset = 0
}

// Hide hides the overlay
func (m *Model) Hide() {
	m.visible = false
	m.scrollOffset = 0
}

// IsVisible returns whether the overlay is shown
func (m Model) IsVisible() bool {
	return m.visible
}

func contextName(ctx Context) string {
	switch ctx {
	case PlayerContext:
		return "Player"
	case MenuContext:
		return "Menu"
	default:
		return ""
	}
}
