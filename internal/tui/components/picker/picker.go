package picker

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/justchokingaround/vidsource/internal/tui/styles"
)

// Item is one selectable row
type Item struct {
	ID     string
	Label  string
	Detail string
	Active bool
}

// SelectedMsg is sent when the user confirms an item
type SelectedMsg struct {
	ID string
}

// Model is a list picker with an optional fuzzy filter
type Model struct {
	title     string
	items     []Item
	input     textinput.Model
	filtering bool
	query     string
	cursor    int
	width     int
}

// New creates a picker. The cursor starts on the active item, if any.
func New(title string, items []Item) Model {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.Prompt = ""
	ti.CharLimit = 100
	ti.TextStyle = styles.MetadataStyle
	ti.PlaceholderStyle = styles.HelpStyle

	m := Model{
		title: title,
		items: items,
		input: ti,
		width: 60,
	}
	for i, item := range items {
		if item.Active {
			m.cursor = i
			break
		}
	}
	return m
}

// Title returns the picker heading
func (m Model) Title() string {
	return m.title
}

// Filtering reports whether keystrokes go to the filter input
func (m Model) Filtering() bool {
	return m.filtering
}

// Query returns the current filter text
func (m Model) Query() string {
	return m.query
}

// SetItems replaces the rows, keeping the cursor in range
func (m Model) SetItems(items []Item) Model {
	m.items = items
	if n := len(m.visible()); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
	return m
}

// Current returns the item under the cursor
func (m Model) Current() (Item, bool) {
	visible := m.visible()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return Item{}, false
	}
	return m.items[visible[m.cursor]], true
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}

		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.visible())-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "/":
			m.filtering = true
			return m, m.input.Focus()
		case "enter":
			if item, ok := m.Current(); ok {
				id := item.ID
				return m, func() tea.Msg { return SelectedMsg{ID: id} }
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(10, msg.Width-20)
	}

	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.query = ""
		m.input.SetValue("")
		m.input.Blur()
		m.cursor = 0
		return m, nil
	case "enter":
		m.filtering = false
		m.input.Blur()
		m.cursor = 0
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.query = m.input.Value()
	m.cursor = 0
	return m, cmd
}

// visible returns indices of items matching the filter, best match first
func (m Model) visible() []int {
	if m.query == "" {
		indices := make([]int, len(m.items))
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	targets := make([]string, len(m.items))
	for i, item := range m.items {
		targets[i] = item.Label + " " + item.Detail
	}
	matches := fuzzy.Find(m.query, targets)
	indices := make([]int, len(matches))
	for i, match := range matches {
		indices[i] = match.Index
	}
	return indices
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.SubtitleStyle.Render(m.title) + "\n\n")

	visible := m.visible()
	if len(visible) == 0 {
		b.WriteString(styles.MetadataStyle.Render("  Nothing matches the filter.") + "\n")
	}
	for i, idx := range visible {
		item := m.items[idx]
		label := item.Label
		if item.Detail != "" {
			label += "  " + styles.MetadataStyle.Render(item.Detail)
		}
		marker := "  "
		if item.Active {
			marker = "● "
		}

		switch {
		case i == m.cursor:
			b.WriteString(styles.SelectedItemStyle.Render("> "+marker+label) + "\n")
		case item.Active:
			b.WriteString(styles.ActiveItemStyle.Render("  "+marker+label) + "\n")
		default:
			b.WriteString(styles.NormalItemStyle.Render("  "+marker+label) + "\n")
		}
	}

	switch {
	case m.filtering:
		b.WriteString("\n" + styles.FilterBorderStyle.Render("Filter: "+m.input.View()) + "\n")
		b.WriteString(styles.HelpStyle.Render("type to filter • enter: confirm • esc: clear"))
	case m.query != "":
		b.WriteString("\n" + styles.MetadataStyle.Render("Filter: "+m.query) + "\n")
		b.WriteString(styles.HelpStyle.Render("j/k: navigate • /: edit filter • enter: select • esc: close"))
	default:
		b.WriteString("\n" + styles.HelpStyle.Render("j/k: navigate • /: filter • enter: select • esc: close"))
	}

	return b.String()
}
