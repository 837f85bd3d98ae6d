package styles

import "github.com/charmbracelet/lipgloss"

// Oxocarbon color scheme, base16 oxocarbon-dark palette
var (
	OxocarbonBase00 = lipgloss.Color("#262626") // UI elements
	OxocarbonBase01 = lipgloss.Color("#393939") // Borders, secondary UI
	OxocarbonBase02 = lipgloss.Color("#525252")
	OxocarbonBase03 = lipgloss.Color("#767676") // Muted text
	OxocarbonBase04 = lipgloss.Color("#dde1e6") // Secondary foreground
	OxocarbonBase05 = lipgloss.Color("#f2f4f8") // Primary foreground
	OxocarbonWhite  = lipgloss.Color("#ffffff")

	OxocarbonBlue   = lipgloss.Color("#78a9ff")
	OxocarbonPink   = lipgloss.Color("#ee5396")
	OxocarbonRed    = lipgloss.Color("#ff5252")
	OxocarbonCyan   = lipgloss.Color("#33b1ff")
	OxocarbonGreen  = lipgloss.Color("#42be65")
	OxocarbonPurple = lipgloss.Color("#be95ff") // main accent
	OxocarbonMauve  = lipgloss.Color("#d1aaff")
)

var (
	AppStyle = lipgloss.NewStyle().
			Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().
			Foreground(OxocarbonWhite).
			Background(OxocarbonPurple).
			Padding(0, 1).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(OxocarbonMauve).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase03).
			Italic(true)

	MetadataStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase04)

	URLStyle = lipgloss.NewStyle().
			Foreground(OxocarbonCyan).
			Italic(true)

	NormalItemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(OxocarbonBase05)

	SelectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(OxocarbonPurple).
				Bold(true)

	ActiveItemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(OxocarbonGreen).
			Bold(true)

	BannerStyle = lipgloss.NewStyle().
			Foreground(OxocarbonWhite).
			Background(OxocarbonRed).
			Padding(0, 1)

	// Caption line drawn over the player area
	CaptionStyle = lipgloss.NewStyle().
			Foreground(OxocarbonWhite).
			Background(OxocarbonBase00).
			Padding(0, 1).
			Align(lipgloss.Center)

	StatusBadgeStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase05).
			Background(OxocarbonBase01).
			Padding(0, 1)

	PopupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(OxocarbonPurple).
			Padding(1, 2)

	FilterBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(OxocarbonPurple)
)

// StateColor returns the badge color for a session state
func StateColor(state string) lipgloss.Color {
	switch state {
	case "ready":
		return OxocarbonGreen
	case "loading", "retrying":
		return OxocarbonBlue
	case "error":
		return OxocarbonPink
	case "closed":
		return OxocarbonBase03
	default:
		return lipgloss.Color("#A0AEC0")
	}
}

// FormatStateBadge renders a colored session state badge
func FormatStateBadge(state string) string {
	return StatusBadgeStyle.Foreground(StateColor(state)).Render(state)
}
