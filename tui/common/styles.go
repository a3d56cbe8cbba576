package common

import "github.com/charmbracelet/lipgloss"

// Palette. Peach is the accent used for anything the cursor is on.
var (
	Peach   = lipgloss.Color("#F5A97F")
	Sky     = lipgloss.Color("#7DC4E4")
	Teal    = lipgloss.Color("#8BD5CA")
	Text    = lipgloss.Color("#CAD3F5")
	Muted   = lipgloss.Color("#6E738D")
	Surface = lipgloss.Color("#45475A")
	Green   = lipgloss.Color("#A6DA95")
	Red     = lipgloss.Color("#ED8796")
	Yellow  = lipgloss.Color("#EED49F")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

func card(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1)
}

var (
	AppTitleStyle    = fg(Peach).Bold(true).Padding(1, 2, 0, 1)
	TabActiveStyle   = fg(Peach).Bold(true).Underline(true).Padding(0, 1)
	TabInactiveStyle = fg(Muted).Padding(0, 1)

	AuthorStyle    = fg(Sky).Bold(true)
	TimestampStyle = fg(Muted)
	ContentStyle   = fg(Text)
	// MetaStyle is the mood / place / music line under a moment.
	MetaStyle = fg(Teal).Italic(true)

	SelectedStyle   = card(Peach)
	UnselectedStyle = card(Surface)

	// BadgeStyle is for short markers after a name ("you", a check mark).
	BadgeStyle = fg(Green).Bold(true).MarginLeft(1)

	StatusBarStyle = fg(Muted).Padding(1, 0, 0, 0)
	ConfirmStyle   = fg(Red).Bold(true).Padding(0, 1)
	ErrorStyle     = fg(Red).Bold(true)
	UnreadStyle    = fg(Yellow).Bold(true)

	SpinnerStyle = fg(Peach)
)
