// Package tui is the terminal front end for resolve and add-entry sessions:
// a live-preview keyword picker and a two-field entry form.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette of the original dark popup.
var (
	colorFg      = lipgloss.Color("#ffffff")
	colorEntryBg = lipgloss.Color("#3b3b3b")
	colorAccent  = lipgloss.Color("#6272a4")
	colorError   = lipgloss.Color("#ff5555")
	colorSuccess = lipgloss.Color("#50fa7b")
	colorMuted   = lipgloss.Color("#8a8a8a")
)

// Styles groups the lipgloss styles both models render with.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Preview lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Help    lipgloss.Style
	Frame   lipgloss.Style
}

// DefaultStyles returns the dark theme.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colorFg),
		Label:   lipgloss.NewStyle().Foreground(colorFg),
		Preview: lipgloss.NewStyle().Foreground(colorFg).Background(colorEntryBg).Padding(0, 1).Width(48),
		Error:   lipgloss.NewStyle().Foreground(colorError),
		Success: lipgloss.NewStyle().Foreground(colorSuccess),
		Help:    lipgloss.NewStyle().Foreground(colorMuted),
		Frame:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent).Padding(1, 2),
	}
}
