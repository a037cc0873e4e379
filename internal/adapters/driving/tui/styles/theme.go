// Package styles holds the palette and lipgloss styles shared by the TUI views.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colours the styles are built from.
type Palette struct {
	Accent  lipgloss.Color // headings, assistant label
	Tech    lipgloss.Color // user label, section headings
	Outdoor lipgloss.Color // selection background
	Text    lipgloss.Color
	Dim     lipgloss.Color
	Caution lipgloss.Color // notices and degraded answers
	Alert   lipgloss.Color
	Frame   lipgloss.Color
	Bar     lipgloss.Color
}

// DefaultPalette is an earthy dark palette: amber for the assistant,
// teal for the user and moss green for selection.
func DefaultPalette() Palette {
	return Palette{
		Accent:  lipgloss.Color("#E0A458"),
		Tech:    lipgloss.Color("#4FB3BF"),
		Outdoor: lipgloss.Color("#4E7D4A"),
		Text:    lipgloss.Color("#E8E3D9"),
		Dim:     lipgloss.Color("#8A8578"),
		Caution: lipgloss.Color("#F2C14E"),
		Alert:   lipgloss.Color("#E2665B"),
		Frame:   lipgloss.Color("#5A564D"),
		Bar:     lipgloss.Color("#2B2925"),
	}
}

// Styles contains the lipgloss styles used across views.
type Styles struct {
	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Selected   lipgloss.Style
	Error      lipgloss.Style
	Notice     lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
	Border     lipgloss.Style

	// User and Assistant label the two sides of the transcript.
	User      lipgloss.Style
	Assistant lipgloss.Style
}

// NewStyles builds styles from p.
func NewStyles(p Palette) *Styles {
	bold := lipgloss.NewStyle().Bold(true)
	rounded := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Frame)

	return &Styles{
		Title:      bold.Foreground(p.Accent),
		Subtitle:   bold.Foreground(p.Tech),
		Normal:     lipgloss.NewStyle().Foreground(p.Text),
		Muted:      lipgloss.NewStyle().Foreground(p.Dim),
		Selected:   bold.Foreground(p.Text).Background(p.Outdoor),
		Error:      bold.Foreground(p.Alert),
		Notice:     lipgloss.NewStyle().Italic(true).Foreground(p.Caution),
		InputField: rounded.Padding(0, 1),
		StatusBar:  lipgloss.NewStyle().Foreground(p.Dim).Background(p.Bar).Padding(0, 1),
		Help:       lipgloss.NewStyle().Foreground(p.Dim),
		Border:     rounded,
		User:       bold.Foreground(p.Tech),
		Assistant:  bold.Foreground(p.Accent),
	}
}

// DefaultStyles returns styles built from DefaultPalette.
func DefaultStyles() *Styles {
	return NewStyles(DefaultPalette())
}
