// Package styles holds the palette and styles of the terminal UI.
package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette.
type Theme struct {
	Accent    lipgloss.Color // current track, focused border
	AccentAlt lipgloss.Color // end of the title gradient

	Fg       lipgloss.Color
	FgMuted  lipgloss.Color
	FgSubtle lipgloss.Color

	Cursor lipgloss.Color // selection background
	Border lipgloss.Color

	Good lipgloss.Color
	Bad  lipgloss.Color
	Warn lipgloss.Color

	styles *Styles
}

// Styles are the lipgloss styles built from a Theme.
type Styles struct {
	Text     lipgloss.Style
	Muted    lipgloss.Style
	Subtle   lipgloss.Style
	Current  lipgloss.Style // the track under the playback cursor
	Selected lipgloss.Style // the row under the list cursor
	Good     lipgloss.Style
	Bad      lipgloss.Style
	Warn     lipgloss.Style
	Panel    lipgloss.Style
}

var palette = Theme{
	Accent:    lipgloss.Color("#a78bfa"),
	AccentAlt: lipgloss.Color("#f1a208"),

	Fg:       lipgloss.Color("#c0c0c0"),
	FgMuted:  lipgloss.Color("#808080"),
	FgSubtle: lipgloss.Color("#585858"),

	Cursor: lipgloss.Color("#303030"),
	Border: lipgloss.Color("#585858"),

	Good: lipgloss.Color("#42b883"),
	Bad:  lipgloss.Color("#ff5555"),
	Warn: lipgloss.Color("#f1a208"),
}

// T returns the palette in use.
func T() *Theme {
	return &palette
}

// S returns the styles of the theme, building them on first use.
func (t *Theme) S() *Styles {
	if t.styles == nil {
		t.styles = &Styles{
			Text:     lipgloss.NewStyle().Foreground(t.Fg),
			Muted:    lipgloss.NewStyle().Foreground(t.FgMuted),
			Subtle:   lipgloss.NewStyle().Foreground(t.FgSubtle),
			Current:  lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
			Selected: lipgloss.NewStyle().Background(t.Cursor).Foreground(t.Fg),
			Good:     lipgloss.NewStyle().Foreground(t.Good),
			Bad:      lipgloss.NewStyle().Foreground(t.Bad),
			Warn:     lipgloss.NewStyle().Foreground(t.Warn),
			Panel: lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(t.Border),
		}
	}
	return t.styles
}
