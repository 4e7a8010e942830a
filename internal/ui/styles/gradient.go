package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// Gradient renders text in bold with its color blended from one end to the
// other, one step per grapheme cluster. Colors that are not #rrggbb hex
// values render the whole text in from.
func Gradient(text string, from, to lipgloss.Color) string {
	var clusters []string
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}

	base := lipgloss.NewStyle().Bold(true)
	start, err1 := colorful.Hex(string(from))
	end, err2 := colorful.Hex(string(to))
	if len(clusters) < 2 || err1 != nil || err2 != nil {
		return base.Foreground(from).Render(text)
	}

	var b strings.Builder
	last := float64(len(clusters) - 1)
	for i, c := range clusters {
		// HCL keeps the perceived brightness even along the blend.
		col := start.BlendHcl(end, float64(i)/last).Clamped()
		b.WriteString(base.Foreground(lipgloss.Color(col.Hex())).Render(c))
	}
	return b.String()
}
