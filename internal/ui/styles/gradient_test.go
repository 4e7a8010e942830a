package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func TestGradient(t *testing.T) {
	tests := []struct {
		name string
		text string
		from lipgloss.Color
		to   lipgloss.Color
	}{
		{"empty", "", "#000000", "#ffffff"},
		{"single cluster", "é", "#000000", "#ffffff"},
		{"ascii", "wavesd", "#a78bfa", "#f1a208"},
		{"wide runes", "音楽プレーヤー", "#a78bfa", "#f1a208"},
		{"ansi colors fall back", "wavesd", "39", "240"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Gradient(tt.text, tt.from, tt.to)
			if plain := ansi.Strip(got); plain != tt.text {
				t.Errorf("Gradient(%q) text = %q", tt.text, plain)
			}
		})
	}
}

func TestStylesBuiltOnce(t *testing.T) {
	if T().S() != T().S() {
		t.Error("S() should return the same styles on every call")
	}
}
