package render

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Song Title", "Song Title"},
		{"tab becomes space", "a\tb", "a b"},
		{"newline dropped", "a\nb", "ab"},
		{"escape dropped", "a\x1b[2Jb", "a[2Jb"},
		{"invalid utf8 dropped", "caf\xe9", "caf"},
		{"unicode kept", "Sigur Rós", "Sigur Rós"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"pads", "abc", 6, "abc   "},
		{"exact", "abcdef", 6, "abcdef"},
		{"truncates", "hello world", 8, "hello w…"},
		{"wide runes", "日本語テキスト", 6, "日本… "},
		{"zero width", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(tt.input, tt.width)
			if got != tt.want {
				t.Errorf("Fit(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
			}
		})
	}
}

func TestClip(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("hello world")
	got := Clip(styled, 6)
	if w := ansi.StringWidth(got); w != 6 {
		t.Errorf("Clip width = %d, want 6", w)
	}
	if plain := ansi.Strip(got); plain != "hello…" {
		t.Errorf("Clip text = %q", plain)
	}
	if Clip(styled, 0) != "" {
		t.Error("Clip to zero width should be empty")
	}
}

func TestSpread(t *testing.T) {
	tests := []struct {
		left, right string
		width       int
		want        string
	}{
		{"left", "right", 14, "left     right"},
		{"left", "right", 10, "left right"},
		{"a long left side", "right", 12, "a lon… right"},
	}
	for _, tt := range tests {
		got := Spread(tt.left, tt.right, tt.width)
		if got != tt.want {
			t.Errorf("Spread(%q, %q, %d) = %q, want %q", tt.left, tt.right, tt.width, got, tt.want)
		}
	}
}

func TestRule(t *testing.T) {
	if got := Rule(3); got != "───" {
		t.Errorf("Rule(3) = %q", got)
	}
	if got := Rule(-1); got != "" {
		t.Errorf("Rule(-1) = %q", got)
	}
}
