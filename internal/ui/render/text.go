// Package render lays text out in fixed-width terminal cells.
package render

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// Clean drops control characters and invalid UTF-8 from tag values so
// they cannot move the terminal cursor. Tabs become spaces.
func Clean(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == ' ':
			return ' '
		case r == unicode.ReplacementChar, unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.ToValidUTF8(s, ""))
}

// Fit cleans plain text and truncates or pads it to exactly width cells.
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.FillRight(runewidth.Truncate(Clean(s), width, ellipsis), width)
}

// Clip truncates already styled text to width cells, keeping escape
// sequences intact.
func Clip(styled string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(styled, width, ellipsis)
}

// Spread places left and right on one line of width cells with at least
// one space between them. Left is clipped when both do not fit.
func Spread(left, right string, width int) string {
	rw := ansi.StringWidth(right)
	left = Clip(left, width-rw-1)
	gap := max(width-ansi.StringWidth(left)-rw, 1)
	return left + strings.Repeat(" ", gap) + right
}

// Rule is a horizontal line of width cells.
func Rule(width int) string {
	return strings.Repeat("─", max(width, 0))
}
