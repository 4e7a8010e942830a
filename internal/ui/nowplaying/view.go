package nowplaying

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/ui/render"
	"github.com/llehouerou/wavesd/internal/ui/styles"
)

// Rows above the track list: title bar, rule, three now-playing lines,
// rule, list header.
const headerRows = 7

const (
	barFilled = "▓"
	barEmpty  = "░"
)

func (m Model) helpRows() int {
	if !m.help.ShowAll {
		return 1
	}
	rows := 0
	for _, col := range m.keys.FullHelp() {
		rows = max(rows, len(col))
	}
	return rows
}

func (m Model) listRows() int {
	return m.height - headerRows - 1 - m.helpRows()
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	s := styles.T().S()
	w := m.width

	lines := make([]string, 0, m.height)
	lines = append(lines, m.titleBar(w), s.Subtle.Render(render.Rule(w)))
	lines = append(lines, m.nowPlaying(w)...)
	lines = append(lines, s.Subtle.Render(render.Rule(w)), m.listHeader(w))
	lines = append(lines, m.trackRows(w)...)
	lines = append(lines, m.statusLine(w), m.help.View(m.keys))
	return strings.Join(lines, "\n")
}

func (m Model) titleBar(width int) string {
	t := styles.T()
	s := t.S()

	var state string
	switch m.snap.State {
	case playback.StatePlaying:
		state = s.Good.Render("▶ playing")
	case playback.StatePaused:
		state = s.Warn.Render("⏸ paused")
	default:
		state = s.Muted.Render("■ stopped")
	}
	left := " " + styles.Gradient("wavesd", t.Accent, t.AccentAlt) + "  " + state

	right := []string{s.Muted.Render(fmt.Sprintf("vol %3d%%", int(m.snap.Volume*100+0.5)))}
	if m.snap.Loop {
		right = append(right, s.Current.Render("⟳ loop"))
	}
	if d := m.feed.Dropped(); d > 0 {
		right = append(right, s.Warn.Render("⚠ "+humanize.Comma(int64(d))+" dropped"))
	}
	return render.Spread(left, strings.Join(right, "  ")+" ", width)
}

func (m Model) nowPlaying(width int) []string {
	t := styles.T()
	s := t.S()
	inner := width - 2

	if m.snap.Track == nil {
		return []string{
			" " + s.Muted.Render(render.Fit("Nothing playing", inner)),
			"",
			"",
		}
	}

	track := m.snap.Track
	title := track.Title
	if title == "" {
		title = track.DisplayName()
	}

	var info []string
	for _, v := range []string{track.Artist, track.Album} {
		if v != "" {
			info = append(info, v)
		}
	}

	return []string{
		" " + render.Clip(styles.Gradient(render.Clean(title), t.Accent, t.AccentAlt), inner),
		" " + s.Muted.Render(render.Fit(strings.Join(info, " · "), inner)),
		" " + progressBar(m.snap.Elapsed, m.snap.Duration, m.snap.Progress(), inner),
	}
}

// progressBar renders "1:23  ▓▓▓▓░░░░  3:58" in width cells.
func progressBar(elapsed, duration time.Duration, ratio float64, width int) string {
	s := styles.T().S()
	pos := formatDuration(elapsed)
	total := "--:--"
	if duration > 0 {
		total = formatDuration(duration)
	}

	barWidth := width - lipgloss.Width(pos) - lipgloss.Width(total) - 4
	if barWidth < 3 {
		return s.Muted.Render(pos + " / " + total)
	}
	filled := min(int(float64(barWidth)*ratio), barWidth)
	bar := s.Current.Render(strings.Repeat(barFilled, filled)) +
		s.Subtle.Render(strings.Repeat(barEmpty, barWidth-filled))
	return s.Muted.Render(pos) + "  " + bar + "  " + s.Muted.Render(total)
}

func (m Model) listHeader(width int) string {
	s := styles.T().S()
	n := len(m.snap.Tracks)

	var total time.Duration
	for _, tr := range m.snap.Tracks {
		total += tr.Duration
	}

	left := fmt.Sprintf(" Playlist (%d/%s)", m.snap.Index+1, humanize.Comma(int64(n)))
	right := ""
	if total > 0 {
		right = formatDuration(total) + " "
	}
	return s.Text.Bold(true).Render(render.Spread(left, right, width))
}

func (m Model) trackRows(width int) []string {
	rows := m.listRows()
	if rows <= 0 {
		return nil
	}
	s := styles.T().S()
	tracks := m.snap.Tracks

	lines := make([]string, 0, rows)
	for i := m.offset; i < m.offset+rows; i++ {
		if i >= len(tracks) {
			lines = append(lines, "")
			continue
		}
		tr := tracks[i]

		prefix := "   "
		if i == m.snap.Index {
			prefix = " ▶ "
		}
		num := fmt.Sprintf("%3d  ", i+1)
		dur := ""
		if tr.Duration > 0 {
			dur = formatDuration(tr.Duration)
		}
		dur = fmt.Sprintf("%7s ", dur)
		name := render.Fit(tr.DisplayName(), width-lipgloss.Width(prefix)-len(num)-len(dur))

		lines = append(lines, m.rowStyle(i).Render(prefix+num+name+dur))
	}
	if len(tracks) == 0 {
		lines[0] = s.Subtle.Render("   Playlist is empty, press a to add a file")
	}
	return lines
}

func (m Model) rowStyle(i int) lipgloss.Style {
	s := styles.T().S()
	selected := i == m.cursor
	current := i == m.snap.Index
	switch {
	case selected && current:
		return s.Selected.Inherit(s.Current)
	case selected:
		return s.Selected
	case current:
		return s.Current
	case m.snap.Index >= 0 && i < m.snap.Index:
		return s.Subtle
	default:
		return s.Text
	}
}

func (m Model) statusLine(width int) string {
	s := styles.T().S()
	switch {
	case m.adding:
		return m.input.View()
	case m.status == "":
		return ""
	case m.statusErr:
		return s.Bad.Render(render.Fit(" "+m.status, width))
	default:
		return s.Muted.Render(render.Fit(" "+m.status, width))
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	mi := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mi, sec)
	}
	return fmt.Sprintf("%d:%02d", mi, sec)
}
