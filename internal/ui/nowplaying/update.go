package nowplaying

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-len(m.input.Prompt)-2, 1)
		m.scroll()
		return m, nil

	case eventMsg:
		cmd := m.apply(msg.ev)
		return m, tea.Batch(cmd, waitForEvent(m.feed.Events()))

	case feedClosedMsg:
		return m, tea.Quit

	case commandDoneMsg:
		if msg.err == nil {
			return m, nil
		}
		op := errmsg.OpControl
		if msg.cmd.Op == playback.OpAddTrack {
			op = errmsg.OpPlaylistAdd
		}
		return m, m.setStatus(errmsg.Format(op, msg.err), true)

	case clearStatusMsg:
		if msg.gen == m.statusGen {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.adding {
			return m.updateInput(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

// apply folds an event into the local snapshot.
func (m *Model) apply(ev playback.Event) tea.Cmd {
	var cmd tea.Cmd
	switch e := ev.(type) {
	case *playback.ResyncSnapshot:
		m.snap = e.Snapshot
		m.follow = true
	case *playback.SongChanged:
		m.snap.Track = e.Track
		m.snap.Index = e.Index
		m.snap.Elapsed = 0
		m.snap.Duration = 0
		if e.Track != nil {
			m.snap.Duration = e.Track.Duration
		}
	case *playback.StateChanged:
		m.snap.State = e.New
	case *playback.PositionUpdate:
		m.snap.Elapsed = e.Elapsed
		m.snap.Duration = e.Duration
	case *playback.PlaylistChanged:
		var cur *playlist.Track
		if e.Index >= 0 && e.Index < len(e.Tracks) {
			t := e.Tracks[e.Index]
			cur = &t
		}
		if !sameTrack(m.snap.Track, cur) {
			m.snap.Elapsed = 0
			m.snap.Duration = 0
			if cur != nil {
				m.snap.Duration = cur.Duration
			}
		}
		m.snap.Tracks = e.Tracks
		m.snap.Index = e.Index
		m.snap.Track = cur
	case *playback.VolumeChanged:
		m.snap.Volume = e.Level
	case *playback.ModeChanged:
		m.snap.Loop = e.Loop
	case *playback.PlaybackError:
		cmd = m.setStatus(e.Message, true)
	}
	m.snap.Seq = ev.Meta().Seq

	if m.follow && m.snap.Index >= 0 {
		m.cursor = m.snap.Index
	}
	m.scroll()
	return cmd
}

func sameTrack(a, b *playlist.Track) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Path == b.Path
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.adding = false
		m.input.Blur()
		m.input.Reset()
		return m, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.input.Value())
		m.adding = false
		m.input.Blur()
		m.input.Reset()
		if path == "" {
			return m, nil
		}
		return m, m.submit(playback.Command{Op: playback.OpAddTrack, Path: path})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.snap.Tracks)

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.PlayPause):
		op := playback.OpPlay
		if m.snap.State == playback.StatePlaying {
			op = playback.OpPause
		}
		return m, m.submit(playback.Command{Op: op})

	case key.Matches(msg, m.keys.Stop):
		return m, m.submit(playback.Command{Op: playback.OpStop})

	case key.Matches(msg, m.keys.Next):
		m.follow = true
		return m, m.submit(playback.Command{Op: playback.OpNext})

	case key.Matches(msg, m.keys.Prev):
		m.follow = true
		return m, m.submit(playback.Command{Op: playback.OpPrevious})

	case key.Matches(msg, m.keys.VolUp):
		return m, m.submit(playback.Command{Op: playback.OpSetVolume, Level: min(m.snap.Volume+volumeStep, 1)})

	case key.Matches(msg, m.keys.VolDown):
		return m, m.submit(playback.Command{Op: playback.OpSetVolume, Level: max(m.snap.Volume-volumeStep, 0)})

	case key.Matches(msg, m.keys.Loop):
		return m, m.submit(playback.Command{Op: playback.OpSetLoop, Enabled: !m.snap.Loop})

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.Jump):
		if n > 0 {
			m.follow = true
			return m, m.submit(playback.Command{Op: playback.OpJump, Index: m.cursor})
		}

	case key.Matches(msg, m.keys.Remove):
		if n > 0 {
			return m, m.submit(playback.Command{Op: playback.OpRemoveTrack, Index: m.cursor})
		}

	case key.Matches(msg, m.keys.MoveUp):
		if n > 0 && m.cursor > 0 {
			from := m.cursor
			m.moveCursor(-1)
			return m, m.submit(playback.Command{Op: playback.OpReorder, From: from, To: from - 1})
		}

	case key.Matches(msg, m.keys.MoveDown):
		if n > 0 && m.cursor < n-1 {
			from := m.cursor
			m.moveCursor(1)
			return m, m.submit(playback.Command{Op: playback.OpReorder, From: from, To: from + 1})
		}

	case key.Matches(msg, m.keys.Add):
		m.adding = true
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.scroll()
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	n := len(m.snap.Tracks)
	if n == 0 {
		return
	}
	m.follow = false
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.scroll()
}

// scroll clamps the cursor and keeps it inside the visible rows.
func (m *Model) scroll() {
	n := len(m.snap.Tracks)
	m.cursor = min(max(m.cursor, 0), max(n-1, 0))

	rows := m.listRows()
	if rows <= 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	m.offset = min(m.offset, max(n-rows, 0))
}
