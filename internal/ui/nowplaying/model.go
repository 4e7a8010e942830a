// Package nowplaying is the terminal UI: the current track with its
// progress, and the playlist. It renders what the coordinator publishes and
// sends every user action back as a command.
package nowplaying

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/wavesd/internal/playback"
)

const (
	commandTimeout = 5 * time.Second
	statusTTL      = 4 * time.Second
	volumeStep     = 0.05
)

// Controller accepts playback commands.
type Controller interface {
	Submit(ctx context.Context, cmd playback.Command) error
}

// Feed is the event source of the UI, usually a *playback.Subscription.
type Feed interface {
	Events() <-chan playback.Event
	Dropped() uint64
}

type (
	eventMsg       struct{ ev playback.Event }
	feedClosedMsg  struct{}
	commandDoneMsg struct {
		cmd playback.Command
		err error
	}
	clearStatusMsg struct{ gen int }
)

// Model is the bubbletea model of the UI.
type Model struct {
	ctrl Controller
	feed Feed
	snap playback.Snapshot

	keys  keyMap
	help  help.Model
	input textinput.Model

	adding bool
	width  int
	height int

	cursor int
	offset int
	follow bool // keep the list cursor on the current track

	status    string
	statusErr bool
	statusGen int
}

// New creates the UI. The first event of feed is expected to be a resync.
func New(ctrl Controller, feed Feed) Model {
	in := textinput.New()
	in.Prompt = "add: "
	in.Placeholder = "/path/to/file.mp3"
	in.CharLimit = 4096

	return Model{
		ctrl:   ctrl,
		feed:   feed,
		snap:   playback.Snapshot{Index: -1},
		keys:   defaultKeys(),
		help:   help.New(),
		input:  in,
		follow: true,
	}
}

// Init starts waiting for events.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.feed.Events())
}

func waitForEvent(events <-chan playback.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return feedClosedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

func (m Model) submit(cmd playback.Command) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return commandDoneMsg{cmd: cmd, err: ctrl.Submit(ctx, cmd)}
	}
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusGen++
	m.status = text
	m.statusErr = isErr
	gen := m.statusGen
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{gen: gen}
	})
}
