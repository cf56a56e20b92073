// Package ui implements the Bubbletea TUI. Controls, visualizer and lyrics are
// independent modules that only talk to the player through the bus.
package ui

import (
	"context"
	"image"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/josephniet/audiovis/bus"
	"github.com/josephniet/audiovis/config"
	"github.com/josephniet/audiovis/player"
	"github.com/josephniet/audiovis/playlist"
)

const (
	visRows        = 10 // terminal rows given to the visualizer
	progressStrip  = 4  // canvas pixels above the seek bar announced as the progress region
	titleScrollGap = 250 * time.Millisecond

	// Screen position of the seek bar: border and padding above and to the left,
	// then title, track, time and a blank line before the visualizer.
	seekBarRow = 2 + 4 + visRows
	seekBarCol = 3

	frameOverhead = 6 // border and horizontal padding of frameStyle
)

type loadMsg struct{ index int }

// Model is the Bubbletea model for the audiovis TUI.
type Model struct {
	player   *player.Player
	playlist *playlist.Playlist
	bus      *bus.Bus
	controls *Controls
	vis      *Visualizer
	lyrics   *Lyrics

	frameInterval time.Duration
	readyTimeout  time.Duration
	loadTimeout   time.Duration

	plCursor  int // selected playlist item
	plScroll  int // scroll offset for playlist view
	plVisible int // max visible playlist items
	lastIdx   int
	started   time.Time
	now       time.Time
	err       error
	quitting  bool
}

// NewModel wires the UI modules to b. The player must already be bound to b.
func NewModel(p *player.Player, b *bus.Bus, s *config.Settings) (Model, error) {
	vis, err := NewVisualizer(b, s, panelWidth, visRows)
	if err != nil {
		return Model{}, err
	}
	m := Model{
		player:        p,
		playlist:      p.Playlist(),
		bus:           b,
		controls:      NewControls(b),
		vis:           vis,
		lyrics:        NewLyrics(b),
		frameInterval: s.FrameInterval(),
		readyTimeout:  s.ReadyTimeout,
		loadTimeout:   s.Audio.LoadTimeout,
		plVisible:     5,
		lastIdx:       -1,
	}
	m.controls.SetProgressRect(m.progressRect())
	return m, nil
}

// Close releases the UI modules' subscriptions.
func (m Model) Close() {
	m.vis.Close()
	m.controls.Close()
	m.lyrics.Close()
}

// Init starts the frame clock, the visualizer's readiness wait and the first load.
func (m Model) Init() tea.Cmd {
	_, idx := m.playlist.Current()
	cmds := []tea.Cmd{
		frameCmd(m.frameInterval),
		tea.WindowSize(),
		m.vis.Await(m.player, m.readyTimeout),
	}
	if idx >= 0 {
		cmds = append(cmds, func() tea.Msg { return loadMsg{index: idx} })
	}
	return tea.Batch(cmds...)
}

// Update handles input, the frame clock, loads and readiness.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.handleKey(msg)
		if m.quitting {
			return m, tea.Quit
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width)

	case loadMsg:
		m.playIndex(msg.index)

	case visReadyMsg:
		m.vis.attach(msg, m.player.IsPlaying())

	case frameMsg:
		now := time.Time(msg)
		if m.started.IsZero() {
			m.started = now
		}
		m.now = now
		m.player.Poll(now)
		m.vis.tick(now)
		m.followPlaylist()
		return m, frameCmd(m.frameInterval)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
	case " ":
		m.controls.TogglePlay()
	case "s":
		m.controls.Stop()
	case "left":
		m.controls.SeekBy(-SeekStep)
	case "right":
		m.controls.SeekBy(SeekStep)
	case "+", "=":
		m.controls.SetVolume(m.controls.Volume() + VolumeStep)
	case "-":
		m.controls.SetVolume(m.controls.Volume() - VolumeStep)
	case ">", "n":
		m.controls.Next()
		m.followPlaylist()
	case "<", "p":
		m.controls.Previous()
		m.followPlaylist()
	case "m":
		m.vis.CycleMode()
	case "up", "k":
		if m.plCursor > 0 {
			m.plCursor--
			m.adjustScroll()
		}
	case "down", "j":
		if m.plCursor < m.playlist.Len()-1 {
			m.plCursor++
			m.adjustScroll()
		}
	case "enter":
		m.playIndex(m.plCursor)
	}
}

// handleMouse seeks when the seek bar is clicked.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft || msg.Y != seekBarRow {
		return
	}
	if r, ok := ClickRatio(msg.X-seekBarCol, panelWidth); ok {
		m.controls.SeekToRatio(r)
	}
}

// playIndex loads playlist entry i and starts it.
func (m *Model) playIndex(i int) {
	ctx, cancel := context.WithTimeout(context.Background(), m.loadTimeout)
	defer cancel()
	if err := m.player.GoTo(ctx, i); err != nil {
		m.err = err
		return
	}
	m.err = nil
	if !m.player.IsPlaying() {
		_ = m.bus.Publish(bus.Play, nil)
	}
	m.followPlaylist()
}

// followPlaylist moves the cursor to the current track when it changes.
func (m *Model) followPlaylist() {
	idx := m.playlist.Index()
	if idx == m.lastIdx {
		return
	}
	m.lastIdx = idx
	if idx >= 0 {
		m.plCursor = idx
		m.adjustScroll()
	}
}

// adjustScroll ensures plCursor is visible in the playlist view.
func (m *Model) adjustScroll() {
	if m.plCursor < m.plScroll {
		m.plScroll = m.plCursor
	}
	if m.plCursor >= m.plScroll+m.plVisible {
		m.plScroll = m.plCursor - m.plVisible + 1
	}
}

// resize fits the visualizer into a terminal of the given width, up to panelWidth
// columns, and announces the moved progress region.
func (m *Model) resize(termWidth int) {
	cols := max(1, min(panelWidth, termWidth-frameOverhead))
	if w, _ := m.vis.SurfaceSize(); w != cols {
		m.vis.Resize(cols, visRows)
	}
	m.controls.SetProgressRect(m.progressRect())
}

// progressRect is the strip of the visualizer canvas directly above the seek bar.
func (m Model) progressRect() image.Rectangle {
	w, h := m.vis.SurfaceSize()
	return image.Rect(0, max(0, h-progressStrip), w, h)
}

func (m Model) titleOffset() int {
	if m.started.IsZero() {
		return 0
	}
	return int(m.now.Sub(m.started) / titleScrollGap)
}
