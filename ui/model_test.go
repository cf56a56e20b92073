package ui

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephniet/audiovis/bus"
	"github.com/josephniet/audiovis/config"
	"github.com/josephniet/audiovis/player"
	"github.com/josephniet/audiovis/playlist"
	"github.com/josephniet/audiovis/render"
)

const testRate = beep.SampleRate(44100)

// nullOutput accepts streamers and never pulls them.
type nullOutput struct{ mu sync.Mutex }

func (o *nullOutput) Play(...beep.Streamer) {}
func (o *nullOutput) Clear()                {}
func (o *nullOutput) Lock()                 { o.mu.Lock() }
func (o *nullOutput) Unlock()               { o.mu.Unlock() }

func writeWAV(t *testing.T, dir, name string, d time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)

	total := testRate.N(d)
	i := 0
	tone := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if i >= total {
			return 0, false
		}
		n := min(len(samples), total-i)
		for j := range n {
			v := 0.5 * math.Sin(2*math.Pi*440*float64(i+j)/float64(testRate))
			samples[j] = [2]float64{v, v}
		}
		i += n
		return n, true
	})
	require.NoError(t, wav.Encode(f, tone, beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}))
	require.NoError(t, f.Close())
	return path
}

func newTestModel(t *testing.T, paths ...string) Model {
	t.Helper()
	b := newTestBus()
	pl := playlist.New()
	for _, p := range paths {
		pl.Add(playlist.TrackFromPath(p))
	}
	p := player.New(&nullOutput{}, pl, b, player.WithSampleRate(testRate))
	p.Bind()
	t.Cleanup(p.Close)

	m, err := NewModel(p, b, config.Defaults())
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelPlaysAndVisualizes(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel(t,
		writeWAV(t, dir, "Artist - Song 1.wav", 2*time.Second),
		writeWAV(t, dir, "Artist - Song 2.wav", 2*time.Second))

	m, _ = update(t, m, loadMsg{index: 0})
	require.NoError(t, m.err)
	assert.True(t, m.player.IsPlaying())

	m, _ = update(t, m, m.vis.Await(m.player, time.Second)())
	assert.True(t, m.vis.Attached())
	assert.True(t, m.vis.Running())
	assert.Equal(t, m.progressRect(), m.vis.engine.Target())

	m, cmd := update(t, m, frameMsg(time.Now()))
	assert.NotNil(t, cmd, "the frame clock keeps ticking")
	assert.Equal(t, uint64(1), m.vis.engine.Frames())

	view := m.View()
	assert.Contains(t, view, "Artist - Song 1")
	assert.Contains(t, view, "Playlist (2)")

	m, _ = update(t, m, key(" "))
	assert.False(t, m.player.IsPlaying())
	assert.False(t, m.vis.Running())

	m, _ = update(t, m, key("m"))
	assert.Equal(t, render.ModeWaveform, m.vis.Mode())

	m, _ = update(t, m, key("n"))
	assert.Equal(t, 1, m.playlist.Index())
	assert.Equal(t, 1, m.plCursor)

	m, cmd = update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestModelSeekBarClick(t *testing.T) {
	m := newTestModel(t, writeWAV(t, t.TempDir(), "tone.wav", 2*time.Second))
	m, _ = update(t, m, loadMsg{index: 0})
	require.NoError(t, m.err)

	m, _ = update(t, m, tea.MouseMsg{
		X: seekBarCol + 30, Y: seekBarRow,
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft,
	})
	assert.InDelta(t, 2*30.0/59, m.player.CurrentTime(), 0.01)
	assert.InDelta(t, 2*30.0/59, m.controls.CurrentTime(), 0.01)

	before := m.player.CurrentTime()
	m, _ = update(t, m, tea.MouseMsg{
		X: seekBarCol + 10, Y: seekBarRow + 1,
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft,
	})
	assert.Equal(t, before, m.player.CurrentTime(), "clicks off the bar are ignored")
}

func TestModelPlaylistNavigation(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, n := range []string{"a.wav", "b.wav", "c.wav"} {
		paths = append(paths, writeWAV(t, dir, n, 500*time.Millisecond))
	}
	m := newTestModel(t, paths...)

	m, _ = update(t, m, key("j"))
	m, _ = update(t, m, key("j"))
	m, _ = update(t, m, key("j"))
	assert.Equal(t, 2, m.plCursor, "cursor stops at the last entry")

	m, _ = update(t, m, key("enter"))
	require.NoError(t, m.err)
	assert.Equal(t, 2, m.playlist.Index())
	assert.True(t, m.player.IsPlaying())

	m, _ = update(t, m, key("k"))
	assert.Equal(t, 1, m.plCursor)
}

func TestModelShowsLoadFailure(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "missing.wav"))
	m, _ = update(t, m, loadMsg{index: 0})
	require.Error(t, m.err)

	m, _ = update(t, m, m.vis.Await(m.player, time.Second)())
	assert.False(t, m.vis.Attached())

	view := m.View()
	assert.Contains(t, view, "ERR")
	assert.Contains(t, view, "visualizer off")
}

func TestModelFitsVisualizerToWindow(t *testing.T) {
	m := newTestModel(t, writeWAV(t, t.TempDir(), "tone.wav", time.Second))
	got := capture(m.bus, bus.ControlsData)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 30})
	w, h := m.vis.SurfaceSize()
	assert.Equal(t, 40-frameOverhead, w)
	assert.Equal(t, visRows*2, h)
	require.Len(t, *got, 1)
	assert.Equal(t, image.Rect(0, h-progressStrip, w, h), (*got)[0].payload.(bus.ControlsDataEvent).ProgressRect)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 30})
	w, _ = m.vis.SurfaceSize()
	assert.Equal(t, panelWidth, w, "never wider than the panel")
	require.Len(t, *got, 2)
	assert.Equal(t, panelWidth, (*got)[1].payload.(bus.ControlsDataEvent).ProgressRect.Dx())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 3, Height: 30})
	w, _ = m.vis.SurfaceSize()
	assert.Equal(t, 1, w)
}
