package ui

import (
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephniet/audiovis/bus"
	"github.com/josephniet/audiovis/config"
	"github.com/josephniet/audiovis/errs"
	"github.com/josephniet/audiovis/playlist"
	"github.com/josephniet/audiovis/ready"
	"github.com/josephniet/audiovis/render"
)

// toneStream is a 440 Hz stereo source for the analyzer.
type toneStream struct{ rate int }

func (s *toneStream) Samples(n int) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		v := 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(s.rate))
		out[i] = [2]float64{v, v}
	}
	return out
}

func (s *toneStream) SampleRate() int { return s.rate }

type readySource struct {
	sig *ready.Signal[bus.AudioDataEvent]
}

func (r readySource) Ready() *ready.Signal[bus.AudioDataEvent] { return r.sig }

func newReadySource() readySource {
	return readySource{sig: ready.New[bus.AudioDataEvent]()}
}

func TestFrameSchedulerRunsQueuedFrames(t *testing.T) {
	s := &frameScheduler{}
	var ran []int
	s.RequestFrame(func(time.Time) { ran = append(ran, 1) })
	id := s.RequestFrame(func(time.Time) { ran = append(ran, 2) })
	s.RequestFrame(func(time.Time) {
		ran = append(ran, 3)
		s.RequestFrame(func(time.Time) { ran = append(ran, 4) })
	})
	s.CancelFrame(id)
	s.CancelFrame(999)

	assert.Equal(t, 2, s.run(time.Now()))
	assert.Equal(t, []int{1, 3}, ran)
	assert.Equal(t, 1, s.run(time.Now()), "frames requested while running wait a tick")
	assert.Equal(t, []int{1, 3, 4}, ran)
	assert.Zero(t, s.run(time.Now()))
}

func TestHalfBlocksPacksTwoPixelsPerCell(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	out := halfBlocks(img)
	rows := strings.Split(out, "\n")
	require.Len(t, rows, 2, "odd heights round up")
	for _, r := range rows {
		assert.Equal(t, 3, lipgloss.Width(r))
		assert.Equal(t, 3, strings.Count(r, upperHalf))
	}
	assert.Empty(t, halfBlocks(nil))
}

func TestLyricsFollowProgress(t *testing.T) {
	b := newTestBus()
	l := NewLyrics(b)
	defer l.Close()

	track := playlist.Track{Src: "a.mp3", Lyrics: "[00:01.00]one\n[00:03.00]two\n"}
	require.NoError(t, b.Publish(bus.TrackChanged, bus.TrackEvent{Track: track}))
	assert.True(t, l.Loaded())

	for _, step := range []struct {
		at   float64
		want string
	}{
		{0.5, ""},
		{1.5, "one"},
		{3.2, "two"},
		{0.2, ""},
		{1.0, "one"},
	} {
		require.NoError(t, b.Publish(bus.ProgressUpdate, bus.ProgressEvent{CurrentTime: step.at, Duration: 10}))
		assert.Equal(t, step.want, l.Line(), "at %v", step.at)
	}

	require.NoError(t, b.Publish(bus.TrackChanged, bus.TrackEvent{Track: playlist.Track{Src: "b.mp3"}}))
	assert.False(t, l.Loaded())
	assert.Empty(t, l.Line())
}

func TestLyricsPickUpCurrentTrack(t *testing.T) {
	b := newTestBus()
	track := playlist.Track{Src: "a.mp3", Lyrics: "[00:00.50]hello"}
	require.NoError(t, b.Publish(bus.TrackChanged, bus.TrackEvent{Track: track}))

	l := NewLyrics(b)
	defer l.Close()
	assert.True(t, l.Loaded(), "durable track-changed is replayed")
}

func newTestVisualizer(t *testing.T, b *bus.Bus) *Visualizer {
	t.Helper()
	v, err := NewVisualizer(b, config.Defaults(), 20, 4)
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v
}

func TestVisualizerStartsOnPlayAfterReady(t *testing.T) {
	b := newTestBus()
	v := newTestVisualizer(t, b)
	src := newReadySource()

	cmd := v.Await(src, time.Second)
	require.True(t, src.sig.Resolve(bus.AudioDataEvent{Stream: &toneStream{rate: 44100}}))
	msg, ok := cmd().(visReadyMsg)
	require.True(t, ok)

	v.attach(msg, false)
	assert.True(t, v.Attached())
	assert.False(t, v.Running())

	require.NoError(t, b.Publish(bus.PlayStateUpdate, bus.PlayStateEvent{IsPlaying: true}))
	assert.True(t, v.Running())
	v.tick(time.Now())
	v.tick(time.Now())
	assert.Equal(t, uint64(2), v.engine.Frames())
	assert.True(t, v.analyzer.Connected())

	require.NoError(t, b.Publish(bus.PlayStateUpdate, bus.PlayStateEvent{IsPlaying: false}))
	assert.False(t, v.Running())
	v.tick(time.Now())
	assert.Equal(t, uint64(2), v.engine.Frames(), "no frames while paused")
}

func TestVisualizerStartsImmediatelyWhenAlreadyPlaying(t *testing.T) {
	b := newTestBus()
	v := newTestVisualizer(t, b)
	v.attach(visReadyMsg{data: bus.AudioDataEvent{Stream: &toneStream{rate: 48000}}}, true)
	assert.True(t, v.Running())
}

func TestVisualizerStaysOffWhenNotReady(t *testing.T) {
	b := newTestBus()

	v := newTestVisualizer(t, b)
	src := newReadySource()
	reason := errors.New("decode failed")
	src.sig.Reject(reason)
	v.attach(v.Await(src, time.Second)().(visReadyMsg), true)
	assert.False(t, v.Attached())
	assert.ErrorIs(t, v.Err(), reason)

	require.NoError(t, b.Publish(bus.PlayStateUpdate, bus.PlayStateEvent{IsPlaying: true}))
	assert.False(t, v.Running())

	slow := newTestVisualizer(t, b)
	slow.attach(slow.Await(newReadySource(), 10*time.Millisecond)().(visReadyMsg), true)
	assert.ErrorIs(t, slow.Err(), errs.ErrTimeout)
	assert.False(t, slow.Attached())
}

func TestVisualizerReconnectsOnNewAudioData(t *testing.T) {
	b := newTestBus()
	v := newTestVisualizer(t, b)
	first := &toneStream{rate: 44100}
	v.attach(visReadyMsg{data: bus.AudioDataEvent{Stream: first}}, false)
	assert.Same(t, first, v.stream)

	second := &toneStream{rate: 22050}
	require.NoError(t, b.Publish(bus.AudioData, bus.AudioDataEvent{Stream: second}))
	assert.Same(t, second, v.stream)
	assert.Equal(t, 22050, v.analyzer.SampleRate())
}

func TestVisualizerTargetsProgressRegion(t *testing.T) {
	b := newTestBus()
	c := NewControls(b)
	defer c.Close()
	r := image.Rect(0, 4, 20, 8)
	c.SetProgressRect(r)

	v := newTestVisualizer(t, b)
	v.attach(visReadyMsg{data: bus.AudioDataEvent{Stream: &toneStream{rate: 44100}}}, false)
	assert.Equal(t, r, v.engine.Target(), "controls answer the request made on attach")

	r2 := image.Rect(0, 0, 20, 4)
	c.SetProgressRect(r2)
	assert.Equal(t, r2, v.engine.Target())
}

func TestVisualizerCycleModeAndResize(t *testing.T) {
	v := newTestVisualizer(t, newTestBus())
	assert.Equal(t, render.ModeBars, v.Mode())
	assert.Equal(t, render.ModeWaveform, v.CycleMode())

	v.Resize(30, 5)
	w, h := v.SurfaceSize()
	assert.Equal(t, 30, w)
	assert.Equal(t, 10, h)
	assert.Equal(t, render.ModeWaveform, v.Mode())
	assert.Len(t, strings.Split(v.View(), "\n"), 5)
}
