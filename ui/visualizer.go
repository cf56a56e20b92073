package ui

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/josephniet/audiovis/analysis"
	"github.com/josephniet/audiovis/bus"
	"github.com/josephniet/audiovis/config"
	"github.com/josephniet/audiovis/logging"
	"github.com/josephniet/audiovis/ready"
	"github.com/josephniet/audiovis/render"
)

// BeatFlash is how long the title stays highlighted after a beat.
const BeatFlash = 120 * time.Millisecond

// ReadySource is a producer whose first loaded stream the visualizer waits for.
type ReadySource interface {
	Ready() *ready.Signal[bus.AudioDataEvent]
}

type visReadyMsg struct {
	data bus.AudioDataEvent
	err  error
}

// Visualizer draws the analyzer output of the playing stream into terminal cells.
// It stays inert until the player's readiness signal resolves.
type Visualizer struct {
	bus      *bus.Bus
	analyzer *analysis.Analyzer
	canvas   *render.Canvas
	engine   *render.Engine
	sched    *frameScheduler
	stream   bus.StreamRef
	logger   *slog.Logger

	attached   bool
	err        error
	flashUntil time.Time
	subs       []bus.Subscription
}

// NewVisualizer builds the analysis and render pipeline for a cols x rows cell area.
func NewVisualizer(b *bus.Bus, s *config.Settings, cols, rows int) (*Visualizer, error) {
	a, err := analysis.NewAnalyzer(s.AnalysisConfig())
	if err != nil {
		return nil, err
	}
	rc, err := s.RenderConfig()
	if err != nil {
		return nil, err
	}
	v := &Visualizer{
		bus:      b,
		analyzer: a,
		canvas:   render.NewCanvas(cols, rows*2),
		sched:    &frameScheduler{},
		logger:   logging.ForService("visualizer"),
	}
	v.engine, err = render.NewEngine(v.canvas, a, v.sched,
		render.WithConfig(rc),
		render.WithDetector(s.NewDetector(a)))
	if err != nil {
		return nil, err
	}
	v.engine.OnBeat(func(now time.Time) { v.flashUntil = now.Add(BeatFlash) })
	v.canvas.Clear(rc.Background)
	return v, nil
}

// Await returns a command that waits up to timeout for src to become ready.
func (v *Visualizer) Await(src ReadySource, timeout time.Duration) tea.Cmd {
	sig := src.Ready()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		data, err := sig.Wait(ctx)
		return visReadyMsg{data: data, err: err}
	}
}

// attach wires the visualizer to the bus once the producer is ready. A rejected or
// timed out wait leaves it disabled.
func (v *Visualizer) attach(msg visReadyMsg, playing bool) {
	if v.attached {
		return
	}
	if msg.err != nil {
		v.err = msg.err
		v.logger.Error("player not ready, visualizer disabled", "error", msg.err)
		return
	}
	v.attached = true
	v.connect(msg.data)
	v.subs = []bus.Subscription{
		bus.On(v.bus, bus.AudioData, v.connect),
		bus.On(v.bus, bus.PlayStateUpdate, func(e bus.PlayStateEvent) {
			if e.IsPlaying {
				v.engine.Start()
			} else {
				v.engine.Stop()
			}
		}),
		bus.On(v.bus, bus.ControlsData, func(e bus.ControlsDataEvent) { v.engine.SetTarget(e.ProgressRect) }),
	}
	_ = v.bus.Publish(bus.RequestControlsData, nil)
	if playing {
		v.engine.Start()
	}
}

// connect moves the analyzer onto a newly loaded stream.
func (v *Visualizer) connect(e bus.AudioDataEvent) {
	if e.Stream == nil || e.Stream == v.stream {
		return
	}
	if err := v.analyzer.Reconnect(e.Stream); err != nil {
		v.logger.Error("analyzer reconnect failed", "track", e.Track.Src, "error", err)
		return
	}
	v.stream = e.Stream
	v.logger.Debug("analyzer attached", "track", e.Track.Src, "sample_rate", e.Analysis.SampleRate)
}

// tick runs the frames the engine requested since the last tick.
func (v *Visualizer) tick(now time.Time) { v.sched.run(now) }

// Resize changes the cell area.
func (v *Visualizer) Resize(cols, rows int) {
	v.engine.Resize(cols, rows*2)
}

// SurfaceSize returns the canvas size in pixels.
func (v *Visualizer) SurfaceSize() (int, int) { return v.canvas.Size() }

// CycleMode switches to the next renderer.
func (v *Visualizer) CycleMode() render.Mode {
	next := v.engine.Mode().Next()
	if err := v.engine.SetMode(next); err != nil {
		v.logger.Warn("mode change rejected", "mode", string(next), "error", err)
	}
	return v.engine.Mode()
}

func (v *Visualizer) Mode() render.Mode { return v.engine.Mode() }
func (v *Visualizer) Running() bool     { return v.engine.Running() }
func (v *Visualizer) Attached() bool    { return v.attached }
func (v *Visualizer) Err() error        { return v.err }

// Flashing reports whether a beat was seen within BeatFlash of now.
func (v *Visualizer) Flashing(now time.Time) bool { return now.Before(v.flashUntil) }

// View renders the canvas as half-block cells.
func (v *Visualizer) View() string { return halfBlocks(v.canvas.Image()) }

// Close stops rendering and detaches the analyzer.
func (v *Visualizer) Close() {
	for _, s := range v.subs {
		v.bus.Unsubscribe(s)
	}
	v.subs = nil
	v.engine.Stop()
	v.analyzer.Disconnect()
	v.stream = nil
}
