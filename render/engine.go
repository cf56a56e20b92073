package render

import (
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/josephniet/audiovis/analysis"
	"github.com/josephniet/audiovis/errs"
	"github.com/josephniet/audiovis/logging"
)

var errNilSurface = errors.New("nil surface")

// FrameID identifies a requested frame callback.
type FrameID uint64

// FrameScheduler is the host's display refresh primitive. RequestFrame runs fn
// once on the next refresh; CancelFrame drops a pending request.
type FrameScheduler interface {
	RequestFrame(fn func(now time.Time)) FrameID
	CancelFrame(id FrameID)
}

// Source provides the analyzer snapshots drawn each frame.
type Source interface {
	Refresh()
	FrequencyBins() []uint8
	TimeDomainSamples() []uint8
}

// Engine schedules frames and dispatches them to the renderer for the current mode.
// It is driven from one goroutine: the scheduler's.
type Engine struct {
	surface  Surface
	src      Source
	sched    FrameScheduler
	logger   *slog.Logger
	cfg      Config
	reg      *Registry
	detector analysis.Detector
	onBeat   func(time.Time)
	target   image.Rectangle

	running bool
	pending FrameID
	frames  uint64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConfig sets the initial configuration.
func WithConfig(cfg Config) EngineOption {
	return func(e *Engine) { e.cfg = cfg }
}

// WithDetector polls d once per frame.
func WithDetector(d analysis.Detector) EngineOption {
	return func(e *Engine) { e.detector = d }
}

// WithRegistry replaces the built-in renderers.
func WithRegistry(r *Registry) EngineOption {
	return func(e *Engine) { e.reg = r }
}

// WithEngineLogger replaces the service logger.
func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine builds an engine drawing src onto s. src may be nil until audio is available.
func NewEngine(s Surface, src Source, sched FrameScheduler, opts ...EngineOption) (*Engine, error) {
	if s == nil {
		return nil, errs.Resource("render.NewEngine", errNilSurface)
	}
	e := &Engine{
		surface: s,
		src:     src,
		sched:   sched,
		logger:  logging.ForService("render"),
		cfg:     DefaultConfig(),
	}
	for _, o := range opts {
		o(e)
	}
	e.cfg = e.cfg.withDefaults()
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if e.reg == nil {
		e.reg = DefaultRegistry(s, e.cfg)
	}
	if _, ok := e.reg.Get(e.cfg.Mode); !ok {
		return nil, errs.Validation("render.NewEngine", "no renderer for mode %q", e.cfg.Mode)
	}
	return e, nil
}

// Start schedules the first frame. It is a no-op while running.
func (e *Engine) Start() {
	if e.running || e.sched == nil {
		return
	}
	e.running = true
	e.pending = e.sched.RequestFrame(e.tick)
}

// Stop cancels the pending frame and clears the surface. It is safe to call repeatedly.
func (e *Engine) Stop() {
	if e.running {
		e.running = false
		e.sched.CancelFrame(e.pending)
		e.pending = 0
	}
	e.surface.Clear(e.cfg.Background)
}

// Running reports whether frames are being scheduled.
func (e *Engine) Running() bool { return e.running }

// Frames returns the number of frames rendered.
func (e *Engine) Frames() uint64 { return e.frames }

func (e *Engine) tick(now time.Time) {
	if !e.running {
		return
	}
	e.RenderFrame(now)
	if e.running {
		e.pending = e.sched.RequestFrame(e.tick)
	}
}

// RenderFrame pulls fresh snapshots, polls the beat detector and draws once.
// A renderer error is logged and leaves a blank frame.
func (e *Engine) RenderFrame(now time.Time) {
	f := Frame{Target: e.target, Now: now}
	if e.src != nil {
		e.src.Refresh()
		f.Frequency = e.src.FrequencyBins()
		f.TimeDomain = e.src.TimeDomainSamples()
	}
	if e.detector != nil {
		f.Beat = e.detector.Detect()
	}
	e.frames++

	rd, ok := e.reg.Get(e.cfg.Mode)
	if !ok {
		e.surface.Clear(e.cfg.Background)
		return
	}
	rd.Clear()
	if err := rd.Draw(f); err != nil {
		e.logger.Warn("draw failed", "mode", string(e.cfg.Mode), "error", err)
		rd.Clear()
	}
	if f.Beat && e.onBeat != nil {
		e.onBeat(now)
	}
}

// SetSource replaces the snapshot source.
func (e *Engine) SetSource(src Source) { e.src = src }

// SetDetector replaces the beat detector. nil disables beat polling.
func (e *Engine) SetDetector(d analysis.Detector) { e.detector = d }

// OnBeat registers fn to run after a frame in which a beat was detected.
func (e *Engine) OnBeat(fn func(time.Time)) { e.onBeat = fn }

// SetTarget sets the region target-aligned renderers draw in.
func (e *Engine) SetTarget(r image.Rectangle) { e.target = r }

// Target returns the current target region.
func (e *Engine) Target() image.Rectangle { return e.target }

// Mode returns the active mode.
func (e *Engine) Mode() Mode { return e.cfg.Mode }

// SetMode switches renderer. The configuration is kept.
func (e *Engine) SetMode(m Mode) error {
	if _, ok := e.reg.Get(m); !ok {
		return errs.Validation("render.SetMode", "no renderer for mode %q", m)
	}
	e.cfg.Mode = m
	return nil
}

// Config returns the active configuration.
func (e *Engine) Config() Config { return e.cfg }

// SetConfig validates cfg and pushes it to every configurable renderer.
func (e *Engine) SetConfig(cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, ok := e.reg.Get(cfg.Mode); !ok {
		return errs.Validation("render.SetConfig", "no renderer for mode %q", cfg.Mode)
	}
	e.cfg = cfg
	e.reg.Each(func(_ Mode, rd Renderer) {
		if c, ok := rd.(Configurable); ok {
			c.Configure(cfg)
		}
	})
	return nil
}

// Resize changes the surface size. Mode and configuration are unchanged.
func (e *Engine) Resize(w, h int) {
	e.surface.Resize(w, h)
	e.reg.Each(func(_ Mode, rd Renderer) { rd.Resize(w, h) })
	e.surface.Clear(e.cfg.Background)
}
