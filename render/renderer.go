package render

import (
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/josephniet/audiovis/errs"
)

// Mode selects a renderer.
type Mode string

const (
	ModeBars         Mode = "bars"
	ModeWaveform     Mode = "waveform"
	ModeCircles      Mode = "circles"
	ModeRadial       Mode = "radial"
	ModeGridWaveform Mode = "grid-waveform"
)

// Modes lists every built-in mode in cycling order.
var Modes = []Mode{ModeBars, ModeWaveform, ModeCircles, ModeRadial, ModeGridWaveform}

// ParseMode accepts a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", errs.Validation("render.ParseMode", "unknown mode %q", s)
}

// Next returns the mode after m, wrapping around.
func (m Mode) Next() Mode {
	for i, known := range Modes {
		if known == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return Modes[0]
}

// Config is the live render configuration.
type Config struct {
	Mode          Mode
	Background    color.Color
	Spacing       float64 // gap between bars
	LineWidth     float64
	LineColor     color.Color
	Radius        float64 // circle point radius
	RingSpacing   float64
	MaxRings      int
	RingThickness float64
	Saturation    float64
	Lightness     float64
	CircleAlpha   float64
}

// DefaultConfig returns the stock look.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeBars,
		Background:    Background,
		Spacing:       2,
		LineWidth:     2,
		LineColor:     WaveColor,
		Radius:        3,
		RingSpacing:   8,
		MaxRings:      20,
		RingThickness: 3,
		Saturation:    0.7,
		Lightness:     0.6,
		CircleAlpha:   0.7,
	}
}

// Validate reports out-of-range values.
func (c Config) Validate() error {
	const op = "render.Config"
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	switch {
	case c.Spacing < 0:
		return errs.Validation(op, "spacing %v must not be negative", c.Spacing)
	case c.LineWidth <= 0:
		return errs.Validation(op, "line width %v must be positive", c.LineWidth)
	case c.Radius <= 0:
		return errs.Validation(op, "radius %v must be positive", c.Radius)
	case c.RingSpacing < 0:
		return errs.Validation(op, "ring spacing %v must not be negative", c.RingSpacing)
	case c.MaxRings < 1:
		return errs.Validation(op, "max rings %d must be at least 1", c.MaxRings)
	case c.RingThickness <= 0:
		return errs.Validation(op, "ring thickness %v must be positive", c.RingThickness)
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Background == nil {
		c.Background = d.Background
	}
	if c.LineColor == nil {
		c.LineColor = d.LineColor
	}
	if c.Saturation == 0 && c.Lightness == 0 {
		c.Saturation, c.Lightness = d.Saturation, d.Lightness
	}
	if c.CircleAlpha == 0 {
		c.CircleAlpha = d.CircleAlpha
	}
	return c
}

// Frame is the input to one draw.
type Frame struct {
	Frequency  []uint8
	TimeDomain []uint8
	Beat       bool
	Target     image.Rectangle // region used by target-aligned renderers
	Now        time.Time
}

// Renderer draws one frame onto the surface it was built with.
type Renderer interface {
	Draw(f Frame) error
	Clear()
	Resize(w, h int)
}

// Configurable renderers pick up configuration changes.
type Configurable interface {
	Configure(cfg Config)
}

// Registry maps modes to renderers.
type Registry struct {
	byMode map[Mode]Renderer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMode: make(map[Mode]Renderer)}
}

// DefaultRegistry registers every built-in renderer on s.
func DefaultRegistry(s Surface, cfg Config) *Registry {
	r := NewRegistry()
	r.Register(ModeBars, NewBars(s, cfg))
	r.Register(ModeWaveform, NewWaveform(s, cfg))
	r.Register(ModeCircles, NewCircles(s, cfg))
	r.Register(ModeRadial, NewRadial(s, cfg))
	r.Register(ModeGridWaveform, NewGridWaveform(s, cfg))
	return r
}

// Register adds or replaces the renderer for m.
func (r *Registry) Register(m Mode, rd Renderer) { r.byMode[m] = rd }

// Get returns the renderer for m.
func (r *Registry) Get(m Mode) (Renderer, bool) {
	rd, ok := r.byMode[m]
	return rd, ok
}

// Each calls fn for every registered renderer.
func (r *Registry) Each(fn func(Mode, Renderer)) {
	for m, rd := range r.byMode {
		fn(m, rd)
	}
}

// base carries what every renderer shares.
type base struct {
	s   Surface
	cfg Config
}

func newBase(s Surface, cfg Config) base {
	return base{s: s, cfg: cfg.withDefaults()}
}

func (b *base) Clear() { b.s.Clear(b.cfg.Background) }

func (b *base) Resize(int, int) {}

func (b *base) Configure(cfg Config) { b.cfg = cfg.withDefaults() }
