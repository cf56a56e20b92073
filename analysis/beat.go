package analysis

import (
	"math"
	"time"
)

// Detector is polled once per render tick.
type Detector interface {
	Detect() bool
}

// FrequencySource provides the current magnitude snapshot.
type FrequencySource interface {
	FrequencyBins() []uint8
}

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

const (
	DefaultSensitivity  = 1.5
	DefaultBeatDuration = 150 * time.Millisecond
	DefaultMinBeatGap   = 200 * time.Millisecond
	FluxWindow          = 43 // about one second of frames at 60 Hz
	MinFluxSamples      = 10
	minSensitivity      = 0.5
	maxSensitivity      = 10.0
)

// BeatState is a read-only view of a detector's internals.
type BeatState struct {
	Active        bool
	LastBeat      time.Time
	CooldownUntil time.Time
	FluxHistory   []float64
}

// Adaptive detects onsets from spectral flux against a threshold that tracks the
// mean and spread of the last FluxWindow frames.
type Adaptive struct {
	src          FrequencySource
	now          Clock
	sensitivity  float64
	beatDuration time.Duration
	minGap       time.Duration

	prev      []float64
	history   []float64
	lastBeat  time.Time
	beatStart time.Time
	active    bool
}

// AdaptiveOption configures an Adaptive detector.
type AdaptiveOption func(*Adaptive)

// WithSensitivity sets k in mean + k·stddev, clamped to [0.5, 10].
func WithSensitivity(k float64) AdaptiveOption {
	return func(a *Adaptive) { a.SetSensitivity(k) }
}

// WithBeatDuration sets how long a detected beat stays active.
func WithBeatDuration(d time.Duration) AdaptiveOption {
	return func(a *Adaptive) { a.beatDuration = d }
}

// WithMinGap sets the minimum time between two beats.
func WithMinGap(d time.Duration) AdaptiveOption {
	return func(a *Adaptive) { a.minGap = d }
}

// WithClock replaces time.Now.
func WithClock(c Clock) AdaptiveOption {
	return func(a *Adaptive) { a.now = c }
}

// NewAdaptive returns a spectral-flux detector reading from src.
func NewAdaptive(src FrequencySource, opts ...AdaptiveOption) *Adaptive {
	a := &Adaptive{
		src:          src,
		now:          time.Now,
		sensitivity:  DefaultSensitivity,
		beatDuration: DefaultBeatDuration,
		minGap:       DefaultMinBeatGap,
		history:      make([]float64, 0, FluxWindow+1),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Detect reports whether a beat is active at this tick.
func (a *Adaptive) Detect() bool {
	now := a.now()

	if a.active {
		if now.Sub(a.beatStart) < a.beatDuration {
			return true
		}
		a.active = false
	}
	if !a.lastBeat.IsZero() && now.Sub(a.lastBeat) < a.minGap {
		return false
	}

	flux := a.flux(a.src.FrequencyBins())
	a.history = append(a.history, flux)
	if len(a.history) > FluxWindow {
		a.history = append(a.history[:0], a.history[1:]...)
	}
	if len(a.history) < MinFluxSamples {
		return false
	}

	mean, variance := meanVariance(a.history)
	threshold := mean + a.sensitivity*math.Sqrt(variance)
	if flux > threshold && flux > 1.5*mean {
		a.lastBeat = now
		a.beatStart = now
		a.active = true
		return true
	}
	return false
}

// flux sums positive per-bin increases of the normalised spectrum and stores it as previous.
func (a *Adaptive) flux(bins []uint8) float64 {
	if len(a.prev) != len(bins) {
		a.prev = make([]float64, len(bins))
	}
	var sum float64
	for i, b := range bins {
		cur := float64(b) / 255
		if d := cur - a.prev[i]; d > 0 {
			sum += d
		}
		a.prev[i] = cur
	}
	return sum
}

func meanVariance(xs []float64) (mean, variance float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, variance
}

// SetSensitivity sets k, clamped to [0.5, 10].
func (a *Adaptive) SetSensitivity(k float64) {
	a.sensitivity = max(minSensitivity, min(maxSensitivity, k))
}

// Sensitivity returns k.
func (a *Adaptive) Sensitivity() float64 { return a.sensitivity }

// SetMinGap sets the minimum time between beats.
func (a *Adaptive) SetMinGap(d time.Duration) { a.minGap = d }

// SetBeatDuration sets the cooldown during which a beat stays active.
func (a *Adaptive) SetBeatDuration(d time.Duration) { a.beatDuration = d }

// Active reports whether the last detected beat is still in its cooldown window.
func (a *Adaptive) Active() bool { return a.active }

// State returns a copy of the detector state.
func (a *Adaptive) State() BeatState {
	st := BeatState{
		Active:      a.active,
		LastBeat:    a.lastBeat,
		FluxHistory: append([]float64(nil), a.history...),
	}
	if !a.beatStart.IsZero() {
		st.CooldownUntil = a.beatStart.Add(a.beatDuration)
	}
	return st
}
