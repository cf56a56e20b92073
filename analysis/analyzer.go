// Package analysis turns a tapped audio stream into per-frame spectrum and waveform
// snapshots, and detects beats from those snapshots.
package analysis

import (
	"errors"
	"log/slog"
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"

	"github.com/josephniet/audiovis/errs"
	"github.com/josephniet/audiovis/logging"
)

const (
	MinFFTSize = 128
	MaxFFTSize = 2048
)

// Source yields the most recent stereo frames of a stream.
type Source interface {
	Samples(n int) [][2]float64
	SampleRate() int
}

// Config holds the analyser parameters.
type Config struct {
	FFTSize     int     // power of two in [MinFFTSize, MaxFFTSize]
	Smoothing   float64 // 0..1, weight of the previous frame
	MinDecibels float64 // maps to byte 0
	MaxDecibels float64 // maps to byte 255
}

// DefaultConfig returns a 2048-point analyser with 0.8 smoothing over a -100..-30 dB range.
func DefaultConfig() Config {
	return Config{FFTSize: 2048, Smoothing: 0.8, MinDecibels: -100, MaxDecibels: -30}
}

// Validate checks the transform size, smoothing and decibel range.
func (c Config) Validate() error {
	if c.FFTSize < MinFFTSize || c.FFTSize > MaxFFTSize || c.FFTSize&(c.FFTSize-1) != 0 {
		return errs.Validation("analysis.Config", "fft size %d must be a power of two in [%d, %d]", c.FFTSize, MinFFTSize, MaxFFTSize)
	}
	if math.IsNaN(c.Smoothing) || c.Smoothing < 0 || c.Smoothing > 1 {
		return errs.Validation("analysis.Config", "smoothing %v must be in [0, 1]", c.Smoothing)
	}
	if !(c.MaxDecibels > c.MinDecibels) {
		return errs.Validation("analysis.Config", "decibel range [%v, %v] is empty", c.MinDecibels, c.MaxDecibels)
	}
	return nil
}

// ErrConnected is wrapped by Connect when a source is already attached.
var ErrConnected = errors.New("analyzer already connected")

// Analyzer samples a Source at a fixed transform size. Refresh computes one snapshot;
// FrequencyBins and TimeDomainSamples return copies of it, so every consumer in a
// render tick sees the same frame and smoothing advances once per tick.
type Analyzer struct {
	mu       sync.Mutex
	cfg      Config
	src      Source
	window   []float64
	smoothed []float64
	buf      []float64
	freq     []uint8
	td       []uint8
	logger   *slog.Logger
}

// NewAnalyzer validates cfg and returns a disconnected Analyzer.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Analyzer{
		cfg:    cfg,
		window: blackman(cfg.FFTSize),
		logger: logging.ForService("analysis"),
	}
	a.reset()
	return a, nil
}

func (a *Analyzer) reset() {
	bins := a.cfg.FFTSize / 2
	a.smoothed = make([]float64, bins)
	a.buf = make([]float64, a.cfg.FFTSize)
	a.freq = make([]uint8, bins)
	a.td = make([]uint8, bins)
	for i := range a.td {
		a.td[i] = 128
	}
}

// Connect attaches src. Connecting twice without Disconnect is a graph construction error.
func (a *Analyzer) Connect(src Source) error {
	if src == nil {
		return errs.Resource("analysis.Connect", errors.New("nil source"))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.src != nil {
		return errs.GraphConstruction("analysis.Connect", ErrConnected)
	}
	a.src = src
	a.logger.Debug("analyzer connected", "fft_size", a.cfg.FFTSize, "sample_rate", src.SampleRate())
	return nil
}

// Disconnect detaches the source and discards smoothing state and snapshots.
func (a *Analyzer) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.src == nil {
		return
	}
	a.src = nil
	a.reset()
	a.logger.Debug("analyzer disconnected")
}

// Reconnect tears the graph down and rebuilds it on src.
func (a *Analyzer) Reconnect(src Source) error {
	a.Disconnect()
	return a.Connect(src)
}

// Connected reports whether a source is attached.
func (a *Analyzer) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.src != nil
}

// FFTSize returns the transform size.
func (a *Analyzer) FFTSize() int { return a.cfg.FFTSize }

// BinCount returns the snapshot length, FFTSize/2.
func (a *Analyzer) BinCount() int { return a.cfg.FFTSize / 2 }

// SampleRate returns the attached source's rate, or 0 when disconnected.
func (a *Analyzer) SampleRate() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.src == nil {
		return 0
	}
	return a.src.SampleRate()
}

// SetSmoothing changes the smoothing constant, clamped to [0, 1].
func (a *Analyzer) SetSmoothing(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Smoothing = max(0, min(1, v))
}

// Refresh pulls the latest frames from the source and recomputes both snapshots.
// Without a source it leaves silence in place.
func (a *Analyzer) Refresh() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.src == nil {
		return
	}

	mono := Downmix(a.src.Samples(a.cfg.FFTSize))
	// Right-align so a short read leaves leading silence, not trailing.
	clear(a.buf)
	copy(a.buf[len(a.buf)-min(len(mono), len(a.buf)):], mono[max(0, len(mono)-len(a.buf)):])

	// Time-domain snapshot: the most recent BinCount samples, centred at 128.
	off := len(a.buf) - len(a.td)
	for i := range a.td {
		a.td[i] = toByte(128 * (1 + a.buf[off+i]))
	}

	for i := range a.buf {
		a.buf[i] *= a.window[i]
	}
	spectrum := fft.FFTReal(a.buf)

	n := float64(a.cfg.FFTSize)
	tau := a.cfg.Smoothing
	scale := 255 / (a.cfg.MaxDecibels - a.cfg.MinDecibels)
	for k := range a.smoothed {
		mag := cmplx.Abs(spectrum[k]) / n
		s := tau*a.smoothed[k] + (1-tau)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.smoothed[k] = s

		db := math.Inf(-1)
		if s > 0 {
			db = 20 * math.Log10(s)
		}
		a.freq[k] = toByte(scale * (db - a.cfg.MinDecibels))
	}
}

// FrequencyBins returns a copy of the latest magnitude snapshot (0..255 per bin).
func (a *Analyzer) FrequencyBins() []uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]uint8, len(a.freq))
	copy(out, a.freq)
	return out
}

// TimeDomainSamples returns a copy of the latest waveform snapshot (128 is silence).
func (a *Analyzer) TimeDomainSamples() []uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]uint8, len(a.td))
	copy(out, a.td)
	return out
}

func toByte(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

func blackman(n int) []float64 {
	const alpha = 0.16
	a0, a1, a2 := (1-alpha)/2, 0.5, alpha/2
	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}
