package analysis

import (
	"math"
	"time"
)

// SpectrumSource is a FrequencySource that also knows its sample rate.
type SpectrumSource interface {
	FrequencySource
	SampleRate() int
}

const (
	DefaultBasicThreshold = 200
	DefaultBasicCooldown  = 200 * time.Millisecond
)

// Basic flags a beat when the average of a low bin range crosses a fixed threshold.
type Basic struct {
	src       SpectrumSource
	now       Clock
	threshold float64
	cooldown  time.Duration
	lo, hi    int
	lastBeat  time.Time
	data      []uint8
}

// BasicOption configures a Basic detector.
type BasicOption func(*Basic)

// WithThreshold sets the byte level (0..255) the band average must exceed.
func WithThreshold(v float64) BasicOption {
	return func(b *Basic) { b.threshold = v }
}

// WithCooldown sets the minimum time between beats.
func WithCooldown(d time.Duration) BasicOption {
	return func(b *Basic) { b.cooldown = d }
}

// WithBins sets the half-open bin range [lo, hi) averaged for detection.
func WithBins(lo, hi int) BasicOption {
	return func(b *Basic) { b.lo, b.hi = lo, hi }
}

// WithBasicClock replaces time.Now.
func WithBasicClock(c Clock) BasicOption {
	return func(b *Basic) { b.now = c }
}

// NewBasic returns a band-threshold detector over the two lowest bins.
func NewBasic(src SpectrumSource, opts ...BasicOption) *Basic {
	b := &Basic{
		src:       src,
		now:       time.Now,
		threshold: DefaultBasicThreshold,
		cooldown:  DefaultBasicCooldown,
		lo:        0,
		hi:        2,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Detect reports a beat when the band average exceeds the threshold outside the cooldown.
func (b *Basic) Detect() bool {
	b.data = b.src.FrequencyBins()
	now := b.now()
	if !b.lastBeat.IsZero() && now.Sub(b.lastBeat) < b.cooldown {
		return false
	}

	lo, hi := max(0, b.lo), min(len(b.data), b.hi)
	if hi <= lo {
		return false
	}
	if average(b.data[lo:hi]) > b.threshold {
		b.lastBeat = now
		return true
	}
	return false
}

// Frequencies returns the snapshot read by the last Detect.
func (b *Basic) Frequencies() []uint8 { return b.data }

// Ratio returns the mean magnitude between minHz and maxHz, normalised to [0, 1].
// An empty bin range yields 0.
func (b *Basic) Ratio(minHz, maxHz float64) float64 {
	return BandRatio(b.src.FrequencyBins(), b.src.SampleRate(), minHz, maxHz)
}

// BandRatio maps [minHz, maxHz] onto bins, with binsPerHz = len(bins) / (sampleRate/2),
// and averages the clamped range.
func BandRatio(bins []uint8, sampleRate int, minHz, maxHz float64) float64 {
	if len(bins) == 0 || sampleRate <= 0 || math.IsNaN(minHz) || math.IsNaN(maxHz) {
		return 0
	}
	binsPerHz := float64(len(bins)) / (float64(sampleRate) / 2)
	n := float64(len(bins))
	lo := int(max(0, min(math.Floor(minHz*binsPerHz), n)))
	hi := int(max(0, min(math.Ceil(maxHz*binsPerHz), n)))
	if hi <= lo {
		return 0
	}
	return average(bins[lo:hi]) / 255
}

func average(xs []uint8) float64 {
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	return sum / float64(len(xs))
}
