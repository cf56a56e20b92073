package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephniet/audiovis/errs"
)

// frameSource serves a fixed block of frames, newest last.
type frameSource struct {
	sr     int
	frames [][2]float64
}

func (s *frameSource) Samples(n int) [][2]float64 {
	if n > len(s.frames) {
		n = len(s.frames)
	}
	out := make([][2]float64, n)
	copy(out, s.frames[len(s.frames)-n:])
	return out
}

func (s *frameSource) SampleRate() int { return s.sr }

func tone(sr, n int, hz, amp float64) *frameSource {
	frames := make([][2]float64, n)
	for i := range frames {
		v := amp * math.Sin(2*math.Pi*hz*float64(i)/float64(sr))
		frames[i] = [2]float64{v, v}
	}
	return &frameSource{sr: sr, frames: frames}
}

func argmax(xs []uint8) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

func TestConfigValidation(t *testing.T) {
	for _, size := range []int{0, 64, 100, 384, 4096} {
		cfg := DefaultConfig()
		cfg.FFTSize = size
		_, err := NewAnalyzer(cfg)
		assert.ErrorIs(t, err, errs.ErrValidation, "size %d", size)
	}
	for _, size := range []int{128, 256, 512, 1024, 2048} {
		cfg := DefaultConfig()
		cfg.FFTSize = size
		a, err := NewAnalyzer(cfg)
		require.NoError(t, err, "size %d", size)
		assert.Len(t, a.FrequencyBins(), size/2)
		assert.Len(t, a.TimeDomainSamples(), size/2)
	}

	cfg := DefaultConfig()
	cfg.Smoothing = 1.5
	_, err := NewAnalyzer(cfg)
	assert.ErrorIs(t, err, errs.ErrValidation)

	cfg = DefaultConfig()
	cfg.MinDecibels, cfg.MaxDecibels = -30, -100
	_, err = NewAnalyzer(cfg)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestDisconnectedIsSilent(t *testing.T) {
	a, err := NewAnalyzer(DefaultConfig())
	require.NoError(t, err)

	a.Refresh()
	for _, v := range a.FrequencyBins() {
		assert.Zero(t, v)
	}
	for _, v := range a.TimeDomainSamples() {
		assert.Equal(t, uint8(128), v)
	}
	assert.Zero(t, a.SampleRate())
}

func TestConnectTwiceIsGraphError(t *testing.T) {
	a, err := NewAnalyzer(DefaultConfig())
	require.NoError(t, err)
	src := tone(44100, 2048, 440, 0.5)

	require.NoError(t, a.Connect(src))
	err = a.Connect(src)
	assert.ErrorIs(t, err, errs.ErrGraphConstruction)
	assert.ErrorIs(t, err, ErrConnected)

	require.NoError(t, a.Reconnect(src))
	assert.True(t, a.Connected())
	assert.Equal(t, 44100, a.SampleRate())

	a.Disconnect()
	a.Disconnect()
	assert.False(t, a.Connected())

	assert.ErrorIs(t, a.Connect(nil), errs.ErrResource)
}

func TestTonePeaksAtItsBin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smoothing = 0
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	const sr, k = 44100, 100
	hz := float64(k) * sr / float64(cfg.FFTSize)
	require.NoError(t, a.Connect(tone(sr, cfg.FFTSize, hz, 0.001)))
	a.Refresh()

	bins := a.FrequencyBins()
	assert.Equal(t, k, argmax(bins))
	assert.Greater(t, bins[k], bins[5*k])
}

func TestSmoothingDampsRise(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smoothing = 0.8
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	const sr, k = 44100, 64
	hz := float64(k) * sr / float64(cfg.FFTSize)
	require.NoError(t, a.Connect(tone(sr, cfg.FFTSize, hz, 0.01)))

	a.Refresh()
	first := a.FrequencyBins()[k]
	a.Refresh()
	second := a.FrequencyBins()[k]
	assert.Less(t, first, second)
}

func TestReconnectResetsSmoothing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smoothing = 0.9
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	const sr, k = 44100, 64
	hz := float64(k) * sr / float64(cfg.FFTSize)
	src := tone(sr, cfg.FFTSize, hz, 0.01)
	require.NoError(t, a.Connect(src))
	a.Refresh()
	first := a.FrequencyBins()[k]
	a.Refresh()
	a.Refresh()

	require.NoError(t, a.Reconnect(src))
	assert.Zero(t, a.FrequencyBins()[k])
	a.Refresh()
	assert.Equal(t, first, a.FrequencyBins()[k])
}

func TestTimeDomainCentredAt128(t *testing.T) {
	a, err := NewAnalyzer(DefaultConfig())
	require.NoError(t, err)

	frames := make([][2]float64, 2048)
	for i := range frames {
		frames[i] = [2]float64{1, 0} // mono mix is 0.5
	}
	require.NoError(t, a.Connect(&frameSource{sr: 48000, frames: frames}))
	a.Refresh()

	for _, v := range a.TimeDomainSamples() {
		assert.Equal(t, uint8(192), v)
	}
}

func TestShortReadLeavesLeadingSilence(t *testing.T) {
	a, err := NewAnalyzer(Config{FFTSize: 256, Smoothing: 0, MinDecibels: -100, MaxDecibels: -30})
	require.NoError(t, err)

	frames := make([][2]float64, 64)
	for i := range frames {
		frames[i] = [2]float64{-1, -1}
	}
	require.NoError(t, a.Connect(&frameSource{sr: 44100, frames: frames}))
	a.Refresh()

	td := a.TimeDomainSamples()
	assert.Equal(t, uint8(128), td[0])
	assert.Equal(t, uint8(0), td[len(td)-1])
}

func TestDownmix(t *testing.T) {
	got := Downmix([][2]float64{{1, 0}, {0.4, -0.4}, {0.3, 0.3}})
	require.Len(t, got, 3)
	assert.InDelta(t, 0.5, got[0], 1e-12)
	assert.InDelta(t, 0, got[1], 1e-12)
	assert.InDelta(t, 0.3, got[2], 1e-12)
	assert.Empty(t, Downmix(nil))
}

func TestSetSmoothingClamps(t *testing.T) {
	a, err := NewAnalyzer(DefaultConfig())
	require.NoError(t, err)
	a.SetSmoothing(3)
	assert.Equal(t, 1.0, a.cfg.Smoothing)
	a.SetSmoothing(-1)
	assert.Equal(t, 0.0, a.cfg.Smoothing)
}
