package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephniet/audiovis/analysis"
	"github.com/josephniet/audiovis/errs"
	"github.com/josephniet/audiovis/render"
)

// isolate keeps the developer's own config.yaml out of the search path.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	isolate(t)
	s, err := Load(NewViper(""))
	require.NoError(t, err)

	assert.Equal(t, "audiovis.log", s.Log.Path)
	assert.Equal(t, 44100, s.Audio.SampleRate)
	assert.Equal(t, 100*time.Millisecond, s.Audio.ProgressInterval)
	assert.Equal(t, 10*time.Second, s.ReadyTimeout)
	assert.Equal(t, analysis.DefaultConfig(), s.AnalysisConfig())
	assert.Equal(t, BeatAdaptive, s.Beat.Algorithm)
	assert.Equal(t, time.Second/60, s.FrameInterval())

	rc, err := s.RenderConfig()
	require.NoError(t, err)
	assert.Equal(t, render.DefaultConfig().Mode, rc.Mode)
	assert.Equal(t, render.DefaultConfig().MaxRings, rc.MaxRings)
}

func TestDefaultsWithoutViperSources(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Validate())
	assert.Equal(t, 60, s.Visual.FPS)
	assert.Equal(t, "info", s.Log.Level)
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
visual:
  mode: radial
  fps: 30
  maxrings: 12
  linecolor: "#ff0000"
analysis:
  fftsize: 1024
beat:
  algorithm: basic
  cooldown: 300ms
readytimeout: 5s
`)
	s, err := Load(NewViper(path))
	require.NoError(t, err)

	assert.Equal(t, 30, s.Visual.FPS)
	assert.Equal(t, 1024, s.Analysis.FFTSize)
	assert.Equal(t, 300*time.Millisecond, s.Beat.Cooldown)
	assert.Equal(t, 5*time.Second, s.ReadyTimeout)
	assert.Equal(t, 44100, s.Audio.SampleRate, "unset keys keep defaults")

	rc, err := s.RenderConfig()
	require.NoError(t, err)
	assert.Equal(t, render.ModeRadial, rc.Mode)
	assert.Equal(t, 12, rc.MaxRings)
	r, g, _, _ := rc.LineColor.RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0), g)

	_, basic := s.NewDetector(nil).(*analysis.Basic)
	assert.True(t, basic)
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "visual:\n  mode: radial\n")
	t.Setenv("AUDIOVIS_VISUAL_MODE", "circles")
	t.Setenv("AUDIOVIS_READYTIMEOUT", "2s")

	s, err := Load(NewViper(path))
	require.NoError(t, err)
	assert.Equal(t, "circles", s.Visual.Mode)
	assert.Equal(t, 2*time.Second, s.ReadyTimeout)

	_, adaptive := s.NewDetector(nil).(*analysis.Adaptive)
	assert.True(t, adaptive)
}

func TestSearchPathConfig(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("config.yaml", []byte("visual:\n  fps: 24\n"), 0o644))
	s, err := Load(NewViper(""))
	require.NoError(t, err)
	assert.Equal(t, 24, s.Visual.FPS)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)

	_, err := Load(NewViper(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err, "an explicit file must exist")

	_, err = Load(NewViper(writeConfig(t, "visual: [not, a, map")))
	assert.Error(t, err)

	cases := map[string]string{
		"mode":      "visual:\n  mode: spiral\n",
		"fps":       "visual:\n  fps: 0\n",
		"fft":       "analysis:\n  fftsize: 1000\n",
		"algorithm": "beat:\n  algorithm: magic\n",
		"threshold": "beat:\n  threshold: 300\n",
		"tap":       "audio:\n  tapsize: 512\n",
		"timeout":   "readytimeout: 0s\n",
		"rings":     "visual:\n  maxrings: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(NewViper(writeConfig(t, body)))
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}
