// Package config loads audiovis settings from defaults, an optional config.yaml,
// AUDIOVIS_* environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/josephniet/audiovis/analysis"
	"github.com/josephniet/audiovis/errs"
	"github.com/josephniet/audiovis/render"
)

// EnvPrefix is prepended to every environment override, e.g. AUDIOVIS_VISUAL_MODE.
const EnvPrefix = "AUDIOVIS"

const (
	BeatAdaptive = "adaptive"
	BeatBasic    = "basic"
)

type LogSettings struct {
	Path  string // empty disables logging
	Level string
}

type AudioSettings struct {
	SampleRate       int
	TapSize          int
	ProgressInterval time.Duration
	LoadTimeout      time.Duration
}

type AnalysisSettings struct {
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

type BeatSettings struct {
	Algorithm   string // adaptive or basic
	Sensitivity float64
	Threshold   float64 // basic only, byte level
	Cooldown    time.Duration
}

type VisualSettings struct {
	Mode          string
	FPS           int
	Spacing       float64
	LineWidth     float64
	LineColor     string
	Background    string
	Radius        float64
	RingSpacing   float64
	MaxRings      int
	RingThickness float64
}

// Settings is the full application configuration.
type Settings struct {
	Log          LogSettings
	Audio        AudioSettings
	Analysis     AnalysisSettings
	Beat         BeatSettings
	Visual       VisualSettings
	ReadyTimeout time.Duration // how long the visualizer waits for the first track
	Playlist     string        // optional playlist file
}

// DefaultPaths returns the directories searched for config.yaml.
func DefaultPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "audiovis"))
	}
	return paths
}

// NewViper returns a viper instance with defaults and environment binding set up.
// file, when not empty, is read instead of searching DefaultPaths.
func NewViper(file string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultPaths() {
			v.AddConfigPath(p)
		}
	}
	SetDefaults(v)
	return v
}

// SetDefaults registers every known key, so environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.path", "audiovis.log")
	v.SetDefault("log.level", "info")

	v.SetDefault("audio.samplerate", 44100)
	v.SetDefault("audio.tapsize", 4096)
	v.SetDefault("audio.progressinterval", 100*time.Millisecond)
	v.SetDefault("audio.loadtimeout", 10*time.Second)

	a := analysis.DefaultConfig()
	v.SetDefault("analysis.fftsize", a.FFTSize)
	v.SetDefault("analysis.smoothing", a.Smoothing)
	v.SetDefault("analysis.mindecibels", a.MinDecibels)
	v.SetDefault("analysis.maxdecibels", a.MaxDecibels)

	v.SetDefault("beat.algorithm", BeatAdaptive)
	v.SetDefault("beat.sensitivity", analysis.DefaultSensitivity)
	v.SetDefault("beat.threshold", analysis.DefaultBasicThreshold)
	v.SetDefault("beat.cooldown", analysis.DefaultMinBeatGap)

	r := render.DefaultConfig()
	v.SetDefault("visual.mode", string(r.Mode))
	v.SetDefault("visual.fps", 60)
	v.SetDefault("visual.spacing", r.Spacing)
	v.SetDefault("visual.linewidth", r.LineWidth)
	v.SetDefault("visual.linecolor", "#00ff88")
	v.SetDefault("visual.background", "#1a1a1a")
	v.SetDefault("visual.radius", r.Radius)
	v.SetDefault("visual.ringspacing", r.RingSpacing)
	v.SetDefault("visual.maxrings", r.MaxRings)
	v.SetDefault("visual.ringthickness", r.RingThickness)

	v.SetDefault("readytimeout", 10*time.Second)
	v.SetDefault("playlist", "")
}

// Defaults returns the settings with no file or environment applied.
func Defaults() *Settings {
	v := viper.New()
	SetDefaults(v)
	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		panic(fmt.Sprintf("config: defaults do not unmarshal: %v", err))
	}
	return s
}

// Load reads the config file if there is one, then unmarshals and validates.
// A missing config.yaml in the search paths is not an error.
func Load(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every section.
func (s *Settings) Validate() error {
	const op = "config.Validate"
	switch {
	case s.Audio.SampleRate <= 0:
		return errs.Validation(op, "audio.samplerate %d must be positive", s.Audio.SampleRate)
	case s.Audio.TapSize < s.Analysis.FFTSize:
		return errs.Validation(op, "audio.tapsize %d must hold at least one fft window (%d)", s.Audio.TapSize, s.Analysis.FFTSize)
	case s.Audio.ProgressInterval <= 0:
		return errs.Validation(op, "audio.progressinterval must be positive")
	case s.Audio.LoadTimeout <= 0:
		return errs.Validation(op, "audio.loadtimeout must be positive")
	case s.ReadyTimeout <= 0:
		return errs.Validation(op, "readytimeout must be positive")
	case s.Visual.FPS < 1 || s.Visual.FPS > 240:
		return errs.Validation(op, "visual.fps %d must be in [1, 240]", s.Visual.FPS)
	}

	switch strings.ToLower(s.Beat.Algorithm) {
	case BeatAdaptive, BeatBasic:
	default:
		return errs.Validation(op, "beat.algorithm %q must be %q or %q", s.Beat.Algorithm, BeatAdaptive, BeatBasic)
	}
	if s.Beat.Threshold < 0 || s.Beat.Threshold > 255 {
		return errs.Validation(op, "beat.threshold %v must be in [0, 255]", s.Beat.Threshold)
	}

	if err := s.AnalysisConfig().Validate(); err != nil {
		return err
	}
	_, err := s.RenderConfig()
	return err
}

// AnalysisConfig returns the analyser parameters.
func (s *Settings) AnalysisConfig() analysis.Config {
	return analysis.Config{
		FFTSize:     s.Analysis.FFTSize,
		Smoothing:   s.Analysis.Smoothing,
		MinDecibels: s.Analysis.MinDecibels,
		MaxDecibels: s.Analysis.MaxDecibels,
	}
}

// RenderConfig returns the validated render configuration. Unparseable colors fall back to the defaults.
func (s *Settings) RenderConfig() (render.Config, error) {
	mode, err := render.ParseMode(s.Visual.Mode)
	if err != nil {
		return render.Config{}, err
	}
	cfg := render.DefaultConfig()
	cfg.Mode = mode
	cfg.Spacing = s.Visual.Spacing
	cfg.LineWidth = s.Visual.LineWidth
	cfg.LineColor = render.Hex(s.Visual.LineColor, cfg.LineColor)
	cfg.Background = render.Hex(s.Visual.Background, cfg.Background)
	cfg.Radius = s.Visual.Radius
	cfg.RingSpacing = s.Visual.RingSpacing
	cfg.MaxRings = s.Visual.MaxRings
	cfg.RingThickness = s.Visual.RingThickness
	if err := cfg.Validate(); err != nil {
		return render.Config{}, err
	}
	return cfg, nil
}

// FrameInterval is the time between render ticks.
func (s *Settings) FrameInterval() time.Duration {
	return time.Second / time.Duration(s.Visual.FPS)
}

// NewDetector builds the configured beat detector over src.
func (s *Settings) NewDetector(src analysis.SpectrumSource) analysis.Detector {
	if strings.ToLower(s.Beat.Algorithm) == BeatBasic {
		return analysis.NewBasic(src,
			analysis.WithThreshold(s.Beat.Threshold),
			analysis.WithCooldown(s.Beat.Cooldown))
	}
	return analysis.NewAdaptive(src,
		analysis.WithSensitivity(s.Beat.Sensitivity),
		analysis.WithMinGap(s.Beat.Cooldown))
}
