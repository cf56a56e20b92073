package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/josephniet/audiovis/analysis"
	"github.com/josephniet/audiovis/config"
	"github.com/josephniet/audiovis/logging"
	"github.com/josephniet/audiovis/player"
	"github.com/josephniet/audiovis/render"
)

// snapshotRefreshes lets the smoothed spectrum settle before the frame is drawn.
const snapshotRefreshes = 8

type snapshotOptions struct {
	out    string
	at     time.Duration
	width  int
	height int
}

func snapshotCommand(a *app) *cobra.Command {
	o := snapshotOptions{}
	cmd := &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Render one visualizer frame of a file to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := snapshot(a.settings, args[0], o); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", o.out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.out, "out", "o", "frame.png", "Output PNG path")
	cmd.Flags().DurationVar(&o.at, "at", 0, "Position in the track")
	cmd.Flags().IntVar(&o.width, "width", 800, "Image width in pixels")
	cmd.Flags().IntVar(&o.height, "height", 600, "Image height in pixels")
	return cmd
}

func snapshot(s *config.Settings, path string, o snapshotOptions) error {
	logger := logging.ForService("snapshot")

	stream, format, err := player.Decode(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer stream.Close()

	tap, err := player.NewTap(stream, format.SampleRate, s.Audio.TapSize)
	if err != nil {
		return err
	}
	defer tap.Close()

	// Fill the tap with the window that ends at the requested position.
	end := min(format.SampleRate.N(o.at), stream.Len())
	start := max(0, end-s.Audio.TapSize)
	if err := stream.Seek(start); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	if err := fill(tap, end-start); err != nil {
		return err
	}

	a, err := analysis.NewAnalyzer(s.AnalysisConfig())
	if err != nil {
		return err
	}
	if err := a.Connect(tap); err != nil {
		return err
	}
	defer a.Disconnect()

	rc, err := s.RenderConfig()
	if err != nil {
		return err
	}
	canvas := render.NewCanvas(o.width, o.height)
	engine, err := render.NewEngine(canvas, a, nil,
		render.WithConfig(rc),
		render.WithDetector(s.NewDetector(a)),
		render.WithEngineLogger(logger))
	if err != nil {
		return err
	}
	engine.SetTarget(canvas.Image().Bounds())

	now := time.Now()
	for i := range snapshotRefreshes {
		engine.RenderFrame(now.Add(time.Duration(i) * s.FrameInterval()))
	}

	f, err := os.Create(o.out)
	if err != nil {
		return err
	}
	if err := canvas.EncodePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", o.out, err)
	}
	logger.Info("snapshot written", "src", path, "mode", string(rc.Mode), "at", o.at, "out", o.out)
	return f.Close()
}

// fill streams n frames through the tap.
func fill(tap *player.Tap, n int) error {
	buf := make([][2]float64, 512)
	for n > 0 {
		k, ok := tap.Stream(buf[:min(n, len(buf))])
		if !ok {
			break
		}
		n -= k
	}
	return tap.Err()
}
