// Package main is the entry point for the audiovis terminal player and visualizer.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gopxl/beep/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephniet/audiovis/bus"
	"github.com/josephniet/audiovis/config"
	"github.com/josephniet/audiovis/logging"
	"github.com/josephniet/audiovis/player"
	"github.com/josephniet/audiovis/playlist"
	"github.com/josephniet/audiovis/ui"
)

var version = "dev"

// app holds what the root command prepares for its subcommands.
type app struct {
	configFile string
	settings   *config.Settings
}

func rootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "audiovis",
		Short:         "Terminal music player with an audio visualizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Config file (default ./config.yaml or ~/.config/audiovis/config.yaml)")
	rootCmd.PersistentFlags().String("mode", "", "Visualization mode: bars, waveform, circles, radial, grid-waveform")
	rootCmd.PersistentFlags().String("log", "", "Log file path")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		v := config.NewViper(a.configFile)
		if err := bindFlags(v, cmd); err != nil {
			return err
		}
		s, err := config.Load(v)
		if err != nil {
			return err
		}
		a.settings = s
		if err := logging.Setup(s.Log.Path, s.Log.Level); err != nil {
			return fmt.Errorf("error opening log: %w", err)
		}
		return nil
	}
	rootCmd.PersistentPostRun = func(*cobra.Command, []string) { _ = logging.Close() }

	rootCmd.AddCommand(playCommand(a), snapshotCommand(a), versionCommand())
	return rootCmd
}

// bindFlags maps flags onto viper keys. An unset flag stays below config and env.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	keys := map[string]string{
		"mode":     "visual.mode",
		"log":      "log.path",
		"playlist": "playlist",
	}
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

func playCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play [files...]",
		Short: "Play files or a playlist in the TUI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(a.settings, args)
		},
	}
	cmd.Flags().String("playlist", "", "YAML playlist file")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "audiovis", version)
		},
	}
}

// expandArgs expands shell globs that may not have been expanded by the shell.
func expandArgs(args []string) []string {
	var files []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil || len(matches) == 0 {
			files = append(files, arg)
		} else {
			files = append(files, matches...)
		}
	}
	return files
}

func buildPlaylist(s *config.Settings, args []string) (*playlist.Playlist, error) {
	pl := playlist.New()
	if s.Playlist != "" {
		loaded, err := playlist.LoadFile(s.Playlist)
		if err != nil {
			return nil, err
		}
		pl = loaded
	}
	for _, f := range expandArgs(args) {
		pl.Add(playlist.TrackFromPath(f))
	}
	if pl.Len() == 0 {
		return nil, errors.New("usage: audiovis play <file.mp3> [file2.mp3 ...] or --playlist file.yaml")
	}
	return pl, nil
}

func play(s *config.Settings, args []string) error {
	pl, err := buildPlaylist(s, args)
	if err != nil {
		return err
	}

	sr := beep.SampleRate(s.Audio.SampleRate)
	out, err := player.SpeakerOutput(sr)
	if err != nil {
		return fmt.Errorf("audio output: %w", err)
	}

	b := bus.New(bus.WithLogger(logging.ForService("bus")))
	defer b.Close()

	p := player.New(out, pl, b,
		player.WithSampleRate(sr),
		player.WithTapSize(s.Audio.TapSize),
		player.WithProgressInterval(s.Audio.ProgressInterval),
		player.WithLoadTimeout(s.Audio.LoadTimeout))
	p.Bind()
	defer p.Close()

	m, err := ui.NewModel(p, b, s)
	if err != nil {
		return err
	}
	defer m.Close()

	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func run() error {
	return rootCommand().Execute()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
