package ui

import "github.com/charmbracelet/lipgloss"

// Panel chrome uses the 16 ANSI colors and follows the terminal theme. Only the
// visualizer cells are truecolor.
var (
	colorBorder  = lipgloss.ANSIColor(8)
	colorTitle   = lipgloss.ANSIColor(10)
	colorBeat    = lipgloss.ANSIColor(13)
	colorText    = lipgloss.ANSIColor(7)
	colorDim     = lipgloss.ANSIColor(8)
	colorAccent  = lipgloss.ANSIColor(11)
	colorPlaying = lipgloss.ANSIColor(10)
	colorSeekBar = lipgloss.ANSIColor(11)
	colorVolume  = lipgloss.ANSIColor(2)
	colorLyric   = lipgloss.ANSIColor(14)
	colorError   = lipgloss.ANSIColor(9)
)

// frame and header
var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2).
			Width(panelWidth + frameOverhead)

	titleStyle     = lipgloss.NewStyle().Foreground(colorTitle).Bold(true)
	beatTitleStyle = titleStyle.Foreground(colorBeat).Reverse(true)
	trackStyle     = lipgloss.NewStyle().Foreground(colorAccent)
)

// transport and status lines
var (
	timeStyle   = lipgloss.NewStyle().Foreground(colorText)
	statusStyle = lipgloss.NewStyle().Foreground(colorPlaying).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	labelStyle  = dimStyle.Foreground(colorText).Bold(true)
	lyricStyle  = lipgloss.NewStyle().Foreground(colorLyric).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
	helpStyle   = dimStyle
)

// playlist rows: the loaded track, the cursor, everything else
var (
	playlistActiveStyle   = statusStyle
	playlistSelectedStyle = trackStyle.Bold(true)
	playlistItemStyle     = timeStyle
)
