package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/josephniet/audiovis/player"
)

const panelWidth = 60 // usable inner width (66 frame - 2 border - 4 padding)

// Pre-built styles for elements created per-render to avoid repeated allocation.
var (
	seekFillStyle = lipgloss.NewStyle().Foreground(colorSeekBar)
	seekDimStyle  = lipgloss.NewStyle().Foreground(colorDim)
	volBarStyle   = lipgloss.NewStyle().Foreground(colorVolume)
)

// View renders the full TUI frame.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderTitle(),
		m.renderTrackInfo(),
		m.renderTimeStatus(),
		"",
		m.vis.View(),
		m.controls.SeekBar(panelWidth),
		m.renderLyrics(),
		m.renderVolume(),
		"",
		m.renderPlaylistHeader(),
		m.renderPlaylist(),
		"",
		m.renderHelp(),
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("ERR: %s", m.err)))
	}
	if err := m.vis.Err(); err != nil {
		sections = append(sections, dimStyle.Render(fmt.Sprintf("visualizer off: %s", err)))
	}

	return frameStyle.Render(strings.Join(sections, "\n"))
}

func (m Model) renderTitle() string {
	if m.vis.Flashing(m.now) {
		return beatTitleStyle.Render("A U D I O V I S")
	}
	return titleStyle.Render("A U D I O V I S")
}

func (m Model) renderTrackInfo() string {
	track, ok := m.player.Track()
	if !ok {
		track, _ = m.playlist.Current()
	}
	name := track.DisplayName()
	if name == "" {
		name = "No track loaded"
	}

	prefix := "♫ "
	maxW := panelWidth - len([]rune(prefix))
	runes := []rune(name)

	if len(runes) <= maxW {
		return trackStyle.Render(prefix + name)
	}

	// Cyclic scrolling for long titles
	sep := []rune("   ♫   ")
	padded := append(runes, sep...)
	total := len(padded)
	off := m.titleOffset() % total

	display := make([]rune, maxW)
	for i := range maxW {
		display[i] = padded[(off+i)%total]
	}
	return trackStyle.Render(prefix + string(display))
}

func (m Model) renderTimeStatus() string {
	var status string
	switch m.player.State() {
	case player.Playing:
		status = statusStyle.Render("▶ Playing")
	case player.Paused:
		status = statusStyle.Render("⏸ Paused")
	case player.Ended:
		status = dimStyle.Render("■ Ended")
	default:
		status = dimStyle.Render("■ Stopped")
	}
	status = dimStyle.Render("["+string(m.vis.Mode())+"] ") + status

	left := timeStyle.Render(m.controls.TimeStatus())
	gap := max(1, panelWidth-lipgloss.Width(left)-lipgloss.Width(status))
	return left + strings.Repeat(" ", gap) + status
}

func (m Model) renderLyrics() string {
	line := m.lyrics.Line()
	if !m.lyrics.Loaded() || line == "" {
		return ""
	}
	runes := []rune(line)
	if len(runes) > panelWidth {
		line = string(runes[:panelWidth-1]) + "…"
	}
	return lyricStyle.Render(line)
}

func (m Model) renderVolume() string {
	vol := m.controls.Volume()
	return labelStyle.Render("VOL ") + m.controls.VolumeBar(22) + dimStyle.Render(fmt.Sprintf(" %3.0f%%", vol*100))
}

func (m Model) renderPlaylistHeader() string {
	return dimStyle.Render(fmt.Sprintf("── Playlist (%d) ──", m.playlist.Len()))
}

func (m Model) renderPlaylist() string {
	tracks := m.playlist.Tracks()
	if len(tracks) == 0 {
		return dimStyle.Render("  No tracks loaded")
	}

	currentIdx := m.playlist.Index()
	visible := min(m.plVisible, len(tracks))

	scroll := m.plScroll
	if scroll+visible > len(tracks) {
		scroll = len(tracks) - visible
	}
	scroll = max(0, scroll)

	lines := make([]string, 0, visible)
	for i := scroll; i < scroll+visible && i < len(tracks); i++ {
		prefix := "  "
		style := playlistItemStyle

		if i == currentIdx && m.player.IsPlaying() {
			prefix = "▶ "
			style = playlistActiveStyle
		}
		if i == m.plCursor {
			style = playlistSelectedStyle
		}

		name := tracks[i].DisplayName()
		maxW := panelWidth - 6
		nameRunes := []rune(name)
		if len(nameRunes) > maxW {
			name = string(nameRunes[:maxW-1]) + "…"
		}

		lines = append(lines, style.Render(fmt.Sprintf("%s%d. %s", prefix, i+1, name)))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderHelp() string {
	return helpStyle.Render("[Spc]Play [S]Stop [<>]Trk [←→]Seek [+-]Vol [M]Mode [Q]Quit")
}
