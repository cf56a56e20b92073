package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// upperHalf shows the top pixel as foreground and the bottom pixel as background,
// so each terminal cell carries two vertical pixels.
const upperHalf = "▀"

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// halfBlocks converts img into rows of terminal cells, one cell per 1x2 pixel block.
// Runs of identical cells share one style.
func halfBlocks(img *image.RGBA) string {
	if img == nil {
		return ""
	}
	b := img.Bounds()
	rows := make([]string, 0, (b.Dy()+1)/2)
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		var sb strings.Builder
		var run int
		var top, bot color.RGBA
		flush := func() {
			if run == 0 {
				return
			}
			st := lipgloss.NewStyle().Foreground(hexColor(top)).Background(hexColor(bot))
			sb.WriteString(st.Render(strings.Repeat(upperHalf, run)))
			run = 0
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			t := img.RGBAAt(x, y)
			bt := t
			if y+1 < b.Max.Y {
				bt = img.RGBAAt(x, y+1)
			}
			if run > 0 && (t != top || bt != bot) {
				flush()
			}
			top, bot = t, bt
			run++
		}
		flush()
		rows = append(rows, sb.String())
	}
	return strings.Join(rows, "\n")
}
