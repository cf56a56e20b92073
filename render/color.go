package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// HSL returns an opaque color. h is in degrees; s and l are in [0, 1].
func HSL(h, s, l float64) color.Color {
	return HSLA(h, s, l, 1)
}

// HSLA returns a color with alpha a in [0, 1].
func HSLA(h, s, l, a float64) color.Color {
	r, g, b := colorful.Hsl(h, s, l).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(max(0, min(a, 1))*255 + 0.5)}
}

// Hex parses "#rrggbb" or "#rgb", falling back to fallback on error.
func Hex(s string, fallback color.Color) color.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return fallback
	}
	return c.Clamped()
}

var (
	// Background is the surface clear color.
	Background = color.Color(color.NRGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff})
	// WaveColor is the default waveform stroke.
	WaveColor = color.Color(color.NRGBA{R: 0x00, G: 0xff, B: 0x88, A: 0xff})
	// GridColor is the reference grid stroke.
	GridColor = color.Color(color.NRGBA{R: 0xff, A: 0xb3})
)
