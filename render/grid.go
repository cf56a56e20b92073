package render

import (
	"errors"

	"github.com/josephniet/audiovis/errs"
)

// GridCell is the reference grid spacing in pixels.
const GridCell = 40

// ErrNoTarget is wrapped when a target-aligned renderer has no target region.
var ErrNoTarget = errors.New("no target region")

// GridWaveform draws a reference grid over the target region and the waveform
// inside that same region.
type GridWaveform struct{ base }

func NewGridWaveform(s Surface, cfg Config) *GridWaveform {
	return &GridWaveform{newBase(s, cfg)}
}

func (r *GridWaveform) Draw(f Frame) error {
	if f.Target.Empty() {
		return errs.Resource("render.GridWaveform", ErrNoTarget)
	}
	w, h := float64(f.Target.Dx()), float64(f.Target.Dy())

	r.s.Save()
	defer r.s.Restore()
	r.s.Translate(float64(f.Target.Min.X), float64(f.Target.Min.Y))

	for x := 0.0; x <= w; x += GridCell {
		r.s.StrokePath([]Point{{x, 0}, {x, h}}, 1, GridColor)
	}
	for y := 0.0; y <= h; y += GridCell {
		r.s.StrokePath([]Point{{0, y}, {w, y}}, 1, GridColor)
	}
	if pts := wavePoints(f.TimeDomain, w, h); pts != nil {
		r.s.StrokePath(pts, r.cfg.LineWidth, r.cfg.LineColor)
	}
	return nil
}
