package render

import "math"

// BarHeightScale is the share of the surface height a full-scale bin reaches.
const BarHeightScale = 0.8

// Bars draws one rectangle per frequency bin, hue swept across the spectrum.
type Bars struct{ base }

func NewBars(s Surface, cfg Config) *Bars { return &Bars{newBase(s, cfg)} }

func (r *Bars) Draw(f Frame) error {
	n := len(f.Frequency)
	if n == 0 {
		return nil
	}
	w, h := r.s.Size()
	W, H := float64(w), float64(h)
	barW := W / float64(n)

	for i, v := range f.Frequency {
		x := float64(i) * (barW + r.cfg.Spacing)
		if x >= W {
			break
		}
		bh := float64(v) / 255 * H * BarHeightScale
		if bh <= 0 {
			continue
		}
		hue := float64(i) / float64(n) * 360
		r.s.FillRect(x, H-bh, barW, bh, HSL(hue, r.cfg.Saturation, r.cfg.Lightness))
	}
	return nil
}

// Waveform draws the time-domain samples as a polyline about the vertical centre.
type Waveform struct{ base }

func NewWaveform(s Surface, cfg Config) *Waveform { return &Waveform{newBase(s, cfg)} }

func (r *Waveform) Draw(f Frame) error {
	w, h := r.s.Size()
	pts := wavePoints(f.TimeDomain, float64(w), float64(h))
	if pts == nil {
		return nil
	}
	r.s.StrokePath(pts, r.cfg.LineWidth, r.cfg.LineColor)
	return nil
}

// wavePoints maps samples centred at 128 onto a w x h box, ending at the right edge centre.
func wavePoints(samples []uint8, w, h float64) []Point {
	if len(samples) == 0 {
		return nil
	}
	slice := w / float64(len(samples))
	pts := make([]Point, 0, len(samples)+1)
	for i, v := range samples {
		amp := float64(v)/128 - 1
		pts = append(pts, Point{X: float64(i) * slice, Y: h/2 + amp*h/2})
	}
	return append(pts, Point{X: w, Y: h / 2})
}

// Circles plots one point per bin around the centre, distance proportional to magnitude.
type Circles struct{ base }

func NewCircles(s Surface, cfg Config) *Circles { return &Circles{newBase(s, cfg)} }

func (r *Circles) Draw(f Frame) error {
	n := len(f.Frequency)
	if n == 0 {
		return nil
	}
	w, h := r.s.Size()
	cx, cy := float64(w)/2, float64(h)/2
	maxR := math.Min(float64(w), float64(h)) / 3

	for i, v := range f.Frequency {
		dist := float64(v) / 255 * maxR
		angle := float64(i) / float64(n) * 2 * math.Pi
		hue := float64(i) / float64(n) * 360
		r.s.FillCircle(cx+math.Cos(angle)*dist, cy+math.Sin(angle)*dist, r.cfg.Radius,
			HSLA(hue, r.cfg.Saturation, r.cfg.Lightness, r.cfg.CircleAlpha))
	}
	return nil
}
