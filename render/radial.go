package render

import "math"

const (
	// RadialMargin is kept between the outermost ring and the surface edge.
	RadialMargin = 50
	// GlowThreshold is the band intensity above which a ring gets a glow stroke.
	GlowThreshold = 100
	glowLightness = 0.8
)

// Radial draws concentric rings, one per frequency band.
type Radial struct{ base }

func NewRadial(s Surface, cfg Config) *Radial { return &Radial{newBase(s, cfg)} }

// RingRadius returns the centre radius of ring k.
func RingRadius(k int, thickness, spacing float64) float64 {
	return thickness + spacing + float64(k)*(2*thickness+spacing)
}

func (r *Radial) Draw(f Frame) error {
	w, h := r.s.Size()
	cx, cy := float64(w)/2, float64(h)/2
	maxRadius := math.Min(float64(w), float64(h))/2 - RadialMargin
	t, sp := r.cfg.RingThickness, r.cfg.RingSpacing

	bands := Bands(f.Frequency, r.cfg.MaxRings)
	for k, intensity := range bands {
		radius := RingRadius(k, t, sp)
		// A ring that would cross the margin is skipped, not clipped.
		if radius+t > maxRadius {
			continue
		}
		alpha := math.Max(0.1, float64(intensity)/255)
		hue := float64(k) / float64(len(bands)) * 360
		ring := HSLA(hue, r.cfg.Saturation, r.cfg.Lightness, alpha)
		glow := HSLA(hue, r.cfg.Saturation, glowLightness, alpha*0.3)

		r.s.StrokeCircle(cx, cy, radius, 2*t, ring)
		r.s.StrokeCircle(cx, cy, radius, t, glow)
		if intensity > GlowThreshold {
			// The glow is centred on the ring, so its half width must stay inside maxRadius.
			width := math.Min(2*t+float64(intensity)/10, 2*(maxRadius-radius))
			r.s.StrokeCircle(cx, cy, radius, width, glow)
		}
	}
	return nil
}

// Bands averages data into n equal contiguous groups. Trailing bins that do not
// fill a whole group are ignored.
func Bands(data []uint8, n int) []uint8 {
	if n <= 0 {
		return nil
	}
	bands := make([]uint8, n)
	per := len(data) / n
	if per == 0 {
		return bands
	}
	for i := range n {
		var sum int
		for _, v := range data[i*per : (i+1)*per] {
			sum += int(v)
		}
		bands[i] = uint8(sum / per)
	}
	return bands
}
