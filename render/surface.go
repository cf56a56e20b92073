// Package render draws analyzer snapshots onto a 2D surface. The Engine runs one
// renderer per frame, chosen by the configured Mode.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"
)

// Point is a surface coordinate, origin top-left.
type Point struct{ X, Y float64 }

// Surface is an immediate-mode drawing target. Translate applies to every
// subsequent call until the matching Restore.
type Surface interface {
	Size() (w, h int)
	Resize(w, h int)
	Clear(bg color.Color)
	FillRect(x, y, w, h float64, c color.Color)
	FillCircle(cx, cy, r float64, c color.Color)
	StrokeCircle(cx, cy, r, width float64, c color.Color)
	StrokePath(pts []Point, width float64, c color.Color)
	Save()
	Restore()
	Translate(dx, dy float64)
}

// circleSegments is the polygon resolution used for circles.
const circleSegments = 48

// Canvas is a Surface backed by an RGBA image.
type Canvas struct {
	img   *image.RGBA
	z     *vector.Rasterizer
	off   Point
	stack []Point
}

// NewCanvas returns a transparent canvas of w x h pixels.
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{z: vector.NewRasterizer(0, 0)}
	c.Resize(w, h)
	return c
}

// Image returns the backing image. It is replaced by Resize.
func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) Resize(w, h int) {
	c.img = image.NewRGBA(image.Rect(0, 0, max(0, w), max(0, h)))
}

func (c *Canvas) Clear(bg color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
}

// Offset returns the current translation.
func (c *Canvas) Offset() Point { return c.off }

func (c *Canvas) Save() { c.stack = append(c.stack, c.off) }

// Restore pops the last Save. Without a matching Save it resets the translation.
func (c *Canvas) Restore() {
	if len(c.stack) == 0 {
		c.off = Point{}
		return
	}
	c.off = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *Canvas) Translate(dx, dy float64) {
	c.off.X += dx
	c.off.Y += dy
}

func (c *Canvas) FillRect(x, y, w, h float64, col color.Color) {
	if w == 0 || h == 0 || !finite(x, y, w, h) {
		return
	}
	c.fill(col, func() {
		c.polygon([]Point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}})
	})
}

func (c *Canvas) FillCircle(cx, cy, r float64, col color.Color) {
	if r <= 0 || !finite(cx, cy, r) {
		return
	}
	c.fill(col, func() { c.circle(cx, cy, r, false) })
}

// StrokeCircle draws an annulus of the given width centred on radius r.
func (c *Canvas) StrokeCircle(cx, cy, r, width float64, col color.Color) {
	if width <= 0 || !finite(cx, cy, r, width) {
		return
	}
	outer, inner := r+width/2, r-width/2
	if outer <= 0 {
		return
	}
	c.fill(col, func() {
		c.circle(cx, cy, outer, false)
		if inner > 0 {
			// Opposite winding cuts the hole.
			c.circle(cx, cy, inner, true)
		}
	})
}

// StrokePath draws each segment as a quad extended by half the width at both ends.
func (c *Canvas) StrokePath(pts []Point, width float64, col color.Color) {
	if len(pts) < 2 || width <= 0 {
		return
	}
	hw := width / 2
	c.fill(col, func() {
		for i := 1; i < len(pts); i++ {
			p0, p1 := pts[i-1], pts[i]
			if !finite(p0.X, p0.Y, p1.X, p1.Y) {
				continue
			}
			dx, dy := p1.X-p0.X, p1.Y-p0.Y
			l := math.Hypot(dx, dy)
			if l == 0 {
				continue
			}
			ux, uy := dx/l*hw, dy/l*hw
			nx, ny := -uy, ux
			a := Point{p0.X - ux, p0.Y - uy}
			b := Point{p1.X + ux, p1.Y + uy}
			c.polygon([]Point{
				{a.X + nx, a.Y + ny},
				{b.X + nx, b.Y + ny},
				{b.X - nx, b.Y - ny},
				{a.X - nx, a.Y - ny},
			})
		}
	})
}

// EncodePNG writes the canvas as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.img)
}

func (c *Canvas) fill(col color.Color, build func()) {
	w, h := c.Size()
	if w == 0 || h == 0 {
		return
	}
	c.z.Reset(w, h)
	c.z.DrawOp = draw.Over
	build()
	c.z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

func (c *Canvas) polygon(pts []Point) {
	c.z.MoveTo(float32(pts[0].X+c.off.X), float32(pts[0].Y+c.off.Y))
	for _, p := range pts[1:] {
		c.z.LineTo(float32(p.X+c.off.X), float32(p.Y+c.off.Y))
	}
	c.z.ClosePath()
}

func (c *Canvas) circle(cx, cy, r float64, reverse bool) {
	pts := make([]Point, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		if reverse {
			a = -a
		}
		pts[i] = Point{cx + r*math.Cos(a), cy + r*math.Sin(a)}
	}
	c.polygon(pts)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
