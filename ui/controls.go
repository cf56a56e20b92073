package ui

import (
	"image"
	"math"
	"strings"

	"github.com/josephniet/audiovis/bus"
	"github.com/josephniet/audiovis/player"
)

// VolumeStep and SeekStep are the keyboard increments.
const (
	VolumeStep = 0.05
	SeekStep   = 5.0 // seconds
)

// Controls turns user input into transport events and mirrors playback state from
// the bus for display. It never calls the player directly.
type Controls struct {
	bus      *bus.Bus
	current  float64
	duration float64
	playing  bool
	volume   float64
	rect     image.Rectangle
	subs     []bus.Subscription
}

// NewControls subscribes to playback state and answers controls data requests.
func NewControls(b *bus.Bus) *Controls {
	c := &Controls{bus: b, volume: player.DefaultVolume}
	c.subs = []bus.Subscription{
		bus.On(b, bus.ProgressUpdate, func(e bus.ProgressEvent) {
			c.current, c.duration = e.CurrentTime, e.Duration
		}),
		bus.On(b, bus.DurationUpdate, func(e bus.DurationEvent) { c.duration = e.Duration }),
		bus.On(b, bus.PlayStateUpdate, func(e bus.PlayStateEvent) { c.playing = e.IsPlaying }),
		bus.On(b, bus.TrackChanged, func(bus.TrackEvent) { c.current = 0 }),
		bus.Signal(b, bus.RequestControlsData, c.publishRect),
	}
	return c
}

// Close drops the subscriptions.
func (c *Controls) Close() {
	for _, s := range c.subs {
		c.bus.Unsubscribe(s)
	}
	c.subs = nil
}

func (c *Controls) publishRect() {
	_ = c.bus.Publish(bus.ControlsData, bus.ControlsDataEvent{ProgressRect: c.rect})
}

// SetProgressRect sets the region of the visualizer surface that sits over the
// progress bar, and announces it when it changes.
func (c *Controls) SetProgressRect(r image.Rectangle) {
	if r == c.rect {
		return
	}
	c.rect = r
	c.publishRect()
}

// ProgressRect returns the region announced in controls-data.
func (c *Controls) ProgressRect() image.Rectangle { return c.rect }

func (c *Controls) CurrentTime() float64 { return c.current }
func (c *Controls) Duration() float64    { return c.duration }
func (c *Controls) Playing() bool        { return c.playing }
func (c *Controls) Volume() float64      { return c.volume }

// Progress returns the played share of the track in [0, 1].
func (c *Controls) Progress() float64 {
	if c.duration <= 0 {
		return 0
	}
	return clamp01(c.current / c.duration)
}

func (c *Controls) TogglePlay() {
	if c.playing {
		c.publish(bus.Pause, nil)
		return
	}
	c.publish(bus.Play, nil)
}

func (c *Controls) Stop()     { c.publish(bus.Stop, nil) }
func (c *Controls) Next()     { c.publish(bus.Next, nil) }
func (c *Controls) Previous() { c.publish(bus.Previous, nil) }

// SeekBy moves the play position by delta seconds.
func (c *Controls) SeekBy(delta float64) {
	c.SeekTo(c.current + delta)
}

// SeekTo requests an absolute position. The player clamps it.
func (c *Controls) SeekTo(sec float64) {
	if c.duration <= 0 {
		return
	}
	c.publish(bus.Seek, bus.SeekEvent{Time: sec})
}

// SeekToRatio seeks to a share of the duration; 0.5 of a 125.4 s track is 62.7 s.
func (c *Controls) SeekToRatio(r float64) {
	if math.IsNaN(r) {
		return
	}
	c.SeekTo(clamp01(r) * c.duration)
}

// ClickRatio maps a column inside a bar of the given width to a seek ratio.
// It reports false for clicks outside the bar.
func ClickRatio(col, width int) (float64, bool) {
	if width <= 0 || col < 0 || col >= width {
		return 0, false
	}
	if width == 1 {
		return 0, true
	}
	return float64(col) / float64(width-1), true
}

// SetVolume requests a level in [0, 1].
func (c *Controls) SetVolume(level float64) {
	c.volume = clamp01(level)
	c.publish(bus.Volume, bus.VolumeEvent{Level: c.volume})
}

func (c *Controls) publish(name string, payload any) {
	_ = c.bus.Publish(name, payload)
}

// TimeStatus renders "m:ss / m:ss", switching to hours for long tracks.
func (c *Controls) TimeStatus() string {
	if c.duration >= 3600 {
		return FormatTimeWithHours(c.current) + " / " + FormatTimeWithHours(c.duration)
	}
	return FormatTime(c.current) + " / " + FormatTime(c.duration)
}

// SeekBar renders the progress bar at the given width.
func (c *Controls) SeekBar(width int) string {
	if width < 1 {
		return ""
	}
	filled := int(c.Progress() * float64(width-1))
	return seekFillStyle.Render(strings.Repeat("━", filled)) +
		seekFillStyle.Render("●") +
		seekDimStyle.Render(strings.Repeat("━", max(0, width-filled-1)))
}

// VolumeBar renders the requested volume as a block bar.
func (c *Controls) VolumeBar(width int) string {
	filled := int(c.volume * float64(width))
	return volBarStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", max(0, width-filled)))
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
