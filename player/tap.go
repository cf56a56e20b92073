// Package player owns the playback pipeline and the transport operations that
// drive it from bus events.
package player

import (
	"errors"
	"reflect"
	"sync"

	"github.com/gopxl/beep/v2"

	"github.com/josephniet/audiovis/errs"
)

// ErrAlreadyTapped is wrapped by NewTap when the stream already feeds a Tap.
var ErrAlreadyTapped = errors.New("stream already has a tap")

var (
	tapMu  sync.Mutex
	tapped = map[beep.Streamer]struct{}{}
)

// Tap is a streamer wrapper that copies stereo frames into a ring buffer
// for analysis. It sits between the decoder and the resampler, so frames are
// captured at the source sample rate.
type Tap struct {
	s      beep.Streamer
	sr     beep.SampleRate
	mu     sync.Mutex
	buf    [][2]float64
	pos    int
	filled int
	closed bool
}

// NewTap wraps s with a ring buffer of size frames. A stream may feed at most one
// open Tap; a second NewTap on it is a graph construction error until Close.
func NewTap(s beep.Streamer, sr beep.SampleRate, size int) (*Tap, error) {
	if s == nil {
		return nil, errs.Resource("player.NewTap", errors.New("nil stream"))
	}
	if size <= 0 {
		return nil, errs.Validation("player.NewTap", "ring size %d must be positive", size)
	}
	if reflect.TypeOf(s).Comparable() {
		tapMu.Lock()
		defer tapMu.Unlock()
		if _, ok := tapped[s]; ok {
			return nil, errs.GraphConstruction("player.NewTap", ErrAlreadyTapped)
		}
		tapped[s] = struct{}{}
	}
	return &Tap{s: s, sr: sr, buf: make([][2]float64, size)}, nil
}

// Stream passes audio through while capturing it into the ring buffer.
func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	t.mu.Lock()
	for i := range n {
		t.buf[t.pos] = samples[i]
		t.pos = (t.pos + 1) % len(t.buf)
	}
	t.filled = min(t.filled+n, len(t.buf))
	t.mu.Unlock()
	return n, ok
}

// Err returns the underlying streamer's error.
func (t *Tap) Err() error {
	return t.s.Err()
}

// Samples returns up to the last n frames in chronological order.
// Fewer are returned while the buffer is still filling.
func (t *Tap) Samples(n int) [][2]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	n = min(n, t.filled)
	if n <= 0 {
		return nil
	}
	out := make([][2]float64, n)
	size := len(t.buf)
	start := (t.pos - n + size) % size
	for i := range n {
		out[i] = t.buf[(start+i)%size]
	}
	return out
}

// SampleRate is the rate of the captured frames.
func (t *Tap) SampleRate() int { return int(t.sr) }

// Reset drops captured frames, e.g. after a seek.
func (t *Tap) Reset() {
	t.mu.Lock()
	t.pos, t.filled = 0, 0
	t.mu.Unlock()
}

// Close releases the stream so it can be tapped again. It does not close the stream.
func (t *Tap) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	if reflect.TypeOf(t.s).Comparable() {
		tapMu.Lock()
		delete(tapped, t.s)
		tapMu.Unlock()
	}
}
