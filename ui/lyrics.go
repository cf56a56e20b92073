package ui

import (
	"log/slog"

	"github.com/josephniet/audiovis/bus"
	"github.com/josephniet/audiovis/logging"
	"github.com/josephniet/audiovis/lyrics"
)

// Lyrics shows the active LRC line of the current track.
type Lyrics struct {
	bus    *bus.Bus
	lrc    *lyrics.Lyrics
	line   string
	loaded bool
	logger *slog.Logger
	subs   []bus.Subscription
}

// NewLyrics subscribes to track changes and progress. A track already playing is
// picked up from the durable track-changed replay.
func NewLyrics(b *bus.Bus) *Lyrics {
	l := &Lyrics{bus: b, lrc: lyrics.New(), logger: logging.ForService("lyrics")}
	l.lrc.OnLine(func(ln lyrics.Line) { l.line = ln.Text })
	l.subs = []bus.Subscription{
		bus.On(b, bus.TrackChanged, func(e bus.TrackEvent) { l.load(e.Track.Lyrics) }),
		bus.On(b, bus.ProgressUpdate, func(e bus.ProgressEvent) {
			if !l.loaded {
				return
			}
			if _, ok := l.lrc.Sync(e.CurrentTime); !ok {
				l.line = ""
			}
		}),
	}
	return l
}

func (l *Lyrics) load(text string) {
	l.line = ""
	l.loaded = false
	l.lrc.Reset()
	if text == "" {
		return
	}
	if err := l.lrc.Load(lyrics.Options{Text: text}); err != nil {
		l.logger.Warn("lyrics not loaded", "error", err)
		return
	}
	l.loaded = true
}

// Line returns the active line, empty before the first timestamp or without lyrics.
func (l *Lyrics) Line() string { return l.line }

// Loaded reports whether the current track has usable lyrics.
func (l *Lyrics) Loaded() bool { return l.loaded }

// Close drops the subscriptions.
func (l *Lyrics) Close() {
	for _, s := range l.subs {
		l.bus.Unsubscribe(s)
	}
	l.subs = nil
}
