package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/josephniet/audiovis/bus"
	"github.com/josephniet/audiovis/errs"
	"github.com/josephniet/audiovis/logging"
	"github.com/josephniet/audiovis/playlist"
	"github.com/josephniet/audiovis/ready"
)

// ErrClosed rejects readiness when the player closes before any track loaded.
var ErrClosed = errors.New("player closed")

const (
	DefaultSampleRate       = beep.SampleRate(44100)
	DefaultTapSize          = 4096
	DefaultProgressInterval = 100 * time.Millisecond
	DefaultVolume           = 0.7
)

// State is the lifecycle of the current session.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Playing
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// session is one loaded track and the pipeline built for it:
//
//	[Decode] -> [Tap] -> [Resample] -> [Volume] -> [Ctrl] -> [Output]
type session struct {
	track    playlist.Track
	stream   beep.StreamSeekCloser
	format   beep.Format
	tap      *Tap
	volume   *effects.Volume
	ctrl     *beep.Ctrl
	duration float64
	gen      uint64
}

func (s *session) close() {
	s.tap.Close()
	s.stream.Close()
}

// Player is the audio source and transport. Methods other than the stream
// callbacks run on one goroutine; the output goroutine only touches the tap
// and the end-of-track marker.
type Player struct {
	out    Output
	pl     *playlist.Playlist
	bus    *bus.Bus
	logger *slog.Logger

	sr               beep.SampleRate
	tapSize          int
	progressInterval time.Duration
	loadTimeout      time.Duration

	state        State
	sess         *session
	gen          uint64
	doneGen      atomic.Uint64
	level        float64
	lastProgress time.Time
	loaded       bool

	ready *ready.Signal[bus.AudioDataEvent]
	subs  []bus.Subscription
}

// Option configures a Player.
type Option func(*Player)

// WithSampleRate sets the output rate streams are resampled to.
func WithSampleRate(sr beep.SampleRate) Option {
	return func(p *Player) { p.sr = sr }
}

// WithTapSize sets the analysis ring buffer length in frames.
func WithTapSize(n int) Option {
	return func(p *Player) { p.tapSize = n }
}

// WithProgressInterval sets how often Poll publishes progress while playing.
func WithProgressInterval(d time.Duration) Option {
	return func(p *Player) { p.progressInterval = d }
}

// WithLoadTimeout bounds loads triggered by bus events.
func WithLoadTimeout(d time.Duration) Option {
	return func(p *Player) { p.loadTimeout = d }
}

// WithLogger replaces the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Player) { p.logger = l }
}

// New creates a Player over pl that publishes on b.
func New(out Output, pl *playlist.Playlist, b *bus.Bus, opts ...Option) *Player {
	if pl == nil {
		pl = playlist.New()
	}
	p := &Player{
		out:              out,
		pl:               pl,
		bus:              b,
		logger:           logging.ForService("player"),
		sr:               DefaultSampleRate,
		tapSize:          DefaultTapSize,
		progressInterval: DefaultProgressInterval,
		loadTimeout:      10 * time.Second,
		level:            DefaultVolume,
		ready:            ready.New[bus.AudioDataEvent](),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Ready settles with the first loaded track's audio data, or with the first load error.
func (p *Player) Ready() *ready.Signal[bus.AudioDataEvent] { return p.ready }

// Playlist returns the playlist the player navigates.
func (p *Player) Playlist() *playlist.Playlist { return p.pl }

// State returns the session state.
func (p *Player) State() State { return p.state }

// IsPlaying reports whether audio is advancing.
func (p *Player) IsPlaying() bool { return p.state == Playing }

// Track returns the loaded track, if any.
func (p *Player) Track() (playlist.Track, bool) {
	if p.sess == nil {
		return playlist.Track{}, false
	}
	return p.sess.track, true
}

// Tap returns the analysis tap of the current session, or nil.
func (p *Player) Tap() *Tap {
	if p.sess == nil {
		return nil
	}
	return p.sess.tap
}

// Volume returns the linear level in [0, 1].
func (p *Player) Volume() float64 { return p.level }

// Load decodes the file at url and replaces the current session with it.
func (p *Player) Load(ctx context.Context, url string) error {
	return p.LoadTrack(ctx, playlist.TrackFromPath(url))
}

// LoadTrack builds a paused session for t and publishes its duration, the track
// change and the audio data. Playback state is not changed.
func (p *Player) LoadTrack(ctx context.Context, t playlist.Track) error {
	const op = "player.Load"
	if err := t.Validate(); err != nil {
		return p.failLoad(errs.Validation(op, "%v", err))
	}
	if err := ctx.Err(); err != nil {
		return p.failLoad(errs.Timeout(op, err))
	}

	prev := p.state
	p.state = Loading

	stream, format, err := Decode(t.Src)
	if err != nil {
		p.state = prev
		return p.failLoad(errs.Load(op, fmt.Errorf("%s: %w", t.Src, err)))
	}

	duration := format.SampleRate.D(stream.Len()).Seconds()
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		stream.Close()
		p.state = prev
		return p.failLoad(errs.Validation(op, "%s: invalid duration %v", t.Src, duration))
	}

	// The old tap must be released before the new graph is built.
	p.teardown()

	tap, err := NewTap(stream, format.SampleRate, p.tapSize)
	if err != nil {
		stream.Close()
		p.state = Idle
		return p.failLoad(err)
	}

	var s beep.Streamer = tap
	if format.SampleRate != p.sr {
		s = beep.Resample(4, format.SampleRate, p.sr, s)
	}
	vol := &effects.Volume{Streamer: s, Base: 2}
	applyLevel(vol, p.level)
	ctrl := &beep.Ctrl{Streamer: vol, Paused: true}

	p.sess = &session{
		track:    t,
		stream:   stream,
		format:   format,
		tap:      tap,
		volume:   vol,
		ctrl:     ctrl,
		duration: duration,
	}
	p.arm()
	p.state = Ready
	p.loaded = true
	p.logger.Info("track loaded", "src", t.Src, "duration", duration, "sample_rate", int(format.SampleRate))

	data := p.audioData()
	p.publish(bus.DurationUpdate, bus.DurationEvent{Duration: duration})
	p.publish(bus.TrackChanged, bus.TrackEvent{Track: t})
	p.publish(bus.ProgressUpdate, bus.ProgressEvent{CurrentTime: 0, Duration: duration})
	p.publish(bus.AudioData, data)
	p.ready.Resolve(data)
	return nil
}

// arm queues the session on the output with a fresh end-of-track marker.
func (p *Player) arm() {
	p.gen++
	gen := p.gen
	p.sess.gen = gen
	p.out.Play(beep.Seq(p.sess.ctrl, beep.Callback(func() {
		p.doneGen.Store(gen)
	})))
}

func (p *Player) failLoad(err error) error {
	p.logger.Error("load failed", "error", err)
	if !p.loaded {
		p.ready.Reject(err)
	}
	return err
}

func (p *Player) teardown() {
	p.out.Clear()
	if p.sess != nil {
		p.sess.close()
		p.sess = nil
	}
	p.state = Idle
}

func (p *Player) audioData() bus.AudioDataEvent {
	return bus.AudioDataEvent{
		Stream:   p.sess.tap,
		Analysis: bus.AnalysisContext{SampleRate: p.sess.tap.SampleRate()},
		Duration: p.sess.duration,
		Track:    p.sess.track,
	}
}

// Play starts or resumes playback. It is a no-op without a session.
func (p *Player) Play() {
	if p.sess == nil || p.state == Playing {
		return
	}
	if p.state == Ended || p.ended() {
		p.out.Lock()
		err := p.sess.stream.Seek(0)
		p.out.Unlock()
		if err != nil {
			p.logger.Warn("rewind failed", "error", err)
		}
		p.sess.tap.Reset()
		p.arm()
	}
	p.out.Lock()
	p.sess.ctrl.Paused = false
	p.out.Unlock()
	p.state = Playing
	p.lastProgress = time.Time{}
	p.publish(bus.PlayStateUpdate, bus.PlayStateEvent{IsPlaying: true})
}

// Pause halts playback at the current position.
func (p *Player) Pause() {
	if p.sess == nil || p.state != Playing {
		return
	}
	p.out.Lock()
	p.sess.ctrl.Paused = true
	p.out.Unlock()
	p.state = Paused
	p.publish(bus.PlayStateUpdate, bus.PlayStateEvent{IsPlaying: false})
}

// TogglePause switches between playing and paused.
func (p *Player) TogglePause() {
	if p.state == Playing {
		p.Pause()
		return
	}
	p.Play()
}

// Stop pauses and rewinds to the start.
func (p *Player) Stop() {
	if p.sess == nil {
		return
	}
	wasPlaying := p.state == Playing
	p.out.Lock()
	p.sess.ctrl.Paused = true
	err := p.sess.stream.Seek(0)
	p.out.Unlock()
	if err != nil {
		p.logger.Warn("rewind failed", "error", err)
	}
	p.sess.tap.Reset()
	if p.ended() {
		p.arm()
	}
	p.state = Ready
	if wasPlaying {
		p.publish(bus.PlayStateUpdate, bus.PlayStateEvent{IsPlaying: false})
	}
	p.publish(bus.ProgressUpdate, bus.ProgressEvent{CurrentTime: 0, Duration: p.sess.duration})
}

// Seek moves to sec seconds, clamped to [0, duration].
func (p *Player) Seek(sec float64) error {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return errs.Validation("player.Seek", "invalid position %v", sec)
	}
	if p.sess == nil {
		return nil
	}
	sec = max(0, min(sec, p.sess.duration))
	n := p.sess.format.SampleRate.N(time.Duration(sec * float64(time.Second)))
	n = max(0, min(n, p.sess.stream.Len()))

	rearm := p.ended() && n < p.sess.stream.Len()
	p.out.Lock()
	err := p.sess.stream.Seek(n)
	if rearm {
		p.sess.ctrl.Paused = true
	}
	p.out.Unlock()
	if err != nil {
		return errs.Resource("player.Seek", err)
	}
	if rearm {
		p.arm()
		wasPlaying := p.state == Playing
		p.state = Paused
		if wasPlaying {
			p.publish(bus.PlayStateUpdate, bus.PlayStateEvent{IsPlaying: false})
		}
	}
	p.publish(bus.ProgressUpdate, bus.ProgressEvent{CurrentTime: sec, Duration: p.sess.duration})
	return nil
}

// SeekToRatio seeks to ratio (0..1) of the track duration.
func (p *Player) SeekToRatio(ratio float64) error {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return errs.Validation("player.SeekToRatio", "invalid ratio %v", ratio)
	}
	return p.Seek(max(0, min(ratio, 1)) * p.Duration())
}

// SetVolume sets the linear level, clamped to [0, 1].
func (p *Player) SetVolume(level float64) {
	if math.IsNaN(level) {
		return
	}
	p.level = max(0, min(level, 1))
	if p.sess == nil {
		return
	}
	p.out.Lock()
	applyLevel(p.sess.volume, p.level)
	p.out.Unlock()
}

// applyLevel maps a linear level onto a base-2 volume effect.
func applyLevel(v *effects.Volume, level float64) {
	if level <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(level)
}

// CurrentTime returns the playback position in seconds.
func (p *Player) CurrentTime() float64 {
	if p.sess == nil {
		return 0
	}
	p.out.Lock()
	pos := p.sess.stream.Position()
	p.out.Unlock()
	return p.sess.format.SampleRate.D(pos).Seconds()
}

// Duration returns the current track length in seconds.
func (p *Player) Duration() float64 {
	if p.sess == nil {
		return 0
	}
	return p.sess.duration
}

// NextTrack loads the following playlist entry, wrapping at the end, and keeps playing if it was.
func (p *Player) NextTrack(ctx context.Context) error {
	prev := p.pl.Index()
	t, ok := p.pl.Next()
	if !ok {
		return nil
	}
	return p.switchTo(ctx, prev, t)
}

// PreviousTrack loads the preceding playlist entry, wrapping at the start.
func (p *Player) PreviousTrack(ctx context.Context) error {
	prev := p.pl.Index()
	t, ok := p.pl.Prev()
	if !ok {
		return nil
	}
	return p.switchTo(ctx, prev, t)
}

// GoTo loads the playlist entry at i.
func (p *Player) GoTo(ctx context.Context, i int) error {
	prev := p.pl.Index()
	t, err := p.pl.GoTo(i)
	if err != nil {
		return errs.Validation("player.GoTo", "%v", err)
	}
	return p.switchTo(ctx, prev, t)
}

// switchTo loads t, which the playlist already selected. On failure the selection
// goes back to prev, so the cursor keeps matching the session that is still loaded.
func (p *Player) switchTo(ctx context.Context, prev int, t playlist.Track) error {
	wasPlaying := p.state == Playing
	if err := p.LoadTrack(ctx, t); err != nil {
		if prev >= 0 {
			_, _ = p.pl.GoTo(prev)
		}
		return err
	}
	if wasPlaying {
		p.Play()
	}
	return nil
}

// AddTrack appends t to the playlist.
func (p *Player) AddTrack(t playlist.Track) error {
	if err := t.Validate(); err != nil {
		return errs.Validation("player.AddTrack", "%v", err)
	}
	p.pl.Add(t)
	p.publish(bus.TrackAdded, bus.TrackEvent{Track: t})
	return nil
}

// RemoveTrack drops every playlist entry with src. The loaded session is kept.
func (p *Player) RemoveTrack(src string) bool {
	var removed playlist.Track
	for _, t := range p.pl.Tracks() {
		if t.Src == src {
			removed = t
			break
		}
	}
	if !p.pl.Remove(src) {
		return false
	}
	p.publish(bus.TrackRemoved, bus.TrackEvent{Track: removed})
	return true
}

// Poll runs once per UI tick. It publishes progress at the progress interval and
// handles the end of the track by advancing to (i+1) mod N, which replays a single track.
func (p *Player) Poll(now time.Time) {
	if p.sess == nil || p.state != Playing {
		return
	}
	if p.ended() {
		p.state = Ended
		p.publish(bus.ProgressUpdate, bus.ProgressEvent{CurrentTime: p.sess.duration, Duration: p.sess.duration})
		p.publish(bus.PlayStateUpdate, bus.PlayStateEvent{IsPlaying: false})
		if p.pl.Len() > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), p.loadTimeout)
			defer cancel()
			if err := p.NextTrack(ctx); err != nil {
				p.logger.Error("auto advance failed", "error", err)
				return
			}
			p.Play()
		}
		return
	}
	if now.Sub(p.lastProgress) >= p.progressInterval {
		p.lastProgress = now
		p.publish(bus.ProgressUpdate, bus.ProgressEvent{CurrentTime: p.CurrentTime(), Duration: p.sess.duration})
	}
}

func (p *Player) ended() bool {
	return p.sess != nil && p.doneGen.Load() == p.sess.gen
}

// Close releases the session and the bus subscriptions. Pending readiness is rejected.
func (p *Player) Close() {
	p.Unbind()
	p.teardown()
	p.ready.Reject(errs.Resource("player.Close", ErrClosed))
}

func (p *Player) publish(name string, payload any) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(name, payload); err != nil {
		p.logger.Warn("publish failed", "event", name, "error", err)
	}
}
