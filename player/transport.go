package player

import (
	"context"

	"github.com/josephniet/audiovis/bus"
)

// Bind subscribes the transport events and answers audio data requests.
// Calling Bind twice replaces the earlier subscriptions.
func (p *Player) Bind() {
	p.Unbind()
	b := p.bus
	p.subs = []bus.Subscription{
		bus.Signal(b, bus.Play, p.Play),
		bus.Signal(b, bus.Pause, p.Pause),
		bus.Signal(b, bus.Stop, p.Stop),
		bus.On(b, bus.Seek, func(e bus.SeekEvent) {
			if err := p.Seek(e.Time); err != nil {
				p.logger.Warn("seek rejected", "time", e.Time, "error", err)
			}
		}),
		bus.On(b, bus.Volume, func(e bus.VolumeEvent) { p.SetVolume(e.Level) }),
		bus.Signal(b, bus.Next, func() { p.step(p.NextTrack) }),
		bus.Signal(b, bus.Previous, func() { p.step(p.PreviousTrack) }),
		bus.Signal(b, bus.RequestAudioData, func() {
			if p.sess != nil {
				p.publish(bus.AudioData, p.audioData())
			}
		}),
	}
}

// Unbind drops the subscriptions made by Bind.
func (p *Player) Unbind() {
	for _, s := range p.subs {
		p.bus.Unsubscribe(s)
	}
	p.subs = nil
}

func (p *Player) step(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.loadTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		p.logger.Error("track change failed", "error", err)
	}
}
