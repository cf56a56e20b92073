// Package bus is a synchronous publish/subscribe channel shared by the player,
// controls, lyrics and visualizer modules.
//
// Publish delivers to every current subscriber before it returns. A subscriber may
// publish from inside its callback; each Publish works on its own snapshot of the
// subscriber list, and nesting is capped at MaxDepth so a request/response loop
// cannot recurse without bound.
package bus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/josephniet/audiovis/logging"
)

// DefaultMaxDepth bounds nested Publish calls.
const DefaultMaxDepth = 8

// ErrDispatchDepth is returned by Publish when nesting exceeds the bus's MaxDepth.
var ErrDispatchDepth = errors.New("bus: publish nesting too deep")

// Handler receives an event payload.
type Handler func(payload any)

// Subscription identifies one registration. The zero value is never registered.
type Subscription struct {
	id   uint64
	name string
}

// Name returns the event name the subscription listens to.
func (s Subscription) Name() string { return s.name }

type entry struct {
	id uint64
	fn Handler
}

// Bus is safe for concurrent use, but delivery runs on the publisher's goroutine.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	subs     map[string][]entry
	durable  map[string]bool
	cache    *cache.Cache
	depth    int
	maxDepth int
	logger   *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithDurable replaces the set of durable event names.
func WithDurable(names ...string) Option {
	return func(b *Bus) {
		b.durable = make(map[string]bool, len(names))
		for _, n := range names {
			b.durable[n] = true
		}
	}
}

// WithMaxDepth sets the nested publish limit. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(b *Bus) {
		if n >= 1 {
			b.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for dropped or failed deliveries.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a Bus. DurableEvents are cached unless WithDurable says otherwise.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:     make(map[string][]entry),
		cache:    cache.New(cache.NoExpiration, 0),
		maxDepth: DefaultMaxDepth,
		logger:   logging.ForService("bus"),
	}
	WithDurable(DurableEvents...)(b)
	for _, o := range opts {
		o(b)
	}
	return b
}

var (
	defaultOnce sync.Once
	defaultBus  *Bus
)

// Default returns the process-wide bus, creating it on first use.
// Components take a *Bus at construction; Default is for main only.
func Default() *Bus {
	defaultOnce.Do(func() { defaultBus = New() })
	return defaultBus
}

// IsDurable reports whether name's last payload is replayed to new subscribers.
func (b *Bus) IsDurable(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.durable[name]
}

// Publish delivers payload to the subscribers registered for name at the time of the call,
// in registration order. A durable payload is cached before delivery.
func (b *Bus) Publish(name string, payload any) error {
	b.mu.Lock()
	if b.depth >= b.maxDepth {
		b.mu.Unlock()
		b.logger.Warn("publish dropped", "event", name, "depth", b.maxDepth)
		return fmt.Errorf("%w: %s", ErrDispatchDepth, name)
	}
	if b.durable[name] {
		b.cache.Set(name, payload, cache.NoExpiration)
	}
	snapshot := make([]entry, len(b.subs[name]))
	copy(snapshot, b.subs[name])
	b.depth++
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.depth--
		b.mu.Unlock()
	}()

	for _, e := range snapshot {
		b.deliver(name, e.fn, payload)
	}
	return nil
}

// Subscribe registers fn for name. If name is durable and has a cached payload,
// fn is called with it before Subscribe returns.
func (b *Bus) Subscribe(name string, fn Handler) Subscription {
	b.mu.Lock()
	b.nextID++
	sub := Subscription{id: b.nextID, name: name}
	b.subs[name] = append(b.subs[name], entry{id: sub.id, fn: fn})

	var (
		cached any
		replay bool
	)
	if b.durable[name] {
		cached, replay = b.cache.Get(name)
	}
	b.mu.Unlock()

	if replay {
		b.deliver(name, fn, cached)
	}
	return sub
}

// Unsubscribe removes a registration. Unknown or already removed subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.name]
	for i, e := range list {
		if e.id != sub.id {
			continue
		}
		// Copy so snapshots taken by in-flight publishes keep their backing array.
		next := make([]entry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, sub.name)
		} else {
			b.subs[sub.name] = next
		}
		return
	}
}

// Cached returns the last durable payload published under name.
func (b *Bus) Cached(name string) (any, bool) {
	return b.cache.Get(name)
}

// SubscriberCount returns the number of registrations for name.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}

// Close drops every subscription and clears the durable cache.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]entry)
	b.cache.Flush()
}

func (b *Bus) deliver(name string, fn Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked", "event", name, "panic", r)
		}
	}()
	fn(payload)
}

// On subscribes fn to name with a typed payload. Payloads of another type are logged and skipped.
func On[T any](b *Bus, name string, fn func(T)) Subscription {
	return b.Subscribe(name, func(payload any) {
		v, ok := payload.(T)
		if !ok {
			b.logger.Warn("unexpected payload type", "event", name, "type", fmt.Sprintf("%T", payload))
			return
		}
		fn(v)
	})
}

// Signal subscribes fn to a payload-free event such as Play or Next.
func Signal(b *Bus, name string, fn func()) Subscription {
	return b.Subscribe(name, func(any) { fn() })
}
