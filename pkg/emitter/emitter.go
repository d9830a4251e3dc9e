package emitter

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// DefaultMaxListeners is the per-event listener count above which Bus logs
// a leak warning. SetMaxListeners(0) disables the warning entirely.
const DefaultMaxListeners = 10

// Listener receives the arguments passed to Emit. Listener identity (for
// Off) is the function pointer, so the same named function or stored
// closure can be removed after registration.
type Listener func(args ...any)

// Emitter is the event subscription capability shared by every backend.
// Registration methods return the Emitter to support chaining.
type Emitter interface {
	// On registers a persistent listener, appended after existing ones.
	On(event string, fn Listener) Emitter
	// Once registers a fire-once listener, appended after existing ones.
	Once(event string, fn Listener) Emitter
	// PrependOn registers a persistent listener ahead of existing ones.
	PrependOn(event string, fn Listener) Emitter
	// PrependOnce registers a fire-once listener ahead of existing ones.
	PrependOnce(event string, fn Listener) Emitter
	// Off removes the most recently registered listener whose function
	// pointer matches fn. It is a no-op if fn is not registered.
	Off(event string, fn Listener) Emitter
	// RemoveAllListeners removes every listener for the named events, or
	// for all events when called with no arguments.
	RemoveAllListeners(events ...string) Emitter

	// Emit invokes the event's listeners in registration order with args
	// and reports whether at least one listener was invoked.
	Emit(event string, args ...any) bool

	// Listeners returns the event's listeners in registration order.
	Listeners(event string) []Listener
	// RawListeners is Listeners including the fire-once bookkeeping view.
	RawListeners(event string) []Listener
	// ListenerCount returns the number of listeners for the event.
	ListenerCount(event string) int
	// EventNames returns event names with listeners, in the order the
	// events first gained one.
	EventNames() []string

	// SetMaxListeners sets the leak-warning threshold. Zero disables it.
	SetMaxListeners(n int) Emitter
	// MaxListeners returns the current leak-warning threshold.
	MaxListeners() int
}

// Registration is one listener as held by a Bus, with its fire-once tag.
// It exposes enough state to re-register the listener elsewhere with
// identical semantics.
type Registration struct {
	Fn   Listener
	Once bool
}

type entry struct {
	id   uint64
	fn   Listener
	ptr  uintptr
	once bool
}

// Bus is the in-memory Emitter. It keeps per-event listener slices in
// registration order and mirrors emissions onto a watermill gochannel.
type Bus struct {
	mu     sync.Mutex
	events map[string][]*entry
	order  []string
	nextID uint64
	max    int
	warned map[string]bool
	closed bool

	log    zerolog.Logger
	pubsub *gochannel.GoChannel
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for leak warnings and mirror failures.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Bus) { b.log = log }
}

// New creates an empty Bus with the default max-listeners threshold.
func New(opts ...Option) *Bus {
	b := &Bus{
		events: make(map[string][]*entry),
		warned: make(map[string]bool),
		max:    DefaultMaxListeners,
		log:    zerolog.Nop(),
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 100},
			watermill.NopLogger{},
		),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func fnPointer(fn Listener) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// add inserts an entry at the back or front of an event's slice.
func (b *Bus) add(event string, fn Listener, once, front bool) *Bus {
	if fn == nil {
		return b
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	e := &entry{id: b.nextID, fn: fn, ptr: fnPointer(fn), once: once}

	if _, ok := b.events[event]; !ok {
		b.order = append(b.order, event)
	}
	if front {
		b.events[event] = append([]*entry{e}, b.events[event]...)
	} else {
		b.events[event] = append(b.events[event], e)
	}

	if n := len(b.events[event]); b.max > 0 && n > b.max && !b.warned[event] {
		b.warned[event] = true
		b.log.Warn().
			Str("event", event).
			Int("count", n).
			Int("max", b.max).
			Msg("possible listener leak detected")
	}
	return b
}

func (b *Bus) On(event string, fn Listener) Emitter { return b.add(event, fn, false, false) }

func (b *Bus) Once(event string, fn Listener) Emitter { return b.add(event, fn, true, false) }

func (b *Bus) PrependOn(event string, fn Listener) Emitter { return b.add(event, fn, false, true) }

func (b *Bus) PrependOnce(event string, fn Listener) Emitter { return b.add(event, fn, true, true) }

// Off removes the most recently registered listener matching fn.
func (b *Bus) Off(event string, fn Listener) Emitter {
	if fn == nil {
		return b
	}
	ptr := fnPointer(fn)

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.events[event]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].ptr == ptr {
			b.events[event] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(b.events[event]) == 0 {
		b.forget(event)
	}
	return b
}

func (b *Bus) RemoveAllListeners(events ...string) Emitter {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(events) == 0 {
		b.events = make(map[string][]*entry)
		b.order = nil
		return b
	}
	for _, event := range events {
		b.forget(event)
	}
	return b
}

// forget drops an event's slice and its slot in the name order.
// Caller holds b.mu.
func (b *Bus) forget(event string) {
	delete(b.events, event)
	for i, name := range b.order {
		if name == event {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Emit invokes listeners outside the Bus lock so a listener may register
// or remove listeners (including itself) without deadlocking. Fire-once
// entries are removed before invocation so they run at most once even
// under concurrent Emit calls.
func (b *Bus) Emit(event string, args ...any) bool {
	b.mu.Lock()
	entries := b.events[event]
	fns := make([]Listener, len(entries))
	kept := entries[:0]
	for i, e := range entries {
		fns[i] = e.fn
		if !e.once {
			kept = append(kept, e)
		}
	}
	if len(entries) > 0 {
		if len(kept) == 0 {
			b.forget(event)
		} else {
			b.events[event] = kept
		}
	}
	closed := b.closed
	b.mu.Unlock()

	for _, fn := range fns {
		fn(args...)
	}

	if !closed {
		b.mirror(event, args)
	}
	return len(fns) > 0
}

// mirror publishes the emission to the watermill gochannel for bridging.
func (b *Bus) mirror(event string, args []any) {
	payload, err := json.Marshal(args)
	if err != nil {
		b.log.Debug().Err(err).Str("event", event).Msg("skip mirror of unmarshalable args")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(event, msg); err != nil {
		b.log.Debug().Err(err).Str("event", event).Msg("mirror publish failed")
	}
}

// Stream returns a watermill subscription for an event's mirrored
// emissions. Each message payload is the JSON-encoded argument slice.
func (b *Bus) Stream(ctx context.Context, event string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, event)
}

func (b *Bus) Listeners(event string) []Listener {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.events[event]
	fns := make([]Listener, len(entries))
	for i, e := range entries {
		fns[i] = e.fn
	}
	return fns
}

// RawListeners matches Listeners: fire-once listeners are tracked by flag
// rather than by wrapper functions, so there is nothing extra to unwrap.
func (b *Bus) RawListeners(event string) []Listener {
	return b.Listeners(event)
}

func (b *Bus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events[event])
}

func (b *Bus) EventNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.order))
	copy(names, b.order)
	return names
}

// Registrations returns the event's listeners in order together with
// their fire-once tags, for re-registering them on another Emitter.
func (b *Bus) Registrations(event string) []Registration {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.events[event]
	regs := make([]Registration, len(entries))
	for i, e := range entries {
		regs[i] = Registration{Fn: e.fn, Once: e.once}
	}
	return regs
}

func (b *Bus) SetMaxListeners(n int) Emitter {
	if n < 0 {
		n = 0
	}
	b.mu.Lock()
	b.max = n
	b.warned = make(map[string]bool)
	b.mu.Unlock()
	return b
}

func (b *Bus) MaxListeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.max
}

// Close drops all listeners and shuts down the watermill mirror. Emit on
// a closed Bus still invokes nothing and stops mirroring.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.events = make(map[string][]*entry)
	b.order = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}
