package eventbus

import (
	"runtime"
	"sync"
	"sync/atomic"

	"foldly/internal/event"
	logx "foldly/pkg/logx"
)

// Listener receives the full notification event (type, payload,
// metadata, options).
type Listener func(event.Event)

// yieldAfter is how many events the drain loop processes consecutively
// before yielding to the scheduler. Keeps large bursts (e.g. a 500-file
// batch upload) from starving other goroutines.
const yieldAfter = 10

// Stats is a snapshot of the bus counters.
type Stats struct {
	Emitted          uint64
	Delivered        uint64
	ListenerFailures uint64
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithSource sets the default Metadata.Source stamped onto events whose
// options don't override it.
func WithSource(source string) Option {
	return func(b *Bus) { b.source = source }
}

// WithListenerErrorHook installs a callback invoked (outside the bus
// lock) whenever a listener panics during dispatch. Used to tally
// per-type error counts.
func WithListenerErrorHook(fn func(event.Type)) Option {
	return func(b *Bus) { b.errHook = fn }
}

type entry struct {
	id uint64
	fn Listener
}

// Bus is a typed in-process publish/subscribe primitive.
//
// Contract:
//   - Emit never blocks the caller.
//   - Events are delivered strictly in emission order (FIFO), type
//     listeners first, then wildcard listeners, each sequentially.
//   - A panicking listener is recovered, logged and tallied; it does
//     not stop delivery to remaining listeners or the drain loop.
//   - Emits from inside a listener are appended to the same queue and
//     processed after everything already queued, never interleaved
//     ahead of it.
type Bus struct {
	log     logx.Logger
	source  string
	errHook func(event.Type)

	mu       sync.Mutex
	byType   map[event.Type][]entry
	wildcard []entry
	nextID   uint64
	queue    []event.Event
	draining bool
	closed   bool
	wg       sync.WaitGroup

	emitted   atomic.Uint64
	delivered atomic.Uint64
	failures  atomic.Uint64
}

func New(log logx.Logger, opts ...Option) *Bus {
	if log.IsZero() {
		log = logx.Nop()
	}
	b := &Bus{
		log:    log,
		byType: map[event.Type][]entry{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Emit constructs a notification event with fresh metadata, appends it
// to the internal FIFO queue, and starts the drain loop if one is not
// already running. It never blocks and has no return value; delivery
// problems are a bus concern, not the producer's.
func (b *Bus) Emit(t event.Type, payload event.Payload, opts *event.Options) {
	source := b.source
	if opts != nil && opts.Source != "" {
		source = opts.Source
	}
	e := event.Event{
		Type:    t,
		Payload: payload,
		Meta:    event.NewMetadata(source),
		Options: opts,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, e)
	b.emitted.Add(1)
	if !b.draining {
		b.draining = true
		b.wg.Add(1)
		go b.drain()
	}
	b.mu.Unlock()
}

// drain processes the queue strictly FIFO and exits once it is empty.
// Exactly one drain goroutine runs at a time.
func (b *Bus) drain() {
	defer b.wg.Done()
	processed := 0
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.draining = false
			b.mu.Unlock()
			return
		}
		e := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		b.dispatch(e)

		processed++
		if processed > yieldAfter {
			runtime.Gosched()
			processed = 0
		}
	}
}

func (b *Bus) dispatch(e event.Event) {
	b.mu.Lock()
	typed := append([]entry(nil), b.byType[e.Type]...)
	wild := append([]entry(nil), b.wildcard...)
	b.mu.Unlock()

	for _, en := range typed {
		b.invoke(en.fn, e)
	}
	for _, en := range wild {
		b.invoke(en.fn, e)
	}
}

func (b *Bus) invoke(fn Listener, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.failures.Add(1)
			b.log.Warn("listener panic",
				logx.String("type", e.Type.String()),
				logx.Any("panic", r))
			if b.errHook != nil {
				b.errHook(e.Type)
			}
		}
	}()
	fn(e)
	b.delivered.Add(1)
}

// Subscribe registers a listener for one event type and returns a
// function that removes exactly that registration. The returned
// function is safe to call more than once.
func (b *Bus) Subscribe(t event.Type, fn Listener) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.byType[t] = append(b.byType[t], entry{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.byType[t] = removeEntry(b.byType[t], id)
			b.mu.Unlock()
		})
	}
}

// SubscribeMultiple registers the same listener across several types.
// The returned unsubscribe removes all registrations atomically.
func (b *Bus) SubscribeMultiple(types []event.Type, fn Listener) func() {
	b.mu.Lock()
	ids := make(map[event.Type]uint64, len(types))
	for _, t := range types {
		b.nextID++
		ids[t] = b.nextID
		b.byType[t] = append(b.byType[t], entry{id: b.nextID, fn: fn})
	}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			for t, id := range ids {
				b.byType[t] = removeEntry(b.byType[t], id)
			}
			b.mu.Unlock()
		})
	}
}

// SubscribeAll registers a wildcard listener invoked for every event
// regardless of type. Used for cross-cutting concerns (the notification
// manager, debugging taps).
func (b *Bus) SubscribeAll(fn Listener) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.wildcard = append(b.wildcard, entry{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.wildcard = removeEntry(b.wildcard, id)
			b.mu.Unlock()
		})
	}
}

// Close stops intake and waits for already-queued events to finish
// dispatching. Emit after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Emitted:          b.emitted.Load(),
		Delivered:        b.delivered.Load(),
		ListenerFailures: b.failures.Load(),
	}
}

func removeEntry(list []entry, id uint64) []entry {
	for i, en := range list {
		if en.id == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
