package notify

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"foldly/internal/event"
)

// Analytics tracks per-event-type counters for the session. Counters
// are append-only until explicitly cleared. When a prometheus
// Registerer is supplied, the count/error counters are mirrored as
// metrics (the mirror is not affected by Clear; prometheus counters
// are monotonic by contract).
type Analytics struct {
	mu     sync.Mutex
	counts map[event.Type]uint64
	last   map[event.Type]time.Time
	errors map[event.Type]uint64

	emitted  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// Snapshot is a read-only copy of the analytics state.
type Snapshot struct {
	EventCount  map[event.Type]uint64
	LastEmitted map[event.Type]time.Time
	ErrorCount  map[event.Type]uint64
}

// NewAnalytics creates the analytics tracker. reg may be nil to skip
// the prometheus mirror.
func NewAnalytics(reg prometheus.Registerer) *Analytics {
	a := &Analytics{
		counts: map[event.Type]uint64{},
		last:   map[event.Type]time.Time{},
		errors: map[event.Type]uint64{},
	}
	if reg != nil {
		a.emitted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foldly",
			Subsystem: "notifications",
			Name:      "events_total",
			Help:      "Notification events dispatched, by event type.",
		}, []string{"type"})
		a.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foldly",
			Subsystem: "notifications",
			Name:      "listener_failures_total",
			Help:      "Listener failures during dispatch, by event type.",
		}, []string{"type"})
		reg.MustRegister(a.emitted, a.failures)
	}
	return a
}

// Record counts one successful dispatch of t.
func (a *Analytics) Record(t event.Type) {
	a.mu.Lock()
	a.counts[t]++
	a.last[t] = time.Now()
	a.mu.Unlock()

	if a.emitted != nil {
		a.emitted.WithLabelValues(t.String()).Inc()
	}
}

// RecordError counts one listener failure for t.
func (a *Analytics) RecordError(t event.Type) {
	a.mu.Lock()
	a.errors[t]++
	a.mu.Unlock()

	if a.failures != nil {
		a.failures.WithLabelValues(t.String()).Inc()
	}
}

// Snapshot returns a copy of the counters.
func (a *Analytics) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		EventCount:  make(map[event.Type]uint64, len(a.counts)),
		LastEmitted: make(map[event.Type]time.Time, len(a.last)),
		ErrorCount:  make(map[event.Type]uint64, len(a.errors)),
	}
	for k, v := range a.counts {
		s.EventCount[k] = v
	}
	for k, v := range a.last {
		s.LastEmitted[k] = v
	}
	for k, v := range a.errors {
		s.ErrorCount[k] = v
	}
	return s
}

// Clear resets all in-memory counters.
func (a *Analytics) Clear() {
	a.mu.Lock()
	a.counts = map[event.Type]uint64{}
	a.last = map[event.Type]time.Time{}
	a.errors = map[event.Type]uint64{}
	a.mu.Unlock()
}
