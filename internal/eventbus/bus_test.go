package eventbus

import (
	"sync"
	"testing"
	"time"

	"foldly/internal/event"
	logx "foldly/pkg/logx"
)

// recorder collects events a listener observed, safely across the drain
// goroutine and the test goroutine.
type recorder struct {
	mu   sync.Mutex
	seen []event.Event
}

func (r *recorder) listen(e event.Event) {
	r.mu.Lock()
	r.seen = append(r.seen, e)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func (r *recorder) snapshot() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.seen...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestFIFOOrdering(t *testing.T) {
	b := New(logx.Nop())
	defer b.Close()

	rec := &recorder{}
	b.Subscribe(event.FileUploadProgress, rec.listen)

	const n = 100
	for i := 0; i < n; i++ {
		b.Emit(event.FileUploadProgress, event.FilePayload{FileID: "f1", Progress: float64(i)}, nil)
	}

	waitFor(t, func() bool { return rec.count() == n })
	for i, e := range rec.snapshot() {
		f, _ := event.AsFile(e.Payload)
		if f.Progress != float64(i) {
			t.Fatalf("event %d out of order: progress=%v", i, f.Progress)
		}
	}
}

func TestTypedThenWildcardPerEvent(t *testing.T) {
	b := New(logx.Nop())
	defer b.Close()

	var mu sync.Mutex
	var order []string
	b.Subscribe(event.LinkCreateSuccess, func(event.Event) {
		mu.Lock()
		order = append(order, "typed")
		mu.Unlock()
	})
	b.SubscribeAll(func(event.Event) {
		mu.Lock()
		order = append(order, "wild")
		mu.Unlock()
	})

	b.Emit(event.LinkCreateSuccess, event.LinkPayload{LinkID: "l1"}, nil)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	})
	mu.Lock()
	defer mu.Unlock()
	if order[0] != "typed" || order[1] != "wild" {
		t.Fatalf("dispatch order = %v, want [typed wild]", order)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New(logx.Nop())
	defer b.Close()

	rec := &recorder{}
	unsub := b.Subscribe(event.LinkCreateSuccess, rec.listen)

	b.Emit(event.LinkCreateSuccess, event.LinkPayload{LinkID: "l1"}, nil)
	waitFor(t, func() bool { return rec.count() == 1 })

	unsub()
	unsub() // second call must be a no-op

	b.Emit(event.LinkCreateSuccess, event.LinkPayload{LinkID: "l2"}, nil)
	// Give the drain loop a chance to (incorrectly) deliver.
	time.Sleep(30 * time.Millisecond)
	if rec.count() != 1 {
		t.Fatalf("received %d events after unsubscribe, want 1", rec.count())
	}
}

func TestSubscribeMultiple(t *testing.T) {
	b := New(logx.Nop())
	defer b.Close()

	rec := &recorder{}
	unsub := b.SubscribeMultiple([]event.Type{event.FileDeleteSuccess, event.FolderDeleteSuccess}, rec.listen)

	b.Emit(event.FileDeleteSuccess, event.FilePayload{FileID: "f1"}, nil)
	b.Emit(event.FolderDeleteSuccess, event.FolderPayload{FolderID: "d1"}, nil)
	b.Emit(event.LinkCreateSuccess, event.LinkPayload{LinkID: "l1"}, nil)

	waitFor(t, func() bool { return rec.count() == 2 })

	unsub()
	b.Emit(event.FileDeleteSuccess, event.FilePayload{FileID: "f2"}, nil)
	b.Emit(event.FolderDeleteSuccess, event.FolderPayload{FolderID: "d2"}, nil)
	time.Sleep(30 * time.Millisecond)
	if rec.count() != 2 {
		t.Fatalf("received %d events after unsubscribe, want 2", rec.count())
	}
}

func TestListenerPanicIsolation(t *testing.T) {
	var hookMu sync.Mutex
	var hooked []event.Type
	b := New(logx.Nop(), WithListenerErrorHook(func(tp event.Type) {
		hookMu.Lock()
		hooked = append(hooked, tp)
		hookMu.Unlock()
	}))
	defer b.Close()

	rec := &recorder{}
	b.Subscribe(event.FileUploadError, func(event.Event) { panic("listener bug") })
	b.Subscribe(event.FileUploadError, rec.listen)

	b.Emit(event.FileUploadError, event.FilePayload{FileID: "f1"}, nil)
	b.Emit(event.FileUploadError, event.FilePayload{FileID: "f2"}, nil)

	// The panicking listener must not block the healthy one, for the
	// same event or for later ones.
	waitFor(t, func() bool { return rec.count() == 2 })

	if got := b.Stats().ListenerFailures; got != 2 {
		t.Fatalf("ListenerFailures = %d, want 2", got)
	}
	hookMu.Lock()
	defer hookMu.Unlock()
	if len(hooked) != 2 || hooked[0] != event.FileUploadError {
		t.Fatalf("error hook calls = %v", hooked)
	}
}

func TestReentrantEmitAppendsToQueue(t *testing.T) {
	b := New(logx.Nop())
	defer b.Close()

	rec := &recorder{}
	b.SubscribeAll(rec.listen)
	b.Subscribe(event.FileUploadStart, func(event.Event) {
		// Emitted mid-drain: must land after already-queued events.
		b.Emit(event.FileUploadSuccess, event.FilePayload{FileID: "f1"}, nil)
	})

	b.Emit(event.FileUploadStart, event.FilePayload{FileID: "f1"}, nil)
	b.Emit(event.FileUploadProgress, event.FilePayload{FileID: "f1"}, nil)

	waitFor(t, func() bool { return rec.count() == 3 })
	seen := rec.snapshot()
	want := []event.Type{event.FileUploadStart, event.FileUploadProgress, event.FileUploadSuccess}
	for i, tp := range want {
		if seen[i].Type != tp {
			t.Fatalf("event %d = %v, want %v", i, seen[i].Type, tp)
		}
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	b := New(logx.Nop())

	rec := &recorder{}
	b.SubscribeAll(rec.listen)

	const n = 50
	for i := 0; i < n; i++ {
		b.Emit(event.FileUploadProgress, event.FilePayload{FileID: "f1", Progress: float64(i)}, nil)
	}
	b.Close()

	if rec.count() != n {
		t.Fatalf("delivered %d events after Close, want %d", rec.count(), n)
	}

	// Emit after Close is a no-op.
	b.Emit(event.FileUploadProgress, event.FilePayload{FileID: "f1"}, nil)
	time.Sleep(10 * time.Millisecond)
	if rec.count() != n {
		t.Fatalf("event delivered after Close")
	}
}

func TestMetadataStamping(t *testing.T) {
	b := New(logx.Nop(), WithSource("bus-test"))
	defer b.Close()

	rec := &recorder{}
	b.Subscribe(event.LinkCreateSuccess, rec.listen)

	b.Emit(event.LinkCreateSuccess, event.LinkPayload{LinkID: "l1"}, nil)
	b.Emit(event.LinkCreateSuccess, event.LinkPayload{LinkID: "l2"}, &event.Options{Source: "override"})

	waitFor(t, func() bool { return rec.count() == 2 })
	seen := rec.snapshot()
	if seen[0].Meta.Source != "bus-test" {
		t.Fatalf("default source = %q", seen[0].Meta.Source)
	}
	if seen[1].Meta.Source != "override" {
		t.Fatalf("override source = %q", seen[1].Meta.Source)
	}
	if seen[0].Meta.Timestamp.IsZero() || seen[0].Meta.CorrelationID == "" {
		t.Fatalf("metadata incomplete: %+v", seen[0].Meta)
	}
	if seen[0].Meta.CorrelationID == seen[1].Meta.CorrelationID {
		t.Fatalf("correlation ids should differ")
	}
}

func TestStats(t *testing.T) {
	b := New(logx.Nop())
	defer b.Close()

	rec := &recorder{}
	b.SubscribeAll(rec.listen)
	b.Subscribe(event.SystemAnnouncement, rec.listen)

	b.Emit(event.SystemAnnouncement, event.SystemPayload{Message: "hi"}, nil)
	waitFor(t, func() bool { return rec.count() == 2 })

	st := b.Stats()
	if st.Emitted != 1 {
		t.Fatalf("Emitted = %d", st.Emitted)
	}
	if st.Delivered != 2 {
		t.Fatalf("Delivered = %d", st.Delivered)
	}
	if st.ListenerFailures != 0 {
		t.Fatalf("ListenerFailures = %d", st.ListenerFailures)
	}
}
