package producer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"foldly/internal/event"
	"foldly/internal/eventbus"
	logx "foldly/pkg/logx"
)

func collectStorageEvents(t *testing.T, b *eventbus.Bus) func() []event.Event {
	t.Helper()
	var mu sync.Mutex
	var seen []event.Event
	b.SubscribeMultiple([]event.Type{event.StorageQuotaWarning, event.StorageQuotaExceeded},
		func(e event.Event) {
			mu.Lock()
			seen = append(seen, e)
			mu.Unlock()
		})
	return func() []event.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]event.Event(nil), seen...)
	}
}

func usageSteps(steps []int64, limit int64) UsageFunc {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context) (int64, int64, error) {
		mu.Lock()
		defer mu.Unlock()
		used := steps[i]
		if i < len(steps)-1 {
			i++
		}
		return used, limit, nil
	}
}

func drain(b *eventbus.Bus) {
	// The bus delivers asynchronously; give the drain loop a beat.
	time.Sleep(30 * time.Millisecond)
}

func TestThresholdCrossings(t *testing.T) {
	b := eventbus.New(logx.Nop())
	defer b.Close()
	events := collectStorageEvents(t, b)

	// 50% -> 85% -> 85% -> 100%: one warning, one exceeded.
	p := NewStoragePoller(b, usageSteps([]int64{50, 85, 85, 100}, 100), 80, 100, logx.Nop())
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		p.tick(ctx)
	}
	drain(b)

	got := events()
	if len(got) != 2 {
		t.Fatalf("emitted %d events, want 2: %+v", len(got), got)
	}
	if got[0].Type != event.StorageQuotaWarning {
		t.Fatalf("first event = %v", got[0].Type)
	}
	if got[1].Type != event.StorageQuotaExceeded {
		t.Fatalf("second event = %v", got[1].Type)
	}

	st, ok := event.AsStorage(got[0].Payload)
	if !ok {
		t.Fatalf("payload shape: %+v", got[0].Payload)
	}
	if st.Percent != 85 || st.UsedBytes != 85 || st.LimitBytes != 100 {
		t.Fatalf("payload = %+v", st)
	}
	if got[0].Meta.Source != "storage-poll" {
		t.Fatalf("source = %q", got[0].Meta.Source)
	}
	if got[1].Options == nil || got[1].Options.Priority != event.PriorityHigh {
		t.Fatalf("exceeded event not high priority")
	}
}

func TestNoRepeatAtSameLevel(t *testing.T) {
	b := eventbus.New(logx.Nop())
	defer b.Close()
	events := collectStorageEvents(t, b)

	p := NewStoragePoller(b, usageSteps([]int64{85}, 100), 80, 100, logx.Nop())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		p.tick(ctx)
	}
	drain(b)

	if got := events(); len(got) != 1 {
		t.Fatalf("emitted %d events for a steady level, want 1", len(got))
	}
}

func TestDownwardCrossingIsSilentThenRearms(t *testing.T) {
	b := eventbus.New(logx.Nop())
	defer b.Close()
	events := collectStorageEvents(t, b)

	// 85% -> 50% -> 85%: warning, silence on the drop, warning again.
	p := NewStoragePoller(b, usageSteps([]int64{85, 50, 85}, 100), 80, 100, logx.Nop())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		p.tick(ctx)
	}
	drain(b)

	got := events()
	if len(got) != 2 {
		t.Fatalf("emitted %d events, want 2: %+v", len(got), got)
	}
	for _, e := range got {
		if e.Type != event.StorageQuotaWarning {
			t.Fatalf("unexpected event %v", e.Type)
		}
	}
}

func TestUsageErrorSkipsTick(t *testing.T) {
	b := eventbus.New(logx.Nop())
	defer b.Close()
	events := collectStorageEvents(t, b)

	p := NewStoragePoller(b, func(ctx context.Context) (int64, int64, error) {
		return 0, 0, errors.New("backend down")
	}, 80, 100, logx.Nop())
	p.tick(context.Background())
	drain(b)

	if got := events(); len(got) != 0 {
		t.Fatalf("emitted %d events on usage error", len(got))
	}
}

func TestStartStop(t *testing.T) {
	b := eventbus.New(logx.Nop())
	defer b.Close()

	p := NewStoragePoller(b, usageSteps([]int64{10}, 100), 80, 100, logx.Nop())
	if err := p.Start("@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Stop()
	p.Stop() // second stop is a no-op

	if err := NewStoragePoller(b, nil, 80, 100, logx.Nop()).Start("not a cron spec"); err == nil {
		t.Fatalf("bad spec accepted")
	}
}
