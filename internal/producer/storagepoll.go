// Package producer adapts server-side conditions into bus emissions.
// It stands in for the real-time transport of the hosted product: the
// hosting application owns producers; the notification core only sees
// Emit calls.
package producer

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"foldly/internal/event"
	"foldly/internal/eventbus"
	logx "foldly/pkg/logx"
)

// UsageFunc reports current storage consumption.
type UsageFunc func(ctx context.Context) (used, limit int64, err error)

// threshold levels, ordered. Events fire only on upward crossings so a
// workspace sitting at 85% doesn't re-notify every poll.
const (
	levelOK = iota
	levelWarn
	levelExceeded
)

// StoragePoller periodically checks storage usage and emits
// storage.quota.* events on threshold crossings.
type StoragePoller struct {
	log   logx.Logger
	bus   *eventbus.Bus
	usage UsageFunc

	warnPct   float64
	exceedPct float64

	mu    sync.Mutex
	c     *cron.Cron
	level int
}

func NewStoragePoller(bus *eventbus.Bus, usage UsageFunc, warnPct, exceedPct float64, log logx.Logger) *StoragePoller {
	if warnPct <= 0 {
		warnPct = 80
	}
	if exceedPct <= 0 {
		exceedPct = 100
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &StoragePoller{
		log:       log,
		bus:       bus,
		usage:     usage,
		warnPct:   warnPct,
		exceedPct: exceedPct,
	}
}

// Start schedules polling. spec is a cron expression or @every
// descriptor (e.g. "@every 30s"). Start is not idempotent; call once.
func (p *StoragePoller) Start(spec string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p.tick(ctx)
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.c = c
	p.mu.Unlock()
	c.Start()
	return nil
}

// Stop halts polling and waits for a running tick to finish.
func (p *StoragePoller) Stop() {
	p.mu.Lock()
	c := p.c
	p.c = nil
	p.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (p *StoragePoller) tick(ctx context.Context) {
	used, limit, err := p.usage(ctx)
	if err != nil {
		p.log.Debug("storage usage check failed", logx.Any("err", err))
		return
	}
	if limit <= 0 {
		return
	}
	pct := float64(used) / float64(limit) * 100

	newLevel := levelOK
	switch {
	case pct >= p.exceedPct:
		newLevel = levelExceeded
	case pct >= p.warnPct:
		newLevel = levelWarn
	}

	p.mu.Lock()
	prev := p.level
	p.level = newLevel
	p.mu.Unlock()

	if newLevel <= prev {
		return
	}

	payload := event.StoragePayload{UsedBytes: used, LimitBytes: limit, Percent: pct}
	switch newLevel {
	case levelExceeded:
		p.bus.Emit(event.StorageQuotaExceeded, payload, &event.Options{
			Priority: event.PriorityHigh,
			Source:   "storage-poll",
		})
	case levelWarn:
		p.bus.Emit(event.StorageQuotaWarning, payload, &event.Options{
			Source: "storage-poll",
		})
	}
}
