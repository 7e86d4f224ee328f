// Package render holds demo implementations of the presentation
// collaborators the notification manager talks to. The real product
// renders toasts/banners/modals; here everything lands on the log.
package render

import (
	"sync"

	"foldly/internal/notify"
	logx "foldly/pkg/logx"
)

// Console renders presentations as structured log lines. Each Show
// returns a handle whose Replace/Dismiss re-log under the same
// presentation id, so toast updates are traceable.
type Console struct {
	log logx.Logger

	mu  sync.Mutex
	seq uint64
}

func NewConsole(log logx.Logger) *Console {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Console{log: log}
}

func (c *Console) Show(p notify.Presentation) notify.Handle {
	c.mu.Lock()
	c.seq++
	id := c.seq
	c.mu.Unlock()

	c.render(id, "show", p)
	return &consoleHandle{c: c, id: id}
}

func (c *Console) render(id uint64, op string, p notify.Presentation) {
	fields := []logx.Field{
		logx.Uint64("id", id),
		logx.String("op", op),
		logx.String("ui", p.UIType.String()),
		logx.String("title", p.Title),
	}
	if p.Description != "" {
		fields = append(fields, logx.String("desc", p.Description))
	}
	if p.Duration > 0 {
		fields = append(fields, logx.Duration("duration", p.Duration))
	}
	if len(p.Actions) > 0 {
		labels := make([]string, 0, len(p.Actions))
		for _, a := range p.Actions {
			labels = append(labels, a.Label)
		}
		fields = append(fields, logx.Any("actions", labels))
	}

	if p.IsError {
		c.log.Warn("notification", fields...)
		return
	}
	c.log.Info("notification", fields...)
}

type consoleHandle struct {
	c  *Console
	id uint64

	mu        sync.Mutex
	dismissed bool
}

func (h *consoleHandle) Replace(p notify.Presentation) {
	h.mu.Lock()
	gone := h.dismissed
	h.mu.Unlock()
	if gone {
		// Updates after dismissal are legal no-ops.
		return
	}
	h.c.render(h.id, "update", p)
}

func (h *consoleHandle) Dismiss() {
	h.mu.Lock()
	if h.dismissed {
		h.mu.Unlock()
		return
	}
	h.dismissed = true
	h.mu.Unlock()
	h.c.log.Debug("notification dismissed", logx.Uint64("id", h.id))
}
