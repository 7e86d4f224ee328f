package notify

import (
	"time"

	"foldly/internal/event"
)

// Presentation is what the manager hands to the renderer.
type Presentation struct {
	UIType      event.UIType
	Title       string
	Description string

	// Duration is the auto-dismiss time. Zero means sticky (progress
	// presentations and persistent notifications).
	Duration time.Duration

	Priority event.Priority
	Actions  []event.Action

	// IsError marks error-styled presentations (longer duration,
	// warning sound).
	IsError bool
}

// Handle lets the manager update or dismiss a presentation it created.
// Implementations must tolerate calls after the presentation has
// already gone away.
type Handle interface {
	Replace(p Presentation)
	Dismiss()
}

// Renderer is the external presentation surface (toast/banner/modal
// stack in the real product). The manager is its only caller.
type Renderer interface {
	Show(p Presentation) Handle
}

// Sound kinds the manager can request.
type Sound uint8

const (
	SoundDefault Sound = iota
	SoundWarning
)

// SoundPlayer is the external audio collaborator. Play is
// fire-and-forget; failures are invisible to the manager.
type SoundPlayer interface {
	Play(s Sound)
}

// Settings exposes the user flags the manager reads at decision time.
// Reads must reflect the current value, not a cached one.
type Settings interface {
	DoNotDisturb() bool
	SilentNotifications() bool
}

// Config tunes the manager. Zero values fall back to defaults.
type Config struct {
	// DedupWindow coalesces repeat emissions with the same key.
	DedupWindow time.Duration // default 2s

	// CompletedTTL is how long a finished upload's file id keeps
	// swallowing late progress/error events.
	CompletedTTL time.Duration // default 10s

	MaxDedupEntries int // default 1000

	// SoundRatePerSec caps non-warning sounds during bursts.
	SoundRatePerSec int

	ErrorDuration   time.Duration // default 8s
	DefaultDuration time.Duration // default 5s
}

func (c Config) withDefaults() Config {
	if c.DedupWindow <= 0 {
		c.DedupWindow = 2 * time.Second
	}
	if c.CompletedTTL <= 0 {
		c.CompletedTTL = 10 * time.Second
	}
	if c.MaxDedupEntries <= 0 {
		c.MaxDedupEntries = 1000
	}
	if c.SoundRatePerSec <= 0 {
		c.SoundRatePerSec = 5
	}
	if c.ErrorDuration <= 0 {
		c.ErrorDuration = 8 * time.Second
	}
	if c.DefaultDuration <= 0 {
		c.DefaultDuration = 5 * time.Second
	}
	return c
}
