package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl with periodic compaction)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry records one presented notification.
// Keep it compact and schema-stable.
type Entry struct {
	At          time.Time `json:"at"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	UIType      string    `json:"ui_type"`
	Priority    string    `json:"priority"`
	Source      string    `json:"source,omitempty"`
	Error       string    `json:"error,omitempty"`
}
