package config

import (
	"foldly/internal/notify"
	"foldly/internal/storage"
	logx "foldly/pkg/logx"
)

// Config is the host application's configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// Unknown fields are rejected so typos fail loudly instead of silently
// doing nothing.
type Config struct {
	Logging       LoggingConfig       `json:"logging"`
	Notifications NotificationsConfig `json:"notifications"`
	Storage       *StorageConfig      `json:"storage,omitempty"`
	Producers     *ProducersConfig    `json:"producers,omitempty"`
}

type LoggingConfig struct {
	Level   string         `json:"level,omitempty"`
	Console *bool          `json:"console,omitempty"` // nil means enabled
	File    FileLoggingCfg `json:"file,omitempty"`
}

type FileLoggingCfg struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// NotificationsConfig holds the user-facing notification flags plus the
// manager tunables. DoNotDisturb and SilentNotifications are read live
// by the manager through the Settings interface; editing the config
// file flips them at runtime via the watcher.
type NotificationsConfig struct {
	DoNotDisturb        bool `json:"do_not_disturb,omitempty"`
	SilentNotifications bool `json:"silent_notifications,omitempty"`

	DedupWindow     string `json:"dedup_window,omitempty"`  // default "2s"
	CompletedTTL    string `json:"completed_ttl,omitempty"` // default "10s"
	MaxDedupEntries int    `json:"max_dedup_entries,omitempty"`
	SoundRatePerSec int    `json:"sound_rate_per_sec,omitempty"`
	ErrorDuration   string `json:"error_duration,omitempty"`   // default "8s"
	DefaultDuration string `json:"default_duration,omitempty"` // default "5s"
}

// StorageConfig controls the optional notification history journal.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./foldly_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ProducersConfig configures the demo server-event producers.
type ProducersConfig struct {
	StoragePoll *StoragePollConfig `json:"storage_poll,omitempty"`
}

// StoragePollConfig drives the cron-based storage usage poller.
type StoragePollConfig struct {
	Enabled bool `json:"enabled"`

	// Spec is a cron expression or @every descriptor (e.g. "@every 30s").
	Spec string `json:"spec,omitempty"`

	LimitBytes    int64   `json:"limit_bytes,omitempty"`
	WarnPercent   float64 `json:"warn_percent,omitempty"`   // default 80
	ExceedPercent float64 `json:"exceed_percent,omitempty"` // default 100
}

// LogxConfig translates the logging section for pkg/logx.
func (c *Config) LogxConfig() logx.Config {
	console := true
	if c.Logging.Console != nil {
		console = *c.Logging.Console
	}
	return logx.Config{
		Level:   c.Logging.Level,
		Console: console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

// NotifyConfig translates the notifications section for the manager.
func (c *Config) NotifyConfig() (notify.Config, error) {
	n := c.Notifications
	dedup, err := ParseDurationField("notifications.dedup_window", n.DedupWindow)
	if err != nil {
		return notify.Config{}, err
	}
	ttl, err := ParseDurationField("notifications.completed_ttl", n.CompletedTTL)
	if err != nil {
		return notify.Config{}, err
	}
	errDur, err := ParseDurationField("notifications.error_duration", n.ErrorDuration)
	if err != nil {
		return notify.Config{}, err
	}
	defDur, err := ParseDurationField("notifications.default_duration", n.DefaultDuration)
	if err != nil {
		return notify.Config{}, err
	}
	return notify.Config{
		DedupWindow:     dedup,
		CompletedTTL:    ttl,
		MaxDedupEntries: n.MaxDedupEntries,
		SoundRatePerSec: n.SoundRatePerSec,
		ErrorDuration:   errDur,
		DefaultDuration: defDur,
	}, nil
}

// StorageConfigParsed translates the storage section. Returns the zero
// config when the section is omitted (storage disabled).
func (c *Config) StorageConfigParsed() (storage.Config, error) {
	if c.Storage == nil {
		return storage.Config{}, nil
	}
	busy, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      c.Storage.Driver,
		Path:        c.Storage.Path,
		BusyTimeout: busy,
	}, nil
}
