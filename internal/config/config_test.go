package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"logging": {"level": "debug"},
		"notifications": {
			"do_not_disturb": true,
			"dedup_window": "500ms",
			"max_dedup_entries": 50
		},
		"storage": {"driver": "file", "path": "./store"}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if !cfg.Notifications.DoNotDisturb {
		t.Fatalf("do_not_disturb not set")
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}

	nc, err := cfg.NotifyConfig()
	if err != nil {
		t.Fatalf("NotifyConfig: %v", err)
	}
	if nc.DedupWindow != 500*time.Millisecond {
		t.Fatalf("dedup window = %v", nc.DedupWindow)
	}
	if nc.MaxDedupEntries != 50 {
		t.Fatalf("max entries = %d", nc.MaxDedupEntries)
	}
}

func TestParseYAMLMatchesJSON(t *testing.T) {
	jsonPath := writeConfig(t, "config.json", `{
		"logging": {"level": "info"},
		"notifications": {"silent_notifications": true, "dedup_window": "2s"}
	}`)
	yamlPath := writeConfig(t, "config.yaml", `
logging:
  level: info
notifications:
  silent_notifications: true
  dedup_window: 2s
`)

	jc, err := NewManager(jsonPath).Parse()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	yc, err := NewManager(yamlPath).Parse()
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if *jc != *yc {
		t.Fatalf("yaml and json parse differ:\n%+v\n%+v", jc, yc)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.json", `{"notifications": {"dedup_windw": "2s"}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatalf("typo field accepted")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	path := writeConfig(t, "config.json", `{"logging":{}} {"logging":{}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatalf("concatenated JSON accepted")
	}
}

func TestParseMissingFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope.json"))
	if _, err := m.Load(); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestBadDuration(t *testing.T) {
	path := writeConfig(t, "config.json", `{"notifications": {"dedup_window": "2 parsecs"}}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := cfg.NotifyConfig(); err == nil {
		t.Fatalf("bad duration accepted")
	}
}

func TestSettingsReadLive(t *testing.T) {
	m := NewManager("unused")

	// No config committed yet: both flags read false.
	if m.DoNotDisturb() || m.SilentNotifications() {
		t.Fatalf("flags true with no config")
	}

	m.Commit(&Config{Notifications: NotificationsConfig{DoNotDisturb: true}})
	if !m.DoNotDisturb() {
		t.Fatalf("do_not_disturb not visible after commit")
	}
	if m.SilentNotifications() {
		t.Fatalf("silent_notifications leaked")
	}

	// A later commit flips the reading without re-wiring anything.
	m.Commit(&Config{Notifications: NotificationsConfig{SilentNotifications: true}})
	if m.DoNotDisturb() {
		t.Fatalf("stale do_not_disturb")
	}
	if !m.SilentNotifications() {
		t.Fatalf("silent_notifications not visible")
	}
}

func TestSubscribePublish(t *testing.T) {
	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	cfg := &Config{Notifications: NotificationsConfig{DoNotDisturb: true}}
	m.publish(cfg)

	select {
	case got := <-ch:
		if got != cfg {
			t.Fatalf("wrong config delivered")
		}
	case <-time.After(time.Second):
		t.Fatalf("no config delivered")
	}
}

func TestPublishDropsOldestWhenFull(t *testing.T) {
	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	old := &Config{}
	fresh := &Config{Notifications: NotificationsConfig{DoNotDisturb: true}}
	m.publish(old)
	m.publish(fresh)

	got := <-ch
	if got != fresh {
		t.Fatalf("stale config delivered; want the newest")
	}
}

func TestStorageConfigParsed(t *testing.T) {
	cfg := &Config{}
	sc, err := cfg.StorageConfigParsed()
	if err != nil {
		t.Fatalf("nil section: %v", err)
	}
	if sc.Driver != "" {
		t.Fatalf("driver = %q, want disabled zero config", sc.Driver)
	}

	cfg.Storage = &StorageConfig{Driver: "sqlite", Path: "./db", BusyTimeout: "3s"}
	sc, err = cfg.StorageConfigParsed()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sc.BusyTimeout != 3*time.Second {
		t.Fatalf("busy timeout = %v", sc.BusyTimeout)
	}
}

func TestParseDurationField(t *testing.T) {
	d, err := ParseDurationField("x", "")
	if err != nil || d != 0 {
		t.Fatalf("empty: %v %v", d, err)
	}
	d, err = ParseDurationField("x", "1m30s")
	if err != nil || d != 90*time.Second {
		t.Fatalf("1m30s: %v %v", d, err)
	}
	if _, err := ParseDurationField("x", "fast"); err == nil {
		t.Fatalf("garbage accepted")
	}
}
