package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "foldly/pkg/logx"
)

func openTestStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "store")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, dir
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("driver %q: expected nil store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatalf("unknown driver accepted")
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatalf("empty path accepted")
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	st, dir := openTestStore(t)
	ctx := context.Background()

	in := []Entry{
		{Type: "workspace.file.upload.success", Title: "File uploaded successfully", Description: "a.pdf", UIType: "toast", Priority: "medium", Source: "test"},
		{Type: "workspace.file.delete.error", Title: "File delete failed", Error: "permission denied"},
		{Type: "link.create.success", Title: "Upload link created"},
	}
	for _, e := range in {
		if err := st.AppendHistory(ctx, e); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	got, err := st.RecentHistory(ctx, 10)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("got %d entries, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i].Type != in[i].Type || got[i].Title != in[i].Title || got[i].Error != in[i].Error {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], in[i])
		}
	}
	if got[0].At.IsZero() {
		t.Fatalf("timestamp not stamped on append")
	}

	// The journal file carries the expected suffix.
	if _, err := os.Stat(filepath.Join(dir, "store.history.jsonl")); err != nil {
		t.Fatalf("history file: %v", err)
	}
}

func TestRecentHistoryLimit(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		e := Entry{Type: "system.announcement", Title: "Announcement", At: time.Now().Add(time.Duration(i) * time.Millisecond)}
		if err := st.AppendHistory(ctx, e); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	got, err := st.RecentHistory(ctx, 3)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
}

func TestRecentHistorySkipsCorruptLines(t *testing.T) {
	st, dir := openTestStore(t)
	ctx := context.Background()

	if err := st.AppendHistory(ctx, Entry{Type: "a", Title: "first"}); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}

	// Simulate a torn write between two good entries.
	path := filepath.Join(dir, "store.history.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{\"type\": tru\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()

	if err := st.AppendHistory(ctx, Entry{Type: "b", Title: "second"}); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}

	got, err := st.RecentHistory(ctx, 10)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(got) != 2 || got[0].Title != "first" || got[1].Title != "second" {
		t.Fatalf("entries = %+v", got)
	}
}

func TestAppendAfterClose(t *testing.T) {
	st, _ := openTestStore(t)
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.AppendHistory(context.Background(), Entry{Type: "a"}); err == nil {
		t.Fatalf("append after close succeeded")
	}
	// Second close is a no-op.
	if err := st.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
