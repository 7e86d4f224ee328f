package render

import (
	"bytes"
	"testing"

	"foldly/internal/notify"
	logx "foldly/pkg/logx"
)

func TestConsoleHandleLifecycle(t *testing.T) {
	c := NewConsole(logx.Nop())

	h1 := c.Show(notify.Presentation{Title: "one"})
	h2 := c.Show(notify.Presentation{Title: "two"})
	if h1 == h2 {
		t.Fatalf("handles should be distinct per Show")
	}

	h1.Replace(notify.Presentation{Title: "one updated"})
	h1.Dismiss()
	// Post-dismiss calls are legal no-ops.
	h1.Dismiss()
	h1.Replace(notify.Presentation{Title: "too late"})
	h2.Dismiss()
}

func TestBell(t *testing.T) {
	var buf bytes.Buffer
	b := NewBell(&buf)

	b.Play(notify.SoundDefault)
	if got := buf.String(); got != "\a" {
		t.Fatalf("default sound wrote %q", got)
	}

	buf.Reset()
	b.Play(notify.SoundWarning)
	if got := buf.String(); got != "\a\a" {
		t.Fatalf("warning sound wrote %q", got)
	}

	// Nil writer is tolerated.
	NewBell(nil).Play(notify.SoundDefault)
}
