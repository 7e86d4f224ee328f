package render

import (
	"io"

	"foldly/internal/notify"
)

// Bell is a fire-and-forget sound player that writes the terminal bell
// character. Write errors are ignored; sound is best-effort by
// contract.
type Bell struct {
	out io.Writer
}

func NewBell(out io.Writer) *Bell {
	return &Bell{out: out}
}

func (b *Bell) Play(s notify.Sound) {
	if b == nil || b.out == nil {
		return
	}
	switch s {
	case notify.SoundWarning:
		_, _ = b.out.Write([]byte("\a\a"))
	default:
		_, _ = b.out.Write([]byte("\a"))
	}
}
