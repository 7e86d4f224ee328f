package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MetadataVersion is the schema version stamped onto every event. Bump
// when the wire shape of Type.String() or a payload variant changes.
const MetadataVersion = 1

// Metadata is attached to every event at emit time and is immutable
// after construction.
type Metadata struct {
	Timestamp     time.Time
	SessionID     string
	UserID        string
	CorrelationID string
	Source        string
	Version       int
}

var sessionID = sync.OnceValue(func() string { return uuid.NewString() })

// SessionID returns the per-process random session token. It is stable
// for the lifetime of the process.
func SessionID() string { return sessionID() }

// NewMetadata stamps fresh metadata. Source is an explicit
// producer-supplied hint; there is no caller inference.
func NewMetadata(source string) Metadata {
	return Metadata{
		Timestamp:     time.Now(),
		SessionID:     sessionID(),
		CorrelationID: uuid.NewString(),
		Source:        source,
		Version:       MetadataVersion,
	}
}

// Event is the unit flowing through the bus.
type Event struct {
	Type    Type
	Payload Payload
	Meta    Metadata

	// Options carries producer-supplied presentation preferences.
	// Nil means "manager defaults". Producer options always win.
	Options *Options
}

// Priority of a notification. Critical forces a modal presentation.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "medium"
	}
}

// UIType selects how an event is rendered.
type UIType uint8

const (
	UIAuto UIType = iota // manager decides
	UIToast
	UIInteractiveToast
	UIBanner
	UIModal
	UIProgress
	UIStacked
)

func (u UIType) String() string {
	switch u {
	case UIToast:
		return "toast"
	case UIInteractiveToast:
		return "interactive_toast"
	case UIBanner:
		return "banner"
	case UIModal:
		return "modal"
	case UIProgress:
		return "progress"
	case UIStacked:
		return "stacked"
	default:
		return "auto"
	}
}

// Action is a user-facing button on an interactive presentation.
// Invoking a non-secondary action also clears the event from the
// manager's active tracking set.
type Action struct {
	Label     string
	Handler   func()
	Secondary bool
}

// Options is the optional per-emission notification config. Zero
// values mean "use manager defaults"; explicit disables are expressed
// with the Disable* flags so the zero value of Options stays neutral.
type Options struct {
	Priority Priority
	UIType   UIType

	// Per-channel disables. The relevant flag is checked against the
	// classified presentation mode before anything is shown.
	DisableToast  bool
	DisableBanner bool
	DisableModal  bool
	DisableSound  bool

	// DedupKey overrides the derived deduplication key.
	DedupKey string

	// Duration overrides the on-screen duration. Zero keeps the
	// class-derived default; negative means sticky (no auto-dismiss).
	Duration time.Duration

	// Persistent asks the renderer to keep the presentation until
	// explicitly dismissed.
	Persistent bool

	// Sound requests a sound even for types that default to silent.
	Sound bool

	Actions []Action

	// Source overrides the bus-level producer source hint.
	Source string
}
