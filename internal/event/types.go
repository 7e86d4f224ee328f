package event

import (
	"errors"
	"strings"
)

// Category is the leading segment of an event type. The set is closed;
// producers cannot invent categories at runtime.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryWorkspace
	CategoryLink
	CategoryStorage
	CategoryAuth
	CategoryBilling
	CategorySystem
	CategorySettings
)

func (c Category) String() string {
	switch c {
	case CategoryWorkspace:
		return "workspace"
	case CategoryLink:
		return "link"
	case CategoryStorage:
		return "storage"
	case CategoryAuth:
		return "auth"
	case CategoryBilling:
		return "billing"
	case CategorySystem:
		return "system"
	case CategorySettings:
		return "settings"
	default:
		return "unknown"
	}
}

// Status is the trailing segment of an event type. StatusNone means the
// type has no start/progress/success/error variant (e.g. link.expired).
type Status uint8

const (
	StatusNone Status = iota
	StatusStart
	StatusProgress
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusStart:
		return "start"
	case StatusProgress:
		return "progress"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return ""
	}
}

// Type identifies one kind of event. Classification reads the explicit
// fields; the dot-joined form produced by String() is only a stable
// wire/debug representation and is never re-parsed internally.
//
// Type is comparable and safe to use as a map key.
type Type struct {
	Category Category
	Resource string // optional middle segment ("file", "folder", ...)
	Action   string
	Status   Status
}

func (t Type) IsZero() bool { return t == Type{} }

// String renders the wire form {category}.{resource}.{action}.{status},
// omitting empty segments. Changing this shape requires a metadata
// schema version bump.
func (t Type) String() string {
	parts := make([]string, 0, 4)
	parts = append(parts, t.Category.String())
	if t.Resource != "" {
		parts = append(parts, t.Resource)
	}
	if t.Action != "" {
		parts = append(parts, t.Action)
	}
	if s := t.Status.String(); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}

func (t Type) IsError() bool   { return t.Status == StatusError }
func (t Type) IsSuccess() bool { return t.Status == StatusSuccess }

// IsProgressClass reports whether the type is a start or progress
// variant. Progress-class events are exempt from deduplication and
// never play sounds.
func (t Type) IsProgressClass() bool {
	return t.Status == StatusStart || t.Status == StatusProgress
}

// The closed registry. Every type the system can emit is declared here;
// ParseType only resolves names found in this set.
var (
	FileUploadStart    = register(CategoryWorkspace, "file", "upload", StatusStart)
	FileUploadProgress = register(CategoryWorkspace, "file", "upload", StatusProgress)
	FileUploadSuccess  = register(CategoryWorkspace, "file", "upload", StatusSuccess)
	FileUploadError    = register(CategoryWorkspace, "file", "upload", StatusError)

	FileDownloadSuccess = register(CategoryWorkspace, "file", "download", StatusSuccess)
	FileDownloadError   = register(CategoryWorkspace, "file", "download", StatusError)
	FileDeleteSuccess   = register(CategoryWorkspace, "file", "delete", StatusSuccess)
	FileDeleteError     = register(CategoryWorkspace, "file", "delete", StatusError)
	FileRenameSuccess   = register(CategoryWorkspace, "file", "rename", StatusSuccess)
	FileRenameError     = register(CategoryWorkspace, "file", "rename", StatusError)
	FileMoveSuccess     = register(CategoryWorkspace, "file", "move", StatusSuccess)
	FileMoveError       = register(CategoryWorkspace, "file", "move", StatusError)

	FolderCreateSuccess  = register(CategoryWorkspace, "folder", "create", StatusSuccess)
	FolderCreateError    = register(CategoryWorkspace, "folder", "create", StatusError)
	FolderDeleteSuccess  = register(CategoryWorkspace, "folder", "delete", StatusSuccess)
	FolderDeleteError    = register(CategoryWorkspace, "folder", "delete", StatusError)
	FolderRenameSuccess  = register(CategoryWorkspace, "folder", "rename", StatusSuccess)
	FolderRenameError    = register(CategoryWorkspace, "folder", "rename", StatusError)
	FolderMoveSuccess    = register(CategoryWorkspace, "folder", "move", StatusSuccess)
	FolderMoveError      = register(CategoryWorkspace, "folder", "move", StatusError)
	FolderReorderSuccess = register(CategoryWorkspace, "folder", "reorder", StatusSuccess)

	BatchUploadStart    = register(CategoryWorkspace, "batch", "upload", StatusStart)
	BatchUploadProgress = register(CategoryWorkspace, "batch", "upload", StatusProgress)
	BatchUploadSuccess  = register(CategoryWorkspace, "batch", "upload", StatusSuccess)
	BatchUploadError    = register(CategoryWorkspace, "batch", "upload", StatusError)

	LinkCreateSuccess = register(CategoryLink, "", "create", StatusSuccess)
	LinkCreateError   = register(CategoryLink, "", "create", StatusError)
	LinkUpdateSuccess = register(CategoryLink, "", "update", StatusSuccess)
	LinkUpdateError   = register(CategoryLink, "", "update", StatusError)
	LinkDeleteSuccess = register(CategoryLink, "", "delete", StatusSuccess)
	LinkDeleteError   = register(CategoryLink, "", "delete", StatusError)
	LinkExpired       = register(CategoryLink, "", "expired", StatusNone)

	// An actor outside the workspace uploaded files through a shared link.
	ExternalUploadReceived = register(CategoryLink, "upload", "received", StatusNone)

	StorageQuotaWarning  = register(CategoryStorage, "quota", "warning", StatusNone)
	StorageQuotaExceeded = register(CategoryStorage, "quota", "exceeded", StatusNone)

	AuthSignInSuccess  = register(CategoryAuth, "session", "signin", StatusSuccess)
	AuthSignInError    = register(CategoryAuth, "session", "signin", StatusError)
	AuthSessionExpired = register(CategoryAuth, "session", "expired", StatusNone)

	BillingPaymentSuccess = register(CategoryBilling, "payment", "charge", StatusSuccess)
	BillingPaymentError   = register(CategoryBilling, "payment", "charge", StatusError)
	BillingPlanChanged    = register(CategoryBilling, "plan", "changed", StatusNone)

	SystemMaintenance  = register(CategorySystem, "", "maintenance", StatusNone)
	SystemAnnouncement = register(CategorySystem, "", "announcement", StatusNone)

	SettingsUpdateSuccess = register(CategorySettings, "", "update", StatusSuccess)
	SettingsUpdateError   = register(CategorySettings, "", "update", StatusError)
)

var registry = map[string]Type{}

func register(c Category, resource, action string, s Status) Type {
	t := Type{Category: c, Resource: resource, Action: action, Status: s}
	registry[t.String()] = t
	return t
}

// ErrUnknownType is returned by ParseType for names outside the registry.
var ErrUnknownType = errors.New("event: unknown type")

// ParseType resolves a wire-form name ("link.create.success") back to a
// registered Type. Intended only for external boundaries (transport
// adapters deserializing server-originated events); internal code
// should reference the Type values directly.
func ParseType(name string) (Type, error) {
	t, ok := registry[strings.TrimSpace(name)]
	if !ok {
		return Type{}, ErrUnknownType
	}
	return t, nil
}

// Types returns a snapshot of all registered types. Order is not defined.
func Types() []Type {
	out := make([]Type, 0, len(registry))
	for _, t := range registry {
		out = append(out, t)
	}
	return out
}
