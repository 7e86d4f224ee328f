package event

// Payload is a closed union keyed by the event Type. Which variant is
// legal for a given Type is a caller contract (checked by the type
// system at the emit site, not at runtime).
type Payload interface {
	isPayload()
	// errorText returns the variant's optional error string ("" if none).
	errorText() string
}

// FilePayload accompanies workspace.file.* events.
type FilePayload struct {
	FileID   string
	FileName string
	FileSize int64

	// BatchID links a per-file event to its enclosing batch. File-level
	// progress events carrying both FileID and BatchID are suppressed in
	// favor of the aggregate batch event.
	BatchID string

	// Progress is 0..100 for *.progress events.
	Progress float64

	// TargetFolder is set for move/rename events.
	TargetFolder string

	Error string
}

// FolderPayload accompanies workspace.folder.* events.
type FolderPayload struct {
	FolderID   string
	FolderName string
	ItemCount  int
	Error      string
}

// BatchPayload accompanies workspace.batch.* events.
type BatchPayload struct {
	BatchID        string
	TotalItems     int
	CompletedItems int
	FailedItems    int
	TotalSize      int64
	Progress       float64
	Error          string
}

// LinkPayload accompanies link.* events, including external uploads
// received through a shared link.
type LinkPayload struct {
	LinkID       string
	LinkName     string
	Slug         string
	UploaderName string
	FileCount    int
	Error        string
}

// StoragePayload accompanies storage.quota.* events.
type StoragePayload struct {
	UsedBytes  int64
	LimitBytes int64
	Percent    float64
	Error      string
}

// AuthPayload accompanies auth.* events.
type AuthPayload struct {
	UserID string
	Email  string
	Error  string
}

// BillingPayload accompanies billing.* events.
type BillingPayload struct {
	Plan        string
	AmountCents int64
	Currency    string
	Error       string
}

// SystemPayload accompanies system.* events.
type SystemPayload struct {
	Message string
	Error   string
}

// SettingsPayload accompanies settings.* events.
type SettingsPayload struct {
	Setting string
	Value   string
	Error   string
}

func (FilePayload) isPayload()     {}
func (FolderPayload) isPayload()   {}
func (BatchPayload) isPayload()    {}
func (LinkPayload) isPayload()     {}
func (StoragePayload) isPayload()  {}
func (AuthPayload) isPayload()     {}
func (BillingPayload) isPayload()  {}
func (SystemPayload) isPayload()   {}
func (SettingsPayload) isPayload() {}

func (p FilePayload) errorText() string     { return p.Error }
func (p FolderPayload) errorText() string   { return p.Error }
func (p BatchPayload) errorText() string    { return p.Error }
func (p LinkPayload) errorText() string     { return p.Error }
func (p StoragePayload) errorText() string  { return p.Error }
func (p AuthPayload) errorText() string     { return p.Error }
func (p BillingPayload) errorText() string  { return p.Error }
func (p SystemPayload) errorText() string   { return p.Error }
func (p SettingsPayload) errorText() string { return p.Error }

// Shape guards. Total and side-effect free: a nil or mismatched payload
// yields (zero, false), never a panic.

func AsFile(p Payload) (FilePayload, bool) {
	v, ok := p.(FilePayload)
	return v, ok
}

func AsFolder(p Payload) (FolderPayload, bool) {
	v, ok := p.(FolderPayload)
	return v, ok
}

func AsBatch(p Payload) (BatchPayload, bool) {
	v, ok := p.(BatchPayload)
	return v, ok
}

func AsLink(p Payload) (LinkPayload, bool) {
	v, ok := p.(LinkPayload)
	return v, ok
}

func AsStorage(p Payload) (StoragePayload, bool) {
	v, ok := p.(StoragePayload)
	return v, ok
}

func AsAuth(p Payload) (AuthPayload, bool) {
	v, ok := p.(AuthPayload)
	return v, ok
}

func AsBilling(p Payload) (BillingPayload, bool) {
	v, ok := p.(BillingPayload)
	return v, ok
}

func AsSystem(p Payload) (SystemPayload, bool) {
	v, ok := p.(SystemPayload)
	return v, ok
}

func AsSettings(p Payload) (SettingsPayload, bool) {
	v, ok := p.(SettingsPayload)
	return v, ok
}

// ErrorText returns the payload's error string, or "" when the payload
// is nil or carries no error.
func ErrorText(p Payload) string {
	if p == nil {
		return ""
	}
	return p.errorText()
}

// ResourceID returns the identifying id carried by the payload
// (file/folder/batch/link id), or "" when the variant has none. Used to
// derive deduplication keys; same-type events without an id collapse
// onto the type alone (last-writer wins within the window).
func ResourceID(p Payload) string {
	switch v := p.(type) {
	case FilePayload:
		return v.FileID
	case FolderPayload:
		return v.FolderID
	case BatchPayload:
		return v.BatchID
	case LinkPayload:
		return v.LinkID
	default:
		return ""
	}
}
