package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"foldly/internal/event"
	"foldly/internal/eventbus"
	"foldly/internal/storage"
	logx "foldly/pkg/logx"
)

// silent operations never play a sound, success or error.
var silentActions = map[string]bool{
	"move":    true,
	"reorder": true,
	"drag":    true,
}

type dedupEntry struct {
	lastSeen time.Time
	count    int
}

type activeEntry struct {
	h    Handle
	base Presentation
}

// Manager is the single policy layer deciding whether and how an event
// becomes user-visible. It subscribes to every bus event and routes the
// ones that survive suppression and deduplication to the renderer.
//
// Decisions are made once per event, in a fixed order: suppression,
// batching policy, deduplication, display synthesis, classification,
// routing, side effects. The manager never returns or raises an error
// for a malformed payload; synthesis falls back to safe defaults.
type Manager struct {
	cfg       Config
	log       logx.Logger
	bus       *eventbus.Bus
	renderer  Renderer
	sound     SoundPlayer
	settings  Settings
	store     storage.Store // optional history journal
	analytics *Analytics
	soundGate *rate.Limiter

	mu        sync.Mutex
	dedup     map[string]*dedupEntry
	active    map[string]*activeEntry
	progress  map[string]Handle    // live progress presentations by resource key
	completed map[string]time.Time // finished upload file ids

	unsub func()
}

// New wires the manager. renderer is required; sound, settings and
// store may be nil (no sounds, no suppression flags, no journal).
func New(cfg Config, bus *eventbus.Bus, renderer Renderer, sound SoundPlayer, settings Settings, store storage.Store, analytics *Analytics, log logx.Logger) *Manager {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	if analytics == nil {
		analytics = NewAnalytics(nil)
	}
	return &Manager{
		cfg:       cfg,
		log:       log,
		bus:       bus,
		renderer:  renderer,
		sound:     sound,
		settings:  settings,
		store:     store,
		analytics: analytics,
		soundGate: rate.NewLimiter(rate.Limit(cfg.SoundRatePerSec), cfg.SoundRatePerSec),
		dedup:     map[string]*dedupEntry{},
		active:    map[string]*activeEntry{},
		progress:  map[string]Handle{},
		completed: map[string]time.Time{},
	}
}

// Start registers the manager as the bus's wildcard subscriber.
// Idempotent; Stop undoes it.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsub != nil {
		return
	}
	m.unsub = m.bus.SubscribeAll(m.Handle)
}

// Stop removes the bus subscription. In-flight dispatches finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Analytics returns the per-type counters tracker.
func (m *Manager) Analytics() *Analytics { return m.analytics }

// Handle processes one event through the decision pipeline. It is the
// bus listener; calling it directly is useful in tests.
func (m *Manager) Handle(e event.Event) {
	m.analytics.Record(e.Type)

	ui := m.classify(e)

	// 1. Suppression. Do-not-disturb is read at decision time.
	if m.settings != nil && m.settings.DoNotDisturb() {
		return
	}
	if channelDisabled(e.Options, ui) {
		return
	}

	// 2. Batching policy.
	if m.suppressedByBatchPolicy(e) {
		return
	}

	now := time.Now()
	key := m.dedupKey(e)

	// 3. Deduplication. Progress-class events update continuously and
	// are exempt.
	if !e.Type.IsProgressClass() {
		if count := m.bumpDuplicate(key, now); count > 0 {
			m.refreshActive(key, count)
			return
		}
	}

	// 4. Display synthesis.
	title, desc := displayText(e)
	p := Presentation{
		UIType:      ui,
		Title:       title,
		Description: desc,
		Duration:    m.duration(e),
		Priority:    priorityOf(e.Options),
		Actions:     m.wrapActions(key, optActions(e.Options)),
		IsError:     e.Type.IsError(),
	}

	// 5. Routing.
	m.route(e, key, p, now)

	// 6. Side effects. Progress ticks are too chatty to journal.
	m.maybeSound(e)
	if !e.Type.IsProgressClass() {
		m.journal(e, p)
	}
}

// suppressedByBatchPolicy drops per-file progress inside a batch and
// batch-level events for single-item batches, and swallows late events
// for already-completed uploads.
func (m *Manager) suppressedByBatchPolicy(e event.Event) bool {
	if f, ok := event.AsFile(e.Payload); ok {
		// One progress indicator per file would flood the UI during a
		// multi-file upload; only the aggregate batch event shows.
		if e.Type.IsProgressClass() && f.BatchID != "" {
			return true
		}

		switch e.Type {
		case event.FileUploadProgress, event.FileUploadError:
			if m.isCompleted(f.FileID) {
				return true
			}
		case event.FileUploadSuccess:
			m.markCompleted(f.FileID)
		}
		return false
	}

	if b, ok := event.AsBatch(e.Payload); ok && b.TotalItems == 1 {
		// The single file's own events drive the UI instead.
		return true
	}
	return false
}

func (m *Manager) isCompleted(fileID string) bool {
	if fileID == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.completed[fileID]
	if !ok {
		return false
	}
	if time.Since(at) > m.cfg.CompletedTTL {
		delete(m.completed, fileID)
		return false
	}
	return true
}

func (m *Manager) markCompleted(fileID string) {
	if fileID == "" {
		return
	}
	now := time.Now()
	m.mu.Lock()
	// Expired entries are swept on insert to bound the set.
	for id, at := range m.completed {
		if now.Sub(at) > m.cfg.CompletedTTL {
			delete(m.completed, id)
		}
	}
	m.completed[fileID] = now
	m.mu.Unlock()
}

// dedupKey derives the deduplication key: an explicit override, or the
// event type plus the identifying payload id. Payloads without an id
// collapse onto the type alone, so unrelated same-type events within
// the window coalesce (last-writer-wins; documented behavior).
func (m *Manager) dedupKey(e event.Event) string {
	if e.Options != nil && e.Options.DedupKey != "" {
		return e.Options.DedupKey
	}
	return e.Type.String() + "|" + event.ResourceID(e.Payload)
}

// resourceKey identifies the thing a progress presentation tracks,
// across its start/progress/success/error events.
func resourceKey(e event.Event) string {
	id := event.ResourceID(e.Payload)
	if id == "" {
		return ""
	}
	return e.Type.Resource + "|" + id
}

// bumpDuplicate returns the occurrence count if the key is a duplicate
// inside the window (after incrementing), or 0 for a first sighting.
// Expired entries are evicted lazily here, not by a sweeper.
func (m *Manager) bumpDuplicate(key string, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if en, ok := m.dedup[key]; ok {
		if now.Sub(en.lastSeen) <= m.cfg.DedupWindow {
			en.count++
			en.lastSeen = now
			return en.count
		}
		delete(m.dedup, key)
		delete(m.active, key)
	}
	return 0
}

// refreshActive re-renders the active presentation for a duplicated key
// with an occurrence-count suffix.
func (m *Manager) refreshActive(key string, count int) {
	m.mu.Lock()
	ae := m.active[key]
	m.mu.Unlock()
	if ae == nil {
		return
	}
	p := ae.base
	p.Title = fmt.Sprintf("%s (%dx)", ae.base.Title, count)
	ae.h.Replace(p)
}

func (m *Manager) classify(e event.Event) event.UIType {
	if o := e.Options; o != nil {
		if o.UIType != event.UIAuto {
			return o.UIType
		}
		if o.Priority == event.PriorityCritical {
			return event.UIModal
		}
	}
	if e.Type.IsProgressClass() {
		return event.UIProgress
	}
	if e.Type.Category == event.CategoryStorage {
		return event.UIBanner
	}
	if e.Type == event.ExternalUploadReceived {
		return event.UIInteractiveToast
	}
	return event.UIToast
}

func (m *Manager) duration(e event.Event) time.Duration {
	if o := e.Options; o != nil {
		if o.Persistent {
			return 0
		}
		if o.Duration < 0 {
			return 0
		}
		if o.Duration > 0 {
			return o.Duration
		}
	}
	if e.Type.IsProgressClass() {
		return 0 // no auto-dismiss; resolved by the terminal event
	}
	if e.Type.IsError() {
		return m.cfg.ErrorDuration
	}
	return m.cfg.DefaultDuration
}

// route shows the presentation. Progress-class events update a live
// handle keyed by resource; terminal events resolve that handle first.
func (m *Manager) route(e event.Event, key string, p Presentation, now time.Time) {
	rk := resourceKey(e)

	if e.Type.IsProgressClass() {
		m.mu.Lock()
		h := m.progress[rk]
		m.mu.Unlock()
		if h != nil {
			h.Replace(p)
			return
		}
		h = m.renderer.Show(p)
		if rk != "" {
			m.mu.Lock()
			m.progress[rk] = h
			m.mu.Unlock()
		}
		return
	}

	// A success/error for a tracked resource resolves its progress
	// presentation before the terminal toast appears.
	if rk != "" {
		m.mu.Lock()
		h := m.progress[rk]
		delete(m.progress, rk)
		m.mu.Unlock()
		if h != nil {
			h.Dismiss()
		}
	}

	h := m.renderer.Show(p)

	m.mu.Lock()
	m.dedup[key] = &dedupEntry{lastSeen: now, count: 1}
	m.active[key] = &activeEntry{h: h, base: p}
	m.pruneDedupLocked(now)
	m.mu.Unlock()
}

// pruneDedupLocked caps the dedup map, evicting the oldest entries
// first. Expiry-based eviction stays lazy (on lookup).
func (m *Manager) pruneDedupLocked(now time.Time) {
	if len(m.dedup) <= m.cfg.MaxDedupEntries {
		return
	}
	for len(m.dedup) > m.cfg.MaxDedupEntries {
		var (
			oldKey string
			oldT   time.Time
			set    bool
		)
		for k, en := range m.dedup {
			if !set || en.lastSeen.Before(oldT) {
				oldKey, oldT, set = k, en.lastSeen, true
			}
		}
		if !set {
			return
		}
		delete(m.dedup, oldKey)
		delete(m.active, oldKey)
	}
}

// wrapActions decorates non-secondary action handlers so that invoking
// one also clears the event from the active tracking set.
func (m *Manager) wrapActions(key string, actions []event.Action) []event.Action {
	if len(actions) == 0 {
		return nil
	}
	out := make([]event.Action, len(actions))
	for i, a := range actions {
		out[i] = a
		if a.Secondary || a.Handler == nil {
			continue
		}
		inner := a.Handler
		out[i].Handler = func() {
			inner()
			m.clearActive(key)
		}
	}
	return out
}

func (m *Manager) clearActive(key string) {
	m.mu.Lock()
	delete(m.active, key)
	delete(m.dedup, key)
	m.mu.Unlock()
}

// maybeSound applies the sound policy: warning sound for error and
// storage events (even under silent-notifications), nothing for
// progress updates and silent operations, default sound otherwise
// unless the user muted notifications. Non-warning sounds are gated by
// a rate limiter so bursts don't stack audio.
func (m *Manager) maybeSound(e event.Event) {
	if m.sound == nil {
		return
	}
	if e.Type.IsProgressClass() {
		return
	}
	if o := e.Options; o != nil && o.DisableSound {
		return
	}

	forced := e.Options != nil && e.Options.Sound
	if silentActions[e.Type.Action] && !forced {
		return
	}

	warn := e.Type.IsError() ||
		e.Type == event.StorageQuotaWarning ||
		e.Type == event.StorageQuotaExceeded
	if warn {
		m.sound.Play(SoundWarning)
		return
	}

	if m.settings != nil && m.settings.SilentNotifications() {
		return
	}
	if !m.soundGate.Allow() {
		return
	}
	m.sound.Play(SoundDefault)
}

// journal appends the presented notification to the history store,
// best-effort with a tight deadline.
func (m *Manager) journal(e event.Event, p Presentation) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	err := m.store.AppendHistory(ctx, storage.Entry{
		At:          e.Meta.Timestamp,
		Type:        e.Type.String(),
		Title:       p.Title,
		Description: p.Description,
		UIType:      p.UIType.String(),
		Priority:    p.Priority.String(),
		Source:      e.Meta.Source,
		Error:       event.ErrorText(e.Payload),
	})
	if err != nil {
		m.log.Debug("history append failed", logx.Any("err", err))
	}
}

func channelDisabled(o *event.Options, ui event.UIType) bool {
	if o == nil {
		return false
	}
	switch ui {
	case event.UIBanner:
		return o.DisableBanner
	case event.UIModal:
		return o.DisableModal
	default:
		// Toast-family presentations (toast, interactive, stacked,
		// progress) share the toast channel flag.
		return o.DisableToast
	}
}

func priorityOf(o *event.Options) event.Priority {
	if o == nil {
		return event.PriorityMedium
	}
	return o.Priority
}

func optActions(o *event.Options) []event.Action {
	if o == nil {
		return nil
	}
	return o.Actions
}
