// Package highlights implements the highlight and annotation state of one
// user's view of one document, and keeps it synchronized with the reading
// record store.
//
// A Manager is seeded with the record's highlight list and mutated through
// Capture, Remove, EditNote and SetNote. Every mutation updates memory first
// and then schedules a background write; writes run one at a time in the
// order they were scheduled. A failed write leaves memory untouched, marks
// the manager dirty and reports through the Notifier. Resync pushes the full
// list again.
//
// # Usage
//
//	m := highlights.NewManager(identity, bookID, store,
//		highlights.WithHighlights(record.Highlights),
//		highlights.WithViewport(viewport),
//		highlights.WithNotifier(recorder),
//	)
//	m.SetMode(true)
//	h, err := m.Capture(ctx)
//	_ = m.Flush(ctx)
package highlights

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/entities"
	applog "github.com/mrlokans/shelf/internal/logger"
	"github.com/mrlokans/shelf/internal/records"
	"github.com/mrlokans/shelf/internal/utils"
)

const (
	msgRemoved    = "Highlight removed"
	msgSaved      = "Highlights saved"
	msgSaveFailed = "Failed to save highlights"
)

// maxIDAttempts bounds regeneration when a fresh id collides with the list.
const maxIDAttempts = 3

type Option func(*Manager)

func WithViewport(v Viewport) Option {
	return func(m *Manager) { m.viewport = v }
}

func WithNotePrompter(p NotePrompter) Option {
	return func(m *Manager) { m.prompter = p }
}

func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithSyncMode selects how mutations are written. Patch mode is used only
// when the store implements records.HighlightPatcher.
func WithSyncMode(mode config.SyncMode) Option {
	return func(m *Manager) { m.syncMode = mode }
}

// WithPersistTimeout bounds each background write. Zero means no timeout.
func WithPersistTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithColor sets the initial active color. Invalid colors are ignored.
func WithColor(color string) Option {
	return func(m *Manager) {
		if c, err := utils.NormalizeHexColor(color); err == nil {
			m.color = c
		}
	}
}

// WithHighlights seeds the in-memory list, usually from the fetched record.
func WithHighlights(list []entities.Highlight) Option {
	return func(m *Manager) {
		m.highlights = append([]entities.Highlight{}, list...)
	}
}

func WithEnabled(enabled bool) Option {
	return func(m *Manager) { m.enabled = enabled }
}

func WithIDGenerator(gen func() (string, error)) Option {
	return func(m *Manager) { m.newID = gen }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns the highlight list of one (user, document) pair.
// Safe for concurrent use.
type Manager struct {
	identity auth.Identity
	bookID   string
	store    records.Store
	patcher  records.HighlightPatcher

	viewport Viewport
	prompter NotePrompter
	notifier Notifier
	syncMode config.SyncMode
	timeout  time.Duration
	newID    func() (string, error)
	now      func() time.Time
	log      *logrus.Entry

	mu         sync.Mutex
	highlights []entities.Highlight
	enabled    bool
	color      string
	lastError  error
	dirty      bool

	queue persistQueue
}

// NewManager creates a manager for identity's view of bookID.
func NewManager(identity auth.Identity, bookID string, store records.Store, opts ...Option) *Manager {
	m := &Manager{
		identity:   identity,
		bookID:     bookID,
		store:      store,
		viewport:   noSelectionViewport{},
		prompter:   StaticPrompter{},
		notifier:   nopNotifier{},
		syncMode:   config.SyncModeReplace,
		newID:      func() (string, error) { return gonanoid.New() },
		now:        time.Now,
		color:      config.DefaultHighlightColor,
		highlights: []entities.Highlight{},
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.syncMode == config.SyncModePatch {
		if p, ok := store.(records.HighlightPatcher); ok {
			m.patcher = p
		}
	}

	m.log = applog.WithComponent("highlights").WithFields(logrus.Fields{
		"user_id": identity.UserID,
		"book_id": bookID,
	})
	m.queue.run = m.runJob
	return m
}

// ToggleMode flips highlighting mode and returns the new state.
func (m *Manager) ToggleMode() bool {
	m.mu.Lock()
	enabled := !m.enabled
	m.mu.Unlock()
	m.SetMode(enabled)
	return enabled
}

// SetMode enables or disables highlighting. Disabling drops any pending
// selection.
func (m *Manager) SetMode(enabled bool) {
	m.mu.Lock()
	m.enabled = enabled
	m.mu.Unlock()
	if !enabled {
		m.viewport.ClearSelection()
	}
}

// SetColor sets the color used for subsequent captures. Existing highlights
// keep their color.
func (m *Manager) SetColor(color string) error {
	c, err := utils.NormalizeHexColor(color)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.color = c
	m.mu.Unlock()
	return nil
}

// Capture turns the current selection into a highlight.
//
// It returns nil without error when highlighting is disabled or there is no
// usable selection. The note prompt is shown before the highlight is
// stored; a cancelled prompt yields an empty note. The selection is cleared
// once the highlight is appended, whatever the outcome of the write.
func (m *Manager) Capture(ctx context.Context) (*entities.Highlight, error) {
	m.mu.Lock()
	enabled, color := m.enabled, m.color
	m.mu.Unlock()
	if !enabled {
		return nil, nil
	}

	sel, ok := m.viewport.CurrentSelection()
	if !ok || sel.Collapsed {
		return nil, nil
	}
	text := strings.TrimSpace(sel.Text)
	if text == "" {
		return nil, nil
	}

	origin := m.viewport.Origin()
	page := m.viewport.CurrentPage()
	if page < entities.DefaultPage {
		page = entities.DefaultPage
	}
	scale := m.viewport.Scale()

	note, ok, err := m.prompter.PromptNote(ctx, "")
	if err != nil {
		m.log.WithError(err).Warn("Note prompt failed, storing highlight without note")
	}
	if !ok || err != nil {
		note = ""
	}

	h := entities.Highlight{
		PageNumber: page,
		Text:       text,
		Position: entities.Position{
			Top:    sel.Rect.Top - origin.Top,
			Left:   sel.Rect.Left - origin.Left,
			Width:  sel.Rect.Width,
			Height: sel.Rect.Height,
		},
		Color:     color,
		Note:      note,
		Scale:     scale,
		CreatedAt: m.now().UTC(),
	}

	m.mu.Lock()
	h.ID, err = m.uniqueID()
	if err != nil {
		m.mu.Unlock()
		m.viewport.ClearSelection()
		return nil, fmt.Errorf("generate highlight id: %w", err)
	}
	m.highlights = appendCopy(m.highlights, h)
	m.enqueueLocked(ctx, persistOp{kind: opAppend, highlight: h})
	m.mu.Unlock()

	m.viewport.ClearSelection()
	m.log.WithField("highlight_id", h.ID).Debug("Captured highlight")
	return &h, nil
}

// Remove deletes the highlight with id. It reports false, and does nothing,
// when no such highlight exists.
func (m *Manager) Remove(ctx context.Context, id string) bool {
	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	next := make([]entities.Highlight, 0, len(m.highlights)-1)
	next = append(next, m.highlights[:idx]...)
	next = append(next, m.highlights[idx+1:]...)
	m.highlights = next
	m.enqueueLocked(ctx, persistOp{kind: opDelete, id: id})
	m.mu.Unlock()

	m.notifier.Notify(Notification{Level: LevelInfo, Message: msgRemoved})
	return true
}

// EditNote prompts with the highlight's current note and stores the answer.
// A cancelled prompt changes nothing; an empty answer clears the note.
// It reports whether the note was changed.
func (m *Manager) EditNote(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	idx := m.indexLocked(id)
	var current string
	if idx >= 0 {
		current = m.highlights[idx].Note
	}
	m.mu.Unlock()
	if idx < 0 {
		return false, nil
	}

	note, ok, err := m.prompter.PromptNote(ctx, current)
	if err != nil {
		return false, fmt.Errorf("prompt note: %w", err)
	}
	if !ok {
		return false, nil
	}
	return m.SetNote(ctx, id, note), nil
}

// SetNote replaces the note of highlight id. Only the note changes.
func (m *Manager) SetNote(ctx context.Context, id, note string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return false
	}
	next := append([]entities.Highlight{}, m.highlights...)
	next[idx].Note = note
	m.highlights = next
	m.enqueueLocked(ctx, persistOp{kind: opSetNote, id: id, note: note})
	return true
}

// Persist schedules a write of the full in-memory list.
func (m *Manager) Persist(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueueLocked(ctx, persistOp{kind: opReplace})
}

// Flush blocks until every scheduled write has finished or ctx is done.
func (m *Manager) Flush(ctx context.Context) error {
	return m.queue.wait(ctx)
}

// Resync pushes the full in-memory list to the store and waits for the
// result. It is the recovery path after a failed write.
func (m *Manager) Resync(ctx context.Context) error {
	m.Persist(ctx)
	if err := m.Flush(ctx); err != nil {
		return err
	}
	return m.Err()
}

// Overlays returns the overlays for page at the given view scale.
func (m *Manager) Overlays(page int, scale float64) []Overlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	return BuildOverlays(m.highlights, page, scale)
}

// Highlights returns a copy of the list in insertion order.
func (m *Manager) Highlights() []entities.Highlight {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.Highlight{}, m.highlights...)
}

// Err returns the error of the last failed write, or nil once a later write
// succeeded.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// Dirty reports whether memory may be ahead of the store.
func (m *Manager) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

func (m *Manager) Color() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.color
}

func (m *Manager) indexLocked(id string) int {
	for i, h := range m.highlights {
		if h.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) uniqueID() (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := m.newID()
		if err != nil {
			return "", err
		}
		if id != "" && m.indexLocked(id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("no unique id after %d attempts", maxIDAttempts)
}

// appendCopy never writes into list's backing array, so slices handed out
// earlier stay unchanged.
func appendCopy(list []entities.Highlight, h entities.Highlight) []entities.Highlight {
	next := make([]entities.Highlight, 0, len(list)+1)
	next = append(next, list...)
	return append(next, h)
}
