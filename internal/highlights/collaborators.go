package highlights

import (
	"context"
	"sync"
)

// Rect is a bounding box in viewport pixels.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Selection is the user's current text selection.
type Selection struct {
	Text      string
	Rect      Rect
	Collapsed bool
}

// Viewport is the rendered document view the manager reads selections from.
type Viewport interface {
	// CurrentSelection returns false when nothing is selected.
	CurrentSelection() (Selection, bool)
	// Origin is the bounding box of the rendered page container.
	Origin() Rect
	CurrentPage() int
	Scale() float64
	ClearSelection()
}

// NotePrompter asks the user for a note. ok=false means the prompt was
// cancelled.
type NotePrompter interface {
	PromptNote(ctx context.Context, initial string) (note string, ok bool, err error)
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient user-facing message.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Recorder is a Notifier that keeps every notification it receives.
// Safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// Notifications returns a copy of the recorded notifications in arrival
// order. Never nil.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// StaticViewport is a Viewport frozen at one moment, e.g. built from a
// client's capture payload.
type StaticViewport struct {
	Selection    Selection
	HasSelection bool
	OriginRect   Rect
	Page         int
	ViewScale    float64

	mu      sync.Mutex
	cleared bool
}

func (v *StaticViewport) CurrentSelection() (Selection, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cleared || !v.HasSelection {
		return Selection{}, false
	}
	return v.Selection, true
}

func (v *StaticViewport) Origin() Rect { return v.OriginRect }
func (v *StaticViewport) CurrentPage() int { return v.Page }
func (v *StaticViewport) Scale() float64 { return v.ViewScale }

func (v *StaticViewport) ClearSelection() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleared = true
}

// Cleared reports whether ClearSelection was called.
func (v *StaticViewport) Cleared() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cleared
}

// StaticPrompter answers every prompt with the same note. With OK false it
// behaves like a cancelled prompt.
type StaticPrompter struct {
	Note string
	OK   bool
}

func (p StaticPrompter) PromptNote(context.Context, string) (string, bool, error) {
	return p.Note, p.OK, nil
}

type noSelectionViewport struct{}

func (noSelectionViewport) CurrentSelection() (Selection, bool) { return Selection{}, false }
func (noSelectionViewport) Origin() Rect { return Rect{} }
func (noSelectionViewport) CurrentPage() int { return 1 }
func (noSelectionViewport) Scale() float64 { return 0 }
func (noSelectionViewport) ClearSelection() {}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}
