// Package records defines the contract for the per-user, per-book reading
// record store.
//
// A reading record holds the current page, the read flag and the highlight
// list for one (user, book) pair. Two implementations exist:
//
//   - database/records: GORM on the local SQLite database
//   - supabase: lib/pq against a Supabase Postgres user_books table
//
// Updates are partial and carry exactly one field. Stores that can apply
// single-highlight changes atomically also implement HighlightPatcher.
package records

import (
	"context"
	"errors"

	"github.com/mrlokans/shelf/internal/entities"
)

var (
	ErrNotFound      = errors.New("reading record not found")
	ErrInvalidUpdate = errors.New("update must set exactly one of page, read or highlights")
)

// Key identifies a reading record.
type Key struct {
	UserID string
	BookID string
}

// Update is a partial record update. Build it with PageUpdate, ReadUpdate or
// HighlightsUpdate.
type Update struct {
	Page       *int
	Read       *bool
	Highlights *[]entities.Highlight
}

func PageUpdate(page int) Update {
	return Update{Page: &page}
}

func ReadUpdate(read bool) Update {
	return Update{Read: &read}
}

// HighlightsUpdate copies the list so later in-memory edits don't leak into
// an update that is still in flight.
func HighlightsUpdate(list []entities.Highlight) Update {
	cp := make([]entities.Highlight, len(list))
	copy(cp, list)
	return Update{Highlights: &cp}
}

// Validate enforces the single-field rule.
func (u Update) Validate() error {
	set := 0
	if u.Page != nil {
		set++
	}
	if u.Read != nil {
		set++
	}
	if u.Highlights != nil {
		set++
	}
	if set != 1 {
		return ErrInvalidUpdate
	}
	return nil
}

// Column returns the user_books column the update touches.
func (u Update) Column() string {
	switch {
	case u.Page != nil:
		return "page"
	case u.Read != nil:
		return "read"
	case u.Highlights != nil:
		return "highlights"
	}
	return ""
}

// Store is the reading record store.
type Store interface {
	Fetch(ctx context.Context, key Key) (*entities.ReadingRecord, error)
	Create(ctx context.Context, key Key, defaults entities.ReadingRecord) (*entities.ReadingRecord, error)
	Update(ctx context.Context, key Key, update Update) error
	ListForUser(ctx context.Context, userID string) ([]entities.ReadingRecord, error)
}

// HighlightPatcher applies single-highlight changes without replacing the
// whole list, so concurrent sessions editing different highlights don't
// overwrite each other.
type HighlightPatcher interface {
	AppendHighlight(ctx context.Context, key Key, h entities.Highlight) error
	DeleteHighlight(ctx context.Context, key Key, highlightID string) error
	SetHighlightNote(ctx context.Context, key Key, highlightID, note string) error
}

// FetchOrCreate loads the record for key, creating it with defaults on first
// access. Errors other than ErrNotFound are returned unchanged.
func FetchOrCreate(ctx context.Context, store Store, key Key) (*entities.ReadingRecord, bool, error) {
	rec, err := store.Fetch(ctx, key)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	rec, err = store.Create(ctx, key, entities.NewReadingRecord(key.UserID, key.BookID))
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}
