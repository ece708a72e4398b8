// Package records provides the local (SQLite) reading record store.
//
// # Interface Implementation
//
//	var _ records.Store = (*Repository)(nil)
//	var _ records.HighlightPatcher = (*Repository)(nil)
//
// # Usage
//
//	repo := records.NewRepository(db.DB)
//	rec, err := repo.Fetch(ctx, records.Key{UserID: uid, BookID: bid})
package records

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/records"
)

var (
	_ records.Store            = (*Repository)(nil)
	_ records.HighlightPatcher = (*Repository)(nil)
)

// Repository handles reading record persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reading record repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func scoped(db *gorm.DB, key records.Key) *gorm.DB {
	return db.Where("user_id = ? AND book_id = ?", key.UserID, key.BookID)
}

// Fetch returns records.ErrNotFound when the user has never opened the book.
func (r *Repository) Fetch(ctx context.Context, key records.Key) (*entities.ReadingRecord, error) {
	var rec entities.ReadingRecord
	err := scoped(r.db.WithContext(ctx), key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, records.ErrNotFound
		}
		return nil, fmt.Errorf("fetch reading record: %w", err)
	}
	if rec.Highlights == nil {
		rec.Highlights = []entities.Highlight{}
	}
	return &rec, nil
}

// Create inserts the record built from defaults, keyed by key.
func (r *Repository) Create(ctx context.Context, key records.Key, defaults entities.ReadingRecord) (*entities.ReadingRecord, error) {
	rec := defaults
	rec.ID = ""
	rec.UserID = key.UserID
	rec.BookID = key.BookID
	if rec.Page < 1 {
		rec.Page = entities.DefaultPage
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("create reading record: %w", err)
	}
	return &rec, nil
}

// Update applies a single-field update.
func (r *Repository) Update(ctx context.Context, key records.Key, update records.Update) error {
	if err := update.Validate(); err != nil {
		return err
	}

	model := &entities.ReadingRecord{}
	tx := scoped(r.db.WithContext(ctx).Model(model), key)

	var result *gorm.DB
	switch {
	case update.Page != nil:
		result = tx.Update("page", *update.Page)
	case update.Read != nil:
		result = tx.Update("read", *update.Read)
	default:
		// Select+Updates with a struct runs the JSON serializer on the column.
		result = tx.Select("highlights").Updates(&entities.ReadingRecord{Highlights: *update.Highlights})
	}
	if result.Error != nil {
		return fmt.Errorf("update reading record %s: %w", update.Column(), result.Error)
	}
	if result.RowsAffected == 0 {
		return records.ErrNotFound
	}
	return nil
}

// ListForUser returns every reading record the user has.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]entities.ReadingRecord, error) {
	var recs []entities.ReadingRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list reading records: %w", err)
	}
	return recs, nil
}

// AppendHighlight adds h to the stored list inside a transaction. SQLite
// serializes writers, so a concurrent append from another session is read
// before this one writes.
func (r *Repository) AppendHighlight(ctx context.Context, key records.Key, h entities.Highlight) error {
	return r.patch(ctx, key, func(list []entities.Highlight) []entities.Highlight {
		for _, existing := range list {
			if existing.ID == h.ID {
				return list
			}
		}
		return append(list, h)
	})
}

// DeleteHighlight removes the highlight with the given id; a missing id is not an error.
func (r *Repository) DeleteHighlight(ctx context.Context, key records.Key, highlightID string) error {
	return r.patch(ctx, key, func(list []entities.Highlight) []entities.Highlight {
		out := make([]entities.Highlight, 0, len(list))
		for _, h := range list {
			if h.ID != highlightID {
				out = append(out, h)
			}
		}
		return out
	})
}

// SetHighlightNote replaces the note of one highlight.
func (r *Repository) SetHighlightNote(ctx context.Context, key records.Key, highlightID, note string) error {
	return r.patch(ctx, key, func(list []entities.Highlight) []entities.Highlight {
		for i := range list {
			if list[i].ID == highlightID {
				list[i].Note = note
			}
		}
		return list
	})
}

func (r *Repository) patch(ctx context.Context, key records.Key, fn func([]entities.Highlight) []entities.Highlight) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec entities.ReadingRecord
		if err := scoped(tx, key).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return records.ErrNotFound
			}
			return fmt.Errorf("load highlights: %w", err)
		}

		list := fn(rec.Highlights)
		if list == nil {
			list = []entities.Highlight{}
		}

		err := tx.Model(&rec).Select("highlights").Updates(&entities.ReadingRecord{Highlights: list}).Error
		if err != nil {
			return fmt.Errorf("save highlights: %w", err)
		}
		return nil
	})
}
