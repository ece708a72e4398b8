// Package books provides database operations for the local catalog.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	all, err := repo.ListBooks(ctx)
package books

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/shelf/internal/entities"
)

// Repository handles catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListBooks returns the whole catalog ordered by creation time.
func (r *Repository) ListBooks(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// UpsertBook inserts a book or, when a book with the same id (or the same
// title and author if no id is given) exists, overwrites its fields.
func (r *Repository) UpsertBook(ctx context.Context, book *entities.Book) error {
	db := r.db.WithContext(ctx)

	if book.ID == "" {
		var existing entities.Book
		err := db.Where("title = ? AND author = ?", book.Title, book.Author).First(&existing).Error
		switch {
		case err == nil:
			book.ID = existing.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("look up book: %w", err)
		}
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "author", "category", "url", "img_url", "kind", "page_count"}),
	}).Create(book).Error
	if err != nil {
		return fmt.Errorf("upsert book %q: %w", book.Title, err)
	}
	return nil
}

// CountBooks returns the catalog size.
func (r *Repository) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&count).Error
	return count, err
}
