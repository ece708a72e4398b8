package supabase

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/utils"
)

const listBooksSQL = `SELECT id, title, COALESCE(author, ''), COALESCE(category, ''), COALESCE(url, ''), COALESCE(img_url, ''), created_at
	FROM books ORDER BY created_at ASC`

// BookSource reads the catalog from the Supabase books table.
type BookSource struct {
	db *sql.DB
}

func NewBookSource(db *sql.DB) *BookSource {
	return &BookSource{db: db}
}

// ListBooks returns every book. The table has no kind column, so videos are
// recognized by their file extension.
func (s *BookSource) ListBooks(ctx context.Context) ([]entities.Book, error) {
	rows, err := s.db.QueryContext(ctx, listBooksSQL)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var out []entities.Book
	for rows.Next() {
		var b entities.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.URL, &b.ImgURL, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		b.Kind = entities.BookKindBook
		if utils.IsVideoURL(b.URL) {
			b.Kind = entities.BookKindVideo
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
