package supabase

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelf/internal/entities"
)

func TestBookSource_ListBooks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "title", "author", "category", "url", "img_url", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM books ORDER BY created_at ASC").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("b1", "Dune", "Frank Herbert", "Sci-Fi", "https://cdn.example.com/dune.pdf", "https://cdn.example.com/dune.jpg", createdTime).
			AddRow("b2", "Intro to Go", "", "Talks", "https://cdn.example.com/intro.mp4", "", createdTime))

	books, err := NewBookSource(db).ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)

	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, entities.BookKindBook, books[0].Kind)
	assert.Equal(t, "https://cdn.example.com/dune.jpg", books[0].ImgURL)
	assert.Equal(t, entities.BookKindVideo, books[1].Kind)

	assert.NoError(t, mock.ExpectationsWereMet())
}
