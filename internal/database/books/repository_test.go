package books

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/entities"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewQuietDatabase(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB)
}

func TestRepository_UpsertAndGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	book := &entities.Book{Title: "Dune", Author: "Frank Herbert", Category: "Sci-Fi", URL: "https://example.com/dune.pdf"}
	require.NoError(t, repo.UpsertBook(ctx, book))
	require.NotEmpty(t, book.ID)
	assert.Equal(t, entities.BookKindBook, book.Kind)

	all, err := repo.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Dune", all[0].Title)

	t.Run("same title and author updates in place", func(t *testing.T) {
		again := &entities.Book{Title: "Dune", Author: "Frank Herbert", Category: "Classics", URL: "https://example.com/dune-v2.pdf"}
		require.NoError(t, repo.UpsertBook(ctx, again))
		assert.Equal(t, book.ID, again.ID)

		count, err := repo.CountBooks(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		all, err := repo.ListBooks(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, book.ID, all[0].ID)
		assert.Equal(t, "Classics", all[0].Category)
		assert.Equal(t, "https://example.com/dune-v2.pdf", all[0].URL)
	})
}

func TestRepository_ListBooks(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		require.NoError(t, repo.UpsertBook(ctx, &entities.Book{Title: title, Author: "X"}))
	}

	all, err := repo.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
