package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/books"
	dbrecords "github.com/mrlokans/shelf/internal/database/records"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/records"
)

type countingSource struct {
	mu    sync.Mutex
	books []entities.Book
	calls int
	err   error
}

func (s *countingSource) ListBooks(context.Context) ([]entities.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.books, nil
}

type stubRecords struct {
	records.Store
	recs []entities.ReadingRecord
}

func (s stubRecords) ListForUser(context.Context, string) ([]entities.ReadingRecord, error) {
	return s.recs, nil
}

func sampleBooks() []entities.Book {
	return []entities.Book{
		{ID: "1", Title: "dune", Author: "Frank Herbert", Category: "Sci-Fi"},
		{ID: "2", Title: "Anathem", Author: "Neal Stephenson", Category: "Sci-Fi"},
		{ID: "3", Title: "Émile", Author: "Jean-Jacques Rousseau", Category: "Philosophy"},
		{ID: "4", Title: "Beowulf", Author: "Unknown", Category: "Poetry"},
		{ID: "5", Title: "Uncategorized Notes", Author: "Me"},
	}
}

func titles(entries []Entry) []string {
	out := []string{}
	for _, e := range entries {
		out = append(out, e.Title)
	}
	return out
}

func TestService_List(t *testing.T) {
	src := &countingSource{books: sampleBooks()}
	recs := stubRecords{recs: []entities.ReadingRecord{
		{UserID: "u", BookID: "1", Read: true},
		{UserID: "u", BookID: "4", Read: false},
	}}
	svc := NewService(src, recs, time.Minute)
	ctx := context.Background()

	t.Run("default sorts by title ascending ignoring case and accents", func(t *testing.T) {
		got, err := svc.List(ctx, "u", Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Anathem", "Beowulf", "dune", "Émile", "Uncategorized Notes"}, titles(got))
	})

	t.Run("descending", func(t *testing.T) {
		got, err := svc.List(ctx, "u", Filter{Sort: SortDesc})
		require.NoError(t, err)
		assert.Equal(t, []string{"Uncategorized Notes", "Émile", "dune", "Beowulf", "Anathem"}, titles(got))
	})

	t.Run("search matches title or author case-insensitively", func(t *testing.T) {
		got, err := svc.List(ctx, "u", Filter{Search: "  STEPHENSON "})
		require.NoError(t, err)
		assert.Equal(t, []string{"Anathem"}, titles(got))

		got, err = svc.List(ctx, "u", Filter{Search: "Dun"})
		require.NoError(t, err)
		assert.Equal(t, []string{"dune"}, titles(got))
	})

	t.Run("category", func(t *testing.T) {
		got, err := svc.List(ctx, "u", Filter{Category: "Sci-Fi"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Anathem", "dune"}, titles(got))
	})

	t.Run("read flag merged and filtered", func(t *testing.T) {
		got, err := svc.List(ctx, "u", Filter{})
		require.NoError(t, err)
		for _, e := range got {
			assert.Equal(t, e.ID == "1", e.Read, e.Title)
		}

		got, err = svc.List(ctx, "u", Filter{ReadOnly: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"dune"}, titles(got))
	})

	t.Run("catalog is cached", func(t *testing.T) {
		assert.Equal(t, 1, src.calls)
	})
}

func TestService_CacheDisabled(t *testing.T) {
	src := &countingSource{books: sampleBooks()}
	svc := NewService(src, stubRecords{}, 0)

	for i := 0; i < 3; i++ {
		_, err := svc.List(context.Background(), "", Filter{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, src.calls)
}

func TestService_SourceError(t *testing.T) {
	src := &countingSource{err: errors.New("db down")}
	svc := NewService(src, stubRecords{}, time.Minute)

	_, err := svc.List(context.Background(), "u", Filter{})
	assert.Error(t, err)
	_, err = svc.Get(context.Background(), "1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrBookNotFound)
}

func TestService_Categories(t *testing.T) {
	svc := NewService(&countingSource{books: sampleBooks()}, stubRecords{}, time.Minute)

	got, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Sci-Fi", "Philosophy", "Poetry"}, got)
}

func TestService_Get(t *testing.T) {
	svc := NewService(&countingSource{books: sampleBooks()}, stubRecords{}, time.Minute)

	b, err := svc.Get(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "Émile", b.Title)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestParseSortOrder(t *testing.T) {
	for raw, want := range map[string]SortOrder{"": SortAsc, "asc": SortAsc, "DESC": SortDesc} {
		got, err := ParseSortOrder(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSortOrder("sideways")
	assert.Error(t, err)
}

func setupSeedService(t *testing.T) (*Service, *books.Repository) {
	t.Helper()
	db, err := database.NewQuietDatabase(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := books.NewRepository(db.DB)
	return NewService(repo, dbrecords.NewRepository(db.DB), time.Minute), repo
}

func TestService_Seed(t *testing.T) {
	svc, _ := setupSeedService(t)
	ctx := context.Background()

	// Prime the cache so the test proves Seed invalidates it.
	got, err := svc.List(ctx, "", Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)

	doc := `
books:
  - title: "Dune"
    author: Frank   Herbert
    category: Sci-Fi
    url: https://cdn.example.com/dune.pdf
  - title: Intro to Go
    category: Talks
    url: https://cdn.example.com/intro.mp4
`
	n, err := svc.Seed(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err = svc.List(ctx, "", Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Dune", got[0].Title)
	assert.Equal(t, "Frank Herbert", got[0].Author)
	assert.Equal(t, entities.BookKindBook, got[0].Kind)
	assert.Equal(t, entities.BookKindVideo, got[1].Kind)

	t.Run("reseeding is idempotent", func(t *testing.T) {
		n, err := svc.Seed(ctx, strings.NewReader(doc))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := svc.List(ctx, "", Filter{})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestService_SeedValidation(t *testing.T) {
	svc, _ := setupSeedService(t)

	_, err := svc.Seed(context.Background(), strings.NewReader("books:\n  - title: No URL\n"))
	assert.Error(t, err)

	_, err = svc.Seed(context.Background(), strings.NewReader("books:\n  - title: X\n    url: http://x/y.pdf\n    kind: podcast\n"))
	assert.Error(t, err)

	got, err := svc.List(context.Background(), "", Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_SeedReadOnlySource(t *testing.T) {
	svc := NewService(&countingSource{}, stubRecords{}, time.Minute)

	_, err := svc.Seed(context.Background(), strings.NewReader("books: []"))
	assert.ErrorIs(t, err, ErrSeedUnsupported)
}
