// Package catalog serves the book catalog merged with each user's reading
// state.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mrlokans/shelf/internal/entities"
	applog "github.com/mrlokans/shelf/internal/logger"
	"github.com/mrlokans/shelf/internal/records"
	"github.com/mrlokans/shelf/internal/utils"
)

var ErrBookNotFound = errors.New("book not found")

const booksCacheKey = "catalog:books"

// BookSource lists the catalog.
type BookSource interface {
	ListBooks(ctx context.Context) ([]entities.Book, error)
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder accepts "asc", "desc" or empty (asc).
func ParseSortOrder(raw string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return "", fmt.Errorf("invalid sort order %q", raw)
}

// Filter narrows a catalog listing. Zero value lists everything by title.
type Filter struct {
	Search   string    // case-insensitive substring of title or author
	Category string    // exact match
	ReadOnly bool      // only books the user marked read
	Sort     SortOrder // by title; empty means asc
}

// Entry is a book as one user sees it.
type Entry struct {
	entities.Book
	Read bool `json:"read"`
}

// Service lists books from a BookSource, cached for ttl.
type Service struct {
	source  BookSource
	records records.Store
	cache   *cache.Cache
	log     *logrus.Entry

	folder   cases.Caser
	folderMu sync.Mutex
}

// NewService creates a catalog service. A ttl of zero or less disables
// caching.
func NewService(source BookSource, store records.Store, ttl time.Duration) *Service {
	s := &Service{
		source:  source,
		records: store,
		log:     applog.WithComponent("catalog"),
		folder:  cases.Fold(),
	}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// List returns the catalog for userID with filter applied.
func (s *Service) List(ctx context.Context, userID string, filter Filter) ([]Entry, error) {
	books, err := s.books(ctx)
	if err != nil {
		return nil, err
	}

	read := map[string]bool{}
	if userID != "" {
		recs, err := s.records.ListForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load reading records: %w", err)
		}
		for _, rec := range recs {
			read[rec.BookID] = rec.Read
		}
	}

	term := s.fold(utils.NormalizeWhitespace(filter.Search))
	out := make([]Entry, 0, len(books))
	for _, b := range books {
		if term != "" && !strings.Contains(s.fold(b.Title), term) && !strings.Contains(s.fold(b.Author), term) {
			continue
		}
		if filter.Category != "" && b.Category != filter.Category {
			continue
		}
		if filter.ReadOnly && !read[b.ID] {
			continue
		}
		out = append(out, Entry{Book: b, Read: read[b.ID]})
	}

	col := collate.New(language.Und, collate.IgnoreCase)
	desc := filter.Sort == SortDesc
	slices.SortStableFunc(out, func(a, b Entry) int {
		c := col.CompareString(a.Title, b.Title)
		if desc {
			return -c
		}
		return c
	})
	return out, nil
}

// Categories returns the distinct non-empty categories in catalog order.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	books, err := s.books(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, b := range books {
		if b.Category == "" || seen[b.Category] {
			continue
		}
		seen[b.Category] = true
		out = append(out, b.Category)
	}
	return out, nil
}

// Get returns one book.
func (s *Service) Get(ctx context.Context, id string) (*entities.Book, error) {
	books, err := s.books(ctx)
	if err != nil {
		return nil, err
	}
	for i := range books {
		if books[i].ID == id {
			b := books[i]
			return &b, nil
		}
	}
	return nil, ErrBookNotFound
}

// Invalidate drops the cached catalog.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Delete(booksCacheKey)
	}
}

func (s *Service) books(ctx context.Context) ([]entities.Book, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(booksCacheKey); ok {
			return cached.([]entities.Book), nil
		}
	}

	books, err := s.source.ListBooks(ctx)
	if err != nil {
		s.log.WithError(err).Error("Failed to load catalog")
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(booksCacheKey, books, cache.DefaultExpiration)
	}
	return books, nil
}

// fold case-folds s. cases.Caser is not safe for concurrent use.
func (s *Service) fold(v string) string {
	s.folderMu.Lock()
	defer s.folderMu.Unlock()
	return s.folder.String(v)
}
