// Package reader manages a user's reading session on one document: the
// lazily created reading record, page bookmarks, the read flag, and the
// highlight manager seeded from the record.
package reader

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/catalog"
	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/highlights"
	applog "github.com/mrlokans/shelf/internal/logger"
	"github.com/mrlokans/shelf/internal/records"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrFetchFailed  = errors.New("failed to fetch reading record")
)

// Books resolves catalog entries.
type Books interface {
	Get(ctx context.Context, id string) (*entities.Book, error)
}

// Session is an opened document with the caller's reading record.
type Session struct {
	Book    entities.Book          `json:"book"`
	Record  entities.ReadingRecord `json:"record"`
	Created bool                   `json:"created"`
}

// Service opens documents and updates reading records.
type Service struct {
	books   Books
	records records.Store
	cfg     config.Highlights
	log     *logrus.Entry
}

func NewService(books Books, store records.Store, cfg config.Highlights) *Service {
	return &Service{
		books:   books,
		records: store,
		cfg:     cfg,
		log:     applog.WithComponent("reader"),
	}
}

// Open loads the book and the caller's reading record, creating the record
// with defaults on first visit.
func (s *Service) Open(ctx context.Context, identity auth.Identity, bookID string) (*Session, error) {
	book, err := s.book(ctx, bookID)
	if err != nil {
		return nil, err
	}

	key := records.Key{UserID: identity.UserID, BookID: bookID}
	rec, created, err := records.FetchOrCreate(ctx, s.records, key)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id": identity.UserID,
			"book_id": bookID,
		}).Error("Failed to fetch reading record")
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if created {
		s.log.WithFields(logrus.Fields{"user_id": identity.UserID, "book_id": bookID}).Debug("Created reading record")
	}

	return &Session{Book: *book, Record: *rec, Created: created}, nil
}

// Bookmark stores page, clamped to the document, as the caller's current
// page and returns the stored value. A missing record is created.
func (s *Service) Bookmark(ctx context.Context, identity auth.Identity, bookID string, page int) (int, error) {
	book, err := s.book(ctx, bookID)
	if err != nil {
		return 0, err
	}
	page = ClampPage(page, book.PageCount)

	key := records.Key{UserID: identity.UserID, BookID: bookID}
	err = s.records.Update(ctx, key, records.PageUpdate(page))
	if errors.Is(err, records.ErrNotFound) {
		defaults := entities.NewReadingRecord(key.UserID, key.BookID)
		defaults.Page = page
		_, err = s.records.Create(ctx, key, defaults)
	}
	if err != nil {
		return 0, fmt.Errorf("bookmark page: %w", err)
	}
	return page, nil
}

// ToggleRead flips the read flag and returns the new value.
func (s *Service) ToggleRead(ctx context.Context, identity auth.Identity, bookID string) (bool, error) {
	if _, err := s.book(ctx, bookID); err != nil {
		return false, err
	}

	key := records.Key{UserID: identity.UserID, BookID: bookID}
	rec, _, err := records.FetchOrCreate(ctx, s.records, key)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	read := !rec.Read
	if err := s.records.Update(ctx, key, records.ReadUpdate(read)); err != nil {
		return false, fmt.Errorf("update read status: %w", err)
	}
	return read, nil
}

func (s *Service) book(ctx context.Context, bookID string) (*entities.Book, error) {
	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		if errors.Is(err, catalog.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("load book: %w", err)
	}
	return book, nil
}

// ManagerOptions carries the per-call collaborators of a highlight manager.
type ManagerOptions struct {
	Viewport highlights.Viewport
	Prompter highlights.NotePrompter
	Notifier highlights.Notifier
	Enabled  bool
	Color    string // empty uses the configured default
}

// Manager opens the document and returns a highlight manager seeded with
// the stored highlights, along with the session it was built from.
func (s *Service) Manager(ctx context.Context, identity auth.Identity, bookID string, opts ManagerOptions) (*highlights.Manager, *Session, error) {
	session, err := s.Open(ctx, identity, bookID)
	if err != nil {
		return nil, nil, err
	}

	color := opts.Color
	if color == "" {
		color = s.cfg.DefaultColor
	}
	mopts := []highlights.Option{
		highlights.WithHighlights(session.Record.Highlights),
		highlights.WithSyncMode(s.cfg.SyncMode),
		highlights.WithPersistTimeout(s.cfg.PersistTimeout),
		highlights.WithColor(color),
		highlights.WithEnabled(opts.Enabled),
	}
	if opts.Viewport != nil {
		mopts = append(mopts, highlights.WithViewport(opts.Viewport))
	}
	if opts.Prompter != nil {
		mopts = append(mopts, highlights.WithNotePrompter(opts.Prompter))
	}
	if opts.Notifier != nil {
		mopts = append(mopts, highlights.WithNotifier(opts.Notifier))
	}
	return highlights.NewManager(identity, bookID, s.records, mopts...), session, nil
}
