package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/utils"
)

var ErrSeedUnsupported = errors.New("catalog source is read-only")

// BookWriter is implemented by sources that accept new books.
type BookWriter interface {
	UpsertBook(ctx context.Context, book *entities.Book) error
}

// SeedFile is the YAML layout accepted by Seed:
//
//	books:
//	  - title: Dune
//	    author: Frank Herbert
//	    category: Sci-Fi
//	    url: https://cdn.example.com/dune.pdf
//	    img_url: https://cdn.example.com/dune.jpg
type SeedFile struct {
	Books []entities.Book `yaml:"books"`
}

// Seed upserts every book in the YAML document read from r and returns how
// many were written. Books without a title or url are rejected before
// anything is written.
func (s *Service) Seed(ctx context.Context, r io.Reader) (int, error) {
	writer, ok := s.source.(BookWriter)
	if !ok {
		return 0, ErrSeedUnsupported
	}

	var file SeedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("decode seed file: %w", err)
	}

	for i := range file.Books {
		b := &file.Books[i]
		b.Title = utils.NormalizeWhitespace(b.Title)
		b.Author = utils.NormalizeWhitespace(b.Author)
		b.Category = strings.TrimSpace(b.Category)
		b.URL = strings.TrimSpace(b.URL)
		if b.Title == "" || b.URL == "" {
			return 0, fmt.Errorf("seed entry %d: title and url are required", i+1)
		}
		if b.Kind == "" && utils.IsVideoURL(b.URL) {
			b.Kind = entities.BookKindVideo
		}
		if b.Kind != "" && b.Kind != entities.BookKindBook && b.Kind != entities.BookKindVideo {
			return 0, fmt.Errorf("seed entry %d: unknown kind %q", i+1, b.Kind)
		}
	}

	for i := range file.Books {
		if err := writer.UpsertBook(ctx, &file.Books[i]); err != nil {
			s.Invalidate()
			return i, err
		}
	}
	s.Invalidate()
	s.log.WithField("count", len(file.Books)).Info("Seeded catalog")
	return len(file.Books), nil
}
