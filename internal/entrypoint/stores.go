package entrypoint

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/mrlokans/shelf/internal/catalog"
	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/books"
	dbrecords "github.com/mrlokans/shelf/internal/database/records"
	http_controllers "github.com/mrlokans/shelf/internal/http"
	"github.com/mrlokans/shelf/internal/records"
	"github.com/mrlokans/shelf/internal/supabase"
)

// Stores are the catalog source and reading record store for the
// configured backend.
type Stores struct {
	Books   catalog.BookSource
	Records records.Store
	Health  map[string]http_controllers.Pinger

	pg *sql.DB
}

// OpenStores selects the local SQLite tables or the Supabase Postgres
// tables according to cfg.Store.Backend.
func OpenStores(ctx context.Context, cfg *config.Config, db *database.Database) (*Stores, error) {
	st := &Stores{Health: map[string]http_controllers.Pinger{"database": db}}

	switch cfg.Store.Backend {
	case config.StoreBackendSupabase:
		pg, err := supabase.Connect(ctx, cfg.Store.SupabaseDSN)
		if err != nil {
			return nil, err
		}
		st.pg = pg
		st.Books = supabase.NewBookSource(pg)
		st.Records = supabase.NewRecordStore(pg)
		st.Health["supabase"] = pg
		log.Info("Using Supabase store")
	case config.StoreBackendLocal, "":
		st.Books = books.NewRepository(db.DB)
		st.Records = dbrecords.NewRepository(db.DB)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return st, nil
}

func (s *Stores) Close() {
	if s.pg != nil {
		if err := s.pg.Close(); err != nil {
			log.WithError(err).Warn("Error closing Supabase connection")
		}
	}
}

// SeedCatalogFile loads the YAML catalog at path into svc.
func SeedCatalogFile(ctx context.Context, svc *catalog.Service, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return svc.Seed(ctx, f)
}
