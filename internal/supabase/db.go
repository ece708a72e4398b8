// Package supabase talks to the Supabase Postgres database directly with
// lib/pq. It provides the reading record store and the book catalog source
// used when STORE_BACKEND=supabase.
//
// Expected tables (created by the Supabase project, not by this service):
//
//	books(id uuid, title text, author text, category text, url text, img_url text, created_at timestamptz)
//	user_books(id uuid, user_id uuid, book_id uuid, page int, read bool, highlights jsonb, created_at timestamptz)
package supabase

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	applog "github.com/mrlokans/shelf/internal/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Connect opens the Postgres pool and waits until the database answers,
// retrying a few times.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	log := applog.WithComponent("supabase")

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			log.Info("Connected to Supabase database")
			return db, nil
		}
		log.WithError(err).WithField("attempt", attempt).Warn("Database connection failed, retrying")

		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	db.Close()
	return nil, fmt.Errorf("connect to supabase after %d attempts: %w", connectAttempts, err)
}
