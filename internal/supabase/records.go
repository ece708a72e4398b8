package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/records"
)

var (
	_ records.Store            = (*RecordStore)(nil)
	_ records.HighlightPatcher = (*RecordStore)(nil)
)

const (
	selectRecordSQL = `SELECT id, user_id, book_id, COALESCE(page, 1), COALESCE(read, false), COALESCE(highlights, '[]'::jsonb), created_at
		FROM user_books WHERE user_id = $1 AND book_id = $2 LIMIT 1`

	listRecordsSQL = `SELECT id, user_id, book_id, COALESCE(page, 1), COALESCE(read, false), COALESCE(highlights, '[]'::jsonb), created_at
		FROM user_books WHERE user_id = $1 ORDER BY created_at DESC`

	insertRecordSQL = `INSERT INTO user_books (user_id, book_id, page, read, highlights)
		VALUES ($1, $2, $3, $4, $5::jsonb) RETURNING id, created_at`

	updatePageSQL       = `UPDATE user_books SET page = $1 WHERE user_id = $2 AND book_id = $3`
	updateReadSQL       = `UPDATE user_books SET read = $1 WHERE user_id = $2 AND book_id = $3`
	updateHighlightsSQL = `UPDATE user_books SET highlights = $1::jsonb WHERE user_id = $2 AND book_id = $3`

	recordExistsSQL = `SELECT EXISTS(SELECT 1 FROM user_books WHERE user_id = $1 AND book_id = $2)`

	// Appends unless an element with the same id is already present.
	appendHighlightSQL = `UPDATE user_books
		SET highlights = COALESCE(highlights, '[]'::jsonb) || jsonb_build_array($1::jsonb)
		WHERE user_id = $2 AND book_id = $3
		AND NOT COALESCE(highlights, '[]'::jsonb) @> jsonb_build_array(jsonb_build_object('id', $4::text))`

	// Rebuilds the array without the element, keeping order.
	deleteHighlightSQL = `UPDATE user_books
		SET highlights = COALESCE((
			SELECT jsonb_agg(e.elem ORDER BY e.ord)
			FROM jsonb_array_elements(COALESCE(highlights, '[]'::jsonb)) WITH ORDINALITY AS e(elem, ord)
			WHERE e.elem->>'id' <> $1
		), '[]'::jsonb)
		WHERE user_id = $2 AND book_id = $3`

	// jsonb_set paths are zero-based, ORDINALITY is one-based.
	setHighlightNoteSQL = `UPDATE user_books
		SET highlights = jsonb_set(highlights, ARRAY[(t.ord - 1)::text, 'note'], to_jsonb($1::text))
		FROM (
			SELECT e.ord
			FROM user_books ub, jsonb_array_elements(ub.highlights) WITH ORDINALITY AS e(elem, ord)
			WHERE ub.user_id = $2 AND ub.book_id = $3 AND e.elem->>'id' = $4
			LIMIT 1
		) t
		WHERE user_id = $2 AND book_id = $3`
)

// RecordStore keeps reading records in the Supabase user_books table.
type RecordStore struct {
	db *sql.DB
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*entities.ReadingRecord, error) {
	var (
		rec entities.ReadingRecord
		raw []byte
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.BookID, &rec.Page, &rec.Read, &raw, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &rec.Highlights); err != nil {
		return nil, fmt.Errorf("decode highlights: %w", err)
	}
	if rec.Highlights == nil {
		rec.Highlights = []entities.Highlight{}
	}
	rec.UpdatedAt = rec.CreatedAt
	return &rec, nil
}

func (s *RecordStore) Fetch(ctx context.Context, key records.Key) (*entities.ReadingRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectRecordSQL, key.UserID, key.BookID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, records.ErrNotFound
		}
		return nil, fmt.Errorf("fetch reading record: %w", err)
	}
	return rec, nil
}

func (s *RecordStore) Create(ctx context.Context, key records.Key, defaults entities.ReadingRecord) (*entities.ReadingRecord, error) {
	rec := defaults
	rec.UserID = key.UserID
	rec.BookID = key.BookID
	if rec.Page < entities.DefaultPage {
		rec.Page = entities.DefaultPage
	}
	if rec.Highlights == nil {
		rec.Highlights = []entities.Highlight{}
	}

	raw, err := json.Marshal(rec.Highlights)
	if err != nil {
		return nil, fmt.Errorf("encode highlights: %w", err)
	}
	err = s.db.QueryRowContext(ctx, insertRecordSQL, rec.UserID, rec.BookID, rec.Page, rec.Read, string(raw)).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create reading record: %w", err)
	}
	rec.UpdatedAt = rec.CreatedAt
	return &rec, nil
}

func (s *RecordStore) Update(ctx context.Context, key records.Key, update records.Update) error {
	if err := update.Validate(); err != nil {
		return err
	}

	var (
		query string
		value any
	)
	switch {
	case update.Page != nil:
		query, value = updatePageSQL, *update.Page
	case update.Read != nil:
		query, value = updateReadSQL, *update.Read
	default:
		raw, err := json.Marshal(*update.Highlights)
		if err != nil {
			return fmt.Errorf("encode highlights: %w", err)
		}
		query, value = updateHighlightsSQL, string(raw)
	}

	res, err := s.db.ExecContext(ctx, query, value, key.UserID, key.BookID)
	if err != nil {
		return fmt.Errorf("update reading record %s: %w", update.Column(), err)
	}
	return requireRow(res)
}

func (s *RecordStore) ListForUser(ctx context.Context, userID string) ([]entities.ReadingRecord, error) {
	rows, err := s.db.QueryContext(ctx, listRecordsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list reading records: %w", err)
	}
	defer rows.Close()

	var out []entities.ReadingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// AppendHighlight appends h in one statement. A highlight whose id is
// already stored is left alone.
func (s *RecordStore) AppendHighlight(ctx context.Context, key records.Key, h entities.Highlight) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode highlight: %w", err)
	}
	res, err := s.db.ExecContext(ctx, appendHighlightSQL, string(raw), key.UserID, key.BookID, h.ID)
	if err != nil {
		return fmt.Errorf("append highlight: %w", err)
	}
	return s.requireRowOrRecord(ctx, res, key)
}

// DeleteHighlight removes the highlight with the given id; a missing id is
// not an error.
func (s *RecordStore) DeleteHighlight(ctx context.Context, key records.Key, highlightID string) error {
	res, err := s.db.ExecContext(ctx, deleteHighlightSQL, highlightID, key.UserID, key.BookID)
	if err != nil {
		return fmt.Errorf("delete highlight: %w", err)
	}
	return requireRow(res)
}

// SetHighlightNote replaces one highlight's note in place.
func (s *RecordStore) SetHighlightNote(ctx context.Context, key records.Key, highlightID, note string) error {
	res, err := s.db.ExecContext(ctx, setHighlightNoteSQL, note, key.UserID, key.BookID, highlightID)
	if err != nil {
		return fmt.Errorf("set highlight note: %w", err)
	}
	return s.requireRowOrRecord(ctx, res, key)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return records.ErrNotFound
	}
	return nil
}

// requireRowOrRecord treats zero affected rows as success when the record
// exists, since the statement's own filter may have skipped it.
func (s *RecordStore) requireRowOrRecord(ctx context.Context, res sql.Result, key records.Key) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, recordExistsSQL, key.UserID, key.BookID).Scan(&exists); err != nil {
		return fmt.Errorf("check reading record: %w", err)
	}
	if !exists {
		return records.ErrNotFound
	}
	return nil
}
