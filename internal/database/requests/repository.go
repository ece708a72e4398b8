// Package requests stores book requests and their delivery state.
package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/entities"
)

var ErrNotFound = errors.New("book request not found")

// Repository handles book request persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new book request repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, req *entities.BookRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("create book request: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*entities.BookRequest, error) {
	var req entities.BookRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book request: %w", err)
	}
	return &req, nil
}

// ListForUser returns the user's requests, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]entities.BookRequest, error) {
	var out []entities.BookRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list book requests: %w", err)
	}
	return out, nil
}

// MarkSent records a successful delivery attempt.
func (r *Repository) MarkSent(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":     entities.BookRequestSent,
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": "",
		"sent_at":    at,
	})
}

// MarkFailed records a failed delivery attempt.
func (r *Repository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.update(ctx, id, map[string]any{
		"status":     entities.BookRequestFailed,
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": reason,
	})
}

func (r *Repository) update(ctx context.Context, id string, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&entities.BookRequest{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update book request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRetryable returns undelivered requests untouched since staleBefore that
// still have attempts left, oldest first.
func (r *Repository) ListRetryable(ctx context.Context, maxAttempts int, staleBefore time.Time) ([]entities.BookRequest, error) {
	var out []entities.BookRequest
	err := r.db.WithContext(ctx).
		Where("status IN ?", []entities.BookRequestStatus{entities.BookRequestPending, entities.BookRequestFailed}).
		Where("attempts < ?", maxAttempts).
		Where("updated_at < ?", staleBefore).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list retryable book requests: %w", err)
	}
	return out, nil
}

// DeleteSentBefore removes delivered requests sent before cutoff.
func (r *Repository) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND sent_at < ?", entities.BookRequestSent, cutoff).
		Delete(&entities.BookRequest{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete sent book requests: %w", result.Error)
	}
	return result.RowsAffected, nil
}
