package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookRequestStatus string

const (
	BookRequestPending BookRequestStatus = "pending"
	BookRequestSent    BookRequestStatus = "sent"
	BookRequestFailed  BookRequestStatus = "failed"
)

// BookRequest is a user's ask for a title missing from the catalog.
type BookRequest struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	UserID    string            `gorm:"index;size:64" json:"user_id"`
	Name      string            `gorm:"size:200" json:"name"`
	Email     string            `gorm:"size:255" json:"email"`
	BookTitle string            `gorm:"size:512" json:"book_title"`
	Reason    string            `gorm:"type:text" json:"reason"`
	Status    BookRequestStatus `gorm:"index;size:10;default:'pending'" json:"status"`
	Attempts  int               `gorm:"default:0" json:"attempts"`
	LastError string            `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	SentAt    *time.Time        `json:"sent_at,omitempty"`

	// DeliveryTaskID is set on submit when delivery was queued; it is the id
	// accepted by GET /api/tasks/:id.
	DeliveryTaskID string `gorm:"-" json:"delivery_task_id,omitempty"`
}

func (BookRequest) TableName() string {
	return "book_requests"
}

func (r *BookRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = BookRequestPending
	}
	return nil
}
