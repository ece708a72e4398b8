package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookKind string

const (
	BookKindBook  BookKind = "book"
	BookKindVideo BookKind = "video"
)

// Default values for a freshly created reading record.
const (
	DefaultPage = 1
)

type Book struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Title     string    `gorm:"index;size:512" json:"title" yaml:"title"`
	Author    string    `gorm:"index;size:256" json:"author" yaml:"author"`
	Category  string    `gorm:"index;size:100" json:"category" yaml:"category"`
	URL       string    `gorm:"size:2048" json:"url" yaml:"url"`
	ImgURL    string    `gorm:"size:2048" json:"img_url" yaml:"img_url"`
	Kind      BookKind  `gorm:"size:10;default:'book'" json:"kind" yaml:"kind"`
	PageCount int       `json:"page_count,omitempty" yaml:"page_count"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

func (Book) TableName() string {
	return "books"
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Kind == "" {
		b.Kind = BookKindBook
	}
	return nil
}

// Position is a page-relative bounding box in viewport pixels.
type Position struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scaled returns the box multiplied by factor.
func (p Position) Scaled(factor float64) Position {
	return Position{
		Top:    p.Top * factor,
		Left:   p.Left * factor,
		Width:  p.Width * factor,
		Height: p.Height * factor,
	}
}

// Highlight is stored inside ReadingRecord.Highlights as JSON, so the field
// names match what browser clients already write to the user_books table.
type Highlight struct {
	ID         string    `json:"id"`
	PageNumber int       `json:"pageNumber"`
	Text       string    `json:"text"`
	Position   Position  `json:"position"`
	Color      string    `json:"color"`
	Note       string    `json:"note"`
	Scale      float64   `json:"scale,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// ReadingRecord is the per-user, per-book reading state.
type ReadingRecord struct {
	ID         string      `gorm:"primaryKey;size:36" json:"id"`
	UserID     string      `gorm:"uniqueIndex:idx_user_book;size:64" json:"user_id"`
	BookID     string      `gorm:"uniqueIndex:idx_user_book;size:36" json:"book_id"`
	Page       int         `gorm:"default:1" json:"page"`
	Read       bool        `gorm:"default:false" json:"read"`
	Highlights []Highlight `gorm:"serializer:json;type:text" json:"highlights"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (ReadingRecord) TableName() string {
	return "user_books"
}

func (r *ReadingRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Highlights == nil {
		r.Highlights = []Highlight{}
	}
	return nil
}

// NewReadingRecord returns the defaults used on a user's first visit to a book.
func NewReadingRecord(userID, bookID string) ReadingRecord {
	return ReadingRecord{
		UserID:     userID,
		BookID:     bookID,
		Page:       DefaultPage,
		Read:       false,
		Highlights: []Highlight{},
	}
}
