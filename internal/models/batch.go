package models

import (
	"time"

	"gorm.io/gorm"
)

// BatchStatus represents the status of a batch
type BatchStatus string

const (
	BatchStatusActive   BatchStatus = "active"
	BatchStatusInactive BatchStatus = "inactive"
)

// Batch represents a named collection of documents assigned to a set of
// recipients with a due date
type Batch struct {
	ID          uint           `gorm:"column:id;primaryKey" json:"id"`
	Name        string         `gorm:"column:name;size:255;not null" json:"name"`
	Description string         `gorm:"column:description;type:text" json:"description"`
	StartDate   time.Time      `gorm:"column:start_date" json:"start_date"`
	DueDate     time.Time      `gorm:"column:due_date" json:"due_date"`
	Status      BatchStatus    `gorm:"column:status;size:20;default:active" json:"status"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`

	Documents  []Document  `gorm:"foreignKey:BatchID" json:"documents,omitempty"`
	Recipients []Recipient `gorm:"foreignKey:BatchID" json:"recipients,omitempty"`
}

func (Batch) TableName() string {
	return "batches"
}

// IsActive returns true if the batch accepts acknowledgements
func (b *Batch) IsActive() bool {
	return b.Status == BatchStatusActive
}

// IsOverdue returns true if the batch due date has passed
func (b *Batch) IsOverdue() bool {
	return !b.DueDate.IsZero() && time.Now().After(b.DueDate)
}

// Document represents a single document attached to a batch.
// Content is located by exactly one of: a library container/item pair,
// a direct URL, or a path on the backend host.
type Document struct {
	ID                uint           `gorm:"column:id;primaryKey" json:"id"`
	BatchID           uint           `gorm:"column:batch_id;not null;index" json:"batch_id"`
	Title             string         `gorm:"column:title;size:255;not null" json:"title"`
	Version           string         `gorm:"column:version;size:50" json:"version"`
	SignatureRequired bool           `gorm:"column:signature_required;default:false" json:"signature_required"`
	URL               string         `gorm:"column:url;size:1000" json:"url"`
	LibraryContainer  string         `gorm:"column:library_container;size:255" json:"library_container"`
	LibraryItem       string         `gorm:"column:library_item;size:255" json:"library_item"`
	LocalPath         string         `gorm:"column:local_path;size:500" json:"local_path"`
	ContentType       string         `gorm:"column:content_type;size:100" json:"content_type"`
	CreatedAt         time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Document) TableName() string {
	return "documents"
}

// FileName returns the best display name for the document content
func (d *Document) FileName() string {
	if d.LibraryItem != "" {
		return d.LibraryItem
	}
	if d.Title != "" {
		return d.Title
	}
	return "document"
}
