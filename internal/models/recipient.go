package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Recipient represents a person who must acknowledge every document in a batch.
// Email is stored lower-cased and is unique within a batch. Roster removals
// are hard deletes: a tombstone would keep occupying the unique index slot
// and block re-adding the same address.
type Recipient struct {
	ID         uint      `gorm:"column:id;primaryKey" json:"id"`
	BatchID    uint      `gorm:"column:batch_id;uniqueIndex:idx_recipient_batch_email;not null" json:"batch_id"`
	Email      string    `gorm:"column:email;size:255;uniqueIndex:idx_recipient_batch_email;not null" json:"email"`
	FullName   string    `gorm:"column:full_name;size:255" json:"full_name"`
	BusinessID *uint     `gorm:"column:business_id;index" json:"business_id"`
	Department string    `gorm:"column:department;size:255" json:"department"`
	JobTitle   string    `gorm:"column:job_title;size:255" json:"job_title"`
	Location   string    `gorm:"column:location;size:255" json:"location"`
	GroupName  string    `gorm:"column:group_name;size:255" json:"group_name"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Recipient) TableName() string {
	return "recipients"
}

// BeforeSave normalizes the email so the per-batch uniqueness holds
// regardless of submitted casing
func (r *Recipient) BeforeSave(tx *gorm.DB) error {
	r.Email = NormalizeEmail(r.Email)
	return nil
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Business represents a business unit used to enrich completion reports
type Business struct {
	ID        uint           `gorm:"column:id;primaryKey" json:"id"`
	Name      string         `gorm:"column:name;size:255;not null" json:"name"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Business) TableName() string {
	return "businesses"
}
