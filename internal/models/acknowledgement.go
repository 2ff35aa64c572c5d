package models

import (
	"time"
)

// Acknowledgement records that a recipient has read a specific document in a
// specific batch. The (batch_id, document_id, email) triple is unique; a
// re-submission upserts instead of creating a second row.
type Acknowledgement struct {
	ID             uint      `gorm:"column:id;primaryKey" json:"id"`
	BatchID        uint      `gorm:"column:batch_id;uniqueIndex:idx_ack_triple;not null" json:"batch_id"`
	DocumentID     uint      `gorm:"column:document_id;uniqueIndex:idx_ack_triple;not null" json:"document_id"`
	Email          string    `gorm:"column:email;size:255;uniqueIndex:idx_ack_triple;not null" json:"email"`
	Acknowledged   bool      `gorm:"column:acknowledged;default:true" json:"acknowledged"`
	AcknowledgedAt time.Time `gorm:"column:acknowledged_at" json:"acknowledged_at"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Acknowledgement) TableName() string {
	return "acknowledgements"
}

// MilestoneKind distinguishes the two completion milestones
type MilestoneKind string

const (
	MilestoneUserCompleted  MilestoneKind = "user_completed"
	MilestoneBatchCompleted MilestoneKind = "batch_completed"
)

// MilestoneStatus tracks the forward-only notification state of a milestone
type MilestoneStatus string

const (
	MilestonePending  MilestoneStatus = "pending"
	MilestoneNotified MilestoneStatus = "notified"
	MilestoneFailed   MilestoneStatus = "failed"
)

// NotificationMilestone is the server-side idempotency ledger. One row per
// milestone, claimed via the unique (batch_id, email) index before any
// notification is composed. Email is empty for batch-level milestones, so
// concurrent detectors contend on a single constraint instead of racing
// independent local flags.
type NotificationMilestone struct {
	ID         uint            `gorm:"column:id;primaryKey" json:"id"`
	BatchID    uint            `gorm:"column:batch_id;uniqueIndex:idx_milestone_batch_email;not null" json:"batch_id"`
	Email      string          `gorm:"column:email;size:255;uniqueIndex:idx_milestone_batch_email;not null;default:''" json:"email"`
	Kind       MilestoneKind   `gorm:"column:kind;size:30;not null" json:"kind"`
	Status     MilestoneStatus `gorm:"column:status;size:20;not null;default:pending" json:"status"`
	NotifiedAt *time.Time      `gorm:"column:notified_at" json:"notified_at"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (NotificationMilestone) TableName() string {
	return "notification_milestones"
}

// DeliveryLog records one physical outbound message (one chunk), sent or
// failed, for auditing and reminder dedup
type DeliveryLog struct {
	ID             uint       `gorm:"column:id;primaryKey" json:"id"`
	MessageID      string     `gorm:"column:message_id;size:64;uniqueIndex" json:"message_id"`
	BatchID        *uint      `gorm:"column:batch_id;index" json:"batch_id"`
	Kind           string     `gorm:"column:kind;size:30" json:"kind"`
	Recipients     string     `gorm:"column:recipients;type:text" json:"recipients"`
	RecipientCount int        `gorm:"column:recipient_count" json:"recipient_count"`
	Subject        string     `gorm:"column:subject;size:500" json:"subject"`
	Part           int        `gorm:"column:part;default:1" json:"part"`
	PartCount      int        `gorm:"column:part_count;default:1" json:"part_count"`
	Attachments    int        `gorm:"column:attachments;default:0" json:"attachments"`
	Status         string     `gorm:"column:status;size:20;not null" json:"status"` // sent, failed
	ErrorMessage   string     `gorm:"column:error_message;type:text" json:"error_message"`
	SentAt         *time.Time `gorm:"column:sent_at" json:"sent_at"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (DeliveryLog) TableName() string {
	return "delivery_logs"
}
