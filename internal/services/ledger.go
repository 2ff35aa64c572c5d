package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm/clause"

	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
)

// Ledger guards milestone notifications against duplicate dispatch. Claim
// must succeed exactly once per (batch, email) across concurrent callers;
// the winner composes and sends, then settles the claim with MarkNotified
// or MarkFailed. A failed milestone can be claimed again.
type Ledger interface {
	Claim(batchID uint, email string, kind models.MilestoneKind) (bool, error)
	MarkNotified(batchID uint, email string) error
	MarkFailed(batchID uint, email string) error
}

// MilestoneLedger implements Ledger on the notification_milestones table.
// The unique (batch_id, email) index is the source of truth; Redis SETNX is
// only a fast path that skips the insert attempt for recently claimed
// milestones.
type MilestoneLedger struct{}

func NewMilestoneLedger() *MilestoneLedger {
	return &MilestoneLedger{}
}

func milestoneGuardKey(batchID uint, email string) string {
	return fmt.Sprintf("%s%d:%s", database.CacheKeyMilestone, batchID, email)
}

// Claim attempts to take ownership of the milestone. Returns true when this
// caller won and should dispatch the notification.
func (l *MilestoneLedger) Claim(batchID uint, email string, kind models.MilestoneKind) (bool, error) {
	// Fast path: if another worker claimed this milestone moments ago the
	// guard key still exists and we skip the insert entirely. A Redis miss
	// or error falls through to the database constraint.
	won, err := database.CacheSetNX(milestoneGuardKey(batchID, email), string(kind), time.Hour)
	if err == nil && !won {
		if !l.claimableAfterFailure(batchID, email) {
			return false, nil
		}
	}

	row := models.NotificationMilestone{
		BatchID: batchID,
		Email:   email,
		Kind:    kind,
		Status:  models.MilestonePending,
	}
	result := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Row already exists. Re-claim is allowed only if the previous attempt
	// failed; the conditional update decides the race.
	return l.claimFailed(batchID, email), nil
}

// claimableAfterFailure reports whether the existing row is in failed state
func (l *MilestoneLedger) claimableAfterFailure(batchID uint, email string) bool {
	var count int64
	database.DB.Model(&models.NotificationMilestone{}).
		Where("batch_id = ? AND email = ? AND status = ?", batchID, email, models.MilestoneFailed).
		Count(&count)
	return count > 0
}

// claimFailed flips a failed milestone back to pending. The WHERE clause
// makes concurrent re-claims mutually exclusive.
func (l *MilestoneLedger) claimFailed(batchID uint, email string) bool {
	result := database.DB.Model(&models.NotificationMilestone{}).
		Where("batch_id = ? AND email = ? AND status = ?", batchID, email, models.MilestoneFailed).
		Update("status", models.MilestonePending)
	if result.Error != nil {
		log.Printf("Ledger: re-claim failed milestone batch=%d email=%s: %v", batchID, email, result.Error)
		return false
	}
	return result.RowsAffected > 0
}

// MarkNotified settles a claimed milestone as successfully notified
func (l *MilestoneLedger) MarkNotified(batchID uint, email string) error {
	now := time.Now()
	return database.DB.Model(&models.NotificationMilestone{}).
		Where("batch_id = ? AND email = ? AND status = ?", batchID, email, models.MilestonePending).
		Updates(map[string]interface{}{
			"status":      models.MilestoneNotified,
			"notified_at": &now,
		}).Error
}

// MarkFailed settles a claimed milestone as failed so a later
// acknowledgement can retry it
func (l *MilestoneLedger) MarkFailed(batchID uint, email string) error {
	// Drop the Redis guard so the retry path is not blocked for an hour
	database.CacheDelete(milestoneGuardKey(batchID, email))
	return database.DB.Model(&models.NotificationMilestone{}).
		Where("batch_id = ? AND email = ? AND status = ?", batchID, email, models.MilestonePending).
		Update("status", models.MilestoneFailed).Error
}
