package services

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
)

// DueReminderService nudges recipients who have not finished a batch that is
// approaching its due date. Runs once per day at the configured reminder
// send time (default 08:00).
type DueReminderService struct {
	stopChan  chan struct{}
	wg        sync.WaitGroup
	lastRunAt time.Time
}

// NewDueReminderService creates a new due reminder service
func NewDueReminderService() *DueReminderService {
	return &DueReminderService{
		stopChan: make(chan struct{}),
	}
}

// Start begins the reminder scheduler
func (s *DueReminderService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Println("DueReminderService started")

		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkAndRun()
			case <-s.stopChan:
				log.Println("DueReminderService stopped")
				return
			}
		}
	}()
}

// Stop stops the due reminder service
func (s *DueReminderService) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

// getConfiguredTimezone reads the portal timezone from settings, UTC default
func getConfiguredTimezone() *time.Location {
	var pref models.SystemPreference
	if err := database.DB.Where("key = ?", "timezone").First(&pref).Error; err != nil {
		return time.UTC
	}

	loc, err := time.LoadLocation(pref.Value)
	if err != nil {
		return time.UTC
	}

	return loc
}

// getNow returns current time in the configured timezone
func getNow() time.Time {
	return time.Now().In(getConfiguredTimezone())
}

// getReminderSendTime reads the configured reminder send time from settings.
// Defaults to 08:00.
func getReminderSendTime() (int, int) {
	var pref models.SystemPreference
	if err := database.DB.Where("key = ?", "reminder_send_time").First(&pref).Error; err != nil {
		return 8, 0
	}

	parts := strings.Split(pref.Value, ":")
	if len(parts) != 2 {
		return 8, 0
	}

	var hour, minute int
	if _, err := fmt.Sscanf(parts[0], "%d", &hour); err != nil {
		return 8, 0
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &minute); err != nil {
		return 8, 0
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 8, 0
	}

	return hour, minute
}

// checkAndRun fires the reminder sweep once per day at the configured time
func (s *DueReminderService) checkAndRun() {
	now := getNow()
	sendHour, sendMinute := getReminderSendTime()

	if now.Hour() != sendHour || now.Minute() != sendMinute {
		return
	}

	// Prevent double-firing within the same minute
	todayRun := time.Date(now.Year(), now.Month(), now.Day(), sendHour, sendMinute, 0, 0, now.Location())
	if !s.lastRunAt.IsZero() && s.lastRunAt.After(todayRun.Add(-1*time.Minute)) {
		return
	}
	s.lastRunAt = now

	log.Printf("DueReminderService: Running at %02d:%02d", sendHour, sendMinute)
	s.remindDueBatches(now)
}

// remindDueBatches finds active batches whose due date is exactly the
// configured number of days ahead and reminds every recipient who still has
// unacknowledged documents
func (s *DueReminderService) remindDueBatches(now time.Time) {
	daysAhead := getSettingInt("reminder_days_before", 3)
	if daysAhead < 0 {
		daysAhead = 3
	}

	targetDate := now.AddDate(0, 0, daysAhead)
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	var batches []models.Batch
	if err := database.DB.
		Where("status = ? AND due_date >= ? AND due_date < ?",
			models.BatchStatusActive, startOfDay, endOfDay).
		Find(&batches).Error; err != nil {
		log.Printf("DueReminder: Failed to query due batches: %v", err)
		return
	}

	if len(batches) == 0 {
		return
	}

	completion := NewCompletionService()
	pipeline := NewCompletionPipeline()

	for i := range batches {
		batch := &batches[i]

		if s.reminderAlreadySent(batch.ID, now) {
			log.Printf("DueReminder[%s]: Skipping, already sent today", batch.Name)
			continue
		}

		var recipients []models.Recipient
		if err := database.DB.Where("batch_id = ?", batch.ID).Find(&recipients).Error; err != nil {
			log.Printf("DueReminder[%s]: Failed to load recipients: %v", batch.Name, err)
			continue
		}

		var pending []string
		for _, email := range UniqueEmails(recipients) {
			done, err := completion.UserCompleted(batch.ID, email)
			if err != nil {
				log.Printf("DueReminder[%s]: Completion check for %s: %v", batch.Name, email, err)
				continue
			}
			if !done {
				pending = append(pending, email)
			}
		}

		if len(pending) == 0 {
			continue
		}

		log.Printf("DueReminder[%s]: Reminding %d recipients (due in %d days)", batch.Name, len(pending), daysAhead)

		subject, body := NewComposer().Assignment(batch)
		subject = "Reminder: " + subject
		result := pipeline.dispatcher.Dispatch(pending, subject, body, nil, DispatchOptions{
			BatchID: &batch.ID,
			Kind:    "due_reminder",
		})
		if result.Failed > 0 {
			log.Printf("DueReminder[%s]: %d of %d messages failed", batch.Name, result.Failed, result.Sent+result.Failed)
		}
	}
}

// reminderAlreadySent returns true if a reminder for this batch already went
// out today, based on the delivery log
func (s *DueReminderService) reminderAlreadySent(batchID uint, now time.Time) bool {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var count int64
	database.DB.Model(&models.DeliveryLog{}).
		Where("batch_id = ? AND kind = ? AND created_at >= ?", batchID, "due_reminder", startOfDay).
		Count(&count)
	return count > 0
}
