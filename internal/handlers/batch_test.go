package handlers

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
)

func TestBatchDeleteCascades(t *testing.T) {
	setupTestDB(t)

	batch := models.Batch{Name: "Policies", Status: models.BatchStatusActive}
	require.NoError(t, database.DB.Create(&batch).Error)
	doc := models.Document{BatchID: batch.ID, Title: "Handbook", URL: "https://example.com/handbook.pdf"}
	require.NoError(t, database.DB.Create(&doc).Error)
	require.NoError(t, database.DB.Create(&models.Recipient{BatchID: batch.ID, Email: "jo@example.com"}).Error)
	require.NoError(t, database.DB.Create(&models.Acknowledgement{
		BatchID:        batch.ID,
		DocumentID:     doc.ID,
		Email:          "jo@example.com",
		Acknowledged:   true,
		AcknowledgedAt: time.Now(),
	}).Error)
	require.NoError(t, database.DB.Create(&models.NotificationMilestone{
		BatchID: batch.ID,
		Email:   "jo@example.com",
		Kind:    models.MilestoneUserCompleted,
		Status:  models.MilestoneNotified,
	}).Error)

	h := NewBatchHandler()
	app := fiber.New()
	app.Delete("/batches/:id", h.Delete)

	resp, err := app.Test(httptest.NewRequest("DELETE", fmt.Sprintf("/batches/%d", batch.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Nothing belonging to the batch survives, so global stats stay honest
	for name, entity := range map[string]interface{}{
		"documents":        &models.Document{},
		"recipients":       &models.Recipient{},
		"acknowledgements": &models.Acknowledgement{},
		"milestones":       &models.NotificationMilestone{},
	} {
		var count int64
		database.DB.Model(entity).Where("batch_id = ?", batch.ID).Count(&count)
		assert.Zero(t, count, "%s should be gone", name)
	}

	var gone models.Batch
	assert.Error(t, database.DB.First(&gone, batch.ID).Error)
}
