package handlers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
)

type recipientCreateResponse struct {
	Data struct {
		Added   []models.Recipient `json:"added"`
		Skipped []string           `json:"skipped"`
	} `json:"data"`
}

func newRecipientApp() *fiber.App {
	h := NewRecipientHandler()
	app := fiber.New()
	app.Post("/batches/:batchId/recipients", h.Create)
	app.Delete("/recipients/:id", h.Delete)
	return app
}

func TestRecipientReAddAfterDelete(t *testing.T) {
	setupTestDB(t)

	batch := models.Batch{Name: "Policies", Status: models.BatchStatusInactive}
	require.NoError(t, database.DB.Create(&batch).Error)
	require.NoError(t, database.DB.Create(&models.Recipient{BatchID: batch.ID, Email: "jo@example.com"}).Error)

	app := newRecipientApp()

	var rec models.Recipient
	require.NoError(t, database.DB.Where("batch_id = ? AND email = ?", batch.ID, "jo@example.com").First(&rec).Error)

	resp, err := app.Test(httptest.NewRequest("DELETE", fmt.Sprintf("/recipients/%d", rec.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The roster slot is free again: the same address re-adds cleanly
	req := httptest.NewRequest("POST", fmt.Sprintf("/batches/%d/recipients", batch.ID),
		strings.NewReader(`{"email":"jo@example.com","full_name":"Jo Smith"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out recipientCreateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Data.Added, 1)
	assert.Equal(t, "jo@example.com", out.Data.Added[0].Email)
	assert.Empty(t, out.Data.Skipped)

	var count int64
	database.DB.Model(&models.Recipient{}).Where("batch_id = ? AND email = ?", batch.ID, "jo@example.com").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRecipientDuplicateAddSkipped(t *testing.T) {
	setupTestDB(t)

	batch := models.Batch{Name: "Policies", Status: models.BatchStatusInactive}
	require.NoError(t, database.DB.Create(&batch).Error)
	require.NoError(t, database.DB.Create(&models.Recipient{BatchID: batch.ID, Email: "jo@example.com"}).Error)

	app := newRecipientApp()

	req := httptest.NewRequest("POST", fmt.Sprintf("/batches/%d/recipients", batch.ID),
		strings.NewReader(`{"email":"JO@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out recipientCreateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Empty(t, out.Data.Added)
	assert.Equal(t, []string{"jo@example.com"}, out.Data.Skipped)
}
