package handlers

import (
	"encoding/json"
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

func seedAck(t *testing.T, batchID, docID uint, email string) {
	t.Helper()
	require.NoError(t, database.DB.Create(&models.Acknowledgement{
		BatchID:        batchID,
		DocumentID:     docID,
		Email:          email,
		Acknowledged:   true,
		AcknowledgedAt: time.Now(),
	}).Error)
}

func TestAcknowledgedIDs(t *testing.T) {
	setupTestDB(t)

	batch := models.Batch{Name: "Policies", Status: models.BatchStatusActive}
	require.NoError(t, database.DB.Create(&batch).Error)
	var docIDs []uint
	for i := 0; i < 3; i++ {
		doc := models.Document{BatchID: batch.ID, Title: fmt.Sprintf("Doc %d", i+1), URL: "https://example.com/doc.pdf"}
		require.NoError(t, database.DB.Create(&doc).Error)
		docIDs = append(docIDs, doc.ID)
	}
	seedAck(t, batch.ID, docIDs[0], "jo@example.com")
	seedAck(t, batch.ID, docIDs[2], "jo@example.com")
	seedAck(t, batch.ID, docIDs[1], "other@example.com")

	h := NewAcknowledgementHandler()
	app := fiber.New()
	app.Get("/batches/:batchId/acks", h.AcknowledgedIDs)

	resp, err := app.Test(httptest.NewRequest("GET",
		fmt.Sprintf("/batches/%d/acks?email=Jo@Example.com", batch.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			IDs []uint `json:"ids"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []uint{docIDs[0], docIDs[2]}, out.Data.IDs)
}

func TestAcknowledgedIDsEmptyForStranger(t *testing.T) {
	setupTestDB(t)

	batch := models.Batch{Name: "Policies", Status: models.BatchStatusActive}
	require.NoError(t, database.DB.Create(&batch).Error)

	h := NewAcknowledgementHandler()
	app := fiber.New()
	app.Get("/batches/:batchId/acks", h.AcknowledgedIDs)

	resp, err := app.Test(httptest.NewRequest("GET",
		fmt.Sprintf("/batches/%d/acks?email=nobody@example.com", batch.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			IDs []uint `json:"ids"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotNil(t, out.Data.IDs)
	assert.Empty(t, out.Data.IDs)
}

func TestAcknowledgedIDsRequiresEmail(t *testing.T) {
	setupTestDB(t)

	batch := models.Batch{Name: "Policies", Status: models.BatchStatusActive}
	require.NoError(t, database.DB.Create(&batch).Error)

	h := NewAcknowledgementHandler()
	app := fiber.New()
	app.Get("/batches/:batchId/acks", h.AcknowledgedIDs)

	resp, err := app.Test(httptest.NewRequest("GET", fmt.Sprintf("/batches/%d/acks", batch.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
