package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
	"github.com/ackportal/backend/internal/services"
	"gorm.io/gorm/clause"
)

type AcknowledgementHandler struct {
	store    services.Store
	progress *services.ProgressService
	pipeline *services.CompletionPipeline
}

func NewAcknowledgementHandler() *AcknowledgementHandler {
	return &AcknowledgementHandler{
		store:    services.NewStore(),
		progress: services.NewProgressService(),
		pipeline: services.NewCompletionPipeline(),
	}
}

type ackRequest struct {
	BatchID    uint   `json:"batch_id"`
	DocumentID uint   `json:"document_id"`
	Email      string `json:"email"`
}

// Submit records an acknowledgement. Public route; idempotent, so double
// clicks and retries collapse into one row per (batch, document, email).
func (h *AcknowledgementHandler) Submit(c *fiber.Ctx) error {
	var req ackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	email := models.NormalizeEmail(req.Email)
	if req.BatchID == 0 || req.DocumentID == 0 || email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "batch_id, document_id and email are required",
		})
	}

	var batch models.Batch
	if err := database.DB.First(&batch, req.BatchID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Batch not found",
		})
	}

	if !batch.IsActive() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Batch is not accepting acknowledgements",
		})
	}

	var doc models.Document
	if err := database.DB.Where("id = ? AND batch_id = ?", req.DocumentID, req.BatchID).First(&doc).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Document not found in batch",
		})
	}

	ack := models.Acknowledgement{
		BatchID:        req.BatchID,
		DocumentID:     req.DocumentID,
		Email:          email,
		Acknowledged:   true,
		AcknowledgedAt: time.Now(),
	}

	// First acknowledgement wins; the stored timestamp is when the
	// recipient first confirmed, not when they last clicked
	result := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&ack)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to record acknowledgement",
		})
	}

	database.InvalidateProgressCache(req.BatchID)

	// Milestone detection runs out of band; the ledger makes repeat
	// submissions harmless
	go h.pipeline.OnAcknowledged(req.BatchID, email)

	p, err := h.progress.Progress(req.BatchID, email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to compute progress",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"recorded": result.RowsAffected > 0,
			"progress": p,
		},
	})
}

// Progress returns the acknowledgement progress of one recipient in a batch.
// Served from cache when warm.
func (h *AcknowledgementHandler) Progress(c *fiber.Ctx) error {
	batchID, err := strconv.Atoi(c.Params("batchId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid batch ID",
		})
	}

	email := models.NormalizeEmail(c.Query("email"))
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "email query parameter is required",
		})
	}

	cacheKey := fmt.Sprintf("%s%d:%s", database.CacheKeyProgress, batchID, email)
	var cached services.Progress
	if err := database.CacheGet(cacheKey, &cached); err == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    cached,
		})
	}

	p, err := h.progress.Progress(uint(batchID), email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to compute progress",
		})
	}

	database.CacheSet(cacheKey, p, database.CacheTTLProgress)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    p,
	})
}

// AcknowledgedIDs returns the document IDs one recipient has acknowledged in
// a batch. Public route; the acknowledging client uses it to restore ticked
// checkboxes without fetching full rows.
func (h *AcknowledgementHandler) AcknowledgedIDs(c *fiber.Ctx) error {
	batchID, err := strconv.Atoi(c.Params("batchId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid batch ID",
		})
	}

	email := models.NormalizeEmail(c.Query("email"))
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "email query parameter is required",
		})
	}

	ids, err := h.store.AcknowledgedDocumentIDs(uint(batchID), email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch acknowledged documents",
		})
	}
	if ids == nil {
		ids = []uint{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"ids": ids,
		},
	})
}

// List returns the acknowledgements of a batch, optionally filtered by email
func (h *AcknowledgementHandler) List(c *fiber.Ctx) error {
	batchID, err := strconv.Atoi(c.Params("batchId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid batch ID",
		})
	}

	query := database.DB.Where("batch_id = ?", batchID)
	if email := models.NormalizeEmail(c.Query("email")); email != "" {
		query = query.Where("email = ?", email)
	}

	var acks []models.Acknowledgement
	if err := query.Order("acknowledged_at ASC").Find(&acks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch acknowledgements",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    acks,
	})
}
