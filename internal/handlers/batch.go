package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
	"github.com/ackportal/backend/internal/services"
	"gorm.io/gorm"
)

type BatchHandler struct {
	progress   *services.ProgressService
	completion *services.CompletionService
}

func NewBatchHandler() *BatchHandler {
	return &BatchHandler{
		progress:   services.NewProgressService(),
		completion: services.NewCompletionService(),
	}
}

type batchRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
}

// List returns all batches with document and recipient counts
func (h *BatchHandler) List(c *fiber.Ctx) error {
	var batches []models.Batch

	query := database.DB.Model(&models.Batch{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Order("created_at DESC").Find(&batches).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch batches",
		})
	}

	type batchSummary struct {
		models.Batch
		DocumentCount  int64 `json:"document_count"`
		RecipientCount int64 `json:"recipient_count"`
	}

	summaries := make([]batchSummary, 0, len(batches))
	for _, b := range batches {
		var docCount, recipientCount int64
		database.DB.Model(&models.Document{}).Where("batch_id = ?", b.ID).Count(&docCount)
		database.DB.Model(&models.Recipient{}).Where("batch_id = ?", b.ID).Count(&recipientCount)
		summaries = append(summaries, batchSummary{
			Batch:          b,
			DocumentCount:  docCount,
			RecipientCount: recipientCount,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    summaries,
	})
}

// Get returns a single batch with its documents and recipients
func (h *BatchHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid batch ID",
		})
	}

	var batch models.Batch
	if err := database.DB.Preload("Documents").Preload("Recipients").First(&batch, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Batch not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    batch,
	})
}

// Create creates a new batch
func (h *BatchHandler) Create(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Batch name is required",
		})
	}

	status := models.BatchStatus(req.Status)
	if status == "" {
		status = models.BatchStatusActive
	}
	if status != models.BatchStatusActive && status != models.BatchStatusInactive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Status must be active or inactive",
		})
	}

	batch := models.Batch{
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
	}
	if req.StartDate != nil {
		batch.StartDate = *req.StartDate
	}
	if req.DueDate != nil {
		batch.DueDate = *req.DueDate
	}

	if err := database.DB.Create(&batch).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create batch",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    batch,
	})
}

// Update modifies an existing batch
func (h *BatchHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid batch ID",
		})
	}

	var batch models.Batch
	if err := database.DB.First(&batch, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Batch not found",
		})
	}

	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Name != "" {
		batch.Name = req.Name
	}
	batch.Description = req.Description
	if req.StartDate != nil {
		batch.StartDate = *req.StartDate
	}
	if req.DueDate != nil {
		batch.DueDate = *req.DueDate
	}
	if req.Status != "" {
		status := models.BatchStatus(req.Status)
		if status != models.BatchStatusActive && status != models.BatchStatusInactive {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Status must be active or inactive",
			})
		}
		batch.Status = status
	}

	if err := database.DB.Save(&batch).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update batch",
		})
	}

	database.InvalidateProgressCache(batch.ID)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    batch,
	})
}

// Delete removes a batch along with its documents, recipients,
// acknowledgements and milestones, so stats never count orphaned rows
func (h *BatchHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid batch ID",
		})
	}

	var batch models.Batch
	if err := database.DB.First(&batch, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Batch not found",
		})
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		for _, entity := range []interface{}{
			&models.Acknowledgement{},
			&models.NotificationMilestone{},
			&models.Recipient{},
			&models.Document{},
		} {
			if err := tx.Where("batch_id = ?", batch.ID).Delete(entity).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&batch).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete batch",
		})
	}

	database.InvalidateProgressCache(batch.ID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Batch deleted",
	})
}

// Summary returns the per-recipient progress of a batch plus the batch-level
// completion state
func (h *BatchHandler) Summary(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid batch ID",
		})
	}

	var batch models.Batch
	if err := database.DB.First(&batch, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Batch not found",
		})
	}

	var recipients []models.Recipient
	database.DB.Where("batch_id = ?", batch.ID).Order("id ASC").Find(&recipients)

	type recipientProgress struct {
		Email     string            `json:"email"`
		Name      string            `json:"name"`
		Progress  services.Progress `json:"progress"`
		Completed bool              `json:"completed"`
	}

	nameByEmail := make(map[string]string, len(recipients))
	for _, r := range recipients {
		email := models.NormalizeEmail(r.Email)
		if _, ok := nameByEmail[email]; !ok {
			nameByEmail[email] = r.FullName
		}
	}

	emails := services.UniqueEmails(recipients)
	rows := make([]recipientProgress, 0, len(emails))
	allDone := len(emails) > 0

	for _, email := range emails {
		p, err := h.progress.Progress(batch.ID, email)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to compute progress",
			})
		}
		done := p.Total > 0 && p.Acknowledged >= p.Total
		if !done {
			allDone = false
		}
		rows = append(rows, recipientProgress{
			Email:     email,
			Name:      nameByEmail[email],
			Progress:  p,
			Completed: done,
		})
	}

	var docCount int64
	database.DB.Model(&models.Document{}).Where("batch_id = ?", batch.ID).Count(&docCount)
	if docCount == 0 {
		allDone = false
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"batch":           batch,
			"recipients":      rows,
			"batch_completed": allDone,
		},
	})
}
