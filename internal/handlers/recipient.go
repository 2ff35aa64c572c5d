package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
	"github.com/ackportal/backend/internal/services"
	"gorm.io/gorm/clause"
)

type RecipientHandler struct {
	pipeline *services.CompletionPipeline
}

func NewRecipientHandler() *RecipientHandler {
	return &RecipientHandler{
		pipeline: services.NewCompletionPipeline(),
	}
}

type recipientRequest struct {
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	BusinessID *uint  `json:"business_id"`
	Department string `json:"department"`
	JobTitle   string `json:"job_title"`
	Location   string `json:"location"`
	GroupName  string `json:"group_name"`
}

// List returns the recipients of a batch
func (h *RecipientHandler) List(c *fiber.Ctx) error {
	batchID, err := strconv.Atoi(c.Params("batchId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid batch ID",
		})
	}

	var recipients []models.Recipient
	if err := database.DB.Where("batch_id = ?", batchID).Order("id ASC").Find(&recipients).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch recipients",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    recipients,
	})
}

// Create adds recipients to a batch and sends the assignment notification.
// Accepts either a single recipient object or a list under "recipients".
func (h *RecipientHandler) Create(c *fiber.Ctx) error {
	batchID, err := strconv.Atoi(c.Params("batchId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid batch ID",
		})
	}

	var batch models.Batch
	if err := database.DB.First(&batch, batchID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Batch not found",
		})
	}

	var bulk struct {
		Recipients []recipientRequest `json:"recipients"`
	}
	if err := c.BodyParser(&bulk); err != nil || len(bulk.Recipients) == 0 {
		var single recipientRequest
		if err := c.BodyParser(&single); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid request body",
			})
		}
		bulk.Recipients = []recipientRequest{single}
	}

	var added []models.Recipient
	var skipped []string

	for _, req := range bulk.Recipients {
		email := models.NormalizeEmail(req.Email)
		if email == "" {
			skipped = append(skipped, req.Email)
			continue
		}

		recipient := models.Recipient{
			BatchID:    batch.ID,
			Email:      email,
			FullName:   req.FullName,
			BusinessID: req.BusinessID,
			Department: req.Department,
			JobTitle:   req.JobTitle,
			Location:   req.Location,
			GroupName:  req.GroupName,
		}

		// The per-batch unique email index turns duplicates into no-ops
		result := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&recipient)
		if result.Error != nil {
			log.Printf("Recipient: failed to add %s to batch %d: %v", email, batch.ID, result.Error)
			skipped = append(skipped, email)
			continue
		}
		if result.RowsAffected == 0 {
			skipped = append(skipped, email)
			continue
		}
		added = append(added, recipient)
	}

	// Newly added recipients of an active batch get the assignment
	// notification with the documents attached
	if len(added) > 0 && batch.IsActive() {
		emails := make([]string, 0, len(added))
		for _, r := range added {
			emails = append(emails, r.Email)
		}
		go h.pipeline.NotifyAssignment(&batch, emails)
	}

	database.InvalidateProgressCache(batch.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"added":   added,
			"skipped": skipped,
		},
	})
}

// Update modifies a recipient's profile fields. Email is immutable; remove
// and re-add to change it.
func (h *RecipientHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid recipient ID",
		})
	}

	var recipient models.Recipient
	if err := database.DB.First(&recipient, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Recipient not found",
		})
	}

	var req recipientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	recipient.FullName = req.FullName
	recipient.BusinessID = req.BusinessID
	recipient.Department = req.Department
	recipient.JobTitle = req.JobTitle
	recipient.Location = req.Location
	recipient.GroupName = req.GroupName

	if err := database.DB.Save(&recipient).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update recipient",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    recipient,
	})
}

// Delete removes a recipient from a batch. Removing a straggler can complete
// the batch, so the pipeline re-evaluates afterwards.
func (h *RecipientHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid recipient ID",
		})
	}

	var recipient models.Recipient
	if err := database.DB.First(&recipient, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Recipient not found",
		})
	}

	if err := database.DB.Delete(&recipient).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete recipient",
		})
	}

	database.InvalidateProgressCache(recipient.BatchID)
	go h.pipeline.OnAcknowledged(recipient.BatchID, recipient.Email)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Recipient deleted",
	})
}
