package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
	"github.com/ackportal/backend/internal/services"
)

// NotificationHandler handles notification-related requests
type NotificationHandler struct {
	email *services.EmailService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{
		email: services.NewEmailService(),
	}
}

// TestSMTPRequest represents the test SMTP request
type TestSMTPRequest struct {
	Host     string `json:"smtp_host"`
	Port     string `json:"smtp_port"`
	Username string `json:"smtp_username"`
	Password string `json:"smtp_password"`
	FromName string `json:"smtp_from_name"`
	FromAddr string `json:"smtp_from_email"`
	TestTo   string `json:"test_email"`
}

// TestSMTP tests SMTP configuration
func (h *NotificationHandler) TestSMTP(c *fiber.Ctx) error {
	var req TestSMTPRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Host == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "SMTP host is required",
		})
	}

	config := &services.EmailConfig{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		FromName: req.FromName,
		FromAddr: req.FromAddr,
	}

	if config.FromAddr == "" {
		config.FromAddr = req.Username
	}

	// First test connection
	if err := h.email.TestConnection(config); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "SMTP connection failed: " + err.Error(),
		})
	}

	// If test email provided, send test email
	if req.TestTo != "" {
		if err := h.email.SendTestEmail(config, req.TestTo); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "SMTP connection OK but failed to send test email: " + err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": "SMTP configuration is valid! Test email sent to " + req.TestTo,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "SMTP connection successful!",
	})
}

// DeliveryLogs returns outbound messages, newest first, optionally filtered
// by batch and status
func (h *NotificationHandler) DeliveryLogs(c *fiber.Ctx) error {
	query := database.DB.Model(&models.DeliveryLog{})

	if batchID := c.Query("batch_id"); batchID != "" {
		id, err := strconv.Atoi(batchID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid batch_id",
			})
		}
		query = query.Where("batch_id = ?", id)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	var logs []models.DeliveryLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch delivery logs",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    logs,
	})
}

// Milestones returns the notification milestone ledger for a batch
func (h *NotificationHandler) Milestones(c *fiber.Ctx) error {
	batchID, err := strconv.Atoi(c.Params("batchId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid batch ID",
		})
	}

	var milestones []models.NotificationMilestone
	if err := database.DB.Where("batch_id = ?", batchID).Order("created_at ASC").Find(&milestones).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch milestones",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    milestones,
	})
}
