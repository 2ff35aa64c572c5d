package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/middleware"
	"github.com/ackportal/backend/internal/models"
)

type AuditHandler struct{}

func NewAuditHandler() *AuditHandler {
	return &AuditHandler{}
}

// List returns audit rows, newest first, filtered by action, entity type,
// user and date range
func (h *AuditHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	action := c.Query("action", "")
	entityType := c.Query("entity_type", "")
	userID := c.QueryInt("user_id", 0)
	dateFrom := c.Query("date_from", "")
	dateTo := c.Query("date_to", "")

	if page < 1 {
		page = 1
	}
	if limit > 200 {
		limit = 200
	}
	offset := (page - 1) * limit

	query := database.DB.Model(&models.AuditLog{}).Preload("User")

	if action != "" {
		query = query.Where("action = ?", action)
	}
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	if dateFrom != "" {
		query = query.Where("created_at >= ?", dateFrom)
	}
	if dateTo != "" {
		query = query.Where("created_at <= ?", dateTo+" 23:59:59")
	}

	var total int64
	query.Count(&total)

	var logs []models.AuditLog
	query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    logs,
		"meta": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// Get returns a single audit log entry
func (h *AuditHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	var log models.AuditLog
	if err := database.DB.Preload("User").First(&log, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Log entry not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    log,
	})
}

// GetActions returns the action filter vocabulary. Fixed set rather than a
// DISTINCT scan: the filter dropdown should offer every action the portal
// can record, not just those already present in the log.
func (h *AuditHandler) GetActions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": []models.AuditAction{
			models.AuditActionCreate,
			models.AuditActionUpdate,
			models.AuditActionDelete,
			models.AuditActionLogin,
			models.AuditActionLogout,
			models.AuditActionNotify,
		},
	})
}

// GetEntityTypes returns the entity filter vocabulary
func (h *AuditHandler) GetEntityTypes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": []string{
			"batch",
			"document",
			"recipient",
			"business",
			"user",
			"setting",
			"notification",
		},
	})
}

// LogAction creates an audit log entry (helper function)
func LogAction(c *fiber.Ctx, action models.AuditAction, entityType string, entityID uint, description string) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return
	}

	log := models.AuditLog{
		UserID:      user.ID,
		Username:    user.Username,
		UserType:    user.UserType,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		IPAddress:   c.IP(),
		UserAgent:   c.Get("User-Agent"),
	}
	database.DB.Create(&log)
}
