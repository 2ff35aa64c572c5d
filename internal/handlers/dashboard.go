package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
)

type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Stats returns the portal-wide counters shown on the dashboard
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	var activeBatches, totalBatches int64
	database.DB.Model(&models.Batch{}).Where("status = ?", models.BatchStatusActive).Count(&activeBatches)
	database.DB.Model(&models.Batch{}).Count(&totalBatches)

	var totalRecipients int64
	database.DB.Model(&models.Recipient{}).Count(&totalRecipients)

	var totalAcks int64
	database.DB.Model(&models.Acknowledgement{}).Where("acknowledged = ?", true).Count(&totalAcks)

	var notifiedMilestones, failedMilestones int64
	database.DB.Model(&models.NotificationMilestone{}).
		Where("status = ?", models.MilestoneNotified).Count(&notifiedMilestones)
	database.DB.Model(&models.NotificationMilestone{}).
		Where("status = ?", models.MilestoneFailed).Count(&failedMilestones)

	// Batches due within 7 days and still active
	weekAhead := time.Now().AddDate(0, 0, 7)
	var dueSoon int64
	database.DB.Model(&models.Batch{}).
		Where("status = ? AND due_date > ? AND due_date <= ?", models.BatchStatusActive, time.Now(), weekAhead).
		Count(&dueSoon)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"batches": fiber.Map{
				"total":    totalBatches,
				"active":   activeBatches,
				"due_soon": dueSoon,
			},
			"recipients":       totalRecipients,
			"acknowledgements": totalAcks,
			"milestones": fiber.Map{
				"notified": notifiedMilestones,
				"failed":   failedMilestones,
			},
		},
	})
}

// RecentActivity returns the latest acknowledgements and deliveries
func (h *DashboardHandler) RecentActivity(c *fiber.Ctx) error {
	var acks []models.Acknowledgement
	database.DB.Order("acknowledged_at DESC").Limit(20).Find(&acks)

	var deliveries []models.DeliveryLog
	database.DB.Order("created_at DESC").Limit(20).Find(&deliveries)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"acknowledgements": acks,
			"deliveries":       deliveries,
		},
	})
}
