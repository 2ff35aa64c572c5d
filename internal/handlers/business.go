package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
)

type BusinessHandler struct{}

func NewBusinessHandler() *BusinessHandler {
	return &BusinessHandler{}
}

// List returns all businesses, cached in Redis
func (h *BusinessHandler) List(c *fiber.Ctx) error {
	var businesses []models.Business

	if err := database.CacheGet(database.CacheKeyBusinesses, &businesses); err == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    businesses,
		})
	}

	if err := database.DB.Order("name ASC").Find(&businesses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch businesses",
		})
	}

	database.CacheSet(database.CacheKeyBusinesses, businesses, database.CacheTTLBusinesses)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    businesses,
	})
}

// Create adds a business
func (h *BusinessHandler) Create(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Business name is required",
		})
	}

	business := models.Business{Name: req.Name}
	if err := database.DB.Create(&business).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create business",
		})
	}

	database.InvalidateBusinessesCache()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    business,
	})
}

// Update renames a business
func (h *BusinessHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid business ID",
		})
	}

	var business models.Business
	if err := database.DB.First(&business, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Business not found",
		})
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Business name is required",
		})
	}

	business.Name = req.Name
	if err := database.DB.Save(&business).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update business",
		})
	}

	database.InvalidateBusinessesCache()

	return c.JSON(fiber.Map{
		"success": true,
		"data":    business,
	})
}

// Delete removes a business. Recipients keep their business_id reference;
// reports fall back to an empty business name.
func (h *BusinessHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid business ID",
		})
	}

	var business models.Business
	if err := database.DB.First(&business, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Business not found",
		})
	}

	if err := database.DB.Delete(&business).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete business",
		})
	}

	database.InvalidateBusinessesCache()

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Business deleted",
	})
}
