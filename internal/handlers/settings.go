package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
)

// Common timezone list for dropdown - organized by region
var CommonTimezones = []map[string]string{
	{"value": "UTC", "label": "UTC (Coordinated Universal Time)"},

	// Europe
	{"value": "Europe/London", "label": "Europe/London - UK (GMT/BST)"},
	{"value": "Europe/Paris", "label": "Europe/Paris - France (CET/CEST)"},
	{"value": "Europe/Berlin", "label": "Europe/Berlin - Germany (CET/CEST)"},
	{"value": "Europe/Madrid", "label": "Europe/Madrid - Spain (CET/CEST)"},
	{"value": "Europe/Amsterdam", "label": "Europe/Amsterdam - Netherlands (CET/CEST)"},
	{"value": "Europe/Warsaw", "label": "Europe/Warsaw - Poland (CET/CEST)"},
	{"value": "Europe/Athens", "label": "Europe/Athens - Greece (EET/EEST)"},
	{"value": "Europe/Dublin", "label": "Europe/Dublin - Ireland (GMT/IST)"},
	{"value": "Europe/Zurich", "label": "Europe/Zurich - Switzerland (CET/CEST)"},

	// Middle East & Asia
	{"value": "Asia/Dubai", "label": "Asia/Dubai - UAE (GST)"},
	{"value": "Asia/Riyadh", "label": "Asia/Riyadh - Saudi Arabia (AST)"},
	{"value": "Asia/Kolkata", "label": "Asia/Kolkata - India (IST)"},
	{"value": "Asia/Singapore", "label": "Asia/Singapore - Singapore (SGT)"},
	{"value": "Asia/Hong_Kong", "label": "Asia/Hong_Kong - Hong Kong (HKT)"},
	{"value": "Asia/Shanghai", "label": "Asia/Shanghai - China (CST)"},
	{"value": "Asia/Tokyo", "label": "Asia/Tokyo - Japan (JST)"},
	{"value": "Asia/Seoul", "label": "Asia/Seoul - South Korea (KST)"},

	// Africa
	{"value": "Africa/Cairo", "label": "Africa/Cairo - Egypt (EET)"},
	{"value": "Africa/Johannesburg", "label": "Africa/Johannesburg - South Africa (SAST)"},
	{"value": "Africa/Lagos", "label": "Africa/Lagos - Nigeria (WAT)"},
	{"value": "Africa/Nairobi", "label": "Africa/Nairobi - Kenya (EAT)"},

	// Americas
	{"value": "America/New_York", "label": "America/New_York - US Eastern (EST/EDT)"},
	{"value": "America/Chicago", "label": "America/Chicago - US Central (CST/CDT)"},
	{"value": "America/Denver", "label": "America/Denver - US Mountain (MST/MDT)"},
	{"value": "America/Los_Angeles", "label": "America/Los_Angeles - US Pacific (PST/PDT)"},
	{"value": "America/Toronto", "label": "America/Toronto - Canada Eastern (EST/EDT)"},
	{"value": "America/Mexico_City", "label": "America/Mexico_City - Mexico (CST/CDT)"},
	{"value": "America/Sao_Paulo", "label": "America/Sao_Paulo - Brazil (BRT)"},

	// Australia & Pacific
	{"value": "Australia/Sydney", "label": "Australia/Sydney - Australia Eastern (AEST/AEDT)"},
	{"value": "Australia/Perth", "label": "Australia/Perth - Australia Western (AWST)"},
	{"value": "Pacific/Auckland", "label": "Pacific/Auckland - New Zealand (NZST/NZDT)"},
}

type SettingsHandler struct{}

func NewSettingsHandler() *SettingsHandler {
	return &SettingsHandler{}
}

// List returns all system preferences (with Redis caching)
func (h *SettingsHandler) List(c *fiber.Ctx) error {
	// Try cache first
	type cachedSettings struct {
		Settings map[string]interface{}    `json:"settings"`
		Items    []models.SystemPreference `json:"items"`
	}
	var cached cachedSettings
	if err := database.CacheGet(database.CacheKeySettings, &cached); err == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    cached.Settings,
			"items":   cached.Items,
		})
	}

	// Fetch from database
	var preferences []models.SystemPreference
	database.DB.Order("key").Find(&preferences)

	// Convert to map for easier frontend use
	settings := make(map[string]interface{})
	for _, p := range preferences {
		settings[p.Key] = p.Value
	}

	// Cache the result
	database.CacheSet(database.CacheKeySettings, cachedSettings{Settings: settings, Items: preferences}, database.CacheTTLSettings)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    settings,
		"items":   preferences,
	})
}

// Get returns a single preference
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	key := c.Params("key")

	var pref models.SystemPreference
	if err := database.DB.Where("key = ?", key).First(&pref).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Setting not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    pref,
	})
}

// Update updates or creates a preference
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	type UpdateRequest struct {
		Key       string `json:"key"`
		Value     string `json:"value"`
		ValueType string `json:"value_type"`
	}

	var req UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.ValueType == "" {
		req.ValueType = "string"
	}

	var pref models.SystemPreference
	result := database.DB.Where("key = ?", req.Key).First(&pref)

	if result.Error != nil {
		// Create new
		pref = models.SystemPreference{
			Key:       req.Key,
			Value:     req.Value,
			ValueType: req.ValueType,
		}
		database.DB.Create(&pref)
	} else {
		// Update existing
		database.DB.Model(&pref).Updates(map[string]interface{}{
			"value":      req.Value,
			"value_type": req.ValueType,
		})
	}

	// Invalidate settings cache
	database.InvalidateSettingsCache()

	return c.JSON(fiber.Map{
		"success": true,
		"data":    pref,
	})
}

// BulkUpdate updates multiple preferences
func (h *SettingsHandler) BulkUpdate(c *fiber.Ctx) error {
	type SettingItem struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}

	type BulkRequest struct {
		Settings []SettingItem `json:"settings"`
	}

	var req BulkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	for _, item := range req.Settings {
		if item.Key == "" {
			continue
		}

		var pref models.SystemPreference
		result := database.DB.Where("key = ?", item.Key).First(&pref)

		if result.Error != nil {
			pref = models.SystemPreference{Key: item.Key, Value: item.Value, ValueType: "string"}
			database.DB.Create(&pref)
		} else {
			database.DB.Model(&pref).Update("value", item.Value)
		}
	}

	// Invalidate settings cache
	database.InvalidateSettingsCache()

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Settings updated",
	})
}

// Delete removes a preference
func (h *SettingsHandler) Delete(c *fiber.Ctx) error {
	key := c.Params("key")

	result := database.DB.Where("key = ?", key).Delete(&models.SystemPreference{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Setting not found",
		})
	}

	// Invalidate settings cache
	database.InvalidateSettingsCache()

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Setting deleted",
	})
}

// GetTimezones returns list of available timezones
func (h *SettingsHandler) GetTimezones(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    CommonTimezones,
	})
}

// GetServerTime returns current server time in configured timezone
func (h *SettingsHandler) GetServerTime(c *fiber.Ctx) error {
	tz := GetConfiguredTimezone()
	now := time.Now().In(tz)

	return c.JSON(fiber.Map{
		"success":  true,
		"time":     now.Format("15:04:05"),
		"date":     now.Format("2006-01-02"),
		"datetime": now.Format("2006-01-02 15:04:05"),
		"timezone": tz.String(),
		"unix":     now.Unix(),
	})
}

// GetConfiguredTimezone returns the configured timezone from system preferences
// Falls back to UTC if not configured or invalid
func GetConfiguredTimezone() *time.Location {
	var pref models.SystemPreference
	if err := database.DB.Where("key = ?", "timezone").First(&pref).Error; err != nil {
		return time.UTC
	}

	loc, err := time.LoadLocation(pref.Value)
	if err != nil {
		return time.UTC
	}

	return loc
}
