package services

import (
	"strconv"
	"strings"

	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
)

// getSettingString reads a runtime setting from the system_preferences table
func getSettingString(key, defaultValue string) string {
	if database.DB == nil {
		return defaultValue
	}
	var pref models.SystemPreference
	if err := database.DB.Where("key = ?", key).First(&pref).Error; err != nil {
		return defaultValue
	}
	if pref.Value == "" {
		return defaultValue
	}
	return pref.Value
}

// getSettingInt reads an integer runtime setting
func getSettingInt(key string, defaultValue int) int {
	value := getSettingString(key, "")
	if value == "" {
		return defaultValue
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return defaultValue
}

// getNotificationRecipients returns the administrator addresses that receive
// completion notifications (comma-separated notification_emails setting)
func getNotificationRecipients() []string {
	raw := getSettingString("notification_emails", "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		email := models.NormalizeEmail(part)
		if email != "" {
			out = append(out, email)
		}
	}
	return out
}
