package database

import (
	"crypto/rand"
	"encoding/hex"
	"log"

	"github.com/ackportal/backend/internal/config"
)

const jwtSecretKey = "jwt_secret"

// SystemPreference mirrors the settings row shape. Declared here as well as
// in models so this package stays free of a models dependency.
type SystemPreference struct {
	ID        uint   `gorm:"column:id;primaryKey"`
	Key       string `gorm:"column:key;size:100;uniqueIndex;not null"`
	Value     string `gorm:"column:value;type:text"`
	ValueType string `gorm:"column:value_type;size:20;default:string"`
}

func (SystemPreference) TableName() string {
	return "system_preferences"
}

// EnsureJWTSecret returns the signing secret for session and download
// tokens, persisting a generated one on first boot so issued tokens survive
// restarts. An explicit secret from the environment takes precedence when no
// stored one exists yet.
func EnsureJWTSecret(cfg *config.Config) string {
	if DB == nil {
		log.Println("Warning: Database not connected, cannot persist JWT secret")
		return cfg.JWTSecret
	}

	if stored := GetJWTSecret(); stored != "" {
		return stored
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = generateSecureSecret(32)
	}

	pref := SystemPreference{
		Key:       jwtSecretKey,
		Value:     secret,
		ValueType: "string",
	}
	if err := DB.Create(&pref).Error; err != nil {
		// Lost a first-boot race with another instance; take whatever won
		if stored := GetJWTSecret(); stored != "" {
			return stored
		}
		DB.Model(&SystemPreference{}).Where("key = ?", jwtSecretKey).Update("value", secret)
	}

	log.Println("JWT secret persisted; sessions survive restarts")
	return secret
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return hex.EncodeToString([]byte("fallback-secret-change-me"))
	}
	return hex.EncodeToString(bytes)
}

// GetJWTSecret reads the persisted signing secret, empty when absent
func GetJWTSecret() string {
	if DB == nil {
		return ""
	}

	var pref SystemPreference
	if err := DB.Where("key = ?", jwtSecretKey).First(&pref).Error; err != nil {
		return ""
	}
	return pref.Value
}
