package handlers

import (
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
)

// setupTestDB points the global connection at a per-test in-memory SQLite
// database. Redis is aimed at a closed port so cache calls degrade to plain
// errors instead of hitting a live server.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	database.DB = db
	if database.Redis == nil {
		database.Redis = redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	}
}
