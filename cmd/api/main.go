package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/ackportal/backend/internal/config"
	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/handlers"
	"github.com/ackportal/backend/internal/middleware"
	"github.com/ackportal/backend/internal/models"
	"github.com/ackportal/backend/internal/services"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed admin user if not exists
	seedAdminUser()

	// Persist JWT secret so sessions survive restarts
	cfg.JWTSecret = database.EnsureJWTSecret(cfg)

	// Start due reminder service (nudges unfinished recipients daily)
	reminderService := services.NewDueReminderService()
	reminderService.Start()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "AckPortal API v1.0",
		ServerHeader: "AckPortal",
		BodyLimit:    50 * 1024 * 1024, // 50MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "ackportal-api",
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg)
	batchHandler := handlers.NewBatchHandler()
	documentHandler := handlers.NewDocumentHandler(cfg)
	recipientHandler := handlers.NewRecipientHandler()
	ackHandler := handlers.NewAcknowledgementHandler()
	businessHandler := handlers.NewBusinessHandler()
	dashboardHandler := handlers.NewDashboardHandler()
	settingsHandler := handlers.NewSettingsHandler()
	userHandler := handlers.NewUserHandler()
	auditHandler := handlers.NewAuditHandler()
	notificationHandler := handlers.NewNotificationHandler()
	twoFAHandler := handlers.NewTwoFAHandler()

	// API routes
	api := app.Group("/api")

	// Apply rate limiting to API routes (100 requests per minute by default)
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// Public routes
	api.Post("/auth/login", authHandler.Login)

	// Public acknowledgement routes: recipients confirm documents without an
	// account, identified by email
	public := api.Group("/public")
	public.Post("/ack", ackHandler.Submit)
	public.Get("/batches/:batchId/progress", ackHandler.Progress)
	public.Get("/batches/:batchId/acks", ackHandler.AcknowledgedIDs)
	public.Get("/content/:id", documentHandler.Content)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(cfg))

	// Auth routes
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/refresh", authHandler.RefreshToken)
	protected.Put("/auth/password", authHandler.ChangePassword)
	protected.Post("/auth/change-password", authHandler.ChangePassword)

	// 2FA routes
	protected.Get("/auth/2fa/status", twoFAHandler.Status)
	protected.Post("/auth/2fa/setup", twoFAHandler.Setup)
	protected.Post("/auth/2fa/verify", twoFAHandler.Verify)
	protected.Post("/auth/2fa/disable", twoFAHandler.Disable)

	// Dashboard routes
	protected.Get("/dashboard/stats", dashboardHandler.Stats)
	protected.Get("/dashboard/activity", dashboardHandler.RecentActivity)

	// Batch routes
	batches := protected.Group("/batches")
	batches.Get("/", batchHandler.List)
	batches.Get("/:id", batchHandler.Get)
	batches.Get("/:id/summary", batchHandler.Summary)
	batches.Post("/", batchHandler.Create)
	batches.Put("/:id", batchHandler.Update)
	batches.Delete("/:id", middleware.AdminOnly(), batchHandler.Delete)

	// Document routes
	batches.Get("/:batchId/documents", documentHandler.List)
	documents := protected.Group("/documents")
	documents.Post("/", documentHandler.Create)
	documents.Put("/:id", documentHandler.Update)
	documents.Delete("/:id", documentHandler.Delete)
	documents.Get("/:id/download-url", documentHandler.DownloadURL)

	// Recipient routes
	batches.Get("/:batchId/recipients", recipientHandler.List)
	batches.Post("/:batchId/recipients", recipientHandler.Create)
	recipients := protected.Group("/recipients")
	recipients.Put("/:id", recipientHandler.Update)
	recipients.Delete("/:id", recipientHandler.Delete)

	// Acknowledgement review routes
	batches.Get("/:batchId/acknowledgements", ackHandler.List)
	batches.Get("/:batchId/milestones", notificationHandler.Milestones)

	// Business routes
	businesses := protected.Group("/businesses")
	businesses.Get("/", businessHandler.List)
	businesses.Post("/", middleware.AdminOnly(), businessHandler.Create)
	businesses.Put("/:id", middleware.AdminOnly(), businessHandler.Update)
	businesses.Delete("/:id", middleware.AdminOnly(), businessHandler.Delete)

	// Notification routes (Admin only)
	notifications := protected.Group("/notifications", middleware.AdminOnly())
	notifications.Post("/test-smtp", notificationHandler.TestSMTP)
	notifications.Get("/deliveries", notificationHandler.DeliveryLogs)

	// Settings routes (Admin only)
	settings := protected.Group("/settings", middleware.AdminOnly())
	settings.Get("/", settingsHandler.List)
	settings.Put("/bulk", settingsHandler.BulkUpdate)
	settings.Get("/timezones", settingsHandler.GetTimezones)
	settings.Get("/:key", settingsHandler.Get)
	settings.Put("/:key", settingsHandler.Update)
	settings.Delete("/:key", settingsHandler.Delete)

	// Server time (accessible to all authenticated users for clock display)
	protected.Get("/server-time", settingsHandler.GetServerTime)

	// User management routes (Admin only)
	users := protected.Group("/users", middleware.AdminOnly())
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.Get)
	users.Post("/", userHandler.Create)
	users.Put("/:id", userHandler.Update)
	users.Delete("/:id", userHandler.Delete)

	// Audit log routes (Admin only)
	audit := protected.Group("/audit", middleware.AdminOnly())
	audit.Get("/", auditHandler.List)
	audit.Get("/actions", auditHandler.GetActions)
	audit.Get("/entity-types", auditHandler.GetEntityTypes)
	audit.Get("/:id", auditHandler.Get)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		reminderService.Stop()
		app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting AckPortal API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func seedAdminUser() {
	var count int64
	database.DB.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&count)

	if count == 0 {
		log.Println("Creating default admin user...")

		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)

		admin := models.User{
			Username:            "admin",
			Password:            string(hashedPassword),
			Email:               "admin@ackportal.local",
			FullName:            "System Administrator",
			UserType:            models.UserTypeAdmin,
			ForcePasswordChange: true,
			IsActive:            true,
		}

		if err := database.DB.Create(&admin).Error; err != nil {
			log.Printf("Failed to create admin user: %v", err)
		} else {
			log.Println("Admin user created successfully (username: admin, password: admin123)")
		}
	}
}
