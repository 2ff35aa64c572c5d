package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ackportal/backend/internal/config"
	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
	"github.com/ackportal/backend/internal/services"
)

type DocumentHandler struct {
	resolver *services.ContentResolver
	tokens   *services.DownloadTokenService
}

func NewDocumentHandler(cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{
		resolver: services.NewContentResolver(),
		tokens:   services.NewDownloadTokenService(cfg),
	}
}

type documentRequest struct {
	BatchID           uint   `json:"batch_id"`
	Title             string `json:"title"`
	Version           string `json:"version"`
	SignatureRequired bool   `json:"signature_required"`
	URL               string `json:"url"`
	LibraryContainer  string `json:"library_container"`
	LibraryItem       string `json:"library_item"`
	LocalPath         string `json:"local_path"`
	ContentType       string `json:"content_type"`
}

// List returns the documents of a batch
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	batchID, err := strconv.Atoi(c.Params("batchId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid batch ID",
		})
	}

	var docs []models.Document
	if err := database.DB.Where("batch_id = ?", batchID).Order("id ASC").Find(&docs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch documents",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    docs,
	})
}

// Create adds a document to a batch
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	var req documentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.BatchID == 0 || req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "batch_id and title are required",
		})
	}

	var batch models.Batch
	if err := database.DB.First(&batch, req.BatchID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Batch not found",
		})
	}

	doc := models.Document{
		BatchID:           req.BatchID,
		Title:             req.Title,
		Version:           req.Version,
		SignatureRequired: req.SignatureRequired,
		URL:               req.URL,
		LibraryContainer:  req.LibraryContainer,
		LibraryItem:       req.LibraryItem,
		LocalPath:         req.LocalPath,
		ContentType:       req.ContentType,
	}

	if services.DetectSource(&doc) == services.SourceUnknown {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Document needs a library item, a URL or a local path",
		})
	}

	if err := database.DB.Create(&doc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create document",
		})
	}

	database.InvalidateProgressCache(doc.BatchID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    doc,
	})
}

// Update modifies a document
func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid document ID",
		})
	}

	var doc models.Document
	if err := database.DB.First(&doc, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Document not found",
		})
	}

	var req documentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Title != "" {
		doc.Title = req.Title
	}
	doc.Version = req.Version
	doc.SignatureRequired = req.SignatureRequired
	doc.URL = req.URL
	doc.LibraryContainer = req.LibraryContainer
	doc.LibraryItem = req.LibraryItem
	doc.LocalPath = req.LocalPath
	doc.ContentType = req.ContentType

	if services.DetectSource(&doc) == services.SourceUnknown {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Document needs a library item, a URL or a local path",
		})
	}

	if err := database.DB.Save(&doc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update document",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    doc,
	})
}

// Delete removes a document and its acknowledgements
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid document ID",
		})
	}

	var doc models.Document
	if err := database.DB.First(&doc, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Document not found",
		})
	}

	if err := database.DB.Delete(&doc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete document",
		})
	}

	database.DB.Where("document_id = ?", doc.ID).Delete(&models.Acknowledgement{})
	database.InvalidateProgressCache(doc.BatchID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Document deleted",
	})
}

// DownloadURL mints a short-lived delegated download link for a document
func (h *DocumentHandler) DownloadURL(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid document ID",
		})
	}

	var doc models.Document
	if err := database.DB.First(&doc, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Document not found",
		})
	}

	token, err := h.tokens.Mint(doc.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to mint download token",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"url": fmt.Sprintf("/api/public/content/%d?token=%s", doc.ID, token),
		},
	})
}

// Content streams the document bytes. Public route; access is delegated via
// a scoped download token minted by DownloadURL.
func (h *DocumentHandler) Content(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid document ID",
		})
	}

	token := c.Query("token")
	docID, err := h.tokens.Verify(token)
	if err != nil || docID != uint(id) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Download not permitted",
		})
	}

	var doc models.Document
	if err := database.DB.First(&doc, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Document not found",
		})
	}

	data, contentType, err := h.resolver.Fetch(&doc)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch document content",
		})
	}

	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.FileName()))
	return c.Send(data)
}
