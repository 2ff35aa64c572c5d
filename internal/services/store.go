package services

import (
	"time"

	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
)

// Store is the read surface the completion pipeline needs from persistence.
// The production implementation is backed by GORM; tests substitute fakes.
type Store interface {
	Batch(id uint) (*models.Batch, error)
	Documents(batchID uint) ([]models.Document, error)
	CountDocuments(batchID uint) (int64, error)
	Recipients(batchID uint) ([]models.Recipient, error)
	Recipient(batchID uint, email string) (*models.Recipient, error)
	CountAcknowledgements(batchID uint, email string) (int64, error)
	AcknowledgedDocumentIDs(batchID uint, email string) ([]uint, error)
	LastAcknowledgedAt(batchID uint, email string) (*time.Time, error)
	BusinessName(id uint) (string, error)
}

type gormStore struct{}

// NewStore returns the GORM-backed store
func NewStore() Store {
	return gormStore{}
}

func (gormStore) Batch(id uint) (*models.Batch, error) {
	var batch models.Batch
	if err := database.DB.First(&batch, id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (gormStore) Documents(batchID uint) ([]models.Document, error) {
	var docs []models.Document
	err := database.DB.Where("batch_id = ?", batchID).Order("id ASC").Find(&docs).Error
	return docs, err
}

func (gormStore) CountDocuments(batchID uint) (int64, error) {
	var count int64
	err := database.DB.Model(&models.Document{}).Where("batch_id = ?", batchID).Count(&count).Error
	return count, err
}

func (gormStore) Recipients(batchID uint) ([]models.Recipient, error) {
	var recipients []models.Recipient
	err := database.DB.Where("batch_id = ?", batchID).Order("id ASC").Find(&recipients).Error
	return recipients, err
}

func (gormStore) Recipient(batchID uint, email string) (*models.Recipient, error) {
	var recipient models.Recipient
	err := database.DB.Where("batch_id = ? AND email = ?", batchID, models.NormalizeEmail(email)).
		First(&recipient).Error
	if err != nil {
		return nil, err
	}
	return &recipient, nil
}

func (gormStore) CountAcknowledgements(batchID uint, email string) (int64, error) {
	query := database.DB.Model(&models.Acknowledgement{}).
		Where("batch_id = ? AND acknowledged = ?", batchID, true)
	if email != "" {
		query = query.Where("email = ?", models.NormalizeEmail(email))
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (gormStore) AcknowledgedDocumentIDs(batchID uint, email string) ([]uint, error) {
	var ids []uint
	err := database.DB.Model(&models.Acknowledgement{}).
		Where("batch_id = ? AND email = ? AND acknowledged = ?", batchID, models.NormalizeEmail(email), true).
		Order("document_id ASC").
		Pluck("document_id", &ids).Error
	return ids, err
}

func (gormStore) LastAcknowledgedAt(batchID uint, email string) (*time.Time, error) {
	var ack models.Acknowledgement
	err := database.DB.Where("batch_id = ? AND email = ? AND acknowledged = ?", batchID, models.NormalizeEmail(email), true).
		Order("acknowledged_at DESC").
		First(&ack).Error
	if err != nil {
		return nil, err
	}
	return &ack.AcknowledgedAt, nil
}

func (gormStore) BusinessName(id uint) (string, error) {
	var business models.Business
	if err := database.DB.First(&business, id).Error; err != nil {
		return "", err
	}
	return business.Name, nil
}
