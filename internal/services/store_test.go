package services

import (
	"fmt"
	"time"

	"github.com/ackportal/backend/internal/models"
)

// fakeStore is an in-memory Store used across the service tests
type fakeStore struct {
	batches    map[uint]*models.Batch
	docs       map[uint][]models.Document
	recipients map[uint][]models.Recipient
	// batch -> email -> document -> acknowledged at
	acks       map[uint]map[string]map[uint]time.Time
	businesses map[uint]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		batches:    make(map[uint]*models.Batch),
		docs:       make(map[uint][]models.Document),
		recipients: make(map[uint][]models.Recipient),
		acks:       make(map[uint]map[string]map[uint]time.Time),
		businesses: make(map[uint]string),
	}
}

func (f *fakeStore) addBatch(id uint, name string) *models.Batch {
	b := &models.Batch{ID: id, Name: name, Status: models.BatchStatusActive}
	f.batches[id] = b
	return b
}

func (f *fakeStore) addDocs(batchID uint, n int) {
	for i := 0; i < n; i++ {
		id := uint(len(f.docs[batchID]) + 1)
		f.docs[batchID] = append(f.docs[batchID], models.Document{
			ID:      id,
			BatchID: batchID,
			Title:   fmt.Sprintf("doc-%d", id),
		})
	}
}

func (f *fakeStore) addRecipient(batchID uint, email string) {
	f.recipients[batchID] = append(f.recipients[batchID], models.Recipient{
		ID:      uint(len(f.recipients[batchID]) + 1),
		BatchID: batchID,
		Email:   email,
	})
}

func (f *fakeStore) ack(batchID uint, email string, docID uint) {
	email = models.NormalizeEmail(email)
	if f.acks[batchID] == nil {
		f.acks[batchID] = make(map[string]map[uint]time.Time)
	}
	if f.acks[batchID][email] == nil {
		f.acks[batchID][email] = make(map[uint]time.Time)
	}
	f.acks[batchID][email][docID] = time.Now()
}

func (f *fakeStore) ackAll(batchID uint, email string) {
	for _, d := range f.docs[batchID] {
		f.ack(batchID, email, d.ID)
	}
}

func (f *fakeStore) Batch(id uint) (*models.Batch, error) {
	b, ok := f.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %d not found", id)
	}
	return b, nil
}

func (f *fakeStore) Documents(batchID uint) ([]models.Document, error) {
	return f.docs[batchID], nil
}

func (f *fakeStore) CountDocuments(batchID uint) (int64, error) {
	return int64(len(f.docs[batchID])), nil
}

func (f *fakeStore) Recipients(batchID uint) ([]models.Recipient, error) {
	return f.recipients[batchID], nil
}

func (f *fakeStore) Recipient(batchID uint, email string) (*models.Recipient, error) {
	email = models.NormalizeEmail(email)
	for i := range f.recipients[batchID] {
		if models.NormalizeEmail(f.recipients[batchID][i].Email) == email {
			return &f.recipients[batchID][i], nil
		}
	}
	return nil, fmt.Errorf("recipient %s not found", email)
}

func (f *fakeStore) CountAcknowledgements(batchID uint, email string) (int64, error) {
	if email != "" {
		return int64(len(f.acks[batchID][models.NormalizeEmail(email)])), nil
	}
	var total int64
	for _, byDoc := range f.acks[batchID] {
		total += int64(len(byDoc))
	}
	return total, nil
}

func (f *fakeStore) AcknowledgedDocumentIDs(batchID uint, email string) ([]uint, error) {
	var ids []uint
	for id := range f.acks[batchID][models.NormalizeEmail(email)] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) LastAcknowledgedAt(batchID uint, email string) (*time.Time, error) {
	byDoc := f.acks[batchID][models.NormalizeEmail(email)]
	if len(byDoc) == 0 {
		return nil, fmt.Errorf("no acknowledgements")
	}
	var last time.Time
	for _, t := range byDoc {
		if t.After(last) {
			last = t
		}
	}
	return &last, nil
}

func (f *fakeStore) BusinessName(id uint) (string, error) {
	name, ok := f.businesses[id]
	if !ok {
		return "", fmt.Errorf("business %d not found", id)
	}
	return name, nil
}
