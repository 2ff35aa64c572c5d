package services

import (
	"math"
)

// Progress summarizes acknowledgement state for a batch, optionally narrowed
// to a single recipient email
type Progress struct {
	Acknowledged int `json:"acknowledged"`
	Total        int `json:"total"`
	Percent      int `json:"percent"`
}

// ProgressService computes acknowledgement progress. Read-only, safe to call
// repeatedly.
type ProgressService struct {
	store Store
}

// NewProgressService creates a progress service backed by the database
func NewProgressService() *ProgressService {
	return &ProgressService{store: NewStore()}
}

// Progress returns {acknowledged, total, percent} for a batch. When email is
// non-empty only that recipient's acknowledgements are counted. Percent is 0
// for a batch with no documents.
func (s *ProgressService) Progress(batchID uint, email string) (Progress, error) {
	total, err := s.store.CountDocuments(batchID)
	if err != nil {
		return Progress{}, err
	}

	acknowledged, err := s.store.CountAcknowledgements(batchID, email)
	if err != nil {
		return Progress{}, err
	}

	percent := 0
	if total > 0 {
		percent = int(math.Round(float64(acknowledged) / float64(total) * 100))
	}

	return Progress{
		Acknowledged: int(acknowledged),
		Total:        int(total),
		Percent:      percent,
	}, nil
}
