package services

import (
	"github.com/ackportal/backend/internal/models"
)

// CompletionService evaluates the two completion milestones on top of the
// progress calculator. Both predicates are recomputed from scratch on every
// call; the caller decides whether a milestone is newly crossed by consulting
// the milestone ledger.
type CompletionService struct {
	store    Store
	progress *ProgressService
}

// NewCompletionService creates a completion service backed by the database
func NewCompletionService() *CompletionService {
	store := NewStore()
	return &CompletionService{
		store:    store,
		progress: &ProgressService{store: store},
	}
}

// UserCompleted reports whether a recipient has acknowledged every document
// in the batch. A batch with no documents is never completed.
func (s *CompletionService) UserCompleted(batchID uint, email string) (bool, error) {
	p, err := s.progress.Progress(batchID, models.NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	return p.Total > 0 && p.Acknowledged >= p.Total, nil
}

// BatchCompleted reports whether every recipient of the batch has completed
// it. The recipient set is the unique, non-empty, lower-cased email set; an
// empty set or a batch with no documents is never completed.
func (s *CompletionService) BatchCompleted(batchID uint) (bool, error) {
	total, err := s.store.CountDocuments(batchID)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}

	recipients, err := s.store.Recipients(batchID)
	if err != nil {
		return false, err
	}

	emails := UniqueEmails(recipients)
	if len(emails) == 0 {
		return false, nil
	}

	for _, email := range emails {
		done, err := s.UserCompleted(batchID, email)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
	}

	return true, nil
}

// UniqueEmails returns the unique, non-empty, lower-cased email set of a
// recipient list, preserving first-seen order
func UniqueEmails(recipients []models.Recipient) []string {
	seen := make(map[string]bool, len(recipients))
	var out []string
	for _, r := range recipients {
		email := models.NormalizeEmail(r.Email)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}
	return out
}
