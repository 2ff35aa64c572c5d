package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ackportal/backend/internal/models"
)

func testComposer() *Composer {
	return &Composer{
		AppURL:      "https://portal.example.com/",
		CompanyName: "Acme Corp",
	}
}

func TestAssignmentMessage(t *testing.T) {
	batch := &models.Batch{
		Name:        "Q3 Policies",
		Description: "Updated travel policy",
		DueDate:     time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
	}
	batch.ID = 42

	subject, body := testComposer().Assignment(batch)

	assert.Equal(t, "Acme Corp - Action Required: Q3 Policies", subject)
	assert.Contains(t, body, "Q3 Policies")
	assert.Contains(t, body, "Updated travel policy")
	assert.Contains(t, body, "Due date:</strong> 2026-09-15")
	assert.Contains(t, body, "https://portal.example.com/batches/42")
	assert.NotContains(t, body, "{{", "all placeholders replaced")
}

func TestAssignmentOmitsEmptyRows(t *testing.T) {
	batch := &models.Batch{Name: "Bare"}
	batch.ID = 1

	_, body := testComposer().Assignment(batch)

	assert.NotContains(t, body, "Due date")
	assert.NotContains(t, body, "{{")
}

func TestUserCompletionMessage(t *testing.T) {
	batch := &models.Batch{Name: "Onboarding"}
	batch.ID = 7
	recipient := &models.Recipient{
		Email:      "jo@example.com",
		FullName:   "Jo Smith",
		Department: "Finance",
	}

	subject, body := testComposer().UserCompletion(batch, recipient)

	assert.Equal(t, "Acme Corp - jo@example.com completed Onboarding", subject)
	assert.Contains(t, body, "jo@example.com")
	assert.Contains(t, body, "Name:</strong> Jo Smith")
	assert.Contains(t, body, "Department:</strong> Finance")
	assert.NotContains(t, body, "Job title")
	assert.NotContains(t, body, "Location")
	assert.NotContains(t, body, "{{")
}

func TestBatchCompletionMessage(t *testing.T) {
	batch := &models.Batch{Name: "Safety Training"}
	batch.ID = 3

	subject, body := testComposer().BatchCompletion(batch, 25)

	assert.Equal(t, "Acme Corp - Batch completed: Safety Training", subject)
	assert.Contains(t, body, "<strong>25</strong> recipients")
	assert.Contains(t, body, "https://portal.example.com/batches/3")
	assert.NotContains(t, body, "{{")
}

func TestBatchURLTrimsTrailingSlash(t *testing.T) {
	batch := &models.Batch{Name: "X"}
	batch.ID = 9

	_, body := testComposer().Assignment(batch)

	assert.Contains(t, body, "https://portal.example.com/batches/9")
	assert.False(t, strings.Contains(body, "example.com//batches"))
}

func TestOptionalRow(t *testing.T) {
	assert.Equal(t, "", optionalRow("Label", ""))
	assert.Equal(t, "<p>free text</p>", optionalRow("", "free text"))
	assert.Equal(t, "<p><strong>Dept:</strong> Sales</p>", optionalRow("Dept", "Sales"))
}
