package services

import (
	"encoding/base64"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ackportal/backend/internal/models"
)

func newTestAssembler(fs *fakeStore) *Assembler {
	return &Assembler{
		store:      fs,
		resolver:   NewContentResolver(),
		completion: newCompletionService(fs),
	}
}

func decodeCSV(t *testing.T, att Attachment) [][]string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(att.Content)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestDecodedSize(t *testing.T) {
	att := Attachment{Content: base64.StdEncoding.EncodeToString(make([]byte, 3000))}
	assert.Equal(t, 3000, att.DecodedSize())
	assert.Equal(t, 0, Attachment{}.DecodedSize())
}

func TestDocumentAttachmentsFromLocalFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0644))

	fs := newFakeStore()
	a := newTestAssembler(fs)

	docs := []models.Document{
		{ID: 1, Title: "Travel Policy", LocalPath: path},
	}

	atts := a.DocumentAttachments(docs)

	require.Len(t, atts, 1)
	assert.Equal(t, "Travel Policy", atts[0].Name)
	assert.Equal(t, "application/pdf", atts[0].ContentType)
	raw, err := base64.StdEncoding.DecodeString(atts[0].Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(raw))
}

func TestDocumentAttachmentsOmitFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "ok.txt")
	require.NoError(t, os.WriteFile(good, []byte("hello"), 0644))

	fs := newFakeStore()
	a := newTestAssembler(fs)

	docs := []models.Document{
		{ID: 1, Title: "Good", LocalPath: good},
		{ID: 2, Title: "Missing", LocalPath: filepath.Join(dir, "nope.txt")},
		{ID: 3, Title: "No source"},
	}

	atts := a.DocumentAttachments(docs)

	require.Len(t, atts, 1)
	assert.Equal(t, "Good", atts[0].Name)
}

func TestUserCompletionCSV(t *testing.T) {
	fs := newFakeStore()
	batch := fs.addBatch(1, "Onboarding")
	fs.addDocs(1, 2)
	fs.businesses[5] = "Acme West"
	businessID := uint(5)
	fs.recipients[1] = append(fs.recipients[1], models.Recipient{
		ID:         1,
		BatchID:    1,
		Email:      "jo@example.com",
		FullName:   "Jo Smith",
		Department: "Finance",
		BusinessID: &businessID,
	})
	fs.ackAll(1, "jo@example.com")

	a := newTestAssembler(fs)
	att, err := a.UserCompletionCSV(batch, "Jo@Example.com")
	require.NoError(t, err)

	assert.Equal(t, "completion-jo@example.com.csv", att.Name)
	assert.Equal(t, "text/csv", att.ContentType)

	rows := decodeCSV(t, att)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "jo@example.com", rows[1][0])
	assert.Equal(t, "Jo Smith", rows[1][1])
	assert.Equal(t, "Finance", rows[1][2])
	assert.Equal(t, "Acme West", rows[1][5])
	assert.NotEmpty(t, rows[1][7], "completed at timestamp present")
}

func TestUserCompletionCSVUnknownRecipient(t *testing.T) {
	fs := newFakeStore()
	batch := fs.addBatch(1, "Onboarding")

	a := newTestAssembler(fs)
	att, err := a.UserCompletionCSV(batch, "ghost@example.com")
	require.NoError(t, err)

	rows := decodeCSV(t, att)
	require.Len(t, rows, 2)
	assert.Equal(t, "ghost@example.com", rows[1][0])
	assert.Equal(t, "", rows[1][1], "no name for an off-roster acknowledger")
}

func TestBatchRosterCSVOnlyCompleted(t *testing.T) {
	fs := newFakeStore()
	batch := fs.addBatch(1, "Policies")
	fs.addDocs(1, 2)
	fs.addRecipient(1, "done@example.com")
	fs.addRecipient(1, "partial@example.com")
	fs.addRecipient(1, "DONE@example.com") // duplicate, different case
	fs.ackAll(1, "done@example.com")
	fs.ack(1, "partial@example.com", 1)

	a := newTestAssembler(fs)
	att, err := a.BatchRosterCSV(batch)
	require.NoError(t, err)

	assert.Equal(t, "roster-batch-1.csv", att.Name)
	rows := decodeCSV(t, att)
	require.Len(t, rows, 2, "header plus the single completed recipient")
	assert.Equal(t, "done@example.com", rows[1][0])
}
