package services

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"log"

	"github.com/ackportal/backend/internal/models"
)

// Attachment is one in-memory attachment ready for dispatch. Content is
// base64-encoded.
type Attachment struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

// DecodedSize estimates the decoded byte size from the base64 length without
// decoding
func (a Attachment) DecodedSize() int {
	return len(a.Content) * 3 / 4
}

var csvHeader = []string{"Email", "Name", "Department", "Job Title", "Location", "Business", "Group", "Completed At"}

// Assembler builds the attachment list for a notification: document contents
// resolved from their storage backends plus a synthesized CSV summary
type Assembler struct {
	store      Store
	resolver   *ContentResolver
	completion *CompletionService
}

// NewAssembler creates an assembler backed by the database and the default
// content resolver
func NewAssembler() *Assembler {
	store := NewStore()
	return &Assembler{
		store:      store,
		resolver:   NewContentResolver(),
		completion: &CompletionService{store: store, progress: &ProgressService{store: store}},
	}
}

// DocumentAttachments resolves each document's bytes into an attachment.
// A failed fetch is logged and that attachment omitted; a partial set never
// blocks the notification.
func (a *Assembler) DocumentAttachments(docs []models.Document) []Attachment {
	var out []Attachment
	for i := range docs {
		doc := &docs[i]
		data, contentType, err := a.resolver.Fetch(doc)
		if err != nil {
			log.Printf("Assembler: skipping document %d (%s, source=%s): %v",
				doc.ID, doc.Title, DetectSource(doc), err)
			continue
		}
		out = append(out, Attachment{
			Name:        doc.FileName(),
			Content:     base64.StdEncoding.EncodeToString(data),
			ContentType: contentType,
		})
	}
	return out
}

// UserCompletionCSV synthesizes the one-row summary for a recipient who just
// completed a batch
func (a *Assembler) UserCompletionCSV(batch *models.Batch, email string) (Attachment, error) {
	email = models.NormalizeEmail(email)

	recipient, err := a.store.Recipient(batch.ID, email)
	if err != nil {
		// Unknown recipient entity: still emit the row with what we have
		recipient = &models.Recipient{BatchID: batch.ID, Email: email}
	}

	rows := [][]string{a.recipientRow(recipient)}
	name := fmt.Sprintf("completion-%s.csv", email)
	return a.csvAttachment(name, rows), nil
}

// BatchRosterCSV synthesizes the full roster of completed recipients for a
// batch-completion notification
func (a *Assembler) BatchRosterCSV(batch *models.Batch) (Attachment, error) {
	recipients, err := a.store.Recipients(batch.ID)
	if err != nil {
		return Attachment{}, err
	}

	seen := make(map[string]bool, len(recipients))
	var rows [][]string
	for i := range recipients {
		r := &recipients[i]
		email := models.NormalizeEmail(r.Email)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true

		done, err := a.completion.UserCompleted(batch.ID, email)
		if err != nil {
			return Attachment{}, err
		}
		if !done {
			continue
		}
		rows = append(rows, a.recipientRow(r))
	}

	name := fmt.Sprintf("roster-batch-%d.csv", batch.ID)
	return a.csvAttachment(name, rows), nil
}

// recipientRow builds one CSV row, enriched with the resolved business name
// and the recipient's last acknowledgement time. Missing optional fields
// render blank.
func (a *Assembler) recipientRow(r *models.Recipient) []string {
	business := ""
	if r.BusinessID != nil {
		name, err := a.store.BusinessName(*r.BusinessID)
		if err == nil {
			business = name
		}
	}

	completedAt := ""
	if t, err := a.store.LastAcknowledgedAt(r.BatchID, r.Email); err == nil && t != nil {
		completedAt = t.Format("2006-01-02 15:04:05")
	}

	return []string{
		r.Email,
		r.FullName,
		r.Department,
		r.JobTitle,
		r.Location,
		business,
		r.GroupName,
		completedAt,
	}
}

func (a *Assembler) csvAttachment(name string, rows [][]string) Attachment {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(csvHeader)
	for _, row := range rows {
		w.Write(row)
	}
	w.Flush()

	return Attachment{
		Name:        name,
		Content:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		ContentType: "text/csv",
	}
}
