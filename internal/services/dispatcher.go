package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ackportal/backend/internal/database"
	"github.com/ackportal/backend/internal/models"
)

// Outbound message limits. A logical notification that exceeds any of them
// is split into parts rather than rejected.
const (
	MaxRecipientsPerMessage  = 90
	MaxAttachmentsPerMessage = 8
	MaxAttachmentBytes       = 15 * 1024 * 1024
)

// Mailer sends one physical message. Satisfied by EmailService.
type Mailer interface {
	Send(to []string, subject, htmlBody string, attachments []Attachment, cc, bcc []string) error
}

// DeliveryRecorder persists one delivery log row per physical message
type DeliveryRecorder interface {
	Record(entry *models.DeliveryLog) error
}

type gormDeliveryRecorder struct{}

func (gormDeliveryRecorder) Record(entry *models.DeliveryLog) error {
	return database.DB.Create(entry).Error
}

// DispatchOptions carries per-dispatch metadata and extra recipients
type DispatchOptions struct {
	BatchID *uint
	Kind    string
	CC      []string
	BCC     []string
}

// DispatchResult summarizes a dispatch: how many physical messages went out
// and how many failed
type DispatchResult struct {
	Sent   int
	Failed int
}

// Dispatcher splits a logical notification into physical messages that
// respect recipient and attachment limits, sends each one, and records the
// outcome. Chunks are independent: one failed chunk does not stop the rest.
type Dispatcher struct {
	mailer   Mailer
	recorder DeliveryRecorder
}

// NewDispatcher creates a dispatcher backed by the SMTP mailer and the
// delivery_logs table
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		mailer:   NewEmailService(),
		recorder: gormDeliveryRecorder{},
	}
}

// Dispatch sends subject/body with attachments to every recipient, chunked.
// Every recipient group receives the complete attachment set. Parts are
// numbered per recipient group, and the "(part i of n)" suffix appears only
// when the attachments had to be split: a recipient-only split is invisible
// to the reader, who still gets exactly one message.
func (d *Dispatcher) Dispatch(recipients []string, subject, body string, attachments []Attachment, opts DispatchOptions) DispatchResult {
	var result DispatchResult

	recipients = dedupeEmails(recipients)
	if len(recipients) == 0 {
		return result
	}

	recipientGroups := chunkRecipients(recipients, MaxRecipientsPerMessage)
	attachmentGroups := chunkAttachments(attachments, MaxAttachmentsPerMessage, MaxAttachmentBytes)
	partCount := len(attachmentGroups)

	for _, group := range recipientGroups {
		for i, atts := range attachmentGroups {
			part := i + 1
			partSubject := subject
			partBody := body
			if partCount > 1 {
				partSubject = fmt.Sprintf("%s (part %d of %d)", subject, part, partCount)
				partBody = body + partNote(part, partCount)
			}

			err := d.mailer.Send(group, partSubject, partBody, atts, opts.CC, opts.BCC)
			if err != nil {
				result.Failed++
				log.Printf("Dispatch: send failed (part %d of %d): %v", part, partCount, err)
			} else {
				result.Sent++
			}
			d.record(group, partSubject, atts, part, partCount, opts, err)
		}
	}

	return result
}

func (d *Dispatcher) record(group []string, subject string, atts []Attachment, part, partCount int, opts DispatchOptions, sendErr error) {
	now := time.Now()
	entry := &models.DeliveryLog{
		MessageID:      uuid.New().String(),
		BatchID:        opts.BatchID,
		Kind:           opts.Kind,
		Recipients:     strings.Join(group, ","),
		RecipientCount: len(group),
		Subject:        subject,
		Part:           part,
		PartCount:      partCount,
		Attachments:    len(atts),
		Status:         "sent",
		SentAt:         &now,
	}
	if sendErr != nil {
		entry.Status = "failed"
		entry.ErrorMessage = sendErr.Error()
		entry.SentAt = nil
	}
	if err := d.recorder.Record(entry); err != nil {
		log.Printf("Dispatch: failed to record delivery log: %v", err)
	}
}

// partNote is appended to the body of split messages so readers know more
// parts exist
func partNote(part, partCount int) string {
	return fmt.Sprintf(`<p style="color:#6b7280;font-size:12px;">This is part %d of %d. Remaining attachments arrive in separate messages.</p>`, part, partCount)
}

// chunkRecipients splits recipients into groups of at most size
func chunkRecipients(recipients []string, size int) [][]string {
	var groups [][]string
	for len(recipients) > size {
		groups = append(groups, recipients[:size])
		recipients = recipients[size:]
	}
	groups = append(groups, recipients)
	return groups
}

// chunkAttachments greedily packs attachments into groups bounded by count
// and total decoded size. A single attachment larger than maxBytes still
// ships, alone in its own group.
func chunkAttachments(attachments []Attachment, maxCount int, maxBytes int) [][]Attachment {
	if len(attachments) == 0 {
		return [][]Attachment{nil}
	}

	var groups [][]Attachment
	var current []Attachment
	currentBytes := 0

	for _, att := range attachments {
		size := att.DecodedSize()
		full := len(current) >= maxCount || (len(current) > 0 && currentBytes+size > maxBytes)
		if full {
			groups = append(groups, current)
			current = nil
			currentBytes = 0
		}
		current = append(current, att)
		currentBytes += size
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// dedupeEmails normalizes and deduplicates addresses, preserving order
func dedupeEmails(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	var out []string
	for _, e := range emails {
		norm := models.NormalizeEmail(e)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	return out
}
