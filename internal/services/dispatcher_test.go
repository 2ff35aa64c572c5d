package services

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ackportal/backend/internal/models"
)

type sentMessage struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

type fakeMailer struct {
	sent    []sentMessage
	failAll bool
}

func (m *fakeMailer) Send(to []string, subject, body string, attachments []Attachment, cc, bcc []string) error {
	if m.failAll {
		return fmt.Errorf("smtp down")
	}
	m.sent = append(m.sent, sentMessage{To: to, Subject: subject, Body: body, Attachments: attachments})
	return nil
}

type fakeRecorder struct {
	entries []*models.DeliveryLog
}

func (r *fakeRecorder) Record(entry *models.DeliveryLog) error {
	r.entries = append(r.entries, entry)
	return nil
}

func newTestDispatcher() (*Dispatcher, *fakeMailer, *fakeRecorder) {
	mailer := &fakeMailer{}
	recorder := &fakeRecorder{}
	return &Dispatcher{mailer: mailer, recorder: recorder}, mailer, recorder
}

func b64Attachment(name string, decodedSize int) Attachment {
	return Attachment{
		Name:        name,
		Content:     base64.StdEncoding.EncodeToString(make([]byte, decodedSize)),
		ContentType: "application/pdf",
	}
}

func emails(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("user%03d@example.com", i)
	}
	return out
}

func TestDispatchSingleMessage(t *testing.T) {
	d, mailer, recorder := newTestDispatcher()

	result := d.Dispatch(emails(3), "Subject", "<p>Body</p>", []Attachment{b64Attachment("a.pdf", 100)}, DispatchOptions{Kind: "assignment"})

	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Subject", mailer.sent[0].Subject, "no part suffix for a single message")
	assert.Len(t, mailer.sent[0].To, 3)
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, "sent", recorder.entries[0].Status)
	assert.Equal(t, 1, recorder.entries[0].PartCount)
}

func TestDispatchChunksRecipients(t *testing.T) {
	d, mailer, _ := newTestDispatcher()

	result := d.Dispatch(emails(200), "Subject", "body", nil, DispatchOptions{})

	assert.Equal(t, 3, result.Sent)
	require.Len(t, mailer.sent, 3)
	assert.Len(t, mailer.sent[0].To, 90)
	assert.Len(t, mailer.sent[1].To, 90)
	assert.Len(t, mailer.sent[2].To, 20)

	// Concatenation reproduces the original recipient list
	var all []string
	for _, msg := range mailer.sent {
		all = append(all, msg.To...)
	}
	assert.Equal(t, emails(200), all)

	// Each recipient still receives exactly one message, so nothing is a
	// "part" from the reader's perspective
	for _, msg := range mailer.sent {
		assert.Equal(t, "Subject", msg.Subject)
		assert.Equal(t, "body", msg.Body)
	}
}

func TestDispatchChunksAttachmentsByCount(t *testing.T) {
	d, mailer, _ := newTestDispatcher()

	var atts []Attachment
	for i := 0; i < 10; i++ {
		atts = append(atts, b64Attachment(fmt.Sprintf("doc%d.pdf", i), 100))
	}

	result := d.Dispatch(emails(1), "Subject", "body", atts, DispatchOptions{})

	assert.Equal(t, 2, result.Sent)
	require.Len(t, mailer.sent, 2)
	assert.Len(t, mailer.sent[0].Attachments, 8)
	assert.Len(t, mailer.sent[1].Attachments, 2)
	assert.Contains(t, mailer.sent[0].Body, "part 1 of 2")
}

func TestDispatchChunksAttachmentsBySize(t *testing.T) {
	d, mailer, _ := newTestDispatcher()

	// Three attachments of 8MB each: two fit under the 15MB cap, the third
	// spills into a second message
	atts := []Attachment{
		b64Attachment("a.pdf", 8<<20),
		b64Attachment("b.pdf", 6<<20),
		b64Attachment("c.pdf", 8<<20),
	}

	result := d.Dispatch(emails(1), "Subject", "body", atts, DispatchOptions{})

	assert.Equal(t, 2, result.Sent)
	require.Len(t, mailer.sent, 2)
	assert.Len(t, mailer.sent[0].Attachments, 2)
	assert.Len(t, mailer.sent[1].Attachments, 1)
}

func TestDispatchOversizeAttachmentShipsAlone(t *testing.T) {
	d, mailer, _ := newTestDispatcher()

	atts := []Attachment{
		b64Attachment("small.pdf", 100),
		b64Attachment("huge.pdf", 20<<20),
	}

	result := d.Dispatch(emails(1), "Subject", "body", atts, DispatchOptions{})

	assert.Equal(t, 2, result.Sent)
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "small.pdf", mailer.sent[0].Attachments[0].Name)
	require.Len(t, mailer.sent[1].Attachments, 1)
	assert.Equal(t, "huge.pdf", mailer.sent[1].Attachments[0].Name)
}

func TestDispatchPartsNumberedPerRecipientGroup(t *testing.T) {
	d, mailer, recorder := newTestDispatcher()

	var atts []Attachment
	for i := 0; i < 9; i++ {
		atts = append(atts, b64Attachment(fmt.Sprintf("doc%d.pdf", i), 10))
	}

	// 100 recipients (2 groups) x 9 attachments (2 groups) = 4 messages,
	// but every recipient group sees its own "part 1 of 2" / "part 2 of 2":
	// the recipient split never leaks into the part numbering
	result := d.Dispatch(emails(100), "Subject", "body", atts, DispatchOptions{})

	assert.Equal(t, 4, result.Sent)
	require.Len(t, mailer.sent, 4)
	wantParts := []string{"(part 1 of 2)", "(part 2 of 2)", "(part 1 of 2)", "(part 2 of 2)"}
	for i, msg := range mailer.sent {
		assert.Contains(t, msg.Subject, wantParts[i])
	}
	require.Len(t, recorder.entries, 4)
	for _, entry := range recorder.entries {
		assert.Equal(t, 2, entry.PartCount)
	}
}

func TestDispatchRecordsFailures(t *testing.T) {
	d, mailer, recorder := newTestDispatcher()
	mailer.failAll = true

	result := d.Dispatch(emails(2), "Subject", "body", nil, DispatchOptions{Kind: "user_completed"})

	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, "failed", recorder.entries[0].Status)
	assert.Contains(t, recorder.entries[0].ErrorMessage, "smtp down")
	assert.Nil(t, recorder.entries[0].SentAt)
}

func TestDispatchDeduplicatesRecipients(t *testing.T) {
	d, mailer, _ := newTestDispatcher()

	result := d.Dispatch([]string{"A@Example.com", "a@example.com", "b@example.com", ""}, "S", "b", nil, DispatchOptions{})

	assert.Equal(t, 1, result.Sent)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, mailer.sent[0].To)
}

func TestDispatchNoRecipients(t *testing.T) {
	d, mailer, recorder := newTestDispatcher()

	result := d.Dispatch(nil, "S", "b", nil, DispatchOptions{})

	assert.Equal(t, DispatchResult{}, result)
	assert.Empty(t, mailer.sent)
	assert.Empty(t, recorder.entries)
}

func TestChunkAttachmentsEmpty(t *testing.T) {
	groups := chunkAttachments(nil, 8, 100)
	require.Len(t, groups, 1)
	assert.Nil(t, groups[0])
}

func TestRecipientOnlySplitHasNoPartSuffix(t *testing.T) {
	d, mailer, _ := newTestDispatcher()

	d.Dispatch(emails(91), "Quarterly Policies", "body", nil, DispatchOptions{})

	require.Len(t, mailer.sent, 2)
	for _, msg := range mailer.sent {
		assert.Equal(t, "Quarterly Policies", msg.Subject)
		assert.NotContains(t, msg.Body, "part", "no multi-part note when every reader gets one message")
	}
}

func TestAttachmentSplitSubjectFormat(t *testing.T) {
	d, mailer, _ := newTestDispatcher()

	atts := []Attachment{
		b64Attachment("a.pdf", 100),
		b64Attachment("b.pdf", 20<<20),
	}
	d.Dispatch(emails(1), "Quarterly Policies", "body", atts, DispatchOptions{})

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "Quarterly Policies (part 1 of 2)", mailer.sent[0].Subject)
	assert.Equal(t, "Quarterly Policies (part 2 of 2)", mailer.sent[1].Subject)
	assert.Contains(t, mailer.sent[0].Body, "part 1 of 2")
}
