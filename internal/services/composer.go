package services

import (
	"fmt"
	"strings"

	"github.com/ackportal/backend/internal/models"
)

// Composer builds subject and HTML body for the three notification kinds:
// batch assignment, user completion, and batch completion. Pure string
// templating; missing optional fields render as omitted rows.
type Composer struct {
	AppURL      string
	CompanyName string
}

// NewComposer creates a composer from the configured application URL and
// company name settings
func NewComposer() *Composer {
	return &Composer{
		AppURL:      getSettingString("app_url", "http://localhost:3000"),
		CompanyName: getSettingString("company_name", "Acknowledgement Portal"),
	}
}

const assignmentTemplate = `
<h2>Documents Awaiting Your Acknowledgement</h2>
<p>You have been assigned the document batch <strong>{{batch_name}}</strong>.</p>
{{description_row}}
{{due_row}}
<p>Please review each document and record your acknowledgement in the portal:</p>
<p><a href="{{batch_url}}">{{batch_url}}</a></p>
<p>The documents are attached for reference.</p>
<hr>
<p><small>{{company_name}}</small></p>
`

const userCompletionTemplate = `
<h2>Batch Completed by Recipient</h2>
<p><strong>{{recipient}}</strong> has acknowledged every document in batch <strong>{{batch_name}}</strong>.</p>
{{name_row}}
{{department_row}}
{{job_title_row}}
{{location_row}}
<p>A completion summary is attached.</p>
<p><a href="{{batch_url}}">View batch progress</a></p>
<hr>
<p><small>{{company_name}}</small></p>
`

const batchCompletionTemplate = `
<h2>Batch Fully Acknowledged</h2>
<p>All <strong>{{recipient_count}}</strong> recipients have acknowledged every document in batch <strong>{{batch_name}}</strong>.</p>
{{due_row}}
<p>The full completion roster is attached.</p>
<p><a href="{{batch_url}}">View batch</a></p>
<hr>
<p><small>{{company_name}}</small></p>
`

// Assignment builds the batch-assignment message
func (c *Composer) Assignment(batch *models.Batch) (string, string) {
	subject := fmt.Sprintf("%s - Action Required: %s", c.CompanyName, batch.Name)

	body := c.render(assignmentTemplate, batch, map[string]string{
		"{{description_row}}": optionalRow("", batch.Description),
		"{{due_row}}":         dueRow(batch),
	})
	return subject, body
}

// UserCompletion builds the message sent when one recipient completes a batch
func (c *Composer) UserCompletion(batch *models.Batch, recipient *models.Recipient) (string, string) {
	subject := fmt.Sprintf("%s - %s completed %s", c.CompanyName, recipient.Email, batch.Name)

	body := c.render(userCompletionTemplate, batch, map[string]string{
		"{{recipient}}":      recipient.Email,
		"{{name_row}}":       optionalRow("Name", recipient.FullName),
		"{{department_row}}": optionalRow("Department", recipient.Department),
		"{{job_title_row}}":  optionalRow("Job title", recipient.JobTitle),
		"{{location_row}}":   optionalRow("Location", recipient.Location),
	})
	return subject, body
}

// BatchCompletion builds the message sent when every recipient has completed
// the batch
func (c *Composer) BatchCompletion(batch *models.Batch, recipientCount int) (string, string) {
	subject := fmt.Sprintf("%s - Batch completed: %s", c.CompanyName, batch.Name)

	body := c.render(batchCompletionTemplate, batch, map[string]string{
		"{{recipient_count}}": fmt.Sprintf("%d", recipientCount),
		"{{due_row}}":         dueRow(batch),
	})
	return subject, body
}

func (c *Composer) render(template string, batch *models.Batch, extra map[string]string) string {
	replacements := map[string]string{
		"{{batch_name}}":   batch.Name,
		"{{batch_url}}":    fmt.Sprintf("%s/batches/%d", strings.TrimRight(c.AppURL, "/"), batch.ID),
		"{{company_name}}": c.CompanyName,
	}
	for key, value := range extra {
		replacements[key] = value
	}

	result := template
	for key, value := range replacements {
		result = strings.ReplaceAll(result, key, value)
	}
	return strings.TrimSpace(result)
}

// optionalRow renders a labeled paragraph, or nothing when the value is empty
func optionalRow(label, value string) string {
	if value == "" {
		return ""
	}
	if label == "" {
		return fmt.Sprintf("<p>%s</p>", value)
	}
	return fmt.Sprintf("<p><strong>%s:</strong> %s</p>", label, value)
}

func dueRow(batch *models.Batch) string {
	if batch.DueDate.IsZero() {
		return ""
	}
	return optionalRow("Due date", batch.DueDate.Format("2006-01-02"))
}
