package services

import (
	"log"

	"github.com/ackportal/backend/internal/models"
)

// NotificationDispatcher is the dispatch surface the pipeline depends on.
// Satisfied by Dispatcher; tests substitute a recording fake.
type NotificationDispatcher interface {
	Dispatch(recipients []string, subject, body string, attachments []Attachment, opts DispatchOptions) DispatchResult
}

// CompletionPipeline reacts to acknowledgements: it detects newly crossed
// completion milestones, claims them in the ledger, assembles attachments,
// composes the notification and hands it to the dispatcher. It also sends
// assignment notifications when recipients are added to a batch.
type CompletionPipeline struct {
	store      Store
	completion *CompletionService
	assembler  *Assembler
	dispatcher NotificationDispatcher
	ledger     Ledger
}

// NewCompletionPipeline wires the pipeline to the database-backed services
func NewCompletionPipeline() *CompletionPipeline {
	return &CompletionPipeline{
		store:      NewStore(),
		completion: NewCompletionService(),
		assembler:  NewAssembler(),
		dispatcher: NewDispatcher(),
		ledger:     NewMilestoneLedger(),
	}
}

// OnAcknowledged runs after an acknowledgement is recorded. Safe to call
// repeatedly and concurrently for the same (batch, email): the ledger
// guarantees each milestone notification goes out once.
func (p *CompletionPipeline) OnAcknowledged(batchID uint, email string) {
	email = models.NormalizeEmail(email)

	done, err := p.completion.UserCompleted(batchID, email)
	if err != nil {
		log.Printf("Pipeline: user completion check batch=%d email=%s: %v", batchID, email, err)
		return
	}
	if done {
		p.notifyUserCompleted(batchID, email)
	}

	batchDone, err := p.completion.BatchCompleted(batchID)
	if err != nil {
		log.Printf("Pipeline: batch completion check batch=%d: %v", batchID, err)
		return
	}
	if batchDone {
		p.notifyBatchCompleted(batchID)
	}
}

func (p *CompletionPipeline) notifyUserCompleted(batchID uint, email string) {
	won, err := p.ledger.Claim(batchID, email, models.MilestoneUserCompleted)
	if err != nil {
		log.Printf("Pipeline: claim user milestone batch=%d email=%s: %v", batchID, email, err)
		return
	}
	if !won {
		return
	}

	batch, err := p.store.Batch(batchID)
	if err != nil {
		log.Printf("Pipeline: load batch %d: %v", batchID, err)
		p.ledger.MarkFailed(batchID, email)
		return
	}

	recipient, err := p.store.Recipient(batchID, email)
	if err != nil {
		// Acknowledgements can arrive for addresses not on the roster;
		// notify with what we know.
		recipient = &models.Recipient{BatchID: batchID, Email: email}
	}

	attachments := p.milestoneAttachments(batch, email)
	subject, body := NewComposer().UserCompletion(batch, recipient)

	result := p.dispatcher.Dispatch(getNotificationRecipients(), subject, body, attachments, DispatchOptions{
		BatchID: &batch.ID,
		Kind:    string(models.MilestoneUserCompleted),
	})
	p.settle(batchID, email, result)
}

func (p *CompletionPipeline) notifyBatchCompleted(batchID uint) {
	won, err := p.ledger.Claim(batchID, "", models.MilestoneBatchCompleted)
	if err != nil {
		log.Printf("Pipeline: claim batch milestone batch=%d: %v", batchID, err)
		return
	}
	if !won {
		return
	}

	batch, err := p.store.Batch(batchID)
	if err != nil {
		log.Printf("Pipeline: load batch %d: %v", batchID, err)
		p.ledger.MarkFailed(batchID, "")
		return
	}

	recipients, err := p.store.Recipients(batchID)
	if err != nil {
		log.Printf("Pipeline: load recipients batch=%d: %v", batchID, err)
		p.ledger.MarkFailed(batchID, "")
		return
	}

	var attachments []Attachment
	if roster, err := p.assembler.BatchRosterCSV(batch); err != nil {
		log.Printf("Pipeline: roster CSV batch=%d: %v", batchID, err)
	} else {
		attachments = append(attachments, roster)
	}

	subject, body := NewComposer().BatchCompletion(batch, len(UniqueEmails(recipients)))

	result := p.dispatcher.Dispatch(getNotificationRecipients(), subject, body, attachments, DispatchOptions{
		BatchID: &batch.ID,
		Kind:    string(models.MilestoneBatchCompleted),
	})
	p.settle(batchID, "", result)
}

// milestoneAttachments bundles the batch documents plus the per-user
// completion CSV. Individual failures are logged and omitted rather than
// blocking the notification.
func (p *CompletionPipeline) milestoneAttachments(batch *models.Batch, email string) []Attachment {
	docs, err := p.store.Documents(batch.ID)
	if err != nil {
		log.Printf("Pipeline: load documents batch=%d: %v", batch.ID, err)
		docs = nil
	}

	attachments := p.assembler.DocumentAttachments(docs)
	if csv, err := p.assembler.UserCompletionCSV(batch, email); err != nil {
		log.Printf("Pipeline: completion CSV batch=%d email=%s: %v", batch.ID, email, err)
	} else {
		attachments = append(attachments, csv)
	}
	return attachments
}

func (p *CompletionPipeline) settle(batchID uint, email string, result DispatchResult) {
	if result.Sent == 0 && result.Failed > 0 {
		if err := p.ledger.MarkFailed(batchID, email); err != nil {
			log.Printf("Pipeline: mark failed batch=%d email=%s: %v", batchID, email, err)
		}
		return
	}
	if err := p.ledger.MarkNotified(batchID, email); err != nil {
		log.Printf("Pipeline: mark notified batch=%d email=%s: %v", batchID, email, err)
	}
}

// NotifyAssignment sends the assignment notification with the batch
// documents attached to the given recipient addresses. Called when
// recipients are added to an active batch; needs no ledger because adding
// a recipient is the single trigger.
func (p *CompletionPipeline) NotifyAssignment(batch *models.Batch, emails []string) DispatchResult {
	docs, err := p.store.Documents(batch.ID)
	if err != nil {
		log.Printf("Pipeline: load documents batch=%d: %v", batch.ID, err)
		docs = nil
	}

	attachments := p.assembler.DocumentAttachments(docs)
	subject, body := NewComposer().Assignment(batch)

	return p.dispatcher.Dispatch(emails, subject, body, attachments, DispatchOptions{
		BatchID: &batch.ID,
		Kind:    "assignment",
	})
}
