package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ackportal/backend/internal/models"
)

// fakeLedger implements Ledger in memory with the same claim semantics as
// the milestone table: one claim per key, failed claims reopen.
type fakeLedger struct {
	status map[string]models.MilestoneStatus
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{status: make(map[string]models.MilestoneStatus)}
}

func ledgerKey(batchID uint, email string) string {
	return fmt.Sprintf("%d:%s", batchID, email)
}

func (l *fakeLedger) Claim(batchID uint, email string, kind models.MilestoneKind) (bool, error) {
	key := ledgerKey(batchID, email)
	if st, ok := l.status[key]; ok && st != models.MilestoneFailed {
		return false, nil
	}
	l.status[key] = models.MilestonePending
	return true, nil
}

func (l *fakeLedger) MarkNotified(batchID uint, email string) error {
	l.status[ledgerKey(batchID, email)] = models.MilestoneNotified
	return nil
}

func (l *fakeLedger) MarkFailed(batchID uint, email string) error {
	l.status[ledgerKey(batchID, email)] = models.MilestoneFailed
	return nil
}

type dispatchedCall struct {
	Recipients  []string
	Subject     string
	Body        string
	Attachments []Attachment
	Opts        DispatchOptions
}

type fakeDispatcher struct {
	calls  []dispatchedCall
	result DispatchResult
}

func (d *fakeDispatcher) Dispatch(recipients []string, subject, body string, attachments []Attachment, opts DispatchOptions) DispatchResult {
	d.calls = append(d.calls, dispatchedCall{
		Recipients:  recipients,
		Subject:     subject,
		Body:        body,
		Attachments: attachments,
		Opts:        opts,
	})
	return d.result
}

func newTestPipeline(fs *fakeStore) (*CompletionPipeline, *fakeDispatcher, *fakeLedger) {
	dispatcher := &fakeDispatcher{result: DispatchResult{Sent: 1}}
	ledger := newFakeLedger()
	completion := newCompletionService(fs)
	p := &CompletionPipeline{
		store:      fs,
		completion: completion,
		assembler:  &Assembler{store: fs, resolver: NewContentResolver(), completion: completion},
		dispatcher: dispatcher,
		ledger:     ledger,
	}
	return p, dispatcher, ledger
}

func TestOnAcknowledgedNotCompleteSendsNothing(t *testing.T) {
	fs := newFakeStore()
	fs.addBatch(1, "Policies")
	fs.addDocs(1, 2)
	fs.addRecipient(1, "a@example.com")
	fs.ack(1, "a@example.com", 1)

	p, dispatcher, _ := newTestPipeline(fs)
	p.OnAcknowledged(1, "a@example.com")

	assert.Empty(t, dispatcher.calls)
}

func TestOnAcknowledgedUserCompletion(t *testing.T) {
	fs := newFakeStore()
	fs.addBatch(1, "Policies")
	fs.addDocs(1, 2)
	fs.addRecipient(1, "a@example.com")
	fs.addRecipient(1, "b@example.com")
	fs.ackAll(1, "a@example.com")

	p, dispatcher, ledger := newTestPipeline(fs)
	p.OnAcknowledged(1, "a@example.com")

	require.Len(t, dispatcher.calls, 1, "user milestone only, batch not complete")
	call := dispatcher.calls[0]
	assert.Equal(t, "user_completed", call.Opts.Kind)
	assert.Contains(t, call.Subject, "a@example.com")
	require.Len(t, call.Attachments, 1, "completion CSV; documents have no content source")
	assert.Contains(t, call.Attachments[0].Name, "completion-a@example.com")
	assert.Equal(t, models.MilestoneNotified, ledger.status[ledgerKey(1, "a@example.com")])
}

func TestOnAcknowledgedIsIdempotent(t *testing.T) {
	fs := newFakeStore()
	fs.addBatch(1, "Policies")
	fs.addDocs(1, 1)
	fs.addRecipient(1, "a@example.com")
	fs.addRecipient(1, "b@example.com")
	fs.ackAll(1, "a@example.com")

	p, dispatcher, _ := newTestPipeline(fs)
	p.OnAcknowledged(1, "a@example.com")
	p.OnAcknowledged(1, "a@example.com")
	p.OnAcknowledged(1, "A@Example.com")

	assert.Len(t, dispatcher.calls, 1, "repeat acknowledgements never re-notify")
}

func TestOnAcknowledgedBatchCompletion(t *testing.T) {
	fs := newFakeStore()
	fs.addBatch(1, "Policies")
	fs.addDocs(1, 1)
	fs.addRecipient(1, "a@example.com")
	fs.addRecipient(1, "b@example.com")
	fs.ackAll(1, "a@example.com")

	p, dispatcher, ledger := newTestPipeline(fs)
	p.OnAcknowledged(1, "a@example.com")
	require.Len(t, dispatcher.calls, 1)

	fs.ackAll(1, "b@example.com")
	p.OnAcknowledged(1, "b@example.com")

	require.Len(t, dispatcher.calls, 3, "second user milestone plus the batch milestone")
	batchCall := dispatcher.calls[2]
	assert.Equal(t, "batch_completed", batchCall.Opts.Kind)
	assert.Contains(t, batchCall.Subject, "Batch completed")
	require.Len(t, batchCall.Attachments, 1)
	assert.Equal(t, "roster-batch-1.csv", batchCall.Attachments[0].Name)
	assert.Equal(t, models.MilestoneNotified, ledger.status[ledgerKey(1, "")])
}

func TestOnAcknowledgedClaimLost(t *testing.T) {
	fs := newFakeStore()
	fs.addBatch(1, "Policies")
	fs.addDocs(1, 1)
	fs.addRecipient(1, "a@example.com")
	fs.addRecipient(1, "b@example.com")
	fs.ackAll(1, "a@example.com")

	p, dispatcher, ledger := newTestPipeline(fs)
	ledger.status[ledgerKey(1, "a@example.com")] = models.MilestoneNotified

	p.OnAcknowledged(1, "a@example.com")

	assert.Empty(t, dispatcher.calls, "already-notified milestone is never re-dispatched")
}

func TestFailedMilestoneIsRetried(t *testing.T) {
	fs := newFakeStore()
	fs.addBatch(1, "Policies")
	fs.addDocs(1, 1)
	fs.addRecipient(1, "a@example.com")
	fs.addRecipient(1, "b@example.com")
	fs.ackAll(1, "a@example.com")

	p, dispatcher, ledger := newTestPipeline(fs)
	dispatcher.result = DispatchResult{Failed: 1}

	p.OnAcknowledged(1, "a@example.com")
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, models.MilestoneFailed, ledger.status[ledgerKey(1, "a@example.com")])

	dispatcher.result = DispatchResult{Sent: 1}
	p.OnAcknowledged(1, "a@example.com")

	require.Len(t, dispatcher.calls, 2, "failed milestone reopens for the next acknowledgement")
	assert.Equal(t, models.MilestoneNotified, ledger.status[ledgerKey(1, "a@example.com")])
}

func TestPartialDispatchCountsAsNotified(t *testing.T) {
	fs := newFakeStore()
	fs.addBatch(1, "Policies")
	fs.addDocs(1, 1)
	fs.addRecipient(1, "a@example.com")
	fs.addRecipient(1, "b@example.com")
	fs.ackAll(1, "a@example.com")

	p, _, ledger := newTestPipeline(fs)
	p.dispatcher.(*fakeDispatcher).result = DispatchResult{Sent: 2, Failed: 1}

	p.OnAcknowledged(1, "a@example.com")

	assert.Equal(t, models.MilestoneNotified, ledger.status[ledgerKey(1, "a@example.com")])
}

func TestOffRosterAcknowledgerStillNotifies(t *testing.T) {
	fs := newFakeStore()
	fs.addBatch(1, "Policies")
	fs.addDocs(1, 1)
	fs.addRecipient(1, "a@example.com")
	// stranger acknowledged without being on the roster
	fs.ack(1, "stranger@example.com", 1)

	p, dispatcher, _ := newTestPipeline(fs)
	p.OnAcknowledged(1, "stranger@example.com")

	require.Len(t, dispatcher.calls, 1)
	assert.Contains(t, dispatcher.calls[0].Subject, "stranger@example.com")
}

func TestNotifyAssignment(t *testing.T) {
	fs := newFakeStore()
	batch := fs.addBatch(1, "Policies")
	fs.addDocs(1, 1)

	p, dispatcher, _ := newTestPipeline(fs)
	result := p.NotifyAssignment(batch, []string{"new@example.com"})

	assert.Equal(t, 1, result.Sent)
	require.Len(t, dispatcher.calls, 1)
	call := dispatcher.calls[0]
	assert.Equal(t, "assignment", call.Opts.Kind)
	assert.Equal(t, []string{"new@example.com"}, call.Recipients)
	assert.Contains(t, call.Subject, "Action Required")
}
