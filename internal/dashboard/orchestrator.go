package dashboard

import (
	"context"
	"errors"
	"fmt"

	"lexbill/internal/models"
)

// ErrBusy is returned when a user action is triggered while another one
// is still pending. The guard is advisory: background reconciliation
// (status checks, collection reloads) is exempt from it.
var ErrBusy = errors.New("another action is in progress")

// Orchestrator sequences user-triggered actions against the gateway and
// applies their results to the store. Every action runs Idle → Pending →
// Idle; on failure the store is left untouched and the error carries the
// gateway message for the UI to show verbatim.
//
// Like the store, the orchestrator is confined to a single goroutine.
type Orchestrator struct {
	gateway Gateway
	store   *Store
	busy    bool
	edit    *models.Summary
}

// NewOrchestrator creates an orchestrator over a store and gateway.
func NewOrchestrator(gateway Gateway, store *Store) *Orchestrator {
	return &Orchestrator{
		gateway: gateway,
		store:   store,
	}
}

// Store returns the store the orchestrator mutates.
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Busy reports whether a user action is pending. The UI disables the
// triggering controls while this is true.
func (o *Orchestrator) Busy() bool {
	return o.busy
}

func (o *Orchestrator) begin() error {
	if o.busy {
		return ErrBusy
	}
	o.busy = true
	return nil
}

func (o *Orchestrator) end() {
	o.busy = false
}

// RefreshStatus polls provider connectivity. It is exempt from the busy
// guard so background polling can interleave with user actions. A failed
// check resolves to safe disconnected defaults rather than stale state.
func (o *Orchestrator) RefreshStatus(ctx context.Context) models.ConnectionStatus {
	status, err := o.gateway.Status(ctx)
	if err != nil {
		status = models.ConnectionStatus{Gmail: false, Clio: false}
	}
	o.store.SetConnectionStatus(status)
	return status
}

// RefreshCounts reloads both collections and returns the derived counts.
// Exempt from the busy guard for the same reason as RefreshStatus.
func (o *Orchestrator) RefreshCounts(ctx context.Context) (models.Counts, error) {
	if err := o.LoadStoredEmails(ctx); err != nil {
		return o.store.Counts(), err
	}
	if err := o.LoadSummaries(ctx); err != nil {
		return o.store.Counts(), err
	}
	return o.store.Counts(), nil
}

// LoadStoredEmails reloads the email collection from the gateway. Exempt
// from the busy guard; used on view switches and after captures.
func (o *Orchestrator) LoadStoredEmails(ctx context.Context) error {
	emails, err := o.gateway.StoredEmails(ctx)
	if err != nil {
		return err
	}
	o.store.ReplaceEmails(emails)
	return nil
}

// LoadSummaries reloads the summary collection from the gateway. Exempt
// from the busy guard. A reload while an edit is open does not touch the
// edit buffer; the buffer is a detached copy.
func (o *Orchestrator) LoadSummaries(ctx context.Context) error {
	summaries, err := o.gateway.Summaries(ctx)
	if err != nil {
		return err
	}
	o.store.ReplaceSummaries(summaries)
	return nil
}

// ConnectGmail authenticates the mail provider.
func (o *Orchestrator) ConnectGmail(ctx context.Context) error {
	if err := o.begin(); err != nil {
		return err
	}
	defer o.end()

	if err := o.gateway.AuthenticateGmail(ctx); err != nil {
		return err
	}
	status := o.store.Status()
	status.Gmail = true
	o.store.SetConnectionStatus(status)
	return nil
}

// ConnectClio obtains the billing provider's OAuth URL. The caller is
// responsible for navigating the browser there; the connection completes
// through the gateway's redirect handler, outside this process.
func (o *Orchestrator) ConnectClio(ctx context.Context) (string, error) {
	if err := o.begin(); err != nil {
		return "", err
	}
	defer o.end()

	return o.gateway.ClioAuthURL(ctx)
}

// TestClio checks the billing provider connection and reports the
// connected identity.
func (o *Orchestrator) TestClio(ctx context.Context) (ClioTestResult, error) {
	if err := o.begin(); err != nil {
		return ClioTestResult{}, err
	}
	defer o.end()

	return o.gateway.TestClio(ctx)
}

// FetchEmails fetches recent mail and replaces the email collection with
// the result. On failure the prior collection is left intact.
func (o *Orchestrator) FetchEmails(ctx context.Context, daysBack, maxResults int) (FetchResult, error) {
	if err := o.begin(); err != nil {
		return FetchResult{}, err
	}
	defer o.end()

	result, err := o.gateway.FetchEmails(ctx, daysBack, maxResults)
	if err != nil {
		return FetchResult{}, err
	}
	o.store.ReplaceEmails(result.Emails)
	return result, nil
}

// GenerateSummaries runs the summarizer over unsummarized emails, then
// reloads the summary collection to pick up the results.
func (o *Orchestrator) GenerateSummaries(ctx context.Context) (GenerateResult, error) {
	if err := o.begin(); err != nil {
		return GenerateResult{}, err
	}
	defer o.end()

	result, err := o.gateway.GenerateSummaries(ctx)
	if err != nil {
		return GenerateResult{}, err
	}
	if err := o.LoadSummaries(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// PushToClio pushes unpushed summaries as billing entries, then reloads
// the summary collection to pick up the updated pushed flags. A failed
// push changes no flags.
func (o *Orchestrator) PushToClio(ctx context.Context) (PushResult, error) {
	if err := o.begin(); err != nil {
		return PushResult{}, err
	}
	defer o.end()

	result, err := o.gateway.PushEntries(ctx)
	if err != nil {
		return PushResult{}, err
	}
	if err := o.LoadSummaries(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// BeginEdit opens an edit buffer for the summary with the given
// identifier. The buffer is a copy, never a live reference into the
// collection, so background reloads cannot discard unsaved edits.
func (o *Orchestrator) BeginEdit(id uint) (*models.Summary, error) {
	summary, ok := o.store.SummaryByID(id)
	if !ok {
		return nil, fmt.Errorf("summary %d not found", id)
	}
	o.edit = &summary
	return o.edit, nil
}

// EditBuffer returns the open edit buffer, or nil when no edit is open.
func (o *Orchestrator) EditBuffer() *models.Summary {
	return o.edit
}

// SaveEdit submits the edit buffer and, on success, reloads the summary
// collection and closes the buffer. On failure the buffer stays open so
// the user's changes are not lost.
func (o *Orchestrator) SaveEdit(ctx context.Context) error {
	if o.edit == nil {
		return errors.New("no summary edit in progress")
	}
	if err := o.begin(); err != nil {
		return err
	}
	defer o.end()

	update := SummaryUpdate{
		BillingHours:       o.edit.BillingHours,
		BillingDescription: o.edit.BillingDescription,
		Summary:            o.edit.Summary,
	}
	if err := o.gateway.UpdateSummary(ctx, o.edit.ID, update); err != nil {
		return err
	}

	o.edit = nil
	return o.LoadSummaries(ctx)
}

// CancelEdit discards the edit buffer.
func (o *Orchestrator) CancelEdit() {
	o.edit = nil
}
