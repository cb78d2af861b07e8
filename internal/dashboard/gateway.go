package dashboard

import (
	"context"

	"lexbill/internal/models"
)

// FetchResult reports a completed Gmail fetch. Emails holds the full
// stored collection for the window, EmailsFetched and NewEmails are the
// server-reported aggregate counts.
type FetchResult struct {
	EmailsFetched int
	NewEmails     int
	Emails        []models.EmailView
}

// GenerateResult reports a completed summary-generation batch.
type GenerateResult struct {
	SummariesGenerated int
	Message            string
}

// PushResult reports a completed push-entries batch.
type PushResult struct {
	PushedCount int
	Message     string
}

// ClioTestResult reports the outcome of a billing connection test.
type ClioTestResult struct {
	Connected bool
	UserName  string
	Message   string
}

// SummaryUpdate holds the user-editable fields of a summary.
type SummaryUpdate struct {
	BillingHours       float64 `json:"billing_hours"`
	BillingDescription string  `json:"billing_description"`
	Summary            string  `json:"summary"`
}

// Gateway is the REST facade the dashboard drives. Every method maps to
// one gateway endpoint; implementations return an error both for
// transport failures and for success:false responses, carrying the
// server-supplied message verbatim.
type Gateway interface {
	Status(ctx context.Context) (models.ConnectionStatus, error)
	AuthenticateGmail(ctx context.Context) error
	FetchEmails(ctx context.Context, daysBack, maxResults int) (FetchResult, error)
	StoredEmails(ctx context.Context) ([]models.EmailView, error)
	GenerateSummaries(ctx context.Context) (GenerateResult, error)
	Summaries(ctx context.Context) ([]models.Summary, error)
	UpdateSummary(ctx context.Context, id uint, update SummaryUpdate) error
	ClioAuthURL(ctx context.Context) (string, error)
	TestClio(ctx context.Context) (ClioTestResult, error)
	PushEntries(ctx context.Context) (PushResult, error)
}
