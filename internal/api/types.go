package api

import (
	"lexbill/internal/models"
)

// SummaryUpdateRequest is the body of PUT /api/summarizer/summaries/{id}
type SummaryUpdateRequest struct {
	BillingHours       float64 `json:"billing_hours"`
	BillingDescription string  `json:"billing_description"`
	Summary            string  `json:"summary"`
}

// CapturePayload is the body the browser extension posts to
// /api/extension/capture. The extension scrapes the open message from the
// page DOM, so every field is best-effort.
type CapturePayload struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	DateSent  string `json:"date_sent"`
	Source    string `json:"source"`
}

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	GmailConnected bool   `json:"gmail_connected"`
	ClioConnected  bool   `json:"clio_connected"`
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
}

// FetchEmailsResponse is the body of GET /api/gmail/emails
type FetchEmailsResponse struct {
	Success       bool               `json:"success"`
	EmailsFetched int                `json:"emails_fetched"`
	NewEmails     int                `json:"new_emails"`
	Emails        []models.EmailView `json:"emails"`
	Message       string             `json:"message,omitempty"`
}

// StoredEmailsResponse is the body of GET /api/gmail/emails/stored
type StoredEmailsResponse struct {
	Success bool               `json:"success"`
	Emails  []models.EmailView `json:"emails"`
}

// SummariesResponse is the body of GET /api/summarizer/summaries
type SummariesResponse struct {
	Success   bool             `json:"success"`
	Summaries []models.Summary `json:"summaries"`
}

// ActionResponse is the generic success/message body shared by actions
// that report no data
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// GenerateResponse is the body of POST /api/summarizer/generate
type GenerateResponse struct {
	Success            bool     `json:"success"`
	SummariesGenerated int      `json:"summaries_generated"`
	Errors             []string `json:"errors,omitempty"`
	Message            string   `json:"message,omitempty"`
}

// PushEntriesResponse is the body of POST /api/clio/push-entries
type PushEntriesResponse struct {
	Success     bool     `json:"success"`
	PushedCount int      `json:"pushed_count"`
	Errors      []string `json:"errors,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// AuthURLResponse is the body of GET /api/clio/auth
type AuthURLResponse struct {
	AuthURL string `json:"auth_url"`
}
