package models

import (
	"time"
)

// Email is a message fetched from Gmail or captured by the browser
// extension. Summary, BillingHours and BillingDescription stay nil until
// the summarizer has processed the message; a row with a non-nil Summary
// is what the API exposes as a billing summary.
type Email struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	GmailID            string     `gorm:"uniqueIndex;not null" json:"gmail_id"`
	ThreadID           string     `json:"thread_id"`
	Subject            string     `json:"subject"`
	Sender             string     `json:"sender"`
	Recipient          string     `json:"recipient"`
	Body               string     `gorm:"type:text" json:"body"`
	DateSent           *time.Time `json:"date_sent"`
	Summary            *string    `gorm:"type:text" json:"summary"`
	BillingHours       *float64   `json:"billing_hours"`
	BillingDescription *string    `gorm:"type:text" json:"billing_description"`
	PushedToClio       bool       `gorm:"default:false" json:"pushed_to_clio"`
	Source             string     `json:"source"` // "gmail" or "chrome_extension"
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ClioToken holds the single Clio OAuth token for this installation.
// The callback handler replaces the whole table on every exchange, so at
// most one row exists at a time.
type ClioToken struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AccessToken  string     `gorm:"type:text;not null" json:"-"`
	RefreshToken string     `gorm:"type:text" json:"-"`
	ExpiresAt    *time.Time `json:"expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// EmailView is the wire shape of an email as the dashboard sees it. The
// identifier is the Gmail message id, not the database row id. Optional
// fields stay nil when the email has not been summarized or pushed yet;
// filter predicates treat absent as falsy.
type EmailView struct {
	ID                 string   `json:"id"`
	Subject            string   `json:"subject"`
	Sender             string   `json:"sender"`
	Recipient          string   `json:"recipient"`
	Body               string   `json:"body"`
	DateSent           string   `json:"date_sent,omitempty"`
	Summary            *string  `json:"summary,omitempty"`
	BillingHours       *float64 `json:"billing_hours,omitempty"`
	BillingDescription *string  `json:"billing_description,omitempty"`
	PushedToClio       bool     `json:"pushed_to_clio"`
}

// Summarized reports whether a summary has been generated for the email.
func (e EmailView) Summarized() bool {
	return e.Summary != nil && *e.Summary != ""
}

// Summary is the wire shape of a billing summary. Its identifier is the
// database row id of the source email; EmailID is the Gmail message id it
// was generated from.
type Summary struct {
	ID                 uint    `json:"id"`
	EmailID            string  `json:"email_id"`
	Subject            string  `json:"subject"`
	Summary            string  `json:"summary"`
	BillingHours       float64 `json:"billing_hours"`
	BillingDescription string  `json:"billing_description"`
	DateSent           string  `json:"date_sent,omitempty"`
	PushedToClio       bool    `json:"pushed_to_clio"`
}

// ConnectionStatus reports which remote providers are currently usable.
type ConnectionStatus struct {
	Gmail bool `json:"gmail_connected"`
	Clio  bool `json:"clio_connected"`
}

// Counts are derived sizes of the dashboard collections. They are always
// recomputed from the collections themselves, never stored independently.
type Counts struct {
	Emails    int `json:"emails"`
	Summaries int `json:"summaries"`
	Selected  int `json:"selected"`
}

// DefaultBillingHours is the increment suggested when the summarizer did
// not propose one.
const DefaultBillingHours = 0.25

// View converts a stored email into its wire shape.
func (e *Email) View() EmailView {
	v := EmailView{
		ID:                 e.GmailID,
		Subject:            e.Subject,
		Sender:             e.Sender,
		Recipient:          e.Recipient,
		Body:               e.Body,
		Summary:            e.Summary,
		BillingHours:       e.BillingHours,
		BillingDescription: e.BillingDescription,
		PushedToClio:       e.PushedToClio,
	}
	if e.DateSent != nil {
		v.DateSent = e.DateSent.Format(time.RFC3339)
	}
	return v
}

// SummaryView converts a summarized email into its billing-summary wire
// shape. Callers must only use it on emails with a non-nil Summary;
// missing billing fields fall back to the defaults the original entry was
// created with.
func (e *Email) SummaryView() Summary {
	s := Summary{
		ID:           e.ID,
		EmailID:      e.GmailID,
		Subject:      e.Subject,
		BillingHours: DefaultBillingHours,
		PushedToClio: e.PushedToClio,
	}
	if e.Summary != nil {
		s.Summary = *e.Summary
	}
	if e.BillingHours != nil {
		s.BillingHours = *e.BillingHours
	}
	if e.BillingDescription != nil {
		s.BillingDescription = *e.BillingDescription
	}
	if e.DateSent != nil {
		s.DateSent = e.DateSent.Format(time.RFC3339)
	}
	return s
}
