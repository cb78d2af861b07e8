// Package dashboard implements the client-side model behind the billing
// dashboard: the collections fetched from the gateway, the selection set,
// pure filter/search views over them and the orchestrator that sequences
// user actions against the gateway.
package dashboard

import (
	"fmt"
	"strings"

	"lexbill/internal/models"
)

// EmailFilter narrows the visible email list by summarization/push state.
type EmailFilter string

const (
	EmailFilterAll          EmailFilter = "all"
	EmailFilterUnsummarized EmailFilter = "unsummarized"
	EmailFilterSummarized   EmailFilter = "summarized"
	EmailFilterUnpushed     EmailFilter = "unpushed"
)

// SummaryFilter narrows the visible summary list by push state.
type SummaryFilter string

const (
	SummaryFilterAll      SummaryFilter = "all"
	SummaryFilterUnpushed SummaryFilter = "unpushed"
	SummaryFilterPushed   SummaryFilter = "pushed"
)

// ParseEmailFilter validates a filter name from user input.
func ParseEmailFilter(s string) (EmailFilter, error) {
	switch EmailFilter(s) {
	case EmailFilterAll, EmailFilterUnsummarized, EmailFilterSummarized, EmailFilterUnpushed:
		return EmailFilter(s), nil
	}
	return "", fmt.Errorf("unknown email filter %q", s)
}

// ParseSummaryFilter validates a filter name from user input.
func ParseSummaryFilter(s string) (SummaryFilter, error) {
	switch SummaryFilter(s) {
	case SummaryFilterAll, SummaryFilterUnpushed, SummaryFilterPushed:
		return SummaryFilter(s), nil
	}
	return "", fmt.Errorf("unknown summary filter %q", s)
}

// Matches reports whether an email passes the filter. An absent summary or
// pushed flag counts as falsy.
func (f EmailFilter) Matches(e models.EmailView) bool {
	switch f {
	case EmailFilterUnsummarized:
		return !e.Summarized()
	case EmailFilterSummarized:
		return e.Summarized()
	case EmailFilterUnpushed:
		return !e.PushedToClio
	default: // EmailFilterAll and anything unparsed
		return true
	}
}

// Matches reports whether a summary passes the filter.
func (f SummaryFilter) Matches(s models.Summary) bool {
	switch f {
	case SummaryFilterUnpushed:
		return !s.PushedToClio
	case SummaryFilterPushed:
		return s.PushedToClio
	default: // SummaryFilterAll and anything unparsed
		return true
	}
}

// VisibleEmails returns the emails passing both the filter mode and the
// free-text query, preserving input order. The query matches
// case-insensitively as a substring of subject, sender or body; an empty
// query matches everything.
func VisibleEmails(emails []models.EmailView, filter EmailFilter, query string) []models.EmailView {
	needle := strings.ToLower(query)
	visible := make([]models.EmailView, 0, len(emails))
	for _, e := range emails {
		if !filter.Matches(e) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(e.Subject), needle) &&
			!strings.Contains(strings.ToLower(e.Sender), needle) &&
			!strings.Contains(strings.ToLower(e.Body), needle) {
			continue
		}
		visible = append(visible, e)
	}
	return visible
}

// VisibleSummaries is VisibleEmails for the summary collection; the query
// matches subject, summary text or billing description.
func VisibleSummaries(summaries []models.Summary, filter SummaryFilter, query string) []models.Summary {
	needle := strings.ToLower(query)
	visible := make([]models.Summary, 0, len(summaries))
	for _, s := range summaries {
		if !filter.Matches(s) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(s.Subject), needle) &&
			!strings.Contains(strings.ToLower(s.Summary), needle) &&
			!strings.Contains(strings.ToLower(s.BillingDescription), needle) {
			continue
		}
		visible = append(visible, s)
	}
	return visible
}
