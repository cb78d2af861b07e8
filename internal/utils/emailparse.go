package utils

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
)

const maxBodyLength = 2000

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	signatureRe    = regexp.MustCompile(`(?s)--\s*\n.*`)
	sentFromRe     = regexp.MustCompile(`Sent from my.*`)
	outlookAdRe    = regexp.MustCompile(`Get Outlook for.*`)
	addrPatternRe  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	angleBracketRe = regexp.MustCompile(`<([^>]+)>`)
)

// ParseEmailDate parses an RFC 2822 date header. A date that cannot be
// parsed resolves to the current time rather than an error, so a single
// bad header never aborts a fetch.
func ParseEmailDate(dateString string) time.Time {
	if t, err := mail.ParseDate(dateString); err == nil {
		return t
	}
	return time.Now()
}

// ExtractEmailAddress extracts the bare address from a header value like
// "Name <email@domain.com>". The input is returned unchanged when no
// address can be found in it.
func ExtractEmailAddress(emailString string) string {
	if m := angleBracketRe.FindStringSubmatch(emailString); m != nil {
		return m[1]
	}
	if m := addrPatternRe.FindString(emailString); m != "" {
		return m
	}
	return emailString
}

// CleanEmailBody collapses whitespace, strips common signature footers and
// caps the body length before it is stored or sent to the summarizer.
func CleanEmailBody(body string) string {
	if body == "" {
		return ""
	}

	body = signatureRe.ReplaceAllString(body, "")
	body = whitespaceRe.ReplaceAllString(body, " ")
	body = sentFromRe.ReplaceAllString(body, "")
	body = outlookAdRe.ReplaceAllString(body, "")

	if len(body) > maxBodyLength {
		body = body[:maxBodyLength]
	}
	return strings.TrimSpace(body)
}
