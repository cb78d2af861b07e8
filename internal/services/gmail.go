package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"lexbill/internal/config"
	"lexbill/internal/utils"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const maxFetchedBodyLength = 1000

// FetchedEmail is a message pulled from the Gmail API before it is stored.
type FetchedEmail struct {
	GmailID   string
	ThreadID  string
	Subject   string
	Sender    string
	Recipient string
	Body      string
	DateSent  time.Time
}

// GmailService fetches messages through the Gmail REST API using an OAuth
// token cached on disk.
type GmailService struct {
	credentialsFile string
	tokenFile       string
	scopes          []string
	logger          *utils.Logger
}

// NewGmailService creates a new GmailService
func NewGmailService(cfg config.GoogleConfig) *GmailService {
	return &GmailService{
		credentialsFile: cfg.CredentialsFile,
		tokenFile:       cfg.TokenFile,
		scopes:          cfg.Scopes,
		logger:          utils.NewLogger("Gmail"),
	}
}

// HasCredentials reports whether the OAuth client credentials file is
// present. This is what the status endpoint reports as "gmail connected".
func (s *GmailService) HasCredentials() bool {
	_, err := os.Stat(s.credentialsFile)
	return err == nil
}

// Authenticate verifies that credentials and a cached token are usable.
// It returns a descriptive error when either is missing so the dashboard
// can tell the user what to fix.
func (s *GmailService) Authenticate(ctx context.Context) error {
	if !s.HasCredentials() {
		return fmt.Errorf("%s not found, download it from the Google Cloud Console", s.credentialsFile)
	}

	oauthConfig, err := s.oauthConfig()
	if err != nil {
		return err
	}

	token, err := s.loadToken()
	if err != nil {
		return fmt.Errorf("no cached Gmail token, complete the OAuth flow first: %w", err)
	}

	// Refresh through the token source so an expired access token does not
	// fail authentication while a valid refresh token exists.
	fresh, err := oauthConfig.TokenSource(ctx, token).Token()
	if err != nil {
		return fmt.Errorf("gmail token refresh failed: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		if err := s.saveToken(fresh); err != nil {
			s.logger.Warn("Failed to cache refreshed token: %v", err)
		}
	}

	return nil
}

// FetchEmails fetches messages sent within the last daysBack days, up to
// maxResults. Messages that fail to parse are skipped rather than failing
// the whole fetch.
func (s *GmailService) FetchEmails(ctx context.Context, daysBack, maxResults int) ([]FetchedEmail, error) {
	svc, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	end := time.Now()
	start := end.AddDate(0, 0, -daysBack)
	query := fmt.Sprintf("after:%s before:%s", start.Format("2006/01/02"), end.AddDate(0, 0, 1).Format("2006/01/02"))

	list, err := svc.Users.Messages.List("me").Q(query).MaxResults(int64(maxResults)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	emails := make([]FetchedEmail, 0, len(list.Messages))
	for _, m := range list.Messages {
		msg, err := svc.Users.Messages.Get("me", m.Id).Format("full").Context(ctx).Do()
		if err != nil {
			s.logger.Warn("Failed to get message %s: %v", m.Id, err)
			continue
		}
		emails = append(emails, extractEmail(msg))
	}

	s.logger.Info("Fetched %d emails (query %q)", len(emails), query)
	return emails, nil
}

// client builds an authenticated Gmail API client
func (s *GmailService) client(ctx context.Context) (*gmail.Service, error) {
	oauthConfig, err := s.oauthConfig()
	if err != nil {
		return nil, err
	}

	token, err := s.loadToken()
	if err != nil {
		return nil, fmt.Errorf("gmail is not authenticated: %w", err)
	}

	httpClient := oauthConfig.Client(ctx, token)
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail client: %w", err)
	}
	return svc, nil
}

func (s *GmailService) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(s.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(data, s.scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return oauthConfig, nil
}

func (s *GmailService) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.tokenFile)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

func (s *GmailService) saveToken(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return os.WriteFile(s.tokenFile, data, 0600)
}

// extractEmail pulls the fields we store out of a full Gmail message
func extractEmail(msg *gmail.Message) FetchedEmail {
	email := FetchedEmail{
		GmailID:  msg.Id,
		ThreadID: msg.ThreadId,
		DateSent: time.UnixMilli(msg.InternalDate),
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "Subject":
				email.Subject = h.Value
			case "From":
				email.Sender = h.Value
			case "To":
				email.Recipient = h.Value
			case "Date":
				email.DateSent = utils.ParseEmailDate(h.Value)
			}
		}
		email.Body = extractBody(msg.Payload)
	}

	return email
}

// extractBody finds the first text/plain part and decodes it. The body is
// capped before storage; the summarizer never needs more than that.
func extractBody(payload *gmail.MessagePart) string {
	var body string

	if len(payload.Parts) > 0 {
		for _, part := range payload.Parts {
			if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
				if decoded := decodeBody(part.Body.Data); decoded != "" {
					body = decoded
					break
				}
			}
		}
	} else if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		body = decodeBody(payload.Body.Data)
	}

	if len(body) > maxFetchedBodyLength {
		body = body[:maxFetchedBodyLength]
	}
	return body
}

// decodeBody decodes the base64url message data the Gmail API returns.
// Payloads arrive both with and without padding depending on the client.
func decodeBody(data string) string {
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	return ""
}
