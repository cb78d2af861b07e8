package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lexbill/internal/models"
)

// DefaultBaseURL is where a locally running gateway listens.
const DefaultBaseURL = "http://localhost:8080/api"

// Client is the HTTP implementation of Gateway. Application-level
// failures (success:false in an otherwise valid response) and transport
// failures both surface as errors carrying the server message verbatim;
// missing response fields degrade to empty collections and false flags.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a gateway client. An empty baseURL falls back to
// DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

// Status implements Gateway.
func (c *Client) Status(ctx context.Context) (models.ConnectionStatus, error) {
	var payload models.ConnectionStatus
	if err := c.do(ctx, http.MethodGet, "/status", nil, &payload); err != nil {
		return models.ConnectionStatus{}, err
	}
	return payload, nil
}

// AuthenticateGmail implements Gateway.
func (c *Client) AuthenticateGmail(ctx context.Context) error {
	var payload struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/gmail/authenticate", nil, &payload); err != nil {
		return err
	}
	if !payload.Success {
		return fmt.Errorf("gmail connection failed: %s", payload.Message)
	}
	return nil
}

// FetchEmails implements Gateway.
func (c *Client) FetchEmails(ctx context.Context, daysBack, maxResults int) (FetchResult, error) {
	var payload struct {
		Success       bool               `json:"success"`
		EmailsFetched int                `json:"emails_fetched"`
		NewEmails     int                `json:"new_emails"`
		Emails        []models.EmailView `json:"emails"`
		Message       string             `json:"message"`
	}
	path := fmt.Sprintf("/gmail/emails?days_back=%d&max_results=%d", daysBack, maxResults)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return FetchResult{}, err
	}
	if !payload.Success {
		return FetchResult{}, fmt.Errorf("failed to fetch emails: %s", payload.Message)
	}
	emails := payload.Emails
	if emails == nil {
		emails = []models.EmailView{}
	}
	return FetchResult{
		EmailsFetched: payload.EmailsFetched,
		NewEmails:     payload.NewEmails,
		Emails:        emails,
	}, nil
}

// StoredEmails implements Gateway.
func (c *Client) StoredEmails(ctx context.Context) ([]models.EmailView, error) {
	var payload struct {
		Emails []models.EmailView `json:"emails"`
	}
	if err := c.do(ctx, http.MethodGet, "/gmail/emails/stored", nil, &payload); err != nil {
		return nil, err
	}
	if payload.Emails == nil {
		return []models.EmailView{}, nil
	}
	return payload.Emails, nil
}

// GenerateSummaries implements Gateway.
func (c *Client) GenerateSummaries(ctx context.Context) (GenerateResult, error) {
	var payload struct {
		Success            bool   `json:"success"`
		SummariesGenerated int    `json:"summaries_generated"`
		Message            string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/summarizer/generate", nil, &payload); err != nil {
		return GenerateResult{}, err
	}
	if !payload.Success {
		return GenerateResult{}, fmt.Errorf("failed to generate summaries: %s", payload.Message)
	}
	return GenerateResult{
		SummariesGenerated: payload.SummariesGenerated,
		Message:            payload.Message,
	}, nil
}

// Summaries implements Gateway.
func (c *Client) Summaries(ctx context.Context) ([]models.Summary, error) {
	var payload struct {
		Summaries []models.Summary `json:"summaries"`
	}
	if err := c.do(ctx, http.MethodGet, "/summarizer/summaries", nil, &payload); err != nil {
		return nil, err
	}
	if payload.Summaries == nil {
		return []models.Summary{}, nil
	}
	return payload.Summaries, nil
}

// UpdateSummary implements Gateway.
func (c *Client) UpdateSummary(ctx context.Context, id uint, update SummaryUpdate) error {
	var payload struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	path := fmt.Sprintf("/summarizer/summaries/%d", id)
	if err := c.do(ctx, http.MethodPut, path, update, &payload); err != nil {
		return err
	}
	if !payload.Success {
		return fmt.Errorf("failed to update summary: %s", payload.Message)
	}
	return nil
}

// ClioAuthURL implements Gateway.
func (c *Client) ClioAuthURL(ctx context.Context) (string, error) {
	var payload struct {
		AuthURL string `json:"auth_url"`
	}
	if err := c.do(ctx, http.MethodGet, "/clio/auth", nil, &payload); err != nil {
		return "", err
	}
	if payload.AuthURL == "" {
		return "", fmt.Errorf("failed to get Clio auth URL")
	}
	return payload.AuthURL, nil
}

// TestClio implements Gateway.
func (c *Client) TestClio(ctx context.Context) (ClioTestResult, error) {
	var payload struct {
		Connected bool   `json:"connected"`
		Message   string `json:"message"`
		User      struct {
			Name string `json:"name"`
		} `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/clio/test", nil, &payload); err != nil {
		return ClioTestResult{}, err
	}
	return ClioTestResult{
		Connected: payload.Connected,
		UserName:  payload.User.Name,
		Message:   payload.Message,
	}, nil
}

// PushEntries implements Gateway.
func (c *Client) PushEntries(ctx context.Context) (PushResult, error) {
	var payload struct {
		Success     bool   `json:"success"`
		PushedCount int    `json:"pushed_count"`
		Message     string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/clio/push-entries", nil, &payload); err != nil {
		return PushResult{}, err
	}
	if !payload.Success {
		return PushResult{}, fmt.Errorf("failed to push to Clio: %s", payload.Message)
	}
	return PushResult{
		PushedCount: payload.PushedCount,
		Message:     payload.Message,
	}, nil
}

// do performs one request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
