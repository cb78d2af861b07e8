package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lexbill/internal/config"
	"lexbill/internal/models"
	"lexbill/internal/repository"
	"lexbill/internal/utils"
)

// ClioService talks to the Clio practice-management API: OAuth, connection
// test, matters and time-entry push.
type ClioService struct {
	clientID     string
	clientSecret string
	redirectURI  string
	baseURL      string
	tokens       *repository.ClioTokenRepository
	emails       *repository.EmailRepository
	client       *http.Client
	logger       *utils.Logger
}

// NewClioService creates a new ClioService
func NewClioService(cfg config.ClioConfig, tokens *repository.ClioTokenRepository, emails *repository.EmailRepository) *ClioService {
	return &ClioService{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		tokens:       tokens,
		emails:       emails,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: utils.NewLogger("Clio"),
	}
}

// ClioTestResult is the outcome of a connection test
type ClioTestResult struct {
	Connected bool                   `json:"connected"`
	Message   string                 `json:"message"`
	User      map[string]interface{} `json:"user,omitempty"`
}

// PushStats summarizes a push-entries run. Per-item failures land in
// Errors; the run itself still counts as successful.
type PushStats struct {
	Pushed  int      `json:"pushed_count"`
	Errors  []string `json:"errors"`
	Message string   `json:"message"`
}

// AuthURL returns the Clio OAuth authorization URL the browser should be
// sent to.
func (s *ClioService) AuthURL() string {
	return fmt.Sprintf("%s/oauth/authorize?client_id=%s&redirect_uri=%s&response_type=code&scope=%s",
		s.baseURL, url.QueryEscape(s.clientID), url.QueryEscape(s.redirectURI), url.QueryEscape("read write"))
}

// ExchangeCode exchanges an authorization code for an access token
func (s *ClioService) ExchangeCode(ctx context.Context, code string) (*models.ClioToken, error) {
	data := url.Values{}
	data.Set("client_id", s.clientID)
	data.Set("client_secret", s.clientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", s.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/oauth/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed: %s", string(body))
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned no access token")
	}

	token := &models.ClioToken{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}
	if payload.ExpiresIn > 0 {
		expires := time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
		token.ExpiresAt = &expires
	}
	return token, nil
}

// TestConnection calls who_am_i with the stored token
func (s *ClioService) TestConnection(ctx context.Context) ClioTestResult {
	token, err := s.tokens.Get()
	if err != nil {
		return ClioTestResult{Connected: false, Message: err.Error()}
	}
	if token == nil {
		return ClioTestResult{Connected: false, Message: "No Clio token found"}
	}

	resp, err := s.get(ctx, token, "/api/v4/users/who_am_i.json")
	if err != nil {
		return ClioTestResult{Connected: false, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ClioTestResult{Connected: false, Message: fmt.Sprintf("API call failed: %d", resp.StatusCode)}
	}

	var payload struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ClioTestResult{Connected: false, Message: fmt.Sprintf("failed to parse response: %v", err)}
	}

	return ClioTestResult{
		Connected: true,
		Message:   "Clio connection successful",
		User:      payload.Data,
	}
}

// PushTimeEntries creates a Clio time entry for every summarized email not
// pushed yet, flipping the pushed flag per item as it goes. Individual
// failures are collected and do not abort the batch.
func (s *ClioService) PushTimeEntries(ctx context.Context) (PushStats, error) {
	token, err := s.tokens.Get()
	if err != nil {
		return PushStats{}, err
	}
	if token == nil {
		return PushStats{}, fmt.Errorf("no Clio token found")
	}

	emails, err := s.emails.ListUnpushed()
	if err != nil {
		return PushStats{}, err
	}
	if len(emails) == 0 {
		return PushStats{Errors: []string{}, Message: "No summaries to push"}, nil
	}

	stats := PushStats{Errors: []string{}}
	for i := range emails {
		email := &emails[i]
		if err := s.pushOne(ctx, token, email); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("Email %d: %v", email.ID, err))
			continue
		}
		if err := s.emails.MarkPushed(email.ID); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("Email %d: %v", email.ID, err))
			continue
		}
		stats.Pushed++
	}

	stats.Message = fmt.Sprintf("Pushed %d time entries to Clio", stats.Pushed)
	s.logger.Info("%s (%d errors)", stats.Message, len(stats.Errors))
	return stats, nil
}

// pushOne creates a single time entry
func (s *ClioService) pushOne(ctx context.Context, token *models.ClioToken, email *models.Email) error {
	summary := ""
	if email.Summary != nil {
		summary = *email.Summary
	}

	description := summary
	if email.BillingDescription != nil && *email.BillingDescription != "" {
		description = *email.BillingDescription
	} else if len(description) > 200 {
		description = description[:200]
	}

	hours := models.DefaultBillingHours
	if email.BillingHours != nil {
		hours = *email.BillingHours
	}

	entry := map[string]interface{}{
		"data": map[string]interface{}{
			"quantity":    hours,
			"price":       0,
			"description": description,
			"note":        summary,
		},
	}
	if email.DateSent != nil {
		entry["data"].(map[string]interface{})["date"] = email.DateSent.Format("2006-01-02")
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v4/time_entries.json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// ListMatters fetches the matters visible to the connected Clio user
func (s *ClioService) ListMatters(ctx context.Context) ([]map[string]interface{}, error) {
	token, err := s.tokens.Get()
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("no Clio token found")
	}

	resp, err := s.get(ctx, token, "/api/v4/matters.json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to fetch matters: %s", string(body))
	}

	var payload struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse matters response: %w", err)
	}
	return payload.Data, nil
}

func (s *ClioService) get(ctx context.Context, token *models.ClioToken, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return s.client.Do(req)
}
