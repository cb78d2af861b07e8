package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lexbill/internal/config"
	"lexbill/internal/models"
	"lexbill/internal/repository"
)

func newClioEnv(t *testing.T, handler http.Handler) (*ClioService, *repository.EmailRepository, *repository.ClioTokenRepository) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Email{}, &models.ClioToken{}))

	emails := repository.NewEmailRepository(db)
	tokens := repository.NewClioTokenRepository(db)

	baseURL := "http://localhost:0"
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		baseURL = srv.URL
	}

	svc := NewClioService(config.ClioConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8080/callback",
		BaseURL:      baseURL,
	}, tokens, emails)
	return svc, emails, tokens
}

func seedPushable(t *testing.T, emails *repository.EmailRepository, gmailID string) *models.Email {
	t.Helper()
	now := time.Now()
	summary := "Reviewed agreement for " + gmailID
	hours := 0.5
	desc := "Contract review"
	email := &models.Email{
		GmailID:            gmailID,
		Subject:            "Subject " + gmailID,
		Sender:             "client@example.com",
		DateSent:           &now,
		Summary:            &summary,
		BillingHours:       &hours,
		BillingDescription: &desc,
		Source:             "gmail",
	}
	require.NoError(t, emails.Create(email))
	return email
}

func TestAuthURLEscapesParameters(t *testing.T) {
	svc, _, _ := newClioEnv(t, nil)
	url := svc.AuthURL()

	assert.Contains(t, url, "/oauth/authorize?")
	assert.Contains(t, url, "client_id=client-id")
	assert.Contains(t, url, "redirect_uri=http%3A%2F%2Flocalhost%3A8080%2Fcallback")
	assert.Contains(t, url, "response_type=code")
	assert.Contains(t, url, "scope=read+write")
}

func TestExchangeCode(t *testing.T) {
	svc, _, _ := newClioEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access",
			"refresh_token": "refresh",
			"expires_in":    3600,
		})
	}))

	token, err := svc.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "access", token.AccessToken)
	assert.Equal(t, "refresh", token.RefreshToken)
	require.NotNil(t, token.ExpiresAt)
	assert.True(t, token.ExpiresAt.After(time.Now()))
}

func TestExchangeCodeRejectsEmptyToken(t *testing.T) {
	svc, _, _ := newClioEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))

	_, err := svc.ExchangeCode(context.Background(), "the-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access token")
}

func TestTestConnectionWithoutToken(t *testing.T) {
	svc, _, _ := newClioEnv(t, nil)
	result := svc.TestConnection(context.Background())
	assert.False(t, result.Connected)
	assert.Equal(t, "No Clio token found", result.Message)
}

func TestTestConnectionReportsUser(t *testing.T) {
	svc, _, tokens := newClioEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v4/users/who_am_i.json", r.URL.Path)
		assert.Equal(t, "Bearer stored-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"name": "Jane Attorney"},
		})
	}))
	require.NoError(t, tokens.Replace(&models.ClioToken{AccessToken: "stored-token"}))

	result := svc.TestConnection(context.Background())
	assert.True(t, result.Connected)
	assert.Equal(t, "Jane Attorney", result.User["name"])
}

func TestPushTimeEntries(t *testing.T) {
	var entries []map[string]interface{}
	svc, emails, tokens := newClioEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v4/time_entries.json", r.URL.Path)
		var entry map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&entry))
		entries = append(entries, entry)
		w.WriteHeader(http.StatusCreated)
	}))
	require.NoError(t, tokens.Replace(&models.ClioToken{AccessToken: "stored-token"}))

	pushable := seedPushable(t, emails, "m1")
	seedPushable(t, emails, "m2")

	stats, err := svc.PushTimeEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pushed)
	assert.Empty(t, stats.Errors)
	require.Len(t, entries, 2)

	data := entries[0]["data"].(map[string]interface{})
	assert.Equal(t, 0.5, data["quantity"])
	assert.Equal(t, "Contract review", data["description"])
	assert.Contains(t, data["note"], "Reviewed agreement")

	stored, err := emails.GetByID(pushable.ID)
	require.NoError(t, err)
	assert.True(t, stored.PushedToClio)

	unpushed, err := emails.ListUnpushed()
	require.NoError(t, err)
	assert.Empty(t, unpushed)
}

func TestPushTimeEntriesPartialFailure(t *testing.T) {
	calls := 0
	svc, emails, tokens := newClioEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "matter required", http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	require.NoError(t, tokens.Replace(&models.ClioToken{AccessToken: "stored-token"}))

	seedPushable(t, emails, "m1")
	seedPushable(t, emails, "m2")

	stats, err := svc.PushTimeEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pushed)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0], "matter required")

	// The failed email stays unpushed for the next run.
	unpushed, err := emails.ListUnpushed()
	require.NoError(t, err)
	assert.Len(t, unpushed, 1)
}

func TestPushTimeEntriesWithoutToken(t *testing.T) {
	svc, emails, _ := newClioEnv(t, nil)
	seedPushable(t, emails, "m1")

	_, err := svc.PushTimeEntries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Clio token found")
}

func TestPushTimeEntriesNothingToPush(t *testing.T) {
	svc, _, tokens := newClioEnv(t, nil)
	require.NoError(t, tokens.Replace(&models.ClioToken{AccessToken: "stored-token"}))

	stats, err := svc.PushTimeEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Pushed)
	assert.Equal(t, "No summaries to push", stats.Message)
}

func TestListMatters(t *testing.T) {
	svc, _, tokens := newClioEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v4/matters.json", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": float64(1), "display_number": "00001-Smith"},
			},
		})
	}))
	require.NoError(t, tokens.Replace(&models.ClioToken{AccessToken: "stored-token"}))

	matters, err := svc.ListMatters(context.Background())
	require.NoError(t, err)
	require.Len(t, matters, 1)
	assert.Equal(t, "00001-Smith", matters[0]["display_number"])
}
