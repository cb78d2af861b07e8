package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/api")
}

func writeJSON(t *testing.T, w http.ResponseWriter, payload interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(payload))
}

func TestClientStatus(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/status": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			writeJSON(t, w, map[string]interface{}{
				"gmail_connected": true,
				"clio_connected":  false,
			})
		},
	})

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Gmail)
	assert.False(t, status.Clio)
}

func TestClientFetchEmailsSuccess(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/gmail/emails": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "3", r.URL.Query().Get("days_back"))
			assert.Equal(t, "50", r.URL.Query().Get("max_results"))
			writeJSON(t, w, map[string]interface{}{
				"success":        true,
				"emails_fetched": 2,
				"new_emails":     1,
				"emails": []map[string]interface{}{
					{"id": "m1", "subject": "First"},
					{"id": "m2", "subject": "Second"},
				},
			})
		},
	})

	result, err := client.FetchEmails(context.Background(), 3, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, result.EmailsFetched)
	assert.Equal(t, 1, result.NewEmails)
	require.Len(t, result.Emails, 2)
	assert.Equal(t, "m1", result.Emails[0].ID)
}

func TestClientFetchEmailsAppFailureCarriesMessage(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/gmail/emails": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]interface{}{
				"success": false,
				"message": "Gmail not authenticated",
			})
		},
	})

	_, err := client.FetchEmails(context.Background(), 7, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gmail not authenticated")
}

func TestClientTransportFailure(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/summarizer/generate": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal error", http.StatusInternalServerError)
		},
	})

	_, err := client.GenerateSummaries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestClientStoredEmailsMissingFieldDegradesToEmpty(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/gmail/emails/stored": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]interface{}{"success": true})
		},
	})

	emails, err := client.StoredEmails(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, emails)
	assert.Empty(t, emails)
}

func TestClientUpdateSummarySendsEditableFields(t *testing.T) {
	var got SummaryUpdate
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/summarizer/summaries/5": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeJSON(t, w, map[string]interface{}{"success": true})
		},
	})

	update := SummaryUpdate{BillingHours: 1.5, BillingDescription: "Call", Summary: "Discussed case"}
	require.NoError(t, client.UpdateSummary(context.Background(), 5, update))
	assert.Equal(t, update, got)
}

func TestClientTestClioReadsNestedUser(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/clio/test": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]interface{}{
				"connected": true,
				"message":   "Connected to Clio",
				"user":      map[string]interface{}{"name": "Jane Attorney"},
			})
		},
	})

	result, err := client.TestClio(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Connected)
	assert.Equal(t, "Jane Attorney", result.UserName)
}

func TestClientPushEntriesFailureCarriesMessage(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/clio/push-entries": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]interface{}{
				"success": false,
				"message": "token expired",
			})
		},
	})

	_, err := client.PushEntries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")
}

func TestNewClientDefaultsAndTrimsSlash(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("").baseURL)
	assert.Equal(t, "http://host/api", NewClient("http://host/api/").baseURL)
}
