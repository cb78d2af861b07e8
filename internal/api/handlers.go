package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"lexbill/internal/models"
	"lexbill/internal/repository"
	"lexbill/internal/services"
	"lexbill/internal/utils"

	"github.com/gorilla/mux"
)

const (
	defaultDaysBack   = 7
	defaultMaxResults = 100
	captureSource     = "chrome_extension"
)

// MailSource is the slice of GmailService the handlers need
type MailSource interface {
	HasCredentials() bool
	Authenticate(ctx context.Context) error
	FetchEmails(ctx context.Context, daysBack, maxResults int) ([]services.FetchedEmail, error)
}

// Summarizer is the slice of SummarizerService the handlers need
type Summarizer interface {
	GenerateSummaries(ctx context.Context) (services.GenerateStats, error)
}

// Billing is the slice of ClioService the handlers need
type Billing interface {
	AuthURL() string
	ExchangeCode(ctx context.Context, code string) (*models.ClioToken, error)
	TestConnection(ctx context.Context) services.ClioTestResult
	PushTimeEntries(ctx context.Context) (services.PushStats, error)
	ListMatters(ctx context.Context) ([]map[string]interface{}, error)
}

// APIHandler holds the dependencies of all HTTP handlers
type APIHandler struct {
	Mail       MailSource
	Summarizer Summarizer
	Billing    Billing
	EmailRepo  *repository.EmailRepository
	TokenRepo  *repository.ClioTokenRepository
	logger     *utils.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(
	mail MailSource,
	summarizer Summarizer,
	billing Billing,
	emailRepo *repository.EmailRepository,
	tokenRepo *repository.ClioTokenRepository,
) *APIHandler {
	return &APIHandler{
		Mail:       mail,
		Summarizer: summarizer,
		Billing:    billing,
		EmailRepo:  emailRepo,
		TokenRepo:  tokenRepo,
		logger:     utils.NewLogger("API"),
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// HealthCheck godoc
// @Summary Show the status of the server
// @Tags root
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/health [get]
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "Legal Billing Email Summarizer",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// RootHandler godoc
// @Summary API entry point
// @Tags root
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func RootHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Legal Billing Email Summarizer API",
		"health":  "/api/health",
		"status":  "/api/status",
		"docs":    "/swagger/index.html",
	})
}

// StatusHandler godoc
// @Summary Report mail and billing provider connectivity
// @Tags status
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /api/status [get]
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	token, err := h.TokenRepo.Get()
	if err != nil {
		h.logger.Error("Status check failed: %v", err)
		respondJSON(w, http.StatusOK, StatusResponse{Status: "error", Message: err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, StatusResponse{
		GmailConnected: h.Mail.HasCredentials(),
		ClioConnected:  token != nil,
		Status:         "healthy",
	})
}

// AuthenticateGmailHandler godoc
// @Summary Authenticate with Gmail
// @Tags gmail
// @Produce json
// @Success 200 {object} ActionResponse
// @Router /api/gmail/authenticate [post]
func (h *APIHandler) AuthenticateGmailHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Mail.Authenticate(r.Context()); err != nil {
		respondJSON(w, http.StatusOK, ActionResponse{Success: false, Message: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "Gmail authenticated successfully"})
}

// FetchEmailsHandler godoc
// @Summary Fetch recent emails from Gmail and store them
// @Tags gmail
// @Produce json
// @Param days_back query int false "Recency window in days" default(7)
// @Param max_results query int false "Maximum messages to fetch" default(100)
// @Success 200 {object} FetchEmailsResponse
// @Router /api/gmail/emails [get]
func (h *APIHandler) FetchEmailsHandler(w http.ResponseWriter, r *http.Request) {
	daysBack := queryInt(r, "days_back", defaultDaysBack)
	maxResults := queryInt(r, "max_results", defaultMaxResults)

	fetched, err := h.Mail.FetchEmails(r.Context(), daysBack, maxResults)
	if err != nil {
		h.logger.Error("Email fetch failed: %v", err)
		respondJSON(w, http.StatusOK, FetchEmailsResponse{Success: false, Emails: []models.EmailView{}, Message: err.Error()})
		return
	}

	rows := make([]models.Email, 0, len(fetched))
	for _, f := range fetched {
		dateSent := f.DateSent
		rows = append(rows, models.Email{
			GmailID:   f.GmailID,
			ThreadID:  f.ThreadID,
			Subject:   f.Subject,
			Sender:    f.Sender,
			Recipient: f.Recipient,
			Body:      utils.CleanEmailBody(f.Body),
			DateSent:  &dateSent,
			Source:    "gmail",
		})
	}

	stored, newCount, err := h.EmailRepo.UpsertBatch(rows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, FetchEmailsResponse{
		Success:       true,
		EmailsFetched: len(fetched),
		NewEmails:     newCount,
		Emails:        emailViews(stored),
	})
}

// StoredEmailsHandler godoc
// @Summary List stored emails
// @Tags gmail
// @Produce json
// @Success 200 {object} StoredEmailsResponse
// @Router /api/gmail/emails/stored [get]
func (h *APIHandler) StoredEmailsHandler(w http.ResponseWriter, r *http.Request) {
	emails, err := h.EmailRepo.ListStored()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, StoredEmailsResponse{Success: true, Emails: emailViews(emails)})
}

// GenerateSummariesHandler godoc
// @Summary Generate billing summaries for unsummarized emails
// @Tags summarizer
// @Produce json
// @Success 200 {object} GenerateResponse
// @Router /api/summarizer/generate [post]
func (h *APIHandler) GenerateSummariesHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Summarizer.GenerateSummaries(r.Context())
	if err != nil {
		h.logger.Error("Summary generation failed: %v", err)
		respondJSON(w, http.StatusOK, GenerateResponse{Success: false, Message: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, GenerateResponse{
		Success:            true,
		SummariesGenerated: stats.Generated,
		Errors:             stats.Errors,
		Message:            stats.Message,
	})
}

// SummariesHandler godoc
// @Summary List generated billing summaries
// @Tags summarizer
// @Produce json
// @Success 200 {object} SummariesResponse
// @Router /api/summarizer/summaries [get]
func (h *APIHandler) SummariesHandler(w http.ResponseWriter, r *http.Request) {
	emails, err := h.EmailRepo.ListSummarized()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	summaries := make([]models.Summary, 0, len(emails))
	for i := range emails {
		summaries = append(summaries, emails[i].SummaryView())
	}
	respondJSON(w, http.StatusOK, SummariesResponse{Success: true, Summaries: summaries})
}

// UpdateSummaryHandler godoc
// @Summary Update the editable fields of a billing summary
// @Tags summarizer
// @Accept json
// @Produce json
// @Param id path int true "Summary id"
// @Param request body SummaryUpdateRequest true "Updated fields"
// @Success 200 {object} ActionResponse
// @Failure 404 {string} string "Summary not found"
// @Router /api/summarizer/summaries/{id} [put]
func (h *APIHandler) UpdateSummaryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		http.Error(w, "invalid summary id", http.StatusBadRequest)
		return
	}

	var update SummaryUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.EmailRepo.UpdateSummaryFields(uint(id), update.BillingHours, update.BillingDescription, update.Summary)
	if err != nil {
		if errors.Is(err, repository.ErrEmailNotFound) {
			http.Error(w, "Summary not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "Summary updated successfully"})
}

// ClioAuthURLHandler godoc
// @Summary Get the Clio OAuth authorization URL
// @Tags clio
// @Produce json
// @Success 200 {object} AuthURLResponse
// @Router /api/clio/auth [get]
func (h *APIHandler) ClioAuthURLHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, AuthURLResponse{AuthURL: h.Billing.AuthURL()})
}

// ClioTestHandler godoc
// @Summary Test the Clio API connection
// @Tags clio
// @Produce json
// @Success 200 {object} services.ClioTestResult
// @Router /api/clio/test [get]
func (h *APIHandler) ClioTestHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Billing.TestConnection(r.Context()))
}

// PushEntriesHandler godoc
// @Summary Push unpushed summaries to Clio as time entries
// @Tags clio
// @Produce json
// @Success 200 {object} PushEntriesResponse
// @Router /api/clio/push-entries [post]
func (h *APIHandler) PushEntriesHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Billing.PushTimeEntries(r.Context())
	if err != nil {
		h.logger.Error("Push to Clio failed: %v", err)
		respondJSON(w, http.StatusOK, PushEntriesResponse{Success: false, Message: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, PushEntriesResponse{
		Success:     true,
		PushedCount: stats.Pushed,
		Errors:      stats.Errors,
		Message:     stats.Message,
	})
}

// MattersHandler godoc
// @Summary List Clio matters
// @Tags clio
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/clio/matters [get]
func (h *APIHandler) MattersHandler(w http.ResponseWriter, r *http.Request) {
	matters, err := h.Billing.ListMatters(r.Context())
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": false, "message": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "matters": matters})
}

// ClioCallbackHandler handles the OAuth redirect from Clio: it exchanges
// the authorization code, replaces the stored token and sends the browser
// back to the dashboard with a query flag.
func (h *APIHandler) ClioCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Error("Clio OAuth error: %s", errParam)
		http.Redirect(w, r, "/?clio_error=true", http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Error("Clio OAuth callback without authorization code")
		http.Redirect(w, r, "/?clio_error=no_code", http.StatusFound)
		return
	}

	token, err := h.Billing.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("Clio code exchange failed: %v", err)
		http.Redirect(w, r, "/?clio_error=exchange_failed", http.StatusFound)
		return
	}

	if err := h.TokenRepo.Replace(token); err != nil {
		h.logger.Error("Failed to store Clio token: %v", err)
		http.Redirect(w, r, "/?clio_error=storage_failed", http.StatusFound)
		return
	}

	h.logger.Info("Clio token stored successfully")
	http.Redirect(w, r, "/?clio_connected=true", http.StatusFound)
}

// ExtensionStatusHandler godoc
// @Summary Report extension API availability
// @Tags extension
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/extension/status [get]
func (h *APIHandler) ExtensionStatusHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "active",
		"message": "Extension API is running",
		"endpoints": map[string]string{
			"capture": "/api/extension/capture",
			"status":  "/api/extension/status",
		},
	})
}

// CaptureHandler godoc
// @Summary Ingest an email captured by the browser extension
// @Tags extension
// @Accept json
// @Produce json
// @Param request body CapturePayload true "Captured email"
// @Success 200 {object} map[string]interface{}
// @Router /api/extension/capture [post]
func (h *APIHandler) CaptureHandler(w http.ResponseWriter, r *http.Request) {
	var payload CapturePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if payload.ID == "" {
		http.Error(w, "missing email id", http.StatusBadRequest)
		return
	}

	h.logger.Info("Received email from extension: %s", payload.Subject)

	if _, err := h.EmailRepo.GetByGmailID(payload.ID); err == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"message":  "Email already captured",
			"email_id": payload.ID,
		})
		return
	} else if !errors.Is(err, repository.ErrEmailNotFound) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	source := payload.Source
	if source == "" {
		source = captureSource
	}

	email := models.Email{
		GmailID:   payload.ID,
		Subject:   payload.Subject,
		Sender:    payload.Sender,
		Recipient: payload.Recipient,
		Body:      utils.CleanEmailBody(payload.Body),
		Source:    source,
	}
	if payload.DateSent != "" {
		if t, err := time.Parse(time.RFC3339, payload.DateSent); err == nil {
			email.DateSent = &t
		}
	}

	if err := h.EmailRepo.Create(&email); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Email captured successfully",
		"email_id": payload.ID,
	})
}

func emailViews(emails []models.Email) []models.EmailView {
	views := make([]models.EmailView, 0, len(emails))
	for i := range emails {
		views = append(views, emails[i].View())
	}
	return views
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
