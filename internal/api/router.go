package api

import (
	"net/http"

	"lexbill/internal/utils"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates a new router with all the necessary routes.
func NewRouter(handler *APIHandler, logger *utils.Logger) http.Handler {
	router := mux.NewRouter()

	// Create API subrouter with /api prefix
	apiRouter := router.PathPrefix("/api").Subrouter()

	// Health and status
	apiRouter.HandleFunc("/health", HealthCheck).Methods("GET")
	apiRouter.HandleFunc("/status", handler.StatusHandler).Methods("GET")

	// Gmail
	apiRouter.HandleFunc("/gmail/authenticate", handler.AuthenticateGmailHandler).Methods("POST")
	apiRouter.HandleFunc("/gmail/emails/stored", handler.StoredEmailsHandler).Methods("GET")
	apiRouter.HandleFunc("/gmail/emails", handler.FetchEmailsHandler).Methods("GET")

	// Summarizer
	apiRouter.HandleFunc("/summarizer/generate", handler.GenerateSummariesHandler).Methods("POST")
	apiRouter.HandleFunc("/summarizer/summaries", handler.SummariesHandler).Methods("GET")
	apiRouter.HandleFunc("/summarizer/summaries/{id}", handler.UpdateSummaryHandler).Methods("PUT")

	// Clio
	apiRouter.HandleFunc("/clio/auth", handler.ClioAuthURLHandler).Methods("GET")
	apiRouter.HandleFunc("/clio/test", handler.ClioTestHandler).Methods("GET")
	apiRouter.HandleFunc("/clio/push-entries", handler.PushEntriesHandler).Methods("POST")
	apiRouter.HandleFunc("/clio/matters", handler.MattersHandler).Methods("GET")

	// Browser extension side channel
	apiRouter.HandleFunc("/extension/status", handler.ExtensionStatusHandler).Methods("GET")
	apiRouter.HandleFunc("/extension/capture", handler.CaptureHandler).Methods("POST")

	// OAuth redirect target lives outside the /api prefix
	router.HandleFunc("/callback", handler.ClioCallbackHandler).Methods("GET")

	// Swagger documentation
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	router.HandleFunc("/", RootHandler).Methods("GET")

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	})

	return corsMiddleware.Handler(utils.HTTPLoggingMiddleware(logger)(router))
}
