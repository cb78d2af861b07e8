package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lexbill/internal/api"
	"lexbill/internal/config"
	"lexbill/internal/database"
	"lexbill/internal/repository"
	"lexbill/internal/services"
	"lexbill/internal/utils"

	_ "lexbill/docs" // This is required for swag to find your docs
)

// @title Legal Billing Email Summarizer API
// @version 1.0
// @description Gateway that fetches Gmail email, generates AI billing summaries and pushes time entries to Clio.

// @license.name MIT

// @host localhost:8080
// @BasePath /
func main() {
	// .env is optional; real environments set variables directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	mainLogger := utils.NewLogger("Main")
	mainLogger.Info("Starting Legal Billing Email Summarizer")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	dbConfig := database.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	}

	if err := database.Initialize(dbConfig); err != nil {
		mainLogger.Error("Failed to initialize database: %v", err)
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	db := database.GetDB()

	// Initialize repositories
	emailRepo := repository.NewEmailRepository(db)
	tokenRepo := repository.NewClioTokenRepository(db)

	// Initialize services
	gmailService := services.NewGmailService(cfg.Google)
	summarizerService := services.NewSummarizerService(cfg.OpenAI, emailRepo)
	clioService := services.NewClioService(cfg.Clio, tokenRepo, emailRepo)

	// Initialize API handler and router
	apiHandler := api.NewAPIHandler(gmailService, summarizerService, clioService, emailRepo, tokenRepo)
	router := api.NewRouter(apiHandler, utils.NewLogger("HTTP"))

	// Create HTTP server
	srv := &http.Server{
		Addr:    cfg.ServerAddress(),
		Handler: router,
	}

	// Setup graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		mainLogger.Info("Server is running on http://%s", cfg.ServerAddress())
		fmt.Printf("Server is running on http://%s\n", cfg.ServerAddress())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLogger.Error("Server failed to start: %v", err)
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-stop
	mainLogger.Info("Shutting down server...")
	fmt.Println("\nShutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		mainLogger.Error("Server forced to shutdown: %v", err)
	}

	mainLogger.Info("Server shutdown complete")
}
