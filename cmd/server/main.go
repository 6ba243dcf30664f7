package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-journal-go/internal/auth"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/logger"
	"trade-journal-go/internal/mail"
	"trade-journal-go/internal/market"
	"trade-journal-go/internal/news"
	"trade-journal-go/internal/server"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Local .env carries the SMTP and market API credentials in development.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Wire the services.
	mailer := mail.NewSMTPMailer(&cfg.Mail, log)
	authSvc := auth.NewService(log, db, mailer)
	journalSvc := journal.NewService(log, db)
	marketClient := market.NewClient(&cfg.Market, log)
	newsSvc := news.NewService(&cfg.News, log)

	apiHandler := server.NewAPIHandler(log, authSvc, journalSvc, marketClient, newsSvc,
		cfg.Server.SecureCookie)
	srv := server.NewServer(&cfg.Server, apiHandler, log)
	srv.Start()

	// Wait for a shutdown signal.
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
