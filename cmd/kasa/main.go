// The kasa binary is the bank-facing side: it serves the statement webhook,
// queues deliveries on AMQP and registers the webhook URL with the bank for
// every user that has an API key.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kasa/internal/amqp"
	"kasa/internal/config"
	"kasa/internal/monobank"
	"kasa/internal/storage"
	"kasa/internal/webhook"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting kasa webhook server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	srv := webhook.NewServer(":"+cfg.Port, amqpClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registerWebhooks(ctx, cfg, repo)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Webhook server listening", "port", cfg.Port)
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// registerWebhooks points each user's bank webhook at this server. Failures
// are logged per user; a rejected registration must not keep the server down.
func registerWebhooks(ctx context.Context, cfg *config.Config, repo *storage.SQLiteRepository) {
	if cfg.PublicURL == "" {
		slog.Info("PUBLIC_URL not set, skipping bank webhook registration")
		return
	}

	bank := monobank.NewClient(cfg.MonobankBaseURL, cfg.BankHTTPTimeout)

	users, err := repo.ListUsersWithAPIKey(ctx)
	if err != nil {
		slog.Error("Failed to list users for webhook registration", "error", err)
		return
	}

	for _, user := range users {
		url := cfg.PublicURL + "/" + user.ID
		if err := bank.SetupWebhook(ctx, user.APIKey, url); err != nil {
			slog.Error("Failed to register bank webhook", "error", err, "user_id", user.ID)
			continue
		}
		slog.Info("Bank webhook registered", "user_id", user.ID)
	}
}
