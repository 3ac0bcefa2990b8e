// The kasa-bot binary is the user-facing side: it consumes the statement
// queue, runs the normalization engine and the categorization workflow, and
// talks to users over Telegram.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kasa/internal/amqp"
	"kasa/internal/bot"
	"kasa/internal/config"
	"kasa/internal/monobank"
	"kasa/internal/rates"
	"kasa/internal/services"
	"kasa/internal/storage"
	"kasa/internal/workflow"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting kasa-bot")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.BotToken == "" {
		logger.Error("BOT_TOKEN is required")
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

	bank := monobank.NewClient(cfg.MonobankBaseURL, cfg.BankHTTPTimeout)
	table := rates.NewTable(bank)
	converter := rates.NewConverter(table, cfg.BaseCurrency)

	engine := services.NewEngine(repo, converter)
	flow := workflow.NewManager(engine, repo)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error("Failed to initialize Telegram bot", "error", err)
		os.Exit(1)
	}

	b := bot.New(api, engine, flow, repo)
	engine.SetNotifier(b)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.Run(ctx)
	})

	g.Go(func() error {
		return amqpClient.ConsumeStatements(ctx, func(msg *amqp.StatementMessage) error {
			return b.HandleStatement(ctx, msg)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Bot stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
