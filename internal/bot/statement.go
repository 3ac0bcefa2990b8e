package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kasa/internal/amqp"
	"kasa/internal/core"
	"kasa/internal/monobank"
	"kasa/internal/services"
)

// HandleStatement ingests one queued bank statement item. Returning an error
// requeues the delivery, so only transient failures propagate; a statement
// that can never be ingested is logged and dropped.
func (b *Bot) HandleStatement(ctx context.Context, msg *amqp.StatementMessage) error {
	currency, ok := monobank.AlphaCode(msg.CurrencyCode)
	if !ok {
		slog.ErrorContext(ctx, "Dropping statement with unknown currency code",
			"currency_code", msg.CurrencyCode, "statement_id", msg.StatementID)
		return nil
	}

	_, err := b.engine.Ingest(ctx, services.RawTransaction{
		UserID:      msg.UserID,
		Amount:      msg.Amount,
		Currency:    currency,
		Timestamp:   msg.Time,
		Description: msg.Description,
		Account:     msg.Account,
		RawData:     msg.RawData,
	})
	if err == nil {
		return nil
	}

	// No rate means the amount cannot be normalized now or on redelivery.
	// Tell the owner instead of spinning on the queue.
	if errors.Is(err, core.ErrNoExchangeRate) || errors.Is(err, core.ErrNoRateAvailable) {
		slog.ErrorContext(ctx, "Dropping statement without exchange rate",
			"error", err, "currency", currency, "statement_id", msg.StatementID)
		if user, uerr := b.store.GetUser(ctx, msg.UserID); uerr == nil {
			b.send(user.TelegramID, fmt.Sprintf(
				"A payment of %s %s (%s) could not be recorded: no exchange rate for %s.",
				core.FormatMinor(msg.Amount), currency, msg.Description, currency))
		}
		return nil
	}

	return fmt.Errorf("ingest statement %s: %w", msg.StatementID, err)
}
