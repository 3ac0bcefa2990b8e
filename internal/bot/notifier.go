package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kasa/internal/core"
)

// TransactionIngested tells the user a transaction landed without a template
// match and offers to review it.
func (b *Bot) TransactionIngested(ctx context.Context, user *core.User, t *core.Transaction) error {
	text := fmt.Sprintf("New transaction:\n%s %s %s",
		core.FormatMinor(t.Amount), t.Currency, t.Description)
	msg := tgbotapi.NewMessage(user.TelegramID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Review", "review"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send ingest notification: %w", err)
	}
	return nil
}

// CategoryAssigned reports an automatic template assignment.
func (b *Bot) CategoryAssigned(ctx context.Context, user *core.User, t *core.Transaction) error {
	text := fmt.Sprintf("Marked automatically:\n%s %s %s as %s",
		core.FormatMinor(t.Amount), t.Currency, t.Description, t.Category)
	if _, err := b.api.Send(tgbotapi.NewMessage(user.TelegramID, text)); err != nil {
		return fmt.Errorf("send assignment notification: %w", err)
	}
	return nil
}
