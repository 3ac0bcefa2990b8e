// Package bot is the Telegram surface. It renders menus and prompts, tracks
// the free-text step each chat is in, and drives the engine and the
// categorization workflow. No ledger or categorization rules live here.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kasa/internal/core"
	"kasa/internal/services"
	"kasa/internal/workflow"
)

// Store is the user lookup surface the bot needs on top of the engine.
type Store interface {
	GetOrCreateUserByTelegramID(ctx context.Context, telegramID int64) (*core.User, error)
	GetUser(ctx context.Context, id string) (*core.User, error)
	SetAPIKey(ctx context.Context, userID, apiKey string) error
}

// Client is the slice of the Telegram API the bot uses. *tgbotapi.BotAPI
// satisfies it; tests substitute a recorder.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Conversation steps awaiting one line of free text.
const (
	stepNone           = ""
	stepAddCategory    = "add_category"
	stepRenameCategory = "rename_category"
	stepSetBalance     = "set_balance"
	stepSetAPIKey      = "set_api_key"
	stepTxAmount       = "tx_amount"
	stepTxCurrency     = "tx_currency"
	stepTxDescription  = "tx_description"
)

// chatState is the per-chat suspension record: the current step plus the
// partial input accumulated so far.
type chatState struct {
	step        string
	txType      string
	amountMinor int64
	currency    string
	oldCategory string
	choices     []string      // payloads behind index-based callback buttons
	windows     []core.Window // timeframe menu as shown
}

type Bot struct {
	api    Client
	engine *services.Engine
	flow   *workflow.Manager
	store  Store
	states map[int64]*chatState
}

func New(api Client, engine *services.Engine, flow *workflow.Manager, store Store) *Bot {
	return &Bot{
		api:    api,
		engine: engine,
		flow:   flow,
		store:  store,
		states: make(map[int64]*chatState),
	}
}

// Run consumes Telegram updates until the context is cancelled. Updates are
// handled sequentially: each one runs to completion or suspension before the
// next begins.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	slog.InfoContext(ctx, "Telegram bot started")

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			b.handleCallback(ctx, update.CallbackQuery)
		case update.Message != nil:
			b.handleMessage(ctx, update.Message)
		}
	}
	return ctx.Err()
}

func (b *Bot) state(chatID int64) *chatState {
	s, ok := b.states[chatID]
	if !ok {
		s = &chatState{}
		b.states[chatID] = s
	}
	return s
}

func (b *Bot) resetState(chatID int64) {
	delete(b.states, chatID)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	user, err := b.store.GetOrCreateUserByTelegramID(ctx, msg.From.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load user", "error", err, "telegram_id", msg.From.ID)
		b.send(chatID, "Something went wrong, try again later.")
		return
	}

	switch msg.Text {
	case "/start", "/menu":
		b.resetState(chatID)
		b.sendMenu(chatID)
		return
	case "/cancel":
		b.resetState(chatID)
		b.flow.Abandon(user.ID)
		b.send(chatID, "Cancelled.")
		b.sendMenu(chatID)
		return
	}

	state := b.state(chatID)
	if state.step != stepNone {
		b.handleStep(ctx, chatID, user, state, msg.Text)
		return
	}

	// Typed text while a category choice is pending counts as a choice.
	if b.flow.StateOf(user.ID) == workflow.StateAwaitingChoice {
		b.chooseCategory(ctx, chatID, user, strings.TrimSpace(msg.Text))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Acknowledge first so the client stops the spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		slog.Warn("Failed to answer callback", "error", err)
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	user, err := b.store.GetOrCreateUserByTelegramID(ctx, cb.From.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load user", "error", err, "telegram_id", cb.From.ID)
		return
	}

	action, payload, _ := strings.Cut(cb.Data, ":")
	state := b.state(chatID)

	switch action {
	case "menu":
		b.handleMenuAction(ctx, chatID, user, payload)
	case "review":
		b.startReview(ctx, chatID, user)
	case "cat":
		if choice, ok := indexed(state.choices, payload); ok {
			b.chooseCategory(ctx, chatID, user, choice)
		}
	case "type":
		state.step = stepTxAmount
		state.txType = payload
		b.send(chatID, "Write amount")
	case "tf":
		b.sendStatistics(ctx, chatID, user, state, payload)
	case "rmcat":
		if name, ok := indexed(state.choices, payload); ok {
			b.removeCategory(ctx, chatID, user, name)
		}
	case "renfrom":
		if name, ok := indexed(state.choices, payload); ok {
			state.step = stepRenameCategory
			state.oldCategory = name
			b.send(chatID, "Write name for new category")
		}
	case "del":
		if id, ok := indexed(state.choices, payload); ok {
			b.deleteTransaction(ctx, chatID, user, id)
		}
	case "tplsave":
		if id, ok := indexed(state.choices, payload); ok {
			b.saveTemplate(ctx, chatID, user, id)
		}
	case "tplrm":
		if description, ok := indexed(state.choices, payload); ok {
			b.removeTemplate(ctx, chatID, user, description)
		}
	default:
		slog.Warn("Unknown callback", "data", cb.Data)
	}
}

// indexed resolves an index-based callback payload against the choices the
// keyboard was built from. Callback data is capped at 64 bytes, so buttons
// carry indexes instead of raw descriptions.
func indexed(choices []string, payload string) (string, bool) {
	i, err := strconv.Atoi(payload)
	if err != nil || i < 0 || i >= len(choices) {
		return "", false
	}
	return choices[i], true
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("Failed to send message", "error", err, "chat_id", chatID)
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("Failed to send message", "error", err, "chat_id", chatID)
	}
}
