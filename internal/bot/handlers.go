package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kasa/internal/core"
	"kasa/internal/services"
	"kasa/internal/workflow"
)

func (b *Bot) sendMenu(chatID int64) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Add transaction", "menu:add_tx"),
			tgbotapi.NewInlineKeyboardButtonData("Review pending", "menu:review"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Statistics", "menu:stats"),
			tgbotapi.NewInlineKeyboardButtonData("Set balance", "menu:set_balance"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Add category", "menu:add_category"),
			tgbotapi.NewInlineKeyboardButtonData("Remove category", "menu:remove_category"),
			tgbotapi.NewInlineKeyboardButtonData("Rename category", "menu:rename_category"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Save template", "menu:save_template"),
			tgbotapi.NewInlineKeyboardButtonData("Remove template", "menu:remove_template"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Delete transaction", "menu:delete_tx"),
			tgbotapi.NewInlineKeyboardButtonData("Connect bank", "menu:connect_bank"),
		),
	)
	b.sendWithKeyboard(chatID, "What do you want to do?", keyboard)
}

func (b *Bot) handleMenuAction(ctx context.Context, chatID int64, user *core.User, action string) {
	state := b.state(chatID)

	switch action {
	case "add_category":
		state.step = stepAddCategory
		b.send(chatID, "Write name for new category")

	case "remove_category":
		if len(user.Categories) == 0 {
			b.send(chatID, "You have no categories yet.")
			return
		}
		state.choices = user.SortedCategories()
		b.sendWithKeyboard(chatID, "Which category should go?", choiceKeyboard("rmcat", state.choices))

	case "rename_category":
		if len(user.Categories) == 0 {
			b.send(chatID, "You have no categories yet.")
			return
		}
		state.choices = user.SortedCategories()
		b.sendWithKeyboard(chatID, "Which category should be renamed?", choiceKeyboard("renfrom", state.choices))

	case "stats":
		state.windows = core.DefaultWindows(time.Now())
		labels := make([]string, len(state.windows))
		for i, w := range state.windows {
			labels[i] = w.Name
		}
		text := fmt.Sprintf("Balance: %s %s\nPick a timeframe:",
			core.FormatMinor(user.Balance), b.engine.BaseCurrency())
		b.sendWithKeyboard(chatID, text, choiceKeyboard("tf", labels))

	case "review":
		b.startReview(ctx, chatID, user)

	case "add_tx":
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Income", "type:Income"),
				tgbotapi.NewInlineKeyboardButtonData("Expense", "type:Expense"),
			),
		)
		b.sendWithKeyboard(chatID, "Income or expense?", keyboard)

	case "set_balance":
		state.step = stepSetBalance
		b.send(chatID, "Write the new balance")

	case "connect_bank":
		state.step = stepSetAPIKey
		b.send(chatID, "Paste your bank API token. Statements start flowing after the next server restart registers the webhook.")

	case "delete_tx":
		b.sendTransactionPicker(ctx, chatID, user, state, "del", "Which transaction should be deleted?")

	case "save_template":
		b.sendTransactionPicker(ctx, chatID, user, state, "tplsave", "Pick a transaction to remember as a template:")

	case "remove_template":
		if len(user.Templates) == 0 {
			b.send(chatID, "You have no templates yet.")
			return
		}
		state.choices = make([]string, 0, len(user.Templates))
		labels := make([]string, 0, len(user.Templates))
		for _, tpl := range user.Templates {
			state.choices = append(state.choices, tpl.Description)
			labels = append(labels, fmt.Sprintf("%s → %s", tpl.Description, tpl.Category))
		}
		b.sendWithKeyboard(chatID, "Which template should go?", labeledKeyboard("tplrm", labels))

	default:
		slog.Warn("Unknown menu action", "action", action)
	}
}

// sendTransactionPicker lists the user's recent transactions as buttons whose
// payloads are transaction ids.
func (b *Bot) sendTransactionPicker(ctx context.Context, chatID int64, user *core.User, state *chatState, action, text string) {
	txs, err := b.engine.RecentTransactions(ctx, user.ID, 10)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list recent transactions", "error", err, "user_id", user.ID)
		b.send(chatID, "Something went wrong, try again later.")
		return
	}
	if len(txs) == 0 {
		b.send(chatID, "No transactions yet.")
		return
	}

	state.choices = make([]string, len(txs))
	labels := make([]string, len(txs))
	for i, t := range txs {
		state.choices[i] = t.ID
		labels[i] = fmt.Sprintf("%s %s %s", core.FormatMinor(t.Amount), t.Currency, t.Description)
	}
	b.sendWithKeyboard(chatID, text, labeledKeyboard(action, labels))
}

func (b *Bot) startReview(ctx context.Context, chatID int64, user *core.User) {
	prompt, err := b.flow.Begin(ctx, user)
	if errors.Is(err, core.ErrNoCategories) {
		b.send(chatID, "Create some categories first.")
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to begin review", "error", err, "user_id", user.ID)
		b.send(chatID, "Something went wrong, try again later.")
		return
	}
	if prompt == nil {
		b.send(chatID, "No new transactions to review.")
		return
	}
	b.sendPrompt(chatID, prompt)
}

func (b *Bot) sendPrompt(chatID int64, prompt *workflow.Prompt) {
	state := b.state(chatID)
	state.choices = prompt.Choices

	t := prompt.Transaction
	text := fmt.Sprintf("What is this?\n%s %s %s", core.FormatMinor(t.Amount), t.Currency, t.Description)
	b.sendWithKeyboard(chatID, text, choiceKeyboard("cat", prompt.Choices))
}

func (b *Bot) chooseCategory(ctx context.Context, chatID int64, user *core.User, category string) {
	resolved, next, err := b.flow.Choose(ctx, user, category)
	if errors.Is(err, core.ErrInvalidCategory) {
		reply := fmt.Sprintf("There is no category %q.", category)
		if hint, ok := nearestCategory(category, user.Categories); ok {
			reply += fmt.Sprintf(" Did you mean %q?", hint)
		}
		b.send(chatID, reply)
		if next != nil {
			b.sendPrompt(chatID, next)
		}
		return
	}
	if errors.Is(err, core.ErrNotFound) {
		b.send(chatID, "Nothing is waiting for a category right now.")
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to resolve category", "error", err, "user_id", user.ID)
		b.send(chatID, "Something went wrong, try again later.")
		return
	}

	b.send(chatID, fmt.Sprintf("%s marked as %s.", resolved.Description, resolved.Category))
	if next != nil {
		b.sendPrompt(chatID, next)
	}
}

func (b *Bot) sendStatistics(ctx context.Context, chatID int64, user *core.User, state *chatState, name string) {
	var window *core.Window
	for i := range state.windows {
		if state.windows[i].Name == name {
			window = &state.windows[i]
			break
		}
	}
	if window == nil {
		b.send(chatID, "That timeframe expired, open statistics again.")
		return
	}

	report, err := b.engine.Statistics(ctx, user.ID, *window)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to aggregate statistics", "error", err, "user_id", user.ID)
		b.send(chatID, "Something went wrong, try again later.")
		return
	}
	b.send(chatID, formatReport(window.Name, report))
}

func formatReport(name string, r core.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Statistics for %s:\n", name)
	if r.Count == 0 {
		sb.WriteString("No transactions in this timeframe.")
		return sb.String()
	}
	for _, c := range r.Ordered() {
		fmt.Fprintf(&sb, "%s: %s\n", c.Category, core.FormatMinor(c.Sum))
	}
	fmt.Fprintf(&sb, "\nIncome: %s\nExpense: %s\nTotal: %s\nTransactions: %d",
		core.FormatMinor(r.Income), core.FormatMinor(r.Expense), core.FormatMinor(r.Total), r.Count)
	return sb.String()
}

func (b *Bot) removeCategory(ctx context.Context, chatID int64, user *core.User, name string) {
	if err := b.engine.RemoveCategory(ctx, user.ID, name); err != nil {
		slog.ErrorContext(ctx, "Failed to remove category", "error", err, "user_id", user.ID)
		b.send(chatID, "Something went wrong, try again later.")
		return
	}
	b.send(chatID, fmt.Sprintf("Category %s removed.", name))
}

func (b *Bot) deleteTransaction(ctx context.Context, chatID int64, user *core.User, id string) {
	if err := b.engine.DeleteTransaction(ctx, user.ID, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			b.send(chatID, "That transaction is already gone.")
			return
		}
		slog.ErrorContext(ctx, "Failed to delete transaction", "error", err, "user_id", user.ID)
		b.send(chatID, "Something went wrong, try again later.")
		return
	}
	b.send(chatID, "Transaction deleted, balance adjusted.")
}

func (b *Bot) saveTemplate(ctx context.Context, chatID int64, user *core.User, txID string) {
	t, err := b.engine.Transaction(ctx, txID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load transaction", "error", err, "user_id", user.ID)
		b.send(chatID, "Something went wrong, try again later.")
		return
	}
	if t.Category == core.Uncategorized {
		b.send(chatID, "Categorize that transaction first, then save the template.")
		return
	}
	if err := b.engine.SaveTemplate(ctx, user.ID, t.Description, t.Category); err != nil {
		if errors.Is(err, core.ErrDuplicateTemplate) {
			b.send(chatID, fmt.Sprintf("A template for %q already exists.", t.Description))
			return
		}
		slog.ErrorContext(ctx, "Failed to save template", "error", err, "user_id", user.ID)
		b.send(chatID, "Something went wrong, try again later.")
		return
	}
	b.send(chatID, fmt.Sprintf("Saved: %q will be marked as %s automatically.", t.Description, t.Category))
}

func (b *Bot) removeTemplate(ctx context.Context, chatID int64, user *core.User, description string) {
	if err := b.engine.RemoveTemplate(ctx, user.ID, description); err != nil {
		if errors.Is(err, core.ErrTemplateNotFound) {
			b.send(chatID, "That template is already gone.")
			return
		}
		slog.ErrorContext(ctx, "Failed to remove template", "error", err, "user_id", user.ID)
		b.send(chatID, "Something went wrong, try again later.")
		return
	}
	b.send(chatID, "Template removed.")
}

// handleStep consumes one line of free text for the step the chat is
// suspended in.
func (b *Bot) handleStep(ctx context.Context, chatID int64, user *core.User, state *chatState, text string) {
	text = strings.TrimSpace(text)

	switch state.step {
	case stepAddCategory:
		state.step = stepNone
		if text == "" {
			b.send(chatID, "Category name cannot be empty.")
			return
		}
		if err := b.engine.AddCategory(ctx, user.ID, text); err != nil {
			slog.ErrorContext(ctx, "Failed to add category", "error", err, "user_id", user.ID)
			b.send(chatID, "Something went wrong, try again later.")
			return
		}
		b.send(chatID, fmt.Sprintf("Category %s added.", text))

	case stepRenameCategory:
		old := state.oldCategory
		state.step = stepNone
		state.oldCategory = ""
		err := b.engine.RenameCategory(ctx, user.ID, old, text)
		switch {
		case errors.Is(err, core.ErrCategoryNotExists):
			b.send(chatID, fmt.Sprintf("Category %s no longer exists.", old))
		case errors.Is(err, core.ErrCategoryExists):
			b.send(chatID, fmt.Sprintf("You already have a category named %s.", text))
		case errors.Is(err, core.ErrRenameConflict):
			b.send(chatID, fmt.Sprintf("Some transactions already use %s, pick another name.", text))
		case err != nil:
			slog.ErrorContext(ctx, "Failed to rename category", "error", err, "user_id", user.ID)
			b.send(chatID, "Something went wrong, try again later.")
		default:
			b.send(chatID, fmt.Sprintf("Renamed %s to %s.", old, text))
		}

	case stepSetBalance:
		state.step = stepNone
		balance, err := parseSignedMinor(text)
		if err != nil {
			b.send(chatID, "That does not look like a number, e.g. 1234.56")
			return
		}
		if err := b.engine.SetBalance(ctx, user.ID, balance); err != nil {
			slog.ErrorContext(ctx, "Failed to set balance", "error", err, "user_id", user.ID)
			b.send(chatID, "Something went wrong, try again later.")
			return
		}
		b.send(chatID, fmt.Sprintf("Balance set to %s %s.", core.FormatMinor(balance), b.engine.BaseCurrency()))

	case stepSetAPIKey:
		state.step = stepNone
		if text == "" {
			b.send(chatID, "Token cannot be empty.")
			return
		}
		if err := b.store.SetAPIKey(ctx, user.ID, text); err != nil {
			slog.ErrorContext(ctx, "Failed to store api key", "error", err, "user_id", user.ID)
			b.send(chatID, "Something went wrong, try again later.")
			return
		}
		b.send(chatID, "Token saved.")

	case stepTxAmount:
		amount, err := core.ParseDecimalToMinor(text)
		if err != nil {
			b.send(chatID, "That does not look like an amount, e.g. 12.50")
			return
		}
		if state.txType == "Expense" {
			amount = -amount
		}
		state.amountMinor = amount
		state.step = stepTxCurrency
		b.send(chatID, fmt.Sprintf("Currency? (e.g. %s)", b.engine.BaseCurrency()))

	case stepTxCurrency:
		currency := strings.ToUpper(text)
		if len(currency) != 3 {
			b.send(chatID, "Use a 3-letter code, e.g. USD or EUR.")
			return
		}
		state.currency = currency
		state.step = stepTxDescription
		b.send(chatID, "Description?")

	case stepTxDescription:
		state.step = stepNone
		if text == "" {
			b.send(chatID, "Description cannot be empty.")
			return
		}
		b.ingestManual(ctx, chatID, user, state, text)

	default:
		state.step = stepNone
	}
}

func (b *Bot) ingestManual(ctx context.Context, chatID int64, user *core.User, state *chatState, description string) {
	t, err := b.engine.Ingest(ctx, services.RawTransaction{
		UserID:      user.ID,
		Amount:      state.amountMinor,
		Currency:    state.currency,
		Timestamp:   time.Now().Unix(),
		Description: description,
		Account:     "manual",
	})
	if err != nil {
		if errors.Is(err, core.ErrNoExchangeRate) || errors.Is(err, core.ErrNoRateAvailable) {
			b.send(chatID, fmt.Sprintf("No exchange rate for %s, the transaction was not saved.", state.currency))
			return
		}
		slog.ErrorContext(ctx, "Failed to ingest manual transaction", "error", err, "user_id", user.ID)
		b.send(chatID, "Something went wrong, the transaction was not saved.")
		return
	}
	b.send(chatID, fmt.Sprintf("Saved %s %s as %s %s.",
		core.FormatMinor(t.Amount), t.Currency,
		core.FormatMinor(t.NormalizedAmount), b.engine.BaseCurrency()))

	// No template matched: ask for the category right away instead of
	// leaving the transaction for a later review pass.
	if t.Category == core.Uncategorized {
		prompt, err := b.flow.BeginOne(user, *t)
		if errors.Is(err, core.ErrNoCategories) {
			b.send(chatID, "Create some categories to sort it into.")
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to start categorization", "error", err, "user_id", user.ID)
			return
		}
		b.sendPrompt(chatID, prompt)
	}
}

// parseSignedMinor parses a balance, which unlike an amount may be negative
// or zero.
func parseSignedMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = strings.TrimPrefix(s, "-")
	}
	if isZeroDecimal(s) {
		return 0, nil
	}
	v, err := core.ParseDecimalToMinor(s)
	if err != nil {
		return 0, err
	}
	if negative {
		v = -v
	}
	return v, nil
}

func isZeroDecimal(s string) bool {
	s = strings.ReplaceAll(s, ",", ".")
	seenDigit := false
	dots := 0
	for _, r := range s {
		switch r {
		case '.':
			dots++
			if dots > 1 {
				return false
			}
		case '0':
			seenDigit = true
		default:
			return false
		}
	}
	return seenDigit
}

func choiceKeyboard(action string, choices []string) tgbotapi.InlineKeyboardMarkup {
	return labeledKeyboard(action, choices)
}

// labeledKeyboard builds one button per label, one per row, with index-based
// callback data.
func labeledKeyboard(action string, labels []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(labels))
	for i, label := range labels {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s:%d", action, i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
