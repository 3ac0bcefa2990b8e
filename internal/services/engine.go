// Package services wires the normalization, categorization and ledger rules
// on top of the storage and rate collaborators.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"kasa/internal/core"
)

// Store is the persistence surface the engine needs. The SQLite repository
// implements it; tests use an in-memory fake.
type Store interface {
	GetUser(ctx context.Context, id string) (*core.User, error)
	GetOrCreateUserByTelegramID(ctx context.Context, telegramID int64) (*core.User, error)
	AddCategory(ctx context.Context, userID, name string) error
	RemoveCategory(ctx context.Context, userID, name string) error
	RenameCategory(ctx context.Context, userID, oldName, newName string) error
	SetBalance(ctx context.Context, userID string, balance int64) error
	AddTemplate(ctx context.Context, userID, description, category string) error
	RemoveTemplate(ctx context.Context, userID, description string) error

	CreateTransaction(ctx context.Context, t *core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	Transaction(ctx context.Context, id string) (*core.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id, category string) error
	UncategorizedTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	TransactionsInRange(ctx context.Context, userID string, from, to int64) ([]core.Transaction, error)
	RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error)
}

// Converter normalizes amounts into the base currency.
type Converter interface {
	ToBase(ctx context.Context, amount int64, currency string) (int64, error)
	BaseCurrency() string
}

// Notifier tells the user what happened to a transaction. Delivery failures
// never fail the operation that triggered them.
type Notifier interface {
	TransactionIngested(ctx context.Context, user *core.User, t *core.Transaction) error
	CategoryAssigned(ctx context.Context, user *core.User, t *core.Transaction) error
}

// RawTransaction is a parsed payment as delivered by a collaborator (bank
// webhook or manual entry), before normalization.
type RawTransaction struct {
	UserID      string
	Amount      int64
	Currency    string
	Timestamp   int64
	Description string
	Account     string
	RawData     string
}

type Engine struct {
	store     Store
	converter Converter
	notifier  Notifier
}

func NewEngine(store Store, converter Converter) *Engine {
	return &Engine{store: store, converter: converter}
}

// SetNotifier attaches the notification collaborator. The bot both owns the
// engine and receives its notifications, so this is wired after construction.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// Ingest normalizes a raw payment and persists it together with the balance
// increment. A missing exchange rate aborts the whole ingestion: no record
// is written with an unnormalized amount. After persisting, a template match
// resolves the category automatically; otherwise the user is notified that a
// transaction awaits review.
func (e *Engine) Ingest(ctx context.Context, raw RawTransaction) (*core.Transaction, error) {
	normalized, err := e.converter.ToBase(ctx, raw.Amount, raw.Currency)
	if err != nil {
		return nil, fmt.Errorf("normalize %d %s: %w", raw.Amount, raw.Currency, err)
	}

	t := &core.Transaction{
		ID:               uuid.NewString(),
		UserID:           raw.UserID,
		Amount:           raw.Amount,
		Currency:         raw.Currency,
		NormalizedAmount: normalized,
		Timestamp:        raw.Timestamp,
		Description:      raw.Description,
		Category:         core.Uncategorized,
		Account:          raw.Account,
		RawData:          raw.RawData,
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validate transaction: %w", err)
	}

	if err := e.store.CreateTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("persist transaction: %w", err)
	}

	user, err := e.store.GetUser(ctx, t.UserID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}

	if category, ok := core.MatchTemplate(t.Description, user.Templates); ok {
		if err := e.store.UpdateTransactionCategory(ctx, t.ID, category); err != nil {
			return nil, fmt.Errorf("apply template category: %w", err)
		}
		t.Category = category
		e.notify(ctx, func() error { return e.notifier.CategoryAssigned(ctx, user, t) })
		return t, nil
	}

	e.notify(ctx, func() error { return e.notifier.TransactionIngested(ctx, user, t) })
	return t, nil
}

// ResolveCategory assigns a category chosen by the user. Re-resolving an
// already-categorized transaction is a pure overwrite; balance is never
// involved.
func (e *Engine) ResolveCategory(ctx context.Context, txID, category string) (*core.Transaction, error) {
	t, err := e.store.Transaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	user, err := e.store.GetUser(ctx, t.UserID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}
	if !user.HasCategory(category) {
		return nil, core.ErrInvalidCategory
	}

	if err := e.store.UpdateTransactionCategory(ctx, t.ID, category); err != nil {
		return nil, err
	}
	t.Category = category
	return t, nil
}

// AutoCategorize returns the template category for a transaction, if any.
// The caller assigns it.
func (e *Engine) AutoCategorize(t *core.Transaction, templates []core.Template) (string, bool) {
	return core.MatchTemplate(t.Description, templates)
}

func (e *Engine) DeleteTransaction(ctx context.Context, userID, txID string) error {
	return e.store.DeleteTransaction(ctx, userID, txID)
}

// Statistics aggregates the user's history over the window.
func (e *Engine) Statistics(ctx context.Context, userID string, w core.Window) (core.Report, error) {
	txs, err := e.store.TransactionsInRange(ctx, userID, w.From, w.To)
	if err != nil {
		return core.Report{}, fmt.Errorf("load transactions: %w", err)
	}
	return core.Aggregate(txs, w), nil
}

func (e *Engine) RenameCategory(ctx context.Context, userID, oldName, newName string) error {
	return e.store.RenameCategory(ctx, userID, oldName, newName)
}

func (e *Engine) AddCategory(ctx context.Context, userID, name string) error {
	return e.store.AddCategory(ctx, userID, name)
}

func (e *Engine) RemoveCategory(ctx context.Context, userID, name string) error {
	return e.store.RemoveCategory(ctx, userID, name)
}

// SetBalance is the administrative override. It deliberately bypasses the
// transaction-sum invariant for manual reconciliation.
func (e *Engine) SetBalance(ctx context.Context, userID string, balance int64) error {
	return e.store.SetBalance(ctx, userID, balance)
}

// SaveTemplate learns a description→category template from an
// already-categorized transaction.
func (e *Engine) SaveTemplate(ctx context.Context, userID, description, category string) error {
	return e.store.AddTemplate(ctx, userID, description, category)
}

func (e *Engine) RemoveTemplate(ctx context.Context, userID, description string) error {
	return e.store.RemoveTemplate(ctx, userID, description)
}

func (e *Engine) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	return e.store.RecentTransactions(ctx, userID, limit)
}

func (e *Engine) Transaction(ctx context.Context, id string) (*core.Transaction, error) {
	return e.store.Transaction(ctx, id)
}

func (e *Engine) BaseCurrency() string {
	return e.converter.BaseCurrency()
}

func (e *Engine) notify(ctx context.Context, send func() error) {
	if e.notifier == nil {
		return
	}
	if err := send(); err != nil {
		slog.ErrorContext(ctx, "Notification failed", "error", err)
	}
}
