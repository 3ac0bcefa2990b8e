package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"kasa/internal/core"
)

// CreateTransaction inserts the record and applies its normalized amount to
// the owner's balance in the same SQL transaction.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, user_id, amount, currency, normalized_amount, timestamp, description, category, account, raw_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Amount, t.Currency, t.NormalizedAmount,
		t.Timestamp, t.Description, t.Category, t.Account, t.RawData)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + ? WHERE id = ?`,
		t.NormalizedAmount, t.UserID)
	if err != nil {
		return fmt.Errorf("apply balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply balance rows: %w", err)
	}
	if n == 0 {
		return core.ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"normalized_amount", t.NormalizedAmount,
		"currency", t.Currency)
	return nil
}

// DeleteTransaction removes the record and reverses its normalized amount
// from the owner's balance in the same SQL transaction.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	var normalized int64
	err = tx.QueryRowContext(ctx,
		`SELECT normalized_amount FROM transactions WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&normalized)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance - ? WHERE id = ?`, normalized, userID); err != nil {
		return fmt.Errorf("reverse balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Transaction(ctx context.Context, id string) (*core.Transaction, error) {
	t := &core.Transaction{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount, currency, normalized_amount, timestamp, description, category, account, raw_data
		 FROM transactions WHERE id = ?`, id).
		Scan(&t.ID, &t.UserID, &t.Amount, &t.Currency, &t.NormalizedAmount,
			&t.Timestamp, &t.Description, &t.Category, &t.Account, &t.RawData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateTransactionCategory is a pure category overwrite. It never touches
// the balance: category is orthogonal to amount.
func (r *SQLiteRepository) UpdateTransactionCategory(ctx context.Context, id, category string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category = ? WHERE id = ?`, category, id)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update category rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// UncategorizedTransactions returns pending transactions oldest first, the
// order they get reviewed in.
func (r *SQLiteRepository) UncategorizedTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT id, user_id, amount, currency, normalized_amount, timestamp, description, category, account, raw_data
		 FROM transactions WHERE user_id = ? AND category = ? ORDER BY timestamp`,
		userID, core.Uncategorized)
}

// TransactionsInRange returns transactions with timestamp in [from, to],
// both ends inclusive.
func (r *SQLiteRepository) TransactionsInRange(ctx context.Context, userID string, from, to int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT id, user_id, amount, currency, normalized_amount, timestamp, description, category, account, raw_data
		 FROM transactions WHERE user_id = ? AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp`,
		userID, from, to)
}

func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT id, user_id, amount, currency, normalized_amount, timestamp, description, category, account, raw_data
		 FROM transactions WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?`,
		userID, limit)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Currency, &t.NormalizedAmount,
			&t.Timestamp, &t.Description, &t.Category, &t.Account, &t.RawData); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
