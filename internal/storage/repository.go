// Package storage is the SQLite persistence layer. Balance mutations share
// a SQL transaction with the record write they belong to, which is the
// atomicity the ledger relies on.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"kasa/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetOrCreateUserByTelegramID loads a user by Telegram identity, creating an
// empty one on first contact.
func (r *SQLiteRepository) GetOrCreateUserByTelegramID(ctx context.Context, telegramID int64) (*core.User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, telegram_id) VALUES (?, ?) ON CONFLICT (telegram_id) DO NOTHING`,
		uuid.NewString(), telegramID)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	var id string
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE telegram_id = ?`, telegramID).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("find user by telegram id: %w", err)
	}
	return r.GetUser(ctx, id)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (*core.User, error) {
	u := &core.User{ID: id}
	var apiKey sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT telegram_id, api_key, balance FROM users WHERE id = ?`, id).
		Scan(&u.TelegramID, &apiKey, &u.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.APIKey = apiKey.String

	u.Categories, err = r.userCategories(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Templates, err = r.userTemplates(ctx, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsersWithAPIKey returns users that connected a bank token, for webhook
// registration at startup.
func (r *SQLiteRepository) ListUsersWithAPIKey(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, telegram_id, api_key, balance FROM users WHERE api_key IS NOT NULL AND api_key != ''`)
	if err != nil {
		return nil, fmt.Errorf("list users with api key: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.APIKey, &u.Balance); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) userCategories(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM categories WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) userTemplates(ctx context.Context, userID string) ([]core.Template, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT description, category FROM templates WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []core.Template
	for rows.Next() {
		var t core.Template
		if err := rows.Scan(&t.Description, &t.Category); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddCategory is idempotent: adding an existing name is a no-op.
func (r *SQLiteRepository) AddCategory(ctx context.Context, userID, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		userID, name)
	if err != nil {
		return fmt.Errorf("add category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveCategory(ctx context.Context, userID, name string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE user_id = ? AND name = ?`, userID, name)
	if err != nil {
		return fmt.Errorf("remove category: %w", err)
	}
	return nil
}

// RenameCategory validates and applies a rename as one SQL transaction:
// the set update and the bulk repoint of historical transactions are refused
// or applied together, never partially.
func (r *SQLiteRepository) RenameCategory(ctx context.Context, userID, oldName, newName string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rename: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE user_id = ? AND name = ?)`,
		userID, oldName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check old category: %w", err)
	}
	if !exists {
		return core.ErrCategoryNotExists
	}

	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE user_id = ? AND name = ?)`,
		userID, newName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check new category: %w", err)
	}
	if exists {
		return core.ErrCategoryExists
	}

	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE user_id = ? AND category = ?)`,
		userID, newName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check category history: %w", err)
	}
	if exists {
		return core.ErrRenameConflict
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET category = ? WHERE user_id = ? AND category = ?`,
		newName, userID, oldName); err != nil {
		return fmt.Errorf("repoint transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE user_id = ? AND name = ?`, userID, oldName); err != nil {
		return fmt.Errorf("drop old category: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO categories (user_id, name) VALUES (?, ?)`, userID, newName); err != nil {
		return fmt.Errorf("add new category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rename: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetBalance(ctx context.Context, userID string, balance int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET balance = ? WHERE id = ?`, balance, userID)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set balance rows: %w", err)
	}
	if n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (r *SQLiteRepository) SetAPIKey(ctx context.Context, userID, apiKey string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET api_key = ? WHERE id = ?`, apiKey, userID)
	if err != nil {
		return fmt.Errorf("set api key: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AddTemplate(ctx context.Context, userID, description, category string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add template: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM templates WHERE user_id = ? AND description = ?)`,
		userID, description).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check template: %w", err)
	}
	if exists {
		return core.ErrDuplicateTemplate
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO templates (user_id, description, category) VALUES (?, ?, ?)`,
		userID, description, category); err != nil {
		return fmt.Errorf("add template: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add template: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveTemplate(ctx context.Context, userID, description string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM templates WHERE user_id = ? AND description = ?`, userID, description)
	if err != nil {
		return fmt.Errorf("remove template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove template rows: %w", err)
	}
	if n == 0 {
		return core.ErrTemplateNotFound
	}
	return nil
}
