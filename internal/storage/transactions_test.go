package storage

import (
	"context"
	"errors"
	"testing"

	"kasa/internal/core"

	"github.com/google/uuid"
)

func saveTx(t *testing.T, repo *SQLiteRepository, userID string, amount int64, timestamp int64, description, category string) *core.Transaction {
	t.Helper()
	tx := &core.Transaction{
		ID:               uuid.NewString(),
		UserID:           userID,
		Amount:           amount,
		Currency:         "USD",
		NormalizedAmount: amount,
		Timestamp:        timestamp,
		Description:      description,
		Category:         category,
	}
	if err := repo.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func TestCreateTransactionAppliesBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	saveTx(t, repo, user.ID, -500, 1000, "groceries", core.Uncategorized)
	saveTx(t, repo, user.ID, 10000, 2000, "salary", core.Uncategorized)

	got, err := repo.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Balance != 9500 {
		t.Fatalf("balance = %d, want 9500", got.Balance)
	}
}

func TestCreateTransactionUnknownUser(t *testing.T) {
	repo := newTestRepo(t)

	tx := &core.Transaction{
		ID: uuid.NewString(), UserID: "missing", Amount: -500, Currency: "USD",
		NormalizedAmount: -500, Timestamp: 1000, Description: "x",
		Category: core.Uncategorized,
	}
	if err := repo.CreateTransaction(context.Background(), tx); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("err = %v", err)
	}
	// The rolled-back insert must not leave a record behind.
	if _, err := repo.Transaction(context.Background(), tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("orphan record: err = %v", err)
	}
}

func TestDeleteTransactionReversesBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	tx := saveTx(t, repo, user.ID, -500, 1000, "groceries", core.Uncategorized)

	if err := repo.DeleteTransaction(ctx, user.ID, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := repo.GetUser(ctx, user.ID)
	if got.Balance != 0 {
		t.Fatalf("balance = %d, want 0", got.Balance)
	}

	if err := repo.DeleteTransaction(ctx, user.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestDeleteTransactionWrongOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	tx := saveTx(t, repo, user.ID, -500, 1000, "groceries", core.Uncategorized)

	if err := repo.DeleteTransaction(ctx, "someone-else", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	// Record and balance untouched.
	if _, err := repo.Transaction(ctx, tx.ID); err != nil {
		t.Fatalf("record gone: %v", err)
	}
	got, _ := repo.GetUser(ctx, user.ID)
	if got.Balance != -500 {
		t.Fatalf("balance = %d", got.Balance)
	}
}

func TestUpdateTransactionCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	tx := saveTx(t, repo, user.ID, -500, 1000, "groceries", core.Uncategorized)

	if err := repo.UpdateTransactionCategory(ctx, tx.ID, "Food"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.Transaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category != "Food" {
		t.Fatalf("category = %s", got.Category)
	}
	// Category is orthogonal to amount: balance stays.
	u, _ := repo.GetUser(ctx, user.ID)
	if u.Balance != -500 {
		t.Fatalf("balance = %d", u.Balance)
	}

	if err := repo.UpdateTransactionCategory(ctx, "missing", "Food"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestUncategorizedTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	saveTx(t, repo, user.ID, -300, 3000, "later", core.Uncategorized)
	saveTx(t, repo, user.ID, -100, 1000, "earlier", core.Uncategorized)
	saveTx(t, repo, user.ID, -200, 2000, "done", "Food")

	got, err := repo.UncategorizedTransactions(ctx, user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Description != "earlier" || got[1].Description != "later" {
		t.Fatalf("pending = %+v", got)
	}
}

func TestTransactionsInRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	saveTx(t, repo, user.ID, -100, 999, "before", core.Uncategorized)
	saveTx(t, repo, user.ID, -200, 1000, "at from", core.Uncategorized)
	saveTx(t, repo, user.ID, -300, 2000, "at to", core.Uncategorized)
	saveTx(t, repo, user.ID, -400, 2001, "after", core.Uncategorized)

	got, err := repo.TransactionsInRange(ctx, user.ID, 1000, 2000)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	// Both boundaries inclusive.
	if len(got) != 2 || got[0].Description != "at from" || got[1].Description != "at to" {
		t.Fatalf("range = %+v", got)
	}
}

func TestRecentTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	saveTx(t, repo, user.ID, -100, 1000, "oldest", core.Uncategorized)
	saveTx(t, repo, user.ID, -200, 2000, "middle", core.Uncategorized)
	saveTx(t, repo, user.ID, -300, 3000, "newest", core.Uncategorized)

	got, err := repo.RecentTransactions(ctx, user.ID, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Description != "newest" || got[1].Description != "middle" {
		t.Fatalf("recent = %+v", got)
	}
}
