package core

import (
	"errors"
	"testing"
)

func validTransaction() Transaction {
	return Transaction{
		ID:               "tx-1",
		UserID:           "user-1",
		Amount:           -1000,
		Currency:         "EUR",
		NormalizedAmount: -952,
		Timestamp:        1717174454,
		Description:      "Netflix",
		Category:         Uncategorized,
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"empty user", func(tx *Transaction) { tx.UserID = " " }, ErrEmptyUser},
		{"empty currency", func(tx *Transaction) { tx.Currency = "" }, ErrEmptyCurrency},
		{"empty description", func(tx *Transaction) { tx.Description = "  " }, ErrEmptyDescription},
		{"zero amount", func(tx *Transaction) { tx.Amount = 0 }, ErrZeroAmount},
		{"zero timestamp", func(tx *Transaction) { tx.Timestamp = 0 }, ErrInvalidTimestamp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tc.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUserCategories(t *testing.T) {
	u := User{Categories: []string{"Food", "Subscriptions", "Bills"}}

	if !u.HasCategory("Food") {
		t.Fatal("expected Food to be present")
	}
	if u.HasCategory("food") {
		t.Fatal("category match must be case-sensitive")
	}

	sorted := u.SortedCategories()
	want := []string{"Bills", "Food", "Subscriptions"}
	for i, c := range want {
		if sorted[i] != c {
			t.Fatalf("sorted[%d] = %q, want %q", i, sorted[i], c)
		}
	}
	// insertion order untouched
	if u.Categories[0] != "Food" {
		t.Fatal("SortedCategories must not mutate the stored order")
	}
}
