package core

import (
	"errors"
	"sort"
	"strings"
)

// Uncategorized is the sentinel category every transaction carries until it
// is resolved, either by a template match or by the user.
const Uncategorized = "Uncategorized"

type (
	// Transaction is a single bank or manual payment. Amount is signed minor
	// units in the original currency (negative = outflow). NormalizedAmount
	// is the base-currency equivalent, computed once at ingestion and never
	// recomputed afterwards.
	Transaction struct {
		ID               string
		UserID           string
		Amount           int64
		Currency         string
		NormalizedAmount int64
		Timestamp        int64
		Description      string
		Category         string
		Account          string
		RawData          string
	}

	// User owns categories, templates and a running balance in base-currency
	// minor units. Balance is maintained incrementally by the ledger, never
	// recomputed from history.
	User struct {
		ID         string
		TelegramID int64
		APIKey     string
		Categories []string
		Balance    int64
		Templates  []Template
	}

	// Template maps an exact transaction description to a category.
	// Each description maps to at most one category per user.
	Template struct {
		Description string
		Category    string
	}

	// RateEntry is one currency pair as reported by the rate source.
	RateEntry struct {
		CurrencyA string
		CurrencyB string
		RateSell  float64
		RateBuy   float64
		RateCross float64
	}
)

var (
	ErrEmptyUser        = errors.New("empty user id")
	ErrEmptyCurrency    = errors.New("empty currency")
	ErrEmptyDescription = errors.New("empty description")
	ErrZeroAmount       = errors.New("zero amount")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(t.Currency) == "" {
		return ErrEmptyCurrency
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.Amount == 0 {
		return ErrZeroAmount
	}
	if t.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}
	return nil
}

// HasCategory reports whether name is in the user's category set.
// Comparison is case-sensitive.
func (u User) HasCategory(name string) bool {
	for _, c := range u.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// SortedCategories returns a sorted copy for display. The stored order is
// insertion order.
func (u User) SortedCategories() []string {
	out := make([]string, len(u.Categories))
	copy(out, u.Categories)
	sort.Strings(out)
	return out
}
