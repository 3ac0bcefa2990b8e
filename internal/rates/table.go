// Package rates holds the exchange-rate table and the conversion of
// transaction amounts into the base currency.
package rates

import (
	"context"
	"log/slog"
	"sync"

	"kasa/internal/core"
)

// Source delivers the current exchange rates, already mapped to alphabetic
// currency codes.
type Source interface {
	Rates(ctx context.Context) ([]core.RateEntry, error)
}

type pairKey struct {
	a, b string
}

// Table is the in-memory rate snapshot. Refresh rebuilds it wholesale from
// the source, adding the algebraic inverse of every reported pair so either
// lookup order succeeds. On a failed refresh the previous snapshot stays in
// place, so a best-effort rate is always available once one refresh ever
// succeeded.
type Table struct {
	source Source

	mu      sync.RWMutex
	entries map[pairKey]core.RateEntry
}

func NewTable(source Source) *Table {
	return &Table{source: source}
}

// Refresh replaces the snapshot with fresh entries. A fetch failure is
// logged and swallowed here: callers keep reading the old table.
func (t *Table) Refresh(ctx context.Context) {
	fetched, err := t.source.Rates(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Rate refresh failed, keeping previous snapshot", "error", err)
		return
	}

	entries := make(map[pairKey]core.RateEntry, 2*len(fetched))
	for _, e := range fetched {
		entries[pairKey{e.CurrencyA, e.CurrencyB}] = e
	}
	// Computed inverses never shadow a direction the source reported itself.
	for _, e := range fetched {
		k := pairKey{e.CurrencyB, e.CurrencyA}
		if _, ok := entries[k]; ok {
			continue
		}
		entries[k] = core.RateEntry{
			CurrencyA: e.CurrencyB,
			CurrencyB: e.CurrencyA,
			RateSell:  invert(e.RateSell),
			RateBuy:   invert(e.RateBuy),
			RateCross: invert(e.RateCross),
		}
	}

	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()

	slog.DebugContext(ctx, "Rate table refreshed", "pairs", len(entries))
}

// Lookup returns the entry for the exact ordered pair (a, b).
func (t *Table) Lookup(a, b string) (core.RateEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.entries) == 0 {
		return core.RateEntry{}, core.ErrNoRateAvailable
	}
	e, ok := t.entries[pairKey{a, b}]
	if !ok {
		return core.RateEntry{}, core.ErrNoExchangeRate
	}
	return e, nil
}

func invert(r float64) float64 {
	if r == 0 {
		return 0
	}
	return 1 / r
}
