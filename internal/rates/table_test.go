package rates

import (
	"context"
	"errors"
	"math"
	"testing"

	"kasa/internal/core"
)

type fakeSource struct {
	entries []core.RateEntry
	err     error
	calls   int
}

func (s *fakeSource) Rates(ctx context.Context) ([]core.RateEntry, error) {
	s.calls++
	return s.entries, s.err
}

func TestLookupEmptyTable(t *testing.T) {
	table := NewTable(&fakeSource{})

	_, err := table.Lookup("USD", "EUR")
	if !errors.Is(err, core.ErrNoRateAvailable) {
		t.Fatalf("expected ErrNoRateAvailable, got %v", err)
	}
}

func TestRefreshPopulatesInverses(t *testing.T) {
	src := &fakeSource{entries: []core.RateEntry{
		{CurrencyA: "USD", CurrencyB: "UAH", RateSell: 41.0, RateBuy: 40.0, RateCross: 0},
	}}
	table := NewTable(src)
	table.Refresh(context.Background())

	direct, err := table.Lookup("USD", "UAH")
	if err != nil {
		t.Fatalf("direct lookup: %v", err)
	}
	inverse, err := table.Lookup("UAH", "USD")
	if err != nil {
		t.Fatalf("inverse lookup: %v", err)
	}

	if got := direct.RateBuy * inverse.RateBuy; math.Abs(got-1) > 1e-12 {
		t.Fatalf("rateBuy * inverse rateBuy = %v, want 1", got)
	}
	if inverse.RateCross != 0 {
		t.Fatalf("zero cross must stay zero after inversion, got %v", inverse.RateCross)
	}
}

func TestRefreshKeepsReportedDirection(t *testing.T) {
	// When the source reports both directions itself, the computed inverse
	// must not shadow either of them.
	src := &fakeSource{entries: []core.RateEntry{
		{CurrencyA: "USD", CurrencyB: "EUR", RateBuy: 0.9},
		{CurrencyA: "EUR", CurrencyB: "USD", RateBuy: 1.2},
	}}
	table := NewTable(src)
	table.Refresh(context.Background())

	e, err := table.Lookup("EUR", "USD")
	if err != nil {
		t.Fatal(err)
	}
	if e.RateBuy != 1.2 {
		t.Fatalf("reported direction overwritten: rateBuy = %v, want 1.2", e.RateBuy)
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	src := &fakeSource{entries: []core.RateEntry{
		{CurrencyA: "USD", CurrencyB: "EUR", RateCross: 1.05},
	}}
	table := NewTable(src)
	table.Refresh(context.Background())

	src.err = errors.New("upstream down")
	src.entries = nil
	table.Refresh(context.Background())

	e, err := table.Lookup("USD", "EUR")
	if err != nil {
		t.Fatalf("stale snapshot unavailable after failed refresh: %v", err)
	}
	if e.RateCross != 1.05 {
		t.Fatalf("rateCross = %v, want 1.05", e.RateCross)
	}
}

func TestRefreshReplacesWholesale(t *testing.T) {
	src := &fakeSource{entries: []core.RateEntry{
		{CurrencyA: "USD", CurrencyB: "EUR", RateCross: 1.05},
	}}
	table := NewTable(src)
	table.Refresh(context.Background())

	src.entries = []core.RateEntry{
		{CurrencyA: "USD", CurrencyB: "GBP", RateCross: 0.8},
	}
	table.Refresh(context.Background())

	if _, err := table.Lookup("USD", "EUR"); !errors.Is(err, core.ErrNoExchangeRate) {
		t.Fatalf("old pair must be gone after replace, got %v", err)
	}
	if _, err := table.Lookup("USD", "GBP"); err != nil {
		t.Fatalf("new pair missing: %v", err)
	}
}
