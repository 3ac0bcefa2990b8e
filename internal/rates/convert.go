package rates

import (
	"context"
	"fmt"
	"math"

	"kasa/internal/core"
)

// Converter turns amounts in arbitrary currencies into base-currency minor
// units using the rate table.
type Converter struct {
	table *Table
	base  string
}

func NewConverter(table *Table, baseCurrency string) *Converter {
	return &Converter{table: table, base: baseCurrency}
}

func (c *Converter) BaseCurrency() string {
	return c.base
}

// ToBase converts signed minor units in the given currency to the base
// currency. The base currency converts as identity without touching the
// table. Everything else triggers a refresh first: the table may be
// arbitrarily old, and a stale snapshot is only acceptable when the source
// is unreachable.
//
// The division happens in floating point and the result is rounded to the
// nearest minor unit once, here, so the stored normalized amount never
// drifts across repeated conversions. Rounding to nearest cannot flip the
// sign of a nonzero amount.
func (c *Converter) ToBase(ctx context.Context, amount int64, currency string) (int64, error) {
	if currency == c.base {
		return amount, nil
	}

	c.table.Refresh(ctx)

	entry, err := c.table.Lookup(c.base, currency)
	if err != nil {
		return 0, fmt.Errorf("lookup %s/%s: %w", c.base, currency, err)
	}

	rate := entry.RateCross
	if rate == 0 {
		rate = entry.RateBuy
	}
	if rate == 0 {
		return 0, fmt.Errorf("lookup %s/%s: %w", c.base, currency, core.ErrNoExchangeRate)
	}

	return int64(math.Round(float64(amount) / rate)), nil
}
