package core

import (
	"fmt"
	"sort"
	"time"
)

type (
	// Window is an inclusive timestamp range with a display name.
	Window struct {
		From int64
		To   int64
		Name string
	}

	// CategorySum is one line of a report's per-category breakdown.
	CategorySum struct {
		Category string
		Sum      int64
	}

	// Report aggregates normalized amounts over a window. Income and Expense
	// are sums of per-category totals split by sign, so a mixed-sign category
	// that nets positive counts entirely as income. That mirrors how the
	// numbers were always reported; see DESIGN.md before changing it.
	Report struct {
		PerCategory map[string]int64
		Income      int64
		Expense     int64
		Total       int64
		Count       int
	}
)

// Aggregate filters transactions to the window (inclusive on both ends) and
// sums NormalizedAmount per category.
func Aggregate(transactions []Transaction, w Window) Report {
	r := Report{PerCategory: make(map[string]int64)}
	for _, t := range transactions {
		if t.Timestamp < w.From || t.Timestamp > w.To {
			continue
		}
		r.PerCategory[t.Category] += t.NormalizedAmount
		r.Count++
	}
	for _, sum := range r.PerCategory {
		if sum > 0 {
			r.Income += sum
		} else {
			r.Expense += sum
		}
	}
	r.Total = r.Income + r.Expense
	return r
}

// Ordered returns the per-category sums sorted ascending by value, most
// negative first, which is the display order. Ties break on name so the
// output is stable.
func (r Report) Ordered() []CategorySum {
	out := make([]CategorySum, 0, len(r.PerCategory))
	for c, s := range r.PerCategory {
		out = append(out, CategorySum{Category: c, Sum: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sum != out[j].Sum {
			return out[i].Sum < out[j].Sum
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TrailingDays builds a window covering the last n days up to now.
func TrailingDays(now time.Time, n int) Window {
	name := fmt.Sprintf("%d days", n)
	if n == 1 {
		name = "1 day"
	}
	return Window{
		From: now.Add(-time.Duration(n) * 24 * time.Hour).Unix(),
		To:   now.Unix(),
		Name: name,
	}
}

// CalendarMonth builds a window for the month shifted from the current one
// (0 = current month, -1 = previous). It spans from the first instant of the
// month to the first instant of the next, matching how statements group.
func CalendarMonth(now time.Time, shift int) Window {
	first := time.Date(now.Year(), now.Month()+time.Month(shift), 1, 0, 0, 0, 0, now.Location())
	next := first.AddDate(0, 1, 0)
	return Window{
		From: first.Unix(),
		To:   next.Unix(),
		Name: first.Month().String(),
	}
}

// DefaultWindows is the fixed timeframe menu: several trailing ranges plus
// the current and two previous calendar months.
func DefaultWindows(now time.Time) []Window {
	return []Window{
		TrailingDays(now, 365),
		TrailingDays(now, 90),
		TrailingDays(now, 30),
		TrailingDays(now, 7),
		TrailingDays(now, 1),
		CalendarMonth(now, 0),
		CalendarMonth(now, -1),
		CalendarMonth(now, -2),
	}
}
