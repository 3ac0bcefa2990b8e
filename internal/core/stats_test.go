package core

import (
	"testing"
	"time"
)

func tx(category string, normalized int64, ts int64) Transaction {
	return Transaction{
		UserID:           "u",
		Category:         category,
		NormalizedAmount: normalized,
		Timestamp:        ts,
	}
}

func TestAggregate(t *testing.T) {
	w := Window{From: 100, To: 200}
	txs := []Transaction{
		tx("Food", -500, 120),
		tx("Food", -300, 150),
		tx("Salary", 10000, 180),
	}

	r := Aggregate(txs, w)

	if r.Count != 3 {
		t.Fatalf("count = %d, want 3", r.Count)
	}
	if r.PerCategory["Food"] != -800 {
		t.Fatalf("Food = %d, want -800", r.PerCategory["Food"])
	}
	if r.PerCategory["Salary"] != 10000 {
		t.Fatalf("Salary = %d, want 10000", r.PerCategory["Salary"])
	}
	if r.Income != 10000 || r.Expense != -800 || r.Total != 9200 {
		t.Fatalf("income/expense/total = %d/%d/%d, want 10000/-800/9200",
			r.Income, r.Expense, r.Total)
	}
}

func TestAggregateWindowInclusive(t *testing.T) {
	w := Window{From: 100, To: 200}
	txs := []Transaction{
		tx("A", 1, 99),  // out
		tx("A", 2, 100), // boundary, in
		tx("A", 4, 200), // boundary, in
		tx("A", 8, 201), // out
	}

	r := Aggregate(txs, w)

	if r.Count != 2 || r.PerCategory["A"] != 6 {
		t.Fatalf("got count=%d sum=%d, want count=2 sum=6", r.Count, r.PerCategory["A"])
	}
}

// A category whose transactions net positive counts entirely as income even
// when individual transactions in it were negative. The split happens on
// per-category totals.
func TestAggregateSplitsPerCategoryTotals(t *testing.T) {
	w := Window{From: 0, To: 1000}
	txs := []Transaction{
		tx("Refunds", -400, 10),
		tx("Refunds", 600, 20),
	}

	r := Aggregate(txs, w)

	if r.Income != 200 || r.Expense != 0 {
		t.Fatalf("income/expense = %d/%d, want 200/0", r.Income, r.Expense)
	}
}

func TestAggregateUncategorized(t *testing.T) {
	r := Aggregate([]Transaction{tx(Uncategorized, -100, 50)}, Window{From: 0, To: 100})
	if r.PerCategory[Uncategorized] != -100 {
		t.Fatalf("uncategorized sum = %d, want -100", r.PerCategory[Uncategorized])
	}
}

func TestReportOrdered(t *testing.T) {
	r := Report{PerCategory: map[string]int64{
		"Salary":  10000,
		"Food":    -800,
		"Rent":    -5000,
		"Hobbies": -800,
	}}

	got := r.Ordered()
	want := []CategorySum{
		{"Rent", -5000},
		{"Food", -800},
		{"Hobbies", -800},
		{"Salary", 10000},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ordered[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTrailingDays(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	w := TrailingDays(now, 7)
	if w.To != now.Unix() {
		t.Fatalf("window must end at now")
	}
	if w.To-w.From != 7*24*60*60 {
		t.Fatalf("window span = %d seconds", w.To-w.From)
	}
	if w.Name != "7 days" {
		t.Fatalf("name = %q", w.Name)
	}
	if TrailingDays(now, 1).Name != "1 day" {
		t.Fatal("singular form expected for one day")
	}
}

func TestCalendarMonth(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	w := CalendarMonth(now, -1)
	if w.Name != "February" {
		t.Fatalf("name = %q, want February", w.Name)
	}
	from := time.Unix(w.From, 0).UTC()
	to := time.Unix(w.To, 0).UTC()
	if from.Day() != 1 || from.Month() != time.February {
		t.Fatalf("from = %v", from)
	}
	if to.Day() != 1 || to.Month() != time.March {
		t.Fatalf("to = %v", to)
	}
}

func TestDefaultWindows(t *testing.T) {
	ws := DefaultWindows(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	if len(ws) != 8 {
		t.Fatalf("expected 8 windows, got %d", len(ws))
	}
	names := map[string]bool{}
	for _, w := range ws {
		if names[w.Name] {
			t.Fatalf("duplicate window name %q", w.Name)
		}
		names[w.Name] = true
	}
	if !names["March"] || !names["February"] || !names["January"] {
		t.Fatalf("missing calendar months in %v", names)
	}
}
