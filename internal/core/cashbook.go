package core

import (
	"sort"
	"strings"
	"time"
)

type (
	// CashbookRow is a transaction annotated with the running balance
	// through and including that row.
	CashbookRow struct {
		Transaction
		Balance Money
	}

	// Cashbook is the derived view of one period: rows in date order with
	// running balances, plus the period aggregates.
	Cashbook struct {
		Rows         []CashbookRow
		TotalIn      Money
		TotalOut     Money
		Opening      Money
		FinalBalance Money
	}

	// CategoryTotal aggregates a period's cash flow for one category.
	CategoryTotal struct {
		Category string
		CashIn   Money
		CashOut  Money
	}
)

// FilterPeriod selects the transactions belonging to the period. Rows with
// empty (unparseable) dates are silently excluded; the backing table may
// contain partially-written or legacy rows and that is not an error.
func FilterPeriod(rows []Transaction, p Period) []Transaction {
	var out []Transaction
	for _, t := range rows {
		if p.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// ComputeCashbook sorts the rows ascending by date (stable, empty dates
// first) and computes the running balance from the opening balance. The
// input slice is not modified. Empty input returns no rows and a final
// balance equal to the opening balance.
func ComputeCashbook(rows []Transaction, opening Money) Cashbook {
	cb := Cashbook{Opening: opening, FinalBalance: opening}
	if len(rows) == 0 {
		return cb
	}

	sorted := make([]Transaction, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i].Date, sorted[j].Date
		if di.IsEmpty() || dj.IsEmpty() {
			return di.IsEmpty() && !dj.IsEmpty()
		}
		return di.Before(dj.Time)
	})

	balance := opening
	cb.Rows = make([]CashbookRow, 0, len(sorted))
	for _, t := range sorted {
		cb.TotalIn = cb.TotalIn.Add(t.CashIn)
		cb.TotalOut = cb.TotalOut.Add(t.CashOut)
		balance = balance.Add(t.CashIn).Sub(t.CashOut)
		cb.Rows = append(cb.Rows, CashbookRow{Transaction: t, Balance: balance})
	}
	cb.FinalBalance = opening.Add(cb.TotalIn).Sub(cb.TotalOut)
	return cb
}

// OpeningBalance derives the balance carried into the period by chaining the
// closing balances of every earlier period down to period zero (balance 0).
// The chain telescopes: it equals the net cash flow of all rows dated before
// the period's first day. Rows without a parseable date never contribute.
func OpeningBalance(rows []Transaction, p Period) Money {
	start, _ := p.Bounds()
	var net Money
	for _, t := range rows {
		if t.Date.IsEmpty() || !t.Date.Before(start) {
			continue
		}
		net = net.Add(t.CashIn).Sub(t.CashOut)
	}
	return net
}

// SummarizeCategories totals a period's cash in/out per category, sorted by
// cash out descending (largest spend first), ties by name.
func SummarizeCategories(rows []Transaction) []CategoryTotal {
	idx := map[string]int{}
	var out []CategoryTotal
	for _, t := range rows {
		cat := t.Category
		if strings.TrimSpace(cat) == "" {
			cat = DefaultCategory
		}
		i, ok := idx[cat]
		if !ok {
			i = len(out)
			idx[cat] = i
			out = append(out, CategoryTotal{Category: cat})
		}
		out[i].CashIn = out[i].CashIn.Add(t.CashIn)
		out[i].CashOut = out[i].CashOut.Add(t.CashOut)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CashOut.Cents != out[j].CashOut.Cents {
			return out[i].CashOut.Cents > out[j].CashOut.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// RowFilter narrows a computed cashbook for display. Zero values mean "no
// constraint". Balances are not recomputed; they remain the full-period
// running balances, like the original view.
type RowFilter struct {
	From       time.Time
	To         time.Time
	Remark     string
	Categories []string
	Modes      []string
}

// FilterRows applies the display filter and returns the matching rows plus
// the filtered in/out totals.
func FilterRows(rows []CashbookRow, f RowFilter) ([]CashbookRow, Money, Money) {
	var out []CashbookRow
	var in, outTotal Money
	for _, r := range rows {
		if !f.match(r) {
			continue
		}
		in = in.Add(r.CashIn)
		outTotal = outTotal.Add(r.CashOut)
		out = append(out, r)
	}
	return out, in, outTotal
}

func (f RowFilter) match(r CashbookRow) bool {
	if !f.From.IsZero() && (r.Date.IsEmpty() || r.Date.Before(f.From)) {
		return false
	}
	if !f.To.IsZero() && (r.Date.IsEmpty() || r.Date.After(f.To)) {
		return false
	}
	if s := strings.TrimSpace(f.Remark); s != "" {
		if !strings.Contains(strings.ToLower(r.Remark), strings.ToLower(s)) {
			return false
		}
	}
	if len(f.Categories) > 0 && !contains(f.Categories, r.Category) {
		return false
	}
	if len(f.Modes) > 0 && !contains(f.Modes, r.Mode) {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
