// Package export renders a period's cashbook into downloadable artifacts:
// an HTML report, a CSV table, a ZIP of the period's attachments and a
// short text summary. The report worker writes the same artifacts to disk.
package export

import (
	"time"

	"pettycash/internal/core"
)

// Report bundles everything a period artifact needs. Handlers and the
// worker build it once and feed it to each writer.
type Report struct {
	Period      core.Period
	Cashbook    core.Cashbook
	Categories  []core.CategoryTotal
	GeneratedAt time.Time
}

// NewReport assembles a report from the period's cashbook rows.
func NewReport(p core.Period, cb core.Cashbook) Report {
	txs := make([]core.Transaction, 0, len(cb.Rows))
	for _, r := range cb.Rows {
		txs = append(txs, r.Transaction)
	}
	return Report{
		Period:      p,
		Cashbook:    cb,
		Categories:  core.SummarizeCategories(txs),
		GeneratedAt: time.Now(),
	}
}

// FileName builds the artifact filename for a period, e.g.
// "cashbook_2025-03.html".
func FileName(p core.Period, ext string) string {
	return "cashbook_" + p.Key() + "." + ext
}
