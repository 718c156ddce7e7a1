// Package importer maps externally supplied tables with arbitrary column
// headers into canonical transactions.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"pettycash/internal/core"
)

// headerAliases maps lowercased source headers to canonical field names.
// Unlisted headers are dropped.
var headerAliases = map[string]string{
	"date":            "date",
	"remark":          "remark",
	"narration":       "remark",
	"description":     "remark",
	"category":        "category",
	"mode":            "mode",
	"payment mode":    "mode",
	"cash in":         "cash_in",
	"cash_in":         "cash_in",
	"cashin":          "cash_in",
	"cash out":        "cash_out",
	"cash_out":        "cash_out",
	"cashout":         "cash_out",
	"attachment_ref":  "attachment_ref",
	"attachment_path": "attachment_ref",
	"attachment":      "attachment_ref",
	"file":            "attachment_ref",
}

// NormalizeTable converts header + data rows into canonical transactions.
// Header matching is case-insensitive; missing canonical columns get
// defaults (empty remark, category "Other", mode "Cash", zero amounts).
// Dates parse leniently: an unparseable date yields a kept row with an
// empty date. Every row receives a fresh stable ID.
func NormalizeTable(header []string, rows [][]string) []core.Transaction {
	colFor := map[string]int{}
	for i, h := range header {
		canonical, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, taken := colFor[canonical]; taken {
			continue // first matching column wins
		}
		colFor[canonical] = i
	}

	cell := func(row []string, field string) string {
		i, ok := colFor[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		if allBlank(row) {
			continue
		}
		d, _ := core.ParseTxDate(cell(row, "date"))
		t := core.Transaction{
			ID:            uuid.NewString(),
			Date:          d,
			Remark:        cell(row, "remark"),
			Category:      cell(row, "category"),
			Mode:          cell(row, "mode"),
			CashIn:        core.ParseAmount(cell(row, "cash_in")),
			CashOut:       core.ParseAmount(cell(row, "cash_out")),
			AttachmentRef: cell(row, "attachment_ref"),
		}
		out = append(out, t.Normalize())
	}
	return out
}

// NormalizeCSV reads a CSV file (first record is the header) and normalizes
// it. Records with a field count different from the header are tolerated.
func NormalizeCSV(r io.Reader) ([]core.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return NormalizeTable(records[0], records[1:]), nil
}

func allBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
