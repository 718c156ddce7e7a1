package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// csvHeader follows the canonical column order with the running balance
// appended. IDs are internal and never exported.
var csvHeader = []string{"date", "remark", "category", "mode", "cash_in", "cash_out", "balance"}

// WriteCSV writes the period's cashbook rows as CSV, opening and totals
// included so the file reads like the on-screen table.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)

	records := [][]string{
		csvHeader,
		{"", "Opening balance", "", "", "", "", r.Cashbook.Opening.Amount()},
	}
	for _, row := range r.Cashbook.Rows {
		records = append(records, []string{
			row.Date.String(),
			row.Remark,
			row.Category,
			row.Mode,
			row.CashIn.Amount(),
			row.CashOut.Amount(),
			row.Balance.Amount(),
		})
	}
	records = append(records, []string{
		"", "Totals", "", "",
		r.Cashbook.TotalIn.Amount(),
		r.Cashbook.TotalOut.Amount(),
		r.Cashbook.FinalBalance.Amount(),
	})

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
