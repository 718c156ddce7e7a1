package export

import (
	"fmt"
	"strings"
)

// TextSummary renders the short period summary used for messaging: opening,
// totals, final balance and entry count on separate lines.
func TextSummary(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cashbook %s\n", r.Period)
	fmt.Fprintf(&b, "Opening: %s\n", r.Cashbook.Opening.Amount())
	fmt.Fprintf(&b, "Cash in: %s\n", r.Cashbook.TotalIn.Amount())
	fmt.Fprintf(&b, "Cash out: %s\n", r.Cashbook.TotalOut.Amount())
	fmt.Fprintf(&b, "Final balance: %s\n", r.Cashbook.FinalBalance.Amount())
	fmt.Fprintf(&b, "Entries: %d", len(r.Cashbook.Rows))
	return b.String()
}
