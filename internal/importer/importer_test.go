package importer

import (
	"strings"
	"testing"

	"pettycash/internal/core"
)

func TestNormalizeTableAliases(t *testing.T) {
	header := []string{"Date", "Narration", "Payment Mode", "Cash In", "CashOut", "Notes"}
	rows := [][]string{
		{"2025-03-01", "Opening float", "Bank", "1000", "", "ignore me"},
		{"2025-03-05", "Stamps", "Cash", "", "12.50", "ignore me"},
	}
	got := NormalizeTable(header, rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Remark != "Opening float" || got[0].Mode != "Bank" || got[0].CashIn.Cents != 100000 {
		t.Fatalf("aliases not applied: %+v", got[0])
	}
	if got[1].CashOut.Cents != 1250 {
		t.Fatalf("cashout alias: %+v", got[1])
	}
	// Unknown header "Notes" must be dropped entirely.
	for _, tx := range got {
		if strings.Contains(tx.Remark, "ignore") || strings.Contains(tx.Category, "ignore") {
			t.Fatalf("unmapped column leaked: %+v", tx)
		}
	}
}

func TestNormalizeTableCaseInsensitive(t *testing.T) {
	got := NormalizeTable([]string{"DATE", "cAsH iN"}, [][]string{{"2025-03-01", "5"}})
	if len(got) != 1 || got[0].CashIn.Cents != 500 {
		t.Fatalf("case-insensitive headers: %+v", got)
	}
}

func TestNormalizeTableDefaults(t *testing.T) {
	// No mode, category or remark columns at all.
	got := NormalizeTable([]string{"date", "cash out"}, [][]string{{"2025-03-02", "7"}})
	if len(got) != 1 {
		t.Fatalf("expected 1 row")
	}
	tx := got[0]
	if tx.Mode != core.ModeCash || tx.Category != core.DefaultCategory || tx.Remark != "" || tx.AttachmentRef != "" {
		t.Fatalf("defaults not synthesized: %+v", tx)
	}
	if tx.CashIn.Cents != 0 || tx.CashOut.Cents != 700 {
		t.Fatalf("amounts: %+v", tx)
	}
	if tx.ID == "" {
		t.Fatalf("imported rows must get stable IDs")
	}
}

func TestNormalizeTableLenientDates(t *testing.T) {
	got := NormalizeTable([]string{"date", "remark"}, [][]string{
		{"garbage", "kept anyway"},
		{"2025-03-09", "fine"},
	})
	if len(got) != 2 {
		t.Fatalf("unparseable dates must not drop rows, got %d", len(got))
	}
	if !got[0].Date.IsEmpty() {
		t.Fatalf("bad date must become empty, got %q", got[0].Date)
	}
	if got[1].Date.String() != "2025-03-09" {
		t.Fatalf("good date lost: %q", got[1].Date)
	}
}

func TestNormalizeCSV(t *testing.T) {
	src := "Date,Description,Cash In,Cash Out\n" +
		"2025-03-01,Float,1000,\n" +
		",,,\n" + // fully blank row is skipped
		"2025-03-03,Tea break,,45.5\n"
	got, err := NormalizeCSV(strings.NewReader(src))
	if err != nil {
		t.Fatalf("normalize csv: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[1].Remark != "Tea break" || got[1].CashOut.Cents != 4550 {
		t.Fatalf("row mismatch: %+v", got[1])
	}
}

func TestNormalizeCSVRaggedRows(t *testing.T) {
	src := "date,remark,cash in\n2025-03-01,short row\n"
	got, err := NormalizeCSV(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ragged csv must be tolerated: %v", err)
	}
	if len(got) != 1 || got[0].CashIn.Cents != 0 {
		t.Fatalf("short row handling: %+v", got)
	}
}
