package ledger

import (
	"errors"
	"testing"

	"pettycash/internal/core"
	"pettycash/internal/store"
)

func snapWith(rows ...core.Transaction) store.Snapshot {
	return store.Snapshot{Version: "v0", Rows: rows}
}

func dated(id, date string) core.Transaction {
	d, _ := core.ParseTxDate(date)
	return core.Transaction{ID: id, Date: d, Category: "Other", Mode: core.ModeCash}
}

func TestEditPeriodCountMismatch(t *testing.T) {
	snap := snapWith(dated("a", "2025-03-01"), dated("b", "2025-03-02"))

	_, err := EditPeriod(snap, core.Period{Year: 2025, Month: 3}, []EditedRow{{ID: "a"}})
	if !errors.Is(err, ErrReconciliationConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// Original snapshot untouched.
	if len(snap.Rows) != 2 || snap.Rows[0].ID != "a" {
		t.Fatalf("snapshot mutated on conflict")
	}
}

func TestEditPeriodUnknownID(t *testing.T) {
	snap := snapWith(dated("a", "2025-03-01"))
	_, err := EditPeriod(snap, core.Period{Year: 2025, Month: 3}, []EditedRow{{ID: "zz"}})
	if !errors.Is(err, ErrReconciliationConflict) {
		t.Fatalf("expected conflict for unknown ID, got %v", err)
	}
}

func TestEditPeriodDuplicateID(t *testing.T) {
	snap := snapWith(dated("a", "2025-03-01"), dated("b", "2025-03-02"))
	edits := []EditedRow{{ID: "a"}, {ID: "a"}}
	if _, err := EditPeriod(snap, core.Period{Year: 2025, Month: 3}, edits); !errors.Is(err, ErrReconciliationConflict) {
		t.Fatalf("expected conflict for duplicate ID, got %v", err)
	}
}

func TestEditPeriodAppliesInPlace(t *testing.T) {
	other := dated("x", "2025-02-10")
	other.Remark = "february"
	a := dated("a", "2025-03-01")
	a.AttachmentRef = "bill.jpg"
	snap := snapWith(other, a, dated("b", "2025-03-20"))

	edits := []EditedRow{
		{ID: "b", Date: core.NewTxDate(2025, 3, 21), Remark: "fixed", Category: "Food", Mode: core.ModeUPI, CashOut: core.Money{Cents: 500}},
		{ID: "a", Date: core.NewTxDate(2025, 3, 1), Remark: "water", Category: "Water can", Mode: core.ModeCash, CashOut: core.Money{Cents: 100}},
	}
	out, err := EditPeriod(snap, core.Period{Year: 2025, Month: 3}, edits)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	// Other periods untouched, order preserved.
	if out.Rows[0].ID != "x" || out.Rows[0].Remark != "february" {
		t.Fatalf("other period disturbed: %+v", out.Rows[0])
	}
	if out.Rows[1].ID != "a" || out.Rows[2].ID != "b" {
		t.Fatalf("row order changed: %s, %s", out.Rows[1].ID, out.Rows[2].ID)
	}
	if out.Rows[1].Remark != "water" || out.Rows[2].Remark != "fixed" {
		t.Fatalf("edits not applied: %+v", out.Rows[1:])
	}
	// Attachment ref survives an edit.
	if out.Rows[1].AttachmentRef != "bill.jpg" {
		t.Fatalf("attachment ref lost: %q", out.Rows[1].AttachmentRef)
	}
	// Input snapshot untouched.
	if snap.Rows[2].Remark != "" {
		t.Fatalf("input snapshot mutated")
	}
}

func TestEditPeriodNormalizesDefaults(t *testing.T) {
	snap := snapWith(dated("a", "2025-03-01"))
	out, err := EditPeriod(snap, core.Period{Year: 2025, Month: 3},
		[]EditedRow{{ID: "a", Date: core.NewTxDate(2025, 3, 2)}})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if out.Rows[0].Category != core.DefaultCategory || out.Rows[0].Mode != core.ModeCash {
		t.Fatalf("blank fields must get defaults: %+v", out.Rows[0])
	}
}

func TestDeletePeriod(t *testing.T) {
	undated := core.Transaction{ID: "u", Remark: "legacy"}
	snap := snapWith(dated("a", "2025-03-01"), undated, dated("b", "2025-04-01"), dated("c", "2025-03-31"))

	out := DeletePeriod(snap, core.Period{Year: 2025, Month: 3})
	if len(out.Rows) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out.Rows))
	}
	// Undated rows belong to no period and survive a period delete.
	if out.Rows[0].ID != "u" || out.Rows[1].ID != "b" {
		t.Fatalf("wrong survivors: %s, %s", out.Rows[0].ID, out.Rows[1].ID)
	}
}

func TestImportMergeAppend(t *testing.T) {
	snap := snapWith(dated("a", "2025-03-01"))
	batch := []core.Transaction{dated("i1", "2025-03-10"), {ID: "i2", Remark: "dateless"}}

	out, err := ImportMerge(snap, core.Period{Year: 2025, Month: 3}, batch, false)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(out.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(out.Rows))
	}
	// A dateless row in a valid batch is kept.
	if out.Rows[2].ID != "i2" || !out.Rows[2].Date.IsEmpty() {
		t.Fatalf("dateless row dropped: %+v", out.Rows[2])
	}
}

func TestImportMergeReplace(t *testing.T) {
	snap := snapWith(dated("a", "2025-03-01"), dated("x", "2025-02-01"))
	batch := []core.Transaction{dated("i1", "2025-03-15")}

	out, err := ImportMerge(snap, core.Period{Year: 2025, Month: 3}, batch, true)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(out.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out.Rows))
	}
	if out.Rows[0].ID != "x" || out.Rows[1].ID != "i1" {
		t.Fatalf("replace kept wrong rows: %s, %s", out.Rows[0].ID, out.Rows[1].ID)
	}
}

func TestImportMergeRejectsAllUnparseable(t *testing.T) {
	snap := snapWith(dated("a", "2025-03-01"))
	batch := []core.Transaction{{ID: "i1"}, {ID: "i2"}}

	_, err := ImportMerge(snap, core.Period{Year: 2025, Month: 3}, batch, true)
	if !errors.Is(err, ErrNoValidDates) {
		t.Fatalf("expected ErrNoValidDates, got %v", err)
	}
	if len(snap.Rows) != 1 {
		t.Fatalf("snapshot mutated on rejected import")
	}

	if _, err := ImportMerge(snap, core.Period{Year: 2025, Month: 3}, nil, false); !errors.Is(err, ErrNoValidDates) {
		t.Fatalf("expected ErrNoValidDates for empty batch, got %v", err)
	}
}
