package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pettycash/internal/core"
	"pettycash/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	in := core.Transaction{
		ID:       "row-1",
		Date:     core.NewTxDate(2025, 3, 5),
		Remark:   "Water can",
		Category: "Water can",
		Mode:     core.ModeCash,
		CashOut:  core.Money{Cents: 6000},
	}
	if err := s.AppendRow(ctx, in); err != nil {
		t.Fatalf("append: %v", err)
	}

	snap, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(snap.Rows))
	}
	got := snap.Rows[0]
	if got.ID != "row-1" || got.Remark != "Water can" || got.CashOut.Cents != 6000 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Date.String() != "2025-03-05" {
		t.Fatalf("date round trip: %q", got.Date)
	}
}

func TestOverwriteBumpsVersionAndRejectsStale(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	snap, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	snap.Rows = []core.Transaction{{ID: "a", Date: core.NewTxDate(2025, 1, 1), CashIn: core.Money{Cents: 100}}}
	if err := s.OverwriteAll(ctx, snap); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	// The old snapshot is now stale.
	if err := s.OverwriteAll(ctx, snap); !errors.Is(err, store.ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	after, _ := s.LoadAll(ctx)
	if len(after.Rows) != 1 || after.Rows[0].ID != "a" {
		t.Fatalf("stale overwrite must not change the table: %+v", after.Rows)
	}
	if after.Version == snap.Version {
		t.Fatalf("version did not advance")
	}
}

func TestAppendAssignsID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AppendRow(ctx, core.Transaction{Date: core.NewTxDate(2025, 2, 2)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	snap, _ := s.LoadAll(ctx)
	if snap.Rows[0].ID == "" {
		t.Fatalf("append must assign an ID")
	}
	if snap.Rows[0].Category != core.DefaultCategory {
		t.Fatalf("defaults not applied: %+v", snap.Rows[0])
	}
}

func TestEmptyDatePersists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AppendRow(ctx, core.Transaction{ID: "legacy", Remark: "no date"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	snap, _ := s.LoadAll(ctx)
	if !snap.Rows[0].Date.IsEmpty() {
		t.Fatalf("empty date must survive a round trip, got %q", snap.Rows[0].Date)
	}
}
