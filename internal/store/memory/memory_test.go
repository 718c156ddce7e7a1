package memory

import (
	"context"
	"errors"
	"testing"

	"pettycash/internal/core"
	"pettycash/internal/store"
)

func TestLoadAppendOverwrite(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	snap, err := s.LoadAll(ctx)
	if err != nil || len(snap.Rows) != 0 {
		t.Fatalf("empty load: rows=%d err=%v", len(snap.Rows), err)
	}

	if err := s.AppendRow(ctx, core.Transaction{Date: core.NewTxDate(2025, 3, 1), CashIn: core.Money{Cents: 100}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	snap, _ = s.LoadAll(ctx)
	if len(snap.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(snap.Rows))
	}
	if snap.Rows[0].ID == "" {
		t.Fatalf("append must assign a row ID")
	}
	if snap.Rows[0].Category != core.DefaultCategory || snap.Rows[0].Mode != core.ModeCash {
		t.Fatalf("append must normalize defaults: %+v", snap.Rows[0])
	}

	snap.Rows = nil
	if err := s.OverwriteAll(ctx, snap); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	after, _ := s.LoadAll(ctx)
	if len(after.Rows) != 0 {
		t.Fatalf("overwrite did not replace rows")
	}
}

func TestOverwriteDetectsStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	snap, _ := s.LoadAll(ctx)

	// A concurrent writer appends after our load.
	if err := s.AppendRow(ctx, core.Transaction{Date: core.NewTxDate(2025, 3, 2)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.OverwriteAll(ctx, snap); !errors.Is(err, store.ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	// The concurrent write must survive.
	after, _ := s.LoadAll(ctx)
	if len(after.Rows) != 1 {
		t.Fatalf("stale overwrite must not write, rows=%d", len(after.Rows))
	}
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := New([]core.Transaction{{Date: core.NewTxDate(2025, 1, 1), Remark: "seed"}})

	snap, _ := s.LoadAll(ctx)
	snap.Rows[0].Remark = "mutated"

	again, _ := s.LoadAll(ctx)
	if again.Rows[0].Remark != "seed" {
		t.Fatalf("snapshot rows must be copies")
	}
}
