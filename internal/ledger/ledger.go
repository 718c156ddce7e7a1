// Package ledger implements period reconciliation: merging edits, imports
// and deletions for one period back into the full dataset without touching
// other periods. Every function here is a pure transform over a snapshot;
// loading and writing the snapshot is the service layer's job.
package ledger

import (
	"errors"
	"fmt"

	"pettycash/internal/core"
	"pettycash/internal/store"
)

var (
	// ErrReconciliationConflict means the edited rows no longer correspond
	// to the period's current rows. Nothing was changed; the caller should
	// reload and retry.
	ErrReconciliationConflict = errors.New("reconciliation conflict")

	// ErrNoValidDates rejects an import whose rows all failed date parsing.
	ErrNoValidDates = errors.New("no valid dates in imported batch")
)

// EditedRow carries the editable fields of one row addressed by its stable
// ID. AttachmentRef is deliberately absent: table edits never touch it.
type EditedRow struct {
	ID       string
	Date     core.TxDate
	Remark   string
	Category string
	Mode     string
	CashIn   core.Money
	CashOut  core.Money
}

// EditPeriod replaces the editable fields of the period's rows with the
// edited slice. The edit must cover the period exactly: the count of edited
// rows must equal the count of rows currently in the period, and every
// edited ID must address one of them. On any mismatch the snapshot is
// returned unchanged with ErrReconciliationConflict.
func EditPeriod(snap store.Snapshot, p core.Period, edits []EditedRow) (store.Snapshot, error) {
	current := core.FilterPeriod(snap.Rows, p)
	if len(current) != len(edits) {
		return snap, fmt.Errorf("%w: period has %d rows, edit has %d",
			ErrReconciliationConflict, len(current), len(edits))
	}

	inPeriod := make(map[string]bool, len(current))
	for _, t := range current {
		inPeriod[t.ID] = true
	}
	byID := make(map[string]EditedRow, len(edits))
	for _, e := range edits {
		if !inPeriod[e.ID] {
			return snap, fmt.Errorf("%w: edited row %s not in period %s",
				ErrReconciliationConflict, e.ID, p.Key())
		}
		if _, dup := byID[e.ID]; dup {
			return snap, fmt.Errorf("%w: duplicate edited row %s", ErrReconciliationConflict, e.ID)
		}
		byID[e.ID] = e
	}

	out := snap
	out.Rows = make([]core.Transaction, len(snap.Rows))
	copy(out.Rows, snap.Rows)
	for i, t := range out.Rows {
		e, ok := byID[t.ID]
		if !ok {
			continue
		}
		t.Date = e.Date
		t.Remark = e.Remark
		t.Category = e.Category
		t.Mode = e.Mode
		t.CashIn = e.CashIn
		t.CashOut = e.CashOut
		out.Rows[i] = t.Normalize()
	}
	return out, nil
}

// DeletePeriod removes every row belonging to the period and keeps the rest
// in their original order.
func DeletePeriod(snap store.Snapshot, p core.Period) store.Snapshot {
	out := snap
	out.Rows = make([]core.Transaction, 0, len(snap.Rows))
	for _, t := range snap.Rows {
		if p.Contains(t.Date) {
			continue
		}
		out.Rows = append(out.Rows, t)
	}
	return out
}

// ImportMerge appends normalized imported rows to the snapshot. In replace
// mode the period's existing rows are stripped first. The whole batch is
// rejected with ErrNoValidDates when no imported row has a parseable date;
// individual dateless rows in an otherwise valid batch are kept.
func ImportMerge(snap store.Snapshot, p core.Period, imported []core.Transaction, replace bool) (store.Snapshot, error) {
	if len(imported) == 0 {
		return snap, fmt.Errorf("%w: empty batch", ErrNoValidDates)
	}
	anyDated := false
	for _, t := range imported {
		if !t.Date.IsEmpty() {
			anyDated = true
			break
		}
	}
	if !anyDated {
		return snap, ErrNoValidDates
	}

	out := snap
	if replace {
		out = DeletePeriod(out, p)
	} else {
		out.Rows = append([]core.Transaction(nil), out.Rows...)
	}
	for _, t := range imported {
		out.Rows = append(out.Rows, t.Normalize())
	}
	return out, nil
}
