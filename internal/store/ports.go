// Package store defines the table store port: the full-snapshot load and
// overwrite operations every backend must provide, plus the version token
// that makes lost-update detection structural rather than accidental.
package store

import (
	"context"
	"errors"

	"pettycash/internal/core"
)

// Columns is the canonical header of the backing table, in serialized order.
var Columns = []string{"id", "date", "remark", "category", "mode", "cash_in", "cash_out", "attachment_ref"}

// Snapshot is the full dataset as read at one point in time. Version is an
// opaque token identifying the store state the rows were read from; a
// subsequent OverwriteAll with the same snapshot fails when the store has
// moved on.
type Snapshot struct {
	Version string
	Rows    []core.Transaction
}

var (
	// ErrVersionMismatch means the store changed between LoadAll and
	// OverwriteAll. Callers should reload and retry; nothing was written.
	ErrVersionMismatch = errors.New("snapshot version mismatch")

	// ErrUnavailable wraps load/save failures of the backing store.
	ErrUnavailable = errors.New("table store unavailable")
)

// TableStore is the backing table port. There is no partial-write API:
// mutations either append one row or replace the whole table.
type TableStore interface {
	// LoadAll reads the entire table into a versioned snapshot.
	LoadAll(ctx context.Context) (Snapshot, error)

	// OverwriteAll replaces the entire table with the snapshot's rows,
	// failing with ErrVersionMismatch when the snapshot is stale.
	OverwriteAll(ctx context.Context, snap Snapshot) error

	// AppendRow adds a single row without reading the table first.
	AppendRow(ctx context.Context, t core.Transaction) error
}

// RowToStrings serializes a transaction in canonical column order.
func RowToStrings(t core.Transaction) []string {
	return []string{
		t.ID,
		t.Date.String(),
		t.Remark,
		t.Category,
		t.Mode,
		t.CashIn.Amount(),
		t.CashOut.Amount(),
		t.AttachmentRef,
	}
}

// RowFromStrings deserializes a canonical row leniently: bad dates become
// empty dates, bad amounts zero, missing trailing cells empty strings. A
// missing ID is filled by the caller.
func RowFromStrings(cells []string) core.Transaction {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	d, _ := core.ParseTxDate(get(1))
	t := core.Transaction{
		ID:            get(0),
		Date:          d,
		Remark:        get(2),
		Category:      get(3),
		Mode:          get(4),
		CashIn:        core.ParseAmount(get(5)),
		CashOut:       core.ParseAmount(get(6)),
		AttachmentRef: get(7),
	}
	return t.Normalize()
}
