// Package sqlite is the SQLite TableStore backend. Unlike a normal
// relational repository it deliberately keeps the table-store contract:
// whole-snapshot reads and writes with a version counter for conflict
// detection, so the service layer behaves identically across backends.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"pettycash/internal/core"
	"pettycash/internal/store"
)

type Store struct {
	db *sql.DB
}

var _ store.TableStore = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) (store.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("%w: begin read: %v", store.ErrUnavailable, err)
	}
	defer tx.Rollback()

	version, err := readVersion(ctx, tx)
	if err != nil {
		return store.Snapshot{}, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, date, remark, category, mode, cash_in_cents, cash_out_cents, attachment_ref
		FROM transactions ORDER BY rowid`)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("%w: query transactions: %v", store.ErrUnavailable, err)
	}
	defer rows.Close()

	snap := store.Snapshot{Version: version}
	for rows.Next() {
		var (
			t         core.Transaction
			date      string
			inC, outC int64
		)
		if err := rows.Scan(&t.ID, &date, &t.Remark, &t.Category, &t.Mode, &inC, &outC, &t.AttachmentRef); err != nil {
			return store.Snapshot{}, fmt.Errorf("%w: scan transaction: %v", store.ErrUnavailable, err)
		}
		t.Date, _ = core.ParseTxDate(date)
		t.CashIn = core.Money{Cents: inC}
		t.CashOut = core.Money{Cents: outC}
		snap.Rows = append(snap.Rows, t.Normalize())
	}
	if err := rows.Err(); err != nil {
		return store.Snapshot{}, fmt.Errorf("%w: iterate transactions: %v", store.ErrUnavailable, err)
	}
	return snap, nil
}

func (s *Store) OverwriteAll(ctx context.Context, snap store.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin write: %v", store.ErrUnavailable, err)
	}
	defer tx.Rollback()

	current, err := readVersion(ctx, tx)
	if err != nil {
		return err
	}
	if current != snap.Version {
		return fmt.Errorf("overwrite at version %s, store at %s: %w",
			snap.Version, current, store.ErrVersionMismatch)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("%w: clear transactions: %v", store.ErrUnavailable, err)
	}
	for _, t := range snap.Rows {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t = t.Normalize()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, date, remark, category, mode, cash_in_cents, cash_out_cents, attachment_ref)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Date.String(), t.Remark, t.Category, t.Mode,
			t.CashIn.Cents, t.CashOut.Cents, t.AttachmentRef); err != nil {
			return fmt.Errorf("%w: insert transaction: %v", store.ErrUnavailable, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE meta SET version = version + 1`); err != nil {
		return fmt.Errorf("%w: bump version: %v", store.ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit overwrite: %v", store.ErrUnavailable, err)
	}

	slog.InfoContext(ctx, "Table overwritten", "rows", len(snap.Rows), "from_version", snap.Version)
	return nil
}

func (s *Store) AppendRow(ctx context.Context, t core.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t = t.Normalize()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin append: %v", store.ErrUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, date, remark, category, mode, cash_in_cents, cash_out_cents, attachment_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date.String(), t.Remark, t.Category, t.Mode,
		t.CashIn.Cents, t.CashOut.Cents, t.AttachmentRef); err != nil {
		return fmt.Errorf("%w: insert transaction: %v", store.ErrUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE meta SET version = version + 1`); err != nil {
		return fmt.Errorf("%w: bump version: %v", store.ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit append: %v", store.ErrUnavailable, err)
	}
	return nil
}

func readVersion(ctx context.Context, tx *sql.Tx) (string, error) {
	var version string
	err := tx.QueryRowContext(ctx, `SELECT CAST(version AS TEXT) FROM meta`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: meta row missing (migrations not applied?)", store.ErrUnavailable)
	}
	if err != nil {
		return "", fmt.Errorf("%w: read version: %v", store.ErrUnavailable, err)
	}
	return version, nil
}
