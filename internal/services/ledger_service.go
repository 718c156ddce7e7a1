package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pettycash/internal/amqp"
	"pettycash/internal/core"
	"pettycash/internal/ledger"
	"pettycash/internal/store"
)

// Entry types for AddEntry. Exactly one of cash in / cash out is set per row.
const (
	EntryCashIn  = "cash_in"
	EntryCashOut = "cash_out"
)

var (
	ErrMissingRemark    = errors.New("remark is required")
	ErrInvalidEntryType = errors.New("invalid entry type")
	ErrNoEntries        = errors.New("no entries in period to duplicate")
)

// MutationPublisher is the outbound event port. The AMQP client implements
// it; a nil publisher disables events without changing the write path.
type MutationPublisher interface {
	PublishLedgerMutation(ctx context.Context, msg *amqp.LedgerMutationMessage) error
}

// LedgerService orchestrates ledger operations: it loads snapshots from the
// table store, applies the pure transforms, writes back under the snapshot
// version check, and publishes mutation events for the report worker.
type LedgerService struct {
	store     store.TableStore
	publisher MutationPublisher
	now       func() time.Time
}

func NewLedgerService(st store.TableStore, publisher MutationPublisher) *LedgerService {
	return &LedgerService{
		store:     st,
		publisher: publisher,
		now:       time.Now,
	}
}

// AddEntryInput carries one new entry from the form. Amount is interpreted
// per EntryType; CustomCategory, when non-blank, wins over Category and the
// keyword rule.
type AddEntryInput struct {
	Date           core.TxDate
	Remark         string
	Category       string
	CustomCategory string
	Mode           string
	EntryType      string
	Amount         core.Money
	AttachmentRef  string
}

// AddEntry validates and appends a single entry. The append path does not
// read the table first, so it can never raise a version conflict.
func (s *LedgerService) AddEntry(ctx context.Context, in AddEntryInput) (core.Transaction, error) {
	if in.Remark == "" {
		return core.Transaction{}, ErrMissingRemark
	}
	if err := in.Amount.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if in.EntryType != EntryCashIn && in.EntryType != EntryCashOut {
		return core.Transaction{}, fmt.Errorf("%w: %q", ErrInvalidEntryType, in.EntryType)
	}

	t := core.Transaction{
		ID:            uuid.New().String(),
		Date:          in.Date,
		Remark:        in.Remark,
		Category:      core.ResolveCategory(in.Category, in.Remark, in.CustomCategory),
		Mode:          in.Mode,
		AttachmentRef: in.AttachmentRef,
	}
	if in.EntryType == EntryCashIn {
		t.CashIn = in.Amount
	} else {
		t.CashOut = in.Amount
	}
	t = t.Normalize()

	if err := s.store.AppendRow(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("append entry: %w", err)
	}

	s.publish(ctx, amqp.OpAppend, t.Date, "")
	return t, nil
}

// DuplicateLast copies the period's most recently dated entry with today's
// date and a fresh ID. The attachment is not carried over; it belongs to the
// original entry. Fails with ErrNoEntries when the period has no rows.
func (s *LedgerService) DuplicateLast(ctx context.Context, p core.Period) (core.Transaction, error) {
	snap, err := s.store.LoadAll(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load entries: %w", err)
	}

	rows := core.FilterPeriod(snap.Rows, p)
	var last *core.Transaction
	for i := range rows {
		t := &rows[i]
		if last == nil || !t.Date.Before(last.Date.Time) {
			last = t
		}
	}
	if last == nil {
		return core.Transaction{}, ErrNoEntries
	}

	now := s.now().UTC()
	dup := *last
	dup.ID = uuid.New().String()
	dup.Date = core.NewTxDate(now.Year(), int(now.Month()), now.Day())
	dup.AttachmentRef = ""

	if err := s.store.AppendRow(ctx, dup); err != nil {
		return core.Transaction{}, fmt.Errorf("append duplicate: %w", err)
	}

	s.publish(ctx, amqp.OpAppend, dup.Date, "")
	return dup, nil
}

// Cashbook builds the period's cashbook from a fresh snapshot. The opening
// balance is chained from all earlier entries unless an override is given.
// The snapshot version is returned so forms can carry it into mutations.
func (s *LedgerService) Cashbook(ctx context.Context, p core.Period, opening *core.Money) (core.Cashbook, string, error) {
	snap, err := s.store.LoadAll(ctx)
	if err != nil {
		return core.Cashbook{}, "", fmt.Errorf("load entries: %w", err)
	}

	open := core.OpeningBalance(snap.Rows, p)
	if opening != nil {
		open = *opening
	}
	cb := core.ComputeCashbook(core.FilterPeriod(snap.Rows, p), open)
	return cb, snap.Version, nil
}

// EditPeriod applies a whole-period edit. The caller passes the snapshot
// version its form was rendered from; a write that happened since then
// surfaces as store.ErrVersionMismatch and nothing is saved. An empty
// version skips that check and relies on the store's own compare-and-swap.
func (s *LedgerService) EditPeriod(ctx context.Context, p core.Period, version string, edits []ledger.EditedRow) error {
	snap, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	if version != "" && version != snap.Version {
		return fmt.Errorf("edit from stale view: %w", store.ErrVersionMismatch)
	}

	next, err := ledger.EditPeriod(snap, p, edits)
	if err != nil {
		return err
	}
	if err := s.store.OverwriteAll(ctx, next); err != nil {
		return fmt.Errorf("save edit: %w", err)
	}

	s.publish(ctx, amqp.OpEdit, periodDate(p), next.Version)
	return nil
}

// DeletePeriod removes every entry of the period. Entries without a
// parseable date are kept.
func (s *LedgerService) DeletePeriod(ctx context.Context, p core.Period) error {
	snap, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}

	next := ledger.DeletePeriod(snap, p)
	if err := s.store.OverwriteAll(ctx, next); err != nil {
		return fmt.Errorf("save delete: %w", err)
	}

	s.publish(ctx, amqp.OpDelete, periodDate(p), next.Version)
	return nil
}

// Import merges a normalized batch into the table, replacing the period's
// rows first when replace is set. The batch is rejected before any write
// when none of its rows carries a parseable date.
func (s *LedgerService) Import(ctx context.Context, p core.Period, batch []core.Transaction, replace bool) error {
	snap, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}

	next, err := ledger.ImportMerge(snap, p, batch, replace)
	if err != nil {
		return err
	}
	if err := s.store.OverwriteAll(ctx, next); err != nil {
		return fmt.Errorf("save import: %w", err)
	}

	op := amqp.OpImportAppend
	if replace {
		op = amqp.OpImportReplace
	}
	s.publish(ctx, op, periodDate(p), next.Version)
	return nil
}

func (s *LedgerService) publish(ctx context.Context, op string, d core.TxDate, version string) {
	if s.publisher == nil {
		return
	}
	if d.IsEmpty() {
		// Undated entries belong to no period; there is no report to refresh.
		return
	}
	msg := amqp.NewLedgerMutationMessage(op, d.Year(), int(d.Month()), version)
	if err := s.publisher.PublishLedgerMutation(ctx, msg); err != nil {
		// The store write already succeeded; a missed event only delays the
		// next report regeneration.
		slog.ErrorContext(ctx, "Failed to publish ledger mutation",
			"operation", op, "error", err)
	}
}

func periodDate(p core.Period) core.TxDate {
	return core.NewTxDate(p.Year, p.Month, 1)
}
