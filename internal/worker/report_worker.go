// Package worker regenerates a period's export artifacts whenever the
// ledger changes. The HTTP server publishes mutation events; this worker
// consumes them and rewrites the HTML, CSV, ZIP and summary files so they
// are always ready to serve or ship elsewhere.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"pettycash/internal/amqp"
	"pettycash/internal/attach"
	"pettycash/internal/core"
	"pettycash/internal/export"
	"pettycash/internal/store"
)

// ReportWorker rebuilds export artifacts for mutated periods.
type ReportWorker struct {
	store       store.TableStore
	attachments *attach.Store
	exportDir   string
}

func NewReportWorker(st store.TableStore, attachments *attach.Store, exportDir string) (*ReportWorker, error) {
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &ReportWorker{
		store:       st,
		attachments: attachments,
		exportDir:   exportDir,
	}, nil
}

// HandleMutation processes one mutation event. Errors make the delivery
// requeue, so transient store failures retry.
func (w *ReportWorker) HandleMutation(ctx context.Context, msg *amqp.LedgerMutationMessage) error {
	slog.InfoContext(ctx, "Processing ledger mutation",
		"operation", msg.Operation,
		"year", msg.Year,
		"month", msg.Month)

	p, err := core.NewPeriod(msg.Year, msg.Month)
	if err != nil {
		// A malformed period can never succeed; drop it instead of requeueing.
		slog.ErrorContext(ctx, "Dropping mutation with invalid period",
			"year", msg.Year, "month", msg.Month, "error", err)
		return nil
	}

	return w.Generate(ctx, p)
}

// Generate rebuilds every artifact of the period from a fresh snapshot. The
// four files are written concurrently; the first failure aborts the batch.
func (w *ReportWorker) Generate(ctx context.Context, p core.Period) error {
	snap, err := w.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}

	opening := core.OpeningBalance(snap.Rows, p)
	cb := core.ComputeCashbook(core.FilterPeriod(snap.Rows, p), opening)
	report := export.NewReport(p, cb)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.writeArtifact(export.FileName(p, "html"), func(f *os.File) error {
			return export.WriteHTML(f, report)
		})
	})
	g.Go(func() error {
		return w.writeArtifact(export.FileName(p, "csv"), func(f *os.File) error {
			return export.WriteCSV(f, report)
		})
	})
	g.Go(func() error {
		return w.writeArtifact(export.FileName(p, "zip"), func(f *os.File) error {
			_, err := export.WriteAttachmentsZip(f, report, w.attachments)
			return err
		})
	})
	g.Go(func() error {
		return w.writeArtifact(export.FileName(p, "txt"), func(f *os.File) error {
			_, err := f.WriteString(export.TextSummary(report))
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Regenerated period artifacts",
		"period", p.Key(),
		"rows", len(cb.Rows),
		"dir", w.exportDir)
	return nil
}

// writeArtifact writes through a temp file and renames, so readers never
// see a half-written artifact.
func (w *ReportWorker) writeArtifact(name string, write func(*os.File) error) error {
	path := filepath.Join(w.exportDir, name)
	tmp, err := os.CreateTemp(w.exportDir, name+".tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close artifact %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish artifact %s: %w", name, err)
	}
	return nil
}
