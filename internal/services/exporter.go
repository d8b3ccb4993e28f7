package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"spendora/internal/log"
	"spendora/internal/sheets"
)

// Exporter copies the ledger and tax reminders to a spreadsheet.
type Exporter struct {
	assistant      *Assistant
	writer         sheets.RowWriter
	ledgerSheet    string
	remindersSheet string
}

func NewExporter(a *Assistant, w sheets.RowWriter, ledgerSheet, remindersSheet string) *Exporter {
	return &Exporter{assistant: a, writer: w, ledgerSheet: ledgerSheet, remindersSheet: remindersSheet}
}

type ExportResult struct {
	LedgerRange    string
	RemindersRange string
	LedgerRows     int
	ReminderRows   int
}

// Export replaces both sheets concurrently. The first failure cancels the
// other write.
func (e *Exporter) Export(ctx context.Context) (ExportResult, error) {
	start := time.Now()
	ledger := sheets.LedgerRows(e.assistant.Ledger(ctx))
	reminders := sheets.ReminderRows(e.assistant.Reminders(ctx))

	res := ExportResult{LedgerRows: len(ledger) - 1, ReminderRows: len(reminders) - 1}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ref, err := e.writer.ReplaceRows(gctx, e.ledgerSheet, ledger)
		if err != nil {
			return fmt.Errorf("export ledger: %w", err)
		}
		res.LedgerRange = ref
		return nil
	})
	g.Go(func() error {
		ref, err := e.writer.ReplaceRows(gctx, e.remindersSheet, reminders)
		if err != nil {
			return fmt.Errorf("export reminders: %w", err)
		}
		res.RemindersRange = ref
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Spreadsheet export failed",
			log.FieldComponent, log.ComponentSheets,
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		return ExportResult{}, err
	}

	slog.InfoContext(ctx, "Spreadsheet export completed",
		log.FieldComponent, log.ComponentSheets,
		log.FieldOperation, log.OpExport,
		"ledger_rows", res.LedgerRows,
		"reminder_rows", res.ReminderRows,
		log.FieldDuration, time.Since(start).Milliseconds())
	return res, nil
}
