package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"spendora/internal/amqp"
	"spendora/internal/log"
	"spendora/internal/services"
)

// Exporter rewrites the spreadsheet from the current store.
type Exporter interface {
	Export(ctx context.Context) (services.ExportResult, error)
}

// EventSource delivers store events until ctx is done.
type EventSource interface {
	Consume(ctx context.Context, handler func(*amqp.Event) error) error
}

// SyncWorker keeps the spreadsheet in step with the store. Every event
// triggers a full export; a ticker re-exports periodically in case events
// were missed while the worker was down.
type SyncWorker struct {
	exporter Exporter
	interval time.Duration

	mu       sync.Mutex
	lastSync time.Time
	synced   int
}

func NewSyncWorker(exporter Exporter, interval time.Duration) *SyncWorker {
	return &SyncWorker{exporter: exporter, interval: interval}
}

// HandleEvent exports after a history.saved or reminder.created event.
// Export failures are logged and the event is still acknowledged: every
// export rewrites the whole sheet, so the next event or tick catches up.
func (w *SyncWorker) HandleEvent(ctx context.Context, e *amqp.Event) error {
	slog.InfoContext(ctx, "Processing store event",
		log.FieldComponent, log.ComponentWorker,
		log.FieldMessageID, e.ID,
		"type", e.Type)
	if err := w.sync(ctx, e.Type); err != nil {
		slog.WarnContext(ctx, "Event acknowledged without sync, waiting for next tick",
			log.FieldComponent, log.ComponentWorker,
			log.FieldMessageID, e.ID)
	}
	return nil
}

// StartupSync exports once so the spreadsheet reflects anything recorded
// while the worker was not running.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	return w.sync(ctx, "startup")
}

func (w *SyncWorker) sync(ctx context.Context, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	res, err := w.exporter.Export(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Spreadsheet sync failed",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err,
			"reason", reason)
		return err
	}

	w.lastSync = time.Now()
	w.synced++
	slog.InfoContext(ctx, "Spreadsheet synced",
		log.FieldComponent, log.ComponentWorker,
		"reason", reason,
		"ledger_rows", res.LedgerRows,
		"reminder_rows", res.ReminderRows,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Stats reports how many exports succeeded and when the last one finished.
func (w *SyncWorker) Stats() (synced int, last time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.synced, w.lastSync
}

// Run performs the startup sync, then consumes events and re-exports on
// every tick until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, source EventSource) error {
	if err := w.StartupSync(ctx); err != nil {
		slog.WarnContext(ctx, "Startup sync failed, continuing",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- source.Consume(ctx, func(e *amqp.Event) error {
			return w.HandleEvent(ctx, e)
		})
	}()

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			<-consumeErr
			return nil
		case err := <-consumeErr:
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-tick:
			_ = w.sync(ctx, "periodic")
		}
	}
}
