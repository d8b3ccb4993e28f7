package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"spendora/internal/core"
	"spendora/internal/log"
)

// Ports the assistant depends on.
type (
	HistoryStore interface {
		GetHistory(ctx context.Context) []core.HistoryItem
		SaveHistoryItem(ctx context.Context, entry core.Entry) (core.HistoryItem, error)
		GetReminders(ctx context.Context) []core.TaxReminder
		AddReminder(ctx context.Context, reminder core.TaxReminder) (core.TaxReminder, error)
	}

	Gateway interface {
		ProcessInvoice(ctx context.Context, data []byte, mimeType string) (core.InvoiceResult, error)
		CategorizeExpense(ctx context.Context, description string, amount float64) (core.CategorizedExpense, error)
		ReconcileStatement(ctx context.Context, statement string, history []core.HistoryItem) (core.ReconciliationResult, error)
		GenerateFinancialReport(ctx context.Context, ledger []core.LedgerItem) (core.FinancialReport, error)
	}

	// Notifier is told about every record that reached the store.
	Notifier interface {
		HistorySaved(ctx context.Context, item core.HistoryItem) error
		ReminderCreated(ctx context.Context, reminder core.TaxReminder) error
	}
)

// Assistant runs the user-facing finance actions: validate, ask the model,
// persist, then derive follow-ups such as tax reminders.
type Assistant struct {
	store    HistoryStore
	gateway  Gateway
	notifier Notifier
	loc      *time.Location
}

type AssistantOption func(*Assistant)

func WithNotifier(n Notifier) AssistantOption {
	return func(a *Assistant) { a.notifier = n }
}

// WithTimezone sets the zone for ledger dates and invoice date parsing.
func WithTimezone(loc *time.Location) AssistantOption {
	return func(a *Assistant) { a.loc = loc }
}

func NewAssistant(store HistoryStore, gateway Gateway, opts ...AssistantOption) *Assistant {
	a := &Assistant{store: store, gateway: gateway, loc: time.Local}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type InvoiceOutcome struct {
	Item   core.HistoryItem
	Result core.InvoiceResult
	// Reminder is set when the invoice carried a tax obligation with a usable date.
	Reminder *core.TaxReminder
}

type ExpenseOutcome struct {
	Item   core.HistoryItem
	Result core.ExpenseResult
}

type ReconcileOutcome struct {
	Item   core.HistoryItem
	Result core.ReconciliationResult
}

// ProcessInvoice extracts an invoice, records it and schedules a tax
// reminder when one is owed. Persistence failures are returned alongside a
// populated outcome.
func (a *Assistant) ProcessInvoice(ctx context.Context, fileName string, data []byte, mimeType string) (InvoiceOutcome, error) {
	if err := core.ValidateInvoiceFile(data, mimeType); err != nil {
		return InvoiceOutcome{}, err
	}

	result, err := a.gateway.ProcessInvoice(ctx, data, mimeType)
	if err != nil {
		return InvoiceOutcome{}, err
	}

	item, saveErr := a.store.SaveHistoryItem(ctx, &core.InvoiceEntry{FileName: fileName, Result: result})
	out := InvoiceOutcome{Item: item, Result: result}
	if saveErr != nil && item.Entry == nil {
		return out, saveErr
	}
	a.notifyHistory(ctx, item, saveErr)

	reminder, remErr := a.scheduleReminder(ctx, item.ID, fileName, result)
	out.Reminder = reminder
	return out, errors.Join(saveErr, remErr)
}

func (a *Assistant) scheduleReminder(ctx context.Context, invoiceID int64, fileName string, result core.InvoiceResult) (*core.TaxReminder, error) {
	if !result.HasTaxObligation() {
		return nil, nil
	}

	invoiceDate, err := core.ParseInvoiceDate(result.InvoiceDate, a.loc)
	if err != nil {
		slog.InfoContext(ctx, "Skipping tax reminder, invoice date not parseable",
			log.FieldComponent, log.ComponentTax,
			log.FieldFileName, fileName,
			"invoice_date", result.InvoiceDate)
		return nil, nil
	}

	due, err := CalculateDueDate(invoiceDate, *result.TaxType)
	if err != nil {
		return nil, err
	}

	reminder, err := a.store.AddReminder(ctx, core.TaxReminder{
		TaxType:           *result.TaxType,
		DueDate:           due.Format(core.DueDateLayout),
		Amount:            *result.TaxAmount,
		SourceInvoiceFile: fileName,
		SourceInvoiceID:   invoiceID,
	})
	if err != nil && reminder.DueDate == "" {
		return nil, err
	}

	slog.InfoContext(ctx, "Tax reminder scheduled",
		log.FieldComponent, log.ComponentTax,
		log.FieldTaxType, reminder.TaxType,
		log.FieldDueDate, reminder.DueDate,
		log.FieldAmount, reminder.Amount)

	if err == nil && a.notifier != nil {
		if nerr := a.notifier.ReminderCreated(ctx, reminder); nerr != nil {
			logNotifyFailure(ctx, nerr)
		}
	}
	return &reminder, err
}

// CategorizeExpense validates the input, asks the model for a category and
// records the expense.
func (a *Assistant) CategorizeExpense(ctx context.Context, description string, amount float64) (ExpenseOutcome, error) {
	if err := core.ValidateExpenseInput(description, amount); err != nil {
		return ExpenseOutcome{}, err
	}

	cat, err := a.gateway.CategorizeExpense(ctx, description, amount)
	if err != nil {
		return ExpenseOutcome{}, err
	}

	result := core.ExpenseResult{
		Description:   description,
		Amount:        amount,
		Category:      cat.Category,
		Justification: cat.Justification,
	}
	item, err := a.store.SaveHistoryItem(ctx, &core.ExpenseEntry{Result: result})
	if item.Entry != nil {
		a.notifyHistory(ctx, item, err)
	}
	return ExpenseOutcome{Item: item, Result: result}, err
}

// ReconcileStatement matches a plain-text bank statement against the current
// ledger and records the outcome. Matched ledger rows get their category
// back from the projected ledger.
func (a *Assistant) ReconcileStatement(ctx context.Context, fileName string, data []byte, mimeType string) (ReconcileOutcome, error) {
	if err := core.ValidateStatementFile(data, mimeType); err != nil {
		return ReconcileOutcome{}, err
	}

	history := a.store.GetHistory(ctx)
	result, err := a.gateway.ReconcileStatement(ctx, string(data), history)
	if err != nil {
		return ReconcileOutcome{}, err
	}
	result = MergeReconciliation(result, core.ProjectLedger(history, a.loc))

	item, err := a.store.SaveHistoryItem(ctx, &core.ReconciliationEntry{FileName: fileName, Result: result})
	if item.Entry != nil {
		a.notifyHistory(ctx, item, err)
	}
	return ReconcileOutcome{Item: item, Result: result}, err
}

// GenerateReport asks the model to summarize the current ledger. Reports are
// not persisted.
func (a *Assistant) GenerateReport(ctx context.Context) (core.FinancialReport, error) {
	ledger := a.Ledger(ctx)
	if len(ledger) == 0 {
		return core.FinancialReport{}, ErrEmptyLedger
	}
	report, err := a.gateway.GenerateFinancialReport(ctx, ledger)
	if err != nil {
		return core.FinancialReport{}, err
	}
	return ColorizeReport(report), nil
}

// ErrEmptyLedger is returned when a report is requested before any invoice
// or expense was recorded.
var ErrEmptyLedger = errors.New("no invoices or expenses recorded yet")

func (a *Assistant) History(ctx context.Context) []core.HistoryItem {
	return a.store.GetHistory(ctx)
}

// Ledger is the projected ledger of all invoices and expenses, newest first.
func (a *Assistant) Ledger(ctx context.Context) []core.LedgerItem {
	return core.ProjectLedger(a.store.GetHistory(ctx), a.loc)
}

func (a *Assistant) Reminders(ctx context.Context) []core.TaxReminder {
	return a.store.GetReminders(ctx)
}

// Location is the time zone the assistant dates records in.
func (a *Assistant) Location() *time.Location { return a.loc }

// notifyHistory publishes a saved item. Items whose write failed are not
// announced.
func (a *Assistant) notifyHistory(ctx context.Context, item core.HistoryItem, saveErr error) {
	if a.notifier == nil || saveErr != nil {
		return
	}
	if err := a.notifier.HistorySaved(ctx, item); err != nil {
		logNotifyFailure(ctx, err)
	}
}

func logNotifyFailure(ctx context.Context, err error) {
	slog.WarnContext(ctx, "Failed to publish notification",
		log.FieldComponent, log.ComponentAssistant,
		log.FieldOperation, log.OpPublish,
		log.FieldError, err)
}
