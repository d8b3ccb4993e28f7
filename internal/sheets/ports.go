package sheets

import (
	"context"

	"spendora/internal/core"
)

// RowWriter replaces the content of a named sheet.
type RowWriter interface {
	// ReplaceRows clears sheet and writes rows from A1. It returns the
	// written range in A1 notation.
	ReplaceRows(ctx context.Context, sheet string, rows [][]any) (ref string, err error)
}

var (
	LedgerHeader   = []any{"Date", "Description", "Category", "Amount"}
	ReminderHeader = []any{"Due Date", "Tax Type", "Amount", "Source Invoice", "Invoice ID"}
)

// LedgerRows lays out a projected ledger below LedgerHeader.
func LedgerRows(items []core.LedgerItem) [][]any {
	rows := make([][]any, 0, len(items)+1)
	rows = append(rows, LedgerHeader)
	for _, it := range items {
		rows = append(rows, []any{it.Date, it.Description, core.CategoryOrDefault(it.Category), it.Amount})
	}
	return rows
}

// ReminderRows lays out tax reminders below ReminderHeader.
func ReminderRows(reminders []core.TaxReminder) [][]any {
	rows := make([][]any, 0, len(reminders)+1)
	rows = append(rows, ReminderHeader)
	for _, r := range reminders {
		rows = append(rows, []any{r.DueDate, string(r.TaxType), r.Amount, r.SourceInvoiceFile, r.SourceInvoiceID})
	}
	return rows
}
