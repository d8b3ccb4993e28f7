package core

import "time"

// ProjectLedger flattens history into ledger rows. Invoices and expenses
// contribute one row each, dated by their id in loc; reconciliations are
// skipped. Input order is preserved.
func ProjectLedger(items []HistoryItem, loc *time.Location) []LedgerItem {
	ledger := make([]LedgerItem, 0, len(items))
	for _, item := range items {
		date := CreatedAt(item.ID, loc).Format(LedgerDateLayout)
		switch e := item.Entry.(type) {
		case *InvoiceEntry:
			ledger = append(ledger, LedgerItem{
				Date:        date,
				Description: "Invoice from " + e.Result.Vendor,
				Category:    e.Result.Category,
				Amount:      e.Result.TotalAmount,
			})
		case *ExpenseEntry:
			ledger = append(ledger, LedgerItem{
				Date:        date,
				Description: e.Result.Description,
				Category:    e.Result.Category,
				Amount:      e.Result.Amount,
			})
		}
	}
	return ledger
}

// StatementView drops the category from ledger rows, leaving the
// date/description/amount triples matched against bank statements.
func StatementView(ledger []LedgerItem) []BankTransaction {
	out := make([]BankTransaction, len(ledger))
	for i, l := range ledger {
		out[i] = BankTransaction{Date: l.Date, Description: l.Description, Amount: l.Amount}
	}
	return out
}
