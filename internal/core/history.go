package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	KindInvoice        Kind = "invoice"
	KindExpense        Kind = "expense"
	KindReconciliation Kind = "reconciliation"
)

type Kind string

// Entry is the payload of a history item. The concrete type is one of
// *InvoiceEntry, *ExpenseEntry or *ReconciliationEntry.
type Entry interface {
	Kind() Kind
	// Details is a one-line human summary of the entry.
	Details() string
	sealed()
}

type (
	InvoiceEntry struct {
		FileName string
		Result   InvoiceResult
	}

	ExpenseEntry struct {
		Result ExpenseResult
	}

	ReconciliationEntry struct {
		FileName string
		Result   ReconciliationResult
	}
)

func (*InvoiceEntry) Kind() Kind        { return KindInvoice }
func (*ExpenseEntry) Kind() Kind        { return KindExpense }
func (*ReconciliationEntry) Kind() Kind { return KindReconciliation }

func (*InvoiceEntry) sealed()        {}
func (*ExpenseEntry) sealed()        {}
func (*ReconciliationEntry) sealed() {}

func (e *InvoiceEntry) Details() string {
	return fmt.Sprintf("File: %s | Vendor: %s | Amount: %s", e.FileName, e.Result.Vendor, FormatAmount(e.Result.TotalAmount))
}

func (e *ExpenseEntry) Details() string {
	return fmt.Sprintf("Description: %s | Category: %s | Amount: %s", e.Result.Description, e.Result.Category, FormatAmount(e.Result.Amount))
}

func (e *ReconciliationEntry) Details() string {
	return fmt.Sprintf("File: %s | Matched: %d | Unmatched: %d", e.FileName,
		len(e.Result.MatchedTransactions), len(e.Result.UnmatchedTransactions))
}

// HistoryItem is one persisted processing action. ID is the creation time in
// milliseconds since epoch and doubles as the recency key.
type HistoryItem struct {
	ID    int64
	Entry Entry
}

var ErrUnknownKind = errors.New("unknown history item type")

// historyWire is the flat persisted layout of a HistoryItem.
type historyWire struct {
	ID                   int64                 `json:"id"`
	Type                 Kind                  `json:"type"`
	FileName             string                `json:"fileName,omitempty"`
	InvoiceResult        *InvoiceResult        `json:"invoiceResult,omitempty"`
	ExpenseResult        *ExpenseResult        `json:"expenseResult,omitempty"`
	ReconciliationResult *ReconciliationResult `json:"reconciliationResult,omitempty"`
}

func (h HistoryItem) MarshalJSON() ([]byte, error) {
	w := historyWire{ID: h.ID}
	switch e := h.Entry.(type) {
	case *InvoiceEntry:
		w.Type, w.FileName, w.InvoiceResult = KindInvoice, e.FileName, &e.Result
	case *ExpenseEntry:
		w.Type, w.ExpenseResult = KindExpense, &e.Result
	case *ReconciliationEntry:
		w.Type, w.FileName, w.ReconciliationResult = KindReconciliation, e.FileName, &e.Result
	default:
		return nil, fmt.Errorf("marshal history item %d: %w", h.ID, ErrUnknownKind)
	}
	return json.Marshal(w)
}

func (h *HistoryItem) UnmarshalJSON(data []byte) error {
	var w historyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	h.ID = w.ID
	switch w.Type {
	case KindInvoice:
		if w.InvoiceResult == nil {
			return fmt.Errorf("history item %d: missing invoiceResult", w.ID)
		}
		h.Entry = &InvoiceEntry{FileName: w.FileName, Result: *w.InvoiceResult}
	case KindExpense:
		if w.ExpenseResult == nil {
			return fmt.Errorf("history item %d: missing expenseResult", w.ID)
		}
		h.Entry = &ExpenseEntry{Result: *w.ExpenseResult}
	case KindReconciliation:
		if w.ReconciliationResult == nil {
			return fmt.Errorf("history item %d: missing reconciliationResult", w.ID)
		}
		h.Entry = &ReconciliationEntry{FileName: w.FileName, Result: *w.ReconciliationResult}
	default:
		return fmt.Errorf("history item %d: %w %q", w.ID, ErrUnknownKind, w.Type)
	}
	return nil
}
