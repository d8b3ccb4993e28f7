package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	GST TaxType = "GST"
	TDS TaxType = "TDS"
)

// Uncategorized labels amounts whose category is blank.
const Uncategorized = "Uncategorized"

type (
	TaxType string

	LineItem struct {
		Description string   `json:"description"`
		Quantity    *float64 `json:"quantity,omitempty"`
		UnitPrice   *float64 `json:"unitPrice,omitempty"`
		Amount      float64  `json:"amount"`
	}

	InvoiceResult struct {
		Vendor      string     `json:"vendor"`
		InvoiceDate string     `json:"invoiceDate,omitempty"`
		DueDate     string     `json:"dueDate,omitempty"`
		TotalAmount float64    `json:"totalAmount"`
		Category    string     `json:"category"`
		TaxType     *TaxType   `json:"taxType,omitempty"`
		TaxAmount   *float64   `json:"taxAmount,omitempty"`
		LineItems   []LineItem `json:"lineItems"`
		Summary     string     `json:"summary"`
	}

	ExpenseResult struct {
		Description   string  `json:"description"`
		Amount        float64 `json:"amount"`
		Category      string  `json:"category"`
		Justification string  `json:"justification"`
	}

	// CategorizedExpense is what the model returns for an expense description.
	CategorizedExpense struct {
		Category      string `json:"category"`
		Justification string `json:"justification"`
	}

	BankTransaction struct {
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
	}

	LedgerItem struct {
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Category    string  `json:"category"`
		Amount      float64 `json:"amount"`
	}

	MatchedTransaction struct {
		BankTransaction BankTransaction `json:"bankTransaction"`
		LedgerItem      LedgerItem      `json:"ledgerItem"`
	}

	UnmatchedTransaction struct {
		BankTransaction   BankTransaction `json:"bankTransaction"`
		SuggestedCategory string          `json:"suggestedCategory"`
	}

	ReconciliationResult struct {
		MatchedTransactions   []MatchedTransaction   `json:"matchedTransactions"`
		UnmatchedTransactions []UnmatchedTransaction `json:"unmatchedTransactions"`
	}

	BreakdownEntry struct {
		Category    string  `json:"category"`
		TotalAmount float64 `json:"totalAmount"`
		Percentage  float64 `json:"percentage"`
		Color       string  `json:"color,omitempty"`
	}

	FinancialReport struct {
		ExecutiveSummary string           `json:"executiveSummary"`
		ExpenseBreakdown []BreakdownEntry `json:"expenseBreakdown"`
		KeyInsights      []string         `json:"keyInsights"`
		Recommendations  []string         `json:"recommendations"`
	}

	TaxReminder struct {
		ID                int64   `json:"id"`
		TaxType           TaxType `json:"taxType"`
		DueDate           string  `json:"dueDate"` // YYYY-MM-DD
		Amount            float64 `json:"amount"`
		SourceInvoiceFile string  `json:"sourceInvoiceFile"`
		SourceInvoiceID   int64   `json:"sourceInvoiceId"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyFile        = errors.New("no file selected")
	ErrUnsupportedMIME  = errors.New("unsupported file type")
)

// ValidationError reports user input rejected before any external call.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValid reports whether t is a tax type reminders can be created for.
func (t TaxType) IsValid() bool {
	return t == GST || t == TDS
}

// ValidateExpenseInput checks the preconditions of expense categorization.
func ValidateExpenseInput(description string, amount float64) error {
	if strings.TrimSpace(description) == "" {
		return invalid("description", ErrEmptyDescription)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return invalid("amount", ErrInvalidAmount)
	}
	return nil
}

// ValidateInvoiceFile checks that an invoice upload is present and of an accepted type.
func ValidateInvoiceFile(data []byte, mimeType string) error {
	if len(data) == 0 {
		return invalid("file", ErrEmptyFile)
	}
	if !IsInvoiceMIME(mimeType) {
		return invalid("file", fmt.Errorf("%w: %s", ErrUnsupportedMIME, mimeType))
	}
	return nil
}

// ValidateStatementFile checks that a statement upload is non-empty plain text.
func ValidateStatementFile(data []byte, mimeType string) error {
	if len(data) == 0 {
		return invalid("file", ErrEmptyFile)
	}
	if !IsStatementMIME(mimeType) {
		return invalid("file", fmt.Errorf("%w: %s", ErrUnsupportedMIME, mimeType))
	}
	return nil
}

// HasTaxObligation reports whether the invoice carries a tax type and a positive tax amount.
func (r InvoiceResult) HasTaxObligation() bool {
	return r.TaxType != nil && r.TaxType.IsValid() && r.TaxAmount != nil && *r.TaxAmount > 0
}
