package llm

import (
	"context"
	"log/slog"
	"time"

	"spendora/internal/core"
	"spendora/internal/log"
)

// Gateway exposes the four model-backed finance operations. Each call makes
// exactly one model request; there is no retry.
type Gateway struct {
	model        Model
	loc          *time.Location
	maxImageSide int
}

type Option func(*Gateway)

// WithLocation sets the time zone used to date ledger rows sent to the model.
func WithLocation(loc *time.Location) Option {
	return func(g *Gateway) { g.loc = loc }
}

// WithMaxImageSide caps the longest side of JPEG/PNG invoices; 0 disables downscaling.
func WithMaxImageSide(px int) Option {
	return func(g *Gateway) { g.maxImageSide = px }
}

func New(model Model, opts ...Option) *Gateway {
	g := &Gateway{model: model, loc: time.Local}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProcessInvoice extracts structured fields from an invoice file.
func (g *Gateway) ProcessInvoice(ctx context.Context, data []byte, mimeType string) (core.InvoiceResult, error) {
	if err := core.ValidateInvoiceFile(data, mimeType); err != nil {
		return core.InvoiceResult{}, err
	}
	return invoke[core.InvoiceResult](ctx, g, Request{
		Operation:  log.OpProcessInvoice,
		Prompt:     invoicePrompt,
		SchemaName: "invoice",
		Schema:     invoiceSchema,
		Attachment: prepareAttachment(ctx, data, mimeType, g.maxImageSide),
	})
}

// CategorizeExpense suggests a category for a described expense. Input
// validation is the caller's job.
func (g *Gateway) CategorizeExpense(ctx context.Context, description string, amount float64) (core.CategorizedExpense, error) {
	return invoke[core.CategorizedExpense](ctx, g, Request{
		Operation:  log.OpCategorizeExpense,
		Prompt:     categorizePrompt(description, amount),
		SchemaName: "expense_category",
		Schema:     categorizeSchema,
	})
}

// ReconcileStatement matches a plain-text bank statement against history.
// Only the date/description/amount of invoices and expenses reach the model.
func (g *Gateway) ReconcileStatement(ctx context.Context, statement string, history []core.HistoryItem) (core.ReconciliationResult, error) {
	prompt, err := reconcilePrompt(statement, core.StatementView(core.ProjectLedger(history, g.loc)))
	if err != nil {
		return core.ReconciliationResult{}, err
	}
	return invoke[core.ReconciliationResult](ctx, g, Request{
		Operation:  log.OpReconcile,
		Prompt:     prompt,
		SchemaName: "reconciliation",
		Schema:     reconciliationSchema,
	})
}

// GenerateFinancialReport summarizes a projected ledger.
func (g *Gateway) GenerateFinancialReport(ctx context.Context, ledger []core.LedgerItem) (core.FinancialReport, error) {
	if ledger == nil {
		ledger = []core.LedgerItem{}
	}
	prompt, err := reportPrompt(ledger)
	if err != nil {
		return core.FinancialReport{}, err
	}
	return invoke[core.FinancialReport](ctx, g, Request{
		Operation:  log.OpReport,
		Prompt:     prompt,
		SchemaName: "financial_report",
		Schema:     reportSchema,
	})
}

func invoke[T any](ctx context.Context, g *Gateway, req Request) (T, error) {
	var out T
	start := time.Now()

	text, err := g.model.Generate(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "Model call failed",
			log.FieldComponent, log.ComponentGateway,
			log.FieldOperation, req.Operation,
			log.FieldErrorType, log.ErrorTypeGateway,
			log.FieldError, err)
		return out, &InvocationError{Op: req.Operation, Err: err}
	}

	if err := decodeResponse(text, req.Schema, &out); err != nil {
		slog.WarnContext(ctx, "Model returned an unusable response",
			log.FieldComponent, log.ComponentGateway,
			log.FieldOperation, req.Operation,
			log.FieldErrorType, log.ErrorTypeParse,
			log.FieldError, err,
			log.FieldRawResponse, text)
		var zero T
		return zero, &ResponseParseError{Op: req.Operation, Raw: text, Cause: err}
	}

	slog.DebugContext(ctx, "Model call succeeded",
		log.FieldComponent, log.ComponentGateway,
		log.FieldOperation, req.Operation,
		log.FieldDuration, time.Since(start).Milliseconds())
	return out, nil
}
