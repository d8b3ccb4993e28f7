package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spendora/internal/core"
)

type fakeModel struct {
	reply string
	err   error
	calls []Request
}

func (f *fakeModel) Generate(_ context.Context, req Request) (string, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

const invoiceReply = `{
  "vendor": "Acme Corp",
  "invoiceDate": "2024-03-10",
  "dueDate": "2024-04-10",
  "totalAmount": 5500,
  "category": "Software",
  "taxType": "GST",
  "taxAmount": 500,
  "lineItems": [{"description": "Licence", "quantity": 1, "unitPrice": 5000, "amount": 5000}],
  "summary": "Annual licence from Acme."
}`

func TestProcessInvoice(t *testing.T) {
	model := &fakeModel{reply: invoiceReply}
	g := New(model)

	got, err := g.ProcessInvoice(context.Background(), []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", got.Vendor)
	require.Equal(t, 5500.0, got.TotalAmount)
	require.NotNil(t, got.TaxType)
	require.Equal(t, core.GST, *got.TaxType)
	require.Equal(t, 500.0, *got.TaxAmount)
	require.Len(t, got.LineItems, 1)
	require.Equal(t, 1.0, *got.LineItems[0].Quantity)

	require.Len(t, model.calls, 1)
	req := model.calls[0]
	require.Equal(t, "invoice", req.SchemaName)
	require.NotNil(t, req.Attachment)
	require.Equal(t, "application/pdf", req.Attachment.MIMEType)
	require.Equal(t, []byte("%PDF-1.4"), req.Attachment.Data)
	require.ElementsMatch(t, []string{"vendor", "totalAmount", "category", "lineItems", "summary"}, req.Schema.Required)
	require.Equal(t, []string{"GST", "TDS"}, req.Schema.Properties["taxType"].Enum)
}

func TestProcessInvoiceOptionalFieldsAbsent(t *testing.T) {
	model := &fakeModel{reply: `{"vendor":"Acme","totalAmount":10,"category":"Other","lineItems":[],"summary":"s","taxType":null}`}
	got, err := New(model).ProcessInvoice(context.Background(), []byte("hello"), "text/plain")
	require.NoError(t, err)
	require.Nil(t, got.TaxType)
	require.Nil(t, got.TaxAmount)
	require.Empty(t, got.InvoiceDate)
}

func TestProcessInvoiceRejectsBadInput(t *testing.T) {
	model := &fakeModel{reply: invoiceReply}
	g := New(model)

	_, err := g.ProcessInvoice(context.Background(), nil, "image/png")
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = g.ProcessInvoice(context.Background(), []byte("GIF89a"), "image/gif")
	require.ErrorIs(t, err, core.ErrUnsupportedMIME)
	require.Empty(t, model.calls, "invalid input must never reach the model")
}

func TestParseFailuresAreNormalized(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"whitespace":       "  \n",
		"not json":         "Sure! Here is your invoice.",
		"truncated":        `{"vendor": "Acme"`,
		"missing required": `{"vendor":"Acme","totalAmount":1,"category":"x","summary":"s"}`,
		"wrong type":       `{"vendor":"Acme","totalAmount":"12.00","category":"x","lineItems":[],"summary":"s"}`,
		"bad line item":    `{"vendor":"Acme","totalAmount":1,"category":"x","lineItems":[{"description":"d"}],"summary":"s"}`,
		"array root":       `[]`,
		"unknown tax type": `{"vendor":"Acme","totalAmount":1,"category":"x","taxType":"VAT","taxAmount":1,"lineItems":[],"summary":"s"}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(&fakeModel{reply: reply}).ProcessInvoice(context.Background(), []byte("x"), "text/plain")
			var pe *ResponseParseError
			require.ErrorAs(t, err, &pe)
			require.ErrorIs(t, err, ErrInvalidResponse)
			require.Equal(t, "The AI returned an invalid response. Please try again.", err.Error())
			require.Equal(t, reply, pe.Raw)
		})
	}
}

func TestRawResponseNotInMessage(t *testing.T) {
	_, err := New(&fakeModel{reply: "SECRET-PAYLOAD"}).CategorizeExpense(context.Background(), "Taxi", 12)
	require.Error(t, err)
	require.NotContains(t, err.Error(), "SECRET-PAYLOAD")
}

func TestCodeFenceIsTolerated(t *testing.T) {
	model := &fakeModel{reply: "```json\n{\"category\":\"Travel\",\"justification\":\"Taxi ride\"}\n```"}
	got, err := New(model).CategorizeExpense(context.Background(), "Taxi", 12)
	require.NoError(t, err)
	require.Equal(t, core.CategorizedExpense{Category: "Travel", Justification: "Taxi ride"}, got)
}

func TestInvocationErrorsPropagateVerbatim(t *testing.T) {
	cause := errors.New("status code: 429, message: quota exceeded")
	model := &fakeModel{err: cause}

	_, err := New(model).GenerateFinancialReport(context.Background(), nil)
	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	require.ErrorIs(t, err, cause)
	require.Equal(t, cause.Error(), err.Error())
	require.NotErrorIs(t, err, ErrInvalidResponse)
	require.Len(t, model.calls, 1, "no retry")
}

func TestCategorizeExpensePrompt(t *testing.T) {
	model := &fakeModel{reply: `{"category":"Meals & Entertainment","justification":"coffee"}`}
	got, err := New(model).CategorizeExpense(context.Background(), "Coffee with client", 4.5)
	require.NoError(t, err)
	require.Equal(t, "Meals & Entertainment", got.Category)

	prompt := model.calls[0].Prompt
	require.Contains(t, prompt, `"Coffee with client"`)
	require.Contains(t, prompt, "Amount: $4.5")
	for _, c := range ExpenseCategories {
		require.Contains(t, prompt, c)
	}
	require.Nil(t, model.calls[0].Attachment)
}

func TestReconcileStatementSendsProjectedLedger(t *testing.T) {
	model := &fakeModel{reply: `{
	  "matchedTransactions": [],
	  "unmatchedTransactions": [{"bankTransaction": {"date": "2024-03-12", "description": "UBER TRIP", "amount": 23.1}, "suggestedCategory": "Travel"}]
	}`}
	history := []core.HistoryItem{
		{ID: time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC).UnixMilli(), Entry: &core.ExpenseEntry{Result: core.ExpenseResult{
			Description: "Coffee", Amount: 4.5, Category: "Meals & Entertainment", Justification: "private-note",
		}}},
		{ID: 2, Entry: &core.ReconciliationEntry{FileName: "old-statement.txt"}},
	}

	got, err := New(model, WithLocation(time.UTC)).ReconcileStatement(context.Background(), "2024-03-12 UBER TRIP 23.10", history)
	require.NoError(t, err)
	require.Empty(t, got.MatchedTransactions)
	require.Len(t, got.UnmatchedTransactions, 1)
	require.NotEmpty(t, got.UnmatchedTransactions[0].SuggestedCategory)

	prompt := model.calls[0].Prompt
	require.Contains(t, prompt, "UBER TRIP 23.10")
	require.Contains(t, prompt, `"description": "Coffee"`)
	require.Contains(t, prompt, `"amount": 4.5`)
	require.Contains(t, prompt, `"date": "3/12/2024"`)
	require.NotContains(t, prompt, "private-note")
	require.NotContains(t, prompt, "Meals & Entertainment")
	require.NotContains(t, prompt, "old-statement.txt")
}

func TestReconcileRequiresBothArrays(t *testing.T) {
	_, err := New(&fakeModel{reply: `{"matchedTransactions": []}`}).ReconcileStatement(context.Background(), "x", nil)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGenerateFinancialReport(t *testing.T) {
	model := &fakeModel{reply: `{
	  "executiveSummary": "Spending is stable.",
	  "expenseBreakdown": [{"category": "Software", "totalAmount": 120, "percentage": 100}],
	  "keyInsights": ["a", "b", "c"],
	  "recommendations": ["x", "y", "z"]
	}`}
	ledger := []core.LedgerItem{{Date: "3/10/2024", Description: "Invoice from Acme", Category: "Software", Amount: 120}}

	got, err := New(model).GenerateFinancialReport(context.Background(), ledger)
	require.NoError(t, err)
	require.Equal(t, "Spending is stable.", got.ExecutiveSummary)
	require.Len(t, got.ExpenseBreakdown, 1)
	require.Empty(t, got.ExpenseBreakdown[0].Color)
	require.Len(t, got.Recommendations, 3)
	require.Contains(t, model.calls[0].Prompt, `"category": "Software"`)

	_, err = New(&fakeModel{reply: `{"executiveSummary":"s","expenseBreakdown":[{"category":"x","totalAmount":1}],"keyInsights":[],"recommendations":[]}`}).
		GenerateFinancialReport(context.Background(), ledger)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGenerateFinancialReportEmptyLedger(t *testing.T) {
	model := &fakeModel{err: errors.New("offline")}
	_, _ = New(model).GenerateFinancialReport(context.Background(), nil)
	require.True(t, strings.Contains(model.calls[0].Prompt, "```json\n[]\n```"))
}
