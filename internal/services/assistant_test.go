package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spendora/internal/core"
	"spendora/internal/llm"
	"spendora/internal/storage"
)

type stubGateway struct {
	invoice   core.InvoiceResult
	category  core.CategorizedExpense
	reconcile core.ReconciliationResult
	report    core.FinancialReport
	err       error

	calls       int
	lastHistory []core.HistoryItem
	lastLedger  []core.LedgerItem
}

func (g *stubGateway) ProcessInvoice(context.Context, []byte, string) (core.InvoiceResult, error) {
	g.calls++
	return g.invoice, g.err
}

func (g *stubGateway) CategorizeExpense(context.Context, string, float64) (core.CategorizedExpense, error) {
	g.calls++
	return g.category, g.err
}

func (g *stubGateway) ReconcileStatement(_ context.Context, _ string, history []core.HistoryItem) (core.ReconciliationResult, error) {
	g.calls++
	g.lastHistory = history
	return g.reconcile, g.err
}

func (g *stubGateway) GenerateFinancialReport(_ context.Context, ledger []core.LedgerItem) (core.FinancialReport, error) {
	g.calls++
	g.lastLedger = ledger
	return g.report, g.err
}

type recordingNotifier struct {
	items     []core.HistoryItem
	reminders []core.TaxReminder
	err       error
}

func (n *recordingNotifier) HistorySaved(_ context.Context, item core.HistoryItem) error {
	n.items = append(n.items, item)
	return n.err
}

func (n *recordingNotifier) ReminderCreated(_ context.Context, r core.TaxReminder) error {
	n.reminders = append(n.reminders, r)
	return n.err
}

type brokenKV struct{ storage.KV }

func (brokenKV) Set(context.Context, string, []byte) error { return errors.New("quota exceeded") }

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(kv storage.KV) *storage.Store {
	return storage.NewStore(kv, storage.WithClock(func() time.Time { return testNow }))
}

func taxed(tt core.TaxType, amount float64, date string) core.InvoiceResult {
	return core.InvoiceResult{
		Vendor:      "Acme Corp",
		InvoiceDate: date,
		TotalAmount: 5500,
		Category:    "Software",
		TaxType:     &tt,
		TaxAmount:   &amount,
		LineItems:   []core.LineItem{},
		Summary:     "Licence",
	}
}

func TestProcessInvoiceCreatesReminder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryKV())
	notifier := &recordingNotifier{}
	a := NewAssistant(store, &stubGateway{invoice: taxed(core.GST, 500, "2024-03-10")},
		WithTimezone(time.UTC), WithNotifier(notifier))

	out, err := a.ProcessInvoice(ctx, "acme.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	require.NotNil(t, out.Reminder)
	require.Equal(t, "2024-04-20", out.Reminder.DueDate)
	require.Equal(t, 500.0, out.Reminder.Amount)
	require.Equal(t, core.GST, out.Reminder.TaxType)
	require.Equal(t, "acme.pdf", out.Reminder.SourceInvoiceFile)
	require.Equal(t, out.Item.ID, out.Reminder.SourceInvoiceID)

	reminders := a.Reminders(ctx)
	require.Len(t, reminders, 1)
	require.Equal(t, *out.Reminder, reminders[0])

	history := a.History(ctx)
	require.Len(t, history, 1)
	entry, ok := history[0].Entry.(*core.InvoiceEntry)
	require.True(t, ok)
	require.Equal(t, "acme.pdf", entry.FileName)

	require.Len(t, notifier.items, 1)
	require.Len(t, notifier.reminders, 1)
}

func TestProcessInvoiceWithoutReminder(t *testing.T) {
	noTax := taxed(core.GST, 500, "2024-03-10")
	noTax.TaxType = nil

	zeroTax := taxed(core.TDS, 0, "2024-03-10")

	tests := []struct {
		name   string
		result core.InvoiceResult
	}{
		{"no tax type", noTax},
		{"zero tax amount", zeroTax},
		{"unparseable date", taxed(core.GST, 500, "sometime in spring")},
		{"missing date", taxed(core.GST, 500, "")},
		{"unknown tax type", taxed(core.TaxType("VAT"), 500, "2024-03-10")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			a := NewAssistant(newTestStore(storage.NewMemoryKV()), &stubGateway{invoice: tt.result}, WithTimezone(time.UTC))

			out, err := a.ProcessInvoice(ctx, "inv.png", []byte{0x89}, "image/png")
			require.NoError(t, err)
			require.Nil(t, out.Reminder)
			require.Empty(t, a.Reminders(ctx))
			require.Len(t, a.History(ctx), 1)
		})
	}
}

func TestValidationStopsBeforeGateway(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{}
	a := NewAssistant(newTestStore(storage.NewMemoryKV()), gw)

	_, err := a.ProcessInvoice(ctx, "x.gif", []byte("GIF89a"), "image/gif")
	require.ErrorIs(t, err, core.ErrUnsupportedMIME)

	_, err = a.ProcessInvoice(ctx, "x.pdf", nil, "application/pdf")
	require.ErrorIs(t, err, core.ErrEmptyFile)

	_, err = a.CategorizeExpense(ctx, "   ", 10)
	require.ErrorIs(t, err, core.ErrEmptyDescription)

	_, err = a.CategorizeExpense(ctx, "Lunch", 0)
	require.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = a.ReconcileStatement(ctx, "s.pdf", []byte("%PDF"), "application/pdf")
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)

	require.Zero(t, gw.calls)
	require.Empty(t, a.History(ctx))
}

func TestGatewayFailurePersistsNothing(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{err: &llm.ResponseParseError{Raw: "garbage"}}
	a := NewAssistant(newTestStore(storage.NewMemoryKV()), gw)

	_, err := a.ProcessInvoice(ctx, "a.pdf", []byte("%PDF"), "application/pdf")
	require.ErrorIs(t, err, llm.ErrInvalidResponse)
	_, err = a.CategorizeExpense(ctx, "Taxi", 12)
	require.ErrorIs(t, err, llm.ErrInvalidResponse)
	_, err = a.ReconcileStatement(ctx, "s.txt", []byte("x"), "text/plain")
	require.ErrorIs(t, err, llm.ErrInvalidResponse)

	require.Empty(t, a.History(ctx))
	require.Empty(t, a.Reminders(ctx))
}

func TestCategorizeExpenseRecordsResult(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{category: core.CategorizedExpense{Category: "Travel", Justification: "Ride to the airport"}}
	a := NewAssistant(newTestStore(storage.NewMemoryKV()), gw)

	out, err := a.CategorizeExpense(ctx, "Taxi", 42.5)
	require.NoError(t, err)
	require.Equal(t, core.ExpenseResult{Description: "Taxi", Amount: 42.5, Category: "Travel", Justification: "Ride to the airport"}, out.Result)
	require.Equal(t, testNow.UnixMilli(), out.Item.ID)

	history := a.History(ctx)
	require.Len(t, history, 1)
	require.Equal(t, &core.ExpenseEntry{Result: out.Result}, history[0].Entry)
}

func TestPersistenceFailureIsSurfaced(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	a := NewAssistant(newTestStore(brokenKV{storage.NewMemoryKV()}),
		&stubGateway{category: core.CategorizedExpense{Category: "Travel", Justification: "j"}},
		WithNotifier(notifier))

	out, err := a.CategorizeExpense(ctx, "Taxi", 12)
	var pe *storage.PersistenceError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "Travel", out.Result.Category)
	require.NotZero(t, out.Item.ID)
	require.Empty(t, notifier.items)
}

func TestNotifierFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	a := NewAssistant(newTestStore(storage.NewMemoryKV()),
		&stubGateway{invoice: taxed(core.TDS, 90, "2024-03-10")},
		WithTimezone(time.UTC), WithNotifier(&recordingNotifier{err: errors.New("broker down")}))

	out, err := a.ProcessInvoice(ctx, "a.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	require.Equal(t, "2024-04-07", out.Reminder.DueDate)
}

type scriptedModel struct {
	reply   string
	prompts []string
}

func (m *scriptedModel) Generate(_ context.Context, req llm.Request) (string, error) {
	m.prompts = append(m.prompts, req.Prompt)
	return m.reply, nil
}

func TestReconcileUnrelatedTransaction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryKV())
	_, err := store.SaveHistoryItem(ctx, &core.ExpenseEntry{Result: core.ExpenseResult{
		Description: "Coffee", Amount: 4.50, Category: "Meals & Entertainment", Justification: "j",
	}})
	require.NoError(t, err)

	model := &scriptedModel{reply: `{
	  "matchedTransactions": [],
	  "unmatchedTransactions": [
	    {"bankTransaction": {"date": "2024-03-14", "description": "AIRLINE TICKET", "amount": 320}, "suggestedCategory": "Travel"}
	  ]
	}`}
	a := NewAssistant(store, llm.New(model, llm.WithLocation(time.UTC)), WithTimezone(time.UTC))

	out, err := a.ReconcileStatement(ctx, "march.txt", []byte("2024-03-14 AIRLINE TICKET 320.00"), "text/plain")
	require.NoError(t, err)
	require.Empty(t, out.Result.MatchedTransactions)
	require.Len(t, out.Result.UnmatchedTransactions, 1)
	require.Equal(t, "AIRLINE TICKET", out.Result.UnmatchedTransactions[0].BankTransaction.Description)
	require.NotEmpty(t, out.Result.UnmatchedTransactions[0].SuggestedCategory)

	require.Len(t, model.prompts, 1)
	require.Contains(t, model.prompts[0], `"description": "Coffee"`)

	history := a.History(ctx)
	require.Len(t, history, 2)
	rec, ok := history[0].Entry.(*core.ReconciliationEntry)
	require.True(t, ok)
	require.Equal(t, "march.txt", rec.FileName)
}

func TestReconcileRestoresMatchedCategory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryKV())
	_, err := store.SaveHistoryItem(ctx, &core.ExpenseEntry{Result: core.ExpenseResult{
		Description: "Coffee", Amount: 4.50, Category: "Meals & Entertainment",
	}})
	require.NoError(t, err)

	bank := core.BankTransaction{Date: "2024-03-15", Description: "COFFEE SHOP", Amount: 4.5}
	gw := &stubGateway{reconcile: core.ReconciliationResult{
		MatchedTransactions: []core.MatchedTransaction{{
			BankTransaction: bank,
			LedgerItem:      core.LedgerItem{Date: "3/15/2024", Description: "Coffee", Amount: 4.5},
		}},
		UnmatchedTransactions: []core.UnmatchedTransaction{},
	}}
	a := NewAssistant(store, gw, WithTimezone(time.UTC))

	out, err := a.ReconcileStatement(ctx, "s.txt", []byte("COFFEE SHOP 4.50"), "text/plain; charset=utf-8")
	require.NoError(t, err)
	require.Len(t, gw.lastHistory, 1)
	require.Equal(t, "Meals & Entertainment", out.Result.MatchedTransactions[0].LedgerItem.Category)
}

func TestGenerateReport(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryKV())
	gw := &stubGateway{report: core.FinancialReport{
		ExecutiveSummary: "ok",
		ExpenseBreakdown: []core.BreakdownEntry{{Category: "Software", TotalAmount: 1, Percentage: 100}},
	}}
	a := NewAssistant(store, gw, WithTimezone(time.UTC))

	_, err := a.GenerateReport(ctx)
	require.ErrorIs(t, err, ErrEmptyLedger)
	require.Zero(t, gw.calls)

	_, err = store.SaveHistoryItem(ctx, &core.ReconciliationEntry{FileName: "s.txt"})
	require.NoError(t, err)
	_, err = a.GenerateReport(ctx)
	require.ErrorIs(t, err, ErrEmptyLedger, "reconciliations are not part of the ledger")

	_, err = store.SaveHistoryItem(ctx, &core.InvoiceEntry{FileName: "a.pdf", Result: core.InvoiceResult{Vendor: "Acme", TotalAmount: 1, Category: "Software"}})
	require.NoError(t, err)

	report, err := a.GenerateReport(ctx)
	require.NoError(t, err)
	require.Equal(t, "#22c55e", report.ExpenseBreakdown[0].Color)
	require.Equal(t, []core.LedgerItem{{Date: "3/15/2024", Description: "Invoice from Acme", Category: "Software", Amount: 1}}, gw.lastLedger)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryKV())
	a := NewAssistant(store, &stubGateway{}, WithTimezone(time.UTC))

	for i, amount := range []float64{10, 20, 30} {
		_, err := store.SaveHistoryItem(ctx, &core.ExpenseEntry{Result: core.ExpenseResult{Description: "e", Amount: amount, Category: []string{"Travel", "", "Travel"}[i]}})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := store.SaveHistoryItem(ctx, &core.InvoiceEntry{Result: core.InvoiceResult{Vendor: "v", TotalAmount: 100, Category: "Rent"}})
		require.NoError(t, err)
	}
	for _, due := range []string{"2024-03-07", "2024-03-15", "2024-04-20"} {
		_, err := store.AddReminder(ctx, core.TaxReminder{TaxType: core.GST, DueDate: due, Amount: 1})
		require.NoError(t, err)
	}

	d := a.Dashboard(ctx, testNow)
	require.Len(t, d.Recent, RecentLimit)
	require.Equal(t, 300.0, d.InvoiceTotal)
	require.Equal(t, 60.0, d.ExpenseTotal)
	require.Equal(t, []core.CategoryShare{
		{Category: "Travel", Amount: 40, Percentage: 66.667},
		{Category: core.Uncategorized, Amount: 20, Percentage: 33.333},
	}, roundShares(d.Expenses))
	require.Len(t, d.Upcoming, 2)
	require.Equal(t, "2024-03-15", d.Upcoming[0].DueDate)
}

func roundShares(shares []core.CategoryShare) []core.CategoryShare {
	out := make([]core.CategoryShare, len(shares))
	for i, s := range shares {
		s.Percentage = float64(int(s.Percentage*1000+0.5)) / 1000
		out[i] = s
	}
	return out
}
