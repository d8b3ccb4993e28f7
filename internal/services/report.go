package services

import (
	"context"
	"time"

	"spendora/internal/core"
)

// BreakdownColors are assigned to report breakdown entries by position.
var BreakdownColors = []string{
	"#22c55e", "#84cc16", "#16a34a", "#65a30d", "#15803d", "#4d7c0f", "#a3e635",
}

// ColorizeReport returns a copy of report whose breakdown entries carry a
// chart color, cycling through BreakdownColors.
func ColorizeReport(report core.FinancialReport) core.FinancialReport {
	breakdown := make([]core.BreakdownEntry, len(report.ExpenseBreakdown))
	for i, e := range report.ExpenseBreakdown {
		e.Color = BreakdownColors[i%len(BreakdownColors)]
		breakdown[i] = e
	}
	report.ExpenseBreakdown = breakdown
	return report
}

// RecentLimit is the number of history items shown on the dashboard.
const RecentLimit = 5

// Dashboard is the overview of everything recorded so far.
type Dashboard struct {
	Recent       []core.HistoryItem
	Invoices     []core.CategoryShare
	Expenses     []core.CategoryShare
	InvoiceTotal float64
	ExpenseTotal float64
	// Upcoming holds reminders due today or later, soonest first.
	Upcoming []core.TaxReminder
}

// Dashboard summarizes history and reminders as of now.
func (a *Assistant) Dashboard(ctx context.Context, now time.Time) Dashboard {
	history := a.store.GetHistory(ctx)
	d := Dashboard{
		Recent:   history[:min(RecentLimit, len(history))],
		Invoices: core.InvoiceBreakdown(history),
		Expenses: core.ExpenseBreakdown(history),
		Upcoming: []core.TaxReminder{},
	}
	d.InvoiceTotal = core.TotalShares(d.Invoices)
	d.ExpenseTotal = core.TotalShares(d.Expenses)

	today := now.In(a.loc).Format(core.DueDateLayout)
	for _, r := range a.store.GetReminders(ctx) {
		if r.DueDate >= today {
			d.Upcoming = append(d.Upcoming, r)
		}
	}
	return d
}
