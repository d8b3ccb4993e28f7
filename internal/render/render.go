// Package render formats assistant results for the terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"spendora/internal/core"
	"spendora/internal/services"
)

var (
	colorBrand   = lipgloss.Color("#22c55e")
	colorText    = lipgloss.Color("#e5e7eb")
	colorMuted   = lipgloss.Color("#9ca3af")
	colorWarn    = lipgloss.Color("#facc15")
	colorDanger  = lipgloss.Color("#f87171")
	colorInvoice = lipgloss.Color("#60a5fa")
	colorExpense = lipgloss.Color("#c084fc")

	titleStyle   = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)
	headingStyle = lipgloss.NewStyle().Foreground(colorText).Bold(true).Underline(true)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	valueStyle   = lipgloss.NewStyle().Foreground(colorText)
	amountStyle  = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	dangerStyle  = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

const (
	barWidth       = 24
	createdLayout  = "Jan 2, 2006 15:04"
	reminderLayout = "January 2, 2006"
)

func field(label, value string) string {
	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func joinLines(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// Invoice shows an extracted invoice and the reminder it produced, if any.
func Invoice(out services.InvoiceOutcome) string {
	r := out.Result
	lines := []string{
		titleStyle.Render("Invoice processed"),
		field("Vendor", r.Vendor),
		field("Invoice date", orDash(r.InvoiceDate)),
		field("Due date", orDash(r.DueDate)),
		field("Category", core.CategoryOrDefault(r.Category)),
		labelStyle.Render("Total:") + " " + amountStyle.Render(core.FormatAmount(r.TotalAmount)),
	}
	if r.TaxType != nil {
		tax := string(*r.TaxType)
		if r.TaxAmount != nil {
			tax += " " + core.FormatAmount(*r.TaxAmount)
		}
		lines = append(lines, field("Tax", tax))
	}
	lines = append(lines, field("Summary", r.Summary))

	if len(r.LineItems) > 0 {
		lines = append(lines, "", headingStyle.Render("Line items"))
		rows := make([][]string, len(r.LineItems))
		for i, li := range r.LineItems {
			rows[i] = []string{li.Description, optNumber(li.Quantity), optAmount(li.UnitPrice), core.FormatAmount(li.Amount)}
		}
		lines = append(lines, table([]string{"Description", "Qty", "Unit price", "Amount"}, rows))
	}

	if out.Reminder != nil {
		lines = append(lines, "", warnStyle.Render(fmt.Sprintf("%s filing of %s due %s",
			out.Reminder.TaxType, core.FormatAmount(out.Reminder.Amount), out.Reminder.DueDate)))
	}
	return boxStyle.Render(strings.Join(lines, "\n")) + "\n"
}

// Expense shows a categorized expense.
func Expense(out services.ExpenseOutcome) string {
	r := out.Result
	return boxStyle.Render(strings.Join([]string{
		titleStyle.Render("Expense categorized"),
		field("Description", r.Description),
		labelStyle.Render("Amount:") + " " + amountStyle.Render(core.FormatAmount(r.Amount)),
		field("Category", r.Category),
		field("Why", r.Justification),
	}, "\n")) + "\n"
}

// Reconciliation lists matched and unmatched bank transactions.
func Reconciliation(r core.ReconciliationResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Reconciliation: %d matched, %d unmatched",
		len(r.MatchedTransactions), len(r.UnmatchedTransactions))) + "\n\n")

	b.WriteString(headingStyle.Render("Matched") + "\n")
	if len(r.MatchedTransactions) == 0 {
		b.WriteString(mutedStyle.Render("No matches found.") + "\n")
	} else {
		rows := make([][]string, len(r.MatchedTransactions))
		for i, m := range r.MatchedTransactions {
			rows[i] = []string{m.BankTransaction.Date, m.BankTransaction.Description,
				core.FormatAmount(m.BankTransaction.Amount), m.LedgerItem.Description, m.LedgerItem.Category}
		}
		b.WriteString(table([]string{"Date", "Bank description", "Amount", "Ledger item", "Category"}, rows))
	}

	b.WriteString("\n" + headingStyle.Render("Unmatched") + "\n")
	if len(r.UnmatchedTransactions) == 0 {
		b.WriteString(mutedStyle.Render("Every transaction was matched.") + "\n")
	} else {
		rows := make([][]string, len(r.UnmatchedTransactions))
		for i, u := range r.UnmatchedTransactions {
			rows[i] = []string{u.BankTransaction.Date, u.BankTransaction.Description,
				core.FormatAmount(u.BankTransaction.Amount), u.SuggestedCategory}
		}
		b.WriteString(table([]string{"Date", "Description", "Amount", "Suggested category"}, rows))
	}
	return b.String()
}

// History lists history items with their creation time and details.
func History(items []core.HistoryItem, loc *time.Location) string {
	if len(items) == 0 {
		return mutedStyle.Render("No history yet.") + "\n"
	}
	var b strings.Builder
	for _, it := range items {
		b.WriteString(historyLine(it, loc) + "\n")
	}
	return b.String()
}

func historyLine(it core.HistoryItem, loc *time.Location) string {
	kind := string(it.Entry.Kind())
	style := lipgloss.NewStyle().Bold(true).Width(15)
	switch it.Entry.(type) {
	case *core.InvoiceEntry:
		style = style.Foreground(colorInvoice)
	case *core.ExpenseEntry:
		style = style.Foreground(colorExpense)
	default:
		style = style.Foreground(colorWarn)
	}
	return labelStyle.Render(core.CreatedAt(it.ID, loc).Format(createdLayout)) + "  " +
		style.Render(strings.ToUpper(kind[:1])+kind[1:]) + " " +
		valueStyle.Render(it.Entry.Details())
}

// Ledger renders the projected ledger with a total.
func Ledger(items []core.LedgerItem) string {
	if len(items) == 0 {
		return mutedStyle.Render("The ledger is empty. Process an invoice or add an expense first.") + "\n"
	}
	rows := make([][]string, len(items))
	amounts := make([]float64, len(items))
	for i, it := range items {
		rows[i] = []string{it.Date, it.Description, core.CategoryOrDefault(it.Category), core.FormatAmount(it.Amount)}
		amounts[i] = it.Amount
	}
	return table([]string{"Date", "Description", "Category", "Amount"}, rows) +
		labelStyle.Render("Total:") + " " + amountStyle.Render(core.FormatAmount(core.SumAmounts(amounts...))) + "\n"
}

// Reminders lists reminders with their distance from today.
func Reminders(reminders []core.TaxReminder, today time.Time) string {
	if len(reminders) == 0 {
		return mutedStyle.Render("No tax reminders. They are created when an invoice mentions GST or TDS.") + "\n"
	}
	rows := make([][]string, len(reminders))
	for i, r := range reminders {
		rows[i] = []string{reminderDate(r.DueDate), string(r.TaxType), core.FormatAmount(r.Amount), r.SourceInvoiceFile, dueStatus(r.DueDate, today)}
	}
	return table([]string{"Due date", "Tax", "Amount", "Source invoice", "Status"}, rows)
}

func reminderDate(due string) string {
	d, err := time.Parse(core.DueDateLayout, due)
	if err != nil {
		return due
	}
	return d.Format(reminderLayout)
}

func dueStatus(due string, today time.Time) string {
	d, err := time.Parse(core.DueDateLayout, due)
	if err != nil {
		return ""
	}
	y, m, day := today.Date()
	days := int(d.Sub(time.Date(y, m, day, 0, 0, 0, 0, time.UTC)).Hours() / 24)
	switch {
	case days < 0:
		return dangerStyle.Render(fmt.Sprintf("overdue by %d days", -days))
	case days == 0:
		return warnStyle.Render("due today")
	case days <= 7:
		return warnStyle.Render(fmt.Sprintf("in %d days", days))
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

// Report renders a generated financial report.
func Report(r core.FinancialReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Financial report") + "\n\n")
	b.WriteString(valueStyle.Render(r.ExecutiveSummary) + "\n\n")

	b.WriteString(headingStyle.Render("Expense breakdown") + "\n")
	for _, e := range r.ExpenseBreakdown {
		b.WriteString(barLine(e.Category, e.TotalAmount, e.Percentage, e.Color) + "\n")
	}

	b.WriteString("\n" + headingStyle.Render("Key insights") + "\n")
	for _, s := range r.KeyInsights {
		b.WriteString("  • " + s + "\n")
	}
	b.WriteString("\n" + headingStyle.Render("Recommendations") + "\n")
	for i, s := range r.Recommendations {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, s))
	}
	return b.String()
}

// Dashboard renders the overview: totals, category charts, recent activity
// and upcoming reminders.
func Dashboard(d services.Dashboard, loc *time.Location, today time.Time) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Dashboard") + "\n\n")

	totals := lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(labelStyle.Render("Invoices")+"\n"+amountStyle.Render(core.FormatAmount(d.InvoiceTotal))),
		" ",
		boxStyle.Render(labelStyle.Render("Expenses")+"\n"+amountStyle.Render(core.FormatAmount(d.ExpenseTotal))),
		" ",
		boxStyle.Render(labelStyle.Render("Upcoming filings")+"\n"+amountStyle.Render(fmt.Sprint(len(d.Upcoming)))),
	)
	b.WriteString(totals + "\n\n")

	b.WriteString(chart("Invoices by category", d.Invoices))
	b.WriteString(chart("Expenses by category", d.Expenses))

	b.WriteString(headingStyle.Render("Recent activity") + "\n")
	if len(d.Recent) == 0 {
		b.WriteString(mutedStyle.Render("Nothing recorded yet.") + "\n")
	} else {
		for _, it := range d.Recent {
			b.WriteString(historyLine(it, loc) + "\n")
		}
	}

	b.WriteString("\n" + headingStyle.Render("Upcoming tax filings") + "\n")
	if len(d.Upcoming) == 0 {
		b.WriteString(mutedStyle.Render("None.") + "\n")
	} else {
		b.WriteString(Reminders(d.Upcoming, today))
	}
	return b.String()
}

func chart(title string, shares []core.CategoryShare) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(title) + "\n")
	if len(shares) == 0 {
		b.WriteString(mutedStyle.Render("No data.") + "\n\n")
		return b.String()
	}
	for i, s := range shares {
		color := services.BreakdownColors[i%len(services.BreakdownColors)]
		b.WriteString(barLine(s.Category, s.Amount, s.Percentage, color) + "\n")
	}
	return b.String() + "\n"
}

func barLine(category string, amount, percentage float64, color string) string {
	filled := int(percentage/100*barWidth + 0.5)
	filled = max(0, min(barWidth, filled))
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(strings.Repeat("█", filled)) +
		labelStyle.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("  %-24s %s %6.1f%%  %s", truncate(category, 24), bar, percentage, core.FormatAmount(amount))
}

// table lays out rows in padded columns under a bold header.
func table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = style.Render(c) + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
		}
		return "  " + strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	out := []string{line(header, labelStyle.Bold(true))}
	for _, row := range rows {
		out = append(out, line(row, lipgloss.NewStyle()))
	}
	return joinLines(out...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func optNumber(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *f)
}

func optAmount(f *float64) string {
	if f == nil {
		return "-"
	}
	return core.FormatAmount(*f)
}
