package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryShare is an amount aggregated by category with its share of the total.
type CategoryShare struct {
	Category   string
	Amount     float64
	Percentage float64
}

// AggregateByCategory groups items by category and sorts the buckets by
// amount, largest first. Equal amounts keep the order in which their
// category first appeared. Percentages are 0 when the total is 0.
func AggregateByCategory[T any](items []T, amountOf func(T) float64, categoryOf func(T) string) []CategoryShare {
	var order []string
	sums := make(map[string]decimal.Decimal)
	for _, item := range items {
		cat := categoryOf(item)
		if _, seen := sums[cat]; !seen {
			order = append(order, cat)
			sums[cat] = decimal.Zero
		}
		sums[cat] = sums[cat].Add(decimal.NewFromFloat(amountOf(item)))
	}

	total := decimal.Zero
	for _, cat := range order {
		total = total.Add(sums[cat])
	}

	hundred := decimal.NewFromInt(100)
	shares := make([]CategoryShare, 0, len(order))
	for _, cat := range order {
		amount, _ := sums[cat].Float64()
		share := CategoryShare{Category: cat, Amount: amount}
		if !total.IsZero() {
			share.Percentage, _ = sums[cat].Div(total).Mul(hundred).Float64()
		}
		shares = append(shares, share)
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Amount > shares[j].Amount
	})
	return shares
}

// CategoryOrDefault maps a blank category to Uncategorized.
func CategoryOrDefault(category string) string {
	if strings.TrimSpace(category) == "" {
		return Uncategorized
	}
	return category
}

// InvoiceBreakdown aggregates invoice totals in history by category.
func InvoiceBreakdown(items []HistoryItem) []CategoryShare {
	var invoices []*InvoiceEntry
	for _, item := range items {
		if e, ok := item.Entry.(*InvoiceEntry); ok {
			invoices = append(invoices, e)
		}
	}
	return AggregateByCategory(invoices,
		func(e *InvoiceEntry) float64 { return e.Result.TotalAmount },
		func(e *InvoiceEntry) string { return CategoryOrDefault(e.Result.Category) })
}

// ExpenseBreakdown aggregates expense amounts in history by category.
func ExpenseBreakdown(items []HistoryItem) []CategoryShare {
	var expenses []*ExpenseEntry
	for _, item := range items {
		if e, ok := item.Entry.(*ExpenseEntry); ok {
			expenses = append(expenses, e)
		}
	}
	return AggregateByCategory(expenses,
		func(e *ExpenseEntry) float64 { return e.Result.Amount },
		func(e *ExpenseEntry) string { return CategoryOrDefault(e.Result.Category) })
}

// TotalShares sums the amounts of a breakdown.
func TotalShares(shares []CategoryShare) float64 {
	amounts := make([]float64, len(shares))
	for i, s := range shares {
		amounts[i] = s.Amount
	}
	return SumAmounts(amounts...)
}
