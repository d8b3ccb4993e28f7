package services

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"

	"spendora/internal/core"
)

const (
	amountTolerance = 0.005
	// maxDescriptionDistance is the largest normalized edit distance at which
	// two descriptions still name the same ledger row.
	maxDescriptionDistance = 0.4
)

// MergeReconciliation restores the category of every matched ledger row from
// ledger and fills blank suggested categories. The model only ever sees
// date, description and amount, so its ledger rows come back uncategorized.
func MergeReconciliation(result core.ReconciliationResult, ledger []core.LedgerItem) core.ReconciliationResult {
	matched := make([]core.MatchedTransaction, len(result.MatchedTransactions))
	for i, m := range result.MatchedTransactions {
		if m.LedgerItem.Category == "" {
			m.LedgerItem.Category = categoryFor(m.LedgerItem, ledger)
		}
		matched[i] = m
	}

	unmatched := make([]core.UnmatchedTransaction, len(result.UnmatchedTransactions))
	for i, u := range result.UnmatchedTransactions {
		u.SuggestedCategory = core.CategoryOrDefault(u.SuggestedCategory)
		unmatched[i] = u
	}

	return core.ReconciliationResult{MatchedTransactions: matched, UnmatchedTransactions: unmatched}
}

// categoryFor picks the ledger row with the same amount and the closest
// description.
func categoryFor(item core.LedgerItem, ledger []core.LedgerItem) string {
	best, bestDist := "", math.Inf(1)
	for _, l := range ledger {
		if math.Abs(l.Amount-item.Amount) > amountTolerance {
			continue
		}
		d := descriptionDistance(item.Description, l.Description)
		if d < maxDescriptionDistance && d < bestDist {
			best, bestDist = l.Category, d
		}
	}
	return core.CategoryOrDefault(best)
}

func descriptionDistance(a, b string) float64 {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}
