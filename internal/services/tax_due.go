// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for tax filing due dates.
// Each tax type has its own rule that decides on which day of the month
// following the invoice the filing is due.

package services

import (
	"fmt"
	"time"

	"spendora/internal/core"
)

// DueDayRule is the strategy interface for computing a tax filing due date.
type DueDayRule interface {
	// DueDate returns the filing date owed for an invoice dated invoiceDate.
	DueDate(invoiceDate time.Time) time.Time
}

// NextMonthDay is due on a fixed day of the calendar month after the invoice.
type NextMonthDay int

// DueDate moves to the following month and sets the day directly, so the
// invoice's own day of month never overflows into a later month
// (Jan 31 becomes Feb 20, not Mar 3). Time of day is cleared.
func (d NextMonthDay) DueDate(invoiceDate time.Time) time.Time {
	y, m, _ := invoiceDate.Date()
	return time.Date(y, m+1, int(d), 0, 0, 0, 0, invoiceDate.Location())
}

// dueDayRules maps tax types to their filing rules.
var dueDayRules = map[core.TaxType]DueDayRule{
	core.GST: NextMonthDay(20),
	core.TDS: NextMonthDay(7),
}

// GetDueDayRule returns the rule for a tax type.
// Returns an error if the tax type is not supported.
func GetDueDayRule(taxType core.TaxType) (DueDayRule, error) {
	rule, ok := dueDayRules[taxType]
	if !ok {
		return nil, fmt.Errorf("unknown tax type: %s", taxType)
	}
	return rule, nil
}

// CalculateDueDate returns the filing due date for an invoice of the given tax type.
func CalculateDueDate(invoiceDate time.Time, taxType core.TaxType) (time.Time, error) {
	rule, err := GetDueDayRule(taxType)
	if err != nil {
		return time.Time{}, err
	}
	return rule.DueDate(invoiceDate), nil
}
