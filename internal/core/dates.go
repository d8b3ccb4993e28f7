package core

import (
	"errors"
	"strings"
	"time"
)

// DueDateLayout is the persisted format of TaxReminder.DueDate.
const DueDateLayout = "2006-01-02"

// LedgerDateLayout formats history ids as short local dates (3/10/2024).
const LedgerDateLayout = "1/2/2006"

var ErrUnparsableDate = errors.New("unparsable date")

// invoiceDateLayouts are tried in order. Slash dates are read month first.
var invoiceDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
}

// ParseInvoiceDate parses the free-form date strings the model extracts from
// invoices. The returned time is midnight in loc.
func ParseInvoiceDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparsableDate
	}
	for _, layout := range invoiceDateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
		}
	}
	return time.Time{}, ErrUnparsableDate
}

// CreatedAt converts a history or reminder id back into its creation time.
func CreatedAt(id int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(id).In(loc)
}
