// Package expense holds the domain types for extracted receipt expenses:
// the validated expense record, the closed category and currency tables,
// and the transaction-date staleness policy.
package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar format the vision model is instructed to
// return and the format used everywhere dates are parsed from text.
const DateLayout = "2006-01-02"

// Expense is one validated expense record extracted from a single receipt.
// It is immutable after classification; Date already has the staleness
// policy applied.
type Expense struct {
	Amount      decimal.Decimal
	Currency    string // 3-letter code, upper-cased
	Category    string // human-readable label from the closed set
	CategoryID  string // external system identifier, always resolved
	Description string

	// Date is the transaction date, or the zero value when the receipt
	// carried no usable date.
	Date         time.Time
	DateAdjusted bool

	// ReceiptPath is the source file this expense was extracted from.
	ReceiptPath string
}

// HasDate reports whether the expense carries a transaction date.
func (e *Expense) HasDate() bool {
	return !e.Date.IsZero()
}
