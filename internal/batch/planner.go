// Package batch partitions discovery-ordered receipt files into bounded
// claim batches and computes per-batch aggregates.
package batch

import (
	"time"

	"github.com/dvloznov/expensomatic/internal/expense"
)

// Plan partitions files into contiguous, order-preserving batches of at most
// size entries each. The input ordering is load-bearing: it determines claim
// grouping, so callers must pass the deterministic discovery order.
func Plan(files []string, size int) [][]string {
	if size <= 0 || len(files) == 0 {
		return nil
	}

	batches := make([][]string, 0, (len(files)+size-1)/size)
	for start := 0; start < len(files); start += size {
		end := start + size
		if end > len(files) {
			end = len(files)
		}
		batches = append(batches, files[start:end])
	}
	return batches
}

// EarliestDate returns the minimum transaction date among the expenses, used
// as the claim's incurred date. The zero time means no expense carries a
// date and the claim proceeds without one.
func EarliestDate(expenses []*expense.Expense) time.Time {
	var earliest time.Time
	for _, e := range expenses {
		if !e.HasDate() {
			continue
		}
		if earliest.IsZero() || e.Date.Before(earliest) {
			earliest = e.Date
		}
	}
	return earliest
}
