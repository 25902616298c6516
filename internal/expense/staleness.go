package expense

import "time"

// StalenessPolicy clamps transaction dates older than a configured window.
// Downstream claim systems reject stale transactions; clamping keeps the
// claim inside the accepted window instead of losing it.
type StalenessPolicy struct {
	Enabled    bool
	MaxAgeDays int

	// Now is a clock hook for tests; nil means time.Now.
	Now func() time.Time
}

// Clamp returns the effective transaction date and whether it was adjusted.
// Disabled policies and absent (zero) dates pass through unchanged. A date
// whose age in whole days exceeds MaxAgeDays is replaced with
// today - MaxAgeDays.
func (p StalenessPolicy) Clamp(d time.Time) (time.Time, bool) {
	if !p.Enabled || d.IsZero() {
		return d, false
	}

	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	today := truncateToDay(now)
	age := int(today.Sub(truncateToDay(d)).Hours() / 24)
	if age <= p.MaxAgeDays {
		return d, false
	}
	return today.AddDate(0, 0, -p.MaxAgeDays), true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
