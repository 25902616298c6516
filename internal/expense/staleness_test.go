package expense

import (
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2024, 10, 15, 13, 45, 0, 0, time.UTC)
}

func TestStalenessPolicy_Disabled(t *testing.T) {
	policy := StalenessPolicy{Enabled: false, MaxAgeDays: 30, Now: fixedNow}

	dates := []time.Time{
		{}, // absent
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		fixedNow(),
	}
	for _, d := range dates {
		got, adjusted := policy.Clamp(d)
		if adjusted {
			t.Errorf("Clamp(%v) adjusted = true, want false", d)
		}
		if !got.Equal(d) {
			t.Errorf("Clamp(%v) = %v, want input unchanged", d, got)
		}
	}
}

func TestStalenessPolicy_ZeroDatePassesThrough(t *testing.T) {
	policy := StalenessPolicy{Enabled: true, MaxAgeDays: 30, Now: fixedNow}

	got, adjusted := policy.Clamp(time.Time{})
	if adjusted || !got.IsZero() {
		t.Errorf("Clamp(zero) = (%v, %v), want (zero, false)", got, adjusted)
	}
}

func TestStalenessPolicy_Boundary(t *testing.T) {
	policy := StalenessPolicy{Enabled: true, MaxAgeDays: 30, Now: fixedNow}
	today := time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		date         time.Time
		wantDate     time.Time
		wantAdjusted bool
	}{
		{
			name:         "today",
			date:         today,
			wantDate:     today,
			wantAdjusted: false,
		},
		{
			name:         "exactly max age",
			date:         today.AddDate(0, 0, -30),
			wantDate:     today.AddDate(0, 0, -30),
			wantAdjusted: false,
		},
		{
			name:         "one day past max age",
			date:         today.AddDate(0, 0, -31),
			wantDate:     today.AddDate(0, 0, -30),
			wantAdjusted: true,
		},
		{
			name:         "far past",
			date:         today.AddDate(0, 0, -200),
			wantDate:     today.AddDate(0, 0, -30),
			wantAdjusted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, adjusted := policy.Clamp(tt.date)
			if adjusted != tt.wantAdjusted {
				t.Errorf("adjusted = %v, want %v", adjusted, tt.wantAdjusted)
			}
			if !got.Equal(tt.wantDate) {
				t.Errorf("date = %v, want %v", got, tt.wantDate)
			}
		})
	}
}

func TestStalenessPolicy_AdjustedAgeIsExactlyMaxAge(t *testing.T) {
	policy := StalenessPolicy{Enabled: true, MaxAgeDays: 14, Now: fixedNow}
	today := time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC)

	for _, age := range []int{15, 30, 365} {
		got, adjusted := policy.Clamp(today.AddDate(0, 0, -age))
		if !adjusted {
			t.Errorf("age %d: adjusted = false, want true", age)
			continue
		}
		gotAge := int(today.Sub(got).Hours() / 24)
		if gotAge != 14 {
			t.Errorf("age %d: resulting age = %d, want 14", age, gotAge)
		}
	}
}
