package expense

import "testing"

func TestResolveCategory(t *testing.T) {
	tests := []struct {
		label    string
		wantName string
		wantID   string
	}{
		{"Dinner", "Dinner", "a08Tl00000KnFX7IAN"},
		{"Transport: Taxi", "Transport: Taxi", "a08Tl00000KnFXRIA3"},
		{"Other", "Other", "a08Tl00000KnFX6IAN"},
		{"Groceries", "Other", "a08Tl00000KnFX6IAN"},
		{"", "Other", "a08Tl00000KnFX6IAN"},
		{"dinner", "Other", "a08Tl00000KnFX6IAN"}, // lookup is exact, not fuzzy
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			name, id := ResolveCategory(tt.label)
			if name != tt.wantName || id != tt.wantID {
				t.Errorf("ResolveCategory(%q) = (%q, %q), want (%q, %q)",
					tt.label, name, id, tt.wantName, tt.wantID)
			}
		})
	}
}

func TestCategoryNames_StableAndComplete(t *testing.T) {
	first := CategoryNames()
	second := CategoryNames()

	if len(first) != len(categoryIDs) {
		t.Errorf("CategoryNames() returned %d names, want %d", len(first), len(categoryIDs))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("CategoryNames() ordering not stable at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestCurrencySymbol(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"GBP", "£"},
		{"USD", "$"},
		{"EUR", "€"},
		{"CHF", "CHF"},
		{"JPY", "JPY"}, // unknown codes fall back to the code
	}

	for _, tt := range tests {
		if got := CurrencySymbol(tt.code); got != tt.want {
			t.Errorf("CurrencySymbol(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
