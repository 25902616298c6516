package expense

import "sort"

// FallbackCategory is the label unresolvable categories collapse to.
const FallbackCategory = "Other"

// categoryIDs maps the closed set of expense category labels to the
// external system's category identifiers. The table is fixed; unknown
// labels resolve to the Other identifier.
var categoryIDs = map[string]string{
	"Breakfast":          "a08Tl00000KnFXLIA3",
	"Lunch":              "a08Tl00000KnFXLIA3",
	"Dinner":             "a08Tl00000KnFX7IAN",
	"Parking":            "a08Tl00000KnFXTIA3",
	"Transport: Flights": "a08Tl00000KnFXCIA3",
	"Transport: Taxi":    "a08Tl00000KnFXRIA3",
	"Transport: Train":   "a08Tl00000KnFXGIA3",
	"Office Supplies":    "a08Tl00000KnFXAIA3",
	"Client Meal":        "a08Tl00000KnFXJIA3",
	"Software":           "a08Tl00000KnFXAIA3",
	FallbackCategory:     "a08Tl00000KnFX6IAN",
}

// currencySymbols maps currency codes to display symbols for log output.
var currencySymbols = map[string]string{
	"GBP": "£",
	"USD": "$",
	"EUR": "€",
	"INR": "₹",
	"CHF": "CHF",
}

// ResolveCategory maps a category label to (canonical label, external
// identifier). Unknown labels resolve to the Other category; resolution
// never fails.
func ResolveCategory(label string) (string, string) {
	if id, ok := categoryIDs[label]; ok {
		return label, id
	}
	return FallbackCategory, categoryIDs[FallbackCategory]
}

// CategoryNames returns the closed set of category labels in a stable order,
// for building the extraction prompt.
func CategoryNames() []string {
	names := make([]string, 0, len(categoryIDs))
	for name := range categoryIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CurrencySymbol returns the display symbol for a currency code, or the
// code itself when no symbol is known.
func CurrencySymbol(code string) string {
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	return code
}
