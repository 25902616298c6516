// Package vision turns receipt files into validated expense records by way
// of a vision model. Classification failures are ordinary error returns:
// the caller owns the failed-receipt side effect.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/expensomatic/internal/expense"
	"github.com/dvloznov/expensomatic/internal/logger"
)

// DefaultCurrency is assumed when the model omits the currency code.
const DefaultCurrency = "GBP"

// Classifier extracts one validated expense record per receipt file.
type Classifier struct {
	model  Model
	policy expense.StalenessPolicy
}

// NewClassifier creates a classifier using the given model and staleness
// policy.
func NewClassifier(model Model, policy expense.StalenessPolicy) *Classifier {
	return &Classifier{model: model, policy: policy}
}

// Classify reads the receipt at path, runs the vision extraction, and
// returns a validated expense record with currency normalized, category
// resolved, and the staleness policy applied. Any failure (unreadable file,
// API error, unparseable response, invalid amount) is returned as an error;
// nothing escapes this boundary as a panic.
func (c *Classifier) Classify(ctx context.Context, path string) (*expense.Expense, error) {
	payload, err := loadPayload(path)
	if err != nil {
		return nil, fmt.Errorf("classify %q: %w", filepath.Base(path), err)
	}

	raw, err := c.model.Extract(ctx, buildInstruction(), payload)
	if err != nil {
		return nil, fmt.Errorf("classify %q: %w", filepath.Base(path), err)
	}

	exp, err := c.parseResponse(raw, path)
	if err != nil {
		return nil, fmt.Errorf("classify %q: %w", filepath.Base(path), err)
	}

	log := logger.FromContext(ctx)
	event := log.Info().
		Str("receipt", filepath.Base(path)).
		Str("amount", expense.CurrencySymbol(exp.Currency)+exp.Amount.StringFixed(2)).
		Str("category", exp.Category)
	if exp.HasDate() {
		event = event.Str("date", exp.Date.Format(expense.DateLayout)).Bool("date_adjusted", exp.DateAdjusted)
	}
	event.Msg("Receipt classified")

	return exp, nil
}

// parseResponse converts the model's raw text into an Expense, tolerating a
// fenced code block around the JSON object.
func (c *Classifier) parseResponse(raw, path string) (*expense.Expense, error) {
	clean := cleanModelJSON(raw)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal model response: %w", err)
	}

	amount, err := getAmountField(obj, "amount")
	if err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount %s is negative", amount)
	}

	category, err := getStringField(obj, "category", true)
	if err != nil {
		return nil, err
	}

	currency, err := getStringField(obj, "currency", false)
	if err != nil {
		return nil, err
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))

	description, err := getStringField(obj, "description", false)
	if err != nil {
		return nil, err
	}
	if description == "" {
		base := filepath.Base(path)
		description = strings.TrimSuffix(base, filepath.Ext(base))
	}

	// A missing or malformed date is not an error; the expense simply
	// proceeds without one.
	var date time.Time
	if dateStr, _ := getStringField(obj, "date", false); dateStr != "" {
		if parsed, perr := time.Parse(expense.DateLayout, dateStr); perr == nil {
			date = parsed
		}
	}
	date, adjusted := c.policy.Clamp(date)

	name, id := expense.ResolveCategory(category)

	return &expense.Expense{
		Amount:       amount,
		Currency:     currency,
		Category:     name,
		CategoryID:   id,
		Description:  description,
		Date:         date,
		DateAdjusted: adjusted,
		ReceiptPath:  path,
	}, nil
}

// buildInstruction builds the fixed extraction instruction, enumerating the
// closed category set.
func buildInstruction() string {
	categories := strings.Join(expense.CategoryNames(), ", ")

	var b strings.Builder
	b.WriteString("Analyze this receipt (for PDFs, only the first page) and extract:\n")
	b.WriteString("1. The total amount spent (as a number only, no currency symbol)\n")
	b.WriteString("2. The 3-letter currency code (GBP, USD, EUR, etc.)\n")
	b.WriteString("3. The category of expense - choose the MOST APPROPRIATE from: " + categories + "\n")
	b.WriteString("   - If it's food or drink related but you can't clearly categorize it as Breakfast or Lunch, use \"Dinner\"\n")
	b.WriteString("4. A brief free-text description\n")
	b.WriteString("5. The date of the transaction (in YYYY-MM-DD format)\n\n")
	b.WriteString("Respond ONLY with valid JSON in this exact format:\n")
	b.WriteString(`{"amount": 12.50, "currency": "GBP", "category": "Lunch", "description": "Brief description", "date": "2024-09-30"}`)
	return b.String()
}

// loadPayload reads the receipt file and determines its MIME type from the
// extension.
func loadPayload(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("read receipt: %w", err)
	}

	var mime string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".png":
		mime = "image/png"
	case ".webp":
		mime = "image/webp"
	case ".pdf":
		mime = "application/pdf"
	default:
		return Payload{}, fmt.Errorf("unsupported receipt type %q", filepath.Ext(path))
	}

	return Payload{MIMEType: mime, Data: data}, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the strict-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)

		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Extra safety: keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

// getAmountField accepts the amount as a JSON number or a numeric string,
// which some models emit despite the instruction.
func getAmountField(m map[string]interface{}, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Decimal{}, fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("field %q is not numeric: %w", key, err)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
