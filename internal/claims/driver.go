package claims

import (
	"context"
	"fmt"
)

// Driver is the UI-automation collaborator: a thin set of primitives against
// a persistent authenticated session. The submitter drives its state machine
// exclusively through this interface, so it can be tested with a fake and
// backed by any browser implementation.
type Driver interface {
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	SelectOption(ctx context.Context, selector, value string) error
	Check(ctx context.Context, selector string) error
	Press(ctx context.Context, selector, key string) error
	Upload(ctx context.Context, selector, path string) error
	// Screenshot captures a diagnostic image under the given name.
	// Implementations decide whether capture is enabled; a disabled
	// capture is a silent no-op.
	Screenshot(ctx context.Context, name string) error
}

// Selectors for the claim-creation workflow. Role- and text-based lookups
// use XPath; attribute lookups use CSS.
const (
	selClaimsListButton  = `//button[normalize-space()="Expense Claims List"]`
	selNewClaimMenuItem  = `//*[@role="menuitem"][normalize-space()="New Expense Claim"]`
	selClaimNameInput    = `input[name*="expenseClaimName"]`
	selProjectSelect     = `select[id*="projectSelect"]`
	selIncurredDateInput = `input[id*="incurredDateField"]`
	selProceedToItems    = `(//*[@id="action-buttons"]//span)[3]`
	selAddExpenseButton  = `(//*[normalize-space()="Add Expense"])[2]`
	selSaveDropdown      = `.dd-btn.toolbar-button`
	selSaveButton        = `input[id*="TheForm:j_id137"]`
)

// The per-item fields repeat down the form; these selectors pick the n-th
// (1-based) occurrence.

func selItemCategory(n int) string {
	return fmt.Sprintf(`(//select[contains(@id,"expenseCategorySelect")])[%d]`, n)
}

func selItemCurrency(n int) string {
	return fmt.Sprintf(`(//select[contains(@name,"incurredAmountCurrencyField")])[%d]`, n)
}

func selItemAmount(n int) string {
	return fmt.Sprintf(`(//input[contains(@name,"incurredAmountField")])[%d]`, n)
}

func selItemDate(n int) string {
	return fmt.Sprintf(`(//input[contains(@id,"incurredDateInput")])[%d]`, n)
}

// selItemReceiptCheckbox matches the "receipt required" checkbox of the
// n-th item; the row index inside the id is zero-based.
func selItemReceiptCheckbox(n int) string {
	return fmt.Sprintf(`//input[contains(@id,"TheExpenseItems:%d:")][@type="checkbox"]`, n-1)
}

// selItemUploadLink matches the attachment-popup link of the n-th item.
func selItemUploadLink(n int) string {
	return fmt.Sprintf(`//a[contains(@onclick,"showFileUploadPopup('%d')")]`, n-1)
}

const (
	selUploadFileInput   = `input[type="file"]`
	selUploadSubmit      = `input[type="submit"][value="Upload"]`
	keyEnter             = "Enter"
	screenshotFinalItems = "final_expense_report"
)
