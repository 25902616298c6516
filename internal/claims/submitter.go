// Package claims drives the external claim-creation workflow for one batch
// of validated expenses. The workflow is a linear finite state machine:
//
//	NotStarted → ClaimOpened → HeaderSet → ItemsEntered → Saved | Failed
//
// No transition skips steps and the first failing step aborts the whole
// submission; the only skippable sub-step is the receipt upload.
package claims

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expensomatic/internal/batch"
	"github.com/dvloznov/expensomatic/internal/expense"
	"github.com/dvloznov/expensomatic/internal/logger"
)

// State is one named state of the submission workflow.
type State int

const (
	NotStarted State = iota
	ClaimOpened
	HeaderSet
	ItemsEntered
	Saved
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case ClaimOpened:
		return "ClaimOpened"
	case HeaderSet:
		return "HeaderSet"
	case ItemsEntered:
		return "ItemsEntered"
	case Saved:
		return "Saved"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// formFieldDateLayout is the day-first format the claim form expects.
const formFieldDateLayout = "02/01/2006"

// claimNameLayout names claims after the submission moment, to the second.
const claimNameLayout = "January 2 15:04:05"

// MaxBatchSize is the external system's hard cap on items per claim.
const MaxBatchSize = 15

// Submitter drives one claim submission at a time through a Driver.
type Submitter struct {
	drv   Driver
	state State
	added int

	// Now is a clock hook for tests; nil means time.Now.
	Now func() time.Time
}

// NewSubmitter creates a submitter over the given driver.
func NewSubmitter(drv Driver) *Submitter {
	return &Submitter{drv: drv}
}

// State returns the current workflow state. During the items stage it is
// ItemsEntered; ItemsAdded reports how many rows are complete so far.
func (s *Submitter) State() State {
	return s.state
}

// ItemsAdded returns the number of fully entered item rows in the current
// or last submission.
func (s *Submitter) ItemsAdded() int {
	return s.added
}

// Submit creates one claim containing the batch's expenses and returns the
// generated claim name. The name derives from the submission moment and
// stays stable afterward; callers use it to name the receipt filing
// destination. On any unrecoverable step failure the batch is not submitted
// and the returned error describes the failing step; there is no partial
// success signal.
func (s *Submitter) Submit(ctx context.Context, items []*expense.Expense, projectID string) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("submit: empty batch")
	}
	if len(items) > MaxBatchSize {
		return "", fmt.Errorf("submit: batch has %d items, limit is %d", len(items), MaxBatchSize)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	claimName := now().Format(claimNameLayout)
	log := logger.FromContext(ctx).With().Str("claim", claimName).Logger()

	s.state = NotStarted
	s.added = 0

	if err := s.openClaim(ctx); err != nil {
		s.state = Failed
		return "", fmt.Errorf("submit: open new claim: %w", err)
	}
	s.state = ClaimOpened

	if err := s.setHeader(ctx, claimName, projectID, batch.EarliestDate(items)); err != nil {
		s.state = Failed
		return "", fmt.Errorf("submit: set claim header: %w", err)
	}
	s.state = HeaderSet

	if err := s.drv.Click(ctx, selProceedToItems); err != nil {
		s.state = Failed
		return "", fmt.Errorf("submit: enter items stage: %w", err)
	}
	s.state = ItemsEntered

	for i, item := range items {
		log.Info().
			Int("item", i+1).
			Int("of", len(items)).
			Str("description", item.Description).
			Msg("Adding expense item")

		if err := s.addItem(ctx, i+1, item, log); err != nil {
			s.state = Failed
			return "", fmt.Errorf("submit: item %d/%d: %w", i+1, len(items), err)
		}
		s.added = i + 1
	}

	if err := s.drv.Screenshot(ctx, screenshotFinalItems); err != nil {
		log.Warn().Err(err).Msg("Screenshot failed")
	}

	if err := s.save(ctx); err != nil {
		s.state = Failed
		return "", fmt.Errorf("submit: save claim: %w", err)
	}
	s.state = Saved

	log.Info().Int("items", len(items)).Msg("Claim saved")
	return claimName, nil
}

// openClaim navigates from the claims list to a fresh claim form.
func (s *Submitter) openClaim(ctx context.Context) error {
	if err := s.drv.Click(ctx, selClaimsListButton); err != nil {
		return err
	}
	return s.drv.Click(ctx, selNewClaimMenuItem)
}

// setHeader fills the claim name, destination project, and incurred date.
// The incurred date is the earliest transaction date in the batch; a zero
// value leaves the field unset.
func (s *Submitter) setHeader(ctx context.Context, claimName, projectID string, incurred time.Time) error {
	if err := s.drv.Fill(ctx, selClaimNameInput, claimName); err != nil {
		return err
	}
	if err := s.drv.SelectOption(ctx, selProjectSelect, projectID); err != nil {
		return err
	}
	if !incurred.IsZero() {
		if err := s.drv.Fill(ctx, selIncurredDateInput, incurred.Format(formFieldDateLayout)); err != nil {
			return err
		}
		if err := s.drv.Press(ctx, selIncurredDateInput, keyEnter); err != nil {
			return err
		}
	}
	return nil
}

// addItem enters one expense row. The five field sub-steps are mandatory;
// the receipt upload is attempted when the source file still exists and its
// failure is logged, never fatal.
func (s *Submitter) addItem(ctx context.Context, n int, item *expense.Expense, log zerolog.Logger) error {
	if err := s.drv.Click(ctx, selAddExpenseButton); err != nil {
		return fmt.Errorf("add item row: %w", err)
	}

	if err := s.drv.SelectOption(ctx, selItemCategory(n), item.CategoryID); err != nil {
		return fmt.Errorf("select category: %w", err)
	}
	if err := s.drv.SelectOption(ctx, selItemCurrency(n), item.Currency); err != nil {
		return fmt.Errorf("select currency: %w", err)
	}
	if err := s.drv.Fill(ctx, selItemAmount(n), item.Amount.String()); err != nil {
		return fmt.Errorf("fill amount: %w", err)
	}
	if item.HasDate() {
		if err := s.drv.Fill(ctx, selItemDate(n), item.Date.Format(formFieldDateLayout)); err != nil {
			return fmt.Errorf("fill date: %w", err)
		}
		if err := s.drv.Press(ctx, selItemDate(n), keyEnter); err != nil {
			return fmt.Errorf("confirm date: %w", err)
		}
	}
	if err := s.drv.Check(ctx, selItemReceiptCheckbox(n)); err != nil {
		return fmt.Errorf("mark receipt required: %w", err)
	}

	if item.ReceiptPath != "" {
		if err := s.uploadReceipt(ctx, n, item.ReceiptPath); err != nil {
			log.Warn().Err(err).Str("receipt", item.ReceiptPath).Msg("Receipt upload failed; continuing")
		}
	}

	return nil
}

// uploadReceipt attaches the receipt file to the n-th item through the
// upload popup. The claim survives without the attachment.
func (s *Submitter) uploadReceipt(ctx context.Context, n int, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("receipt file: %w", err)
	}
	if err := s.drv.Click(ctx, selItemUploadLink(n)); err != nil {
		return fmt.Errorf("open upload popup: %w", err)
	}
	if err := s.drv.Upload(ctx, selUploadFileInput, path); err != nil {
		return fmt.Errorf("set file: %w", err)
	}
	if err := s.drv.Click(ctx, selUploadSubmit); err != nil {
		return fmt.Errorf("confirm upload: %w", err)
	}
	return nil
}

// save commits the claim through the toolbar dropdown.
func (s *Submitter) save(ctx context.Context) error {
	if err := s.drv.Click(ctx, selSaveDropdown); err != nil {
		return err
	}
	return s.drv.Click(ctx, selSaveButton)
}
