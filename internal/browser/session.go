// Package browser implements the claims.Driver primitives with chromedp
// against a persistent browser profile, so the SSO session survives runs.
// The session is a single-owner resource: opened once at run start, closed
// once on every exit path.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/dvloznov/expensomatic/internal/claims"
	"github.com/dvloznov/expensomatic/internal/logger"
)

var _ claims.Driver = (*Session)(nil)

// sessionChrome matches the application chrome that is only present for an
// authenticated session.
const sessionChrome = `.slds-context-bar, .oneHeader`

const (
	stepTimeout = 30 * time.Second
	// loginWait is how long to wait for the operator to finish SSO in the
	// opened browser window.
	loginWait = 60 * time.Second
	// settle lets the legacy form re-render after interactions.
	settle = 500 * time.Millisecond
)

// Options configures the browser session.
type Options struct {
	UserDataDir     string
	Headless        bool
	ScreenshotDir   string
	TakeScreenshots bool
}

// Session owns the browser for the duration of one run and implements
// claims.Driver.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
	opts    Options
}

// NewSession launches the browser with the persistent profile directory and
// returns the session handle. Close must be called on all exit paths.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create user data dir: %w", err)
		}
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.UserDataDir(opts.UserDataDir),
		chromedp.WindowSize(1280, 800),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		opts:    opts,
	}

	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

// Close releases the browser. Safe to call more than once.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

// CheckLogin navigates to the login URL and verifies the SSO session. When
// the session chrome is absent it waits for the operator to complete SSO in
// the open window.
func (s *Session) CheckLogin(ctx context.Context, url string) error {
	log := logger.FromContext(ctx)

	if err := s.Navigate(ctx, url); err != nil {
		return fmt.Errorf("check login: %w", err)
	}

	quick, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	err := chromedp.Run(quick, chromedp.WaitVisible(sessionChrome, chromedp.ByQuery))
	cancel()
	if err == nil {
		log.Info().Msg("Logged in via SSO")
		return nil
	}

	log.Warn().Msg("Please complete SSO login in the browser window")
	wait, cancel := context.WithTimeout(s.ctx, loginWait)
	defer cancel()
	if err := chromedp.Run(wait, chromedp.WaitVisible(sessionChrome, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("check login: session chrome never appeared: %w", err)
	}
	log.Info().Msg("Logged in")
	return nil
}

func (s *Session) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, stepTimeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads the given URL.
func (s *Session) Navigate(_ context.Context, url string) error {
	if err := s.run(chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %q: %w", url, err)
	}
	return nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(_ context.Context, selector string) error {
	if err := s.run(
		chromedp.Click(selector, chromedp.BySearch),
		chromedp.Sleep(settle),
	); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// Fill clears the matched input and types the value.
func (s *Session) Fill(_ context.Context, selector, value string) error {
	if err := s.run(
		chromedp.Clear(selector, chromedp.BySearch),
		chromedp.SendKeys(selector, value, chromedp.BySearch),
	); err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	return nil
}

// SelectOption chooses an option of a select element by typed value.
func (s *Session) SelectOption(_ context.Context, selector, value string) error {
	if err := s.run(
		chromedp.SendKeys(selector, value, chromedp.BySearch),
		chromedp.Sleep(settle),
	); err != nil {
		return fmt.Errorf("select %q on %q: %w", value, selector, err)
	}
	return nil
}

// Check ticks a checkbox if it is not already checked.
func (s *Session) Check(_ context.Context, selector string) error {
	var value string
	var present bool
	if err := s.run(chromedp.AttributeValue(selector, "checked", &value, &present, chromedp.BySearch)); err != nil {
		return fmt.Errorf("check %q: %w", selector, err)
	}
	if present {
		return nil
	}
	if err := s.run(
		chromedp.Click(selector, chromedp.BySearch),
		chromedp.Sleep(settle),
	); err != nil {
		return fmt.Errorf("check %q: %w", selector, err)
	}
	return nil
}

// Press sends a named key to the matched element; only Enter is used.
func (s *Session) Press(_ context.Context, selector, key string) error {
	code := key
	if key == "Enter" {
		code = "\r"
	}
	if err := s.run(chromedp.SendKeys(selector, code, chromedp.BySearch)); err != nil {
		return fmt.Errorf("press %q on %q: %w", key, selector, err)
	}
	return nil
}

// Upload sets the file on a file input.
func (s *Session) Upload(_ context.Context, selector, path string) error {
	if err := s.run(
		chromedp.SetUploadFiles(selector, []string{path}, chromedp.BySearch),
		chromedp.Sleep(settle),
	); err != nil {
		return fmt.Errorf("upload %q to %q: %w", path, selector, err)
	}
	return nil
}

// Screenshot captures a timestamped full-page screenshot when capture is
// enabled.
func (s *Session) Screenshot(_ context.Context, name string) error {
	if !s.opts.TakeScreenshots {
		return nil
	}

	var buf []byte
	if err := s.run(chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("screenshot %q: %w", name, err)
	}

	filename := fmt.Sprintf("%s_%s.png", time.Now().Format("20060102_150405"), name)
	dest := filepath.Join(s.opts.ScreenshotDir, filename)
	if err := os.WriteFile(dest, buf, 0o644); err != nil {
		return fmt.Errorf("write screenshot %q: %w", dest, err)
	}
	return nil
}
