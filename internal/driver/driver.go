// Package driver owns one browser session and the interaction primitives
// the page objects are built on.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"brighthorizons-e2e/internal/application/port/output"
	"brighthorizons-e2e/internal/domain/entity"
	"brighthorizons-e2e/internal/infrastructure/snapshot"
)

var (
	ErrElementNotFound = errors.New("element not found")
	ErrSessionClosed   = errors.New("browser session is closed")
	ErrInvalidSelector = errors.New("invalid selector")
	errNotEditable     = errors.New("element is not an input or textarea")
)

const (
	WindowWidth  = 1920
	WindowHeight = 1080

	maxLoggedControls = 50
)

// LaunchArgs are passed to every engine so the whole desktop layout renders.
func LaunchArgs() []string {
	return []string{
		fmt.Sprintf("--window-size=%d,%d", WindowWidth, WindowHeight),
		"--start-maximized",
	}
}

// Timings holds every fixed delay and per-operation timeout.
type Timings struct {
	ClickTimeout       time.Duration
	FillTimeout        time.Duration
	ScriptSettle       time.Duration
	StepPause          time.Duration
	SearchSettle       time.Duration
	LoadGrace          time.Duration
	LoadTimeout        time.Duration
	Wait               time.Duration
	TypeDelay          time.Duration
	VisibleTimeout     time.Duration
	WaitVisibleTimeout time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		ClickTimeout:       5 * time.Second,
		FillTimeout:        5 * time.Second,
		ScriptSettle:       1 * time.Second,
		StepPause:          500 * time.Millisecond,
		SearchSettle:       2 * time.Second,
		LoadGrace:          1 * time.Second,
		LoadTimeout:        10 * time.Second,
		Wait:               5 * time.Second,
		TypeDelay:          100 * time.Millisecond,
		VisibleTimeout:     5 * time.Second,
		WaitVisibleTimeout: 10 * time.Second,
	}
}

type Options struct {
	Kind     entity.BrowserKind
	Headless bool
	BinPath  string
	BaseURL  string
	Timings  Timings
}

// Driver is one browser session: a browser and its single active page.
type Driver struct {
	mu      sync.Mutex
	browser output.Browser
	page    output.Page

	shots   output.ScreenshotStore
	log     output.LoggerPort
	baseURL string
	timings Timings
}

// Open launches a browser through engine and opens one page sized to the
// full desktop viewport.
func Open(ctx context.Context, engine output.Engine, shots output.ScreenshotStore, log output.LoggerPort, opts Options) (*Driver, error) {
	launch := entity.LaunchOptions{
		Kind:     opts.Kind,
		Headless: opts.Headless,
		Args:     LaunchArgs(),
		Viewport: entity.Viewport{Width: WindowWidth, Height: WindowHeight},
		BinPath:  opts.BinPath,
	}

	log.Info("Launching browser", "engine", engine.Name(), "browser", opts.Kind, "headless", opts.Headless)

	browser, err := engine.Launch(ctx, launch)
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", opts.Kind, err)
	}

	page, err := browser.NewPage(ctx, launch.Viewport)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	d := New(page, shots, log, opts)
	d.browser = browser
	return d, nil
}

// New wraps a page the caller already owns. Close on such a driver only
// drops the references.
func New(page output.Page, shots output.ScreenshotStore, log output.LoggerPort, opts Options) *Driver {
	return &Driver{
		page:    page,
		shots:   shots,
		log:     log,
		baseURL: opts.BaseURL,
		timings: opts.Timings,
	}
}

func (d *Driver) Browser() output.Browser {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.browser
}

func (d *Driver) Page() output.Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page
}

// UsePage points the driver at another page of the same session.
func (d *Driver) UsePage(page output.Page) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.page = page
}

func (d *Driver) Timings() Timings {
	return d.timings
}

func (d *Driver) Logger() output.LoggerPort {
	return d.log
}

func (d *Driver) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page != nil
}

// Close closes the browser if one is open and clears the session. Calling
// it again is a no-op.
func (d *Driver) Close() error {
	d.mu.Lock()
	browser := d.browser
	d.browser = nil
	d.page = nil
	d.mu.Unlock()

	if browser == nil {
		return nil
	}
	if err := browser.Close(); err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	d.log.Info("Browser closed")
	return nil
}

func (d *Driver) activePage() (output.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.page == nil {
		return nil, ErrSessionClosed
	}
	return d.page, nil
}

func (d *Driver) locate(selector string) (output.Locator, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, ErrInvalidSelector
	}
	page, err := d.activePage()
	if err != nil {
		return nil, err
	}
	return page.Locator(selector), nil
}

// Element returns the raw locator for selector.
func (d *Driver) Element(selector string) (output.Locator, error) {
	return d.locate(selector)
}

// NavigateTo opens url, or the base URL when url is empty.
func (d *Driver) NavigateTo(ctx context.Context, url string) error {
	page, err := d.activePage()
	if err != nil {
		return err
	}
	if url == "" {
		url = d.baseURL
	}
	d.log.Debug("Navigating", "url", url)
	if err := page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Pause waits for d unless ctx ends first.
func (d *Driver) Pause(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *Driver) requirePresent(ctx context.Context, loc output.Locator) error {
	n, err := loc.Count(ctx)
	if err != nil {
		return fmt.Errorf("count %s: %w", loc.Selector(), err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, loc.Selector())
	}
	return nil
}

// Click clicks the first match, falling back to a script click.
func (d *Driver) Click(ctx context.Context, selector string) error {
	_, err := d.ClickOutcome(ctx, selector)
	return err
}

func (d *Driver) ClickOutcome(ctx context.Context, selector string) (Outcome, error) {
	loc, err := d.locate(selector)
	if err != nil {
		return Outcome{}, err
	}
	return d.clickLadder(loc).Run(ctx, d.log)
}

func (d *Driver) clickLadder(loc output.Locator) Ladder {
	return Ladder{
		Action:   "click",
		Selector: loc.Selector(),
		Strategies: []Strategy{
			{Name: StrategyStandard, Run: func(ctx context.Context) error {
				return loc.Click(ctx, d.timings.ClickTimeout)
			}},
			{Name: StrategyScript, Run: func(ctx context.Context) error {
				if err := d.requirePresent(ctx, loc); err != nil {
					return err
				}
				if _, err := loc.Evaluate(ctx, scriptClick, nil); err != nil {
					return fmt.Errorf("script click: %w", err)
				}
				return d.Pause(ctx, d.timings.ScriptSettle)
			}},
		},
	}
}

// Type replaces the value of the first match with text.
func (d *Driver) Type(ctx context.Context, selector, text string) error {
	_, err := d.TypeOutcome(ctx, selector, text, d.timings.TypeDelay)
	return err
}

func (d *Driver) TypeWithDelay(ctx context.Context, selector, text string, delay time.Duration) error {
	_, err := d.TypeOutcome(ctx, selector, text, delay)
	return err
}

func (d *Driver) TypeOutcome(ctx context.Context, selector, text string, delay time.Duration) (Outcome, error) {
	loc, err := d.locate(selector)
	if err != nil {
		return Outcome{}, err
	}
	page, err := d.activePage()
	if err != nil {
		return Outcome{}, err
	}
	return d.typeLadder(page, loc, text, delay).Run(ctx, d.log)
}

func (d *Driver) typeLadder(page output.Page, loc output.Locator, text string, delay time.Duration) Ladder {
	return Ladder{
		Action:   "type",
		Selector: loc.Selector(),
		Strategies: []Strategy{
			{Name: StrategyStandard, Run: func(ctx context.Context) error {
				if err := loc.Clear(ctx, d.timings.FillTimeout); err != nil {
					return fmt.Errorf("clear: %w", err)
				}
				if err := loc.Fill(ctx, text, d.timings.FillTimeout); err != nil {
					return fmt.Errorf("fill: %w", err)
				}
				return nil
			}},
			{Name: StrategyScript, Run: func(ctx context.Context) error {
				if err := d.requirePresent(ctx, loc); err != nil {
					return err
				}
				res, err := loc.Evaluate(ctx, scriptSetValue, text)
				if err != nil {
					return fmt.Errorf("script fill: %w", err)
				}
				if ok, _ := res.(bool); !ok {
					return errNotEditable
				}
				return d.Pause(ctx, d.timings.ScriptSettle)
			}},
			{Name: StrategyKeyboard, Run: func(ctx context.Context) error {
				if err := d.Click(ctx, loc.Selector()); err != nil {
					return err
				}
				if err := page.Press(ctx, "Control+A"); err != nil {
					return fmt.Errorf("select all: %w", err)
				}
				if err := page.Press(ctx, "Backspace"); err != nil {
					return fmt.Errorf("delete: %w", err)
				}
				if err := page.Type(ctx, text, delay); err != nil {
					return fmt.Errorf("keyboard type: %w", err)
				}
				return nil
			}},
		},
	}
}

// GetText returns the text content of the first match. A match with no
// text yields ""; no match at all is an error.
func (d *Driver) GetText(ctx context.Context, selector string) (string, error) {
	loc, err := d.locate(selector)
	if err != nil {
		return "", err
	}
	text, err := loc.TextContent(ctx)
	if err != nil {
		return "", fmt.Errorf("text of %s: %w", selector, err)
	}
	return text, nil
}

// AllTexts returns the text content of every match in DOM order.
func (d *Driver) AllTexts(ctx context.Context, selector string) ([]string, error) {
	loc, err := d.locate(selector)
	if err != nil {
		return nil, err
	}
	texts, err := loc.AllTextContents(ctx)
	if err != nil {
		return nil, fmt.Errorf("texts of %s: %w", selector, err)
	}
	return texts, nil
}

func (d *Driver) Count(ctx context.Context, selector string) (int, error) {
	loc, err := d.locate(selector)
	if err != nil {
		return 0, err
	}
	return loc.Count(ctx)
}

// IsVisible never fails: any engine error reads as not visible.
func (d *Driver) IsVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	loc, err := d.locate(selector)
	if err != nil {
		return false
	}
	if timeout <= 0 {
		timeout = d.timings.VisibleTimeout
	}
	visible, err := loc.IsVisible(ctx, timeout)
	if err != nil {
		d.log.Debug("Visibility check failed", "selector", selector, "error", err)
		return false
	}
	return visible
}

func (d *Driver) WaitForVisible(ctx context.Context, selector string, timeout time.Duration) error {
	loc, err := d.locate(selector)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = d.timings.WaitVisibleTimeout
	}
	if err := loc.WaitVisible(ctx, timeout); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

// VerifyTextMinLength reports whether the first match has at least
// minLength characters. A missing element is false.
func (d *Driver) VerifyTextMinLength(ctx context.Context, selector string, minLength int) bool {
	text, err := d.GetText(ctx, selector)
	if err != nil {
		d.log.Info("Text length check failed", "selector", selector, "error", err)
		return false
	}
	n := utf8.RuneCountInString(text)
	d.log.Info("Text length", "selector", selector, "length", n, "min", minLength)
	return n >= minLength
}

// VerifyExactText compares the trimmed text of the first match with the
// trimmed expectation. A missing element is false.
func (d *Driver) VerifyExactText(ctx context.Context, selector, expected string) bool {
	actual, err := d.GetText(ctx, selector)
	if err != nil {
		d.log.Info("Exact text check failed", "selector", selector, "error", err)
		return false
	}
	return d.CompareText(actual, expected)
}

// CompareText logs both sides and compares them trimmed.
func (d *Driver) CompareText(actual, expected string) bool {
	actual = strings.TrimSpace(actual)
	expected = strings.TrimSpace(expected)
	d.log.Info("Comparing text", "actual", actual, "expected", expected)
	return actual == expected
}

func (d *Driver) TakeScreenshot(ctx context.Context, name string) error {
	return d.screenshot(ctx, name, false)
}

func (d *Driver) TakeFullPageScreenshot(ctx context.Context, name string) error {
	return d.screenshot(ctx, name, true)
}

func (d *Driver) screenshot(ctx context.Context, name string, fullPage bool) error {
	page, err := d.activePage()
	if err != nil {
		return err
	}
	data, err := page.Screenshot(ctx, fullPage)
	if err != nil {
		return fmt.Errorf("capture %s: %w", name, err)
	}
	shot, err := d.shots.Save(name, data, fullPage)
	if err != nil {
		return err
	}
	d.log.Info("Screenshot taken", "file", shot.Path, "full_page", fullPage)
	return nil
}

// SnapshotHTML writes the cleaned DOM next to the screenshots.
func (d *Driver) SnapshotHTML(ctx context.Context, name string) (string, error) {
	page, err := d.activePage()
	if err != nil {
		return "", err
	}
	raw, err := page.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	cleaned, err := snapshot.Clean(raw, snapshot.DefaultOptions())
	if err != nil {
		return "", err
	}
	path, err := d.shots.SaveHTML(name, cleaned)
	if err != nil {
		return "", err
	}

	controls, err := snapshot.Controls(raw, maxLoggedControls)
	if err != nil {
		d.log.Warn("Could not list page controls", "error", err)
	}
	d.log.Info("DOM snapshot written", "file", path, "controls", len(controls))
	for _, c := range controls {
		d.log.Debug("Page control", "kind", c.Kind, "selector", c.Selector, "text", c.Text, "label", c.Label)
	}
	return path, nil
}

// Evaluate runs a page-level function expression.
func (d *Driver) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	page, err := d.activePage()
	if err != nil {
		return nil, err
	}
	return page.Evaluate(ctx, script, arg)
}

// ScrollToBottom scrolls to 80% of the body height, where the footer
// starts rendering, then waits WAIT_TIME.
func (d *Driver) ScrollToBottom(ctx context.Context) error {
	if _, err := d.Evaluate(ctx, scriptScrollToFraction, 0.8); err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return d.Pause(ctx, d.timings.Wait)
}

func (d *Driver) ScrollToTop(ctx context.Context) error {
	if _, err := d.Evaluate(ctx, scriptScrollToFraction, 0); err != nil {
		return fmt.Errorf("scroll to top: %w", err)
	}
	return nil
}

// WaitForLoad waits for state. Timeouts are logged and swallowed; only
// cancellation of ctx is returned.
func (d *Driver) WaitForLoad(ctx context.Context, state entity.LoadState, timeout time.Duration) error {
	page, err := d.activePage()
	if err != nil {
		return err
	}
	if err := page.WaitLoad(ctx, state, timeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.log.Warn("Load state not reached, continuing", "state", state, "error", err)
	}
	return nil
}

// WaitForPageLoad waits for DOMContentLoaded and a short grace period.
func (d *Driver) WaitForPageLoad(ctx context.Context) error {
	if err := d.WaitForLoad(ctx, entity.LoadStateDOMContentLoaded, d.timings.LoadTimeout); err != nil {
		return err
	}
	return d.Pause(ctx, d.timings.LoadGrace)
}

// Search clicks the trigger, types term, waits WAIT_TIME, submits and
// waits for the results page to settle.
func (d *Driver) Search(ctx context.Context, c entity.SearchControls, term string) error {
	if err := d.Click(ctx, c.Trigger); err != nil {
		return err
	}
	if err := d.Type(ctx, c.Input, term); err != nil {
		return err
	}
	if err := d.Pause(ctx, d.timings.Wait); err != nil {
		return err
	}
	if err := d.Click(ctx, c.Submit); err != nil {
		return err
	}
	if err := d.WaitForLoad(ctx, entity.LoadStateDOMContentLoaded, d.timings.LoadTimeout); err != nil {
		return err
	}
	return d.Pause(ctx, d.timings.SearchSettle)
}

// PerformSearch is the paced variant used by page objects.
func (d *Driver) PerformSearch(ctx context.Context, c entity.SearchControls, term string) error {
	if err := d.Click(ctx, c.Trigger); err != nil {
		return err
	}
	if err := d.Pause(ctx, d.timings.StepPause); err != nil {
		return err
	}
	if err := d.Type(ctx, c.Input, term); err != nil {
		return err
	}
	if err := d.Pause(ctx, d.timings.StepPause); err != nil {
		return err
	}
	if err := d.Click(ctx, c.Submit); err != nil {
		return err
	}
	if err := d.WaitForPageLoad(ctx); err != nil {
		return err
	}
	return d.Pause(ctx, d.timings.SearchSettle)
}
