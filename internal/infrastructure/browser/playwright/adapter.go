// Package playwright drives Firefox, WebKit and the Chromium family through
// playwright-go. Playwright calls take no context, so every blocking call
// derives its millisecond timeout from the caller's deadline.
package playwright

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"brighthorizons-e2e/internal/application/port/output"
	"brighthorizons-e2e/internal/domain/entity"

	"github.com/playwright-community/playwright-go"
)

var (
	_ output.Engine  = (*Engine)(nil)
	_ output.Browser = (*Browser)(nil)
	_ output.Page    = (*Page)(nil)
	_ output.Locator = (*Locator)(nil)
)

var ErrStart = errors.New("could not start playwright")

type Config struct {
	// Install downloads the driver and browsers before the first launch.
	Install bool
	SlowMo  time.Duration
}

func DefaultConfig() Config {
	return Config{Install: os.Getenv("PLAYWRIGHT_PREINSTALLED") != "1"}
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Name() string {
	return "playwright"
}

func (e *Engine) Launch(ctx context.Context, opts entity.LaunchOptions) (output.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if e.cfg.Install {
		err := playwright.Install(&playwright.RunOptions{Browsers: []string{installName(opts.Kind)}})
		if err != nil {
			return nil, fmt.Errorf("%w: install: %v", ErrStart, err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStart, err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	}
	if e.cfg.SlowMo > 0 {
		launch.SlowMo = playwright.Float(float64(e.cfg.SlowMo.Milliseconds()))
	}
	if opts.BinPath != "" {
		launch.ExecutablePath = playwright.String(opts.BinPath)
	}

	var bt playwright.BrowserType
	switch opts.Kind {
	case entity.BrowserFirefox:
		bt = pw.Firefox
		// Firefox rejects chromium switches.
		launch.Args = nil
	case entity.BrowserWebKit:
		bt = pw.WebKit
		launch.Args = nil
	case entity.BrowserEdge:
		bt = pw.Chromium
		if opts.BinPath == "" {
			launch.Channel = playwright.String("msedge")
		}
	default:
		bt = pw.Chromium
	}

	b, err := bt.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch %s: %w", opts.Kind, err)
	}

	return &Browser{pw: pw, browser: b}, nil
}

func installName(kind entity.BrowserKind) string {
	switch kind {
	case entity.BrowserFirefox:
		return "firefox"
	case entity.BrowserWebKit:
		return "webkit"
	case entity.BrowserEdge:
		return "msedge"
	default:
		return "chromium"
	}
}

type Browser struct {
	mu       sync.Mutex
	pw       *playwright.Playwright
	browser  playwright.Browser
	contexts []playwright.BrowserContext
	closed   bool
}

func (b *Browser) NewPage(ctx context.Context, viewport entity.Viewport) (output.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := playwright.BrowserNewContextOptions{}
	if viewport.Width > 0 && viewport.Height > 0 {
		size := &playwright.Size{Width: viewport.Width, Height: viewport.Height}
		opts.Viewport = size
		opts.Screen = size
	}
	bc, err := b.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	page, err := bc.NewPage()
	if err != nil {
		_ = bc.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	b.mu.Lock()
	b.contexts = append(b.contexts, bc)
	b.mu.Unlock()
	return &Page{page: page}, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, bc := range b.contexts {
		if err := bc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// timeoutMs bounds timeout by the context deadline. Nil means use
// playwright's default.
func timeoutMs(ctx context.Context, timeout time.Duration) *float64 {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); timeout <= 0 || left < timeout {
			timeout = left
		}
		if timeout <= 0 {
			timeout = time.Millisecond
		}
	}
	if timeout <= 0 {
		return nil
	}
	return playwright.Float(float64(timeout.Milliseconds()))
}

// normalizeSelector marks bare XPath expressions, which playwright only
// auto-detects when they start with "//".
func normalizeSelector(selector string) string {
	if strings.HasPrefix(selector, "(") || (strings.HasPrefix(selector, "/") && !strings.HasPrefix(selector, "//")) {
		return "xpath=" + selector
	}
	return selector
}

type Page struct {
	page playwright.Page
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   timeoutMs(ctx, 0),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *Page) Locator(selector string) output.Locator {
	return &Locator{
		loc:      p.page.Locator(normalizeSelector(selector)),
		selector: selector,
	}
}

func (p *Page) WaitLoad(ctx context.Context, state entity.LoadState, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ls := playwright.LoadStateDomcontentloaded
	if state == entity.LoadStateLoad {
		ls = playwright.LoadStateLoad
	}
	err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   ls,
		Timeout: timeoutMs(ctx, timeout),
	})
	if err != nil {
		return fmt.Errorf("wait for %s: %w", state, err)
	}
	return nil
}

func (p *Page) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.page.Evaluate(script, arg)
}

func (p *Page) Press(ctx context.Context, chord string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Keyboard().Press(chord)
}

func (p *Page) Type(ctx context.Context, text string, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := playwright.KeyboardTypeOptions{}
	if delay > 0 {
		opts.Delay = playwright.Float(float64(delay.Milliseconds()))
	}
	return p.page.Keyboard().Type(text, opts)
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
		Timeout:  timeoutMs(ctx, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

func (p *Page) URL() string {
	return p.page.URL()
}

type Locator struct {
	loc      playwright.Locator
	selector string
}

func (l *Locator) Selector() string {
	return l.selector
}

func (l *Locator) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.loc.Count()
}

func (l *Locator) Click(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.loc.First().Click(playwright.LocatorClickOptions{Timeout: timeoutMs(ctx, timeout)})
}

func (l *Locator) Clear(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.loc.First().Clear(playwright.LocatorClearOptions{Timeout: timeoutMs(ctx, timeout)})
}

func (l *Locator) Fill(ctx context.Context, text string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.loc.First().Fill(text, playwright.LocatorFillOptions{Timeout: timeoutMs(ctx, timeout)})
}

func (l *Locator) TextContent(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return l.loc.First().TextContent(playwright.LocatorTextContentOptions{Timeout: timeoutMs(ctx, 0)})
}

func (l *Locator) AllTextContents(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.loc.AllTextContents()
}

func (l *Locator) IsVisible(ctx context.Context, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return l.loc.First().IsVisible()
}

func (l *Locator) WaitVisible(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.loc.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: timeoutMs(ctx, timeout),
	})
}

func (l *Locator) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.loc.First().Evaluate(script, arg, playwright.LocatorEvaluateOptions{Timeout: timeoutMs(ctx, 0)})
}
