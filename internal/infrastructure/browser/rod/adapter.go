package rod

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"brighthorizons-e2e/internal/application/port/output"
	"brighthorizons-e2e/internal/domain/entity"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

var (
	_ output.Engine  = (*Engine)(nil)
	_ output.Browser = (*BrowserAdapter)(nil)
	_ output.Page    = (*PageAdapter)(nil)
)

var (
	ErrInvalidURL         = errors.New("invalid URL")
	ErrUnsupportedBrowser = errors.New("rod drives chromium-based browsers only")
	ErrBrowserNotFound    = errors.New("browser executable not found")
)

type EngineConfig struct {
	// SlowMotion delays every CDP input action; useful when watching a headed run.
	SlowMotion time.Duration
	NoSandbox  bool
	Trace      bool
}

func DefaultConfig() EngineConfig {
	return EngineConfig{
		NoSandbox: runtime.GOOS == "linux" && os.Getenv("CI") != "",
	}
}

// Engine launches Chromium (downloaded by rod if needed) or Edge over CDP.
type Engine struct {
	cfg EngineConfig
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Name() string {
	return "rod"
}

func (e *Engine) Launch(ctx context.Context, opts entity.LaunchOptions) (output.Browser, error) {
	if !opts.Kind.Chromium() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBrowser, opts.Kind)
	}

	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(e.cfg.NoSandbox).
		Delete("use-mock-keychain")

	for _, arg := range opts.Args {
		name, values := splitFlag(arg)
		if name == "" {
			continue
		}
		l = l.Set(flags.Flag(name), values...)
	}

	bin := opts.BinPath
	if bin == "" && opts.Kind == entity.BrowserEdge {
		found, err := lookEdge()
		if err != nil {
			return nil, err
		}
		bin = found
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(controlURL).
		Trace(e.cfg.Trace).
		SlowMotion(e.cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &BrowserAdapter{browser: browser, launcher: l}, nil
}

// splitFlag turns "--window-size=1920,1080" into ("window-size", ["1920,1080"]).
func splitFlag(arg string) (string, []string) {
	arg = strings.TrimLeft(arg, "-")
	name, value, found := strings.Cut(arg, "=")
	if !found {
		return name, nil
	}
	return name, []string{value}
}

func lookEdge() (string, error) {
	for _, name := range []string{"microsoft-edge", "microsoft-edge-stable", "msedge"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	for _, p := range []string{
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
		`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
	} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: microsoft edge (set EDGE_PATH)", ErrBrowserNotFound)
}

type BrowserAdapter struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	closed   bool
}

func (b *BrowserAdapter) NewPage(ctx context.Context, viewport entity.Viewport) (output.Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	// Drop the creation context so later calls are not bound to it.
	page = page.Context(context.Background())

	if viewport.Width > 0 && viewport.Height > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             viewport.Width,
			Height:            viewport.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			return nil, fmt.Errorf("set viewport: %w", err)
		}
	}

	return &PageAdapter{page: page}, nil
}

func (b *BrowserAdapter) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
	return err
}

type PageAdapter struct {
	page *rod.Page
}

func (p *PageAdapter) Navigate(ctx context.Context, rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}
	if err := p.page.Context(ctx).Navigate(rawURL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	switch u.Scheme {
	case "http", "https", "file", "about":
		return nil
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
}

func (p *PageAdapter) Locator(selector string) output.Locator {
	return &Locator{page: p.page, selector: selector}
}

func (p *PageAdapter) WaitLoad(ctx context.Context, state entity.LoadState, timeout time.Duration) error {
	js := `() => document.readyState !== 'loading'`
	if state == entity.LoadStateLoad {
		js = `() => document.readyState === 'complete'`
	}
	ctx, cancel := bounded(ctx, timeout)
	defer cancel()
	if err := p.page.Context(ctx).Wait(rod.Eval(js)); err != nil {
		return fmt.Errorf("wait for %s: %w", state, err)
	}
	return nil
}

func (p *PageAdapter) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	res, err := p.page.Context(ctx).Eval(script, arg)
	if err != nil {
		return nil, err
	}
	return res.Value.Val(), nil
}

func (p *PageAdapter) Press(ctx context.Context, chord string) error {
	mods, key, err := parseChord(chord)
	if err != nil {
		return err
	}
	return p.page.Context(ctx).KeyActions().Press(mods...).Type(key).Do()
}

// Type sends key down and up events for every rune rod has a key for and
// inserts the rest as text.
func (p *PageAdapter) Type(ctx context.Context, text string, delay time.Duration) error {
	page := p.page.Context(ctx)
	for _, r := range text {
		var err error
		if key, ok := keyFor(r); ok {
			err = page.KeyActions().Type(key).Do()
		} else {
			err = page.InsertText(string(r))
		}
		if err != nil {
			return fmt.Errorf("type %q: %w", r, err)
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil
}

func (p *PageAdapter) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	data, err := p.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

func (p *PageAdapter) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *PageAdapter) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}
