// Package fake is an in-memory automation engine. Pages hold a fixed map
// from selector to elements, so tests can stage exactly what each lookup
// sees without a browser.
package fake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"time"

	"brighthorizons-e2e/internal/application/port/output"
	"brighthorizons-e2e/internal/domain/entity"
)

var (
	ErrNoMatch      = errors.New("fake: no element matches selector")
	ErrHidden       = errors.New("fake: element is hidden")
	ErrBrowserGone  = errors.New("fake: browser closed")
	ErrNotSupported = errors.New("fake: script not supported")
)

// PNG returns the 1x1 image every fake page captures.
func PNG() []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	return buf.Bytes()
}

type Element struct {
	Tag    string
	Text   string
	Value  string
	Hidden bool

	ClickErr   error
	FillErr    error
	EvalErr    error
	VisibleErr error

	Clicks       int
	ScriptClicks int
}

type Engine struct {
	mu        sync.Mutex
	page      *Page
	LaunchErr error
	PageErr   error
	Launches  []entity.LaunchOptions
	Browsers  []*Browser
}

var _ output.Engine = (*Engine)(nil)

// NewEngine returns an engine whose browsers all open page.
func NewEngine(page *Page) *Engine {
	return &Engine{page: page}
}

func (e *Engine) Name() string {
	return "fake"
}

func (e *Engine) Launch(ctx context.Context, opts entity.LaunchOptions) (output.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Launches = append(e.Launches, opts)
	if e.LaunchErr != nil {
		return nil, e.LaunchErr
	}
	b := &Browser{engine: e}
	e.Browsers = append(e.Browsers, b)
	return b, nil
}

type Browser struct {
	engine    *Engine
	mu        sync.Mutex
	closed    bool
	CloseErr  error
	CloseCall int
	Viewports []entity.Viewport
}

func (b *Browser) NewPage(ctx context.Context, viewport entity.Viewport) (output.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrowserGone
	}
	if b.engine.PageErr != nil {
		return nil, b.engine.PageErr
	}
	b.Viewports = append(b.Viewports, viewport)
	return b.engine.page, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCall++
	b.closed = true
	return b.CloseErr
}

func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

type Page struct {
	mu       sync.Mutex
	elements map[string][]*Element
	url      string
	focused  *Element
	selected bool

	NavigateErr   error
	LoadErr       error
	ScreenshotErr error
	Body          string

	// OnEvaluate answers page-level scripts. Nil returns (nil, nil).
	OnEvaluate func(script string, arg any) (any, error)

	Actions     []string
	Keys        []string
	Typed       string
	Screenshots []bool
	Evaluated   []any
}

var _ output.Page = (*Page)(nil)

func NewPage() *Page {
	return &Page{elements: make(map[string][]*Element)}
}

// Set stages the elements selector resolves to, in DOM order.
func (p *Page) Set(selector string, els ...*Element) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[selector] = els
	return p
}

func (p *Page) record(format string, args ...any) {
	p.Actions = append(p.Actions, fmt.Sprintf(format, args...))
}

// ActionLog returns a copy of the recorded actions.
func (p *Page) ActionLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Actions...)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate %s", url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.url = url
	return nil
}

func (p *Page) Locator(selector string) output.Locator {
	return &Locator{page: p, selector: selector}
}

func (p *Page) WaitLoad(ctx context.Context, state entity.LoadState, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait %s", state)
	return p.LoadErr
}

func (p *Page) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	p.mu.Lock()
	hook := p.OnEvaluate
	p.record("evaluate")
	p.Evaluated = append(p.Evaluated, arg)
	p.mu.Unlock()

	if hook == nil {
		return nil, nil
	}
	return hook(script, arg)
}

func (p *Page) Press(ctx context.Context, chord string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Keys = append(p.Keys, chord)
	switch chord {
	case "Control+A", "Meta+A":
		p.selected = true
	case "Backspace", "Delete":
		if p.selected && p.focused != nil {
			p.focused.Value = ""
		}
		p.selected = false
	}
	return nil
}

func (p *Page) Type(ctx context.Context, text string, delay time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Typed += text
	if p.focused != nil {
		p.focused.Value += text
	}
	p.record("type %q delay=%s", text, delay)
	return nil
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Screenshots = append(p.Screenshots, fullPage)
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	return PNG(), nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Body == "" {
		return "<html><body></body></html>", nil
	}
	return "<html><body>" + p.Body + "</body></html>", nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

type Locator struct {
	page     *Page
	selector string
}

var _ output.Locator = (*Locator)(nil)

func (l *Locator) Selector() string {
	return l.selector
}

func (l *Locator) all() []*Element {
	return l.page.elements[l.selector]
}

func (l *Locator) first() (*Element, error) {
	els := l.all()
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, l.selector)
	}
	return els[0], nil
}

func (l *Locator) Count(ctx context.Context) (int, error) {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	return len(l.all()), nil
}

func (l *Locator) Click(ctx context.Context, timeout time.Duration) error {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.first()
	if err != nil {
		return err
	}
	if el.ClickErr != nil {
		return el.ClickErr
	}
	el.Clicks++
	l.page.focused = el
	l.page.record("click %s", l.selector)
	return nil
}

func (l *Locator) Clear(ctx context.Context, timeout time.Duration) error {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.first()
	if err != nil {
		return err
	}
	if el.FillErr != nil {
		return el.FillErr
	}
	el.Value = ""
	return nil
}

func (l *Locator) Fill(ctx context.Context, text string, timeout time.Duration) error {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.first()
	if err != nil {
		return err
	}
	if el.FillErr != nil {
		return el.FillErr
	}
	el.Value = text
	l.page.record("fill %s %q", l.selector, text)
	return nil
}

func (l *Locator) TextContent(ctx context.Context) (string, error) {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.first()
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (l *Locator) AllTextContents(ctx context.Context) ([]string, error) {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	els := l.all()
	texts := make([]string, 0, len(els))
	for _, el := range els {
		texts = append(texts, el.Text)
	}
	return texts, nil
}

func (l *Locator) IsVisible(ctx context.Context, timeout time.Duration) (bool, error) {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	els := l.all()
	if len(els) == 0 {
		return false, nil
	}
	if els[0].VisibleErr != nil {
		return false, els[0].VisibleErr
	}
	return !els[0].Hidden, nil
}

func (l *Locator) WaitVisible(ctx context.Context, timeout time.Duration) error {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.first()
	if err != nil {
		return err
	}
	if el.Hidden {
		return ErrHidden
	}
	return nil
}

// Evaluate understands the two element scripts the driver sends: a
// node.click() call and a value assignment that dispatches input events.
func (l *Locator) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.first()
	if err != nil {
		return nil, err
	}
	if el.EvalErr != nil {
		return nil, el.EvalErr
	}

	switch {
	case strings.Contains(script, "dispatchEvent"):
		if el.Tag != "input" && el.Tag != "textarea" {
			return false, nil
		}
		s, _ := arg.(string)
		el.Value = s
		l.page.record("script-fill %s %q", l.selector, s)
		return true, nil
	case strings.Contains(script, ".click()"):
		el.ScriptClicks++
		l.page.focused = el
		l.page.record("script-click %s", l.selector)
		return nil, nil
	default:
		return nil, ErrNotSupported
	}
}
