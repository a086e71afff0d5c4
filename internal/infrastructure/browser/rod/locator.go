package rod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"brighthorizons-e2e/internal/application/port/output"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

var _ output.Locator = (*Locator)(nil)

var (
	ErrElementNotFound = errors.New("element not found")
	ErrUnknownKey      = errors.New("unknown key")
)

// Locator resolves its selector lazily on every call, so it survives
// navigations and re-renders.
type Locator struct {
	page     *rod.Page
	selector string
}

func (l *Locator) Selector() string {
	return l.selector
}

// isXPath reports whether selector should go through ElementX.
func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") ||
		strings.HasPrefix(selector, "(") ||
		strings.HasPrefix(selector, "xpath=")
}

func (l *Locator) expr() string {
	return strings.TrimPrefix(l.selector, "xpath=")
}

// bounded limits ctx to timeout when timeout is positive. The lookup and
// the action that follows share the one budget.
func bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

// find waits for the first match until ctx ends.
func (l *Locator) find(ctx context.Context) (*rod.Element, error) {
	page := l.page.Context(ctx)

	var (
		el  *rod.Element
		err error
	)
	if isXPath(l.selector) {
		el, err = page.ElementX(l.expr())
	} else {
		el, err = page.Element(l.selector)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrElementNotFound, l.selector, err)
	}
	return el, nil
}

// first returns the current first match without waiting for one to appear.
func (l *Locator) first(ctx context.Context) (*rod.Element, error) {
	els, err := l.all(ctx)
	if err != nil {
		return nil, err
	}
	if els.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, l.selector)
	}
	return els.First(), nil
}

func (l *Locator) all(ctx context.Context) (rod.Elements, error) {
	page := l.page.Context(ctx)
	if isXPath(l.selector) {
		return page.ElementsX(l.expr())
	}
	return page.Elements(l.selector)
}

func (l *Locator) Count(ctx context.Context) (int, error) {
	els, err := l.all(ctx)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (l *Locator) Click(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := bounded(ctx, timeout)
	defer cancel()

	el, err := l.find(ctx)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", l.selector, err)
	}
	return nil
}

func (l *Locator) Clear(ctx context.Context, timeout time.Duration) error {
	return l.Fill(ctx, "", timeout)
}

func (l *Locator) Fill(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := bounded(ctx, timeout)
	defer cancel()

	el, err := l.find(ctx)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select %s: %w", l.selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input %s: %w", l.selector, err)
	}
	return nil
}

func textOf(el *rod.Element) (string, error) {
	res, err := el.Eval(`function() { return this.textContent || '' }`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (l *Locator) TextContent(ctx context.Context) (string, error) {
	el, err := l.first(ctx)
	if err != nil {
		return "", err
	}
	return textOf(el)
}

func (l *Locator) AllTextContents(ctx context.Context) ([]string, error) {
	els, err := l.all(ctx)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := textOf(el)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// IsVisible checks the first match without waiting for it to appear.
func (l *Locator) IsVisible(ctx context.Context, timeout time.Duration) (bool, error) {
	ctx, cancel := bounded(ctx, timeout)
	defer cancel()

	els, err := l.all(ctx)
	if err != nil {
		return false, err
	}
	if els.Empty() {
		return false, nil
	}
	return els.First().Visible()
}

func (l *Locator) WaitVisible(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := bounded(ctx, timeout)
	defer cancel()

	el, err := l.find(ctx)
	if err != nil {
		return err
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait visible %s: %w", l.selector, err)
	}
	return nil
}

// Evaluate runs a "(node, arg) => ..." script against the first match.
func (l *Locator) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	el, err := l.first(ctx)
	if err != nil {
		return nil, err
	}
	res, err := el.Eval(`function(arg) { return (`+script+`)(this, arg) }`, arg)
	if err != nil {
		return nil, err
	}
	return res.Value.Val(), nil
}

var modifierKeys = map[string]input.Key{
	"control": input.ControlLeft,
	"ctrl":    input.ControlLeft,
	"shift":   input.ShiftLeft,
	"alt":     input.AltLeft,
	"meta":    input.MetaLeft,
}

var namedKeys = map[string]input.Key{
	"backspace": input.Backspace,
	"delete":    input.Delete,
	"enter":     input.Enter,
	"tab":       input.Tab,
	"escape":    input.Escape,
	"space":     input.Space,
}

// parseChord splits a playwright-style chord such as "Control+A" into
// held modifiers and the key to type.
func parseChord(chord string) ([]input.Key, input.Key, error) {
	parts := strings.Split(chord, "+")
	var mods []input.Key
	for _, p := range parts[:len(parts)-1] {
		k, ok := modifierKeys[strings.ToLower(p)]
		if !ok {
			return nil, 0, fmt.Errorf("%w: modifier %q in %q", ErrUnknownKey, p, chord)
		}
		mods = append(mods, k)
	}

	last := parts[len(parts)-1]
	if k, ok := namedKeys[strings.ToLower(last)]; ok {
		return mods, k, nil
	}
	r := []rune(last)
	if len(r) != 1 {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownKey, last)
	}
	return mods, input.Key(unicode.ToLower(r[0])), nil
}

// keyFor maps a printable rune to a rod key. input.Key.Info panics for
// runes outside rod's US keyboard layout.
func keyFor(r rune) (key input.Key, ok bool) {
	if r == '\n' {
		return input.Enter, true
	}
	defer func() {
		if recover() != nil {
			key, ok = 0, false
		}
	}()
	key = input.Key(r)
	return key, key.Printable()
}
