package output

import (
	"context"
	"time"

	"brighthorizons-e2e/internal/domain/entity"
)

// Engine launches browsers of one automation backend.
type Engine interface {
	Name() string
	Launch(ctx context.Context, opts entity.LaunchOptions) (Browser, error)
}

type Browser interface {
	NewPage(ctx context.Context, viewport entity.Viewport) (Page, error)
	Close() error
}

type Page interface {
	Navigate(ctx context.Context, url string) error
	Locator(selector string) Locator
	WaitLoad(ctx context.Context, state entity.LoadState, timeout time.Duration) error

	// Evaluate runs a page-level function expression such as
	// "(arg) => window.scrollTo(0, arg)" and returns its JSON-decoded result.
	Evaluate(ctx context.Context, script string, arg any) (any, error)

	// Press sends one key chord, e.g. "Control+A" or "Backspace".
	Press(ctx context.Context, chord string) error
	// Type sends text one key at a time with delay between keys.
	Type(ctx context.Context, text string, delay time.Duration) error

	// Screenshot returns a PNG of the viewport or the whole page.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	HTML(ctx context.Context) (string, error)
	URL() string
}

// Locator addresses the elements matching one selector. Single-element
// operations act on the first match.
type Locator interface {
	Selector() string
	Count(ctx context.Context) (int, error)

	Click(ctx context.Context, timeout time.Duration) error
	Clear(ctx context.Context, timeout time.Duration) error
	Fill(ctx context.Context, text string, timeout time.Duration) error

	TextContent(ctx context.Context) (string, error)
	AllTextContents(ctx context.Context) ([]string, error)

	IsVisible(ctx context.Context, timeout time.Duration) (bool, error)
	WaitVisible(ctx context.Context, timeout time.Duration) error

	// Evaluate runs a function expression "(node, arg) => ..." against the
	// first match.
	Evaluate(ctx context.Context, script string, arg any) (any, error)
}
