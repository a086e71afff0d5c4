// Package pages holds the page objects for brighthorizons.com.
package pages

import (
	"context"
	"time"

	"brighthorizons-e2e/internal/application/port/output"
	"brighthorizons-e2e/internal/domain/entity"
	"brighthorizons-e2e/internal/driver"
)

// Interactor is everything a page object needs from a session.
// *driver.Driver implements it.
type Interactor interface {
	Element(selector string) (output.Locator, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	GetText(ctx context.Context, selector string) (string, error)
	AllTexts(ctx context.Context, selector string) ([]string, error)
	Count(ctx context.Context, selector string) (int, error)
	IsVisible(ctx context.Context, selector string, timeout time.Duration) bool
	WaitForVisible(ctx context.Context, selector string, timeout time.Duration) error
	VerifyTextMinLength(ctx context.Context, selector string, minLength int) bool
	VerifyExactText(ctx context.Context, selector, expected string) bool
	CompareText(actual, expected string) bool

	Evaluate(ctx context.Context, script string, arg any) (any, error)
	ScrollToBottom(ctx context.Context) error
	ScrollToTop(ctx context.Context) error
	WaitForLoad(ctx context.Context, state entity.LoadState, timeout time.Duration) error
	WaitForPageLoad(ctx context.Context) error
	Pause(ctx context.Context, d time.Duration) error
	PerformSearch(ctx context.Context, c entity.SearchControls, term string) error

	TakeScreenshot(ctx context.Context, name string) error
	Logger() output.LoggerPort
}

var _ Interactor = (*driver.Driver)(nil)

// Base gives every page object the session's primitives.
type Base struct {
	Interactor
}

func NewBase(i Interactor) Base {
	return Base{Interactor: i}
}
