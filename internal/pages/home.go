package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brighthorizons-e2e/internal/domain/entity"
)

const (
	ShotBeforeSearch = "before-search-attempt"
	ShotAfterSearch  = "after-search-completed"
)

type HomeSelectors struct {
	SearchTrigger  string
	SearchInput    string
	SearchSubmit   string
	FooterSections string
	FooterTitles   string
}

func DefaultHomeSelectors() HomeSelectors {
	return HomeSelectors{
		SearchTrigger:  "//a[@id='search-toggle'] | //a[contains(@class, 'search')] | //button[contains(@class, 'search')]",
		SearchInput:    "//input[@id='search-field'][1]",
		SearchSubmit:   "//button[@type='submit']",
		FooterSections: "//footer//div[contains(@class, 'col') or contains(@class, 'column')]",
		FooterTitles:   "//footer//h3 | //footer//div[contains(@class, 'title')]",
	}
}

type HomePage struct {
	Base
	Selectors HomeSelectors
	// TopSettle is the pause after scrolling back up before a search.
	TopSettle time.Duration
}

func NewHomePage(i Interactor) *HomePage {
	return &HomePage{
		Base:      NewBase(i),
		Selectors: DefaultHomeSelectors(),
		TopSettle: time.Second,
	}
}

func (h *HomePage) SearchControls() entity.SearchControls {
	return entity.SearchControls{
		Trigger: h.Selectors.SearchTrigger,
		Input:   h.Selectors.SearchInput,
		Submit:  h.Selectors.SearchSubmit,
	}
}

// FooterSectionTitles returns the trimmed, non-empty footer titles in DOM order.
func (h *HomePage) FooterSectionTitles(ctx context.Context) ([]string, error) {
	raw, err := h.AllTexts(ctx, h.Selectors.FooterTitles)
	if err != nil {
		return nil, fmt.Errorf("footer titles: %w", err)
	}
	titles := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	return titles, nil
}

func (h *HomePage) FooterSectionCount(ctx context.Context) (int, error) {
	return h.Count(ctx, h.Selectors.FooterSections)
}

// PerformSearch runs the search from the top of the page, with a
// screenshot on each side.
func (h *HomePage) PerformSearch(ctx context.Context, term string) error {
	if err := h.ScrollToTop(ctx); err != nil {
		return err
	}
	if err := h.Pause(ctx, h.TopSettle); err != nil {
		return err
	}
	if err := h.TakeScreenshot(ctx, ShotBeforeSearch); err != nil {
		return err
	}
	if err := h.Base.PerformSearch(ctx, h.SearchControls(), term); err != nil {
		return fmt.Errorf("search %q: %w", term, err)
	}
	return h.TakeScreenshot(ctx, ShotAfterSearch)
}
