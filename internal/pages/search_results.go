package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brighthorizons-e2e/internal/application/port/output"
	"brighthorizons-e2e/internal/domain/entity"
)

// DefaultFallbackPhrase is what the text walk looks for. It is fixed and
// does not follow the searched term.
const DefaultFallbackPhrase = "Employee Education in 2018"

func DefaultResultProbes() []string {
	return []string{
		"//div[contains(@class, 'search-results')]//h3//a",
		"//article[contains(@class, 'search-result')]//h3//a",
		"//div[contains(@class, 'search-result')]//h3//a",
		"//main//h3//a",
		"//div[@id='search-results']//h3//a",
		"//h3//a",
		"//article//h3",
		"//div[contains(@class, 'result')]//h3",
	}
}

type LookupState int

const (
	NoAttempt LookupState = iota
	TryingSelector
	TextWalkFallback
	Found
	NotFound
)

func (s LookupState) String() string {
	switch s {
	case NoAttempt:
		return "NoAttempt"
	case TryingSelector:
		return "TryingSelector"
	case TextWalkFallback:
		return "TextWalkFallback"
	case Found:
		return "Found"
	case NotFound:
		return "NotFound"
	default:
		return fmt.Sprintf("LookupState(%d)", int(s))
	}
}

// Lookup is where a first-result search ended. Probe is the index of the
// matching probe, or -1 when the text walk (or nothing) matched.
type Lookup struct {
	State    LookupState
	Probe    int
	Selector string
	Element  output.Locator
	// Trail lists every state passed through, in order.
	Trail []LookupState
}

type SearchResultsPage struct {
	Base
	ResultProbes   []string
	FallbackPhrase string

	LoadTimeout  time.Duration
	ResultsDelay time.Duration
	ProbeTimeout time.Duration
}

func NewSearchResultsPage(i Interactor, probes []string) *SearchResultsPage {
	if len(probes) == 0 {
		probes = DefaultResultProbes()
	}
	return &SearchResultsPage{
		Base:           NewBase(i),
		ResultProbes:   probes,
		FallbackPhrase: DefaultFallbackPhrase,
		LoadTimeout:    10 * time.Second,
		ResultsDelay:   3 * time.Second,
		ProbeTimeout:   2 * time.Second,
	}
}

// WaitForSearchResults never fails on a slow load; it only stops early
// when ctx ends.
func (s *SearchResultsPage) WaitForSearchResults(ctx context.Context) error {
	if err := s.WaitForLoad(ctx, entity.LoadStateDOMContentLoaded, s.LoadTimeout); err != nil {
		return err
	}
	return s.Pause(ctx, s.ResultsDelay)
}

// FirstSearchResult tries each probe in order and takes the first one whose
// first match is visible. If none is, it walks the body's text nodes for
// FallbackPhrase and, on a hit, resolves to the body.
func (s *SearchResultsPage) FirstSearchResult(ctx context.Context) (Lookup, error) {
	lookup := Lookup{State: NoAttempt, Probe: -1, Trail: []LookupState{NoAttempt}}
	move := func(st LookupState) {
		lookup.State = st
		lookup.Trail = append(lookup.Trail, st)
	}

	if err := s.WaitForSearchResults(ctx); err != nil {
		return lookup, err
	}

	log := s.Logger()
	for i, probe := range s.ResultProbes {
		move(TryingSelector)
		if err := ctx.Err(); err != nil {
			return lookup, err
		}

		n, err := s.Count(ctx, probe)
		if err != nil || n == 0 {
			log.Debug("Result probe missed", "probe", i, "selector", probe, "count", n, "error", err)
			continue
		}
		if !s.IsVisible(ctx, probe, s.ProbeTimeout) {
			log.Debug("Result probe not visible", "probe", i, "selector", probe)
			continue
		}

		el, err := s.Element(probe)
		if err != nil {
			return lookup, err
		}
		move(Found)
		lookup.Probe = i
		lookup.Selector = probe
		lookup.Element = el
		return lookup, nil
	}

	move(TextWalkFallback)
	res, err := s.Evaluate(ctx, scriptFindText, s.FallbackPhrase)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return lookup, ctxErr
		}
		log.Warn("Text walk failed", "phrase", s.FallbackPhrase, "error", err)
		move(NotFound)
		return lookup, nil
	}

	if found, _ := res.(bool); found {
		el, err := s.Element("body")
		if err != nil {
			return lookup, err
		}
		move(Found)
		lookup.Selector = "body"
		lookup.Element = el
		return lookup, nil
	}

	move(NotFound)
	return lookup, nil
}

// VerifyFirstSearchResultText compares the first result's trimmed text
// with the trimmed expectation.
func (s *SearchResultsPage) VerifyFirstSearchResultText(ctx context.Context, expected string) (bool, error) {
	lookup, err := s.FirstSearchResult(ctx)
	if err != nil {
		return false, err
	}
	log := s.Logger()
	if lookup.State != Found {
		log.Info("No search result found", "probes", len(s.ResultProbes))
		return false, nil
	}

	text, err := lookup.Element.TextContent(ctx)
	if err != nil {
		log.Info("First search result has no readable text", "selector", lookup.Selector, "error", err)
		return false, nil
	}
	log.Info("First search result", "selector", lookup.Selector, "text", strings.TrimSpace(text))
	return s.CompareText(text, expected), nil
}

// scriptFindText finds the first text node containing the phrase and
// outlines its parent.
const scriptFindText = `(phrase) => {
	const walk = (node) => {
		if (node.nodeType === Node.TEXT_NODE && node.textContent && node.textContent.includes(phrase)) {
			return node.parentElement;
		}
		for (const child of node.childNodes) {
			const found = walk(child);
			if (found) return found;
		}
		return null;
	};
	const el = document.body ? walk(document.body) : null;
	if (!el) return false;
	el.style.border = '3px solid red';
	return true;
}`
