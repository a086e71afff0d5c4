// Package scenario is the footer-and-search journey through the home page.
package scenario

import (
	"context"
	"fmt"
	"time"

	"brighthorizons-e2e/internal/application/port/input"
	"brighthorizons-e2e/internal/application/port/output"
	"brighthorizons-e2e/internal/domain/entity"
	"brighthorizons-e2e/internal/pages"
)

var _ input.ScenarioRunner = (*UseCase)(nil)

const (
	DefaultSearchTerm = "Employee Education in 2018: Strategies to Watch"

	ShotFooter     = "footer-sections"
	ShotFinalState = "final-state"
	ShotErrorState = "error-state"

	failureCaptureTimeout = 15 * time.Second
)

// Session is the part of the driver the scenario uses on top of what page
// objects need.
type Session interface {
	pages.Interactor
	NavigateTo(ctx context.Context, url string) error
	TakeFullPageScreenshot(ctx context.Context, name string) error
	SnapshotHTML(ctx context.Context, name string) (string, error)
	Close() error
}

type Config struct {
	Browser           entity.BrowserKind
	BaseURL           string
	SearchTerm        string
	MinFooterSections int
	MinTitleLength    int
	// StepPause is the settle time between the journey's steps.
	StepPause time.Duration
}

func DefaultConfig() Config {
	return Config{
		Browser:           entity.BrowserChromium,
		SearchTerm:        DefaultSearchTerm,
		MinFooterSections: 4,
		MinTitleLength:    15,
		StepPause:         3 * time.Second,
	}
}

// AssertionError is an expectation the site did not meet.
type AssertionError struct {
	Check string
	Want  string
	Got   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %q failed: want %s, got %s", e.Check, e.Want, e.Got)
}

type UseCase struct {
	session Session
	home    *pages.HomePage
	results *pages.SearchResultsPage
	logger  output.LoggerPort
	cfg     Config
}

func New(
	session Session,
	home *pages.HomePage,
	results *pages.SearchResultsPage,
	logger output.LoggerPort,
	cfg Config,
) *UseCase {
	if cfg.SearchTerm == "" {
		cfg.SearchTerm = DefaultSearchTerm
	}
	return &UseCase{
		session: session,
		home:    home,
		results: results,
		logger:  logger,
		cfg:     cfg,
	}
}

// Execute runs the journey and always closes the session. On failure it
// captures the page state before returning the error.
func (uc *UseCase) Execute(ctx context.Context) (report *entity.ScenarioReport, err error) {
	start := time.Now()
	report = &entity.ScenarioReport{
		Browser:    uc.cfg.Browser,
		BaseURL:    uc.cfg.BaseURL,
		SearchTerm: uc.cfg.SearchTerm,
	}

	defer func() {
		if cerr := uc.session.Close(); cerr != nil {
			uc.logger.Error("Browser teardown failed", "error", cerr)
			if err == nil {
				err = cerr
			}
		}
		report.Duration = time.Since(start)
		report.Passed = err == nil
		if err != nil {
			report.Error = err.Error()
		}
	}()

	if err := uc.run(ctx, report); err != nil {
		uc.logger.Error("Scenario failed", "error", err)
		uc.captureFailure(ctx, report)
		return report, err
	}

	uc.logger.Info("Scenario passed", "duration", time.Since(start))
	return report, nil
}

func (uc *UseCase) run(ctx context.Context, report *entity.ScenarioReport) error {
	s := uc.session

	uc.logger.Info(fmt.Sprintf("Step 1: Navigating to main page using %s browser...", uc.cfg.Browser))
	if err := s.NavigateTo(ctx, uc.cfg.BaseURL); err != nil {
		return err
	}
	if err := s.WaitForPageLoad(ctx); err != nil {
		return err
	}
	if err := s.Pause(ctx, uc.cfg.StepPause); err != nil {
		return err
	}

	uc.logger.Info("Step 2: Scrolling to bottom to verify footer sections...")
	if err := uc.home.ScrollToBottom(ctx); err != nil {
		return err
	}
	titles, err := uc.home.FooterSectionTitles(ctx)
	if err != nil {
		return err
	}
	report.FooterTitles = titles
	if n, err := uc.home.FooterSectionCount(ctx); err == nil {
		report.FooterSections = n
	}

	uc.logger.Info("Footer sections found", "count", len(titles))
	for i, title := range titles {
		uc.logger.Info("Footer section title", "index", i+1, "title", title, "length", len([]rune(title)))
	}

	if err := uc.checkFooter(titles); err != nil {
		return err
	}
	if err := uc.screenshot(ctx, report, ShotFooter, false); err != nil {
		return err
	}

	uc.logger.Info("Step 3: Scrolling back to top...")
	if err := s.ScrollToTop(ctx); err != nil {
		return err
	}
	if err := s.Pause(ctx, uc.cfg.StepPause); err != nil {
		return err
	}

	uc.logger.Info(fmt.Sprintf("Step 4: Searching for %q...", uc.cfg.SearchTerm))
	if err := uc.home.PerformSearch(ctx, uc.cfg.SearchTerm); err != nil {
		return err
	}
	report.Screenshots = append(report.Screenshots, pages.ShotBeforeSearch, pages.ShotAfterSearch)

	uc.logger.Info("Step 5: Verifying search results...")
	if err := s.Pause(ctx, uc.cfg.StepPause); err != nil {
		return err
	}
	ok, err := uc.results.VerifyFirstSearchResultText(ctx, uc.cfg.SearchTerm)
	if err != nil {
		return err
	}
	report.SearchVerified = ok
	verdict := "FAILED"
	if ok {
		verdict = "PASSED"
	}
	uc.logger.Info("Search result verification: " + verdict)

	if err := uc.screenshot(ctx, report, ShotFinalState, true); err != nil {
		return err
	}
	if !ok {
		return &AssertionError{
			Check: "first search result",
			Want:  fmt.Sprintf("%q", uc.cfg.SearchTerm),
			Got:   "no exact match",
		}
	}
	return nil
}

func (uc *UseCase) checkFooter(titles []string) error {
	if len(titles) < uc.cfg.MinFooterSections {
		return &AssertionError{
			Check: "footer section count",
			Want:  fmt.Sprintf(">= %d", uc.cfg.MinFooterSections),
			Got:   fmt.Sprintf("%d", len(titles)),
		}
	}
	for i, title := range titles {
		if n := len([]rune(title)); n < uc.cfg.MinTitleLength {
			return &AssertionError{
				Check: fmt.Sprintf("footer title %d length", i+1),
				Want:  fmt.Sprintf(">= %d characters", uc.cfg.MinTitleLength),
				Got:   fmt.Sprintf("%d (%q)", n, title),
			}
		}
	}
	return nil
}

func (uc *UseCase) screenshot(ctx context.Context, report *entity.ScenarioReport, name string, fullPage bool) error {
	var err error
	if fullPage {
		err = uc.session.TakeFullPageScreenshot(ctx, name)
	} else {
		err = uc.session.TakeScreenshot(ctx, name)
	}
	if err != nil {
		return err
	}
	report.Screenshots = append(report.Screenshots, name)
	return nil
}

// captureFailure runs even if ctx already expired, so the artifacts of a
// timeout still get written.
func (uc *UseCase) captureFailure(ctx context.Context, report *entity.ScenarioReport) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureCaptureTimeout)
	defer cancel()

	if err := uc.screenshot(ctx, report, ShotErrorState, true); err != nil {
		uc.logger.Warn("Could not capture error state", "error", err)
	}
	if _, err := uc.session.SnapshotHTML(ctx, ShotErrorState); err != nil {
		uc.logger.Warn("Could not snapshot error state", "error", err)
	}
}
