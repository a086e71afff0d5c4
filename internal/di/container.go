package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brighthorizons-e2e/internal/application/port/input"
	"brighthorizons-e2e/internal/application/port/output"
	"brighthorizons-e2e/internal/driver"
	"brighthorizons-e2e/internal/infrastructure/browser"
	"brighthorizons-e2e/internal/infrastructure/env"
	"brighthorizons-e2e/internal/infrastructure/logger"
	"brighthorizons-e2e/internal/infrastructure/screenshot"
	"brighthorizons-e2e/internal/pages"
	"brighthorizons-e2e/internal/usecase/scenario"
)

type Container struct {
	Settings    env.Settings
	Logger      output.LoggerPort
	Screenshots output.ScreenshotStore
	Engine      output.Engine
	Driver      *driver.Driver
	Home        *pages.HomePage
	Results     *pages.SearchResultsPage
	Scenario    input.ScenarioRunner

	ownsLogger bool
}

type options struct {
	engine     output.Engine
	logger     output.LoggerPort
	timings    *driver.Timings
	noDelays   bool
	searchTerm string
	slowMo     time.Duration
}

type Option func(*options)

// WithEngine replaces the engine chosen from BROWSER and BROWSER_DRIVER.
func WithEngine(e output.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithLogger shares an existing logger. The container will not close it.
func WithLogger(l output.LoggerPort) Option {
	return func(o *options) { o.logger = l }
}

func WithTimings(t driver.Timings) Option {
	return func(o *options) { o.timings = &t }
}

// WithoutDelays zeroes every fixed pause and timeout. Only useful against
// an engine that answers synchronously.
func WithoutDelays() Option {
	return func(o *options) { o.noDelays = true }
}

func WithSearchTerm(term string) Option {
	return func(o *options) { o.searchTerm = term }
}

func WithSlowMotion(d time.Duration) Option {
	return func(o *options) { o.slowMo = d }
}

// NewContainer launches the browser and wires the scenario on top of it.
// The caller owns the container and must Close it; the scenario also
// closes the driver when it finishes.
func NewContainer(ctx context.Context, s env.Settings, opts ...Option) (*Container, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	c := &Container{Settings: s}

	if o.logger != nil {
		c.Logger = o.logger
	} else {
		log, err := logger.NewLoggerAdapter(logger.Config{Level: s.LogLevel, JSON: s.CI})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		c.Logger = log
		c.ownsLogger = true
	}

	c.Screenshots = screenshot.NewStore(s.ScreenshotDir, s.ScreenshotMaxWidth)

	if o.engine != nil {
		c.Engine = o.engine
	} else {
		engine, err := browser.NewEngine(browser.Config{
			Driver:    s.BrowserDriver,
			SlowMo:    o.slowMo,
			NoSandbox: s.CI,
		}, s.Browser)
		if err != nil {
			c.closeLogger()
			return nil, fmt.Errorf("failed to select engine: %w", err)
		}
		c.Engine = engine
	}

	timings := driver.DefaultTimings()
	timings.Wait = s.WaitTime
	if o.timings != nil {
		timings = *o.timings
	}
	if o.noDelays {
		timings = driver.Timings{}
	}

	d, err := driver.Open(ctx, c.Engine, c.Screenshots, c.Logger, driver.Options{
		Kind:     s.Browser,
		Headless: s.Headless,
		BinPath:  s.EdgePath,
		BaseURL:  s.BaseURL,
		Timings:  timings,
	})
	if err != nil {
		c.closeLogger()
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	c.Driver = d

	c.Home = pages.NewHomePage(d)
	c.Results = pages.NewSearchResultsPage(d, s.ResultProbes)

	cfg := scenario.DefaultConfig()
	cfg.Browser = s.Browser
	cfg.BaseURL = s.BaseURL
	if o.searchTerm != "" {
		cfg.SearchTerm = o.searchTerm
	}
	if o.noDelays {
		c.Home.TopSettle = 0
		c.Results.LoadTimeout, c.Results.ResultsDelay, c.Results.ProbeTimeout = 0, 0, 0
		cfg.StepPause = 0
	}

	c.Scenario = scenario.New(d, c.Home, c.Results, c.Logger, cfg)
	return c, nil
}

func (c *Container) closeLogger() error {
	if c.ownsLogger && c.Logger != nil {
		return c.Logger.Close()
	}
	return nil
}

// Close releases the browser if the scenario has not already and flushes
// the logger.
func (c *Container) Close() error {
	var errs []error
	if c.Driver != nil {
		if err := c.Driver.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.closeLogger(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
