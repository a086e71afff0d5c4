package env

import (
	"strings"
	"time"

	"brighthorizons-e2e/internal/application/port/output"
	"brighthorizons-e2e/internal/domain/entity"
)

const (
	DefaultBaseURL       = "https://www.brighthorizons.com"
	DefaultWaitTime      = 5000 * time.Millisecond
	DefaultScreenshotDir = "./test-results"
	DefaultRunTimeout    = 120 * time.Second

	// ProbeSeparator splits SEARCH_RESULT_XPATHS. XPath unions use a single
	// "|", so the list needs something longer.
	ProbeSeparator = "||"
)

// Settings is the typed view of the environment the suite reads.
type Settings struct {
	Browser            entity.BrowserKind
	BrowserDriver      string
	BaseURL            string
	WaitTime           time.Duration
	ScreenshotDir      string
	ScreenshotMaxWidth int
	Headless           bool
	EdgePath           string
	ResultProbes       []string
	RunTimeout         time.Duration
	LogLevel           string
	CI                 bool
}

func LoadSettings(cfg output.ConfigPort) Settings {
	return Settings{
		Browser:            entity.ParseBrowserKind(cfg.Get("BROWSER")),
		BrowserDriver:      strings.ToLower(strings.TrimSpace(cfg.Get("BROWSER_DRIVER"))),
		BaseURL:            cfg.GetWithDefault("BASE_URL", DefaultBaseURL),
		WaitTime:           cfg.GetDuration("WAIT_TIME", DefaultWaitTime),
		ScreenshotDir:      cfg.GetWithDefault("SCREENSHOT_DIR", DefaultScreenshotDir),
		ScreenshotMaxWidth: cfg.GetInt("SCREENSHOT_MAX_WIDTH", 0),
		Headless:           cfg.GetBool("HEADLESS", false),
		EdgePath:           cfg.Get("EDGE_PATH"),
		ResultProbes:       splitProbes(cfg.Get("SEARCH_RESULT_XPATHS")),
		RunTimeout:         cfg.GetDuration("E2E_TIMEOUT", DefaultRunTimeout),
		LogLevel:           cfg.GetWithDefault("LOG_LEVEL", "info"),
		CI:                 cfg.GetBool("CI", false),
	}
}

func splitProbes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var probes []string
	for _, p := range strings.Split(raw, ProbeSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			probes = append(probes, p)
		}
	}
	return probes
}
