// Package browser picks the automation engine for a browser kind.
package browser

import (
	"errors"
	"fmt"
	"time"

	"brighthorizons-e2e/internal/application/port/output"
	"brighthorizons-e2e/internal/domain/entity"
	pwengine "brighthorizons-e2e/internal/infrastructure/browser/playwright"
	rodengine "brighthorizons-e2e/internal/infrastructure/browser/rod"
)

const (
	DriverAuto       = ""
	DriverRod        = "rod"
	DriverPlaywright = "playwright"
)

var ErrUnknownDriver = errors.New("unknown browser driver")

type Config struct {
	// Driver is "rod", "playwright" or empty for the per-kind default.
	Driver    string
	SlowMo    time.Duration
	NoSandbox bool
}

// ResolveDriver returns the engine name used for kind. Rod speaks CDP
// only, so asking it for Firefox or WebKit is an error.
func ResolveDriver(driver string, kind entity.BrowserKind) (string, error) {
	switch driver {
	case DriverAuto:
		if kind.Chromium() {
			return DriverRod, nil
		}
		return DriverPlaywright, nil
	case DriverRod:
		if !kind.Chromium() {
			return "", fmt.Errorf("%w: %s cannot drive %s", rodengine.ErrUnsupportedBrowser, driver, kind)
		}
		return DriverRod, nil
	case DriverPlaywright:
		return DriverPlaywright, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func NewEngine(cfg Config, kind entity.BrowserKind) (output.Engine, error) {
	name, err := ResolveDriver(cfg.Driver, kind)
	if err != nil {
		return nil, err
	}

	if name == DriverRod {
		rc := rodengine.DefaultConfig()
		rc.SlowMotion = cfg.SlowMo
		rc.NoSandbox = rc.NoSandbox || cfg.NoSandbox
		return rodengine.NewEngine(rc), nil
	}

	pc := pwengine.DefaultConfig()
	pc.SlowMo = cfg.SlowMo
	return pwengine.NewEngine(pc), nil
}
