package entity

import "strings"

type BrowserKind string

const (
	BrowserChromium BrowserKind = "chromium"
	BrowserFirefox  BrowserKind = "firefox"
	BrowserWebKit   BrowserKind = "webkit"
	BrowserEdge     BrowserKind = "edge"
)

// ParseBrowserKind maps a BROWSER value to a kind. "safari" is an alias for
// webkit; anything unknown falls back to chromium.
func ParseBrowserKind(s string) BrowserKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "firefox":
		return BrowserFirefox
	case "webkit", "safari":
		return BrowserWebKit
	case "edge", "msedge":
		return BrowserEdge
	default:
		return BrowserChromium
	}
}

// Chromium reports whether the kind is driven over CDP.
func (k BrowserKind) Chromium() bool {
	return k == BrowserChromium || k == BrowserEdge
}

type Viewport struct {
	Width  int
	Height int
}

type LaunchOptions struct {
	Kind     BrowserKind
	Headless bool
	Args     []string
	Viewport Viewport
	// BinPath overrides the browser executable. Empty means the engine default.
	BinPath string
}

type LoadState string

const (
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateLoad             LoadState = "load"
)
