//go:build e2e

package e2e

import (
	"testing"

	"brighthorizons-e2e/internal/usecase/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBrightHorizonsHome runs the journey against the live site. Set
// BROWSER to pick the browser and HEADLESS=true on machines without a
// display.
func TestBrightHorizonsHome(t *testing.T) {
	report, err := runScenario(t, nil)
	require.NoError(t, err)

	assert.True(t, report.Passed)
	assert.GreaterOrEqual(t, len(report.FooterTitles), 4)
	for _, title := range report.FooterTitles {
		assert.GreaterOrEqual(t, len([]rune(title)), 15, title)
	}
	assert.True(t, report.SearchVerified, "first result should read %q", scenario.DefaultSearchTerm)
}
