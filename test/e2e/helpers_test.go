//go:build browser || e2e

package e2e

import (
	"context"
	"testing"

	"brighthorizons-e2e/internal/di"
	"brighthorizons-e2e/internal/domain/entity"
	"brighthorizons-e2e/internal/infrastructure/env"

	"github.com/stretchr/testify/require"
)

// runScenario executes the home page journey once with settings read
// from the environment, after mutate adjusts them.
func runScenario(t *testing.T, mutate func(*env.Settings), opts ...di.Option) (*entity.ScenarioReport, error) {
	t.Helper()

	s := env.LoadSettings(env.NewEnvService())
	if s.ScreenshotDir == env.DefaultScreenshotDir {
		s.ScreenshotDir = t.TempDir()
	}
	if mutate != nil {
		mutate(&s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.RunTimeout)
	t.Cleanup(cancel)

	c, err := di.NewContainer(ctx, s, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	report, err := c.Scenario.Execute(ctx)
	require.NotNil(t, report)
	t.Logf("browser=%s passed=%t duration=%s screenshots=%v", report.Browser, report.Passed, report.Duration, report.Screenshots)
	return report, err
}
