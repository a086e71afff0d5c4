package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"brighthorizons-e2e/internal/domain/entity"
	"brighthorizons-e2e/internal/infrastructure/browser/fake"
	"brighthorizons-e2e/internal/infrastructure/logger"
	"brighthorizons-e2e/internal/infrastructure/screenshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errOverlay = errors.New("element is covered by another element")

func quickOptions() Options {
	return Options{
		Kind:    entity.BrowserChromium,
		BaseURL: "https://www.brighthorizons.com",
		Timings: Timings{},
	}
}

func newTestDriver(t *testing.T, page *fake.Page) (*Driver, *fake.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	engine := fake.NewEngine(page)
	d, err := Open(context.Background(), engine, screenshot.NewStore(dir, 0), logger.Nop(), quickOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, engine, dir
}

func TestOpen_LaunchesFullDesktop(t *testing.T) {
	page := fake.NewPage()
	d, engine, _ := newTestDriver(t, page)

	require.Len(t, engine.Launches, 1)
	launch := engine.Launches[0]
	assert.Equal(t, entity.BrowserChromium, launch.Kind)
	assert.Equal(t, []string{"--window-size=1920,1080", "--start-maximized"}, launch.Args)
	assert.Equal(t, entity.Viewport{Width: 1920, Height: 1080}, launch.Viewport)
	assert.Equal(t, []entity.Viewport{{Width: 1920, Height: 1080}}, engine.Browsers[0].Viewports)
	assert.True(t, d.IsOpen())
	assert.Same(t, page, d.Page())
}

func TestOpen_LaunchError(t *testing.T) {
	engine := fake.NewEngine(fake.NewPage())
	engine.LaunchErr = errors.New("no browser binary")

	_, err := Open(context.Background(), engine, screenshot.NewStore(t.TempDir(), 0), logger.Nop(), quickOptions())
	assert.ErrorContains(t, err, "no browser binary")
}

func TestOpen_PageErrorClosesBrowser(t *testing.T) {
	engine := fake.NewEngine(fake.NewPage())
	engine.PageErr = errors.New("target crashed")

	_, err := Open(context.Background(), engine, screenshot.NewStore(t.TempDir(), 0), logger.Nop(), quickOptions())
	require.Error(t, err)
	require.Len(t, engine.Browsers, 1)
	assert.True(t, engine.Browsers[0].Closed())
}

func TestClose_Idempotent(t *testing.T) {
	d, engine, _ := newTestDriver(t, fake.NewPage())

	require.NoError(t, d.Close())
	assert.False(t, d.IsOpen())
	assert.Nil(t, d.Browser())
	assert.Nil(t, d.Page())

	require.NoError(t, d.Close())
	assert.Equal(t, 1, engine.Browsers[0].CloseCall)
}

func TestClose_NeverOpened(t *testing.T) {
	d := New(nil, screenshot.NewStore(t.TempDir(), 0), logger.Nop(), quickOptions())
	assert.NoError(t, d.Close())
	assert.NoError(t, d.Close())
}

func TestAfterClose_SessionClosed(t *testing.T) {
	d, _, _ := newTestDriver(t, fake.NewPage())
	require.NoError(t, d.Close())

	ctx := context.Background()
	assert.ErrorIs(t, d.NavigateTo(ctx, ""), ErrSessionClosed)
	assert.ErrorIs(t, d.Click(ctx, "#x"), ErrSessionClosed)
	assert.ErrorIs(t, d.TakeScreenshot(ctx, "x"), ErrSessionClosed)
	assert.False(t, d.IsVisible(ctx, "#x", 0))
}

func TestUsePage(t *testing.T) {
	first := fake.NewPage()
	d, _, _ := newTestDriver(t, first)

	second := fake.NewPage()
	d.UsePage(second)
	require.NoError(t, d.NavigateTo(context.Background(), "http://localhost/other"))

	assert.Empty(t, first.URL())
	assert.Equal(t, "http://localhost/other", second.URL())
}

func TestNavigateTo_DefaultsToBaseURL(t *testing.T) {
	page := fake.NewPage()
	d, _, _ := newTestDriver(t, page)

	require.NoError(t, d.NavigateTo(context.Background(), ""))
	assert.Equal(t, "https://www.brighthorizons.com", page.URL())

	require.NoError(t, d.NavigateTo(context.Background(), "https://example.com/a"))
	assert.Equal(t, "https://example.com/a", page.URL())
}

func TestNavigateTo_Error(t *testing.T) {
	page := fake.NewPage()
	page.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	d, _, _ := newTestDriver(t, page)

	err := d.NavigateTo(context.Background(), "")
	assert.ErrorContains(t, err, "ERR_NAME_NOT_RESOLVED")
}

func TestClick_Standard(t *testing.T) {
	btn := &fake.Element{Tag: "button"}
	page := fake.NewPage().Set("#go", btn, &fake.Element{Tag: "button"})
	d, _, _ := newTestDriver(t, page)

	out, err := d.ClickOutcome(context.Background(), "#go")
	require.NoError(t, err)

	assert.Equal(t, StrategyStandard, out.Strategy)
	assert.False(t, out.Fallback())
	assert.Equal(t, 1, btn.Clicks)
	assert.Zero(t, btn.ScriptClicks)
}

func TestClick_FallsBackToScript(t *testing.T) {
	btn := &fake.Element{Tag: "a", ClickErr: errOverlay}
	d, _, _ := newTestDriver(t, fake.NewPage().Set("//a[@id='search-toggle']", btn))

	out, err := d.ClickOutcome(context.Background(), "//a[@id='search-toggle']")
	require.NoError(t, err)

	assert.Equal(t, StrategyScript, out.Strategy)
	assert.True(t, out.Fallback())
	require.Len(t, out.Attempts, 2)
	assert.ErrorIs(t, out.Attempts[0].Err, errOverlay)
	assert.Equal(t, 1, btn.ScriptClicks)
}

func TestClick_ElementNotFound(t *testing.T) {
	d, _, _ := newTestDriver(t, fake.NewPage())

	err := d.Click(context.Background(), "//button[@id='missing']")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrElementNotFound)
	var lerr *LadderError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "click", lerr.Action)
	assert.Len(t, lerr.Attempts, 2)
}

func TestClick_ScriptFailure(t *testing.T) {
	el := &fake.Element{ClickErr: errOverlay, EvalErr: errors.New("execution context destroyed")}
	d, _, _ := newTestDriver(t, fake.NewPage().Set("#x", el))

	err := d.Click(context.Background(), "#x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrElementNotFound)
	assert.ErrorContains(t, err, "execution context destroyed")
}

func TestClick_InvalidSelector(t *testing.T) {
	d, _, _ := newTestDriver(t, fake.NewPage())
	assert.ErrorIs(t, d.Click(context.Background(), "  "), ErrInvalidSelector)
}

func TestType_Standard(t *testing.T) {
	input := &fake.Element{Tag: "input", Value: "old"}
	d, _, _ := newTestDriver(t, fake.NewPage().Set("#q", input))

	out, err := d.TypeOutcome(context.Background(), "#q", "daycare", 0)
	require.NoError(t, err)

	assert.Equal(t, StrategyStandard, out.Strategy)
	assert.Equal(t, "daycare", input.Value)
}

func TestType_FallsBackToScript(t *testing.T) {
	input := &fake.Element{Tag: "input", FillErr: errOverlay}
	page := fake.NewPage().Set("#q", input)
	d, _, _ := newTestDriver(t, page)

	out, err := d.TypeOutcome(context.Background(), "#q", "Employee Education", 0)
	require.NoError(t, err)

	assert.Equal(t, StrategyScript, out.Strategy)
	assert.Equal(t, "Employee Education", input.Value)
	assert.Empty(t, page.Keys)
}

func TestType_FallsBackToKeyboard(t *testing.T) {
	// A contenteditable div rejects fill and is not an input for the script.
	editor := &fake.Element{Tag: "div", Value: "stale", FillErr: errOverlay}
	page := fake.NewPage().Set("#editor", editor)
	d, _, _ := newTestDriver(t, page)

	out, err := d.TypeOutcome(context.Background(), "#editor", "hello", 0)
	require.NoError(t, err)

	assert.Equal(t, StrategyKeyboard, out.Strategy)
	require.Len(t, out.Attempts, 3)
	assert.ErrorIs(t, out.Attempts[1].Err, errNotEditable)
	assert.Equal(t, []string{"Control+A", "Backspace"}, page.Keys)
	assert.Equal(t, "hello", page.Typed)
	assert.Equal(t, "hello", editor.Value)
	assert.Equal(t, 1, editor.Clicks)
}

func TestType_DefaultDelay(t *testing.T) {
	editor := &fake.Element{Tag: "div", FillErr: errOverlay}
	page := fake.NewPage().Set("#editor", editor)
	d, _, _ := newTestDriver(t, page)
	d.timings.TypeDelay = DefaultTimings().TypeDelay

	require.NoError(t, d.Type(context.Background(), "#editor", "ab"))
	assert.Contains(t, page.ActionLog(), `type "ab" delay=100ms`)
}

func TestType_ElementNotFound(t *testing.T) {
	page := fake.NewPage()
	d, _, _ := newTestDriver(t, page)

	_, err := d.TypeOutcome(context.Background(), "//input[@id='search-field'][1]", "x", 0)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrElementNotFound)
	var lerr *LadderError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "type", lerr.Action)
	assert.Len(t, lerr.Attempts, 3)
	assert.Empty(t, page.Keys, "keyboard must not be used without focus")
}

func TestGetText(t *testing.T) {
	page := fake.NewPage().
		Set("h1", &fake.Element{Text: "  Child Care  "}).
		Set("#empty", &fake.Element{})
	d, _, _ := newTestDriver(t, page)
	ctx := context.Background()

	text, err := d.GetText(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "  Child Care  ", text)

	text, err = d.GetText(ctx, "#empty")
	require.NoError(t, err)
	assert.Empty(t, text)

	text, err = d.GetText(ctx, "#none")
	assert.ErrorIs(t, err, fake.ErrNoMatch)
	assert.Empty(t, text)
}

func TestIsVisible_NeverFails(t *testing.T) {
	page := fake.NewPage().
		Set("#shown", &fake.Element{}).
		Set("#hidden", &fake.Element{Hidden: true}).
		Set("#broken", &fake.Element{VisibleErr: errors.New("node detached")})
	d, _, _ := newTestDriver(t, page)
	ctx := context.Background()

	assert.True(t, d.IsVisible(ctx, "#shown", 0))
	assert.False(t, d.IsVisible(ctx, "#hidden", 0))
	assert.False(t, d.IsVisible(ctx, "#broken", 0))
	assert.False(t, d.IsVisible(ctx, "#none", 0))
}

func TestWaitForVisible(t *testing.T) {
	page := fake.NewPage().
		Set("#shown", &fake.Element{}).
		Set("#hidden", &fake.Element{Hidden: true})
	d, _, _ := newTestDriver(t, page)
	ctx := context.Background()

	assert.NoError(t, d.WaitForVisible(ctx, "#shown", 0))
	assert.ErrorIs(t, d.WaitForVisible(ctx, "#hidden", 0), fake.ErrHidden)
}

func TestVerifyTextMinLength(t *testing.T) {
	page := fake.NewPage().
		Set("#title", &fake.Element{Text: "Back-Up Care Advantage"}).
		Set("#empty", &fake.Element{})
	d, _, _ := newTestDriver(t, page)
	ctx := context.Background()

	assert.True(t, d.VerifyTextMinLength(ctx, "#title", 15))
	assert.False(t, d.VerifyTextMinLength(ctx, "#title", 100))
	assert.True(t, d.VerifyTextMinLength(ctx, "#empty", 0))
	assert.False(t, d.VerifyTextMinLength(ctx, "#none", 0))
}

func TestVerifyExactText(t *testing.T) {
	page := fake.NewPage().Set("h3 a", &fake.Element{Text: "\n  Employee Education in 2018: Strategies to Watch \n"})
	d, _, _ := newTestDriver(t, page)
	ctx := context.Background()

	assert.True(t, d.VerifyExactText(ctx, "h3 a", "Employee Education in 2018: Strategies to Watch"))
	assert.True(t, d.VerifyExactText(ctx, "h3 a", "  Employee Education in 2018: Strategies to Watch"))
	assert.False(t, d.VerifyExactText(ctx, "h3 a", "Employee Education in 2018"))
	assert.False(t, d.VerifyExactText(ctx, "#none", ""))
}

func TestTakeScreenshot(t *testing.T) {
	page := fake.NewPage()
	d, _, dir := newTestDriver(t, page)
	ctx := context.Background()

	require.NoError(t, d.TakeScreenshot(ctx, "footer-sections"))
	require.NoError(t, d.TakeFullPageScreenshot(ctx, "final-state"))

	for _, name := range []string{"footer-sections.png", "final-state.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	assert.Equal(t, []bool{false, true}, page.Screenshots)
}

func TestTakeScreenshot_CaptureError(t *testing.T) {
	page := fake.NewPage()
	page.ScreenshotErr = errors.New("target closed")
	d, _, _ := newTestDriver(t, page)

	assert.ErrorContains(t, d.TakeScreenshot(context.Background(), "x"), "target closed")
}

func TestSnapshotHTML(t *testing.T) {
	page := fake.NewPage()
	page.Body = `<footer><h3>About Bright Horizons</h3><script>track()</script></footer>`
	d, _, dir := newTestDriver(t, page)

	path, err := d.SnapshotHTML(context.Background(), "error-state")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "error-state.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "About Bright Horizons")
	assert.NotContains(t, string(data), "track()")
}

func TestSnapshotHTML_LogsControls(t *testing.T) {
	page := fake.NewPage()
	page.Body = `<a id="search-toggle" href="#">Search</a><input id="search-field"><button type="submit">Go</button>`

	core, logs := observer.New(zapcore.DebugLevel)
	d := New(page, screenshot.NewStore(t.TempDir(), 0), logger.FromZap(zap.New(core)), quickOptions())

	_, err := d.SnapshotHTML(context.Background(), "error-state")
	require.NoError(t, err)

	written := logs.FilterMessage("DOM snapshot written").All()
	require.Len(t, written, 1)
	assert.EqualValues(t, 3, written[0].ContextMap()["controls"])

	controls := logs.FilterMessage("Page control").All()
	require.Len(t, controls, 3)
	assert.Equal(t, "#search-toggle", controls[0].ContextMap()["selector"])
	assert.Equal(t, "field", controls[1].ContextMap()["kind"])
}

func TestScroll(t *testing.T) {
	page := fake.NewPage()
	var scripts []string
	page.OnEvaluate = func(script string, arg any) (any, error) {
		scripts = append(scripts, script)
		return nil, nil
	}
	d, _, _ := newTestDriver(t, page)
	ctx := context.Background()

	require.NoError(t, d.ScrollToBottom(ctx))
	require.NoError(t, d.ScrollToTop(ctx))

	assert.Equal(t, []any{0.8, 0}, page.Evaluated)
	require.Len(t, scripts, 2)
	assert.Contains(t, scripts[0], "scrollHeight")
}

func TestWaitForPageLoad_SwallowsTimeout(t *testing.T) {
	page := fake.NewPage()
	page.LoadErr = errors.New("timeout 10000ms exceeded")
	d, _, _ := newTestDriver(t, page)

	assert.NoError(t, d.WaitForPageLoad(context.Background()))
	assert.Contains(t, page.ActionLog(), "wait domcontentloaded")
}

func TestWaitForPageLoad_Cancelled(t *testing.T) {
	page := fake.NewPage()
	page.LoadErr = context.Canceled
	d, _, _ := newTestDriver(t, page)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.WaitForPageLoad(ctx), context.Canceled)
}

func searchPage() (*fake.Page, *fake.Element) {
	input := &fake.Element{Tag: "input"}
	page := fake.NewPage().
		Set("#toggle", &fake.Element{Tag: "a"}).
		Set("#field", input).
		Set("#submit", &fake.Element{Tag: "button"})
	return page, input
}

func TestPerformSearch_Order(t *testing.T) {
	page, input := searchPage()
	d, _, _ := newTestDriver(t, page)

	controls := entity.SearchControls{Trigger: "#toggle", Input: "#field", Submit: "#submit"}
	require.NoError(t, d.PerformSearch(context.Background(), controls, "infant care"))

	assert.Equal(t, "infant care", input.Value)
	assert.Equal(t, []string{
		"click #toggle",
		`fill #field "infant care"`,
		"click #submit",
		"wait domcontentloaded",
	}, page.ActionLog())
}

func TestSearch_Order(t *testing.T) {
	page, input := searchPage()
	d, _, _ := newTestDriver(t, page)

	controls := entity.SearchControls{Trigger: "#toggle", Input: "#field", Submit: "#submit"}
	require.NoError(t, d.Search(context.Background(), controls, "preschool"))

	assert.Equal(t, "preschool", input.Value)
	assert.Equal(t, "wait domcontentloaded", page.ActionLog()[3])
}

func TestPerformSearch_MissingTrigger(t *testing.T) {
	page := fake.NewPage()
	d, _, _ := newTestDriver(t, page)

	controls := entity.SearchControls{Trigger: "#toggle", Input: "#field", Submit: "#submit"}
	err := d.PerformSearch(context.Background(), controls, "x")
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestPause_HonoursContext(t *testing.T) {
	d := New(fake.NewPage(), nil, logger.Nop(), quickOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Pause(ctx, DefaultTimings().Wait), context.Canceled)
	assert.NoError(t, d.Pause(context.Background(), 0))
}
