//go:build browser

package rod

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"brighthorizons-e2e/internal/domain/entity"
	"brighthorizons-e2e/internal/driver"
	"brighthorizons-e2e/internal/infrastructure/logger"
	"brighthorizons-e2e/internal/infrastructure/screenshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchHTML = `<!DOCTYPE html>
<html>
<body>
	<button id="toggle">Search</button>
	<form id="search" style="display:none">
		<input id="search-field" type="search" />
		<button id="go" type="button">Go</button>
	</form>
	<input id="locked" type="text" readonly value="fixed" />
	<input id="typed" type="text" data-keydowns="0" />
	<div id="result"></div>
	<footer>
		<h3>Child Care and Early Education</h3>
		<h3>Back-Up Care for Families</h3>
	</footer>
	<script>
		document.getElementById('toggle').addEventListener('click', function() {
			document.getElementById('search').style.display = 'block';
		});
		document.getElementById('typed').addEventListener('keydown', function(e) {
			e.target.dataset.keydowns = String(Number(e.target.dataset.keydowns) + 1);
		});
		document.getElementById('go').addEventListener('click', function() {
			document.getElementById('result').textContent = document.getElementById('search-field').value;
		});
	</script>
</body>
</html>`

func openPage(t *testing.T) (*PageAdapter, string) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, searchHTML)
	}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	b, err := NewEngine(DefaultConfig()).Launch(ctx, entity.LaunchOptions{
		Kind:     entity.BrowserChromium,
		Headless: true,
		Args:     []string{"--window-size=1280,800"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	p, err := b.NewPage(ctx, entity.Viewport{Width: 1280, Height: 800})
	require.NoError(t, err)
	return p.(*PageAdapter), server.URL
}

func TestPageAdapter_NavigateAndRead(t *testing.T) {
	page, url := openPage(t)
	ctx := context.Background()

	require.NoError(t, page.Navigate(ctx, url))
	require.NoError(t, page.WaitLoad(ctx, entity.LoadStateDOMContentLoaded, 5*time.Second))
	assert.Equal(t, url+"/", page.URL())

	titles, err := page.Locator("//footer//h3").AllTextContents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Child Care and Early Education", "Back-Up Care for Families"}, titles)

	n, err := page.Locator("footer h3").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPageAdapter_SearchFlow(t *testing.T) {
	page, url := openPage(t)
	ctx := context.Background()
	require.NoError(t, page.Navigate(ctx, url))

	visible, err := page.Locator("#search-field").IsVisible(ctx, time.Second)
	require.NoError(t, err)
	assert.False(t, visible)

	require.NoError(t, page.Locator("#toggle").Click(ctx, 2*time.Second))
	require.NoError(t, page.Locator("#search-field").WaitVisible(ctx, 2*time.Second))
	require.NoError(t, page.Locator("#search-field").Fill(ctx, "Employee", 2*time.Second))

	require.NoError(t, page.Press(ctx, "Control+A"))
	require.NoError(t, page.Press(ctx, "Backspace"))
	require.NoError(t, page.Type(ctx, "Employee Education", 0))

	require.NoError(t, page.Locator("#go").Click(ctx, 2*time.Second))
	text, err := page.Locator("#result").TextContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Employee Education", text)
}

func TestPageAdapter_EvaluateAndCapture(t *testing.T) {
	page, url := openPage(t)
	ctx := context.Background()
	require.NoError(t, page.Navigate(ctx, url))

	got, err := page.Locator("#search-field").Evaluate(ctx, `(node, arg) => node.tagName.toLowerCase() + ':' + arg`, "x")
	require.NoError(t, err)
	assert.Equal(t, "input:x", got)

	height, err := page.Evaluate(ctx, `() => document.body.scrollHeight > 0`, nil)
	require.NoError(t, err)
	assert.Equal(t, true, height)

	png, err := page.Screenshot(ctx, true)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	html, err := page.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "search-field")
}

func TestLocator_MissingElementTimesOut(t *testing.T) {
	page, url := openPage(t)
	ctx := context.Background()
	require.NoError(t, page.Navigate(ctx, url))

	err := page.Locator("#nope").Click(ctx, 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestLocator_MissingElementDoesNotWait(t *testing.T) {
	page, url := openPage(t)
	ctx := context.Background()
	require.NoError(t, page.Navigate(ctx, url))

	start := time.Now()
	_, err := page.Locator("#missing").TextContent(ctx)
	assert.ErrorIs(t, err, ErrElementNotFound)

	_, err = page.Locator("//section[@id='missing']").Evaluate(ctx, `(node) => node.id`, nil)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestDriver_VerifyExactTextMissingIsFalse(t *testing.T) {
	page, url := openPage(t)
	ctx := context.Background()
	require.NoError(t, page.Navigate(ctx, url))

	d := driver.New(page, screenshot.NewStore(t.TempDir(), 0), logger.Nop(), driver.Options{
		Kind:    entity.BrowserChromium,
		Timings: driver.Timings{},
	})

	start := time.Now()
	assert.False(t, d.VerifyExactText(ctx, "#missing", "anything"))
	assert.False(t, d.VerifyTextMinLength(ctx, "#missing", 1))
	assert.Less(t, time.Since(start), 3*time.Second)

	assert.True(t, d.VerifyExactText(ctx, "//footer//h3", "Child Care and Early Education"))
}

func TestLocator_ClearReadonlyRespectsTimeout(t *testing.T) {
	page, url := openPage(t)
	ctx := context.Background()
	require.NoError(t, page.Navigate(ctx, url))

	start := time.Now()
	err := page.Locator("#locked").Clear(ctx, 300*time.Millisecond)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestPageAdapter_TypeSendsKeyEvents(t *testing.T) {
	page, url := openPage(t)
	ctx := context.Background()
	require.NoError(t, page.Navigate(ctx, url))

	require.NoError(t, page.Locator("#typed").Click(ctx, 2*time.Second))
	require.NoError(t, page.Type(ctx, "Employee é", 0))

	got, err := page.Locator("#typed").Evaluate(ctx, `(node) => node.value + '|' + node.dataset.keydowns`, nil)
	require.NoError(t, err)
	// Nine mapped keys; the accented rune is inserted as text.
	assert.Equal(t, "Employee é|9", got)
}
