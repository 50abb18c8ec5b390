package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alphaPage = `<html><head><title>Alpha</title></head><body>
<a href="/wiki/Sidebar">outside content</a>
<div id="mw-content-text">
  <div class="hatnote"><a href="/wiki/Alpha_(disambiguation)">see also</a></div>
  <p>
    <a href="/wiki/Beta">Beta</a>
    <a href="/wiki/Gamma#History">Gamma</a>
    <a href="/wiki/File:Alpha.png">image</a>
    <a href="https://example.com/">external</a>
    <a href="/wiki/Beta">Beta again</a>
  </p>
  <table class="infobox vcard"><tr><td><a href="/wiki/Info">info</a></td></tr></table>
  <div class="navbox"><ul><li><a href="/wiki/Nav">nav</a></li></ul></div>
  <p><a href="/wiki/Delta">Delta</a></p>
</div>
</body></html>`

type wikiServer struct {
	*httptest.Server
	mu    sync.Mutex
	hits  map[string]int
	flaky int
}

func newWikiServer(t *testing.T) *wikiServer {
	t.Helper()
	ws := &wikiServer{hits: make(map[string]int), flaky: 2}

	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/", func(w http.ResponseWriter, r *http.Request) {
		ws.mu.Lock()
		ws.hits[r.URL.Path]++
		hits := ws.hits[r.URL.Path]
		ws.mu.Unlock()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/wiki/Alpha":
			fmt.Fprint(w, alphaPage)
		case "/wiki/Empty":
			fmt.Fprint(w, `<html><body><div id="mw-content-text"><p>No links here.</p></div></body></html>`)
		case "/wiki/NoContent":
			fmt.Fprint(w, `<html><body><a href="/wiki/Beta">Beta</a></body></html>`)
		case "/wiki/Flaky":
			if hits <= ws.flaky {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `<html><body><div id="mw-content-text"><a href="/wiki/Alpha">Alpha</a></div></body></html>`)
		case "/wiki/Ender's_Game":
			fmt.Fprint(w, `<html><body><div id="mw-content-text"><a href="/wiki/AT%26T">AT&amp;T</a> <a href="/wiki/Caf%C3%A9">Café</a></div></body></html>`)
		case "/wiki/Down":
			http.Error(w, "down", http.StatusInternalServerError)
		case "/wiki/Special:Random":
			http.Redirect(w, r, "/wiki/Random_Article", http.StatusFound)
		case "/wiki/Random_Article":
			fmt.Fprint(w, `<html><body><div id="mw-content-text"></div></body></html>`)
		default:
			http.NotFound(w, r)
		}
	})

	ws.Server = httptest.NewServer(mux)
	t.Cleanup(ws.Close)
	return ws
}

func (ws *wikiServer) hitCount(path string) int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.hits[path]
}

func newTestCrawler(t *testing.T, baseURL string, attempts int) *Crawler {
	t.Helper()
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.RequestsPerSecond = -1
	cfg.RetryAttempts = attempts
	cfg.RetryDelayMs = 1
	cfg.RetryMaxDelayMs = 5
	require.NoError(t, cfg.Validate())
	return NewCrawler(cfg, nil)
}

func TestFetchNeighbors_FiltersAndOrdersLinks(t *testing.T) {
	ws := newWikiServer(t)
	c := newTestCrawler(t, ws.URL, 3)

	links, err := c.FetchNeighbors(context.Background(), "Alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta", "Gamma", "Delta"}, links)
}

func TestFetchNeighbors_DecodesTitles(t *testing.T) {
	ws := newWikiServer(t)
	c := newTestCrawler(t, ws.URL, 3)

	links, err := c.FetchNeighbors(context.Background(), NormalizeTitle("Ender's Game"))
	require.NoError(t, err)
	assert.Equal(t, []string{"AT&T", "Café"}, links)
	assert.Equal(t, 1, ws.hitCount("/wiki/Ender's_Game"))
}

func TestFetchNeighbors_DeadEnds(t *testing.T) {
	ws := newWikiServer(t)
	c := newTestCrawler(t, ws.URL, 5)

	for _, title := range []string{"Empty", "NoContent", "Missing"} {
		t.Run(title, func(t *testing.T) {
			_, err := c.FetchNeighbors(context.Background(), title)
			assert.ErrorIs(t, err, ErrDeadEnd)
			// Dead ends are never retried
			assert.Equal(t, 1, ws.hitCount("/wiki/"+title))
		})
	}
}

func TestFetchNeighbors_RetriesTransientFailures(t *testing.T) {
	ws := newWikiServer(t)

	var mu sync.Mutex
	fetched, failed := 0, 0
	cfg := config.Default()
	cfg.BaseURL = ws.URL
	cfg.RequestsPerSecond = 1000
	cfg.RetryDelayMs = 1
	cfg.RetryMaxDelayMs = 5
	c := NewCrawler(cfg, func(ok, bad int, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		fetched += ok
		failed += bad
	})

	links, err := c.FetchNeighbors(context.Background(), "Flaky")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, links)
	assert.Equal(t, 3, ws.hitCount("/wiki/Flaky"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, fetched)
	assert.Equal(t, 2, failed)
}

func TestFetchNeighbors_GivesUpAfterMaxAttempts(t *testing.T) {
	ws := newWikiServer(t)
	c := newTestCrawler(t, ws.URL, 3)

	_, err := c.FetchNeighbors(context.Background(), "Down")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDeadEnd)
	assert.Equal(t, 3, ws.hitCount("/wiki/Down"))
}

func TestFetchNeighbors_StopsOnCancelledContext(t *testing.T) {
	ws := newWikiServer(t)
	c := newTestCrawler(t, ws.URL, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchNeighbors(ctx, "Down")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRandomTitle_FollowsRedirect(t *testing.T) {
	ws := newWikiServer(t)
	c := newTestCrawler(t, ws.URL, 3)

	title, err := c.RandomTitle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Random_Article", title)
}

func TestIsPermanentStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{0, false},
		{http.StatusNotFound, true},
		{http.StatusGone, true},
		{http.StatusForbidden, true},
		{http.StatusRequestTimeout, false},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isPermanentStatus(tt.status), "status %d", tt.status)
	}
}
