package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/repackfed/config"
	"github.com/pevans/repackfed/history"
	"github.com/pevans/repackfed/logging"
	"github.com/pevans/repackfed/repack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: a three page site whose second page is broken
func createTestSite(t *testing.T) *httptest.Server {
	pagination := `<div class="pagination"><a href="/page/1">1</a><a href="/page/2">2</a><a href="/page/3">3</a><a href="/page/2">»</a></div>`

	mux := http.NewServeMux()
	for _, page := range []int{1, 3} {
		body := fmt.Sprintf(`<html><body>
			<article><h1 class="entry-title">Game %d</h1>
			<div class="entry-content"><p><strong>Action</strong><strong>Studio</strong><strong>ENG</strong><strong>1 GB</strong><strong>500 MB</strong></p></div>
			</article>
			<article><h1 class="entry-title">Upcoming Repacks</h1></article>
			%s</body></html>`, page, pagination)
		mux.HandleFunc(fmt.Sprintf("/page/%d", page), func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(body))
		})
	}
	mux.HandleFunc("/page/2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// Test helper: config pointing at the test site with outputs in a temp dir
func createTestConfig(t *testing.T, baseURL string) *config.FileConfig {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Profile.ListConfig.BaseURL = baseURL
	cfg.Crawl.Concurrency = 2
	cfg.Crawl.Timeout = 2 * time.Second
	cfg.Output.Path = filepath.Join(dir, "data.json")
	cfg.History.DSN = filepath.Join(dir, "history.db")
	return cfg
}

// TestRun_DiscoversAndSkipsFailedPages verifies an end to end scrape
func TestRun_DiscoversAndSkipsFailedPages(t *testing.T) {
	server := createTestSite(t)
	cfg := createTestConfig(t, server.URL)

	err := run(context.Background(), cfg, logging.Discard())
	require.NoError(t, err, "page failures should not fail the run")

	records, err := repack.LoadCollection(cfg.Output.Path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Game 1", records[0].Title)
	assert.Equal(t, "Game 3", records[1].Title)
	assert.Equal(t, []string{"Action"}, records[0].Genre)
	assert.Equal(t, "500 MB", records[0].RepackSize)

	store, err := history.NewRunStore(cfg.History.DSN)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].StartPage)
	assert.Equal(t, 4, runs[0].EndPage)
	assert.Equal(t, 2, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Failed)

	got, err := store.GetRun(runs[0].RunID)
	require.NoError(t, err)
	require.Len(t, got.Failures, 1)
	assert.Equal(t, 2, got.Failures[0].Page)
}

// TestRun_ExplicitEndPage verifies a configured end page skips discovery
func TestRun_ExplicitEndPage(t *testing.T) {
	server := createTestSite(t)
	cfg := createTestConfig(t, server.URL)
	cfg.Crawl.EndPage = 1
	cfg.History.DSN = ""

	require.NoError(t, run(context.Background(), cfg, logging.Discard()))

	records, err := repack.LoadCollection(cfg.Output.Path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Game 1", records[0].Title)
}

// TestRun_StartBeyondDiscoveredPages verifies the crawl falls back to
// fallback_pages instead of an empty range
func TestRun_StartBeyondDiscoveredPages(t *testing.T) {
	server := createTestSite(t)
	cfg := createTestConfig(t, server.URL)
	cfg.Crawl.StartPage = 5

	require.NoError(t, run(context.Background(), cfg, logging.Discard()))

	store, err := history.NewRunStore(cfg.History.DSN)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 5, runs[0].StartPage)
	assert.Equal(t, 6, runs[0].EndPage)
	assert.Equal(t, 1, runs[0].Failed, "page 5 does not exist on the test site")
}

// TestRun_UnwritableOutput verifies a persist failure is returned
func TestRun_UnwritableOutput(t *testing.T) {
	server := createTestSite(t)
	cfg := createTestConfig(t, server.URL)
	cfg.Output.Path = filepath.Join(t.TempDir(), "missing", "data.json")

	err := run(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}

// TestParseFlags_Overrides verifies only given flags replace config values
func TestParseFlags_Overrides(t *testing.T) {
	opts, err := parseFlags([]string{"-output", "out.json", "-end", "5", "-history", ""})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.History.DSN = "history.db"
	cfg.Crawl.Concurrency = 7
	require.NoError(t, opts.apply(cfg))

	assert.Equal(t, "out.json", cfg.Output.Path)
	assert.Equal(t, 5, cfg.Crawl.EndPage)
	assert.Empty(t, cfg.History.DSN)
	assert.Equal(t, 7, cfg.Crawl.Concurrency)
	assert.Equal(t, 1, cfg.Crawl.StartPage)
}

// TestParseFlags_EnvDefaults verifies env vars act as given flags
func TestParseFlags_EnvDefaults(t *testing.T) {
	t.Setenv("REPACKFED_CONCURRENCY", "3")
	t.Setenv("REPACKFED_FETCH_TIMEOUT", "30s")

	opts, err := parseFlags(nil)
	require.NoError(t, err)

	cfg := config.Default()
	require.NoError(t, opts.apply(cfg))

	assert.Equal(t, 3, cfg.Crawl.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Crawl.Timeout)
}

// TestParseFlags_Invalid verifies invalid overrides are rejected
func TestParseFlags_Invalid(t *testing.T) {
	opts, err := parseFlags([]string{"-start", "4", "-end", "2"})
	require.NoError(t, err)

	err = opts.apply(config.Default())
	assert.ErrorIs(t, err, config.ErrEndBeforeStart)

	_, err = parseFlags([]string{"-bogus"})
	assert.Error(t, err)
}
