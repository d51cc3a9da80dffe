package discovery

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/repackfed/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: RSS document with WordPress-style encoded content
func rssFixture() string {
	content := html.EscapeString(`<p>Genres/Tags: <strong>Racing</strong><br>Companies: <strong>Speed Co</strong><br>Languages: <strong>ENG</strong><br>Original Size: <strong>8 GB</strong><br>Repack Size: <strong>3 GB</strong></p>
<h3>Repack Features</h3><ul><li>Fast install</li></ul>
<ul><li><a href="magnet:?xt=urn:btih:feed">magnet</a></li></ul>`)

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
	<title>Repacks</title>
	<link>https://example.com</link>
	<item>
		<title>Speed Racer Repack</title>
		<link>https://example.com/speed-racer/</link>
		<pubDate>Wed, 01 May 2024 12:00:00 +0000</pubDate>
		<category>Lossless Repack</category>
		<content:encoded>%s</content:encoded>
	</item>
	<item>
		<title>Upcoming Repacks</title>
		<link>https://example.com/upcoming/</link>
		<pubDate>Tue, 30 Apr 2024 12:00:00 +0000</pubDate>
	</item>
</channel>
</rss>`, content)
}

// TestFetchLatest_ParsesFeed verifies feed items become records
func TestFetchLatest_ParsesFeed(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml; charset=UTF-8")
		fmt.Fprint(w, rssFixture())
	}))
	defer server.Close()

	profile := testProfile(server.URL)
	fetcher := NewFetcher(profile, 0, nil)

	records, err := fetcher.FetchLatest(context.Background(), profile.ListConfig.FeedURL, profile.ArticleConfig)
	require.NoError(t, err)

	assert.Equal(t, scraper.DefaultUserAgent, gotUA)
	require.Len(t, records, 1, "upcoming item should be excluded")

	r := records[0]
	assert.Equal(t, "Speed Racer Repack", r.Title)
	assert.Equal(t, "2024-05-01T12:00:00Z", r.Date)
	assert.Equal(t, []string{"Racing"}, r.Genre)
	assert.Equal(t, []string{"Speed Co"}, r.Companies)
	assert.Equal(t, "8 GB", r.OriginalSize)
	assert.Equal(t, "3 GB", r.RepackSize)
	assert.Equal(t, []string{"Fast install"}, r.Features)
	assert.Equal(t, []string{"magnet:?xt=urn:btih:feed"}, r.DownloadLinks)
	assert.Nil(t, r.Categories)
}

// TestFetchLatest_BadStatus verifies fetch errors are returned
func TestFetchLatest_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := NewFetcher(testProfile(server.URL), 0, nil)

	_, err := fetcher.FetchLatest(context.Background(), server.URL, scraper.DefaultArticleConfig())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

// TestFetchLatest_InvalidFeed verifies parse failures are reported
func TestFetchLatest_InvalidFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	}))
	defer server.Close()

	fetcher := NewFetcher(testProfile(server.URL), 0, nil)

	_, err := fetcher.FetchLatest(context.Background(), server.URL, scraper.DefaultArticleConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse feed")
}

// TestFeedItemToRecord_Categories verifies categories follow the profile
func TestFeedItemToRecord_Categories(t *testing.T) {
	config := scraper.DefaultArticleConfig()
	config.CategorySelector = "span.cat-links a"
	item := &gofeed.Item{
		Title:      "  Some   Game ",
		Published:  "yesterday",
		Categories: []string{"Lossless Repack", "Action"},
	}

	record, ok := FeedItemToRecord(item, config)

	require.True(t, ok)
	assert.Equal(t, "Some Game", record.Title)
	assert.Equal(t, "yesterday", record.Date)
	assert.Equal(t, []string{"Lossless Repack", "Action"}, record.Categories)
	assert.Empty(t, record.Genre)
}

// TestFeedItemToRecord_NoTitle verifies untitled items are dropped
func TestFeedItemToRecord_NoTitle(t *testing.T) {
	_, ok := FeedItemToRecord(&gofeed.Item{}, scraper.DefaultArticleConfig())

	assert.False(t, ok)
}
