package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/repackfed/repack"
	"github.com/pevans/repackfed/scraper"
	"github.com/sirupsen/logrus"
)

// FetchLatest reads the site's RSS or Atom feed and turns each item into a
// record, applying the same body rules as listing pages to the item's HTML
// content. Items without a title or with an excluded title are dropped.
func (f *Fetcher) FetchLatest(ctx context.Context, feedURL string, config scraper.ArticleConfig) ([]repack.Record, error) {
	body, err := f.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	records := make([]repack.Record, 0, len(feed.Items))
	for _, item := range feed.Items {
		record, ok := FeedItemToRecord(item, config)
		if !ok {
			f.log.WithField("link", item.Link).Debug("Skipping feed item")
			continue
		}
		records = append(records, record)
	}

	f.log.WithFields(logrus.Fields{
		"feed":    feedURL,
		"items":   len(feed.Items),
		"records": len(records),
	}).Debug("Read feed")

	return records, nil
}

// FeedItemToRecord converts one feed item. ok is false for items that would
// be skipped on a listing page.
func FeedItemToRecord(item *gofeed.Item, config scraper.ArticleConfig) (repack.Record, bool) {
	title := normalizeText(item.Title)
	if title == "" || config.IsExcluded(title) {
		return repack.Record{}, false
	}

	record := repack.NewRecord(title)

	if item.PublishedParsed != nil {
		record.Date = item.PublishedParsed.Format(time.RFC3339)
	} else {
		record.Date = strings.TrimSpace(item.Published)
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}
	if content != "" {
		// The feed carries only the entry body, so give it the wrapper the
		// listing page has around it.
		wrapped := `<div class="entry-content">` + content + `</div>`
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(wrapped)); err == nil {
			extractFields(doc.Selection, config, &record)
		}
	}

	if config.CategorySelector != "" {
		record.Categories = append([]string{}, item.Categories...)
	}

	return record, true
}
