package discovery

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// DiscoverTotalPages fetches seedURL and reads the total page count from its
// pagination control. When the seed cannot be fetched it returns (1, true)
// so the crawl degrades to a single page. When the page has no usable
// control it returns (0, false) and the caller has to choose an end page.
func (f *Fetcher) DiscoverTotalPages(ctx context.Context, seedURL string) (int, bool) {
	doc, err := f.FetchHTML(ctx, seedURL)
	if err != nil {
		f.log.WithFields(logrus.Fields{"url": seedURL, "error": err}).
			Warn("Pagination discovery failed, crawling a single page")
		return 1, true
	}

	total, ok := TotalPagesFromDocument(doc, f.list.PaginationSelector)
	if !ok {
		f.log.WithField("url", seedURL).Warn("No pagination control found")
	}
	return total, ok
}

// TotalPagesFromDocument parses the second-to-last link of the pagination
// control as the page count. The last link is the "next" arrow.
func TotalPagesFromDocument(doc *goquery.Document, selector string) (int, bool) {
	if selector == "" {
		return 0, false
	}

	control := doc.Find(selector).First()
	if control.Length() == 0 {
		return 0, false
	}

	links := control.Find("a")
	if links.Length() < 2 {
		return 0, false
	}

	text := strings.TrimSpace(links.Eq(links.Length() - 2).Text())
	text = strings.ReplaceAll(text, ",", "")

	total, err := strconv.Atoi(text)
	if err != nil || total < 1 {
		return 0, false
	}

	return total, true
}
