package discovery

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/pevans/repackfed/logging"
	"github.com/pevans/repackfed/repack"
	"github.com/pevans/repackfed/scraper"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// PageFetcher fetches listing pages by index. *Fetcher implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, index int) (*goquery.Document, error)
	PageURL(index int) string
}

// DefaultConcurrency returns the worker bound used when none is configured:
// NumCPU+4, capped at 32.
func DefaultConcurrency() int {
	return min(32, runtime.NumCPU()+4)
}

// PageResult is the outcome of one page task. Err is nil on success.
type PageResult struct {
	Page     int
	URL      string
	Records  []repack.Record
	Skipped  []ExtractError
	Err      error
	Duration time.Duration
}

// OK reports whether the page was fetched and parsed.
func (r PageResult) OK() bool {
	return r.Err == nil
}

// CrawlResult summarizes a crawl. Pages and Records are in page order.
type CrawlResult struct {
	RunID      uuid.UUID
	StartPage  int
	EndPage    int // exclusive
	StartedAt  time.Time
	FinishedAt time.Time
	Pages      []PageResult
	Records    []repack.Record
	Succeeded  int
	Failed     int
}

// Failures returns the pages that failed, in page order.
func (r *CrawlResult) Failures() []PageResult {
	var failures []PageResult
	for _, page := range r.Pages {
		if !page.OK() {
			failures = append(failures, page)
		}
	}
	return failures
}

// Crawler runs one fetch+extract task per page on a bounded pool and merges
// the results.
type Crawler struct {
	fetcher     PageFetcher
	list        scraper.ListConfig
	article     scraper.ArticleConfig
	concurrency int
	log         logrus.FieldLogger
}

// NewCrawler creates a crawler. A concurrency below 1 uses
// DefaultConcurrency.
func NewCrawler(fetcher PageFetcher, profile scraper.Profile, concurrency int, log logrus.FieldLogger) *Crawler {
	if concurrency < 1 {
		concurrency = DefaultConcurrency()
	}
	if log == nil {
		log = logging.Discard()
	}

	return &Crawler{
		fetcher:     fetcher,
		list:        profile.ListConfig,
		article:     profile.ArticleConfig,
		concurrency: concurrency,
		log:         log,
	}
}

// Crawl fetches pages [start, end) and returns the merged result. A failed
// page is logged and counted but never stops the crawl or its siblings.
// Cancelling ctx stops dispatching; pages that were never started are
// reported as failed.
func (c *Crawler) Crawl(ctx context.Context, start, end int) *CrawlResult {
	result := &CrawlResult{
		RunID:     uuid.New(),
		StartPage: start,
		EndPage:   end,
		StartedAt: time.Now(),
		Records:   []repack.Record{},
	}
	total := max(end-start, 0)
	log := c.log.WithField("run_id", result.RunID)

	log.WithFields(logrus.Fields{
		"start":   start,
		"end":     end,
		"workers": c.concurrency,
	}).Infof("Crawling %d pages", total)

	results := make(chan PageResult)
	go c.dispatch(ctx, start, end, results)

	// Only this loop touches the accumulator and the progress counter.
	byPage := make(map[int]PageResult, total)
	done := 0
	for res := range results {
		done++
		byPage[res.Page] = res

		pageLog := log.WithFields(logrus.Fields{
			"page":     res.Page,
			"progress": fmt.Sprintf("%d/%d", done, total),
		})

		if !res.OK() {
			result.Failed++
			pageLog.WithField("reason", res.Err).Error("Page failed")
			continue
		}

		result.Succeeded++
		for _, skipped := range res.Skipped {
			pageLog.WithField("reason", skipped.Err).Warnf("Skipped article %d", skipped.Position)
		}
		pageLog.WithField("records", len(res.Records)).Info("Page done")
	}

	for page := start; page < end; page++ {
		res, ok := byPage[page]
		if !ok {
			continue
		}
		result.Pages = append(result.Pages, res)
		if res.OK() {
			result.Records = append(result.Records, res.Records...)
		}
	}

	result.FinishedAt = time.Now()
	log.WithFields(logrus.Fields{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"records":   len(result.Records),
		"elapsed":   result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
	}).Info("Crawl finished")

	return result
}

// dispatch starts one task per page, holding a semaphore slot for each so no
// more than c.concurrency tasks exist at once. It closes results after the
// last task has reported.
func (c *Crawler) dispatch(ctx context.Context, start, end int, results chan<- PageResult) {
	sem := semaphore.NewWeighted(int64(c.concurrency))
	var wg sync.WaitGroup

	for page := start; page < end; page++ {
		err := ctx.Err()
		if err == nil {
			err = sem.Acquire(ctx, 1)
		}
		if err != nil {
			for p := page; p < end; p++ {
				results <- PageResult{
					Page: p,
					URL:  c.fetcher.PageURL(p),
					Err:  fmt.Errorf("page not fetched: %w", err),
				}
			}
			break
		}

		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			defer sem.Release(1)

			results <- c.crawlPage(ctx, page)
		}(page)
	}

	wg.Wait()
	close(results)
}

// crawlPage fetches one page and extracts its records. Once dispatched, a
// page is allowed to finish: cancelling ctx does not abort its request, the
// fetch timeout still bounds it.
func (c *Crawler) crawlPage(ctx context.Context, page int) PageResult {
	startTime := time.Now()
	res := PageResult{
		Page: page,
		URL:  c.fetcher.PageURL(page),
	}

	doc, err := c.fetcher.FetchPage(context.WithoutCancel(ctx), page)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(startTime)
		return res
	}

	extracted := ExtractArticles(doc, c.list.ArticleSelector, c.article)
	res.Records = extracted.Records
	res.Skipped = extracted.Skipped
	res.Duration = time.Since(startTime)

	return res
}
