package discovery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/repackfed/repack"
	"github.com/pevans/repackfed/scraper"
)

// ErrMissingTitle is returned for an article without a usable title.
var ErrMissingTitle = errors.New("article has no title")

// ExtractError describes an article that could not be turned into a record.
// Position is the article's 0-based index on its page.
type ExtractError struct {
	Position int
	Err      error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("article %d: %v", e.Position, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// ExtractResult holds the records found on one page along with any articles
// that were skipped because they were structurally broken. Excluded
// placeholder articles appear in neither list.
type ExtractResult struct {
	Records []repack.Record
	Skipped []ExtractError
}

// ExtractArticles walks every node matching articleSelector in document
// order and extracts a record from each.
func ExtractArticles(doc *goquery.Document, articleSelector string, config scraper.ArticleConfig) *ExtractResult {
	result := &ExtractResult{Records: []repack.Record{}}

	doc.Find(articleSelector).Each(func(i int, s *goquery.Selection) {
		record, keep, err := ExtractArticle(s, config)
		if err != nil {
			result.Skipped = append(result.Skipped, ExtractError{Position: i, Err: err})
			return
		}
		if keep {
			result.Records = append(result.Records, record)
		}
	})

	return result
}

// ExtractArticle extracts one record from an article node. keep is false
// when the title carries an exclusion marker. A missing title is the only
// error; every other field falls back to its empty value.
func ExtractArticle(s *goquery.Selection, config scraper.ArticleConfig) (record repack.Record, keep bool, err error) {
	title := normalizeText(s.Find(config.TitleSelector).First().Text())
	if title == "" {
		return repack.Record{}, false, ErrMissingTitle
	}

	if config.IsExcluded(title) {
		return repack.Record{}, false, nil
	}

	record = repack.NewRecord(title)
	record.Date = extractDate(s, config)
	extractFields(s, config, &record)

	return record, true, nil
}

// extractFields applies the body rules (links, screenshots, features,
// metadata, categories) to s. Each rule leaves its field empty when its
// markup is absent.
func extractFields(s *goquery.Selection, config scraper.ArticleConfig, record *repack.Record) {
	if config.LinkSelector != "" {
		record.DownloadLinks = collectAttr(s.Find(config.LinkSelector), "href")
	}

	if config.ScreenshotSelector != "" {
		record.Screenshots = collectAttr(s.Find(config.ScreenshotSelector), "src")
	}

	if config.FeatureSelector != "" {
		record.Features = collectText(s.Find(config.FeatureSelector))
	}

	if config.MetadataSelector != "" {
		extractMetadata(s.Find(config.MetadataSelector).First(), record)
	}

	if config.CategorySelector != "" {
		record.Categories = collectText(s.Find(config.CategorySelector))
	}
}

// extractDate reads the machine-readable date attribute, or "" when the
// element or attribute is missing.
func extractDate(s *goquery.Selection, config scraper.ArticleConfig) string {
	if config.DateSelector == "" {
		return ""
	}

	attr := config.DateAttribute
	if attr == "" {
		attr = "datetime"
	}

	date, _ := s.Find(config.DateSelector).First().Attr(attr)
	return strings.TrimSpace(date)
}

// extractMetadata reads the strong spans of the metadata paragraph by
// position: the last two are original and repack size, the leading three
// are genres, companies and languages. A span feeds at most one field and
// the size fields win when there are fewer than five spans.
func extractMetadata(p *goquery.Selection, record *repack.Record) {
	spans := p.ChildrenFiltered("strong").Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	n := len(spans)

	if n >= 1 {
		record.RepackSize = spans[n-1]
	}
	if n >= 2 {
		record.OriginalSize = spans[n-2]
	}

	// Leading positions still free once the sizes are taken.
	head := n - 2
	if head > 0 {
		record.Genre = splitList(spans[0], ",")
	}
	if head > 1 {
		record.Companies = splitList(spans[1], ",")
	}
	if head > 2 {
		record.Languages = splitList(spans[2], "/")
	}
}

// collectAttr returns attr of every node that carries it, in order.
func collectAttr(sel *goquery.Selection, attr string) []string {
	values := []string{}
	sel.Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok {
			values = append(values, strings.TrimSpace(v))
		}
	})
	return values
}

// collectText returns the normalized text of every node, skipping blanks.
func collectText(sel *goquery.Selection) []string {
	values := []string{}
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := normalizeText(s.Text()); text != "" {
			values = append(values, text)
		}
	})
	return values
}

// splitList splits text on sep, trims each part and drops empty parts.
func splitList(text, sep string) []string {
	parts := []string{}
	for _, part := range strings.Split(text, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// normalizeText collapses runs of whitespace into single spaces.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
