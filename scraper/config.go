package scraper

import (
	"fmt"
	"strings"
	"time"
)

// Default values for the paginated repack site.
const (
	DefaultBaseURL        = "https://fitgirl-repacks.site"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
	DefaultReferer        = "https://www.google.com/"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	DefaultTimeout        = 10 * time.Second
)

// Profile describes one source site: where its listing pages live, how to
// recognize records on them, and which headers to present when fetching.
type Profile struct {
	Name          string        `json:"name" yaml:"name"`
	Headers       HeaderProfile `json:"headers" yaml:"headers"`
	ListConfig    ListConfig    `json:"list_config" yaml:"list"`
	ArticleConfig ArticleConfig `json:"article_config" yaml:"article"`
}

// HeaderProfile is the request identity sent with every fetch. It is passed
// by value so a fetcher's copy cannot change underneath it.
type HeaderProfile struct {
	UserAgent      string `json:"user_agent" yaml:"user_agent"`
	Referer        string `json:"referer" yaml:"referer"`
	AcceptLanguage string `json:"accept_language" yaml:"accept_language"`
}

// ListConfig defines how to reach listing pages and how to find articles and
// the pagination control on them.
type ListConfig struct {
	BaseURL            string `json:"base_url" yaml:"base_url"`
	PagePath           string `json:"page_path" yaml:"page_path"`             // Go format verb for the page index
	StaticURL          string `json:"static_url,omitempty" yaml:"static_url"` // single listing page, no pagination
	FeedURL            string `json:"feed_url,omitempty" yaml:"feed_url"`
	ArticleSelector    string `json:"article_selector" yaml:"article_selector"`
	PaginationSelector string `json:"pagination_selector,omitempty" yaml:"pagination_selector"`
}

// ArticleConfig holds the per-article selector rules. Every rule is
// optional except TitleSelector.
type ArticleConfig struct {
	TitleSelector      string   `json:"title_selector" yaml:"title_selector"`
	DateSelector       string   `json:"date_selector,omitempty" yaml:"date_selector"`
	DateAttribute      string   `json:"date_attribute,omitempty" yaml:"date_attribute"`
	LinkSelector       string   `json:"link_selector,omitempty" yaml:"link_selector"`
	ScreenshotSelector string   `json:"screenshot_selector,omitempty" yaml:"screenshot_selector"`
	FeatureSelector    string   `json:"feature_selector,omitempty" yaml:"feature_selector"`
	MetadataSelector   string   `json:"metadata_selector,omitempty" yaml:"metadata_selector"`
	CategorySelector   string   `json:"category_selector,omitempty" yaml:"category_selector"`
	ExclusionMarkers   []string `json:"exclusion_markers,omitempty" yaml:"exclusion_markers"`
}

// DefaultProfile returns the profile for the paginated repack site.
func DefaultProfile() Profile {
	return Profile{
		Name:    "fitgirl",
		Headers: DefaultHeaders(),
		ListConfig: ListConfig{
			BaseURL:            DefaultBaseURL,
			PagePath:           "/page/%d",
			FeedURL:            DefaultBaseURL + "/feed/",
			ArticleSelector:    "article",
			PaginationSelector: ".pagination",
		},
		ArticleConfig: DefaultArticleConfig(),
	}
}

// DefaultHeaders returns a realistic desktop browser identity.
func DefaultHeaders() HeaderProfile {
	return HeaderProfile{
		UserAgent:      DefaultUserAgent,
		Referer:        DefaultReferer,
		AcceptLanguage: DefaultAcceptLanguage,
	}
}

// DefaultArticleConfig returns the WordPress entry selectors used by the
// repack site.
func DefaultArticleConfig() ArticleConfig {
	return ArticleConfig{
		TitleSelector:      "h1.entry-title",
		DateSelector:       "time.entry-date",
		DateAttribute:      "datetime",
		LinkSelector:       "ul li a",
		ScreenshotSelector: "h3 + p img",
		FeatureSelector:    "h3 + ul li",
		MetadataSelector:   ".entry-content p",
		ExclusionMarkers:   []string{"Upcoming"},
	}
}

// IsStatic reports whether the profile lists everything on one fixed page.
func (l ListConfig) IsStatic() bool {
	return l.StaticURL != ""
}

// PageURL returns the listing URL for a 1-based page index. Static profiles
// always return their fixed URL.
func (l ListConfig) PageURL(index int) string {
	if l.IsStatic() {
		return l.StaticURL
	}

	base := strings.TrimRight(l.BaseURL, "/")
	path := l.PagePath
	if path == "" {
		path = "/page/%d"
	}

	return base + fmt.Sprintf(path, index)
}

// SeedURL returns the page used to discover the total page count.
func (l ListConfig) SeedURL() string {
	return l.PageURL(1)
}

// IsExcluded reports whether a title carries one of the placeholder markers.
// Matching is a case-insensitive substring test.
func (a ArticleConfig) IsExcluded(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range a.ExclusionMarkers {
		if marker == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// WithDefaults fills zero-valued fields of p from DefaultProfile so a
// partially specified YAML profile still works.
func (p Profile) WithDefaults() Profile {
	def := DefaultProfile()

	if p.Name == "" {
		p.Name = def.Name
	}
	if p.Headers.UserAgent == "" {
		p.Headers.UserAgent = def.Headers.UserAgent
	}
	if p.Headers.Referer == "" {
		p.Headers.Referer = def.Headers.Referer
	}
	if p.Headers.AcceptLanguage == "" {
		p.Headers.AcceptLanguage = def.Headers.AcceptLanguage
	}

	l := &p.ListConfig
	if l.BaseURL == "" && l.StaticURL == "" {
		l.BaseURL = def.ListConfig.BaseURL
		if l.FeedURL == "" {
			l.FeedURL = def.ListConfig.FeedURL
		}
	}
	if l.PagePath == "" {
		l.PagePath = def.ListConfig.PagePath
	}
	if l.ArticleSelector == "" {
		l.ArticleSelector = def.ListConfig.ArticleSelector
	}
	if l.PaginationSelector == "" {
		l.PaginationSelector = def.ListConfig.PaginationSelector
	}

	a := &p.ArticleConfig
	d := def.ArticleConfig
	if a.TitleSelector == "" {
		a.TitleSelector = d.TitleSelector
	}
	if a.DateSelector == "" {
		a.DateSelector = d.DateSelector
	}
	if a.DateAttribute == "" {
		a.DateAttribute = d.DateAttribute
	}
	if a.LinkSelector == "" {
		a.LinkSelector = d.LinkSelector
	}
	if a.ScreenshotSelector == "" {
		a.ScreenshotSelector = d.ScreenshotSelector
	}
	if a.FeatureSelector == "" {
		a.FeatureSelector = d.FeatureSelector
	}
	if a.MetadataSelector == "" {
		a.MetadataSelector = d.MetadataSelector
	}
	if a.ExclusionMarkers == nil {
		a.ExclusionMarkers = d.ExclusionMarkers
	}

	return p
}
