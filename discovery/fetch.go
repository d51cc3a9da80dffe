// Package discovery fetches listing pages, extracts release records from
// them and coordinates concurrent multi-page crawls.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/repackfed/logging"
	"github.com/pevans/repackfed/scraper"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
)

// ErrUnexpectedStatus indicates a non-2xx HTTP response.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind int

const (
	// RequestError covers DNS, connection, status and decoding failures.
	RequestError FetchErrorKind = iota
	// Timeout means the request did not complete within the fetch timeout.
	Timeout
)

func (k FetchErrorKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	default:
		return "request_error"
	}
}

// FetchError describes a failed page fetch.
type FetchError struct {
	Kind FetchErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetching %s: %v", e.Kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a FetchError of kind Timeout.
func IsTimeout(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Kind == Timeout
}

// Fetcher issues single, non-retrying GET requests with a fixed header
// profile and timeout.
type Fetcher struct {
	client  *http.Client
	headers scraper.HeaderProfile
	list    scraper.ListConfig
	log     logrus.FieldLogger
}

// NewFetcher creates a fetcher for the given profile. A zero timeout uses
// scraper.DefaultTimeout.
func NewFetcher(profile scraper.Profile, timeout time.Duration, log logrus.FieldLogger) *Fetcher {
	if timeout <= 0 {
		timeout = scraper.DefaultTimeout
	}

	return NewFetcherWithClient(profile, &http.Client{Timeout: timeout}, log)
}

// NewFetcherWithClient creates a fetcher that uses client for transport.
func NewFetcherWithClient(profile scraper.Profile, client *http.Client, log logrus.FieldLogger) *Fetcher {
	if log == nil {
		log = logging.Discard()
	}

	return &Fetcher{
		client:  client,
		headers: profile.Headers,
		list:    profile.ListConfig,
		log:     log,
	}
}

// PageURL returns the listing URL for a page index.
func (f *Fetcher) PageURL(index int) string {
	return f.list.PageURL(index)
}

// FetchPage fetches and parses the listing page with the given index.
func (f *Fetcher) FetchPage(ctx context.Context, index int) (*goquery.Document, error) {
	return f.FetchHTML(ctx, f.PageURL(index))
}

// FetchHTML fetches url and parses the body as HTML.
func (f *Fetcher) FetchHTML(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, classify(url, fmt.Errorf("failed to parse HTML: %w", err))
	}

	return doc, nil
}

// get performs the request and returns the charset-decoded body of a 2xx
// response. The caller closes the body.
func (f *Fetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &FetchError{Kind: RequestError, URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.headers.UserAgent)
	req.Header.Set("Referer", f.headers.Referer)
	req.Header.Set("Accept-Language", f.headers.AcceptLanguage)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &FetchError{
			Kind: RequestError,
			URL:  url,
			Err:  fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status),
		}
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return nil, &FetchError{Kind: RequestError, URL: url, Err: fmt.Errorf("failed to decode body: %w", err)}
	}

	return readCloser{Reader: reader, Closer: resp.Body}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// classify wraps a transport error as a FetchError of the right kind.
func classify(url string, err error) *FetchError {
	kind := RequestError

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = Timeout
	}

	return &FetchError{Kind: kind, URL: url, Err: err}
}
