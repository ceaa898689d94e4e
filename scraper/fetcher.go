package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"web-scraper-app/utils"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher retrieves the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}

// StatusError reports a response other than 200 OK.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher fetches static pages with a plain GET.
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	retry     *utils.RetryConfig
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout bounds each request. Zero leaves the client without a timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithRetries retries failed requests up to attempts times in total.
func WithRetries(attempts int, logger *utils.Logger) Option {
	return func(f *HTTPFetcher) {
		f.retry = &utils.RetryConfig{MaxAttempts: attempts, BaseDelay: time.Second, Logger: logger}
	}
}

// NewHTTPFetcher creates an HTTPFetcher. By default it makes a single
// attempt without timeout.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		userAgent: DefaultUserAgent,
		retry:     &utils.RetryConfig{MaxAttempts: 1},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client = &http.Client{Timeout: f.timeout}
	return f
}

// Fetch GETs url and returns the body. Any status other than 200 is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	var body string
	err := f.retry.Do(ctx, "fetch "+url, func() error {
		var err error
		body, err = f.get(ctx, url)
		return err
	})
	return body, err
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

// Close is a no-op; http.Client needs no cleanup.
func (f *HTTPFetcher) Close() error {
	return nil
}
