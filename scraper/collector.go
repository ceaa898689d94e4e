package scraper

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"web-scraper-app/config"
	"web-scraper-app/models"
	"web-scraper-app/utils"
)

// DefaultPageParam is the query parameter carrying the page number.
const DefaultPageParam = "page"

// Collector drives a Fetcher over numbered listing pages, one page at a time.
type Collector struct {
	fetcher   Fetcher
	selectors config.Selectors
	pageParam string
	pacer     *utils.Pacer
	logger    *utils.Logger
	now       func() time.Time
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithSelectors sets the extraction selectors.
func WithSelectors(sel config.Selectors) CollectorOption {
	return func(c *Collector) {
		c.selectors = sel
	}
}

// WithPageParam changes the page query parameter name.
func WithPageParam(name string) CollectorOption {
	return func(c *Collector) {
		if name != "" {
			c.pageParam = name
		}
	}
}

// WithPageDelay spaces consecutive page requests by at least d.
func WithPageDelay(d time.Duration) CollectorOption {
	return func(c *Collector) {
		c.pacer = utils.NewPacer(d)
	}
}

// WithClock overrides the time source used for scraped_at.
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) {
		c.now = now
	}
}

func NewCollector(fetcher Fetcher, logger *utils.Logger, opts ...CollectorOption) *Collector {
	c := &Collector{
		fetcher:   fetcher,
		selectors: config.DefaultSelectors(),
		pageParam: DefaultPageParam,
		pacer:     utils.NewPacer(0),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageURL sets the page parameter on base, keeping any existing query.
func PageURL(base, param string, page int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid base url %q: scheme must be http or https", base)
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchPage fetches and extracts one page. It never returns an error: every
// failure is reported as a PageFailed result and logged.
func (c *Collector) FetchPage(ctx context.Context, baseURL string, page int) models.PageResult {
	res := models.PageResult{Page: page}

	if page < 1 {
		return c.failed(res, fmt.Errorf("page must be >= 1, got %d", page))
	}

	pageURL, err := PageURL(baseURL, c.pageParam, page)
	if err != nil {
		return c.failed(res, err)
	}
	res.URL = pageURL

	html, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return c.failed(res, fmt.Errorf("fetch: %w", err))
	}

	records, err := Extract(html, c.selectors)
	if err != nil {
		return c.failed(res, err)
	}

	if len(records) == 0 {
		res.Status = models.PageEmpty
		c.logger.Warn("[collector] Page %d: no listings matched %q", page, c.selectors.Item)
		return res
	}

	res.Status = models.PageOK
	res.Records = records
	c.logger.Info("[collector] Page %d: %d listings", page, len(records))
	return res
}

func (c *Collector) failed(res models.PageResult, err error) models.PageResult {
	res.Status = models.PageFailed
	res.Err = err
	c.logger.Error("[collector] Page %d failed: %v", res.Page, err)
	return res
}

// Run fetches pages 1..pages in order and concatenates their records. Each
// record is stamped with its page number and fetch time. The loop stops early
// when ctx is cancelled; pages fetched so far are kept in the report.
func (c *Collector) Run(ctx context.Context, baseURL string, pages int) *models.RunReport {
	report := &models.RunReport{
		RunID:     uuid.NewString(),
		BaseURL:   baseURL,
		StartedAt: c.now(),
	}
	c.logger.Info("[collector] Run %s: %d page(s) from %s", report.RunID, pages, baseURL)

	var records []models.Record
	for page := 1; page <= pages; page++ {
		if err := c.pacer.Wait(ctx); err != nil {
			c.logger.Warn("[collector] Run interrupted before page %d: %v", page, err)
			break
		}

		res := c.FetchPage(ctx, baseURL, page)
		stamp := models.Text(c.now().UTC().Format(time.RFC3339))
		for i, r := range res.Records {
			res.Records[i] = r.With(models.FieldPage, models.Number(float64(page))).
				With(models.FieldScrapedAt, stamp)
		}
		report.Pages = append(report.Pages, res)
		records = append(records, res.Records...)

		if ctx.Err() != nil {
			c.logger.Warn("[collector] Run interrupted after page %d", page)
			break
		}
	}

	report.Table = models.NewTable(RawColumns(c.selectors)...)
	report.Table.Records = records
	report.Duration = c.now().Sub(report.StartedAt)

	c.logger.Info("[collector] Run %s done in %v: %d listings (%d ok, %d empty, %d failed)",
		report.RunID, report.Duration.Round(time.Millisecond), report.Table.Len(),
		report.Count(models.PageOK), report.Count(models.PageEmpty), report.Count(models.PageFailed))
	return report
}

// RawColumns is the header of a raw scrape: title, price, extra fields in
// sorted order, then page and scraped_at.
func RawColumns(sel config.Selectors) []string {
	extra := make([]string, 0, len(sel.Fields))
	for name := range sel.Fields {
		extra = append(extra, name)
	}
	sort.Strings(extra)

	cols := []string{models.FieldTitle, models.FieldPrice}
	cols = append(cols, extra...)
	return append(cols, models.FieldPage, models.FieldScrapedAt)
}
