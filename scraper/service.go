package scraper

import (
	"context"
	"errors"
	"fmt"

	"web-scraper-app/config"
	"web-scraper-app/models"
	"web-scraper-app/storage"
	"web-scraper-app/utils"
)

// ErrNothingCollected is returned when every requested page failed; the
// previous raw file is kept in that case.
var ErrNothingCollected = errors.New("scraper: every page failed, raw file not replaced")

// ErrInterrupted is returned when the context ends before every requested
// page was collected. A partial run never replaces the raw file.
var ErrInterrupted = errors.New("scraper: run interrupted, raw file not replaced")

// NewFetcher builds the Fetcher selected by cfg.FetchMode.
func NewFetcher(cfg *config.Config, logger *utils.Logger) (Fetcher, error) {
	switch cfg.FetchMode {
	case config.FetchModeHTTP, "":
		return NewHTTPFetcher(
			WithTimeout(cfg.FetchTimeout()),
			WithUserAgent(cfg.UserAgent),
			WithRetries(cfg.MaxRetries, logger),
		), nil
	case config.FetchModeBrowser:
		return NewBrowserFetcher(BrowserConfig{
			ChromeBin: cfg.ChromeBin,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode %q (want %q or %q)",
			cfg.FetchMode, config.FetchModeHTTP, config.FetchModeBrowser)
	}
}

// Service runs a scrape for a category and stores the raw table.
type Service struct {
	cfg     *config.Config
	fetcher Fetcher
	store   storage.TableWriter
	logger  *utils.Logger
}

func NewService(cfg *config.Config, fetcher Fetcher, store storage.TableWriter, logger *utils.Logger) *Service {
	return &Service{cfg: cfg, fetcher: fetcher, store: store, logger: logger}
}

// Scrape collects pages 1..pages of baseURL with the category's selectors
// and replaces the category's raw file with the result. The file is only
// written when the run covered every page and at least one succeeded.
func (s *Service) Scrape(ctx context.Context, cat config.Category, baseURL string, pages int) (*models.RunReport, error) {
	if pages < 1 {
		return nil, fmt.Errorf("scraper: pages must be >= 1, got %d", pages)
	}
	if _, err := PageURL(baseURL, s.cfg.PageParam, 1); err != nil {
		return nil, fmt.Errorf("scraper: %w", err)
	}

	sel := cat.Selectors
	if sel.Item == "" {
		sel = config.DefaultSelectors()
	}
	c := NewCollector(s.fetcher, s.logger,
		WithSelectors(sel),
		WithPageParam(s.cfg.PageParam),
		WithPageDelay(s.cfg.PageDelay()),
	)
	report := c.Run(ctx, baseURL, pages)

	if ctx.Err() != nil || len(report.Pages) < pages {
		s.logger.Warn("[scraper] %s: stopped after %d of %d page(s), keeping %s",
			cat.Name, len(report.Pages), pages, cat.RawPath)
		return report, fmt.Errorf("%w (%d of %d pages): %v", ErrInterrupted, len(report.Pages), pages, ctx.Err())
	}
	if report.Count(models.PageFailed) == len(report.Pages) {
		return report, ErrNothingCollected
	}

	if err := s.store.Write(cat.RawPath, report.Table); err != nil {
		return report, fmt.Errorf("scraper: save raw table: %w", err)
	}
	s.logger.Info("[scraper] %s: %d listings saved to %s", cat.Name, report.Table.Len(), cat.RawPath)
	return report, nil
}
