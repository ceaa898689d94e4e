package cmd

import (
	"github.com/spf13/cobra"

	"web-scraper-app/scraper"
	"web-scraper-app/services"
)

var (
	scrapeURL      string
	scrapePages    int
	scrapeCategory string
	scrapeClean    bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect listing pages into the category's raw CSV",
	Long: `Fetches pages 1..N of a listing URL one after another, extracts title,
price and the configured fields of every listing, and replaces the raw CSV
of the category. Ctrl-C stops after the current page; an interrupted run
leaves the previous raw CSV untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		cat, err := a.category(scrapeCategory)
		if err != nil {
			return err
		}

		fetcher, err := scraper.NewFetcher(a.cfg, a.logger)
		if err != nil {
			return err
		}
		defer fetcher.Close()

		ctx, stop := signalContext()
		defer stop()

		svc := scraper.NewService(a.cfg, fetcher, a.store, a.logger)
		report, err := svc.Scrape(ctx, cat, scrapeURL, scrapePages)
		if err != nil {
			return err
		}
		a.logger.Info("[scrape] Run %s: %d listings → %s", report.RunID, report.Table.Len(), cat.RawPath)

		if scrapeClean {
			if _, err := services.NewCleaner(a.logger).CleanCategory(a.store, cat); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeURL, "url", "", "listing page URL, e.g. https://sn.coinafrique.com/categorie/villas")
	scrapeCmd.Flags().IntVarP(&scrapePages, "pages", "n", 1, "number of pages to fetch")
	scrapeCmd.Flags().StringVarP(&scrapeCategory, "category", "c", "scraped", "catalog category to store the result under")
	scrapeCmd.Flags().BoolVar(&scrapeClean, "clean", false, "clean the raw table right after scraping")
	_ = scrapeCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(scrapeCmd)
}
