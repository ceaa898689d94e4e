package cmd

import (
	"github.com/spf13/cobra"

	"web-scraper-app/feedback"
	"web-scraper-app/scraper"
	"web-scraper-app/services"
	"web-scraper-app/storage"
	"web-scraper-app/web"
)

var (
	serveAddr     string
	serveNoScrape bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		addr := a.cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		cleaner := services.NewCleaner(a.logger)
		deps := web.Deps{
			Config:    a.cfg,
			Catalog:   a.catalog,
			Tables:    storage.NewCache(a.store),
			Store:     a.store,
			Dashboard: services.NewDashboard(cleaner, services.NewInsightService(a.logger), a.logger),
			Cleaner:   cleaner,
			Logger:    a.logger,
		}

		if !serveNoScrape {
			fetcher, err := scraper.NewFetcher(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer fetcher.Close()
			deps.Scraper = scraper.NewService(a.cfg, fetcher, a.store, a.logger)
		}

		if a.cfg.FeedbackEnabled() {
			deps.Feedback = feedback.NewClient(a.cfg.KoboAPIURL, a.cfg.KoboToken, a.cfg.AssetUID, a.logger)
		} else {
			a.logger.Warn("[serve] KOBO_TOKEN or ASSET_UID not set, feedback form is read-only")
		}

		srv, err := web.NewServer(deps)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from LISTEN_ADDR)")
	serveCmd.Flags().BoolVar(&serveNoScrape, "no-scrape", false, "disable the scrape endpoint")
	rootCmd.AddCommand(serveCmd)
}
