package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"web-scraper-app/config"
	"web-scraper-app/models"
	"web-scraper-app/services"
	"web-scraper-app/storage"
	"web-scraper-app/utils"
)

var (
	flagLogLevel string
	flagCatalog  string
	flagDataDir  string
)

var rootCmd = &cobra.Command{
	Use:   "web-scraper-app",
	Short: "Scrape, clean and explore CoinAfrique real-estate listings",
	Long: `Collects listing pages from CoinAfrique, cleans the raw CSV tables,
and serves a dashboard with metrics, range filters, histograms, CSV
downloads and a feedback form.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagCatalog, "catalog", "", "category catalog YAML (default from CATALOG_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default from DATA_DIR)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	cfg     *config.Config
	catalog *config.Catalog
	logger  *utils.Logger
	store   storage.Files
}

func setup() (*app, error) {
	cfg := config.Load()
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagCatalog != "" {
		cfg.CatalogPath = flagCatalog
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}

	logger := utils.NewLogger().WithLevel(utils.ParseLevel(cfg.LogLevel))

	catalog, err := config.LoadCatalog(cfg.CatalogPath, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("[config] Categories: %s", strings.Join(catalog.Names(), ", "))

	return &app{cfg: cfg, catalog: catalog, logger: logger}, nil
}

func (a *app) category(name string) (config.Category, error) {
	cat, ok := a.catalog.Find(name)
	if !ok {
		return config.Category{}, fmt.Errorf("unknown category %q (known: %s)", name, strings.Join(a.catalog.Names(), ", "))
	}
	return cat, nil
}

func (a *app) dashboard() *services.Dashboard {
	return services.NewDashboard(services.NewCleaner(a.logger), services.NewInsightService(a.logger), a.logger)
}

// report loads the cleaned table of cat and builds its dashboard.
func (a *app) report(cat config.Category, ranges map[string]models.Range) (*models.DashboardReport, error) {
	t, err := a.store.Load(cat.CleanedPath)
	if err != nil {
		return nil, err
	}
	return a.dashboard().Build(t, cat, ranges)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseRanges reads --range values of the form Column=lower:upper.
func parseRanges(specs []string) (map[string]models.Range, error) {
	out := make(map[string]models.Range, len(specs))
	for _, spec := range specs {
		col, bounds, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("invalid range %q: want Column=lower:upper", spec)
		}
		loStr, hiStr, ok := strings.Cut(bounds, ":")
		if !ok {
			return nil, fmt.Errorf("invalid range %q: want Column=lower:upper", spec)
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(loStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid lower bound in %q: %w", spec, err)
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(hiStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid upper bound in %q: %w", spec, err)
		}
		col = strings.TrimSpace(col)
		out[col] = models.Range{Column: col, Lower: lo, Upper: hi}
	}
	return out, nil
}
