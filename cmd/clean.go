package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"web-scraper-app/models"
	"web-scraper-app/services"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [category...]",
	Short: "Clean raw CSVs into the cleaned CSVs",
	Long: `Coerces the numeric columns, removes duplicates and out-of-range values,
and writes the cleaned table of each category. Without arguments every
category in the catalog is cleaned; categories without a raw file are
skipped with a warning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}

		names := args
		if len(names) == 0 {
			names = a.catalog.Names()
		}

		cleaner := services.NewCleaner(a.logger)
		failed := 0
		for _, name := range names {
			cat, err := a.category(name)
			if err != nil {
				return err
			}

			stats, err := cleaner.CleanCategory(a.store, cat)
			var mf *models.MissingFileError
			switch {
			case errors.As(err, &mf):
				a.logger.Warn("[clean] %s: %v, skipped", cat.Name, mf)
				continue
			case err != nil:
				a.logger.Error("[clean] %v", err)
				failed++
				continue
			}

			for col, n := range stats.Coercion {
				if n > 0 {
					a.logger.Info("[clean] %s: %d row(s) dropped, %s not numeric", cat.Name, n, col)
				}
			}
			if stats.Duplicates > 0 {
				a.logger.Info("[clean] %s: %d duplicate(s) removed", cat.Name, stats.Duplicates)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d categories failed to clean", failed, len(names))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
