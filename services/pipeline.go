package services

import (
	"fmt"

	"web-scraper-app/config"
	"web-scraper-app/storage"
)

// CleanCategory reads the raw file of cat, cleans it, and overwrites the
// cleaned file. The raw file is left untouched.
func (c *Cleaner) CleanCategory(store storage.TableStore, cat config.Category) (CleanStats, error) {
	raw, err := store.Load(cat.RawPath)
	if err != nil {
		return CleanStats{}, fmt.Errorf("clean %s: %w", cat.Name, err)
	}

	cleaned, stats := c.WithFormat(NumberFormat{Decimal: cat.Decimal()}).Clean(raw, SpecFor(cat))

	if err := store.Write(cat.CleanedPath, cleaned); err != nil {
		return stats, fmt.Errorf("clean %s: %w", cat.Name, err)
	}
	c.logger.Info("[cleaner] %s: %d → %d rows written to %s", cat.Name, stats.Input, stats.Output, cat.CleanedPath)
	return stats, nil
}
