package services

import (
	"web-scraper-app/config"
	"web-scraper-app/models"
	"web-scraper-app/utils"
)

// Dashboard assembles the metrics, filters and charts of one category.
type Dashboard struct {
	cleaner  *Cleaner
	insights *InsightService
	logger   *utils.Logger
}

func NewDashboard(cleaner *Cleaner, insights *InsightService, logger *utils.Logger) *Dashboard {
	return &Dashboard{cleaner: cleaner, insights: insights, logger: logger}
}

// Prepare trims the header and coerces every declared numeric column that is
// present, dropping rows that do not parse. Cleaned files always hold numbers
// with a '.' decimal, whatever the category's raw convention.
func (d *Dashboard) Prepare(t *models.Table, cat config.Category) *models.Table {
	cleaner := d.cleaner.WithFormat(NumberFormat{})
	out := cleaner.TrimColumnNames(t)
	for _, col := range cat.Columns {
		out = cleaner.CleanNumericColumn(out, col.Name)
	}
	return out
}

// Build computes the dashboard for a loaded table. selected holds the ranges
// chosen by the user, keyed by column; filterable columns without a choice
// default to their 10th to 90th percentile span. Columns missing from the
// table are left out of every section.
func (d *Dashboard) Build(t *models.Table, cat config.Category, selected map[string]models.Range) (*models.DashboardReport, error) {
	table := d.Prepare(t, cat)

	report := &models.DashboardReport{
		Category:      cat.Name,
		Label:         cat.DisplayLabel(),
		TotalListings: table.Len(),
	}

	view := NewView(table)
	var present []config.NumericColumn

	for _, col := range cat.Columns {
		if !table.HasColumn(col.Name) {
			d.logger.Warn("[dashboard] %s: column %q missing, section skipped", cat.Name, col.Name)
			continue
		}
		present = append(present, col)

		sum, err := d.insights.Summarize(table, col.Name)
		if err != nil {
			return nil, err
		}
		report.Metrics = append(report.Metrics, models.Metric{
			Column: col.Name,
			Label:  labelOf(col),
			Unit:   col.Unit,
			Mean:   sum.Mean,
			Max:    sum.Max,
		})

		if !col.Filterable || sum.NonNull == 0 {
			continue
		}

		rg, ok := selected[col.Name]
		if !ok {
			if rg, err = d.insights.DefaultRange(table, col.Name); err != nil {
				return nil, err
			}
		}
		rg.Column = col.Name
		if rg.Lower > rg.Upper {
			rg.Lower, rg.Upper = rg.Upper, rg.Lower
		}

		if view, err = view.Where(rg); err != nil {
			return nil, err
		}
		report.Filters = append(report.Filters, models.FilterState{
			Column: col.Name,
			Label:  labelOf(col),
			Unit:   col.Unit,
			Min:    sum.Min,
			Max:    sum.Max,
			Range:  rg,
		})
	}

	filtered := view.Table()
	report.Filtered = filtered
	report.FilteredCount = filtered.Len()

	for _, col := range present {
		bins := col.Bins
		if bins <= 0 {
			bins = 30
		}
		report.Charts = append(report.Charts, models.Chart{
			Column: col.Name,
			Label:  labelOf(col),
			Unit:   col.Unit,
			Bins:   Histogram(filtered.Floats(col.Name), bins),
		})
	}

	d.logger.Debug("[dashboard] %s: %d listings, %d after filters",
		cat.Name, report.TotalListings, report.FilteredCount)
	return report, nil
}

func labelOf(col config.NumericColumn) string {
	if col.Label != "" {
		return col.Label
	}
	return col.Name
}
