package services

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"web-scraper-app/config"
	"web-scraper-app/models"
	"web-scraper-app/storage"
)

func rawListings(withRooms bool) *models.Table {
	cols := []string{"title", "Prix ", "Superficie"}
	if withRooms {
		cols = append(cols, "Nombre_pieces")
	}
	t := models.NewTable(cols...)
	for i := 1; i <= 10; i++ {
		r := models.Record{
			"title":      models.Text(fmt.Sprintf("Villa %d", i)),
			"Prix ":      models.Text(fmt.Sprintf("%d 000 000 FCFA", i*10)),
			"Superficie": models.Text(fmt.Sprintf("%d m²", i*50)),
		}
		if withRooms {
			r["Nombre_pieces"] = models.Text(fmt.Sprintf("%d", i%5+1))
		}
		t.Append(r)
	}
	t.Append(models.Record{"title": models.Text("junk"), "Prix ": models.Text("sur demande"), "Superficie": models.Text("?")})
	return t
}

func newTestDashboard() *Dashboard {
	l := newTestLogger()
	return NewDashboard(NewCleaner(l), NewInsightService(l), l)
}

func testCategory() config.Category {
	return config.Category{Name: "villas", Label: "Villas", Columns: config.DashboardColumns()}
}

func TestDashboardDefaults(t *testing.T) {
	d := newTestDashboard()

	r, err := d.Build(rawListings(true), testCategory(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if r.TotalListings != 10 {
		t.Errorf("TotalListings: got %d, want 10", r.TotalListings)
	}
	if len(r.Metrics) != 3 || len(r.Charts) != 3 {
		t.Fatalf("metrics/charts: got %d/%d, want 3/3", len(r.Metrics), len(r.Charts))
	}
	if r.Metrics[0].Column != "Prix" || math.Abs(r.Metrics[0].Mean-55e6) > 1e-3 {
		t.Errorf("Prix metric: %+v", r.Metrics[0])
	}
	if len(r.Filters) != 2 {
		t.Fatalf("filters: got %d, want 2 (Prix, Superficie)", len(r.Filters))
	}

	prix := r.Filters[0]
	if prix.Min != 10e6 || prix.Max != 100e6 {
		t.Errorf("Prix bounds: %v..%v", prix.Min, prix.Max)
	}
	if math.Abs(prix.Range.Lower-19e6) > 1e-3 || math.Abs(prix.Range.Upper-91e6) > 1e-3 {
		t.Errorf("Prix default range: %+v", prix.Range)
	}

	// both default ranges cut the first and last row
	if r.FilteredCount != 8 {
		t.Errorf("FilteredCount: got %d, want 8", r.FilteredCount)
	}
}

func TestDashboardSelectedRanges(t *testing.T) {
	d := newTestDashboard()
	selected := map[string]models.Range{
		"Superficie": {Lower: 300, Upper: 100},
		"Prix":       {Lower: 0, Upper: 1e9},
	}

	r, err := d.Build(rawListings(true), testCategory(), selected)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := r.Filters[1].Range; got.Lower != 100 || got.Upper != 300 || got.Column != "Superficie" {
		t.Errorf("swapped range not normalised: %+v", got)
	}
	if r.FilteredCount != 5 {
		t.Errorf("FilteredCount: got %d, want 5", r.FilteredCount)
	}
	for _, rec := range r.Filtered.Records {
		v, _ := rec.Get("Superficie").Float()
		if v < 100 || v > 300 {
			t.Errorf("row outside range: %v", v)
		}
	}
}

func TestDashboardMissingColumnSkipsSection(t *testing.T) {
	d := newTestDashboard()

	r, err := d.Build(rawListings(false), testCategory(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, m := range r.Metrics {
		if m.Column == "Nombre_pieces" {
			t.Error("metric for missing column should be omitted")
		}
	}
	if len(r.Metrics) != 2 || len(r.Charts) != 2 {
		t.Errorf("metrics/charts: got %d/%d, want 2/2", len(r.Metrics), len(r.Charts))
	}
}

func TestDashboardEmptyTable(t *testing.T) {
	d := newTestDashboard()

	r, err := d.Build(models.NewTable("Prix", "Superficie"), testCategory(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.TotalListings != 0 || len(r.Filters) != 0 {
		t.Errorf("empty table: %+v", r)
	}
}

func TestDashboardCommaCategoryAfterCleaning(t *testing.T) {
	dir := t.TempDir()
	cat := config.Category{
		Name:             "bureaux",
		RawPath:          filepath.Join(dir, "raw.csv"),
		CleanedPath:      filepath.Join(dir, "cleaned.csv"),
		DecimalSeparator: ",",
		Columns: []config.NumericColumn{
			{Name: "Superficie", Filterable: true, Bins: 5},
		},
	}
	raw := "title,Superficie\n" +
		"Bureau Plateau,\"120,5 m²\"\n" +
		"Bureau Point E,\"80,25 m²\"\n"
	if err := os.WriteFile(cat.RawPath, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewCleaner(newTestLogger()).CleanCategory(storage.Files{}, cat); err != nil {
		t.Fatalf("CleanCategory: %v", err)
	}
	cleaned, err := storage.ReadCSV(cat.CleanedPath)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	r, err := newTestDashboard().Build(cleaned, cat, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(r.Metrics) != 1 {
		t.Fatalf("metrics: got %d, want 1", len(r.Metrics))
	}
	if m := r.Metrics[0]; m.Max != 120.5 || math.Abs(m.Mean-100.375) > 1e-9 {
		t.Errorf("Superficie metric = mean %v max %v; want mean 100.375 max 120.5", m.Mean, m.Max)
	}
}
