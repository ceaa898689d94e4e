package web_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web-scraper-app/config"
	"web-scraper-app/feedback"
	"web-scraper-app/models"
	"web-scraper-app/services"
	"web-scraper-app/storage"
	"web-scraper-app/utils"
	"web-scraper-app/web"
)

type fixture struct {
	dir     string
	catalog *config.Catalog
	handler http.Handler
}

type option func(*web.Deps)

func withScraper(s web.Scraper) option {
	return func(d *web.Deps) { d.Scraper = s }
}

func withPageParam(param string) option {
	return func(d *web.Deps) { d.Config.PageParam = param }
}

func withFeedback(c *feedback.Client) option {
	return func(d *web.Deps) { d.Feedback = c }
}

// newFixture serves a catalog with a "villas" category whose cleaned file
// holds 10 listings: Prix i million, Superficie 50*i, Nombre_pieces i%5+1.
func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	dir := t.TempDir()

	cat := config.Category{
		Name:        "villas",
		Label:       "Villas",
		RawPath:     filepath.Join(dir, "raw", "villas.csv"),
		CleanedPath: filepath.Join(dir, "cleaned", "villas.csv"),
		Columns:     config.DashboardColumns(),
		Selectors:   config.DefaultSelectors(),
	}
	empty := config.Category{
		Name:        "terrains",
		Label:       "Terrains",
		RawPath:     filepath.Join(dir, "raw", "terrains.csv"),
		CleanedPath: filepath.Join(dir, "cleaned", "terrains.csv"),
		Columns:     config.DashboardColumns(),
	}
	catalog := &config.Catalog{Categories: []config.Category{cat, empty}}

	var b strings.Builder
	b.WriteString("title,Prix,Superficie,Nombre_pieces\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "Villa %d,%d,%d,%d\n", i, i*1000000, i*50, i%5+1)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(cat.CleanedPath), 0755))
	require.NoError(t, os.WriteFile(cat.CleanedPath, []byte(b.String()), 0644))

	logger := utils.Discard()
	cleaner := services.NewCleaner(logger)
	deps := web.Deps{
		Config:    &config.Config{KoboFormURL: "https://ee.kobotoolbox.org/i/test"},
		Catalog:   catalog,
		Store:     storage.Files{},
		Dashboard: services.NewDashboard(cleaner, services.NewInsightService(logger), logger),
		Cleaner:   cleaner,
		Logger:    logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := web.NewServer(deps)
	require.NoError(t, err)
	return &fixture{dir: dir, catalog: catalog, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndIndex(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/dashboard/villas"`)
	assert.Contains(t, rec.Body.String(), "Terrains")
	assert.NotContains(t, rec.Body.String(), "Lancer le scraping", "scrape form needs a scraper")
}

func TestDashboardPage(t *testing.T) {
	t.Parallel()

	t.Run("renders metrics and filters", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet, "/dashboard/villas", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Villas")
		assert.Contains(t, body, `name="Prix_min"`)
		assert.Contains(t, body, `name="Superficie_max"`)
		assert.NotContains(t, body, `name="Nombre_pieces_min"`)
		assert.Contains(t, body, "/download/villas?")
		assert.Contains(t, body, "Afficher les données")
		assert.Contains(t, body, "<th>Nombre_pieces</th>")
		assert.Contains(t, body, "<td>Villa 5</td>")
	})

	t.Run("data table follows the filters", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet,
			"/dashboard/villas?Superficie_min=100&Superficie_max=150&Prix_min=0&Prix_max=1e12", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<td>Villa 2</td>")
		assert.Contains(t, body, "<td>Villa 3</td>")
		assert.NotContains(t, body, "<td>Villa 7</td>")
	})

	t.Run("category lookup ignores case", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet, "/dashboard/VILLAS", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing file shows a warning", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet, "/dashboard/terrains", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "introuvable")
	})

	t.Run("unknown category", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet, "/dashboard/chateaux", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDashboardAPI(t *testing.T) {
	t.Parallel()

	t.Run("applies selected ranges", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet,
			"/api/dashboard/villas?Superficie_min=100&Superficie_max=300&Prix_min=0&Prix_max=1e12", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var report models.DashboardReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, 10, report.TotalListings)
		assert.Equal(t, 5, report.FilteredCount)
		require.Len(t, report.Metrics, 3)
		assert.Equal(t, "Prix", report.Metrics[0].Column)
		assert.InDelta(t, 5.5e6, report.Metrics[0].Mean, 1e-6)
	})

	t.Run("infinite bounds fall back to the default range", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet, "/api/dashboard/villas?Prix_min=0&Prix_max=Inf&Superficie_min=-Inf&Superficie_max=500", nil)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var report models.DashboardReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		require.NotEmpty(t, report.Filters)
		for _, fs := range report.Filters {
			assert.False(t, math.IsInf(fs.Range.Lower, 0) || math.IsInf(fs.Range.Upper, 0), fs.Column)
		}
	})

	t.Run("missing file is a JSON 404", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet, "/api/dashboard/terrains", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "terrains.csv")
	})
}

func TestDownload(t *testing.T) {
	t.Parallel()

	t.Run("filtered view as csv", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet,
			"/download/villas?stage=filtered&Superficie_min=100&Superficie_max=300&Prix_min=0&Prix_max=1e12", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="villas_filtered.csv"`)
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		assert.Equal(t, "title,Prix,Superficie,Nombre_pieces", lines[0])
		assert.Len(t, lines, 6)
	})

	t.Run("raw file missing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet, "/download/villas?stage=raw", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown stage", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodGet, "/download/villas?stage=everything", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// fakeScraper writes a fixed raw table instead of fetching pages.
type fakeScraper struct {
	calls int
}

func (s *fakeScraper) Scrape(_ context.Context, cat config.Category, baseURL string, pages int) (*models.RunReport, error) {
	s.calls++
	t := models.NewTable("title", "Prix", "Superficie", "Nombre_pieces")
	t.Append(
		models.Record{"title": models.Text("A"), "Prix": models.Text("1 000 000 FCFA"), "Superficie": models.Text("100 m²"), "Nombre_pieces": models.Text("3")},
		models.Record{"title": models.Text("B"), "Prix": models.Text("Prix sur demande"), "Superficie": models.Text("200"), "Nombre_pieces": models.Text("4")},
		models.Record{"title": models.Text("C"), "Prix": models.Text("2 000 000"), "Superficie": models.Text("300"), "Nombre_pieces": models.Text("5")},
	)
	if err := storage.WriteCSV(cat.RawPath, t); err != nil {
		return nil, err
	}
	return &models.RunReport{
		RunID:   "run-1",
		BaseURL: baseURL,
		Pages:   []models.PageResult{{Page: 1, URL: baseURL + "?page=1", Status: models.PageOK, Records: t.Records}},
		Table:   t,
	}, nil
}

func TestScrapeAPI(t *testing.T) {
	t.Parallel()

	t.Run("scrapes then cleans", func(t *testing.T) {
		t.Parallel()
		fs := &fakeScraper{}
		f := newFixture(t, withScraper(fs))

		rec := f.do(t, http.MethodPost, "/api/scrape", url.Values{
			"category": {"villas"},
			"url":      {"https://sn.coinafrique.com/categorie/villas"},
			"pages":    {"1"},
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body struct {
			RunID       string `json:"run_id"`
			Listings    int    `json:"listings"`
			CleanedRows *int   `json:"cleaned_rows"`
			Pages       []struct {
				Status string `json:"status"`
			} `json:"pages"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "run-1", body.RunID)
		assert.Equal(t, 3, body.Listings)
		require.NotNil(t, body.CleanedRows)
		assert.Equal(t, 2, *body.CleanedRows)
		assert.Equal(t, "ok", body.Pages[0].Status)

		cleaned, err := storage.ReadCSV(filepath.Join(f.dir, "cleaned", "villas.csv"))
		require.NoError(t, err)
		assert.Equal(t, 2, cleaned.Len())
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()
		fs := &fakeScraper{}
		f := newFixture(t, withScraper(fs))

		rec := f.do(t, http.MethodPost, "/api/scrape", url.Values{"url": {"https://example.com"}, "pages": {"0"}, "category": {"villas"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.do(t, http.MethodPost, "/api/scrape", url.Values{"url": {"nope"}, "category": {"villas"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.do(t, http.MethodPost, "/api/scrape", url.Values{"url": {"https://example.com"}, "category": {"chateaux"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		assert.Zero(t, fs.calls)
	})

	t.Run("configured page parameter", func(t *testing.T) {
		t.Parallel()
		fs := &fakeScraper{}
		f := newFixture(t, withScraper(fs), withPageParam("p"))

		rec := f.do(t, http.MethodPost, "/api/scrape", url.Values{
			"category": {"villas"},
			"url":      {"https://sn.coinafrique.com/categorie/villas?p=3"},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 1, fs.calls)

		rec = f.do(t, http.MethodPost, "/api/scrape", url.Values{"category": {"villas"}, "url": {"ftp://example.com"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 1, fs.calls)
	})

	t.Run("disabled without a scraper", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodPost, "/api/scrape", url.Values{"url": {"https://example.com"}})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestFeedback(t *testing.T) {
	t.Parallel()

	form := url.Values{
		"nom":        {"Moussa"},
		"note":       {"5"},
		"experience": {"Bonne"},
		"features":   {"Tableau de bord"},
	}

	kobo := func(t *testing.T, status int, body string) *feedback.Client {
		t.Helper()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		t.Cleanup(srv.Close)
		return feedback.NewClient(srv.URL, "token", "asset", utils.Discard())
	}

	t.Run("form renders with kobo link", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, withFeedback(kobo(t, http.StatusCreated, "")))

		rec := f.do(t, http.MethodGet, "/feedback", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "https://ee.kobotoolbox.org/i/test")
		assert.Contains(t, rec.Body.String(), `name="note"`)
	})

	t.Run("accepted submission", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, withFeedback(kobo(t, http.StatusCreated, "")))

		rec := f.do(t, http.MethodPost, "/feedback", form)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Merci pour votre évaluation")
	})

	t.Run("rejected submission shows status and body", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, withFeedback(kobo(t, http.StatusUnauthorized, "Invalid token")))

		rec := f.do(t, http.MethodPost, "/feedback", form)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "Code: 401")
		assert.Contains(t, rec.Body.String(), "Invalid token")
	})

	t.Run("invalid rating", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, withFeedback(kobo(t, http.StatusCreated, "")))

		rec := f.do(t, http.MethodPost, "/feedback", url.Values{"note": {"9"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.do(t, http.MethodPost, "/feedback", form)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestSelectedRanges(t *testing.T) {
	t.Parallel()
	cat := config.Category{Columns: config.DashboardColumns()}
	q := url.Values{
		"Prix_min":          {"1000"},
		"Prix_max":          {"5000"},
		"Superficie_min":    {"20"},
		"Nombre_pieces_min": {"1"},
		"Nombre_pieces_max": {"3"},
	}

	got := web.SelectedRanges(q, cat)

	assert.Equal(t, map[string]models.Range{
		"Prix": {Column: "Prix", Lower: 1000, Upper: 5000},
	}, got)

	for _, bound := range []string{"Inf", "-Inf", "+Inf", "NaN"} {
		got := web.SelectedRanges(url.Values{"Prix_min": {"0"}, "Prix_max": {bound}}, cat)
		assert.Empty(t, got, bound)
	}
}
