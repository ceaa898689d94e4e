package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"web-scraper-app/config"
	"web-scraper-app/feedback"
	"web-scraper-app/models"
	"web-scraper-app/scraper"
	"web-scraper-app/storage"
)

// Download stages.
const (
	StageRaw      = "raw"
	StageCleaned  = "cleaned"
	StageFiltered = "filtered"
)

type indexPage struct {
	Categories      []config.Category
	ScrapeEnabled   bool
	FeedbackEnabled bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index", indexPage{
		Categories:      s.Catalog.Categories,
		ScrapeEnabled:   s.Scraper != nil,
		FeedbackEnabled: s.Feedback != nil && s.Feedback.Enabled(),
	})
}

// maxPreviewRows caps the data table rendered under the dashboard; the
// download link carries the full filtered table.
const maxPreviewRows = 200

type dashboardPage struct {
	Report      *models.DashboardReport
	Categories  []config.Category
	DownloadURL string
	Columns     []string
	Rows        [][]string
	Hidden      int
}

// preview renders at most limit rows of t as strings, in column order.
func preview(t *models.Table, limit int) (rows [][]string, hidden int) {
	n := t.Len()
	if n > limit {
		hidden = n - limit
		n = limit
	}
	rows = make([][]string, 0, n)
	for _, rec := range t.Records[:n] {
		row := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			row[i] = rec.Get(col).String()
		}
		rows = append(rows, row)
	}
	return rows, hidden
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.category(r)
	if !ok {
		s.renderError(w, http.StatusNotFound, "Catégorie inconnue", mux.Vars(r)["category"])
		return
	}

	report, err := s.buildReport(r, cat)
	if err != nil {
		status, msg := s.classify(err)
		s.renderError(w, status, "Données indisponibles", msg)
		return
	}

	q := r.URL.Query()
	q.Set("stage", StageFiltered)
	rows, hidden := preview(report.Filtered, maxPreviewRows)
	s.render(w, http.StatusOK, "dashboard", dashboardPage{
		Report:      report,
		Categories:  s.Catalog.Categories,
		DownloadURL: "/download/" + url.PathEscape(cat.Name) + "?" + q.Encode(),
		Columns:     report.Filtered.Columns,
		Rows:        rows,
		Hidden:      hidden,
	})
}

func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.category(r)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown category %q", mux.Vars(r)["category"]))
		return
	}

	report, err := s.buildReport(r, cat)
	if err != nil {
		status, msg := s.classify(err)
		s.writeJSONError(w, status, msg)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.category(r)
	if !ok {
		s.renderError(w, http.StatusNotFound, "Catégorie inconnue", mux.Vars(r)["category"])
		return
	}

	stage := r.URL.Query().Get("stage")
	if stage == "" {
		stage = StageRaw
	}

	var (
		table *models.Table
		err   error
	)
	switch stage {
	case StageRaw:
		table, err = s.Tables.Load(cat.RawPath)
	case StageCleaned:
		table, err = s.Tables.Load(cat.CleanedPath)
	case StageFiltered:
		var report *models.DashboardReport
		if report, err = s.buildReport(r, cat); err == nil {
			table = report.Filtered
		}
	default:
		s.renderError(w, http.StatusBadRequest, "Export impossible",
			fmt.Sprintf("stage %q inconnu (raw, cleaned ou filtered)", stage))
		return
	}
	if err != nil {
		status, msg := s.classify(err)
		s.renderError(w, status, "Export impossible", msg)
		return
	}

	var buf bytes.Buffer
	if err := storage.EncodeCSV(&buf, table); err != nil {
		s.Logger.Error("[web] Export %s/%s: %v", cat.Name, stage, err)
		s.renderError(w, http.StatusInternalServerError, "Export impossible", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_%s.csv"`, cat.Name, stage))
	_, _ = buf.WriteTo(w)
}

type pageJSON struct {
	Page   int    `json:"page"`
	URL    string `json:"url"`
	Status string `json:"status"`
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
}

type scrapeJSON struct {
	RunID       string     `json:"run_id"`
	Category    string     `json:"category"`
	Listings    int        `json:"listings"`
	Pages       []pageJSON `json:"pages"`
	CleanedRows *int       `json:"cleaned_rows,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if s.Scraper == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "scraping is disabled")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := r.FormValue("category")
	if name == "" {
		name = "scraped"
	}
	cat, ok := s.Catalog.Find(name)
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", name))
		return
	}

	pages := 1
	if v := r.FormValue("pages"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("pages must be a positive integer, got %q", v))
			return
		}
		pages = n
	}

	baseURL := strings.TrimSpace(r.FormValue("url"))
	if _, err := scraper.PageURL(baseURL, s.pageParam(), 1); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.scraping.TryLock() {
		s.writeJSONError(w, http.StatusConflict, "a scrape is already running")
		return
	}
	defer s.scraping.Unlock()

	report, err := s.Scraper.Scrape(r.Context(), cat, baseURL, pages)
	if report == nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := scrapeJSON{RunID: report.RunID, Category: cat.Name, Listings: report.Table.Len()}
	for _, p := range report.Pages {
		pj := pageJSON{Page: p.Page, URL: p.URL, Status: p.Status.String(), Count: len(p.Records)}
		if p.Err != nil {
			pj.Error = p.Err.Error()
		}
		resp.Pages = append(resp.Pages, pj)
	}
	if err != nil {
		resp.Error = err.Error()
		s.writeJSON(w, http.StatusBadGateway, resp)
		return
	}

	if s.Cleaner != nil && s.Store != nil {
		stats, err := s.Cleaner.CleanCategory(s.Store, cat)
		if err != nil {
			resp.Error = err.Error()
			s.writeJSON(w, http.StatusInternalServerError, resp)
			return
		}
		resp.CleanedRows = &stats.Output
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type feedbackPage struct {
	FormURL         string
	Enabled         bool
	Experiences     []string
	Recommendations []string
	Features        []string
	Values          feedback.Submission
	Success         bool
	Error           string
}

func (s *Server) newFeedbackPage() feedbackPage {
	p := feedbackPage{
		Enabled:         s.Feedback != nil && s.Feedback.Enabled(),
		Experiences:     feedback.Experiences,
		Recommendations: feedback.Recommendations,
		Features:        feedback.Features,
		Values:          feedback.Submission{Rating: 3},
	}
	if s.Config != nil {
		p.FormURL = s.Config.KoboFormURL
	}
	return p
}

func (s *Server) handleFeedbackForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "feedback", s.newFeedbackPage())
}

func (s *Server) handleFeedbackSubmit(w http.ResponseWriter, r *http.Request) {
	page := s.newFeedbackPage()
	if !page.Enabled {
		page.Error = "L'envoi du formulaire n'est pas configuré."
		s.render(w, http.StatusServiceUnavailable, "feedback", page)
		return
	}
	if err := r.ParseForm(); err != nil {
		page.Error = err.Error()
		s.render(w, http.StatusBadRequest, "feedback", page)
		return
	}

	rating, _ := strconv.Atoi(r.FormValue("note"))
	sub := feedback.Submission{
		Name:           strings.TrimSpace(r.FormValue("nom")),
		Email:          strings.TrimSpace(r.FormValue("email")),
		Rating:         rating,
		Experience:     r.FormValue("experience"),
		Recommendation: r.FormValue("recommendation"),
		Features:       r.Form["features"],
		Positive:       r.FormValue("positive"),
		Improvements:   r.FormValue("improvements"),
		Additional:     r.FormValue("additional"),
	}
	page.Values = sub

	if err := sub.Validate(); err != nil {
		page.Error = err.Error()
		s.render(w, http.StatusBadRequest, "feedback", page)
		return
	}

	err := s.Feedback.Submit(r.Context(), sub)
	var se *feedback.SubmissionError
	switch {
	case err == nil:
		page.Success = true
		page.Values = feedback.Submission{Rating: 3}
		s.render(w, http.StatusOK, "feedback", page)
	case errors.As(err, &se):
		page.Error = fmt.Sprintf("Code: %d\nMessage: %s", se.StatusCode, se.Body)
		s.render(w, http.StatusBadGateway, "feedback", page)
	default:
		page.Error = "Erreur de connexion: " + err.Error()
		s.render(w, http.StatusBadGateway, "feedback", page)
	}
}

// category resolves the {category} route variable against the catalog.
func (s *Server) category(r *http.Request) (config.Category, bool) {
	return s.Catalog.Find(mux.Vars(r)["category"])
}

func (s *Server) buildReport(r *http.Request, cat config.Category) (*models.DashboardReport, error) {
	t, err := s.Tables.Load(cat.CleanedPath)
	if err != nil {
		return nil, err
	}
	return s.Dashboard.Build(t, cat, SelectedRanges(r.URL.Query(), cat))
}

// classify maps a load or build error to a status and a user-facing message.
func (s *Server) classify(err error) (int, string) {
	var mf *models.MissingFileError
	if errors.As(err, &mf) {
		s.Logger.Warn("[web] %v", err)
		return http.StatusNotFound, fmt.Sprintf("Le fichier %s est introuvable. Lancez le scraping ou vérifiez le répertoire de données.", mf.Path)
	}
	s.Logger.Error("[web] %v", err)
	return http.StatusInternalServerError, err.Error()
}

// SelectedRanges reads "<column>_min" and "<column>_max" query values for
// each filterable column. A column is only constrained when both bounds
// parse.
func SelectedRanges(q url.Values, cat config.Category) map[string]models.Range {
	out := make(map[string]models.Range)
	for _, col := range cat.Columns {
		if !col.Filterable {
			continue
		}
		lo, errLo := strconv.ParseFloat(q.Get(col.Name+"_min"), 64)
		hi, errHi := strconv.ParseFloat(q.Get(col.Name+"_max"), 64)
		if errLo != nil || errHi != nil || !finite(lo) || !finite(hi) {
			continue
		}
		out[col.Name] = models.Range{Column: col.Name, Lower: lo, Upper: hi}
	}
	return out
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// pageParam is the query parameter that carries the page number.
func (s *Server) pageParam() string {
	if s.Config != nil && s.Config.PageParam != "" {
		return s.Config.PageParam
	}
	return "page"
}

// writeJSON encodes v before touching the response so an encoding failure
// still yields a well-formed 500.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.Logger.Error("[web] Encode JSON response: %v", err)
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]string{"error": "could not encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
