// Package web serves the listings dashboard, downloads, scraping trigger and
// feedback form over HTTP.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"web-scraper-app/config"
	"web-scraper-app/feedback"
	"web-scraper-app/models"
	"web-scraper-app/services"
	"web-scraper-app/storage"
	"web-scraper-app/utils"
)

//go:embed templates
var templatesFS embed.FS

// Scraper runs a scrape for a category and stores the raw result.
type Scraper interface {
	Scrape(ctx context.Context, cat config.Category, baseURL string, pages int) (*models.RunReport, error)
}

// Deps are the collaborators of a Server. Scraper and Feedback may be nil,
// which disables the corresponding routes.
type Deps struct {
	Config    *config.Config
	Catalog   *config.Catalog
	Tables    storage.TableLoader
	Store     storage.TableStore
	Dashboard *services.Dashboard
	Cleaner   *services.Cleaner
	Scraper   Scraper
	Feedback  *feedback.Client
	Logger    *utils.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	Deps

	pages    map[string]*template.Template
	router   *mux.Router
	scraping sync.Mutex
}

var funcMap = template.FuncMap{
	"amount": services.FormatAmount,
	"num": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
	"pct": func(count, peak int) int {
		if peak == 0 {
			return 0
		}
		return count * 100 / peak
	},
	"peak": func(bins []models.Bin) int {
		p := 0
		for _, b := range bins {
			if b.Count > p {
				p = b.Count
			}
		}
		return p
	},
	"join": strings.Join,
}

// NewServer parses the page templates and registers the routes.
func NewServer(d Deps) (*Server, error) {
	if d.Tables == nil {
		d.Tables = storage.NewCache(d.Store)
	}
	s := &Server{Deps: d, pages: make(map[string]*template.Template)}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templatesFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse base template: %w", err)
	}
	for _, name := range []string{"index", "dashboard", "feedback", "error"} {
		tmpl, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("web: clone base template: %w", err)
		}
		if tmpl, err = tmpl.ParseFS(templatesFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("web: parse %s template: %w", name, err)
		}
		s.pages[name] = tmpl
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/dashboard/{category}", s.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/{category}", s.handleDashboardJSON).Methods(http.MethodGet)
	r.HandleFunc("/download/{category}", s.handleDownload).Methods(http.MethodGet)
	r.HandleFunc("/api/scrape", s.handleScrape).Methods(http.MethodPost)
	r.HandleFunc("/feedback", s.handleFeedbackForm).Methods(http.MethodGet)
	r.HandleFunc("/feedback", s.handleFeedbackSubmit).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, http.StatusNotFound, "Page introuvable", r.URL.Path)
	})
	r.Use(s.logRequests)
	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("[web] Dashboard listening on http://localhost%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web: serve: %w", err)
	case <-ctx.Done():
		s.Logger.Info("[web] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Logger.Debug("[web] %s %s → %d (%v)", r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Round(time.Microsecond))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.Logger.Error("[web] Template %s: %v", page, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorPage struct {
	Title   string
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, status int, title, msg string) {
	s.render(w, status, "error", errorPage{Title: title, Message: msg})
}
