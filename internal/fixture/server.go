// Package fixture serves a small replica of the public site: a home page
// with a collapsible search box and a four-column footer, and a search
// page listing matching articles. Scenario runs can point BASE_URL at it.
package fixture

import (
	_ "embed"
	"html/template"
	"net/http"
	"strings"

	"brighthorizons-e2e/internal/application/port/output"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
)

//go:embed layout.html
var layout string

type Options struct {
	// RequestLog enables httplog request logging on stderr.
	RequestLog bool
	JSONLog    bool
	Logger     output.LoggerPort
}

type Server struct {
	router chi.Router
	pages  *template.Template
	log    output.LoggerPort
}

func NewServer(opts Options) *Server {
	s := &Server{
		router: chi.NewRouter(),
		pages:  template.Must(template.New("site").Parse(layout)),
		log:    opts.Logger,
	}

	s.router.Use(middleware.Recoverer)
	if opts.RequestLog {
		logger := httplog.NewLogger("fixture-site", httplog.Options{
			JSON:    opts.JSONLog,
			Concise: true,
		})
		s.router.Use(httplog.RequestLogger(logger))
	}

	s.router.Get("/", s.home)
	s.router.Get("/search", s.search)
	s.router.Get("/resources/{slug}", s.article)
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusNotFound, pageData{Title: "Page not found"})
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type pageData struct {
	Title   string
	Query   string
	Home    bool
	Search  bool
	Results []Article
	Article *Article
	Footer  []FooterColumn
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	data.Footer = FooterColumns
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.Execute(w, data); err != nil && s.log != nil {
		s.log.Error("Render failed", "title", data.Title, "error", err)
	}
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{Title: "Bright Horizons", Home: true})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	results := Search(q)
	if s.log != nil {
		s.log.Debug("Fixture search", "query", q, "results", len(results))
	}
	s.render(w, http.StatusOK, pageData{
		Title:   "Search results",
		Query:   q,
		Search:  true,
		Results: results,
	})
}

func (s *Server) article(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	for i := range Articles {
		if Articles[i].Slug == slug {
			s.render(w, http.StatusOK, pageData{Title: Articles[i].Title, Article: &Articles[i]})
			return
		}
	}
	s.render(w, http.StatusNotFound, pageData{Title: "Page not found"})
}
