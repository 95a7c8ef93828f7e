package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TobiSchelling/learnloop/internal/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

// Reporter produces a report-only run.
type Reporter interface {
	Report(ctx context.Context) (*pipeline.Result, error)
}

// Server is the HTTP server for viewing the learning loop report.
type Server struct {
	reporter Reporter
	registry *prometheus.Registry
	pages    map[string]*template.Template
	mux      *http.ServeMux
}

// New creates a new Server. A nil registry disables /metrics.
func New(reporter Reporter, registry *prometheus.Registry) (*Server, error) {
	base, err := template.New("base.html").ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so it can define "content".
	pageNames := []string{"index.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{reporter: reporter, registry: registry, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/report.txt", s.handleText)
	if s.registry != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	result, err := s.reporter.Report(r.Context())
	if err != nil {
		log.Printf("Error building report: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if result.Empty {
		s.render(w, "index.html", map[string]any{"Message": result.Message})
		return
	}

	body, err := result.Report.HTML()
	if err != nil {
		log.Printf("Error rendering report: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "index.html", map[string]any{
		"Date": result.Date.Format("2006-01-02"),
		"Body": template.HTML(body), //nolint: gosec
	})
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	result, err := s.reporter.Report(r.Context())
	if err != nil {
		log.Printf("Error building report: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if result.Empty {
		fmt.Fprintln(w, result.Message)
		return
	}
	fmt.Fprint(w, result.Report.Text())
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

// Serve starts the HTTP server on the given port.
func Serve(reporter Reporter, registry *prometheus.Registry, port int) error {
	srv, err := New(reporter, registry)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
