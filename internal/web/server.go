package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/observability"
	"github.com/hpungsan/flourish/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the Flourish web UI.
func NewServer(svc *ops.Service, cfg *config.Config, version, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           NewHandler(svc, cfg, version),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed, instrumented handler tree.
func NewHandler(svc *ops.Service, cfg *config.Config, version string) http.Handler {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("template sub-FS: %v", err))
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	h := &Handlers{
		svc:      svc,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, version),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/garden", http.StatusFound)
	})
	mux.HandleFunc("GET /garden", h.HandleGarden)
	mux.HandleFunc("GET /garden/{id}", h.HandlePlant)
	mux.HandleFunc("POST /garden/{id}/care", h.HandleCare)
	mux.HandleFunc("POST /garden/{id}/advice", h.HandleAdvice)
	mux.HandleFunc("POST /garden/{id}/delete", h.HandleRemove)
	mux.HandleFunc("DELETE /garden/{id}", h.HandleRemove)

	mux.HandleFunc("GET /analyze", h.HandleAnalyzeForm)
	mux.HandleFunc("POST /analyze", h.HandleAnalyze)
	mux.HandleFunc("POST /manual", h.HandleManual)

	mux.HandleFunc("GET /schedules", h.HandleSchedules)
	mux.HandleFunc("POST /schedules", h.HandleScheduleAdd)
	mux.HandleFunc("POST /schedules/{id}/done", h.HandleScheduleDone)
	mux.HandleFunc("POST /schedules/{id}/delete", h.HandleScheduleDelete)
	mux.HandleFunc("DELETE /schedules/{id}", h.HandleScheduleDelete)

	mux.Handle("GET /metrics", promhttp.Handler())

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return instrument(securityHeaders(mux))
}

// securityHeaders adds security-related HTTP headers to all responses.
// Plant photos are inline data URIs, so img-src allows data:.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request duration by method, route pattern and status.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		} else if i := strings.IndexByte(path, ' '); i >= 0 {
			path = path[i+1:]
		}
		elapsed := time.Since(start)
		observability.HTTPRequestDuration.
			WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).
			Observe(elapsed.Seconds())
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", elapsed)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("Flourish UI running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		slog.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
