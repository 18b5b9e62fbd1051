package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/flourish/internal/analysis"
	"github.com/hpungsan/flourish/internal/care"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/garden"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "garden", "analyze", "schedules"
}

// PlantRow is a garden plant with its computed care state.
type PlantRow struct {
	garden.Plant
	NeedsWater bool
}

// GardenPageData is the template data for the garden list page.
type GardenPageData struct {
	PageData
	Plants []PlantRow
	Stats  garden.Stats
	Filter string
	Type   string
}

// PlantPageData is the template data for the plant detail page.
type PlantPageData struct {
	PageData
	Plant        garden.Plant
	NeedsCare    bool
	CareTipsHTML template.HTML
	Schedules    []care.Status
	Question     string
	ReplyHTML    template.HTML
}

// AnalyzePageData is the template data for the analyze page.
type AnalyzePageData struct {
	PageData
	Configured bool
	Result     *analysis.Result
	Image      string
	AdviceHTML template.HTML
}

// SchedulesPageData is the template data for the schedules page.
type SchedulesPageData struct {
	PageData
	Items   []care.Status
	Types   []care.Type
	Today   string
	DueOnly bool
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
	Hint       string
	// Retry links back to the form that failed; empty for other pages.
	Retry string
}

// retryFor returns where to go to try a failed pipeline request again.
func retryFor(req *http.Request) string {
	switch req.URL.Path {
	case "/analyze", "/manual":
		return "/analyze"
	}
	return ""
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"formatTime": formatTime,
		"formatDate": formatDate,
		"percent":    percent,
		"dueClass":   dueClass,
		"imageSrc":   imageSrc,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"garden":    "garden.html",
		"plant":     "plant.html",
		"analyze":   "analyze.html",
		"schedules": "schedules.html",
		"error":     "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		slog.Error("template not found", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		slog.Error("template execution error", "name", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	fErr := errors.As(err)

	status := fErr.Status
	message := fErr.Message
	if fErr.Code == errors.ErrInternal {
		slog.Error("request failed", "path", req.URL.Path, "error", err)
		message = "an internal error occurred"
	}

	retry := retryFor(req)

	// HTMX request: return HTML fragment
	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s`, template.HTMLEscapeString(message))
		if fErr.Hint != "" {
			fmt.Fprintf(w, `<p class="hint">%s</p>`, template.HTMLEscapeString(fErr.Hint))
		}
		if retry != "" {
			fmt.Fprintf(w, `<p><a href="%s">Try again</a> or <a href="%s#manual">add it by name</a></p>`, retry, retry)
		}
		fmt.Fprint(w, `</div>`)
		return
	}

	// JSON request
	if wantsJSON(req) {
		errorObj := map[string]any{
			"code":    string(fErr.Code),
			"message": message,
			"status":  status,
		}
		if fErr.Hint != "" {
			errorObj["hint"] = fErr.Hint
		}
		if retry != "" {
			errorObj["retry"] = retry
		}
		renderJSON(w, status, map[string]any{"error": errorObj})
		return
	}

	// Full error page
	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", status), ""),
		StatusCode: status,
		Message:    message,
		Hint:       fErr.Hint,
		Retry:      retry,
	})
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is not passed through.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a timestamp as "2006-01-02 15:04" UTC.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// formatDate formats an optional care timestamp, or "Never".
func formatDate(t *time.Time) string {
	if t == nil {
		return "Never"
	}
	return t.UTC().Format("Jan 2, 2006")
}

// percent renders a 0..1 probability as a whole percentage.
func percent(p float64) string {
	return fmt.Sprintf("%.0f%%", p*100)
}

// dueClass maps days-until-due to a badge class.
func dueClass(days int) string {
	switch {
	case days < 0:
		return "overdue"
	case days == 0:
		return "today"
	case days <= 2:
		return "soon"
	default:
		return "later"
	}
}

// imageSrc passes stored image data URIs through the template sanitizer.
// Anything that is not an inline image is dropped.
func imageSrc(s string) template.URL {
	if strings.HasPrefix(s, "data:image/") {
		return template.URL(s)
	}
	return ""
}
