package web

import (
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/flourish/internal/analysis"
	"github.com/hpungsan/flourish/internal/care"
	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/garden"
	"github.com/hpungsan/flourish/internal/imaging"
	"github.com/hpungsan/flourish/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	svc      *ops.Service
	cfg      *config.Config
	renderer *Renderer
}

// scheduleJSON is a schedule status as the JSON API returns it.
type scheduleJSON struct {
	care.Status
	Label string `json:"label"`
}

func schedulesJSON(items []care.Status) []scheduleJSON {
	out := make([]scheduleJSON, 0, len(items))
	for _, st := range items {
		out = append(out, scheduleJSON{Status: st, Label: st.Label()})
	}
	return out
}

// HandleGarden handles GET /garden: list plants.
func (h *Handlers) HandleGarden(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	typ := r.URL.Query().Get("type")

	plants, err := h.svc.ListPlants(ops.ListPlantsInput{Filter: ops.PlantFilter(filter), Type: typ})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		for i := range plants {
			plants[i].Image = ""
		}
		renderJSON(w, http.StatusOK, map[string]any{
			"items": plants,
			"stats": h.svc.Garden.Stats(),
		})
		return
	}

	now := time.Now()
	rows := make([]PlantRow, 0, len(plants))
	for _, p := range plants {
		rows = append(rows, PlantRow{Plant: p, NeedsWater: p.NeedsCare(now)})
	}
	h.renderer.renderPage(w, r, "garden", GardenPageData{
		PageData: h.renderer.page("My Garden", "garden"),
		Plants:   rows,
		Stats:    h.svc.Garden.Stats(),
		Filter:   filter,
		Type:     typ,
	})
}

// HandlePlant handles GET /garden/{id}: view one plant.
func (h *Handlers) HandlePlant(w http.ResponseWriter, r *http.Request) {
	plant, err := h.svc.GetPlant(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, plant)
		return
	}
	h.renderer.renderPage(w, r, "plant", h.plantPage(plant))
}

func (h *Handlers) plantPage(plant garden.Plant) PlantPageData {
	now := time.Now()
	var statuses []care.Status
	for _, sch := range h.svc.Care.ForPlant(plant.Name) {
		statuses = append(statuses, care.StatusOf(sch, now))
	}
	return PlantPageData{
		PageData:     h.renderer.page(plant.Name, "garden"),
		Plant:        plant,
		NeedsCare:    plant.NeedsCare(now),
		CareTipsHTML: renderMarkdown(plant.CareTips),
		Schedules:    statuses,
	}
}

// HandleCare handles POST /garden/{id}/care: record water, fertilize or prune.
func (h *Handlers) HandleCare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	plant, err := h.svc.MarkCare(r.Context(), r.PathValue("id"), r.FormValue("action"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.finish(w, r, "/garden/"+plant.ID, plant)
}

// HandleAdvice handles POST /garden/{id}/advice: initial advice or a chat reply.
// Initial advice is saved as the plant's care tips.
func (h *Handlers) HandleAdvice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	id := r.PathValue("id")
	question := strings.TrimSpace(r.FormValue("question"))
	out, err := h.svc.Advise(r.Context(), ops.AdviseInput{PlantID: id, Question: question, Save: question == ""})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	if question == "" {
		h.finish(w, r, "/garden/"+id, out)
		return
	}

	plant, err := h.svc.GetPlant(id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	data := h.plantPage(plant)
	data.Question = question
	data.ReplyHTML = renderMarkdown(out.Advice)
	h.renderer.renderPage(w, r, "plant", data)
}

// HandleRemove handles POST /garden/{id}/delete and DELETE /garden/{id}.
func (h *Handlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.RemovePlant(r.Context(), id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.finish(w, r, "/garden", map[string]any{"removed": true, "id": id})
}

// HandleAnalyzeForm handles GET /analyze: the upload and manual entry forms.
func (h *Handlers) HandleAnalyzeForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "analyze", AnalyzePageData{
		PageData:   h.renderer.page("Analyze a Plant", "analyze"),
		Configured: h.svc.PlantID.Configured(),
	})
}

// HandleAnalyze handles POST /analyze: identify an uploaded photo.
// With save checked the plant goes straight to the garden.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readUpload(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	input := ops.AnalyzeInput{Upload: upload, WithAdvice: formBool(r, "advice")}
	if input.Latitude, err = formFloat(r, "latitude"); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if input.Longitude, err = formFloat(r, "longitude"); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	out, err := h.svc.Analyze(r.Context(), input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if formBool(r, "save") {
		plant, err := h.svc.SaveToGarden(r.Context(), ops.SaveInput{
			Result: out.Result,
			Name:   r.FormValue("name"),
			Image:  out.Image,
			Notes:  r.FormValue("notes"),
		})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		if wantsJSON(r) {
			renderJSON(w, http.StatusCreated, map[string]any{"result": out.Result, "plantId": plant.ID})
			return
		}
		h.finish(w, r, "/garden/"+plant.ID, plant)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out.Result)
		return
	}
	h.renderer.renderPage(w, r, "analyze", AnalyzePageData{
		PageData:   h.renderer.page(out.PlantInfo.Name, "analyze"),
		Configured: true,
		Result:     out.Result,
		Image:      out.Image,
		AdviceHTML: renderMarkdown(out.Advice),
	})
}

// readUpload extracts the "image" file from a multipart form. Oversized
// files are reported from their declared size without being read.
func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) (*imaging.Upload, error) {
	maxBytes := h.cfg.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = imaging.DefaultMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if stderrors.As(err, &tooBig) {
			return nil, errors.NewImageTooLarge(maxBytes, r.ContentLength)
		}
		return nil, errors.NewValidation("no file provided")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, errors.NewValidation("no file provided")
	}
	defer file.Close()

	u := &imaging.Upload{
		Name:     header.Filename,
		MIMEType: uploadType(header),
		Size:     header.Size,
	}
	if header.Size > maxBytes {
		return u, nil
	}
	if u.Data, err = io.ReadAll(file); err != nil {
		return nil, errors.NewInternal(err)
	}
	if u.MIMEType == "" || u.MIMEType == "application/octet-stream" {
		u.MIMEType = http.DetectContentType(u.Data)
	}
	return u, nil
}

func uploadType(header *multipart.FileHeader) string {
	t := header.Header.Get("Content-Type")
	if i := strings.Index(t, ";"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// HandleManual handles POST /manual: save a plant entered by name.
func (h *Handlers) HandleManual(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	result, err := h.svc.ManualEntry(r.Context(), ops.ManualInput{
		ManualEntry: analysis.ManualEntry{
			CommonName:     r.FormValue("common_name"),
			ScientificName: r.FormValue("scientific_name"),
			Notes:          r.FormValue("notes"),
			HealthStatus:   r.FormValue("health_status"),
			Issues:         splitLines(r.FormValue("issues")),
		},
		WithAdvice: formBool(r, "advice"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	plant, err := h.svc.SaveToGarden(r.Context(), ops.SaveInput{Result: result, Notes: r.FormValue("notes")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, plant)
		return
	}
	h.finish(w, r, "/garden/"+plant.ID, plant)
}

// HandleSchedules handles GET /schedules: schedules soonest first.
func (h *Handlers) HandleSchedules(w http.ResponseWriter, r *http.Request) {
	dueOnly := parseBoolParam(r, "due_only")
	items := h.svc.Schedules(dueOnly)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"items": schedulesJSON(items)})
		return
	}
	h.renderer.renderPage(w, r, "schedules", SchedulesPageData{
		PageData: h.renderer.page("Care Schedule", "schedules"),
		Items:    items,
		Types:    care.Types,
		Today:    care.DateOf(time.Now()).String(),
		DueOnly:  dueOnly,
	})
}

// HandleScheduleAdd handles POST /schedules: create a schedule.
func (h *Handlers) HandleScheduleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	freq, err := strconv.Atoi(strings.TrimSpace(r.FormValue("frequency_days")))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("frequency must be a whole number of days"))
		return
	}

	st, err := h.svc.AddSchedule(r.Context(), ops.ScheduleInput{
		Type:          r.FormValue("type"),
		PlantName:     r.FormValue("plant_name"),
		FrequencyDays: freq,
		LastDone:      r.FormValue("last_done"),
		Notes:         r.FormValue("notes"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, scheduleJSON{Status: st, Label: st.Label()})
		return
	}
	h.finish(w, r, "/schedules", nil)
}

// HandleScheduleDone handles POST /schedules/{id}/done: mark done today.
func (h *Handlers) HandleScheduleDone(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.MarkScheduleDone(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.finish(w, r, "/schedules", scheduleJSON{Status: st, Label: st.Label()})
}

// HandleScheduleDelete handles POST /schedules/{id}/delete and DELETE /schedules/{id}.
func (h *Handlers) HandleScheduleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.Care.Delete(r.Context(), id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.finish(w, r, "/schedules", map[string]any{"deleted": true, "id": id})
}

// finish completes a mutation: HX-Redirect for htmx, JSON when asked,
// otherwise a See Other redirect to location.
func (h *Handlers) finish(w http.ResponseWriter, r *http.Request, location string, data any) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", location)
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, data)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// formBool reads a checkbox or boolean form field.
func formBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.FormValue(name)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// formFloat parses an optional numeric form field.
func formFloat(r *http.Request, name string) (*float64, error) {
	s := strings.TrimSpace(r.FormValue(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.NewInvalidRequest(name + " must be a number")
	}
	return &v, nil
}

// splitLines splits a textarea into trimmed, non-empty lines or comma items.
func splitLines(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == ',' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
