package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/flourish/internal/analysis"
	"github.com/hpungsan/flourish/internal/care"
	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/garden"
	"github.com/hpungsan/flourish/internal/imaging"
	"github.com/hpungsan/flourish/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc *ops.Service
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *ops.Service, cfg *config.Config) *Handlers {
	return &Handlers{svc: svc, cfg: cfg}
}

// Request types for each tool

// AnalyzeRequest represents the arguments for plant_analyze.
type AnalyzeRequest struct {
	ImagePath string   `json:"image_path"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Advice    bool     `json:"advice,omitempty"`
	Save      bool     `json:"save,omitempty"`
	Name      string   `json:"name,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// ManualRequest represents the arguments for plant_manual.
type ManualRequest struct {
	CommonName     string   `json:"common_name,omitempty"`
	ScientificName string   `json:"scientific_name,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	HealthStatus   string   `json:"health_status,omitempty"`
	Issues         []string `json:"issues,omitempty"`
	Advice         bool     `json:"advice,omitempty"`
	Save           bool     `json:"save,omitempty"`
}

// AdviseRequest represents the arguments for plant_advise.
type AdviseRequest struct {
	PlantID  string `json:"plant_id"`
	Question string `json:"question,omitempty"`
	Save     bool   `json:"save,omitempty"`
}

// DetailsRequest represents the arguments for plant_details.
type DetailsRequest struct {
	AccessToken string   `json:"access_token"`
	Details     []string `json:"details,omitempty"`
}

// GardenAddRequest represents the arguments for garden_add.
type GardenAddRequest struct {
	Name           string `json:"name"`
	ScientificName string `json:"scientific_name,omitempty"`
	Type           string `json:"type,omitempty"`
	CareTips       string `json:"care_tips,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// GardenListRequest represents the arguments for garden_list.
type GardenListRequest struct {
	Filter string `json:"filter,omitempty"`
	Type   string `json:"type,omitempty"`
}

// GardenGetRequest represents the arguments for garden_get.
type GardenGetRequest struct {
	ID           string `json:"id"`
	IncludeImage bool   `json:"include_image,omitempty"`
}

// GardenUpdateRequest represents the arguments for garden_update.
type GardenUpdateRequest struct {
	ID             string  `json:"id"`
	Name           *string `json:"name,omitempty"`
	ScientificName *string `json:"scientific_name,omitempty"`
	Type           *string `json:"type,omitempty"`
	CareTips       *string `json:"care_tips,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

// IDRequest represents the arguments for tools that take only an id.
type IDRequest struct {
	ID string `json:"id"`
}

// GardenCareRequest represents the arguments for garden_care.
type GardenCareRequest struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

// ExportRequest represents the arguments for garden_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for garden_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// ScheduleRequest represents the arguments for schedule_add and schedule_update.
type ScheduleRequest struct {
	ID            string `json:"id,omitempty"`
	Type          string `json:"type,omitempty"`
	PlantName     string `json:"plant_name,omitempty"`
	FrequencyDays int    `json:"frequency_days,omitempty"`
	LastDone      string `json:"last_done,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// ScheduleListRequest represents the arguments for schedule_list.
type ScheduleListRequest struct {
	DueOnly   bool   `json:"due_only,omitempty"`
	PlantName string `json:"plant_name,omitempty"`
}

// Output types

// PlantSummary is a garden plant without its image and analysis snapshots.
type PlantSummary struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ScientificName string     `json:"scientific_name,omitempty"`
	Type           string     `json:"type"`
	Healthy        bool       `json:"healthy"`
	NeedsCare      bool       `json:"needs_care"`
	HasImage       bool       `json:"has_image"`
	CreatedAt      time.Time  `json:"created_at"`
	LastWatered    *time.Time `json:"last_watered,omitempty"`
}

func summarize(p garden.Plant, now time.Time) PlantSummary {
	return PlantSummary{
		ID:             p.ID,
		Name:           p.Name,
		ScientificName: p.ScientificName,
		Type:           p.Type,
		Healthy:        p.Healthy(),
		NeedsCare:      p.NeedsCare(now),
		HasImage:       p.Image != "",
		CreatedAt:      p.CreatedAt,
		LastWatered:    p.LastWatered,
	}
}

// ScheduleView is a schedule with its computed due values.
type ScheduleView struct {
	care.Schedule
	NextDue      care.Date `json:"nextDue"`
	DaysUntilDue int       `json:"daysUntilDue"`
	Label        string    `json:"label"`
}

func viewOf(st care.Status) ScheduleView {
	return ScheduleView{Schedule: st.Schedule, NextDue: st.NextDue, DaysUntilDue: st.DaysUntilDue, Label: st.Label()}
}

// AnalyzeResult is the plant_analyze and plant_manual output.
type AnalyzeResult struct {
	*analysis.Result
	SavedPlantID string `json:"savedPlantId,omitempty"`
}

// HandleAnalyze handles the plant_analyze tool.
func (h *Handlers) HandleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnalyzeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.ImagePath) == "" {
		return errorResult(errors.NewValidation("image_path is required")), nil
	}

	upload, err := imaging.LoadFile(input.ImagePath, h.cfg.MaxImageBytes)
	if err != nil {
		return errorResult(err), nil
	}
	out, err := h.svc.Analyze(ctx, ops.AnalyzeInput{
		Upload:     upload,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		WithAdvice: input.Advice,
	})
	if err != nil {
		return errorResult(err), nil
	}

	result := AnalyzeResult{Result: out.Result}
	if input.Save {
		plant, err := h.svc.SaveToGarden(ctx, ops.SaveInput{
			Result: out.Result,
			Name:   input.Name,
			Image:  out.Image,
			Notes:  input.Notes,
		})
		if err != nil {
			return errorResult(err), nil
		}
		result.SavedPlantID = plant.ID
	}
	return successResult(result)
}

// HandleManual handles the plant_manual tool.
func (h *Handlers) HandleManual(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ManualRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	res, err := h.svc.ManualEntry(ctx, ops.ManualInput{
		ManualEntry: analysis.ManualEntry{
			CommonName:     input.CommonName,
			ScientificName: input.ScientificName,
			Notes:          input.Notes,
			HealthStatus:   input.HealthStatus,
			Issues:         input.Issues,
		},
		WithAdvice: input.Advice,
	})
	if err != nil {
		return errorResult(err), nil
	}

	result := AnalyzeResult{Result: res}
	if input.Save {
		plant, err := h.svc.SaveToGarden(ctx, ops.SaveInput{Result: res, Notes: input.Notes})
		if err != nil {
			return errorResult(err), nil
		}
		result.SavedPlantID = plant.ID
	}
	return successResult(result)
}

// HandleAdvise handles the plant_advise tool.
func (h *Handlers) HandleAdvise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AdviseRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.PlantID) == "" {
		return errorResult(errors.NewInvalidRequest("plant_id is required")), nil
	}

	result, err := h.svc.Advise(ctx, ops.AdviseInput{
		PlantID:  input.PlantID,
		Question: input.Question,
		Save:     input.Save,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDetails handles the plant_details tool.
func (h *Handlers) HandleDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DetailsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.AccessToken) == "" {
		return errorResult(errors.NewInvalidRequest("access_token is required")), nil
	}

	result, err := h.svc.Details(ctx, ops.DetailsInput{AccessToken: input.AccessToken, Details: input.Details})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGardenAdd handles the garden_add tool.
func (h *Handlers) HandleGardenAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GardenAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	plant, err := h.svc.AddPlant(ctx, ops.AddPlantInput{
		Name:           input.Name,
		ScientificName: input.ScientificName,
		Type:           input.Type,
		CareTips:       input.CareTips,
		Notes:          input.Notes,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(summarize(plant, time.Now()))
}

// HandleGardenList handles the garden_list tool.
func (h *Handlers) HandleGardenList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GardenListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	plants, err := h.svc.ListPlants(ops.ListPlantsInput{Filter: ops.PlantFilter(input.Filter), Type: input.Type})
	if err != nil {
		return errorResult(err), nil
	}

	now := time.Now()
	items := make([]PlantSummary, 0, len(plants))
	for _, p := range plants {
		items = append(items, summarize(p, now))
	}
	return successResult(map[string]any{"items": items, "count": len(items)})
}

// HandleGardenGet handles the garden_get tool.
func (h *Handlers) HandleGardenGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GardenGetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	plant, err := h.svc.GetPlant(input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	if !input.IncludeImage {
		plant.Image = ""
	}
	return successResult(plant)
}

// HandleGardenUpdate handles the garden_update tool.
func (h *Handlers) HandleGardenUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GardenUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	plant, err := h.svc.UpdatePlant(ctx, input.ID, garden.Patch{
		Name:           input.Name,
		ScientificName: input.ScientificName,
		Type:           input.Type,
		CareTips:       input.CareTips,
		Notes:          input.Notes,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(summarize(plant, time.Now()))
}

// HandleGardenRemove handles the garden_remove tool.
func (h *Handlers) HandleGardenRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.svc.RemovePlant(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "removed": true})
}

// HandleGardenCare handles the garden_care tool.
func (h *Handlers) HandleGardenCare(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GardenCareRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	plant, err := h.svc.MarkCare(ctx, input.ID, input.Action)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"id":              plant.ID,
		"name":            plant.Name,
		"last_watered":    plant.LastWatered,
		"last_fertilized": plant.LastFertilized,
		"last_pruned":     plant.LastPruned,
	})
}

// HandleGardenStats handles the garden_stats tool.
func (h *Handlers) HandleGardenStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.svc.Garden.Stats())
}

// HandleGardenExport handles the garden_export tool.
func (h *Handlers) HandleGardenExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.ExportGarden(ctx, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGardenImport handles the garden_import tool.
func (h *Handlers) HandleGardenImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}

	result, err := h.svc.ImportGarden(ctx, ops.ImportInput{Path: input.Path, Mode: garden.ImportMode(input.Mode)})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleScheduleAdd handles the schedule_add tool.
func (h *Handlers) HandleScheduleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScheduleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	st, err := h.svc.AddSchedule(ctx, input.toOps())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(viewOf(st))
}

// HandleScheduleList handles the schedule_list tool.
func (h *Handlers) HandleScheduleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScheduleListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	name := strings.TrimSpace(input.PlantName)
	items := make([]ScheduleView, 0)
	for _, st := range h.svc.Schedules(input.DueOnly) {
		if name != "" && !strings.EqualFold(st.PlantName, name) {
			continue
		}
		items = append(items, viewOf(st))
	}
	return successResult(map[string]any{"items": items, "count": len(items)})
}

// HandleScheduleUpdate handles the schedule_update tool.
func (h *Handlers) HandleScheduleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScheduleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	st, err := h.svc.UpdateSchedule(ctx, input.toOps())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(viewOf(st))
}

// HandleScheduleDone handles the schedule_done tool.
func (h *Handlers) HandleScheduleDone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	st, err := h.svc.MarkScheduleDone(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(viewOf(st))
}

// HandleScheduleDelete handles the schedule_delete tool.
func (h *Handlers) HandleScheduleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.svc.Care.Delete(ctx, strings.TrimSpace(input.ID)); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "deleted": true})
}

func (r ScheduleRequest) toOps() ops.ScheduleInput {
	return ops.ScheduleInput{
		ID:            r.ID,
		Type:          r.Type,
		PlantName:     r.PlantName,
		FrequencyDays: r.FrequencyDays,
		LastDone:      r.LastDone,
		Notes:         r.Notes,
	}
}

// errorResult creates an MCP error result from an error. Wrapped Flourish
// errors keep their code; the message carries the wrapping context.
func errorResult(err error) *mcp.CallToolResult {
	fErr := errors.As(err)

	message := fErr.Message
	if err != error(fErr) && fErr.Code != errors.ErrInternal {
		message = err.Error()
	}
	if fErr.Code == errors.ErrInternal {
		message = "an internal error occurred"
	}

	errorObj := map[string]any{
		"code":    fErr.Code,
		"message": message,
		"status":  fErr.Status,
	}
	if fErr.Hint != "" {
		errorObj["hint"] = fErr.Hint
	}
	// Only include details for non-internal errors to avoid leaking
	// sensitive info like file paths or SQL errors
	if fErr.Code != errors.ErrInternal && fErr.Details != nil {
		errorObj["details"] = fErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
