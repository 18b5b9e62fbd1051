package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/notify"
	"github.com/hpungsan/flourish/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"plant_analyze": {
		def:     analyzeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnalyze },
	},
	"plant_manual": {
		def:     manualToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleManual },
	},
	"plant_advise": {
		def:     adviseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdvise },
	},
	"plant_details": {
		def:     detailsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDetails },
	},
	"garden_add": {
		def:     gardenAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGardenAdd },
	},
	"garden_list": {
		def:     gardenListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGardenList },
	},
	"garden_get": {
		def:     gardenGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGardenGet },
	},
	"garden_update": {
		def:     gardenUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGardenUpdate },
	},
	"garden_remove": {
		def:     gardenRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGardenRemove },
	},
	"garden_care": {
		def:     gardenCareToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGardenCare },
	},
	"garden_stats": {
		def:     gardenStatsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGardenStats },
	},
	"garden_export": {
		def:     gardenExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGardenExport },
	},
	"garden_import": {
		def:     gardenImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGardenImport },
	},
	"schedule_add": {
		def:     scheduleAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScheduleAdd },
	},
	"schedule_list": {
		def:     scheduleListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScheduleList },
	},
	"schedule_update": {
		def:     scheduleUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScheduleUpdate },
	},
	"schedule_done": {
		def:     scheduleDoneToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScheduleDone },
	},
	"schedule_delete": {
		def:     scheduleDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScheduleDelete },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with Flourish tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(svc *ops.Service, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"flourish",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(svc, cfg)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport. Care reminders are
// pushed to connected clients as well as logged.
func Run(svc *ops.Service, cfg *config.Config, version string) error {
	s := NewServer(svc, cfg, version)
	if svc.Care != nil {
		svc.Care.SetNotifier(notify.Multi{notify.NewLog(nil), notify.NewMCP(s)})
	}
	return server.ServeStdio(s)
}
