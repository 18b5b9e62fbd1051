package mcp

import "github.com/mark3labs/mcp-go/mcp"

var analyzeToolDef = mcp.NewTool("plant_analyze",
	mcp.WithDescription("Identify a plant and assess its health from a photo. Uses one plant.id credit. Optionally adds care advice and saves the result to the garden."),
	mcp.WithString("image_path", mcp.Required(), mcp.Description("Path to a JPEG, PNG or WebP photo")),
	mcp.WithNumber("latitude", mcp.Description("Where the photo was taken, improves identification")),
	mcp.WithNumber("longitude", mcp.Description("Where the photo was taken, improves identification")),
	mcp.WithBoolean("advice", mcp.Description("Generate initial care advice")),
	mcp.WithBoolean("save", mcp.Description("Save the identified plant to the garden")),
	mcp.WithString("name", mcp.Description("Name to save the plant under instead of the identified one")),
	mcp.WithString("notes", mcp.Description("Notes stored with the saved plant")),
)

var manualToolDef = mcp.NewTool("plant_manual",
	mcp.WithDescription("Enter a plant by name without a photo. Uses no credits."),
	mcp.WithString("common_name", mcp.Description("Common name; one of common_name or scientific_name is required")),
	mcp.WithString("scientific_name", mcp.Description("Scientific name")),
	mcp.WithString("notes", mcp.Description("Free-form notes")),
	mcp.WithString("health_status", mcp.Enum("healthy", "needs_attention"), mcp.Description("Defaults to healthy")),
	mcp.WithArray("issues", mcp.WithStringItems(), mcp.Description("Observed problems, used when health_status is needs_attention")),
	mcp.WithBoolean("advice", mcp.Description("Generate initial care advice")),
	mcp.WithBoolean("save", mcp.Description("Save the plant to the garden")),
)

var adviseToolDef = mcp.NewTool("plant_advise",
	mcp.WithDescription("Get care advice for a garden plant, or ask a follow-up question about it."),
	mcp.WithString("plant_id", mcp.Required(), mcp.Description("Garden plant ID")),
	mcp.WithString("question", mcp.Description("Follow-up question; omit for initial advice")),
	mcp.WithBoolean("save", mcp.Description("Store initial advice as the plant's care tips")),
)

var detailsToolDef = mcp.NewTool("plant_details",
	mcp.WithDescription("Fetch extra species details for an earlier identification."),
	mcp.WithString("access_token", mcp.Required(), mcp.Description("Access token from a previous plant_analyze result")),
	mcp.WithArray("details", mcp.WithStringItems(), mcp.Description("Detail fields to request; defaults to the standard set")),
)

var gardenAddToolDef = mcp.NewTool("garden_add",
	mcp.WithDescription("Add a plant to the garden directly."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Plant name")),
	mcp.WithString("scientific_name", mcp.Description("Scientific name")),
	mcp.WithString("type", mcp.Description("Plant type; defaults to the scientific name")),
	mcp.WithString("care_tips", mcp.Description("Care tips")),
	mcp.WithString("notes", mcp.Description("Notes")),
)

var gardenListToolDef = mcp.NewTool("garden_list",
	mcp.WithDescription("List garden plants. Images are omitted."),
	mcp.WithString("filter", mcp.Enum("all", "healthy", "needs_care"), mcp.Description("Defaults to all")),
	mcp.WithString("type", mcp.Description("Only plants whose type contains this text, ignoring case")),
)

var gardenGetToolDef = mcp.NewTool("garden_get",
	mcp.WithDescription("Get one garden plant with its stored analysis."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Plant ID")),
	mcp.WithBoolean("include_image", mcp.Description("Include the stored photo data URI")),
)

var gardenUpdateToolDef = mcp.NewTool("garden_update",
	mcp.WithDescription("Change fields of a garden plant. Omitted fields are kept."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Plant ID")),
	mcp.WithString("name", mcp.Description("New name")),
	mcp.WithString("scientific_name", mcp.Description("New scientific name")),
	mcp.WithString("type", mcp.Description("New type")),
	mcp.WithString("care_tips", mcp.Description("New care tips")),
	mcp.WithString("notes", mcp.Description("New notes")),
)

var gardenRemoveToolDef = mcp.NewTool("garden_remove",
	mcp.WithDescription("Remove a plant from the garden. Its care schedules are kept."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Plant ID")),
)

var gardenCareToolDef = mcp.NewTool("garden_care",
	mcp.WithDescription("Record that a plant was watered, fertilized or pruned just now."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Plant ID")),
	mcp.WithString("action", mcp.Required(), mcp.Enum("water", "fertilize", "prune")),
)

var gardenStatsToolDef = mcp.NewTool("garden_stats",
	mcp.WithDescription("Count plants in the garden: total, healthy and needing water."),
)

var gardenExportToolDef = mcp.NewTool("garden_export",
	mcp.WithDescription("Write the garden to a YAML file."),
	mcp.WithString("path", mcp.Description("Output path; defaults to ~/.flourish/exports/garden-<timestamp>.yaml")),
)

var gardenImportToolDef = mcp.NewTool("garden_import",
	mcp.WithDescription("Load plants from a YAML export."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Export file path")),
	mcp.WithString("mode", mcp.Enum("merge", "replace"), mcp.Description("merge skips known IDs (default); replace swaps the whole garden")),
)

var scheduleAddToolDef = mcp.NewTool("schedule_add",
	mcp.WithDescription("Create a recurring care schedule. A reminder fires on the due date while the server runs."),
	mcp.WithString("type", mcp.Required(), mcp.Enum("watering", "fertilizing", "pruning", "repotting")),
	mcp.WithString("plant_name", mcp.Description("Plant the schedule is for; defaults to \"My Plant\"")),
	mcp.WithNumber("frequency_days", mcp.Required(), mcp.Description("Days between care, at least 1")),
	mcp.WithString("last_done", mcp.Description("Date last done, YYYY-MM-DD; defaults to today")),
	mcp.WithString("notes", mcp.Description("Notes")),
)

var scheduleListToolDef = mcp.NewTool("schedule_list",
	mcp.WithDescription("List care schedules, soonest due first."),
	mcp.WithBoolean("due_only", mcp.Description("Only schedules due today or overdue")),
	mcp.WithString("plant_name", mcp.Description("Only schedules for this plant, ignoring case")),
)

var scheduleUpdateToolDef = mcp.NewTool("schedule_update",
	mcp.WithDescription("Change a care schedule. Omitted fields are kept."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Schedule ID")),
	mcp.WithString("type", mcp.Enum("watering", "fertilizing", "pruning", "repotting")),
	mcp.WithString("plant_name", mcp.Description("Plant name")),
	mcp.WithNumber("frequency_days", mcp.Description("Days between care, at least 1")),
	mcp.WithString("last_done", mcp.Description("Date last done, YYYY-MM-DD")),
	mcp.WithString("notes", mcp.Description("Notes")),
)

var scheduleDoneToolDef = mcp.NewTool("schedule_done",
	mcp.WithDescription("Mark a scheduled task done today."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Schedule ID")),
)

var scheduleDeleteToolDef = mcp.NewTool("schedule_delete",
	mcp.WithDescription("Delete a care schedule and cancel its reminder."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Schedule ID")),
)
