package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/flourish/internal/analysis"
	"github.com/hpungsan/flourish/internal/care"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/garden"
	"github.com/hpungsan/flourish/internal/imaging"
	"github.com/hpungsan/flourish/internal/ops"
	"github.com/hpungsan/flourish/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(svc *ops.Service) *cli.App {
	app := &cli.App{
		Name:    "flourish",
		Usage:   "Plant identification and care assistant",
		Version: Version,
		Commands: []*cli.Command{
			analyzeCmd(svc),
			manualCmd(svc),
			adviseCmd(svc),
			detailsCmd(svc),
			gardenCmd(svc),
			scheduleCmd(svc),
			uiCmd(svc),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// analyzeCmd creates the analyze command.
func analyzeCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Identify a plant and assess its health from a photo",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "lat", Usage: "Latitude where the photo was taken"},
			&cli.Float64Flag{Name: "lon", Usage: "Longitude where the photo was taken"},
			&cli.BoolFlag{Name: "advice", Aliases: []string{"a"}, Usage: "Also generate care advice"},
			&cli.BoolFlag{Name: "save", Aliases: []string{"s"}, Usage: "Save the result to the garden"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Garden name (defaults to the identified name)"},
			&cli.StringFlag{Name: "notes", Usage: "Notes to save with the plant"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewValidation("image path is required"))
			}

			upload, err := imaging.LoadFile(c.Args().First(), svc.Config.MaxImageBytes)
			if err != nil {
				return outputError(err)
			}

			input := ops.AnalyzeInput{Upload: upload, WithAdvice: c.Bool("advice")}
			if c.IsSet("lat") {
				lat := c.Float64("lat")
				input.Latitude = &lat
			}
			if c.IsSet("lon") {
				lon := c.Float64("lon")
				input.Longitude = &lon
			}

			out, err := svc.Analyze(c.Context, input)
			if err != nil {
				return outputError(err)
			}

			if !c.Bool("save") {
				return outputJSON(out.Result)
			}
			plant, err := svc.SaveToGarden(c.Context, ops.SaveInput{
				Result: out.Result,
				Name:   c.String("name"),
				Image:  out.Image,
				Notes:  c.String("notes"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(savedResult{Result: out.Result, SavedPlantID: plant.ID})
		},
	}
}

// savedResult is an analysis result that was also saved to the garden.
type savedResult struct {
	*analysis.Result
	SavedPlantID string `json:"savedPlantId"`
}

// manualCmd creates the manual command.
func manualCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "manual",
		Usage: "Describe a plant by name instead of a photo",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "common-name", Aliases: []string{"c"}, Usage: "Common name"},
			&cli.StringFlag{Name: "scientific-name", Usage: "Scientific name"},
			&cli.StringFlag{Name: "health", Usage: "Health status in your own words"},
			&cli.StringFlag{Name: "issues", Usage: "Comma-separated observed issues"},
			&cli.StringFlag{Name: "notes", Usage: "Notes"},
			&cli.BoolFlag{Name: "advice", Aliases: []string{"a"}, Usage: "Also generate care advice"},
			&cli.BoolFlag{Name: "save", Aliases: []string{"s"}, Usage: "Save the plant to the garden"},
		},
		Action: func(c *cli.Context) error {
			res, err := svc.ManualEntry(c.Context, ops.ManualInput{
				ManualEntry: analysis.ManualEntry{
					CommonName:     c.String("common-name"),
					ScientificName: c.String("scientific-name"),
					Notes:          c.String("notes"),
					HealthStatus:   c.String("health"),
					Issues:         parseList(c.String("issues")),
				},
				WithAdvice: c.Bool("advice"),
			})
			if err != nil {
				return outputError(err)
			}

			if !c.Bool("save") {
				return outputJSON(res)
			}
			plant, err := svc.SaveToGarden(c.Context, ops.SaveInput{Result: res, Notes: c.String("notes")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(savedResult{Result: res, SavedPlantID: plant.ID})
		},
	}
}

// adviseCmd creates the advise command.
func adviseCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "advise",
		Aliases:   []string{"chat"},
		Usage:     "Get care advice for a garden plant, or ask it a question",
		ArgsUsage: "<plant-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "question", Aliases: []string{"q"}, Usage: "Follow-up question (chat mode)"},
			&cli.BoolFlag{Name: "save", Aliases: []string{"s"}, Usage: "Save initial advice as the plant's care tips"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("plant id is required"))
			}

			out, err := svc.Advise(c.Context, ops.AdviseInput{
				PlantID:  c.Args().First(),
				Question: c.String("question"),
				Save:     c.Bool("save"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

// detailsCmd creates the details command.
func detailsCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "details",
		Usage:     "Fetch extended details for an earlier identification",
		ArgsUsage: "<access-token>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "fields", Aliases: []string{"f"}, Usage: "Comma-separated detail names (default set if omitted)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("access token is required"))
			}

			info, err := svc.Details(c.Context, ops.DetailsInput{
				AccessToken: c.Args().First(),
				Details:     parseList(c.String("fields")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(info)
		},
	}
}

// gardenCmd creates the garden command and its subcommands.
func gardenCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "garden",
		Usage: "Manage saved plants",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a plant without an analysis",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Plant name"},
					&cli.StringFlag{Name: "scientific-name", Usage: "Scientific name"},
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Plant type (defaults to the scientific name)"},
					&cli.StringFlag{Name: "care-tips", Usage: "Care tips (markdown)"},
					&cli.StringFlag{Name: "notes", Usage: "Notes"},
				},
				Action: func(c *cli.Context) error {
					plant, err := svc.AddPlant(c.Context, ops.AddPlantInput{
						Name:           c.String("name"),
						ScientificName: c.String("scientific-name"),
						Type:           c.String("type"),
						CareTips:       c.String("care-tips"),
						Notes:          c.String("notes"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(withoutImage(plant))
				},
			},
			{
				Name:  "list",
				Usage: "List plants",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Value: "all", Usage: "all|healthy|needs_care"},
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Only plants whose type contains this text"},
				},
				Action: func(c *cli.Context) error {
					plants, err := svc.ListPlants(ops.ListPlantsInput{
						Filter: ops.PlantFilter(c.String("filter")),
						Type:   c.String("type"),
					})
					if err != nil {
						return outputError(err)
					}
					items := make([]garden.Plant, 0, len(plants))
					for _, p := range plants {
						items = append(items, withoutImage(p))
					}
					return outputJSON(map[string]any{"items": items, "count": len(items)})
				},
			},
			{
				Name:      "show",
				Usage:     "Show one plant",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "include-image", Usage: "Include the stored photo data URI"},
				},
				Action: func(c *cli.Context) error {
					plant, err := svc.GetPlant(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					if !c.Bool("include-image") {
						plant = withoutImage(plant)
					}
					return outputJSON(plant)
				},
			},
			{
				Name:      "update",
				Usage:     "Edit a plant",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
					&cli.StringFlag{Name: "scientific-name", Usage: "New scientific name"},
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "New type"},
					&cli.StringFlag{Name: "care-tips", Usage: "New care tips"},
					&cli.StringFlag{Name: "notes", Usage: "New notes"},
				},
				Action: func(c *cli.Context) error {
					var patch garden.Patch
					patch.Name = stringFlag(c, "name")
					patch.ScientificName = stringFlag(c, "scientific-name")
					patch.Type = stringFlag(c, "type")
					patch.CareTips = stringFlag(c, "care-tips")
					patch.Notes = stringFlag(c, "notes")

					plant, err := svc.UpdatePlant(c.Context, c.Args().First(), patch)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(withoutImage(plant))
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a plant",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if err := svc.RemovePlant(c.Context, id); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"removed": true, "id": id})
				},
			},
			careCmd(svc, "water", ops.CareWater, "Record a watering"),
			careCmd(svc, "fertilize", ops.CareFertilize, "Record a fertilizing"),
			careCmd(svc, "prune", ops.CarePrune, "Record a pruning"),
			{
				Name:  "stats",
				Usage: "Show garden counts",
				Action: func(_ *cli.Context) error {
					return outputJSON(svc.Garden.Stats())
				},
			},
			{
				Name:  "export",
				Usage: "Export the garden to a YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.flourish/exports/garden-<timestamp>.yaml)"},
				},
				Action: func(c *cli.Context) error {
					out, err := svc.ExportGarden(c.Context, ops.ExportInput{Path: c.String("path")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
			{
				Name:  "import",
				Usage: "Import plants from a YAML export",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
					&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(garden.ImportModeMerge), Usage: "merge|replace"},
				},
				Action: func(c *cli.Context) error {
					out, err := svc.ImportGarden(c.Context, ops.ImportInput{
						Path: c.String("path"),
						Mode: garden.ImportMode(c.String("mode")),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
		},
	}
}

// careCmd records a care action on a plant.
func careCmd(svc *ops.Service, name, action, usage string) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			plant, err := svc.MarkCare(c.Context, c.Args().First(), action)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(withoutImage(plant))
		},
	}
}

// scheduleCmd creates the schedule command and its subcommands.
func scheduleCmd(svc *ops.Service) *cli.Command {
	scheduleFlags := func(required bool) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Required: required, Usage: "watering|fertilizing|pruning|repotting"},
			&cli.StringFlag{Name: "plant", Aliases: []string{"p"}, Usage: "Plant name"},
			&cli.IntFlag{Name: "every", Aliases: []string{"e"}, Required: required, Usage: "Frequency in days"},
			&cli.StringFlag{Name: "last-done", Usage: "Date last done, YYYY-MM-DD (default: today)"},
			&cli.StringFlag{Name: "notes", Usage: "Notes"},
		}
	}
	scheduleInput := func(c *cli.Context) ops.ScheduleInput {
		return ops.ScheduleInput{
			Type:          c.String("type"),
			PlantName:     c.String("plant"),
			FrequencyDays: c.Int("every"),
			LastDone:      c.String("last-done"),
			Notes:         c.String("notes"),
		}
	}

	return &cli.Command{
		Name:  "schedule",
		Usage: "Manage recurring care tasks",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a schedule",
				Flags: scheduleFlags(true),
				Action: func(c *cli.Context) error {
					st, err := svc.AddSchedule(c.Context, scheduleInput(c))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(scheduleView{Status: st, Label: st.Label()})
				},
			},
			{
				Name:  "list",
				Usage: "List schedules, soonest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "due", Aliases: []string{"d"}, Usage: "Only schedules due today or overdue"},
					&cli.StringFlag{Name: "plant", Aliases: []string{"p"}, Usage: "Only schedules for this plant"},
				},
				Action: func(c *cli.Context) error {
					plant := strings.TrimSpace(c.String("plant"))
					items := make([]scheduleView, 0)
					for _, st := range svc.Schedules(c.Bool("due")) {
						if plant != "" && !strings.EqualFold(st.PlantName, plant) {
							continue
						}
						items = append(items, scheduleView{Status: st, Label: st.Label()})
					}
					return outputJSON(map[string]any{"items": items, "count": len(items)})
				},
			},
			{
				Name:  "due",
				Usage: "List schedules due today or overdue",
				Action: func(_ *cli.Context) error {
					items := make([]scheduleView, 0)
					for _, st := range svc.Schedules(true) {
						items = append(items, scheduleView{Status: st, Label: st.Label()})
					}
					return outputJSON(map[string]any{"items": items, "count": len(items)})
				},
			},
			{
				Name:      "update",
				Usage:     "Edit a schedule; omitted flags keep their values",
				ArgsUsage: "<id>",
				Flags:     scheduleFlags(false),
				Action: func(c *cli.Context) error {
					input := scheduleInput(c)
					input.ID = c.Args().First()
					st, err := svc.UpdateSchedule(c.Context, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(scheduleView{Status: st, Label: st.Label()})
				},
			},
			{
				Name:      "done",
				Usage:     "Mark a schedule done today",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					st, err := svc.MarkScheduleDone(c.Context, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(scheduleView{Status: st, Label: st.Label()})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a schedule",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if err := svc.Care.Delete(c.Context, id); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"deleted": true, "id": id})
				},
			},
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Serve the garden web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8420, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(svc, svc.Config, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// scheduleView is a schedule status with its human label.
type scheduleView struct {
	care.Status
	Label string `json:"label"`
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	fErr := errors.As(err)
	msg := fmt.Sprintf("[%s] %s", fErr.Code, fErr.Message)
	if fErr.Hint != "" {
		msg += "\n  hint: " + fErr.Hint
	}
	return cli.Exit(msg, 1)
}

// withoutImage drops the photo data URI, which is too large for terminal output.
func withoutImage(p garden.Plant) garden.Plant {
	p.Image = ""
	return p
}

// stringFlag returns a pointer to the flag value when it was set.
func stringFlag(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

// parseList splits a comma-separated string into trimmed, non-empty items.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			items = append(items, t)
		}
	}
	return items
}
