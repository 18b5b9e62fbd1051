package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/flourish/internal/care"
	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/db"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/garden"
	"github.com/hpungsan/flourish/internal/mcp"
	"github.com/hpungsan/flourish/internal/notify"
	"github.com/hpungsan/flourish/internal/observability"
	"github.com/hpungsan/flourish/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"analyze": true, "manual": true, "advise": true, "details": true,
	"garden": true, "schedule": true, "ui": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___ _                _     _
  | __| |___ _  _ _ _(_)___| |_
  | _|| / _ \ || | '_| (_-<| ' \
  |_| |_\___/\_,_|_| |_/__/|_||_|

  Plant identification and care assistant

  Usage: flourish <command> [options]
         flourish --help

  MCP server mode requires piped input.`)
}

// openService loads the garden and schedules and assembles the service.
func openService(ctx context.Context, database *sql.DB, cfg *config.Config) (*ops.Service, error) {
	kv := db.NewKV(database)

	g, err := garden.Open(ctx, kv)
	if err != nil {
		return nil, fmt.Errorf("failed to load garden: %w", err)
	}
	sched, err := care.Open(ctx, kv, care.Options{
		Notifier:   notify.NewLog(nil),
		Permission: notify.NewPermission(cfg.Notifications),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}
	return ops.New(cfg, g, sched, nil), nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".flourish")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unknown tools in disabled_tools: %v\n", unknown)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	svc, err := openService(context.Background(), database, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errors.ErrConfiguration) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", errors.As(err).Hint)
		}
		os.Exit(1)
	}
	defer svc.Care.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(svc)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'flourish --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(svc, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
