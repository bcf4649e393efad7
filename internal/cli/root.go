// Package cli provides the command-line interface for the journal.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"closing-journal/internal/config"
	"closing-journal/internal/journal"
	"closing-journal/internal/logging"
	"closing-journal/internal/models"
	"closing-journal/internal/offline"
	"closing-journal/internal/report"
	"closing-journal/internal/resilience"
	"closing-journal/internal/store"
	"closing-journal/internal/view"
	"closing-journal/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-05-02"
)

// commandTimeout bounds every command except serve.
const commandTimeout = 30 * time.Second

// App holds the application dependencies. Fields left nil are wired from
// the configuration before the first command runs.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   store.Store
	Journal *journal.Service
	Reports view.ReportSource
	Worker  *offline.Worker
	Now     func() time.Time

	ownsStore bool
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "closing-journal",
		Short: "Closing-time trade journal",
		Long: `closing-journal records closing-time trade candidates and executed trades,
shows simple performance statistics and lists the daily auto-generated
candidate report.

Without a subcommand the panel named by --tab is shown.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config")
			if err := app.wire(configDir); err != nil {
				return err
			}
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, _ := cmd.Flags().GetString("tab")
			st, err := app.state(cmd, models.Tab(tab))
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return app.renderer(cmd).Render(ctx, st)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/closing-journal)")
	rootCmd.PersistentFlags().String("date", "", "selected day as YYYY-MM-DD (default: today)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.Flags().String("tab", string(models.TabAuto), "panel to show: auto, today, patterns, journal, stats, settings")

	addCoreCommands(rootCmd, app)
	addPanelCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addOfflineCommands(rootCmd, app)
	addServeCommand(rootCmd, app)
	addStoreCommands(rootCmd, app)

	return rootCmd
}

// Close releases the store when the app opened it.
func (a *App) Close() error {
	if a.ownsStore && a.Store != nil {
		a.ownsStore = false
		return a.Store.Close()
	}
	return nil
}

// wire builds every dependency not provided by the caller.
func (a *App) wire(configDir string) error {
	if a.Journal != nil {
		return nil
	}
	if a.Config == nil {
		cfg, err := config.Load(configDir)
		if err != nil {
			return err
		}
		a.Config = cfg
		a.Logger = logging.NewLoggerWithConfig(cfg.LoggingConfig())
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	if a.Store == nil {
		dbPath := a.Config.DBPath()
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := store.NewSQLiteStore(dbPath)
		if err != nil {
			return err
		}
		a.Store = st
		a.ownsStore = true
		a.Logger.Debug().Str("path", dbPath).Msg("SQLite store initialized")
	}
	a.Journal = journal.NewService(a.Store, a.Logger, journal.WithClock(a.now))

	if a.Reports == nil {
		client := &http.Client{Timeout: a.Config.Report.Timeout}
		if a.Config.Offline.Enabled {
			w, err := offline.NewWorker(a.Store, a.Config.Offline.CacheVersion, a.Config.OfflineOrigin(),
				a.Config.Offline.Assets, http.DefaultTransport, a.Logger)
			if err != nil {
				return err
			}
			a.Worker = w
			client = w.Client(a.Config.Report.Timeout)
		}
		fetcher := report.NewFetcher(a.Config.Report.BaseURL, a.Config.Report.Path, client, a.Logger)
		a.Reports = resilience.NewGuardedReports(fetcher, resilience.DefaultCircuitBreakerConfig(), a.Logger)
	}
	return nil
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) location() *time.Location {
	if a.Config == nil {
		return utils.SeoulLocation
	}
	return a.Config.Location()
}

func (a *App) maxItems() int {
	if a.Config == nil {
		return view.DefaultMaxItems
	}
	return a.Config.Report.MaxItems
}

// state builds the view state for tab from the --date flag.
func (a *App) state(cmd *cobra.Command, tab models.Tab) (view.State, error) {
	st, err := view.NewState(a.now(), a.location()).WithTab(tab)
	if err != nil {
		return st, err
	}
	if date, _ := cmd.Flags().GetString("date"); date != "" {
		return st.WithDate(date)
	}
	return st, nil
}

func (a *App) output(cmd *cobra.Command) *view.Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	color := a.Config == nil || a.Config.UI.ColorEnabled
	return view.NewOutput(cmd.OutOrStdout(), jsonMode, color)
}

func (a *App) renderer(cmd *cobra.Command) *view.Renderer {
	return view.NewRenderer(a.Journal, a.Reports, a.maxItems(), a.output(cmd))
}

func (a *App) actions(cmd *cobra.Command, yes bool) *view.Actions {
	return view.NewActions(a.Journal, a.Reports, confirmFunc(cmd, yes))
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}

// confirmFunc asks on stderr and reads the answer from stdin unless yes
// was given on the command line.
func confirmFunc(cmd *cobra.Command, yes bool) view.Confirm {
	return func(prompt string) bool {
		if yes {
			return true
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", prompt)
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := app.output(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("closing-journal v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := app.output(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": app.Config.Dir(), "db": app.Config.DBPath()})
			} else {
				output.Println(app.Config.Dir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *view.Output, cfg *config.Config) error {
	output.Bold("Storage")
	output.Printf("  Database:        %s\n", cfg.DBPath())
	output.Println()

	output.Bold("Report")
	output.Printf("  Base URL:        %s\n", cfg.Report.BaseURL)
	output.Printf("  Path:            %s\n", cfg.Report.Path)
	output.Printf("  Max Items:       %d\n", cfg.Report.MaxItems)
	output.Printf("  Timeout:         %s\n", cfg.Report.Timeout)
	output.Println()

	output.Bold("Offline Cache")
	output.Printf("  Enabled:         %v\n", cfg.Offline.Enabled)
	output.Printf("  Version:         %s\n", cfg.Offline.CacheVersion)
	output.Printf("  Origin:          %s\n", cfg.OfflineOrigin())
	output.Printf("  Assets:          %d\n", len(cfg.Offline.Assets))
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr)
	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = utils.Placeholder
	}
	output.Printf("  Static Dir:      %s\n", staticDir)
	output.Println()

	output.Bold("UI")
	output.Printf("  Timezone:        %s\n", cfg.UI.Timezone)
	output.Printf("  Color:           %v\n", cfg.UI.ColorEnabled)

	return nil
}
