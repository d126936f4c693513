// Package cli provides the command-line interface for pqdesk.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pqdesk/pqdesk/internal/cli/commands"
	"github.com/pqdesk/pqdesk/internal/cli/config"
	"github.com/pqdesk/pqdesk/internal/session"
	"github.com/pqdesk/pqdesk/internal/tui"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command. Running it with no
// subcommand starts the interactive browser, opening each positional
// argument in its own tab (which is also the file-association entry
// point: "pqdesk sales.parquet").
func NewRootCmd() *cobra.Command {
	var rootCmd *cobra.Command
	rootCmd = &cobra.Command{
		Use:   "pqdesk [file.parquet ...]",
		Short: "pqdesk - browse, edit, and query Parquet files",
		Long: `pqdesk is a terminal browser and editor for Parquet files, built on the
embedded DuckDB engine.

With file arguments (or none), it opens a full-screen tabbed browser where
files can be paged through, edited cell by cell, queried with SQL, and
saved back to Parquet. Subcommands provide the same engine without the
interface, for scripts and pipelines.`,
		Example: `  # Browse one or more files interactively
  pqdesk sales.parquet inventory.parquet

  # Print a file to stdout
  pqdesk cat sales.parquet --format json

  # Run SQL against a file (the file is the relation "t")
  pqdesk query sales.parquet "SELECT region, SUM(amount) FROM t GROUP BY 1"`,
		Version: Version,
		Args:    cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, newLogger(cfg, cmd.Name() == rootCmd.Name()))
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Parquet browser built with Go and DuckDB
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pqdesk.yaml)")
	rootCmd.PersistentFlags().Int("page-size", 0, "Rows per page")
	rootCmd.PersistentFlags().String("log-file", "", "Debug log file for the interactive browser")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewCatCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewSchemaCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))

	return rootCmd
}

// newLogger builds the slog logger for this invocation. The browser
// owns the terminal, so its logs go to a file (when configured) instead
// of stderr.
func newLogger(cfg *config.Config, interactive bool) *slog.Logger {
	if interactive {
		if cfg.LogFile != "" {
			f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err == nil {
				return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}
		}
		return slog.New(slog.DiscardHandler)
	}
	if cfg.Verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.DiscardHandler)
}

// runBrowse starts the interactive browser.
func runBrowse(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	recent, err := config.NewRecentStore(cfg.MaxRecent)
	if err != nil {
		logger.Warn("recent files unavailable", "error", err)
		recent = nil
	}

	sess := session.New(logger)
	defer sess.CloseAll()

	model := tui.New(sess, cfg, recent, logger, args)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
