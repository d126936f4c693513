// Package commands implements the non-interactive pqdesk subcommands.
// They use the same engine adapter as the browser, one engine per
// invocation, and render through go-pretty.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pqdesk/pqdesk/internal/cli/config"
	"github.com/pqdesk/pqdesk/internal/engine"
)

// CatOptions holds options for the cat command.
type CatOptions struct {
	Format string
	Limit  int
	Offset int
}

// NewCatCommand creates the cat command.
func NewCatCommand() *cobra.Command {
	opts := &CatOptions{}

	cmd := &cobra.Command{
		Use:   "cat FILE",
		Short: "Print a Parquet file's contents",
		Example: `  # First 100 rows as a table
  pqdesk cat sales.parquet

  # Whole file as JSON
  pqdesk cat sales.parquet --limit 0 --format json

  # Rows 1000-1099 as CSV
  pqdesk cat sales.parquet --offset 1000 --format csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", -1, "Max rows to print (0 for all, default: page size)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Rows to skip")

	return cmd
}

func runCat(cmd *cobra.Command, path string, opts *CatOptions) error {
	cfg := config.GetConfig(cmd.Context())

	eng := engine.New()
	if err := eng.Open(cmd.Context(), path); err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	limit := opts.Limit
	if limit < 0 {
		limit = cfg.PageSize
	}

	sqlText := fmt.Sprintf("SELECT * FROM %s", engine.RelationName)
	if limit > 0 {
		sqlText = fmt.Sprintf("%s LIMIT %d OFFSET %d", sqlText, limit, opts.Offset)
	} else if opts.Offset > 0 {
		sqlText = fmt.Sprintf("%s OFFSET %d", sqlText, opts.Offset)
	}

	res, err := eng.Query(cmd.Context(), sqlText)
	if err != nil {
		return err
	}

	format := opts.Format
	if format == "" {
		format = cfg.OutputFormat
	}
	return renderResult(cmd.OutOrStdout(), res, format)
}
