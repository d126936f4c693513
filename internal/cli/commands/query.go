package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pqdesk/pqdesk/internal/cli/config"
	"github.com/pqdesk/pqdesk/internal/engine"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
	Out    string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query FILE [SQL]",
		Short: "Run SQL against a Parquet file",
		Long: `Run a SQL statement against a Parquet file.

The file is exposed as the relation "t"; the SQL dialect is DuckDB's.
SQL is taken from the argument, --input, or stdin, in that order.

With --out, the result is written back to disk instead of rendered:
a .parquet target produces a Parquet file, a .csv target a CSV file.`,
		Example: `  pqdesk query sales.parquet "SELECT * FROM t WHERE amount > 10"

  # Read SQL from a file
  pqdesk query sales.parquet --input report.sql

  # From a pipe
  echo "SELECT COUNT(*) FROM t" | pqdesk query sales.parquet

  # Materialize a filtered copy
  pqdesk query sales.parquet "SELECT * FROM t WHERE region='EU'" --out eu.parquet`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "Write the result to a .parquet or .csv file")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	var sqlText string
	switch {
	case len(args) > 1:
		sqlText = args[1]
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlText = string(content)
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlText = string(content)
	default:
		return fmt.Errorf("no SQL given (argument, --input, or stdin)")
	}
	if strings.TrimSpace(sqlText) == "" {
		return fmt.Errorf("empty SQL")
	}

	eng := engine.New()
	if err := eng.Open(cmd.Context(), args[0]); err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	res, err := eng.Query(cmd.Context(), sqlText)
	if err != nil {
		return err
	}
	logger.Debug("query executed", "rows", res.RowCount(), "columns", res.ColCount())

	if opts.Out != "" {
		if strings.HasSuffix(strings.ToLower(opts.Out), ".csv") {
			return eng.ExportCSV(cmd.Context(), opts.Out, res)
		}
		return eng.Write(cmd.Context(), opts.Out, res)
	}

	format := opts.Format
	if format == "" {
		format = cfg.OutputFormat
	}
	return renderResult(cmd.OutOrStdout(), res, format)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
