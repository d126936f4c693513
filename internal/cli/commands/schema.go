package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pqdesk/pqdesk/internal/cli/config"
	"github.com/pqdesk/pqdesk/internal/engine"
	"github.com/pqdesk/pqdesk/internal/tabular"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "schema FILE",
		Short: "Show a Parquet file's columns and row count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, args[0], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, csv, md")
	return cmd
}

func runSchema(cmd *cobra.Command, path, format string) error {
	cfg := config.GetConfig(cmd.Context())

	eng := engine.New()
	if err := eng.Open(cmd.Context(), path); err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	cols, err := eng.Schema(cmd.Context())
	if err != nil {
		return err
	}
	total, err := eng.Count(cmd.Context(), fmt.Sprintf("SELECT * FROM %s", engine.RelationName))
	if err != nil {
		return err
	}

	// Present the schema itself as a result set so every format works.
	res := tabular.New()
	rows := make([][]any, len(cols))
	for i, c := range cols {
		nullable := "NO"
		if c.Nullable {
			nullable = "YES"
		}
		rows[i] = []any{c.Name, c.Type, nullable}
	}
	res.Replace([]tabular.Column{
		{Name: "column", Type: "VARCHAR"},
		{Name: "type", Type: "VARCHAR"},
		{Name: "nullable", Type: "VARCHAR"},
	}, rows)

	if format == "" {
		format = cfg.OutputFormat
	}
	if err := renderResult(cmd.OutOrStdout(), res, format); err != nil {
		return err
	}
	if format == "" || format == "table" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d rows\n", total)
	}
	return nil
}
