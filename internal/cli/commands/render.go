package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pqdesk/pqdesk/internal/tabular"
)

func renderResult(w io.Writer, res *tabular.Result, format string) error {
	switch format {
	case "json":
		return renderJSON(w, res)
	case "csv":
		return renderCSV(w, res)
	case "md", "markdown":
		return renderMarkdown(w, res)
	case "", "table":
		return renderTable(w, res)
	default:
		return fmt.Errorf("unknown format %q (want table, json, csv, or md)", format)
	}
}

func renderTable(w io.Writer, res *tabular.Result) error {
	if res.RowCount() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, res.ColCount())
	for i, col := range res.Columns {
		headerRow[i] = col.Name
	}
	t.AppendHeader(headerRow)

	for _, r := range res.Rows {
		row := make(table.Row, res.ColCount())
		for i := range res.Columns {
			row[i] = formatValue(r[i])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", res.RowCount())
	return nil
}

func renderMarkdown(w io.Writer, res *tabular.Result) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	headerRow := make(table.Row, res.ColCount())
	for i, col := range res.Columns {
		headerRow[i] = col.Name
	}
	t.AppendHeader(headerRow)

	for _, r := range res.Rows {
		row := make(table.Row, res.ColCount())
		for i := range res.Columns {
			row[i] = formatValue(r[i])
		}
		t.AppendRow(row)
	}

	t.RenderMarkdown()
	return nil
}

func renderJSON(w io.Writer, res *tabular.Result) error {
	records := make([]map[string]any, 0, res.RowCount())
	for _, r := range res.Rows {
		rec := make(map[string]any, res.ColCount())
		for i, col := range res.Columns {
			rec[col.Name] = r[i]
		}
		records = append(records, rec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func renderCSV(w io.Writer, res *tabular.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.ColumnNames()); err != nil {
		return err
	}
	record := make([]string, res.ColCount())
	for _, r := range res.Rows {
		for i := range res.Columns {
			record[i] = formatValue(r[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case float64:
		s := fmt.Sprintf("%g", val)
		return s
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}
