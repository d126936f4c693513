package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pqdesk/pqdesk/internal/tabular"
)

const (
	minColWidth = 4
	maxColWidth = 32
	// widthSampleRows bounds how many rows feed column width estimation.
	widthSampleRows = 100
)

// formatCell renders a cell value for display. Floats use compact
// scientific-or-fixed notation; nil is blank.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', 6, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', 6, 32)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseCell turns an edit buffer back into a typed value guided by the
// column's declared type. Empty input is NULL. Values the declared type
// cannot represent are kept as strings; the engine decides at write
// time whether it can coerce them (edits are not validated in the
// grid).
func parseCell(s, colType string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t := strings.ToUpper(colType)
	switch {
	case strings.Contains(t, "INT"):
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
		return s
	case strings.Contains(t, "DOUBLE"), strings.Contains(t, "FLOAT"),
		strings.Contains(t, "DECIMAL"), strings.Contains(t, "REAL"):
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
		return s
	case strings.Contains(t, "BOOL"):
		switch strings.ToLower(s) {
		case "true", "1", "yes", "y":
			return true
		case "false", "0", "no", "n":
			return false
		}
		return s
	default:
		return s
	}
}

// isNumericType reports whether a column renders right-aligned.
func isNumericType(colType string) bool {
	t := strings.ToUpper(colType)
	for _, kw := range []string{"INT", "DOUBLE", "FLOAT", "DECIMAL", "REAL", "HUGEINT"} {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// truncCell shortens s to width runes, ending in an ellipsis.
func truncCell(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

// alignCell pads or truncates a rendered value to width, right-aligning
// numeric columns.
func alignCell(s, colType string, width int) string {
	if utf8.RuneCountInString(s) > width {
		return truncCell(s, width)
	}
	if isNumericType(colType) {
		return fmt.Sprintf("%*s", width, s)
	}
	return fmt.Sprintf("%-*s", width, s)
}

// computeColWidths sizes columns from the header plus a sample of rows.
func computeColWidths(res *tabular.Result) []int {
	widths := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		widths[i] = utf8.RuneCountInString(c.Name) + 2 // room for a sort arrow
		if widths[i] < minColWidth {
			widths[i] = minColWidth
		}
	}
	sample := len(res.Rows)
	if sample > widthSampleRows {
		sample = widthSampleRows
	}
	for _, row := range res.Rows[:sample] {
		for i := range res.Columns {
			if w := utf8.RuneCountInString(formatCell(row[i])); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] > maxColWidth {
			widths[i] = maxColWidth
		}
	}
	return widths
}

// visibleColRange picks the columns that fit the viewport, keeping the
// cursor column visible.
func visibleColRange(widths []int, scrollX, cx, avail int) (int, int) {
	start := scrollX
	if start >= len(widths) {
		start = 0
	}
	used := 0
	end := start
	for end < len(widths) {
		w := widths[end] + 3
		if used+w > avail && end > start {
			break
		}
		used += w
		end++
	}
	if cx >= end {
		end = cx + 1
		used = 0
		for i := end - 1; i >= 0; i-- {
			used += widths[i] + 3
			if used > avail {
				start = i + 1
				break
			}
			start = i
		}
	}
	if cx < start {
		start = cx
	}
	return start, end
}

// humanSize renders a byte count the way the status bar shows file size.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
