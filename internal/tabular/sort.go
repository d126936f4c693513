package tabular

import (
	"fmt"
	"sort"
	"time"
)

// Sort orders rows by the given column, nulls last regardless of
// direction. The sort is stable so repeated sorts on different columns
// compose predictably. Sorting is a view concern and does not touch the
// owning tab's dirty flag.
func (r *Result) Sort(col int, descending bool) error {
	if col < 0 || col >= len(r.Columns) {
		return fmt.Errorf("sort column %d of %d: %w", col, len(r.Columns), ErrOutOfRange)
	}
	sort.SliceStable(r.Rows, func(i, j int) bool {
		a, b := r.Rows[i][col], r.Rows[j][col]
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		less := compareCells(a, b) < 0
		if descending {
			return !less && compareCells(a, b) != 0
		}
		return less
	})
	return nil
}

// compareCells orders two non-nil cell values. Values of comparable
// numeric kinds are compared numerically; times chronologically;
// everything else by its string rendering.
func compareCells(a, b any) int {
	if na, aok := asFloat(a); aok {
		if nb, bok := asFloat(b); bok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
	}
	if ta, aok := a.(time.Time); aok {
		if tb, bok := b.(time.Time); bok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			default:
				return 0
			}
		}
	}
	sa, sb := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
