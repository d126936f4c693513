// Package tabular holds the in-memory result set backing each open tab.
//
// A Result is the single mutation target for edits: the grid renders it,
// cell edits and row operations mutate it, and saving serializes its
// current full state back through the engine. There is no separate diff
// log; the Result is the source of truth.
package tabular

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a cell or row operation addresses a
// position outside the current result bounds.
var ErrOutOfRange = errors.New("position out of range")

// Column describes one column of a result set.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// Result is an ordered set of columns plus rows. Every row has exactly
// len(Columns) cells; individual cells may be nil.
type Result struct {
	Columns []Column
	Rows    [][]any
}

// New returns an empty result with no columns.
func New() *Result {
	return &Result{}
}

// Replace swaps in a full new column/row state. Used after the initial
// load and after every query re-execution.
func (r *Result) Replace(cols []Column, rows [][]any) {
	r.Columns = cols
	r.Rows = rows
}

// RowCount returns the number of rows currently held.
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// ColCount returns the number of columns currently held.
func (r *Result) ColCount() int {
	return len(r.Columns)
}

// Cell returns the value at (row, col).
func (r *Result) Cell(row, col int) (any, error) {
	if err := r.checkCell(row, col); err != nil {
		return nil, err
	}
	return r.Rows[row][col], nil
}

// SetCell overwrites the value at (row, col).
func (r *Result) SetCell(row, col int, value any) error {
	if err := r.checkCell(row, col); err != nil {
		return err
	}
	r.Rows[row][col] = value
	return nil
}

// InsertRow inserts a blank (all-nil) row at the given index. An index
// equal to RowCount appends.
func (r *Result) InsertRow(at int) error {
	if at < 0 || at > len(r.Rows) {
		return fmt.Errorf("insert row %d of %d: %w", at, len(r.Rows), ErrOutOfRange)
	}
	if len(r.Columns) == 0 {
		return fmt.Errorf("insert row: result has no columns")
	}
	blank := make([]any, len(r.Columns))
	r.Rows = append(r.Rows, nil)
	copy(r.Rows[at+1:], r.Rows[at:])
	r.Rows[at] = blank
	return nil
}

// DeleteRow removes the row at the given index.
func (r *Result) DeleteRow(row int) error {
	if row < 0 || row >= len(r.Rows) {
		return fmt.Errorf("delete row %d of %d: %w", row, len(r.Rows), ErrOutOfRange)
	}
	r.Rows = append(r.Rows[:row], r.Rows[row+1:]...)
	return nil
}

// Clone returns a deep copy of the row slice structure. Cell values are
// copied by reference; callers treat cells as immutable and replace them
// via SetCell rather than mutating in place.
func (r *Result) Clone() *Result {
	cols := make([]Column, len(r.Columns))
	copy(cols, r.Columns)
	rows := make([][]any, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = make([]any, len(row))
		copy(rows[i], row)
	}
	return &Result{Columns: cols, Rows: rows}
}

// ColumnNames returns the ordered column names.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

func (r *Result) checkCell(row, col int) error {
	if row < 0 || row >= len(r.Rows) {
		return fmt.Errorf("row %d of %d: %w", row, len(r.Rows), ErrOutOfRange)
	}
	if col < 0 || col >= len(r.Columns) {
		return fmt.Errorf("column %d of %d: %w", col, len(r.Columns), ErrOutOfRange)
	}
	return nil
}
