package engine

import "fmt"

// OpenError reports a file that could not be opened as Parquet, either
// because the path does not exist or because the engine rejected the
// format.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string { return fmt.Sprintf("open %s: %v", e.Path, e.Err) }
func (e *OpenError) Unwrap() error { return e.Err }

// QueryError reports a SQL statement the engine refused or failed to
// execute. A failed statement never partially applies: callers keep
// their prior result state.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string { return fmt.Sprintf("query failed: %v", e.Err) }
func (e *QueryError) Unwrap() error { return e.Err }

// WriteError reports a failed serialization to disk (permission, disk
// space, or a cell value the target column type could not accept).
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }
