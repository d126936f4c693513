// Package engine wraps the embedded DuckDB engine behind the small
// surface the rest of the application needs: open a Parquet file as a
// relation, run SQL against it, and serialize a tabular result back to
// disk. Parquet decoding/encoding and SQL execution are entirely
// DuckDB's contract; nothing here reimplements them.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/pqdesk/pqdesk/internal/tabular"
)

// RelationName is the view each opened file is exposed as. User SQL
// queries the file through this name, e.g. SELECT * FROM t WHERE ...
const RelationName = "t"

// Engine is one in-memory DuckDB connection holding a single opened
// Parquet file as a view. Each open tab owns exactly one Engine; there
// is no shared connection state between tabs.
type Engine struct {
	db        *sql.DB
	path      string
	sizeBytes int64
}

// New returns an unopened engine. Open must be called before any query.
func New() *Engine {
	return &Engine{}
}

// Path returns the file path of the opened relation, or "" for an
// unopened engine.
func (e *Engine) Path() string { return e.path }

// SizeBytes returns the on-disk size of the opened file.
func (e *Engine) SizeBytes() int64 { return e.sizeBytes }

// Open connects an in-memory DuckDB instance and exposes the Parquet
// file at path as the view named RelationName. It fails with *OpenError
// if the path does not exist or DuckDB cannot read it as Parquet.
func (e *Engine) Open(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &OpenError{Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return &OpenError{Path: abs, Err: err}
	}

	if err := e.ensure(ctx); err != nil {
		return &OpenError{Path: abs, Err: err}
	}

	stmt := fmt.Sprintf(
		"CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet('%s')",
		RelationName, quotePath(abs),
	)
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return &OpenError{Path: abs, Err: err}
	}
	// Binding the view does not read the file body, so probe it to
	// surface corrupt or non-Parquet files at open time.
	if _, err := e.db.ExecContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", RelationName)); err != nil {
		return &OpenError{Path: abs, Err: err}
	}

	e.path = abs
	e.sizeBytes = info.Size()
	return nil
}

// ensure connects the in-memory DuckDB instance on first use.
func (e *Engine) ensure(ctx context.Context) error {
	if e.db != nil {
		return nil
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}
	e.db = db
	return nil
}

// Close releases the DuckDB connection.
func (e *Engine) Close() error {
	if e.db != nil {
		err := e.db.Close()
		e.db = nil
		return err
	}
	return nil
}

// Query executes a SQL statement and materializes the full result. On
// failure it returns *QueryError and the caller's prior state is
// untouched.
func (e *Engine) Query(ctx context.Context, sqlText string) (*tabular.Result, error) {
	if e.db == nil {
		return nil, &QueryError{SQL: sqlText, Err: fmt.Errorf("no file opened")}
	}

	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, &QueryError{SQL: sqlText, Err: err}
	}
	defer func() { _ = rows.Close() }()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, &QueryError{SQL: sqlText, Err: err}
	}
	cols := make([]tabular.Column, len(colTypes))
	for i, ct := range colTypes {
		nullable, _ := ct.Nullable()
		cols[i] = tabular.Column{
			Name:     ct.Name(),
			Type:     ct.DatabaseTypeName(),
			Nullable: nullable,
		}
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{SQL: sqlText, Err: err}
		}
		for i, v := range values {
			// Convert []byte to string for display and re-binding.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{SQL: sqlText, Err: err}
	}

	res := tabular.New()
	res.Replace(cols, data)
	return res, nil
}

// Count returns the row count of an arbitrary SELECT without
// materializing it.
func (e *Engine) Count(ctx context.Context, baseSQL string) (int64, error) {
	if e.db == nil {
		return 0, &QueryError{SQL: baseSQL, Err: fmt.Errorf("no file opened")}
	}
	var n int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS sub", baseSQL)
	if err := e.db.QueryRowContext(ctx, countSQL).Scan(&n); err != nil {
		return 0, &QueryError{SQL: countSQL, Err: err}
	}
	return n, nil
}

// Schema returns the opened relation's columns via DESCRIBE.
func (e *Engine) Schema(ctx context.Context) ([]tabular.Column, error) {
	if e.db == nil {
		return nil, &QueryError{Err: fmt.Errorf("no file opened")}
	}

	rows, err := e.db.QueryContext(ctx, fmt.Sprintf("DESCRIBE %s", RelationName))
	if err != nil {
		return nil, &QueryError{SQL: "DESCRIBE", Err: err}
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{SQL: "DESCRIBE", Err: err}
	}

	var cols []tabular.Column
	for rows.Next() {
		// DESCRIBE yields column_name, column_type, null, key, default, extra.
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{SQL: "DESCRIBE", Err: err}
		}
		col := tabular.Column{
			Name: asString(values[0]),
			Type: asString(values[1]),
		}
		if len(values) > 2 {
			col.Nullable = strings.EqualFold(asString(values[2]), "YES")
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{SQL: "DESCRIBE", Err: err}
	}
	return cols, nil
}

// Write serializes a full result to a Parquet file at path, overwriting
// any existing file. The result's current schema is written as-is, even
// when a query narrowed it relative to the originally opened file.
func (e *Engine) Write(ctx context.Context, path string, res *tabular.Result) error {
	return e.copyOut(ctx, path, res, "(FORMAT PARQUET)")
}

// ExportCSV serializes a full result to a CSV file with a header row.
func (e *Engine) ExportCSV(ctx context.Context, path string, res *tabular.Result) error {
	return e.copyOut(ctx, path, res, "(HEADER, DELIMITER ',')")
}

// copyOut materializes res into a scratch table and hands serialization
// to DuckDB's COPY. Cell values are bound as-is; a string edit the
// declared column type cannot accept fails here, at write time.
func (e *Engine) copyOut(ctx context.Context, path string, res *tabular.Result, copyOpts string) error {
	if err := e.ensure(ctx); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if res.ColCount() == 0 {
		return &WriteError{Path: path, Err: fmt.Errorf("no columns to write")}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	const scratch = "__pqdesk_out__"
	defer func() {
		_, _ = e.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", scratch))
	}()

	if _, err := e.db.ExecContext(ctx, scratchDDL(scratch, res.Columns)); err != nil {
		return &WriteError{Path: abs, Err: err}
	}

	if err := e.insertRows(ctx, scratch, res); err != nil {
		return &WriteError{Path: abs, Err: err}
	}

	copySQL := fmt.Sprintf("COPY %s TO '%s' %s", scratch, quotePath(abs), copyOpts)
	if _, err := e.db.ExecContext(ctx, copySQL); err != nil {
		return &WriteError{Path: abs, Err: err}
	}
	return nil
}

func (e *Engine) insertRows(ctx context.Context, table string, res *tabular.Result) error {
	if res.RowCount() == 0 {
		return nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", res.ColCount()), ",")
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, placeholders))
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range res.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// scratchDDL builds a CREATE TABLE from the result schema. Columns with
// no recorded type fall back to VARCHAR.
func scratchDDL(table string, cols []tabular.Column) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE TABLE %s (", table)
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		typ := c.Type
		if typ == "" {
			typ = "VARCHAR"
		}
		fmt.Fprintf(&b, "%s %s", quoteIdent(c.Name), typ)
	}
	b.WriteString(")")
	return b.String()
}

// quotePath escapes a filesystem path for embedding in a SQL string
// literal. DuckDB accepts forward slashes on every platform.
func quotePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ReplaceAll(path, "'", "''")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
