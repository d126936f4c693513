package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pqdesk/pqdesk/internal/engine"
	"github.com/pqdesk/pqdesk/internal/tabular"
)

// DefaultPageSize is the number of rows fetched per page until the user
// sets another via a LIMIT clause or the pager.
const DefaultPageSize = 100

// NoSort marks a tab with no active column sort.
const NoSort = -1

// Tab is one open file context: an exclusive engine handle, the cached
// result currently displayed, and the pager/query state around it. Tabs
// are fully independent; nothing here is shared between tabs.
type Tab struct {
	ID     int
	Path   string
	Engine *engine.Engine
	Cache  *tabular.Result
	Dirty  bool

	BaseSQL   string
	Page      int // 1-based
	PageSize  int
	TotalRows int64

	SortCol  int
	SortDesc bool

	Schema []tabular.Column

	// gen orders asynchronous results for this tab. Only a result
	// carrying the latest generation may replace the cache.
	gen uint64
}

// NextGen advances and returns the tab's generation. Call when starting
// an asynchronous operation whose result will target this tab.
func (t *Tab) NextGen() uint64 {
	t.gen++
	return t.gen
}

// Gen returns the current generation.
func (t *Tab) Gen() uint64 { return t.gen }

// Stale reports whether a result generation is outdated for this tab.
func (t *Tab) Stale(gen uint64) bool { return gen != t.gen }

// Name returns a short display name for the tab.
func (t *Tab) Name() string {
	if t.Path == "" {
		return "(untitled)"
	}
	return baseName(t.Path)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// defaultQuery is what a freshly opened tab queries.
func defaultQuery() string {
	return "SELECT * FROM " + engine.RelationName
}

// load populates the tab after its engine opened: schema, row count,
// and the first page of the default query.
func (t *Tab) load(ctx context.Context) error {
	schema, err := t.Engine.Schema(ctx)
	if err != nil {
		return err
	}
	total, err := t.Engine.Count(ctx, defaultQuery())
	if err != nil {
		return err
	}

	t.Schema = schema
	t.BaseSQL = defaultQuery()
	t.PageSize = DefaultPageSize
	t.Page = 1
	t.TotalRows = total
	t.SortCol = NoSort

	return t.RefreshPage(ctx)
}

// TotalPages returns the page count for the current base query.
func (t *Tab) TotalPages() int {
	if t.PageSize <= 0 {
		return 1
	}
	pages := int((t.TotalRows + int64(t.PageSize) - 1) / int64(t.PageSize))
	if pages < 1 {
		pages = 1
	}
	return pages
}

// PageSQL wraps a base query with the LIMIT/OFFSET window for a
// 1-based page.
func PageSQL(base string, pageSize, page int) string {
	offset := (page - 1) * pageSize
	return fmt.Sprintf("SELECT * FROM (%s) AS sub LIMIT %d OFFSET %d", base, pageSize, offset)
}

// RefreshPage fetches the current page of the base query and replaces
// the cache. A successful replace clears the dirty flag: the cache now
// mirrors engine state. On failure the prior cache and flag survive.
func (t *Tab) RefreshPage(ctx context.Context) error {
	res, err := t.Engine.Query(ctx, PageSQL(t.BaseSQL, t.PageSize, t.Page))
	if err != nil {
		return err
	}
	t.Cache = res
	t.Dirty = false
	t.SortCol = NoSort
	return nil
}

// RunQuery installs user SQL as the tab's base query and loads its first
// page. A trailing LIMIT n is stripped and becomes the page size, so
// "SELECT * FROM t LIMIT 20" pages through the full relation 20 rows at
// a time. On any engine failure the tab's prior base query, cache, and
// dirty flag are left exactly as they were.
func (t *Tab) RunQuery(ctx context.Context, text string) error {
	base, size := PrepareQuery(text, t.PageSize)

	total, err := t.Engine.Count(ctx, base)
	if err != nil {
		return err
	}

	prevBase, prevSize, prevPage, prevTotal := t.BaseSQL, t.PageSize, t.Page, t.TotalRows
	t.BaseSQL = base
	t.PageSize = size
	t.Page = 1
	t.TotalRows = total
	if err := t.RefreshPage(ctx); err != nil {
		t.BaseSQL, t.PageSize, t.Page, t.TotalRows = prevBase, prevSize, prevPage, prevTotal
		return err
	}
	return nil
}

// ResetView restores the default query, page size, and first page.
func (t *Tab) ResetView(ctx context.Context) error {
	return t.RunQuery(ctx, fmt.Sprintf("%s LIMIT %d", defaultQuery(), DefaultPageSize))
}

// GotoPage clamps the requested page into range and fetches it.
func (t *Tab) GotoPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	if max := t.TotalPages(); page > max {
		page = max
	}
	prev := t.Page
	t.Page = page
	if err := t.RefreshPage(ctx); err != nil {
		t.Page = prev
		return err
	}
	return nil
}

// NextPage advances one page if one exists.
func (t *Tab) NextPage(ctx context.Context) error {
	if t.Page >= t.TotalPages() {
		return nil
	}
	return t.GotoPage(ctx, t.Page+1)
}

// PrevPage steps back one page if one exists.
func (t *Tab) PrevPage(ctx context.Context) error {
	if t.Page <= 1 {
		return nil
	}
	return t.GotoPage(ctx, t.Page-1)
}

// SetCell edits a cell in the cache and marks the tab dirty.
func (t *Tab) SetCell(row, col int, value any) error {
	if err := t.Cache.SetCell(row, col, value); err != nil {
		return err
	}
	t.Dirty = true
	return nil
}

// InsertRow inserts a blank row and marks the tab dirty.
func (t *Tab) InsertRow(at int) error {
	if err := t.Cache.InsertRow(at); err != nil {
		return err
	}
	t.Dirty = true
	return nil
}

// DeleteRow removes a row and marks the tab dirty.
func (t *Tab) DeleteRow(row int) error {
	if err := t.Cache.DeleteRow(row); err != nil {
		return err
	}
	t.Dirty = true
	return nil
}

// SortBy cycles the sort state for a column: a new column sorts
// ascending, the same column flips direction. Sorting rearranges the
// cache in place and does not mark the tab dirty.
func (t *Tab) SortBy(col int) error {
	desc := false
	if t.SortCol == col {
		desc = !t.SortDesc
	}
	if err := t.Cache.Sort(col, desc); err != nil {
		return err
	}
	t.SortCol = col
	t.SortDesc = desc
	return nil
}

// Save overwrites the tab's file with the cache's current full state.
// Dirty clears on success only.
func (t *Tab) Save(ctx context.Context) error {
	return t.SaveAs(ctx, t.Path)
}

// SaveAs writes the cache to path. The tab's path updates on success
// only; on failure path, cache, and dirty flag are untouched.
func (t *Tab) SaveAs(ctx context.Context, path string) error {
	if path == "" {
		return &engine.WriteError{Path: path, Err: fmt.Errorf("no target path")}
	}
	if err := t.Engine.Write(ctx, path, t.Cache); err != nil {
		return err
	}
	t.Path = path
	t.Dirty = false
	return nil
}

// ExportCSV writes the cache's current state to a CSV file. The tab's
// path and dirty flag are unaffected.
func (t *Tab) ExportCSV(ctx context.Context, path string) error {
	return t.Engine.ExportCSV(ctx, path, t.Cache)
}

// ExportAllCSV exports the full base query, not just the current page.
func (t *Tab) ExportAllCSV(ctx context.Context, path string) error {
	res, err := t.Engine.Query(ctx, t.BaseSQL)
	if err != nil {
		return err
	}
	return t.Engine.ExportCSV(ctx, path, res)
}

// PrepareQuery normalizes user SQL into a base query plus page size.
// Empty input falls back to the default query; a trailing semicolon is
// dropped; a LIMIT clause is stripped, its count becoming the new page
// size.
func PrepareQuery(text string, pageSize int) (string, int) {
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	if text == "" {
		text = defaultQuery()
	}

	tokens := strings.Fields(text)
	for i, tok := range tokens {
		if !strings.EqualFold(tok, "LIMIT") {
			continue
		}
		if i+1 < len(tokens) {
			if n, err := strconv.Atoi(strings.TrimSuffix(tokens[i+1], ";")); err == nil && n > 0 {
				pageSize = n
			}
		}
		text = strings.Join(tokens[:i], " ")
		break
	}

	if strings.TrimSpace(text) == "" {
		text = defaultQuery()
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return strings.TrimSpace(text), pageSize
}
