package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pqdesk/pqdesk/internal/engine"
	"github.com/pqdesk/pqdesk/internal/session"
	"github.com/pqdesk/pqdesk/internal/tabular"
)

// queryDoneMsg carries a completed query for one tab. The generation
// was taken when the command was dispatched; the update loop drops the
// message when the tab is gone or a newer operation superseded it.
type queryDoneMsg struct {
	tabID    int
	gen      uint64
	base     string
	pageSize int
	page     int
	total    int64
	result   *tabular.Result
	err      error
}

// saveDoneMsg carries a completed save/save-as for one tab.
type saveDoneMsg struct {
	tabID int
	gen   uint64
	path  string
	err   error
}

// exportDoneMsg carries a completed CSV export.
type exportDoneMsg struct {
	tabID int
	path  string
	err   error
}

// runQueryCmd executes user SQL for a tab in the background: count the
// base query, then fetch its first page. The tab itself is not touched
// here; only the engine handle (safe for concurrent use) is.
func runQueryCmd(t *session.Tab, text string) tea.Cmd {
	gen := t.NextGen()
	id := t.ID
	eng := t.Engine
	base, size := session.PrepareQuery(text, t.PageSize)
	return func() tea.Msg {
		ctx := context.Background()
		total, err := eng.Count(ctx, base)
		if err != nil {
			return queryDoneMsg{tabID: id, gen: gen, err: err}
		}
		res, err := eng.Query(ctx, session.PageSQL(base, size, 1))
		if err != nil {
			return queryDoneMsg{tabID: id, gen: gen, err: err}
		}
		return queryDoneMsg{
			tabID: id, gen: gen,
			base: base, pageSize: size, page: 1, total: total,
			result: res,
		}
	}
}

// resetViewCmd restores the default query, page size, and first page.
func resetViewCmd(t *session.Tab) tea.Cmd {
	return runQueryCmd(t, fmt.Sprintf("SELECT * FROM %s LIMIT %d", engine.RelationName, session.DefaultPageSize))
}

// fetchPageCmd fetches one page of the tab's current base query.
func fetchPageCmd(t *session.Tab, page int) tea.Cmd {
	gen := t.NextGen()
	id := t.ID
	eng := t.Engine
	base, size, total := t.BaseSQL, t.PageSize, t.TotalRows
	return func() tea.Msg {
		res, err := eng.Query(context.Background(), session.PageSQL(base, size, page))
		if err != nil {
			return queryDoneMsg{tabID: id, gen: gen, err: err}
		}
		return queryDoneMsg{
			tabID: id, gen: gen,
			base: base, pageSize: size, page: page, total: total,
			result: res,
		}
	}
}

// saveCmd serializes a snapshot of the tab's cache to path. The clone
// keeps edits made while the save is in flight out of the written file;
// those edits also advance the generation, so the dirty flag survives
// them.
func saveCmd(t *session.Tab, path string) tea.Cmd {
	gen := t.NextGen()
	id := t.ID
	eng := t.Engine
	snapshot := t.Cache.Clone()
	return func() tea.Msg {
		err := eng.Write(context.Background(), path, snapshot)
		return saveDoneMsg{tabID: id, gen: gen, path: path, err: err}
	}
}

// exportPageCmd writes the cache's current page to CSV.
func exportPageCmd(t *session.Tab, path string) tea.Cmd {
	id := t.ID
	eng := t.Engine
	snapshot := t.Cache.Clone()
	return func() tea.Msg {
		err := eng.ExportCSV(context.Background(), path, snapshot)
		return exportDoneMsg{tabID: id, path: path, err: err}
	}
}

// exportAllCmd writes the full base query to CSV.
func exportAllCmd(t *session.Tab, path string) tea.Cmd {
	id := t.ID
	eng := t.Engine
	base := t.BaseSQL
	return func() tea.Msg {
		res, err := eng.Query(context.Background(), base)
		if err != nil {
			return exportDoneMsg{tabID: id, path: path, err: err}
		}
		err = eng.ExportCSV(context.Background(), path, res)
		return exportDoneMsg{tabID: id, path: path, err: err}
	}
}
