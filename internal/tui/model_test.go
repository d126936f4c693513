package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pqdesk/pqdesk/internal/cli/config"
	"github.com/pqdesk/pqdesk/internal/engine"
	"github.com/pqdesk/pqdesk/internal/session"
	"github.com/pqdesk/pqdesk/internal/tabular"
	"github.com/pqdesk/pqdesk/internal/testutil"
)

func writeFixture(t *testing.T, n int) string {
	t.Helper()

	res := tabular.New()
	rows := make([][]any, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, []any{int64(i + 1), float64(i) + 0.5, fmt.Sprintf("name-%d", i+1)})
	}
	res.Replace([]tabular.Column{
		{Name: "id", Type: "BIGINT"},
		{Name: "amount", Type: "DOUBLE", Nullable: true},
		{Name: "label", Type: "VARCHAR", Nullable: true},
	}, rows)

	path := filepath.Join(t.TempDir(), "fixture.parquet")
	eng := engine.New()
	defer func() { require.NoError(t, eng.Close()) }()
	require.NoError(t, eng.Write(context.Background(), path, res))
	return path
}

func newTestModel(t *testing.T, paths ...string) (Model, *session.Session) {
	t.Helper()
	sess := session.New(testutil.NewTestLogger(t))
	t.Cleanup(sess.CloseAll)
	cfg := &config.Config{PageSize: config.DefaultPageSize, MaxRecent: config.DefaultMaxRecent}
	m := New(sess, cfg, nil, testutil.NewTestLogger(t), paths)
	require.NoError(t, m.err)
	return m, sess
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+w":
		return tea.KeyMsg{Type: tea.KeyCtrlW}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

func TestStartupOpensTabs(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 3), writeFixture(t, 5))
	assert.Equal(t, 2, sess.Len())
	assert.Equal(t, modeNormal, m.mode)
	assert.EqualValues(t, 5, sess.Active().TotalRows)
}

func TestStartupOpenFailureSurfacesWithoutBlocking(t *testing.T) {
	good := writeFixture(t, 2)
	sess := session.New(testutil.NewTestLogger(t))
	t.Cleanup(sess.CloseAll)
	cfg := &config.Config{PageSize: config.DefaultPageSize}

	m := New(sess, cfg, nil, testutil.NewTestLogger(t),
		[]string{good, filepath.Join(t.TempDir(), "missing.parquet")})

	assert.Error(t, m.err)
	assert.Equal(t, 1, sess.Len(), "the good file still opens")
}

func TestEditCommitMutatesCacheAndMarksDirty(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 3))
	tab := sess.Active()

	// Move to the amount column, enter edit mode, replace the value.
	m, _ = press(m, "l", "enter")
	require.Equal(t, modeEdit, m.mode)
	assert.Equal(t, "0.5", m.editBuf)

	m.editBuf = ""
	m, _ = press(m, "9", "9", ".", "9", "enter")

	assert.Equal(t, modeNormal, m.mode)
	assert.Equal(t, 99.9, tab.Cache.Rows[0][1])
	assert.True(t, tab.Dirty)
}

func TestEditEscapeDiscards(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 3))
	tab := sess.Active()

	m, _ = press(m, "enter")
	require.Equal(t, modeEdit, m.mode)
	m.editBuf = "12345"
	m, _ = press(m, "esc")

	assert.Equal(t, modeNormal, m.mode)
	assert.EqualValues(t, 1, tab.Cache.Rows[0][0])
	assert.False(t, tab.Dirty)
}

func TestEditUnparseableStaysString(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 3))
	tab := sess.Active()

	m, _ = press(m, "enter")
	m.editBuf = "banana"
	m, _ = press(m, "enter")

	assert.Equal(t, "banana", tab.Cache.Rows[0][0], "grid accepts any text; coercion is deferred")
	assert.True(t, tab.Dirty)
}

func TestInsertAndDeleteRows(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 3))
	tab := sess.Active()

	m, _ = press(m, "a")
	assert.Equal(t, 4, tab.Cache.RowCount())
	assert.Nil(t, tab.Cache.Rows[1][0])
	assert.True(t, tab.Dirty)
	assert.Equal(t, 1, m.cur().cy, "cursor lands on the new row")

	m, _ = press(m, "d")
	assert.Equal(t, 3, tab.Cache.RowCount())
	assert.EqualValues(t, 2, tab.Cache.Rows[1][0])
}

func TestSortKeyCycles(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 4))
	tab := sess.Active()

	m, _ = press(m, "s")
	assert.Equal(t, 0, tab.SortCol)
	assert.False(t, tab.SortDesc)
	assert.False(t, tab.Dirty)

	m, _ = press(m, "s")
	assert.True(t, tab.SortDesc)
	assert.EqualValues(t, 4, tab.Cache.Rows[0][0])
}

func TestTabSwitchingKeys(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 1), writeFixture(t, 2), writeFixture(t, 3))
	require.Equal(t, 2, sess.ActiveIndex())

	m, _ = press(m, "tab")
	assert.Equal(t, 0, sess.ActiveIndex())
	m, _ = press(m, "shift+tab")
	assert.Equal(t, 2, sess.ActiveIndex())
	m, _ = press(m, "2")
	assert.Equal(t, 1, sess.ActiveIndex())
}

func TestQueryDoneInstallsResult(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 5))
	tab := sess.Active()

	res := tabular.New()
	res.Replace([]tabular.Column{{Name: "id", Type: "BIGINT"}}, [][]any{{int64(4)}, {int64(5)}})

	next, _ := m.Update(queryDoneMsg{
		tabID: tab.ID, gen: tab.Gen(),
		base: "SELECT id FROM t WHERE id > 3", pageSize: 100, page: 1, total: 2,
		result: res,
	})
	m = next.(Model)

	assert.Equal(t, "SELECT id FROM t WHERE id > 3", tab.BaseSQL)
	assert.EqualValues(t, 2, tab.TotalRows)
	assert.Same(t, res, tab.Cache)
	assert.False(t, tab.Dirty)
	assert.NoError(t, m.err)
}

func TestStaleQueryResultDropped(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 5))
	tab := sess.Active()
	before := tab.Cache

	stale := tab.Gen()
	tab.NextGen() // a newer operation superseded the in-flight one

	res := tabular.New()
	res.Replace([]tabular.Column{{Name: "id", Type: "BIGINT"}}, [][]any{{int64(99)}})
	next, _ := m.Update(queryDoneMsg{tabID: tab.ID, gen: stale, result: res, page: 1, total: 1})
	m = next.(Model)

	assert.Same(t, before, tab.Cache, "stale results must not replace the cache")
}

func TestClosedTabResultDropped(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 2), writeFixture(t, 3))
	closed := sess.Tabs()[0]
	survivor := sess.Tabs()[1]
	survivorCache := survivor.Cache
	sess.Close(0)

	res := tabular.New()
	res.Replace([]tabular.Column{{Name: "id", Type: "BIGINT"}}, [][]any{{int64(1)}})
	next, _ := m.Update(queryDoneMsg{tabID: closed.ID, gen: closed.Gen(), result: res, page: 1, total: 1})
	m = next.(Model)

	assert.Same(t, survivorCache, survivor.Cache, "a closed tab's result must not leak into another tab")
	assert.NoError(t, m.err)
}

func TestQueryErrorKeepsTabState(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 3))
	tab := sess.Active()
	require.NoError(t, tab.SetCell(0, 2, "local edit"))

	next, _ := m.Update(queryDoneMsg{tabID: tab.ID, gen: tab.Gen(), err: assert.AnError})
	m = next.(Model)

	assert.Error(t, m.err)
	assert.True(t, tab.Dirty)
	assert.Equal(t, "local edit", tab.Cache.Rows[0][2])
}

func TestSaveDoneUpdatesPathAndDirty(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 3))
	tab := sess.Active()
	require.NoError(t, tab.SetCell(0, 2, "edited"))

	newPath := filepath.Join(t.TempDir(), "saved.parquet")
	next, _ := m.Update(saveDoneMsg{tabID: tab.ID, gen: tab.Gen(), path: newPath})
	m = next.(Model)

	assert.Equal(t, newPath, tab.Path)
	assert.False(t, tab.Dirty)
	assert.NoError(t, m.err)
}

func TestSaveDoneStaleKeepsDirty(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 3))
	tab := sess.Active()
	orig := tab.Path

	saveGen := tab.NextGen()
	// An edit lands while the save is in flight.
	require.NoError(t, tab.SetCell(0, 2, "late edit"))
	tab.NextGen()

	next, _ := m.Update(saveDoneMsg{tabID: tab.ID, gen: saveGen, path: filepath.Join(t.TempDir(), "out.parquet")})
	m = next.(Model)

	assert.Equal(t, orig, tab.Path, "a superseded save must not move the tab")
	assert.True(t, tab.Dirty, "edits after the snapshot stay unsaved")
}

func TestSaveDoneFailureKeepsDirty(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 3))
	tab := sess.Active()
	orig := tab.Path
	require.NoError(t, tab.SetCell(0, 0, int64(77)))

	next, _ := m.Update(saveDoneMsg{tabID: tab.ID, gen: tab.Gen(), path: "out.parquet", err: assert.AnError})
	m = next.(Model)

	assert.Error(t, m.err)
	assert.True(t, tab.Dirty)
	assert.Equal(t, orig, tab.Path)
}

func TestQuitWithDirtyTabPrompts(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 3))
	require.NoError(t, sess.Active().SetCell(0, 2, "x"))

	m, cmd := press(m, "q")
	assert.Equal(t, modePrompt, m.mode)
	assert.Equal(t, promptQuitDirty, m.prompt)
	assert.Nil(t, cmd)

	m, _ = press(m, "n")
	assert.Equal(t, modeNormal, m.mode)

	m, cmd = press(m, "q", "y")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestQuitCleanExitsImmediately(t *testing.T) {
	m, _ := newTestModel(t, writeFixture(t, 3))
	_, cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestCloseDirtyTabPrompts(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 2), writeFixture(t, 3))
	require.NoError(t, sess.Active().SetCell(0, 2, "x"))

	m, _ = press(m, "ctrl+w")
	require.Equal(t, modePrompt, m.mode)
	require.Equal(t, promptCloseDirty, m.prompt)

	m, _ = press(m, "y")
	assert.Equal(t, modeNormal, m.mode)
	assert.Equal(t, 1, sess.Len())
}

func TestSQLModeRunsQuery(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 5))
	tab := sess.Active()
	genBefore := tab.Gen()

	m, _ = press(m, "/")
	require.Equal(t, modeSQL, m.mode)
	m.sqlInput.SetValue("SELECT id FROM t WHERE id > 2")
	m, cmd := press(m, "enter")

	assert.Equal(t, modeNormal, m.mode)
	require.NotNil(t, cmd)
	assert.Greater(t, tab.Gen(), genBefore, "dispatch advances the generation")

	msg, ok := cmd().(queryDoneMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	assert.Equal(t, tab.ID, msg.tabID)
	assert.EqualValues(t, 3, msg.total)

	next, _ := m.Update(msg)
	m = next.(Model)
	assert.Equal(t, 3, tab.Cache.RowCount())
	assert.Equal(t, []string{"id"}, tab.Cache.ColumnNames())
}

func TestPagingKeysDispatchFetch(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 25))
	tab := sess.Active()
	require.NoError(t, tab.RunQuery(context.Background(), "SELECT * FROM t ORDER BY id LIMIT 10"))

	m, cmd := press(m, "]")
	require.NotNil(t, cmd)
	msg, ok := cmd().(queryDoneMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	assert.Equal(t, 2, msg.page)

	next, _ := m.Update(msg)
	m = next.(Model)
	assert.Equal(t, 2, tab.Page)
	assert.EqualValues(t, 11, tab.Cache.Rows[0][0])

	// On the last page the key is a no-op.
	require.NoError(t, tab.GotoPage(context.Background(), 3))
	_, cmd = press(m, "]")
	assert.Nil(t, cmd)
}

func TestResetKeyRestoresDefaults(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 25))
	tab := sess.Active()
	require.NoError(t, tab.RunQuery(context.Background(), "SELECT * FROM t ORDER BY id LIMIT 5"))
	require.Equal(t, 5, tab.PageSize)

	m, cmd := press(m, "r")
	require.NotNil(t, cmd)
	msg, ok := cmd().(queryDoneMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)

	next, _ := m.Update(msg)
	m = next.(Model)
	assert.Equal(t, session.DefaultPageSize, tab.PageSize)
	assert.Equal(t, "SELECT * FROM "+engine.RelationName, tab.BaseSQL)
	assert.Equal(t, 1, tab.Page)
	assert.EqualValues(t, 25, tab.TotalRows)
	assert.Equal(t, 25, tab.Cache.RowCount())
}

func TestDeleteOnEmptyPageIsNoOp(t *testing.T) {
	m, sess := newTestModel(t, writeFixture(t, 2))
	tab := sess.Active()

	m, _ = press(m, "d", "d")
	require.Equal(t, 0, tab.Cache.RowCount())

	m, _ = press(m, "d")
	assert.NoError(t, m.err)
	assert.Equal(t, 0, tab.Cache.RowCount())
}

func TestEditBackspaceHandlesMultibyte(t *testing.T) {
	m, _ := newTestModel(t, writeFixture(t, 1))

	m, _ = press(m, "l", "l", "enter")
	require.Equal(t, modeEdit, m.mode)
	m.editBuf = "naïve"
	m, _ = press(m, "backspace", "backspace")
	assert.Equal(t, "naï", m.editBuf)
}

func TestSchemaToggle(t *testing.T) {
	m, _ := newTestModel(t, writeFixture(t, 2))
	m, _ = press(m, "i")
	assert.True(t, m.showSchema)
	m, _ = press(m, "i")
	assert.False(t, m.showSchema)
}

func TestViewRendersGrid(t *testing.T) {
	m, _ := newTestModel(t, writeFixture(t, 3))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)

	out := m.View()
	assert.Contains(t, out, "fixture.parquet")
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "name-1")
}

func TestViewEmptyState(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)

	out := m.View()
	assert.Contains(t, out, "o", "empty state offers the open key")
}
