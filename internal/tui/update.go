package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pqdesk/pqdesk/internal/session"
)

// Update is the single dispatcher: every UI event lands here and the
// only cache mutations in the program happen through the handlers
// below, keyed to the active tab.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case queryDoneMsg:
		return m.applyQueryDone(msg)

	case saveDoneMsg:
		return m.applySaveDone(msg)

	case exportDoneMsg:
		m.pending--
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("exported %s", msg.path)
		return m, nil

	case tea.KeyMsg:
		m.status = ""
		switch m.mode {
		case modeEdit:
			return m.updateEdit(msg)
		case modeSQL:
			return m.updateSQL(msg)
		case modePrompt:
			return m.updatePrompt(msg)
		default:
			return m.updateNormal(msg)
		}
	}
	return m, nil
}

// applyQueryDone installs a finished query result, unless the tab was
// closed or a newer operation for it has since been dispatched.
func (m Model) applyQueryDone(msg queryDoneMsg) (tea.Model, tea.Cmd) {
	m.pending--
	tab := m.sess.ByID(msg.tabID)
	if tab == nil || tab.Stale(msg.gen) {
		m.logger.Debug("dropping stale query result", "tab", msg.tabID, "gen", msg.gen)
		return m, nil
	}
	if msg.err != nil {
		// Failed queries leave the cache, dirty flag, and base query
		// exactly as they were.
		m.err = msg.err
		return m, nil
	}

	tab.BaseSQL = msg.base
	tab.PageSize = msg.pageSize
	tab.Page = msg.page
	tab.TotalRows = msg.total
	tab.Cache = msg.result
	tab.Dirty = false
	tab.SortCol = session.NoSort
	m.err = nil
	m.status = fmt.Sprintf("page %d/%d", tab.Page, tab.TotalPages())
	m.clampCursor()
	return m, nil
}

func (m Model) applySaveDone(msg saveDoneMsg) (tea.Model, tea.Cmd) {
	m.pending--
	tab := m.sess.ByID(msg.tabID)
	if tab == nil {
		return m, nil
	}
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}
	m.err = nil
	m.status = fmt.Sprintf("saved %s", msg.path)
	if tab.Stale(msg.gen) {
		// Edits landed while the save was in flight: the file got the
		// snapshot, the newer edits stay unsaved and dirty.
		return m, nil
	}
	tab.Path = msg.path
	tab.Dirty = false
	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tab := m.sess.Active()

	// Keys that work with no tab open.
	switch msg.String() {
	case "ctrl+c", "q":
		if m.anyDirty() {
			m.mode = modePrompt
			m.prompt = promptQuitDirty
			return m, nil
		}
		return m, tea.Quit
	case "o":
		return m.beginPrompt(promptOpen, "open> ", "")
	}

	if tab == nil {
		// Empty state: digits open recent files.
		if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(m.recentList) {
			ctx := context.Background()
			if _, err := m.openPath(ctx, m.recentList[n-1]); err != nil {
				m.err = err
			}
		}
		return m, nil
	}

	c := m.cur()
	switch msg.String() {
	case "left", "h":
		if c.cx > 0 {
			c.cx--
		}
	case "right", "l":
		if c.cx < tab.Cache.ColCount()-1 {
			c.cx++
		}
	case "up", "k":
		if c.cy > 0 {
			c.cy--
		}
	case "down", "j":
		if c.cy < tab.Cache.RowCount()-1 {
			c.cy++
		}
	case "home":
		c.cx = 0
	case "end":
		c.cx = tab.Cache.ColCount() - 1
	case "ctrl+home":
		c.cx, c.cy = 0, 0
	case "ctrl+end":
		c.cx = tab.Cache.ColCount() - 1
		c.cy = tab.Cache.RowCount() - 1

	case "tab":
		m.sess.NextTab()
		m.clampCursor()
	case "shift+tab":
		m.sess.PrevTab()
		m.clampCursor()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n, _ := strconv.Atoi(msg.String())
		m.sess.Activate(n - 1)
		m.clampCursor()
	case "ctrl+w":
		if tab.Dirty {
			m.mode = modePrompt
			m.prompt = promptCloseDirty
			return m, nil
		}
		m.sess.CloseActive()
		m.clampCursor()

	case "enter":
		if tab.Cache.RowCount() > 0 && tab.Cache.ColCount() > 0 {
			m.mode = modeEdit
			if v, err := tab.Cache.Cell(c.cy, c.cx); err == nil {
				m.editBuf = formatCell(v)
			}
		}
	case "a":
		// Insert below the cursor; on an empty page, append.
		at := c.cy + 1
		if tab.Cache.RowCount() == 0 {
			at = 0
		}
		if err := tab.InsertRow(at); err != nil {
			m.err = err
		} else {
			tab.NextGen()
			c.cy = at
			m.err = nil
		}
	case "d":
		if tab.Cache.RowCount() == 0 {
			break
		}
		if err := tab.DeleteRow(c.cy); err != nil {
			m.err = err
		} else {
			tab.NextGen()
			m.err = nil
			m.status = fmt.Sprintf("deleted row %d", c.cy+1)
			m.clampCursor()
		}
	case "s":
		if tab.Cache.ColCount() > 0 {
			if err := tab.SortBy(c.cx); err != nil {
				m.err = err
			}
		}

	case "/":
		m.mode = modeSQL
		m.sqlInput.Focus()
		return m, nil
	case "r":
		m.pending++
		return m, resetViewCmd(tab)
	case "[":
		if tab.Page > 1 {
			m.pending++
			return m, fetchPageCmd(tab, tab.Page-1)
		}
	case "]":
		if tab.Page < tab.TotalPages() {
			m.pending++
			return m, fetchPageCmd(tab, tab.Page+1)
		}
	case "g":
		return m.beginPrompt(promptGoto, "page> ", strconv.Itoa(tab.Page))

	case "ctrl+s":
		m.pending++
		return m, saveCmd(tab, tab.Path)
	case "S":
		return m.beginPrompt(promptSaveAs, "save as> ", tab.Path)
	case "e":
		return m.beginPrompt(promptExportPage, "export page csv> ", csvSibling(tab.Path))
	case "E":
		return m.beginPrompt(promptExportAll, "export all csv> ", csvSibling(tab.Path))

	case "i":
		m.showSchema = !m.showSchema
	}
	return m, nil
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tab := m.sess.Active()
	if tab == nil {
		m.mode = modeNormal
		return m, nil
	}
	c := m.cur()

	commit := func() {
		colType := tab.Cache.Columns[c.cx].Type
		if err := tab.SetCell(c.cy, c.cx, parseCell(m.editBuf, colType)); err != nil {
			m.err = err
			return
		}
		tab.NextGen()
		m.err = nil
	}

	switch msg.String() {
	case "enter":
		commit()
		m.mode = modeNormal
		if c.cy < tab.Cache.RowCount()-1 {
			c.cy++
		}
	case "esc":
		m.mode = modeNormal
	case "tab":
		commit()
		m.mode = modeNormal
		if c.cx < tab.Cache.ColCount()-1 {
			c.cx++
		}
	case "backspace":
		if r := []rune(m.editBuf); len(r) > 0 {
			m.editBuf = string(r[:len(r)-1])
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.editBuf += string(msg.Runes)
		} else if msg.String() == " " {
			m.editBuf += " "
		}
	}
	return m, nil
}

func (m Model) updateSQL(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := m.sqlInput.Value()
		m.sqlInput.Blur()
		m.mode = modeNormal
		if tab := m.sess.Active(); tab != nil {
			m.pending++
			return m, runQueryCmd(tab, text)
		}
		return m, nil
	case "esc":
		m.sqlInput.Blur()
		m.mode = modeNormal
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.sqlInput, cmd = m.sqlInput.Update(msg)
	return m, cmd
}

func (m *Model) beginPrompt(kind promptKind, promptText, initial string) (tea.Model, tea.Cmd) {
	m.mode = modePrompt
	m.prompt = kind
	m.promptInput.Prompt = promptText
	m.promptInput.SetValue(initial)
	m.promptInput.CursorEnd()
	m.promptInput.Focus()
	return *m, textinput.Blink
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Yes/no prompts first: they take single keys, not a text buffer.
	switch m.prompt {
	case promptCloseDirty:
		switch msg.String() {
		case "y":
			m.mode = modeNormal
			m.prompt = promptNone
			m.sess.CloseActive()
			m.clampCursor()
		case "s":
			tab := m.sess.Active()
			m.mode = modeNormal
			m.prompt = promptNone
			if tab != nil {
				if err := tab.Save(context.Background()); err != nil {
					m.err = err
					return m, nil
				}
				m.sess.CloseActive()
				m.clampCursor()
			}
		case "n", "esc":
			m.mode = modeNormal
			m.prompt = promptNone
		}
		return m, nil
	case promptQuitDirty:
		switch msg.String() {
		case "y":
			return m, tea.Quit
		case "n", "esc":
			m.mode = modeNormal
			m.prompt = promptNone
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.prompt = promptNone
		m.promptInput.Blur()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		value := strings.TrimSpace(m.promptInput.Value())
		kind := m.prompt
		m.mode = modeNormal
		m.prompt = promptNone
		m.promptInput.Blur()
		return m.completePrompt(kind, value)
	}
	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m Model) completePrompt(kind promptKind, value string) (tea.Model, tea.Cmd) {
	if value == "" {
		return m, nil
	}
	tab := m.sess.Active()

	switch kind {
	case promptOpen:
		if _, err := m.openPath(context.Background(), value); err != nil {
			m.err = err
		} else {
			m.err = nil
		}
	case promptSaveAs:
		if tab != nil {
			m.pending++
			return m, saveCmd(tab, value)
		}
	case promptExportPage:
		if tab != nil {
			m.pending++
			return m, exportPageCmd(tab, value)
		}
	case promptExportAll:
		if tab != nil {
			m.pending++
			return m, exportAllCmd(tab, value)
		}
	case promptGoto:
		if tab == nil {
			return m, nil
		}
		page, err := strconv.Atoi(value)
		if err != nil {
			m.err = fmt.Errorf("not a page number: %q", value)
			return m, nil
		}
		if page < 1 {
			page = 1
		}
		if max := tab.TotalPages(); page > max {
			page = max
		}
		if page != tab.Page {
			m.pending++
			return m, fetchPageCmd(tab, page)
		}
	}
	return m, nil
}

func (m Model) anyDirty() bool {
	for _, t := range m.sess.Tabs() {
		if t.Dirty {
			return true
		}
	}
	return false
}

// csvSibling suggests an export path next to the source file.
func csvSibling(path string) string {
	if path == "" {
		return "export.csv"
	}
	if i := strings.LastIndex(path, "."); i > strings.LastIndexAny(path, `/\`) {
		return path[:i] + ".csv"
	}
	return path + ".csv"
}
