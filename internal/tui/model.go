// Package tui is the interactive browser: a tabbed, editable grid over
// the session, driven by bubbletea. The view layer owns no tabular
// state of its own beyond cursor positions and input buffers; every
// data mutation goes through the active tab's cache, and every engine
// call runs as a command whose result is checked for staleness before
// it may touch a tab.
package tui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pqdesk/pqdesk/internal/cli/config"
	"github.com/pqdesk/pqdesk/internal/session"
)

type mode int

const (
	modeNormal mode = iota
	modeEdit
	modeSQL
	modePrompt
)

type promptKind int

const (
	promptNone promptKind = iota
	promptOpen
	promptSaveAs
	promptExportPage
	promptExportAll
	promptGoto
	promptCloseDirty
	promptQuitDirty
)

// cursor is per-tab view state, kept across tab switches.
type cursor struct {
	cx, cy           int
	scrollX, scrollY int
}

// Model is the bubbletea model for the browser.
type Model struct {
	sess   *session.Session
	cfg    *config.Config
	recent *config.RecentStore
	logger *slog.Logger

	width  int
	height int

	mode    mode
	prompt  promptKind
	editBuf string

	sqlInput    textinput.Model
	promptInput textinput.Model

	cursors map[int]*cursor

	showSchema bool
	pending    int
	status     string
	err        error

	recentList []string
}

// New builds the browser model and opens each startup path in its own
// tab. A path that fails to open surfaces as an error without blocking
// the rest of the session.
func New(sess *session.Session, cfg *config.Config, recent *config.RecentStore, logger *slog.Logger, paths []string) Model {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sqlInput := textinput.New()
	sqlInput.Prompt = "sql> "
	sqlInput.Placeholder = fmt.Sprintf("SELECT * FROM t LIMIT %d", cfg.PageSize)
	sqlInput.CharLimit = 0

	promptInput := textinput.New()
	promptInput.CharLimit = 0

	m := Model{
		sess:        sess,
		cfg:         cfg,
		recent:      recent,
		logger:      logger,
		sqlInput:    sqlInput,
		promptInput: promptInput,
		cursors:     map[int]*cursor{},
	}

	ctx := context.Background()
	for _, p := range paths {
		if _, err := m.openPath(ctx, p); err != nil {
			m.err = err
			logger.Warn("startup open failed", "path", p, "error", err)
		}
	}

	if recent != nil {
		if list, err := recent.List(); err == nil {
			m.recentList = list
		}
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// openPath opens a file in a new tab and records it in the recent list.
func (m *Model) openPath(ctx context.Context, path string) (*session.Tab, error) {
	tab, err := m.sess.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	m.cursors[tab.ID] = &cursor{}
	if m.recent != nil {
		if err := m.recent.Add(tab.Path); err != nil {
			m.logger.Warn("recording recent file", "error", err)
		}
		if list, err := m.recent.List(); err == nil {
			m.recentList = list
		}
	}
	m.status = fmt.Sprintf("opened %s", tab.Name())
	return tab, nil
}

// cur returns the active tab's cursor state, creating it on demand.
func (m *Model) cur() *cursor {
	tab := m.sess.Active()
	if tab == nil {
		return &cursor{}
	}
	c, ok := m.cursors[tab.ID]
	if !ok {
		c = &cursor{}
		m.cursors[tab.ID] = c
	}
	return c
}

// clampCursor pulls the cursor back inside the active cache bounds
// after the cache shrank or was replaced.
func (m *Model) clampCursor() {
	tab := m.sess.Active()
	if tab == nil {
		return
	}
	c := m.cur()
	if rows := tab.Cache.RowCount(); c.cy >= rows {
		c.cy = rows - 1
	}
	if c.cy < 0 {
		c.cy = 0
	}
	if cols := tab.Cache.ColCount(); c.cx >= cols {
		c.cx = cols - 1
	}
	if c.cx < 0 {
		c.cx = 0
	}
}
