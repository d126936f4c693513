// Package session tracks the set of independently open files and routes
// query, edit, and save actions to the active one. Each tab owns an
// exclusive engine handle and cache; a failure in one tab never touches
// another.
package session

import (
	"context"
	"log/slog"

	"github.com/pqdesk/pqdesk/internal/engine"
	"github.com/pqdesk/pqdesk/internal/tabular"
)

// Session is the whole-application state: an ordered collection of tabs
// plus the index of the active one. It is created at startup and
// destroyed at shutdown. All mutation happens on the UI loop; engine
// calls issued from background commands report back through generation
// numbers checked here.
type Session struct {
	tabs   []*Tab
	active int
	nextID int
	logger *slog.Logger
}

// New returns an empty session.
func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{active: -1, logger: logger}
}

// Open opens path in a new tab and makes it active. On failure no tab
// is added and the engine is released.
func (s *Session) Open(ctx context.Context, path string) (*Tab, error) {
	eng := engine.New()
	if err := eng.Open(ctx, path); err != nil {
		_ = eng.Close()
		return nil, err
	}

	s.nextID++
	tab := &Tab{
		ID:     s.nextID,
		Path:   eng.Path(),
		Engine: eng,
		Cache:  tabular.New(),
	}
	if err := tab.load(ctx); err != nil {
		_ = eng.Close()
		return nil, err
	}

	s.tabs = append(s.tabs, tab)
	s.active = len(s.tabs) - 1
	s.logger.Info("opened tab", "path", tab.Path, "rows", tab.TotalRows, "columns", len(tab.Schema))
	return tab, nil
}

// Tabs returns the ordered open tabs.
func (s *Session) Tabs() []*Tab { return s.tabs }

// Len returns the number of open tabs.
func (s *Session) Len() int { return len(s.tabs) }

// Active returns the active tab, or nil when no tabs are open.
func (s *Session) Active() *Tab {
	if s.active < 0 || s.active >= len(s.tabs) {
		return nil
	}
	return s.tabs[s.active]
}

// ActiveIndex returns the active tab's position, or -1.
func (s *Session) ActiveIndex() int {
	if len(s.tabs) == 0 {
		return -1
	}
	return s.active
}

// Activate selects the tab at index i if it exists.
func (s *Session) Activate(i int) {
	if i >= 0 && i < len(s.tabs) {
		s.active = i
	}
}

// NextTab cycles forward through tabs.
func (s *Session) NextTab() {
	if len(s.tabs) > 0 {
		s.active = (s.active + 1) % len(s.tabs)
	}
}

// PrevTab cycles backward through tabs.
func (s *Session) PrevTab() {
	if len(s.tabs) > 0 {
		s.active = (s.active + len(s.tabs) - 1) % len(s.tabs)
	}
}

// ByID finds a tab by its id. Results arriving for a closed tab resolve
// to nil here and are discarded by the caller.
func (s *Session) ByID(id int) *Tab {
	for _, t := range s.tabs {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Close removes the tab at index i and releases its engine. Any
// operation still in flight for it will find no tab by id when its
// result lands, and the result is dropped.
func (s *Session) Close(i int) {
	if i < 0 || i >= len(s.tabs) {
		return
	}
	tab := s.tabs[i]
	if err := tab.Engine.Close(); err != nil {
		s.logger.Warn("closing engine", "path", tab.Path, "error", err)
	}
	s.tabs = append(s.tabs[:i], s.tabs[i+1:]...)
	if s.active >= len(s.tabs) {
		s.active = len(s.tabs) - 1
	}
	s.logger.Info("closed tab", "path", tab.Path)
}

// CloseActive closes the active tab.
func (s *Session) CloseActive() {
	s.Close(s.active)
}

// CloseAll releases every tab, for shutdown.
func (s *Session) CloseAll() {
	for i := len(s.tabs) - 1; i >= 0; i-- {
		s.Close(i)
	}
}
