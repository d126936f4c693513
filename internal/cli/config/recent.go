package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// recentFile is where the recent-files list lives, under the user
// config dir. The list is the only state pqdesk persists; the Parquet
// files themselves are the data.
const recentFile = "recent.yaml"

type recentState struct {
	Files []string `yaml:"files"`
}

// RecentStore persists a most-recent-first list of opened file paths.
type RecentStore struct {
	path string
	max  int
}

// NewRecentStore returns a store rooted in the user config dir.
func NewRecentStore(max int) (*RecentStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	return NewRecentStoreAt(filepath.Join(dir, "pqdesk", recentFile), max), nil
}

// NewRecentStoreAt returns a store backed by an explicit path. Used by
// tests and by the --config machinery.
func NewRecentStoreAt(path string, max int) *RecentStore {
	if max < 1 {
		max = DefaultMaxRecent
	}
	return &RecentStore{path: path, max: max}
}

// List returns the recent paths, most recent first. A missing file is
// an empty list, not an error.
func (s *RecentStore) List() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading recent files: %w", err)
	}
	var state recentState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing recent files: %w", err)
	}
	return state.Files, nil
}

// Add moves path to the front of the list, dedupes, truncates to the
// cap, and persists.
func (s *RecentStore) Add(path string) error {
	files, err := s.List()
	if err != nil {
		files = nil
	}

	next := []string{path}
	for _, f := range files {
		if f != path {
			next = append(next, f)
		}
	}
	if len(next) > s.max {
		next = next[:s.max]
	}

	data, err := yaml.Marshal(recentState{Files: next})
	if err != nil {
		return fmt.Errorf("encoding recent files: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing recent files: %w", err)
	}
	return nil
}
