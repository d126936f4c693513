// Package config provides configuration management for the pqdesk CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	// PageSize is the default number of rows fetched per page in the
	// browser and printed by cat.
	PageSize int `koanf:"page_size"`
	// MaxRecent caps the persisted recent-files list.
	MaxRecent int `koanf:"max_recent"`
	// Verbose enables debug logging on stderr for non-interactive
	// commands.
	Verbose bool `koanf:"verbose"`
	// LogFile, when set, receives debug logs from the interactive
	// browser (whose stderr is the screen).
	LogFile string `koanf:"log_file"`
	// OutputFormat is the default render format for cat/query/schema:
	// table, json, csv, or md.
	OutputFormat string `koanf:"output"`
}

// Defaults for unset configuration values.
const (
	DefaultPageSize  = 100
	DefaultMaxRecent = 10
	DefaultOutput    = "table"
)
