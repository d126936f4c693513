package config

import "context"

// configKey is used to store config in context.
type configKey struct{}

// WithConfig stores the loaded config in the context.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the context, falling back to a
// default-valued config when none was stored.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		PageSize:     DefaultPageSize,
		MaxRecent:    DefaultMaxRecent,
		OutputFormat: DefaultOutput,
	}
}
