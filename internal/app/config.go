package app

import (
	"switchyard/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces the debug log level regardless of the loaded configuration.
	Debug bool

	// Silent discards all log output.
	Silent bool

	// LogFormat overrides logging.format from the configuration when set.
	LogFormat string

	// Custom configuration directory (optional).
	// When empty, ~/.config/switchyard is used.
	ConfigPath string

	// Version is reported by the status endpoint and the MCP server.
	Version string

	// Loaded configuration. Tests pre-populate it to skip loading from disk.
	SwitchyardConfig *config.SwitchyardConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug, silent bool, configPath, version string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
		Version:    version,
	}
}
