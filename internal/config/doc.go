// Package config loads switchyard's YAML configuration.
//
// Configuration lives in a single config.yaml inside the configuration
// directory (default ~/.config/switchyard, overridable with --config-path).
// Missing files are not an error; GetDefaultConfig supplies every value and
// a loaded file only overrides what it sets. Durations are written as Go
// duration strings such as "5s" or "10m".
//
// A routes list in the file replaces the built-in route table as a whole.
package config
