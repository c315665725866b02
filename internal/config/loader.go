package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"switchyard/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/switchyard"
	configFileName = "config.yaml"
)

// GetDefaultConfigPath returns ~/.config/switchyard, or an error when the
// home directory cannot be determined.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}

	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from the specified directory on top of the defaults.
// A missing file is not an error; the defaults are returned as-is.
func LoadConfig(configPath string) (SwitchyardConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Error("ConfigLoader", err, "Error loading config.yaml from %s", configFilePath)
		return SwitchyardConfig{}, err
	}

	config, err = Parse(data)
	if err != nil {
		return SwitchyardConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (SwitchyardConfig, error) {
	config := GetDefaultConfig()
	// A routes key in the file replaces the default table rather than merging into it.
	config.Routes = nil

	if err := yaml.Unmarshal(data, &config); err != nil {
		return SwitchyardConfig{}, err
	}
	if config.Routes == nil {
		config.Routes = DefaultRoutes()
	}

	if err := config.Validate(); err != nil {
		return SwitchyardConfig{}, err
	}
	return config, nil
}
