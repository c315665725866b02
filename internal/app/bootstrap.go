package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"switchyard/internal/config"
	"switchyard/pkg/logging"
)

// Application bootstraps and runs switchyard.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, build services
//  2. Execution phase: start services and serve until interrupted
//
// Example usage:
//
//	cfg := app.NewConfig(false, false, "", version)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads configuration, configures logging and builds the
// services container.
//
// Configuration Loading Behavior:
//   - If cfg.SwitchyardConfig is set it is used as-is
//   - Else if cfg.ConfigPath is set config.yaml is loaded from that directory
//   - Otherwise ~/.config/switchyard/config.yaml is used
//
// A missing config.yaml means defaults; a malformed or invalid one is an error.
func NewApplication(cfg *Config) (*Application, error) {
	// Bootstrap logging so config loading can report what it does.
	initLogging(cfg, config.LoggingConfig{})

	if cfg.SwitchyardConfig == nil {
		configPath := cfg.ConfigPath
		if configPath == "" {
			var err error
			configPath, err = config.GetDefaultConfigPath()
			if err != nil {
				return nil, err
			}
		}
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
			return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
		}
		cfg.SwitchyardConfig = &loaded
	}

	initLogging(cfg, cfg.SwitchyardConfig.Logging)

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// initLogging applies the configured level and format. The --debug, --silent
// and --log-format flags take precedence over the configuration file.
func initLogging(cfg *Config, lc config.LoggingConfig) {
	level, _ := logging.ParseLevel(lc.Level)
	if cfg.Debug {
		level = logging.LevelDebug
	}

	format := logging.Format(lc.Format)
	if cfg.LogFormat != "" {
		format = logging.Format(cfg.LogFormat)
	}
	if format == "" {
		format = logging.FormatText
	}

	var output io.Writer = os.Stderr
	if cfg.Silent {
		output = io.Discard
	}
	logging.Init(level, format, output)
}

// Services returns the services container.
func (a *Application) Services() *Services {
	return a.services
}

// Run starts every service and blocks until SIGINT, SIGTERM or ctx
// cancellation, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	return runServer(ctx, a.services)
}
