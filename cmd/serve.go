package cmd

import (
	"fmt"

	"switchyard/internal/app"

	"github.com/spf13/cobra"
)

type serveOptions struct {
	debug      bool
	silent     bool
	logFormat  string
	configPath string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the switchyard MCP server",
		Long: `Starts the switchyard server. It listens for MCP requests on the
configured host, port and path, and serves /healthz, /readyz, /status and
/metrics next to it.

Services initialize in the background. The server accepts requests right
away and falls back as configured until each route's primary is ready.

Configuration:
  config.yaml is read from --config-path, or ~/.config/switchyard when the
  flag is not set. A missing file means built-in defaults.

Press Ctrl+C (or send SIGTERM) to shut down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.silent, "silent", false, "Disable all log output")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (overrides logging.format)")
	cmd.Flags().StringVar(&opts.configPath, "config-path", "", "Configuration directory (default ~/.config/switchyard)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	switch opts.logFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (text, json)", opts.logFormat)
	}

	cfg := app.NewConfig(opts.debug, opts.silent, opts.configPath, rootCmd.Version)
	cfg.LogFormat = opts.logFormat

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run(cmd.Context())
}
