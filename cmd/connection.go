package cmd

import (
	"fmt"
	"os"
	"strings"

	"switchyard/internal/config"
	"switchyard/internal/formatting"

	"github.com/spf13/cobra"
)

// endpointEnv overrides the server URL derived from the configuration.
const endpointEnv = "SWITCHYARD_ENDPOINT"

// connectionFlags holds the flags shared by commands that talk to a running
// server.
type connectionFlags struct {
	endpoint     string
	configPath   string
	outputFormat string
	noHeaders    bool
	noColor      bool
}

func (f *connectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.endpoint, "endpoint", os.Getenv(endpointEnv), "Server base URL, e.g. http://localhost:8095 (env: "+endpointEnv+")")
	cmd.Flags().StringVar(&f.configPath, "config-path", "", "Configuration directory used to find the server (default ~/.config/switchyard)")
	cmd.Flags().StringVarP(&f.outputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().BoolVar(&f.noHeaders, "no-headers", false, "Suppress header rows in table output")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "Disable colored table output")
}

// endpoints returns the server base URL and the MCP endpoint URL. An
// explicit endpoint wins; otherwise the server section of config.yaml is
// used.
func (f *connectionFlags) endpoints() (baseURL, mcpURL string, err error) {
	cfg := config.GetDefaultConfig()
	if f.endpoint == "" || f.configPath != "" {
		path := f.configPath
		if path == "" {
			if path, err = config.GetDefaultConfigPath(); err != nil {
				return "", "", err
			}
		}
		if cfg, err = config.LoadConfig(path); err != nil {
			return "", "", fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	baseURL = strings.TrimRight(f.endpoint, "/")
	if baseURL == "" {
		host := cfg.Server.Host
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "localhost"
		}
		baseURL = fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
	}
	return baseURL, baseURL + cfg.Server.MCPPath, nil
}

func (f *connectionFlags) formatter(cmd *cobra.Command) (formatting.Formatter, error) {
	format, err := formatting.ParseFormat(f.outputFormat)
	if err != nil {
		return nil, err
	}
	return formatting.NewFormatter(formatting.Options{
		Format:    format,
		NoHeaders: f.noHeaders,
		Color:     !f.noColor && isTerminal(cmd.OutOrStdout()),
		Output:    cmd.OutOrStdout(),
	}), nil
}

func isTerminal(w any) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
