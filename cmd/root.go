package cmd

import (
	"errors"
	"os"

	"switchyard/internal/client"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeUnreachable indicates the server could not be reached.
	ExitCodeUnreachable = 2
	// ExitCodeNotReady indicates a route did not become ready in time.
	ExitCodeNotReady = 3
)

// rootCmd represents the base command for the switchyard application.
var rootCmd = &cobra.Command{
	Use:   "switchyard",
	Short: "Serve AI commands while their backing services warm up",
	Long: `switchyard is an MCP server that routes AI command requests to lazily
initialized services. Basic chat is answered as soon as the AI client is up;
requests that need project context fall back to basic chat until the context
manager and the enhanced client are ready, and upgrade automatically after.

Start the server with 'switchyard serve', then inspect it with
'switchyard status' or wait for a route with 'switchyard check'.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// It is called from the main package to inject the version set at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a semantic exit code on error.
// It is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "switchyard version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var connErr *client.ConnectionError
	if errors.As(err, &connErr) {
		return ExitCodeUnreachable
	}

	var notReady *RouteNotReadyError
	if errors.As(err, &notReady) {
		return ExitCodeNotReady
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newChatCmd())
}
