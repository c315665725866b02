package cmd

import (
	"fmt"
	"time"

	"switchyard/internal/client"
	"switchyard/internal/config"

	"github.com/spf13/cobra"
)

// RouteNotReadyError is returned by check when the route's primary did not
// become ready within the timeout.
type RouteNotReadyError struct {
	Route   string
	Timeout time.Duration
}

func (e *RouteNotReadyError) Error() string {
	return fmt.Sprintf("route %s is not served by its primary after %s", e.Route, e.Timeout)
}

func newCheckCmd() *cobra.Command {
	flags := &connectionFlags{}
	var timeout time.Duration
	var quiet bool

	cmd := &cobra.Command{
		Use:   "check [route]",
		Short: "Wait until a route is served by its primary service",
		Long: `Asks a running server to bring up the primary service of a route and
waits until it is ready. The route defaults to basic-chat.

The command exits with status 3 when the route is still not ready after
--timeout, and with status 2 when the server cannot be reached, so it can
gate scripts:

  switchyard check enhanced-chat --timeout 1m && run-my-agent`,
		Args: cobra.MaximumNArgs(1),
		ValidArgs: []string{
			config.RouteBasicChat,
			config.RouteEnhancedChat,
			config.RouteContext,
			config.RouteTasks,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			route := config.RouteBasicChat
			if len(args) == 1 {
				route = args[0]
			}
			if timeout < 0 {
				return fmt.Errorf("--timeout must not be negative")
			}

			_, mcpURL, err := flags.endpoints()
			if err != nil {
				return err
			}
			formatter, err := flags.formatter(cmd)
			if err != nil {
				return err
			}

			c := client.NewMCPClient(mcpURL).WithVersion(rootCmd.Version)
			if err := c.Connect(cmd.Context()); err != nil {
				return err
			}
			defer c.Close()

			result, err := c.WaitForRoute(cmd.Context(), route, timeout)
			if err != nil {
				return err
			}
			if !quiet {
				if err := formatter.FormatRouteWait(*result); err != nil {
					return err
				}
			}
			if !result.Ready {
				return &RouteNotReadyError{Route: route, Timeout: timeout}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for the route")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report through the exit status")
	return cmd
}
