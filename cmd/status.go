package cmd

import (
	"switchyard/internal/client"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	flags := &connectionFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show service states and route availability of a running server",
		Long: `Fetches /status from a running switchyard server and prints the
overall health, the state of every service and which service currently
serves each route.

Examples:
  switchyard status
  switchyard status -o json
  switchyard status --endpoint http://10.0.0.5:8095`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL, _, err := flags.endpoints()
			if err != nil {
				return err
			}
			formatter, err := flags.formatter(cmd)
			if err != nil {
				return err
			}

			status, err := client.NewStatusClient(baseURL).Status(cmd.Context())
			if err != nil {
				return err
			}
			return formatter.FormatStatus(*status)
		},
	}
	flags.register(cmd)
	return cmd
}
