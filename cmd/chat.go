package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"switchyard/internal/client"
	"switchyard/internal/formatting"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	flags := &connectionFlags{}
	var project string
	var raw bool

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a chat line to a running server",
		Long: `Sends a chat line through the enhanced-chat route. Commands and flags
use the usual syntax; plain text is treated as an explain request.

Examples:
  switchyard chat "/implement login form --persona-frontend --c7"
  switchyard chat "/analyze startup time --think-hard" --project api
  switchyard chat "what does the retry loop do?" --raw`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mcpURL, err := flags.endpoints()
			if err != nil {
				return err
			}

			c := client.NewMCPClient(mcpURL).WithVersion(rootCmd.Version)
			if err := c.Connect(cmd.Context()); err != nil {
				return err
			}
			defer c.Close()

			text, err := c.Chat(cmd.Context(), strings.Join(args, " "), project)
			if err != nil {
				return err
			}
			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), summarizeEnvelope(text))
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.endpoint, "endpoint", os.Getenv(endpointEnv), "Server base URL (env: "+endpointEnv+")")
	cmd.Flags().StringVar(&flags.configPath, "config-path", "", "Configuration directory used to find the server")
	cmd.Flags().StringVar(&project, "project", "", "Project whose context is attached")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the full JSON response envelope")
	return cmd
}

// summarizeEnvelope renders the routed response as the result text followed
// by a one-line routing note. Anything that is not an envelope is returned
// unchanged.
func summarizeEnvelope(text string) string {
	var env struct {
		Payload json.RawMessage `json:"payload"`
		Routing struct {
			Service         *string `json:"service"`
			IsFallback      bool    `json:"isFallback"`
			OriginalService string  `json:"originalService"`
			Reason          string  `json:"reason"`
		} `json:"_routing"`
	}
	if err := json.Unmarshal([]byte(text), &env); err != nil || env.Payload == nil {
		return text
	}

	var body string
	var result struct {
		Result string `json:"result"`
	}
	var message string
	switch {
	case json.Unmarshal(env.Payload, &message) == nil:
		body = message
	case json.Unmarshal(env.Payload, &result) == nil && result.Result != "":
		body = result.Result
	default:
		body = formatting.PrettyJSON(env.Payload)
	}

	served := "static fallback"
	if env.Routing.Service != nil {
		served = *env.Routing.Service
	}
	note := "served by " + served
	if env.Routing.IsFallback {
		note += fmt.Sprintf(" instead of %s (%s)", env.Routing.OriginalService, env.Routing.Reason)
	}
	return body + "\n\n-- " + note
}
