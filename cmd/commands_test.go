package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"switchyard/internal/api"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeServer serves /status and an MCP endpoint whose wait_for_route
// tool reports only basic-chat as ready.
func newFakeServer(t *testing.T) string {
	t.Helper()
	s := mcpserver.NewMCPServer("switchyard", "test", mcpserver.WithToolCapabilities(true))
	s.AddTool(mcp.NewTool("wait_for_route", mcp.WithString("route", mcp.Required())),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			route, _ := req.RequireString("route")
			ready := route == "basic-chat"
			status := api.RouteStatus{Name: route, Primary: "ai-client", Available: ready}
			if ready {
				status.ActiveService = "ai-client"
			}
			data, _ := json.Marshal(api.RouteWaitResult{Route: route, Ready: ready, Status: status})
			return mcp.NewToolResultText(string(data)), nil
		})
	s.AddTool(mcp.NewTool("chat", mcp.WithString("message", mcp.Required())),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(`{"payload":{"result":"done"},"_routing":{"service":"ai-client","isFallback":true,"originalService":"dias","reason":"primary_not_ready"}}`), nil
		})

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s, mcpserver.WithEndpointPath("/mcp")))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.SystemStatus{
			Version:    "9.9.9",
			Health:     api.HealthDegraded,
			BasicReady: true,
			Services:   []api.ServiceStatus{{Name: "ai-client", State: api.StateReady}},
		})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts.URL
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusCommand(t *testing.T) {
	endpoint := newFakeServer(t)

	out, err := run(t, newStatusCmd(), "--endpoint", endpoint)
	require.NoError(t, err)
	assert.Contains(t, out, "Health: degraded")
	assert.Contains(t, out, "ai-client")

	out, err = run(t, newStatusCmd(), "--endpoint", endpoint, "-o", "json")
	require.NoError(t, err)
	var status api.SystemStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "9.9.9", status.Version)

	_, err = run(t, newStatusCmd(), "--endpoint", endpoint, "-o", "xml")
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	endpoint := newFakeServer(t)

	out, err := run(t, newCheckCmd(), "--endpoint", endpoint)
	require.NoError(t, err)
	assert.Contains(t, out, "route basic-chat is served by ai-client")

	out, err = run(t, newCheckCmd(), "tasks", "--endpoint", endpoint, "--timeout", "100ms", "-q")
	var notReady *RouteNotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.Equal(t, "tasks", notReady.Route)
	assert.Equal(t, 100*time.Millisecond, notReady.Timeout)
	assert.Empty(t, out)
	assert.Equal(t, ExitCodeNotReady, getExitCode(err))
}

func TestChatCommand(t *testing.T) {
	endpoint := newFakeServer(t)

	out, err := run(t, newChatCmd(), "--endpoint", endpoint, "/build", "api")
	require.NoError(t, err)
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "served by ai-client instead of dias (primary_not_ready)")
}

func TestSummarizeEnvelope(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "static fallback",
			in:   `{"payload":"Try again later.","_routing":{"service":null,"isFallback":true,"originalService":"task-planner","reason":"no_services_available"}}`,
			want: "Try again later.\n\n-- served by static fallback instead of task-planner (no_services_available)",
		},
		{
			name: "primary",
			in:   `{"payload":{"result":"ok"},"_routing":{"service":"dias","isFallback":false}}`,
			want: "ok\n\n-- served by dias",
		},
		{
			name: "not an envelope",
			in:   "plain text",
			want: "plain text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarizeEnvelope(tt.in))
		})
	}
}

func TestConnectionFlags_Endpoints(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("server:\n  host: 0.0.0.0\n  port: 9000\n  mcpPath: /rpc\n"), 0o644))

	tests := []struct {
		name     string
		flags    connectionFlags
		wantBase string
		wantMCP  string
	}{
		{
			name:     "from config",
			flags:    connectionFlags{configPath: dir},
			wantBase: "http://localhost:9000",
			wantMCP:  "http://localhost:9000/rpc",
		},
		{
			name:     "explicit endpoint keeps the configured path",
			flags:    connectionFlags{endpoint: "http://example.test:1234/", configPath: dir},
			wantBase: "http://example.test:1234",
			wantMCP:  "http://example.test:1234/rpc",
		},
		{
			name:     "explicit endpoint with defaults",
			flags:    connectionFlags{endpoint: "http://example.test:1234"},
			wantBase: "http://example.test:1234",
			wantMCP:  "http://example.test:1234/mcp",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mcpURL, err := tt.flags.endpoints()
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantMCP, mcpURL)
		})
	}
}

func TestServeCommand_RejectsLogFormat(t *testing.T) {
	_, err := run(t, newServeCmd(), "--log-format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("%q", "xml"))
}
