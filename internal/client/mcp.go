package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"switchyard/internal/api"
	"switchyard/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

const protocolVersion = "2025-03-26"

// ErrNotConnected is returned by calls made before Connect or after Close.
var ErrNotConnected = errors.New("client not connected")

// ToolError is a tool result flagged as an error by the server.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}

// MCPClient calls switchyard tools over the streamable HTTP transport.
type MCPClient struct {
	endpoint string
	timeout  time.Duration
	version  string
	client   client.MCPClient
}

// NewMCPClient creates a client for the MCP endpoint, e.g.
// "http://localhost:8095/mcp". Each request is bounded by a 10 second
// timeout unless WithTimeout says otherwise.
func NewMCPClient(endpoint string) *MCPClient {
	return &MCPClient{
		endpoint: endpoint,
		timeout:  defaultTimeout,
		version:  "dev",
	}
}

// WithTimeout sets the per-request timeout.
func (c *MCPClient) WithTimeout(d time.Duration) *MCPClient {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// WithVersion sets the client version announced during initialization.
func (c *MCPClient) WithVersion(v string) *MCPClient {
	if v != "" {
		c.version = v
	}
	return c
}

// Connect starts the transport and performs the MCP handshake.
func (c *MCPClient) Connect(ctx context.Context) error {
	httpClient, err := client.NewStreamableHttpClient(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to create streamable-http client: %w", err)
	}
	if err := httpClient.Start(ctx); err != nil {
		return ClassifyConnectionError(err, c.endpoint)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = protocolVersion
	req.Params.ClientInfo = mcp.Implementation{
		Name:    "switchyard-cli",
		Version: c.version,
	}
	req.Params.Capabilities = mcp.ClientCapabilities{}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := httpClient.Initialize(timeoutCtx, req)
	if err != nil {
		httpClient.Close()
		return ClassifyConnectionError(err, c.endpoint)
	}
	logging.Debug("MCPClient", "Connected to %s %s", result.ServerInfo.Name, result.ServerInfo.Version)

	c.client = httpClient
	return nil
}

// Close ends the session.
func (c *MCPClient) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// CallTool executes a tool and returns its first text content. A result
// flagged as an error is returned as *ToolError.
func (c *MCPClient) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	return c.callTool(ctx, name, args, c.timeout)
}

func (c *MCPClient) callTool(ctx context.Context, name string, args map[string]any, timeout time.Duration) (string, error) {
	if c.client == nil {
		return "", ErrNotConnected
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.client.CallTool(timeoutCtx, req)
	if err != nil {
		return "", fmt.Errorf("tool call failed: %w", err)
	}

	var texts []string
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			texts = append(texts, text.Text)
		}
	}
	if result.IsError {
		return "", &ToolError{Tool: name, Message: strings.Join(texts, "; ")}
	}
	if len(texts) == 0 {
		return "", nil
	}
	return texts[0], nil
}

// WaitForRoute asks the server to bring up the primary of route, waiting
// at most timeout. The request deadline is extended past timeout so the
// server can answer either way.
func (c *MCPClient) WaitForRoute(ctx context.Context, route string, timeout time.Duration) (*api.RouteWaitResult, error) {
	text, err := c.callTool(ctx, "wait_for_route", map[string]any{
		"route":           route,
		"timeout_seconds": timeout.Seconds(),
	}, timeout+c.timeout)
	if err != nil {
		return nil, err
	}
	var result api.RouteWaitResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("decoding wait_for_route result: %w", err)
	}
	return &result, nil
}

// ServiceStatus fetches the status report over MCP.
func (c *MCPClient) ServiceStatus(ctx context.Context) (*api.SystemStatus, error) {
	text, err := c.CallTool(ctx, "service_status", nil)
	if err != nil {
		return nil, err
	}
	var status api.SystemStatus
	if err := json.Unmarshal([]byte(text), &status); err != nil {
		return nil, fmt.Errorf("decoding service_status result: %w", err)
	}
	return &status, nil
}

// Chat sends a chat line, optionally with a project whose context is
// attached, and returns the routed response envelope as JSON text.
func (c *MCPClient) Chat(ctx context.Context, message, project string) (string, error) {
	args := map[string]any{"message": message}
	if project != "" {
		args["project"] = project
	}
	return c.CallTool(ctx, "chat", args)
}
