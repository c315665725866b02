// Package client talks to a running switchyard server.
//
// Two clients are provided:
//
//   - StatusClient reads the plain HTTP endpoints (/status, /readyz).
//   - MCPClient connects to the MCP endpoint over streamable HTTP and calls
//     the tools the server registers (wait_for_route, chat, execute, ...).
//
// Transport failures are returned as *ConnectionError, which classifies the
// failure (refused, DNS, timeout, TLS) so the CLI can print a useful hint.
//
// # Usage
//
//	sc := client.NewStatusClient("http://localhost:8095")
//	status, err := sc.Status(ctx)
//
//	mc := client.NewMCPClient("http://localhost:8095/mcp")
//	if err := mc.Connect(ctx); err != nil {
//	    return err
//	}
//	defer mc.Close()
//	result, err := mc.WaitForRoute(ctx, "enhanced-chat", 30*time.Second)
package client
