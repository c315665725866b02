// Package server exposes switchyard over HTTP.
//
// A single mux serves:
//
//   - the MCP endpoint (streamable HTTP, default /mcp) whose tools route work
//     through the health-aware router
//   - /status with the JSON system status
//   - /healthz for liveness and /readyz, which fails until basic chat can be
//     served without a fallback
//   - /metrics in the Prometheus exposition format, when enabled
//
// Every MCP tool goes through router.RouteRequest, so a tool call never waits
// on a service that is still initializing. When nothing can serve a route the
// tool returns the static fallback payload with its routing metadata rather
// than an error.
//
//	┌──────────────────────────────────────────────┐
//	│                HTTP server                   │
//	│                                              │
//	│  /mcp ──► MCP tools ──► router ──► services  │
//	│  /status, /readyz ──► system status          │
//	│  /metrics ──► prometheus registry            │
//	└──────────────────────────────────────────────┘
package server
