package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"switchyard/internal/api"
	"switchyard/internal/metrics"
	"switchyard/internal/router"
	"switchyard/pkg/logging"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

const subsystem = "Server"

// StatusProvider reports the aggregate system status.
type StatusProvider interface {
	SystemStatus() api.SystemStatus
}

// Config configures the HTTP surface.
type Config struct {
	Host           string
	Port           int
	MCPPath        string
	MetricsEnabled bool
	Version        string
}

// Server serves the MCP tools, status and metrics endpoints.
type Server struct {
	cfg     Config
	router  *router.Router
	status  StatusProvider
	metrics *metrics.Metrics

	mcpServer  *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	errCh      chan error
}

// New creates a server and registers its MCP tools. Nothing listens until Start.
func New(cfg Config, r *router.Router, status StatusProvider, m *metrics.Metrics) *Server {
	if cfg.MCPPath == "" {
		cfg.MCPPath = "/mcp"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		cfg:     cfg,
		router:  r,
		status:  status,
		metrics: m,
		errCh:   make(chan error, 1),
	}
	s.mcpServer = mcpserver.NewMCPServer(
		"switchyard",
		cfg.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)
	s.registerTools()
	s.streamable = mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(cfg.MCPPath),
	)
	return s
}

// Handler returns the mux serving every endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/status", s.handleStatus)
	if s.cfg.MetricsEnabled {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	mux.Handle(s.cfg.MCPPath, s.streamable)

	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.status.SystemStatus())
}

// handleReady reports 503 until basic chat is served by a real service.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.status.SystemStatus()
	code := http.StatusOK
	if !st.BasicReady {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"basicReady":    st.BasicReady,
		"enhancedReady": st.EnhancedReady,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug(subsystem, "Failed to write response: %v", err)
	}
}

// Start listens on the configured address and serves in the background.
// Port 0 picks a free port; Addr reports the one chosen.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errors.New("server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = srv
	s.listener = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(subsystem, err, "HTTP server error")
			s.errCh <- err
		}
	}()

	logging.Info(subsystem, "Serving MCP on http://%s%s", ln.Addr(), s.cfg.MCPPath)
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Errors delivers a fatal serve error.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Stop closes MCP sessions and shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	logging.Info(subsystem, "Shutting down HTTP server")
	var errs []error
	if err := s.streamable.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("closing MCP sessions: %w", err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down HTTP server: %w", err))
	}
	return errors.Join(errs...)
}
