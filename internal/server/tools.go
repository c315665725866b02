package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"switchyard/internal/api"
	"switchyard/internal/config"
	"switchyard/internal/contextcache"
	"switchyard/internal/orchestrator"
	"switchyard/internal/router"
	"switchyard/internal/taskplanner"
	"switchyard/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

const defaultWaitTimeout = 10 * time.Second

var stringItems = mcp.Items(map[string]any{"type": "string"})

func (s *Server) registerTools() {
	executeTool := mcp.NewTool("execute",
		mcp.WithDescription("Execute a command through the orchestrator. Routed via basic chat unless another route is given."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Command name, with or without a leading slash (analyze, build, implement, ...)"),
		),
		mcp.WithArray("args",
			mcp.Description("Positional arguments for the command"),
			stringItems,
		),
		mcp.WithString("context",
			mcp.Description("Free-text context; also used to refine the persona"),
		),
		mcp.WithString("persona",
			mcp.Description("Explicit persona, overriding command and keyword selection"),
		),
		mcp.WithArray("capabilities",
			mcp.Description("Capabilities to request: context7, sequential, magic, playwright, or all / none"),
			stringItems,
		),
		mcp.WithBoolean("think", mcp.Description("Request the standard reasoning tier")),
		mcp.WithBoolean("think_hard", mcp.Description("Request the premium reasoning tier")),
		mcp.WithBoolean("ultrathink", mcp.Description("Request the premium reasoning tier")),
		mcp.WithBoolean("safe_mode", mcp.Description("Ask the backend to avoid destructive actions")),
		mcp.WithBoolean("answer_only", mcp.Description("Ask the backend for an answer without side effects")),
		mcp.WithString("session_id", mcp.Description("Caller session identifier")),
		mcp.WithString("route", mcp.Description("Route to use (default: basic-chat)")),
	)
	s.mcpServer.AddTool(executeTool, s.handleExecute)

	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Send a chat line such as '/implement login form --persona-frontend'. "+
			"Uses the enhanced route, which adds project context when a project is given."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Chat line; plain text is treated as an explain request"),
		),
		mcp.WithString("project", mcp.Description("Project whose context is attached")),
		mcp.WithArray("files",
			mcp.Description("Project-relative files to include in the context"),
			stringItems,
		),
		mcp.WithBoolean("include_history", mcp.Description("Include recent project history")),
	)
	s.mcpServer.AddTool(chatTool, s.handleChat)

	prepareTool := mcp.NewTool("prepare_context",
		mcp.WithDescription("Prepare (or fetch from cache) the context of a project"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project identifier"),
		),
		mcp.WithArray("files",
			mcp.Description("Project-relative files to include"),
			stringItems,
		),
		mcp.WithBoolean("include_history", mcp.Description("Include recent project history")),
	)
	s.mcpServer.AddTool(prepareTool, s.handlePrepareContext)

	listTasksTool := mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks from the task planner"),
		mcp.WithString("status", mcp.Description("Only tasks with this status")),
		mcp.WithBoolean("with_subtasks", mcp.Description("Include subtasks")),
	)
	s.mcpServer.AddTool(listTasksTool, s.handleListTasks)

	nextTaskTool := mcp.NewTool("next_task",
		mcp.WithDescription("Show the next task the planner suggests working on"),
	)
	s.mcpServer.AddTool(nextTaskTool, s.handleNextTask)

	showTaskTool := mcp.NewTool("show_task",
		mcp.WithDescription("Show a single planner task"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task id, e.g. 3 or 3.1"),
		),
	)
	s.mcpServer.AddTool(showTaskTool, s.handleShowTask)

	setStatusTool := mcp.NewTool("set_task_status",
		mcp.WithDescription("Change the status of a planner task"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task id"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("New status, e.g. pending, in-progress, done"),
		),
	)
	s.mcpServer.AddTool(setStatusTool, s.handleSetTaskStatus)

	statusTool := mcp.NewTool("service_status",
		mcp.WithDescription("Show service states, route availability and overall health"),
	)
	s.mcpServer.AddTool(statusTool, s.handleServiceStatus)

	waitTool := mcp.NewTool("wait_for_route",
		mcp.WithDescription("Wait until a route can be served by its primary service, initializing it if needed"),
		mcp.WithString("route",
			mcp.Required(),
			mcp.Description("Route name"),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("How long to wait (default 10)"),
		),
	)
	s.mcpServer.AddTool(waitTool, s.handleWaitForRoute)
}

func (s *Server) handleExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := request.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()

	cmd, err := orchestrator.ParseCommand(command)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req := orchestrator.Request{
		Command: cmd,
		Args:    stringSlice(args, "args"),
	}
	req.Context, _ = args["context"].(string)
	req.SessionID, _ = args["session_id"].(string)

	if persona, ok := args["persona"].(string); ok && persona != "" {
		p, err := orchestrator.ParsePersona(persona)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req.Flags.Persona = p
	}
	if err := applyCapabilities(&req.Flags, stringSlice(args, "capabilities")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req.Flags.Think, _ = args["think"].(bool)
	req.Flags.ThinkHard, _ = args["think_hard"].(bool)
	req.Flags.Ultrathink, _ = args["ultrathink"].(bool)
	req.Flags.SafeMode, _ = args["safe_mode"].(bool)
	req.Flags.AnswerOnly, _ = args["answer_only"].(bool)

	route, _ := args["route"].(string)
	if route == "" {
		route = config.RouteBasicChat
	}
	return s.route(ctx, route, func(ctx context.Context, service any) (any, error) {
		return execute(ctx, service, orchestrator.EnhancedRequest{Request: req})
	})
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req, err := orchestrator.ParseRequestLine(message)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	enhanced := orchestrator.EnhancedRequest{Request: req, Files: stringSlice(args, "files")}
	enhanced.ProjectID, _ = args["project"].(string)
	enhanced.IncludeHistory, _ = args["include_history"].(bool)

	return s.route(ctx, config.RouteEnhancedChat, func(ctx context.Context, service any) (any, error) {
		return execute(ctx, service, enhanced)
	})
}

func (s *Server) handlePrepareContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()
	files := stringSlice(args, "files")
	includeHistory, _ := args["include_history"].(bool)

	return s.route(ctx, config.RouteContext, func(ctx context.Context, service any) (any, error) {
		mgr, ok := service.(*contextcache.Manager)
		if !ok {
			return nil, unsupported(service, "prepare context")
		}
		return mgr.PrepareContext(ctx, project, files, includeHistory)
	})
}

func (s *Server) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	status, _ := args["status"].(string)
	withSubtasks, _ := args["with_subtasks"].(bool)

	return s.route(ctx, config.RouteTasks, func(ctx context.Context, service any) (any, error) {
		planner, ok := service.(*taskplanner.Planner)
		if !ok {
			return nil, unsupported(service, "list tasks")
		}
		return planner.List(ctx, status, withSubtasks)
	})
}

func (s *Server) handleNextTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.route(ctx, config.RouteTasks, func(ctx context.Context, service any) (any, error) {
		planner, ok := service.(*taskplanner.Planner)
		if !ok {
			return nil, unsupported(service, "show the next task")
		}
		return planner.Next(ctx)
	})
}

func (s *Server) handleShowTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.route(ctx, config.RouteTasks, func(ctx context.Context, service any) (any, error) {
		planner, ok := service.(*taskplanner.Planner)
		if !ok {
			return nil, unsupported(service, "show tasks")
		}
		return planner.Show(ctx, id)
	})
}

func (s *Server) handleSetTaskStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.route(ctx, config.RouteTasks, func(ctx context.Context, service any) (any, error) {
		planner, ok := service.(*taskplanner.Planner)
		if !ok {
			return nil, unsupported(service, "update tasks")
		}
		if err := planner.SetStatus(ctx, id, status); err != nil {
			return nil, err
		}
		return map[string]string{"id": id, "status": status}, nil
	})
}

func (s *Server) handleServiceStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.status.SystemStatus())
}

func (s *Server) handleWaitForRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("route")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeout := defaultWaitTimeout
	if secs, ok := request.GetArguments()["timeout_seconds"].(float64); ok {
		if secs < 0 {
			return mcp.NewToolResultError("timeout_seconds must not be negative"), nil
		}
		timeout = time.Duration(secs * float64(time.Second))
	}

	if _, ok := s.router.GetRouteStatus(name); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("route %q is not registered", name)), nil
	}
	ready := s.router.WaitForRoute(ctx, name, timeout)
	status, _ := s.router.GetRouteStatus(name)
	return jsonResult(api.RouteWaitResult{
		Route:  name,
		Ready:  ready,
		Status: status,
	})
}

// route dispatches through the router and renders the envelope. A static
// fallback is a successful result; only router errors become tool errors.
func (s *Server) route(ctx context.Context, name string, handler router.Handler) (*mcp.CallToolResult, error) {
	resp, err := s.router.RouteRequest(ctx, name, handler)
	if err != nil {
		logging.Warn(subsystem, "Routing %s failed: %v", name, err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resp)
}

// execute runs req on whichever execution service the router picked.
// A plain orchestrator serves enhanced requests without project context.
func execute(ctx context.Context, service any, req orchestrator.EnhancedRequest) (any, error) {
	switch svc := service.(type) {
	case *orchestrator.EnhancedClient:
		return svc.Execute(ctx, req)
	case *orchestrator.Orchestrator:
		if req.ProjectID != "" {
			logging.Debug(subsystem, "Executing without context for project %s", req.ProjectID)
		}
		return svc.Execute(ctx, req.Request)
	default:
		return nil, unsupported(service, "execute requests")
	}
}

func unsupported(service any, what string) error {
	return fmt.Errorf("service of type %T cannot %s", service, what)
}

func applyCapabilities(f *orchestrator.Flags, names []string) error {
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "all":
			f.All = true
			continue
		case "none":
			f.None = true
			continue
		}
		c, err := orchestrator.ParseCapability(name)
		if err != nil {
			return err
		}
		switch c {
		case orchestrator.CapabilityContext7:
			f.Context7 = true
		case orchestrator.CapabilitySequential:
			f.Sequential = true
		case orchestrator.CapabilityMagic:
			f.Magic = true
		case orchestrator.CapabilityPlaywright:
			f.Playwright = true
		}
	}
	return nil
}

// stringSlice reads a string array argument, skipping non-string items.
func stringSlice(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		if typed, ok := args[key].([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
