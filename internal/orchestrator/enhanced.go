package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"switchyard/internal/contextcache"
	"switchyard/pkg/logging"
)

// ContextPreparer prepares the project context attached to enhanced requests.
// *contextcache.Manager implements it.
type ContextPreparer interface {
	PrepareContext(ctx context.Context, projectID string, files []string, includeHistory bool) (*contextcache.PreparedContext, error)
}

// EnhancedRequest is a Request whose context is drawn from a project.
type EnhancedRequest struct {
	Request
	ProjectID      string   `json:"projectId,omitempty"`
	Files          []string `json:"files,omitempty"`
	IncludeHistory bool     `json:"includeHistory,omitempty"`
}

// EnhancedClient executes requests with prepared project context. It backs
// the enhanced chat route and degrades to plain execution when a request
// names no project.
type EnhancedClient struct {
	orchestrator *Orchestrator
	contexts     ContextPreparer
}

// NewEnhancedClient combines an orchestrator with a context preparer.
func NewEnhancedClient(o *Orchestrator, contexts ContextPreparer) (*EnhancedClient, error) {
	if o == nil || contexts == nil {
		return nil, errors.New("enhanced client requires an orchestrator and a context preparer")
	}
	return &EnhancedClient{orchestrator: o, contexts: contexts}, nil
}

// Orchestrator returns the orchestrator used for execution.
func (c *EnhancedClient) Orchestrator() *Orchestrator {
	return c.orchestrator
}

// Execute prepares the project context, attaches it to the request and
// executes the request. Persona selection still sees only the caller's
// context. Context preparation failures are returned
// before any rate-limit token is spent.
func (c *EnhancedClient) Execute(ctx context.Context, req EnhancedRequest) (*Result, error) {
	var prepared *contextcache.PreparedContext
	if req.ProjectID != "" {
		var err error
		prepared, err = c.contexts.PrepareContext(ctx, req.ProjectID, req.Files, req.IncludeHistory)
		if err != nil {
			return nil, fmt.Errorf("preparing context for project %s: %w", req.ProjectID, err)
		}
		req.ProjectContext = renderContext(prepared.Data)
		logging.Debug(subsystem, "Prepared context for project %s (cached=%t, %d bytes)",
			req.ProjectID, prepared.Metadata.Cached, len(req.ProjectContext))
	}

	res, err := c.orchestrator.Execute(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	if prepared != nil {
		res.Metadata["projectId"] = req.ProjectID
		res.Metadata["contextCached"] = prepared.Metadata.Cached
	}
	return res, nil
}

// renderContext lays out project data as markdown sections.
func renderContext(data contextcache.ContextData) string {
	var b strings.Builder
	section := func(title, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", title, strings.TrimSpace(body))
	}

	section("Code", data.Code)
	section("Documentation", data.Documentation)
	section("Recent history", strings.Join(data.History, "\n"))
	return strings.TrimSpace(b.String())
}
