package orchestrator

import (
	"context"
	"errors"
	"testing"

	"switchyard/internal/contextcache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPreparer struct {
	calls   int
	err     error
	lastPID string
	code    string
}

func (s *stubPreparer) PrepareContext(ctx context.Context, projectID string, files []string, includeHistory bool) (*contextcache.PreparedContext, error) {
	s.calls++
	s.lastPID = projectID
	if s.err != nil {
		return nil, s.err
	}
	code := s.code
	if code == "" {
		code = "func main() {}"
	}
	return &contextcache.PreparedContext{
		Data: contextcache.ContextData{
			ProjectID: projectID,
			Files:     files,
			Code:      code,
			History:   []string{"ran tests"},
		},
		Metadata: contextcache.PrepareMetadata{Cached: true},
	}, nil
}

type capturingBackend struct {
	last ResolvedRequest
}

func (b *capturingBackend) Execute(ctx context.Context, req ResolvedRequest) (*BackendResponse, error) {
	b.last = req
	return &BackendResponse{Result: "done"}, nil
}

func TestNewEnhancedClient_RequiresDependencies(t *testing.T) {
	_, err := NewEnhancedClient(nil, &stubPreparer{})
	assert.Error(t, err)

	o, _ := newTestOrchestrator(t, DefaultConfig(), &countingBackend{})
	_, err = NewEnhancedClient(o, nil)
	assert.Error(t, err)
}

func TestEnhancedClient_Execute(t *testing.T) {
	backend := &capturingBackend{}
	o, _ := newTestOrchestrator(t, DefaultConfig(), backend)
	preparer := &stubPreparer{}
	client, err := NewEnhancedClient(o, preparer)
	require.NoError(t, err)

	res, err := client.Execute(context.Background(), EnhancedRequest{
		Request:   Request{Command: CommandImplement, Context: "add a login form"},
		ProjectID: "demo",
		Files:     []string{"main.go"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, preparer.calls)
	assert.Equal(t, "demo", preparer.lastPID)
	assert.Equal(t, "add a login form", backend.last.Context)
	prompt := backend.last.Prompt()
	assert.Contains(t, prompt, "## Code\n\nfunc main() {}")
	assert.Contains(t, prompt, "## Recent history\n\nran tests")
	assert.Contains(t, prompt, "## Request context\n\nadd a login form")
	assert.NotContains(t, prompt, "## Documentation")
	assert.Equal(t, "demo", res.Metadata["projectId"])
	assert.Equal(t, true, res.Metadata["contextCached"])
}

func TestEnhancedClient_WithoutProject(t *testing.T) {
	backend := &capturingBackend{}
	o, _ := newTestOrchestrator(t, DefaultConfig(), backend)
	preparer := &stubPreparer{}
	client, err := NewEnhancedClient(o, preparer)
	require.NoError(t, err)

	res, err := client.Execute(context.Background(), EnhancedRequest{
		Request: Request{Command: CommandExplain, Context: "what is a circuit breaker"},
	})
	require.NoError(t, err)
	assert.Zero(t, preparer.calls)
	assert.Equal(t, "what is a circuit breaker", backend.last.Context)
	assert.Equal(t, "what is a circuit breaker", backend.last.Prompt())
	assert.NotContains(t, res.Metadata, "projectId")
}

func TestEnhancedClient_PrepareFailureSpendsNoToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 1
	cfg.RefillRate = 0
	backend := &countingBackend{}
	o, _ := newTestOrchestrator(t, cfg, backend)
	client, err := NewEnhancedClient(o, &stubPreparer{err: errors.New("disk gone")})
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), EnhancedRequest{
		Request:   Request{Command: CommandAnalyze},
		ProjectID: "demo",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Zero(t, backend.calls.Load())
	assert.Equal(t, 1, o.HealthCheck().AvailableTokens)
}

func TestEnhancedClient_PersonaIgnoresProjectContext(t *testing.T) {
	tests := []struct {
		name        string
		projectCode string
		context     string
		wantPersona Persona
	}{
		{
			name:        "keywords in project code are ignored",
			projectCode: "// author: jane\nfunc serveAPI() {}",
			context:     "explain this ui component",
			wantPersona: PersonaFrontend,
		},
		{
			name:        "caller context still refines",
			projectCode: "// author: jane",
			context:     "review the auth token handling",
			wantPersona: PersonaSecurity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &capturingBackend{}
			o, _ := newTestOrchestrator(t, DefaultConfig(), backend)
			client, err := NewEnhancedClient(o, &stubPreparer{code: tt.projectCode})
			require.NoError(t, err)

			plain, err := o.Execute(context.Background(), Request{Command: CommandExplain, Context: tt.context})
			require.NoError(t, err)

			res, err := client.Execute(context.Background(), EnhancedRequest{
				Request:   Request{Command: CommandExplain, Context: tt.context},
				ProjectID: "demo",
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantPersona, res.Persona)
			assert.Equal(t, plain.Persona, res.Persona)
			assert.Equal(t, plain.Tier, res.Tier)
			assert.Contains(t, backend.last.Prompt(), tt.projectCode)
		})
	}
}
