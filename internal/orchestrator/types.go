package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Command is one of the fixed execution commands.
type Command string

const (
	CommandAnalyze      Command = "analyze"
	CommandBuild        Command = "build"
	CommandImplement    Command = "implement"
	CommandImprove      Command = "improve"
	CommandDesign       Command = "design"
	CommandTask         Command = "task"
	CommandTroubleshoot Command = "troubleshoot"
	CommandExplain      Command = "explain"
	CommandCleanup      Command = "cleanup"
	CommandDocument     Command = "document"
	CommandEstimate     Command = "estimate"
	CommandTest         Command = "test"
	CommandGit          Command = "git"
	CommandIndex        Command = "index"
	CommandLoad         Command = "load"
	CommandSpawn        Command = "spawn"
)

// ParseCommand accepts a command name with or without a leading slash.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "/")))
	if _, ok := commandPersonas[c]; !ok {
		return "", fmt.Errorf("unknown command %q", s)
	}
	return c, nil
}

// Persona is a behavioral profile that biases how a request is resolved.
type Persona string

const (
	PersonaArchitect   Persona = "architect"
	PersonaFrontend    Persona = "frontend"
	PersonaBackend     Persona = "backend"
	PersonaAnalyzer    Persona = "analyzer"
	PersonaSecurity    Persona = "security"
	PersonaMentor      Persona = "mentor"
	PersonaRefactorer  Persona = "refactorer"
	PersonaPerformance Persona = "performance"
	PersonaQA          Persona = "qa"
	PersonaDevOps      Persona = "devops"
	PersonaScribe      Persona = "scribe"
)

// ParsePersona validates a persona name.
func ParsePersona(s string) (Persona, error) {
	p := Persona(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := personaCapabilities[p]; !ok {
		return "", fmt.Errorf("unknown persona %q", s)
	}
	return p, nil
}

// Capability is an auxiliary tool server that can be attached to an execution.
type Capability string

const (
	CapabilityContext7   Capability = "context7"
	CapabilitySequential Capability = "sequential"
	CapabilityMagic      Capability = "magic"
	CapabilityPlaywright Capability = "playwright"
)

// AllCapabilities lists every known capability in canonical order.
var AllCapabilities = []Capability{
	CapabilityContext7,
	CapabilitySequential,
	CapabilityMagic,
	CapabilityPlaywright,
}

// ParseCapability validates a capability name.
func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllCapabilities {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown capability %q", s)
}

// Tier is the execution tier chosen for a request.
type Tier string

const (
	TierLight    Tier = "light"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Flags carry per-request overrides.
type Flags struct {
	Persona Persona `json:"persona,omitempty"`

	Think      bool `json:"think,omitempty"`
	ThinkHard  bool `json:"thinkHard,omitempty"`
	Ultrathink bool `json:"ultrathink,omitempty"`

	Context7   bool `json:"c7,omitempty"`
	Sequential bool `json:"seq,omitempty"`
	Magic      bool `json:"magic,omitempty"`
	Playwright bool `json:"play,omitempty"`
	All        bool `json:"allMcp,omitempty"`
	None       bool `json:"noMcp,omitempty"`

	SafeMode   bool `json:"safeMode,omitempty"`
	AnswerOnly bool `json:"answerOnly,omitempty"`
}

func (f Flags) explicitCapabilities() []Capability {
	var caps []Capability
	if f.Context7 {
		caps = append(caps, CapabilityContext7)
	}
	if f.Sequential {
		caps = append(caps, CapabilitySequential)
	}
	if f.Magic {
		caps = append(caps, CapabilityMagic)
	}
	if f.Playwright {
		caps = append(caps, CapabilityPlaywright)
	}
	return caps
}

// Request is a structured execution request.
type Request struct {
	ID        string   `json:"id,omitempty"`
	Command   Command  `json:"command"`
	Args      []string `json:"args,omitempty"`
	Flags     Flags    `json:"flags,omitempty"`
	Context   string   `json:"context,omitempty"`
	SessionID string   `json:"sessionId,omitempty"`

	// ProjectContext is prepared project material (code, docs, history).
	// The backend sees it through Prompt; persona selection never reads it.
	ProjectContext string `json:"projectContext,omitempty"`
}

// Prompt is the full text handed to a backend: the project context, when
// there is one, followed by the caller's own context.
func (r Request) Prompt() string {
	if r.ProjectContext == "" {
		return r.Context
	}
	if strings.TrimSpace(r.Context) == "" {
		return r.ProjectContext
	}
	return r.ProjectContext + "\n\n## Request context\n\n" + strings.TrimSpace(r.Context)
}

// ResolvedRequest is what the backend receives once persona, capabilities and
// tier have been selected.
type ResolvedRequest struct {
	Request
	Persona      Persona
	Capabilities []Capability
	Tier         Tier
}

// BackendResponse is returned by a Backend for a successful execution.
type BackendResponse struct {
	Result     any
	TokensUsed *int
	Cost       *float64
	Metadata   map[string]any
}

// Backend performs the actual work for a resolved request.
type Backend interface {
	Execute(ctx context.Context, req ResolvedRequest) (*BackendResponse, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, req ResolvedRequest) (*BackendResponse, error)

// Execute calls f.
func (f BackendFunc) Execute(ctx context.Context, req ResolvedRequest) (*BackendResponse, error) {
	return f(ctx, req)
}

// Result is returned for a successful execution.
type Result struct {
	RequestID     string         `json:"requestId"`
	Result        any            `json:"result"`
	Persona       Persona        `json:"persona"`
	Capabilities  []Capability   `json:"capabilities"`
	Tier          Tier           `json:"tier"`
	ExecutionTime time.Duration  `json:"executionTime"`
	TokensUsed    *int           `json:"tokensUsed,omitempty"`
	Cost          *float64       `json:"cost,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Health is a point-in-time view of admission control.
type Health struct {
	CircuitState        string              `json:"circuitState"`
	ConsecutiveFailures int                 `json:"consecutiveFailures"`
	AvailableTokens     int                 `json:"availableTokens"`
	Capacity            int                 `json:"capacity"`
	Capabilities        map[Capability]bool `json:"capabilities"`
}

// Accepting reports whether a request arriving now would pass admission.
func (h Health) Accepting() bool {
	return h.CircuitState != CircuitOpen.String() && h.AvailableTokens > 0
}
