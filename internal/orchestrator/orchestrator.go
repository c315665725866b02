package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"switchyard/internal/api"
	"switchyard/internal/metrics"
	"switchyard/pkg/logging"

	"github.com/google/uuid"
)

const subsystem = "Orchestrator"

// Config holds the admission control and selection settings.
type Config struct {
	DefaultPersona      Persona
	EnabledCapabilities []Capability

	// ExecutionTimeout bounds a single backend call. Zero disables it.
	ExecutionTimeout time.Duration

	Capacity   int
	RefillRate float64

	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// DefaultConfig mirrors the orchestrator section of the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultPersona:      PersonaArchitect,
		EnabledCapabilities: append([]Capability(nil), AllCapabilities...),
		Capacity:            100,
		RefillRate:          10,
		FailureThreshold:    5,
		RecoveryTimeout:     60 * time.Second,
	}
}

// Orchestrator admits, resolves and executes requests against a Backend.
type Orchestrator struct {
	cfg     Config
	backend Backend
	enabled map[Capability]bool

	bucket  *TokenBucket
	breaker *CircuitBreaker
	metrics *metrics.Metrics

	now func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records admission and execution metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator with a full token bucket and a closed breaker.
func New(cfg Config, backend Backend, opts ...Option) (*Orchestrator, error) {
	if backend == nil {
		return nil, errors.New("orchestrator requires a backend")
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("token bucket capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.DefaultPersona == "" {
		cfg.DefaultPersona = PersonaArchitect
	}

	o := &Orchestrator{
		cfg:     cfg,
		backend: backend,
		enabled: make(map[Capability]bool, len(cfg.EnabledCapabilities)),
		now:     time.Now,
	}
	for _, c := range cfg.EnabledCapabilities {
		o.enabled[c] = true
	}
	for _, opt := range opts {
		opt(o)
	}

	o.bucket = NewTokenBucket(cfg.Capacity, cfg.RefillRate, o.now())
	o.breaker = NewCircuitBreaker(cfg.FailureThreshold, cfg.RecoveryTimeout, func(from, to CircuitState) {
		logging.Warn(subsystem, "Circuit breaker %s -> %s", from, to)
		o.metrics.SetBreakerOpen(to == CircuitOpen)
	})
	return o, nil
}

// Execute runs req through admission control, resolves persona, capabilities
// and tier, and delegates to the backend.
//
// Rejections return *api.RateLimitError or *api.CircuitOpenError without
// touching the backend. Backend failures are counted against the breaker and
// returned as *api.ExecutionError.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Result, error) {
	start := o.now()

	if _, ok := commandPersonas[req.Command]; !ok {
		return nil, fmt.Errorf("unknown command %q", req.Command)
	}
	if req.Flags.Persona != "" {
		if _, err := ParsePersona(string(req.Flags.Persona)); err != nil {
			return nil, err
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if ok, available, retryAfter := o.bucket.TryConsume(1, start); !ok {
		o.metrics.IncRejection("rate_limit")
		logging.Debug(subsystem, "Rejected %s: rate limited", req.ID)
		return nil, &api.RateLimitError{Available: available, RetryAfter: retryAfter}
	}
	if !o.breaker.Allow(start) {
		o.metrics.IncRejection("circuit_open")
		logging.Debug(subsystem, "Rejected %s: circuit open", req.ID)
		return nil, &api.CircuitOpenError{Failures: o.breaker.Failures(), RetryAt: o.breaker.RetryAt()}
	}

	persona := selectPersona(req, o.cfg.DefaultPersona)
	resolved := ResolvedRequest{
		Request:      req,
		Persona:      persona,
		Capabilities: selectCapabilities(req, persona, o.enabled),
		Tier:         selectTier(req, persona),
	}
	logging.Info(subsystem, "Executing %s (%s) persona=%s tier=%s capabilities=%v",
		req.Command, req.ID, resolved.Persona, resolved.Tier, resolved.Capabilities)

	resp, err := o.invoke(ctx, resolved)
	elapsed := o.now().Sub(start)
	o.metrics.ObserveExecution(string(resolved.Tier), err == nil, elapsed)

	if err != nil {
		o.breaker.RecordFailure(o.now())
		logging.Error(subsystem, err, "Execution %s failed after %s", req.ID, elapsed)
		return nil, &api.ExecutionError{RequestID: req.ID, Err: err}
	}
	o.breaker.RecordSuccess()

	metadata := map[string]any{
		"tier":  string(resolved.Tier),
		"flags": req.Flags,
	}
	for k, v := range resp.Metadata {
		metadata[k] = v
	}
	return &Result{
		RequestID:     req.ID,
		Result:        resp.Result,
		Persona:       resolved.Persona,
		Capabilities:  resolved.Capabilities,
		Tier:          resolved.Tier,
		ExecutionTime: elapsed,
		TokensUsed:    resp.TokensUsed,
		Cost:          resp.Cost,
		Metadata:      metadata,
	}, nil
}

type backendResult struct {
	resp *BackendResponse
	err  error
}

// invoke calls the backend, enforcing ExecutionTimeout even against a
// backend that ignores its context.
func (o *Orchestrator) invoke(ctx context.Context, req ResolvedRequest) (*BackendResponse, error) {
	if o.cfg.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.ExecutionTimeout)
		defer cancel()
	}

	done := make(chan backendResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- backendResult{err: fmt.Errorf("backend panicked: %v", r)}
			}
		}()
		resp, err := o.backend.Execute(ctx, req)
		done <- backendResult{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil && res.resp == nil {
			return nil, errors.New("backend returned no response")
		}
		return res.resp, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("backend call abandoned: %w", ctx.Err())
	}
}

// HealthCheck reports breaker state, remaining tokens and capability
// availability without executing anything.
func (o *Orchestrator) HealthCheck() Health {
	caps := make(map[Capability]bool, len(AllCapabilities))
	for _, c := range AllCapabilities {
		caps[c] = o.enabled[c]
	}
	return Health{
		CircuitState:        o.breaker.State().String(),
		ConsecutiveFailures: o.breaker.Failures(),
		AvailableTokens:     o.bucket.Available(o.now()),
		Capacity:            o.bucket.Capacity(),
		Capabilities:        caps,
	}
}
