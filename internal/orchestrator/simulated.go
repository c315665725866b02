package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// tierPricing is the simulated cost per thousand tokens.
var tierPricing = map[Tier]float64{
	TierLight:    0.00025,
	TierStandard: 0.003,
	TierPremium:  0.015,
}

// SimulatedBackend produces deterministic results without calling any model.
// It is the default backend and the one used in tests.
type SimulatedBackend struct {
	// BaseLatency is the simulated time for a request with no capabilities
	// and no reasoning flags. Zero makes every call return immediately.
	BaseLatency time.Duration
}

// NewSimulatedBackend creates a simulated backend.
func NewSimulatedBackend(baseLatency time.Duration) *SimulatedBackend {
	return &SimulatedBackend{BaseLatency: baseLatency}
}

// Execute waits for the simulated latency and describes what it would have done.
func (s *SimulatedBackend) Execute(ctx context.Context, req ResolvedRequest) (*BackendResponse, error) {
	delay := s.latency(req)
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	caps := make([]string, len(req.Capabilities))
	for i, c := range req.Capabilities {
		caps[i] = string(c)
	}
	using := "no capabilities"
	if len(caps) > 0 {
		using = strings.Join(caps, ", ")
	}

	tokens := 1000 + 500*len(req.Capabilities) + len(req.Prompt())/4
	for _, a := range req.Args {
		tokens += len(a) / 4
	}
	cost := float64(tokens) / 1000 * tierPricing[req.Tier]

	return &BackendResponse{
		Result:     fmt.Sprintf("Executed /%s with %s persona using %s", req.Command, req.Persona, using),
		TokensUsed: &tokens,
		Cost:       &cost,
		Metadata: map[string]any{
			"simulated": true,
			"delay":     delay.String(),
		},
	}, nil
}

// latency grows with the number of capabilities and the reasoning flags.
func (s *SimulatedBackend) latency(req ResolvedRequest) time.Duration {
	if s.BaseLatency <= 0 {
		return 0
	}
	d := s.BaseLatency + time.Duration(len(req.Capabilities))*s.BaseLatency/2
	switch {
	case req.Flags.Ultrathink:
		d += 10 * s.BaseLatency
	case req.Flags.ThinkHard:
		d += 5 * s.BaseLatency
	case req.Flags.Think:
		d += 2 * s.BaseLatency
	}
	return d
}
