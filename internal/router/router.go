package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"switchyard/internal/api"
	"switchyard/internal/metrics"
	"switchyard/internal/services"
	"switchyard/internal/template"
	"switchyard/pkg/logging"
)

const subsystem = "Router"

// Fallback reasons reported in RoutingMetadata.Reason.
const (
	ReasonPrimaryNotReady  = "primary_not_ready"
	ReasonServiceFailed    = "service_failed"
	ReasonMissingRequired  = "missing_required_services"
	ReasonNoServices       = "no_services_available"
	ReasonDefaultFallback  = "default_fallback"
	defaultPollInterval    = 500 * time.Millisecond
	defaultFallbackMessage = "I'm currently starting up my systems. {{ initializing }}Please try again in a moment for full functionality."
)

// Registry is the part of the service registry the router depends on.
type Registry interface {
	IsServiceReady(name string) bool
	GetService(name string) (any, bool)
	GetReadyServices() []string
	GetServiceStatuses() []api.ServiceStatus
	ForceInitialize(ctx context.Context, name string) (bool, error)
	Changed() <-chan struct{}
}

var _ Registry = (*services.Registry)(nil)

// RouteConfig declares how a route is served.
type RouteConfig struct {
	Primary   string
	Fallbacks []string
	// Requires lists services that must be ready for the route to use any
	// service at all, independent of Primary and Fallbacks.
	Requires []string
	// FallbackResponse is returned when no service can answer. Strings,
	// maps and slices may use the {{ route }}, {{ initializing }},
	// {{ available }} and {{ requested }} placeholders. When nil a default
	// payload describing the initializing services is returned.
	FallbackResponse any
	// FallbackVars are extra placeholders for FallbackResponse, such as a
	// support contact. The built-in placeholders take precedence.
	FallbackVars map[string]any
}

func (c RouteConfig) clone() RouteConfig {
	c.Fallbacks = slices.Clone(c.Fallbacks)
	c.Requires = slices.Clone(c.Requires)
	c.FallbackVars = maps.Clone(c.FallbackVars)
	return c
}

func (c RouteConfig) requested() []string {
	out := make([]string, 0, 1+len(c.Fallbacks)+len(c.Requires))
	out = append(out, c.Primary)
	out = append(out, c.Fallbacks...)
	return append(out, c.Requires...)
}

// Handler serves a request with a live service instance.
type Handler func(ctx context.Context, service any) (any, error)

// RoutingMetadata tells callers which service answered, or that none did.
type RoutingMetadata struct {
	// Service is empty when the payload is a static fallback.
	Service           string   `json:"service"`
	IsFallback        bool     `json:"isFallback"`
	OriginalService   string   `json:"originalService,omitempty"`
	Reason            string   `json:"reason,omitempty"`
	AvailableServices []string `json:"availableServices"`
	RequestedServices []string `json:"requestedServices,omitempty"`
}

// MarshalJSON encodes an empty Service as null.
func (m RoutingMetadata) MarshalJSON() ([]byte, error) {
	type alias RoutingMetadata
	var service *string
	if m.Service != "" {
		service = &m.Service
	}
	return json.Marshal(struct {
		Service *string `json:"service"`
		alias
	}{service, alias(m)})
}

// Degraded reports whether no service produced the payload.
func (m RoutingMetadata) Degraded() bool {
	return m.Service == ""
}

// Response wraps a handler result or a static fallback payload.
type Response struct {
	Payload any             `json:"payload"`
	Routing RoutingMetadata `json:"_routing"`
}

// DefaultFallback is the payload for routes without a configured fallback.
type DefaultFallback struct {
	Content  string                  `json:"content"`
	Fallback bool                    `json:"fallback"`
	Route    string                  `json:"route"`
	Metadata DefaultFallbackMetadata `json:"metadata"`
}

// DefaultFallbackMetadata lists the service state behind a default fallback.
type DefaultFallbackMetadata struct {
	AvailableServices []string            `json:"availableServices"`
	RequestedServices []string            `json:"requestedServices"`
	ServiceStatuses   []api.ServiceStatus `json:"serviceStatuses"`
}

type decision struct {
	service    string
	isFallback bool
	missing    []string
	available  []string
	requested  []string
}

// Router dispatches requests to the best ready service of a route.
type Router struct {
	registry  Registry
	metrics   *metrics.Metrics
	templates *template.Engine

	mu     sync.RWMutex
	routes map[string]RouteConfig
	order  []string

	pollInterval time.Duration
}

// New creates a router over registry. m may be nil.
func New(registry Registry, m *metrics.Metrics) *Router {
	return &Router{
		registry:     registry,
		metrics:      m,
		templates:    template.New(),
		routes:       make(map[string]RouteConfig),
		pollInterval: defaultPollInterval,
	}
}

// RegisterRoute stores a copy of cfg under name.
func (r *Router) RegisterRoute(name string, cfg RouteConfig) error {
	if name == "" {
		return errors.New("route has empty name")
	}
	if cfg.Primary == "" {
		return fmt.Errorf("route %s has no primary service", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[name]; exists {
		return fmt.Errorf("route %s already registered", name)
	}
	r.routes[name] = cfg.clone()
	r.order = append(r.order, name)

	logging.Debug(subsystem, "Registered route %s (primary=%s fallbacks=%v requires=%v)",
		name, cfg.Primary, cfg.Fallbacks, cfg.Requires)
	return nil
}

func (r *Router) route(name string) (RouteConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.routes[name]
	return cfg, ok
}

// Routes returns the registered route names in registration order.
func (r *Router) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

func (r *Router) decide(cfg RouteConfig) decision {
	d := decision{
		available: r.registry.GetReadyServices(),
		requested: cfg.requested(),
	}
	for _, req := range cfg.Requires {
		if !r.registry.IsServiceReady(req) {
			d.missing = append(d.missing, req)
		}
	}
	if len(d.missing) > 0 {
		d.isFallback = true
		return d
	}
	if r.registry.IsServiceReady(cfg.Primary) {
		d.service = cfg.Primary
		return d
	}
	d.isFallback = true
	for _, fb := range cfg.Fallbacks {
		if r.registry.IsServiceReady(fb) {
			d.service = fb
			return d
		}
	}
	return d
}

// RouteRequest runs handler against the best ready service of route name.
//
// If the handler fails, the route's fallbacks are tried one at a time in
// declared order, skipping services that are not ready or were already
// tried. When nothing succeeds the static fallback payload is returned.
// The only error is *api.NotFoundError for an unknown route.
func (r *Router) RouteRequest(ctx context.Context, name string, handler Handler) (*Response, error) {
	cfg, ok := r.route(name)
	if !ok {
		return nil, api.NewRouteNotFoundError(name)
	}

	d := r.decide(cfg)
	if d.service == "" {
		return r.staticFallback(name, cfg, d), nil
	}

	logging.Debug(subsystem, "Routing %s to %s", name, d.service)
	payload, err := r.call(ctx, d.service, handler)
	if err == nil {
		meta := RoutingMetadata{
			Service:           d.service,
			IsFallback:        d.isFallback,
			AvailableServices: d.available,
		}
		outcome := metrics.OutcomePrimary
		if d.isFallback {
			meta.OriginalService = cfg.Primary
			meta.Reason = ReasonPrimaryNotReady
			outcome = metrics.OutcomeFallback
		}
		r.metrics.IncRoute(name, outcome)
		return &Response{Payload: payload, Routing: meta}, nil
	}
	logging.Warn(subsystem, "Service %s failed for route %s, trying fallbacks: %v", d.service, name, err)

	attempted := map[string]bool{d.service: true}
	for _, fb := range cfg.Fallbacks {
		if ctx.Err() != nil {
			break
		}
		if attempted[fb] || !r.registry.IsServiceReady(fb) {
			continue
		}
		attempted[fb] = true

		payload, err := r.call(ctx, fb, handler)
		if err != nil {
			logging.Warn(subsystem, "Fallback %s also failed for route %s: %v", fb, name, err)
			continue
		}
		r.metrics.IncRoute(name, metrics.OutcomeFallback)
		return &Response{
			Payload: payload,
			Routing: RoutingMetadata{
				Service:           fb,
				IsFallback:        true,
				OriginalService:   d.service,
				Reason:            ReasonServiceFailed,
				AvailableServices: d.available,
			},
		}, nil
	}

	return r.staticFallback(name, cfg, d), nil
}

// call invokes handler with the instance of service, converting a missing
// instance or a panic into an error.
func (r *Router) call(ctx context.Context, service string, handler Handler) (payload any, err error) {
	instance, ok := r.registry.GetService(service)
	if !ok {
		return nil, api.NewServiceNotFoundError(service)
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked on %s: %v", service, p)
		}
	}()
	return handler(ctx, instance)
}

func (r *Router) staticFallback(name string, cfg RouteConfig, d decision) *Response {
	r.metrics.IncRoute(name, metrics.OutcomeStatic)

	statuses := r.registry.GetServiceStatuses()
	var initializing []string
	for _, s := range statuses {
		if s.State == api.StateInitializing {
			initializing = append(initializing, s.Name)
		}
	}

	meta := RoutingMetadata{
		IsFallback:        true,
		AvailableServices: d.available,
		RequestedServices: d.requested,
	}

	if cfg.FallbackResponse != nil {
		meta.Reason = ReasonNoServices
		if len(d.missing) > 0 {
			meta.Reason = ReasonMissingRequired
		}
		vars := template.Merge(cfg.FallbackVars, map[string]any{
			"route":        name,
			"initializing": initializing,
			"available":    d.available,
			"requested":    d.requested,
		})
		payload, err := r.templates.Replace(cfg.FallbackResponse, vars)
		if err != nil {
			logging.Warn(subsystem, "Could not render fallback for route %s: %v", name, err)
			payload = cfg.FallbackResponse
		}
		logging.Info(subsystem, "Using configured fallback for route %s", name)
		return &Response{Payload: payload, Routing: meta}
	}

	meta.Reason = ReasonDefaultFallback
	if len(d.missing) > 0 {
		meta.Reason = ReasonMissingRequired
	}
	logging.Info(subsystem, "Using default fallback for route %s", name)
	return &Response{
		Payload: DefaultFallback{
			Content:  r.defaultMessage(initializing),
			Fallback: true,
			Route:    name,
			Metadata: DefaultFallbackMetadata{
				AvailableServices: d.available,
				RequestedServices: d.requested,
				ServiceStatuses:   statuses,
			},
		},
		Routing: meta,
	}
}

func (r *Router) defaultMessage(initializing []string) string {
	clause := ""
	switch len(initializing) {
	case 0:
	case 1:
		clause = initializing[0] + " is still initializing. "
	default:
		clause = strings.Join(initializing, ", ") + " are still initializing. "
	}
	msg, err := r.templates.Render(defaultFallbackMessage, map[string]any{"initializing": clause})
	if err != nil {
		return defaultFallbackMessage
	}
	return msg
}

// CanRouteWithoutFallback reports whether the primary service of route name
// is ready and no required service is missing.
func (r *Router) CanRouteWithoutFallback(name string) bool {
	cfg, ok := r.route(name)
	if !ok {
		return false
	}
	d := r.decide(cfg)
	return d.service != "" && !d.isFallback
}

// WaitForRoute blocks until route name can be served by its primary, the
// timeout elapses or ctx is done. While waiting it initializes the primary
// and any missing required services. It never returns an error; false means
// the route is still degraded or unknown.
func (r *Router) WaitForRoute(ctx context.Context, name string, timeout time.Duration) bool {
	cfg, ok := r.route(name)
	if !ok {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastKick time.Time
	for {
		// Subscribe before checking so a transition in between is not missed.
		changed := r.registry.Changed()
		if r.CanRouteWithoutFallback(name) {
			return true
		}

		if time.Since(lastKick) >= r.pollInterval {
			lastKick = time.Now()
			for _, svc := range append([]string{cfg.Primary}, cfg.Requires...) {
				if r.registry.IsServiceReady(svc) {
					continue
				}
				if _, err := r.registry.ForceInitialize(ctx, svc); err != nil {
					logging.Debug(subsystem, "Waiting for route %s: %s not ready: %v", name, svc, err)
				}
			}
			continue
		}

		timer := time.NewTimer(r.pollInterval - time.Since(lastKick))
		select {
		case <-changed:
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return r.CanRouteWithoutFallback(name)
		}
		timer.Stop()
	}
}

// GetRouteStatus reports how route name would be served right now.
func (r *Router) GetRouteStatus(name string) (api.RouteStatus, bool) {
	cfg, ok := r.route(name)
	if !ok {
		return api.RouteStatus{}, false
	}
	d := r.decide(cfg)

	var missing []string
	for _, svc := range cfg.requested() {
		if !r.registry.IsServiceReady(svc) && !slices.Contains(missing, svc) {
			missing = append(missing, svc)
		}
	}
	return api.RouteStatus{
		Name:              name,
		Primary:           cfg.Primary,
		Fallbacks:         slices.Clone(cfg.Fallbacks),
		Requires:          slices.Clone(cfg.Requires),
		Available:         d.service != "",
		ActiveService:     d.service,
		UsingFallback:     d.isFallback,
		MissingServices:   missing,
		AvailableServices: d.available,
	}, true
}

// GetAllRouteStatuses reports every route in registration order.
func (r *Router) GetAllRouteStatuses() []api.RouteStatus {
	names := r.Routes()
	out := make([]api.RouteStatus, 0, len(names))
	for _, name := range names {
		if st, ok := r.GetRouteStatus(name); ok {
			out = append(out, st)
		}
	}
	return out
}
