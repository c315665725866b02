// Package metrics exposes Prometheus instrumentation for the registry,
// router, orchestrator and cache.
//
// Every method is safe on a nil *Metrics so components can be built without
// instrumentation in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "switchyard"

// Route outcomes.
const (
	OutcomePrimary  = "primary"
	OutcomeFallback = "fallback"
	OutcomeStatic   = "static"
)

// Metrics holds all collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	serviceInits   *prometheus.HistogramVec
	serviceReady   *prometheus.GaugeVec
	routeRequests  *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	executions     *prometheus.HistogramVec
	breakerOpen    prometheus.Gauge
	cacheLookups   *prometheus.CounterVec
	cacheEvictions prometheus.Counter
	cacheEntries   prometheus.Gauge
}

// New creates the collectors and registers them with a fresh registry that
// also carries the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		serviceInits: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_init_duration_seconds",
			Help:      "Duration of service initialization attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"service", "result"}),
		serviceReady: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_ready",
			Help:      "1 when the service is ready, 0 otherwise.",
		}, []string{"service"}),
		routeRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_requests_total",
			Help:      "Routed requests by route and outcome (primary, fallback, static).",
		}, []string{"route", "outcome"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "execution_rejections_total",
			Help:      "Requests rejected before reaching the execution backend.",
		}, []string{"reason"}),
		executions: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Backend execution duration by model tier and result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier", "result"}),
		breakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_open",
			Help:      "1 while the execution circuit breaker rejects requests.",
		}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Capability cache lookups by result (hit, miss, expired).",
		}, []string{"result"}),
		cacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries evicted from the capability cache to honour its size bound.",
		}),
		cacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries currently held by the capability cache.",
		}),
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveServiceInit(service string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.serviceInits.WithLabelValues(service, result(ok)).Observe(d.Seconds())
}

func (m *Metrics) SetServiceReady(service string, ready bool) {
	if m == nil {
		return
	}
	v := 0.0
	if ready {
		v = 1
	}
	m.serviceReady.WithLabelValues(service).Set(v)
}

func (m *Metrics) IncRoute(route, outcome string) {
	if m == nil {
		return
	}
	m.routeRequests.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) IncRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveExecution(tier string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(tier, result(ok)).Observe(d.Seconds())
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.breakerOpen.Set(1)
		return
	}
	m.breakerOpen.Set(0)
}

func (m *Metrics) IncCacheLookup(res string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(res).Inc()
}

func (m *Metrics) IncCacheEviction() {
	if m == nil {
		return
	}
	m.cacheEvictions.Inc()
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
