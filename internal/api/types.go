package api

import "time"

// ServiceState is the lifecycle state of a lazily initialized service.
//
// The legal transitions are:
//
//	uninitialized -> initializing -> ready
//	initializing  -> failed -> initializing
//
// ready is terminal for the lifetime of the registry.
type ServiceState string

const (
	StateUninitialized ServiceState = "uninitialized"
	StateInitializing  ServiceState = "initializing"
	StateReady         ServiceState = "ready"
	StateFailed        ServiceState = "failed"
)

// HealthStatus represents the coarse health of a component
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// ServiceStatus is a point-in-time snapshot of one registered service.
type ServiceStatus struct {
	Name                string        `json:"name"`
	State               ServiceState  `json:"state"`
	LastTransition      time.Time     `json:"lastTransition"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
	LastError           string        `json:"lastError,omitempty"`
	InitDuration        time.Duration `json:"initDuration,omitempty"`
	NextRetryAt         *time.Time    `json:"nextRetryAt,omitempty"`
}

// RouteStatus summarizes whether a route can currently be served.
type RouteStatus struct {
	Name              string   `json:"name"`
	Primary           string   `json:"primary"`
	Fallbacks         []string `json:"fallbacks,omitempty"`
	Requires          []string `json:"requires,omitempty"`
	Available         bool     `json:"available"`
	ActiveService     string   `json:"activeService,omitempty"`
	UsingFallback     bool     `json:"usingFallback"`
	MissingServices   []string `json:"missingServices,omitempty"`
	AvailableServices []string `json:"availableServices"`
}

// SystemStatus is the aggregate view returned by the status endpoint.
type SystemStatus struct {
	Version       string          `json:"version"`
	Health        HealthStatus    `json:"health"`
	BasicReady    bool            `json:"basicReady"`
	EnhancedReady bool            `json:"enhancedReady"`
	Services      []ServiceStatus `json:"services"`
	Routes        []RouteStatus   `json:"routes"`
	Timestamp     time.Time       `json:"timestamp"`
}

// RouteWaitResult is returned by the wait_for_route tool.
type RouteWaitResult struct {
	Route  string      `json:"route"`
	Ready  bool        `json:"ready"`
	Status RouteStatus `json:"status"`
}
