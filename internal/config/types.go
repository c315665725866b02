package config

import "time"

// SwitchyardConfig is the top-level configuration structure for switchyard.
type SwitchyardConfig struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Registry     RegistryConfig     `yaml:"registry"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Cache        CacheConfig        `yaml:"cache"`
	Sources      SourcesConfig      `yaml:"sources"`
	TaskPlanner  TaskPlannerConfig  `yaml:"taskPlanner"`
	Routes       []RouteDefinition  `yaml:"routes"`
}

// ServerConfig defines the HTTP surface exposing routes, status and metrics.
type ServerConfig struct {
	Host            string        `yaml:"host,omitempty"` // Host to bind to (default: localhost)
	Port            int           `yaml:"port,omitempty"` // Port to listen on (default: 8095)
	MCPPath         string        `yaml:"mcpPath,omitempty"`
	MetricsEnabled  bool          `yaml:"metricsEnabled"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`
}

// LoggingConfig selects level and handler format for pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// RegistryConfig controls lazy initialization and background retry.
type RegistryConfig struct {
	// InitTimeout bounds a single factory invocation.
	InitTimeout time.Duration `yaml:"initTimeout,omitempty"`
	// RetryInterval is both the retry tick and the first backoff step.
	RetryInterval time.Duration `yaml:"retryInterval,omitempty"`
	// MaxRetryInterval caps the exponential backoff between attempts.
	MaxRetryInterval time.Duration `yaml:"maxRetryInterval,omitempty"`
	// EagerInit starts every registered service in the background on Start.
	EagerInit bool `yaml:"eagerInit"`
}

// OrchestratorConfig configures the execution orchestrator.
type OrchestratorConfig struct {
	DefaultPersona      string               `yaml:"defaultPersona,omitempty"`
	EnabledCapabilities []string             `yaml:"enabledCapabilities,omitempty"`
	ExecutionTimeout    time.Duration        `yaml:"executionTimeout,omitempty"` // 0 disables the timeout
	Backend             string               `yaml:"backend,omitempty"`          // only "simulated" ships in-tree
	SimulatedLatency    time.Duration        `yaml:"simulatedLatency,omitempty"`
	RateLimit           RateLimitConfig      `yaml:"rateLimit"`
	CircuitBreaker      CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimitConfig configures the token bucket.
type RateLimitConfig struct {
	Capacity   int     `yaml:"capacity"`
	RefillRate float64 `yaml:"refillRate"` // tokens per second
}

// CircuitBreakerConfig configures the consecutive-failure breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failureThreshold"`
	RecoveryTimeout  time.Duration `yaml:"recoveryTimeout"`
}

// CacheConfig configures the capability cache.
type CacheConfig struct {
	MaxSize              int           `yaml:"maxSize"`
	DefaultTTL           time.Duration `yaml:"defaultTTL"`
	CompressionThreshold int           `yaml:"compressionThreshold"` // bytes of serialized payload
	Summary              SummaryConfig `yaml:"summary"`
}

// SummaryConfig tunes the lossy code summarizer.
type SummaryConfig struct {
	LineThreshold int `yaml:"lineThreshold"`
	HeadLines     int `yaml:"headLines"`
	TailLines     int `yaml:"tailLines"`
	MaxKeyLines   int `yaml:"maxKeyLines"`
}

// SourcesConfig locates the per-project context data on disk.
type SourcesConfig struct {
	ProjectsRoot    string `yaml:"projectsRoot"`
	DocsDir         string `yaml:"docsDir,omitempty"`
	HistoryFile     string `yaml:"historyFile,omitempty"`
	PreferencesFile string `yaml:"preferencesFile,omitempty"`
	MaxFileBytes    int64  `yaml:"maxFileBytes,omitempty"`
	HistoryLimit    int    `yaml:"historyLimit,omitempty"`
	// Watch invalidates cached contexts when project files change.
	Watch bool `yaml:"watch"`
}

// TaskPlannerConfig describes the external task-planning CLI.
type TaskPlannerConfig struct {
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args,omitempty"`
	WorkDir string        `yaml:"workDir,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// RouteDefinition declares one named route.
type RouteDefinition struct {
	Name      string   `yaml:"name"`
	Primary   string   `yaml:"primary"`
	Fallbacks []string `yaml:"fallbacks,omitempty"`
	Requires  []string `yaml:"requires,omitempty"`
	// FallbackMessage becomes the static payload returned when nothing can serve the route.
	// Empty means the router renders its default message.
	FallbackMessage string `yaml:"fallbackMessage,omitempty"`
	// FallbackVars are additional placeholders available to FallbackMessage.
	FallbackVars map[string]string `yaml:"fallbackVars,omitempty"`
}
