package config

import "time"

// Names of the services registered by the application.
const (
	ServiceAIClient       = "ai-client"
	ServiceDIAS           = "dias"
	ServiceContextManager = "context-manager"
	ServiceTaskPlanner    = "task-planner"
)

// KnownServices lists every service name a route may reference.
var KnownServices = []string{
	ServiceAIClient,
	ServiceDIAS,
	ServiceContextManager,
	ServiceTaskPlanner,
}

// BackendSimulated selects the in-tree simulated execution backend.
const BackendSimulated = "simulated"

// Names of the default routes.
const (
	RouteBasicChat    = "basic-chat"
	RouteEnhancedChat = "enhanced-chat"
	RouteContext      = "context"
	RouteTasks        = "tasks"
)

// GetDefaultConfig returns the configuration used when no config.yaml exists.
// Every field left empty by a loaded file keeps the value set here.
func GetDefaultConfig() SwitchyardConfig {
	return SwitchyardConfig{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8095,
			MCPPath:         "/mcp",
			MetricsEnabled:  true,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Registry: RegistryConfig{
			InitTimeout:      5 * time.Second,
			RetryInterval:    60 * time.Second,
			MaxRetryInterval: 10 * time.Minute,
			EagerInit:        true,
		},
		Orchestrator: OrchestratorConfig{
			DefaultPersona:      "architect",
			EnabledCapabilities: []string{"context7", "sequential", "magic", "playwright"},
			Backend:             BackendSimulated,
			SimulatedLatency:    200 * time.Millisecond,
			RateLimit: RateLimitConfig{
				Capacity:   100,
				RefillRate: 10,
			},
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				RecoveryTimeout:  60 * time.Second,
			},
		},
		Cache: CacheConfig{
			MaxSize:              1000,
			DefaultTTL:           time.Hour,
			CompressionThreshold: 10000,
			Summary: SummaryConfig{
				LineThreshold: 100,
				HeadLines:     50,
				TailLines:     50,
				MaxKeyLines:   20,
			},
		},
		Sources: SourcesConfig{
			ProjectsRoot:    ".",
			DocsDir:         "docs",
			HistoryFile:     ".switchyard/history.jsonl",
			PreferencesFile: ".switchyard/preferences.yaml",
			MaxFileBytes:    1 << 20,
			HistoryLimit:    50,
			Watch:           true,
		},
		TaskPlanner: TaskPlannerConfig{
			Command: "task-master",
			Timeout: 30 * time.Second,
		},
		Routes: DefaultRoutes(),
	}
}

// DefaultRoutes returns the built-in route table.
func DefaultRoutes() []RouteDefinition {
	return []RouteDefinition{
		{
			Name:            RouteBasicChat,
			Primary:         ServiceAIClient,
			FallbackMessage: "AI service is starting up. Please try again in a moment.",
		},
		{
			Name:      RouteEnhancedChat,
			Primary:   ServiceDIAS,
			Fallbacks: []string{ServiceAIClient},
			Requires:  []string{ServiceAIClient},
		},
		{
			Name:            RouteContext,
			Primary:         ServiceContextManager,
			FallbackMessage: "Project context is not available yet.",
		},
		{
			Name:            RouteTasks,
			Primary:         ServiceTaskPlanner,
			FallbackMessage: "Task planning is unavailable. Is the task planner CLI installed?",
		},
	}
}
