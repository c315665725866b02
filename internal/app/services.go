package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"switchyard/internal/api"
	"switchyard/internal/config"
	"switchyard/internal/contextcache"
	"switchyard/internal/contextsource"
	"switchyard/internal/metrics"
	"switchyard/internal/orchestrator"
	"switchyard/internal/router"
	"switchyard/internal/server"
	"switchyard/internal/services"
	"switchyard/internal/taskplanner"
	"switchyard/pkg/logging"
)

// criticalServices are initialized before the server starts accepting
// requests, so that basic chat is served by a real service from the start.
var criticalServices = []string{config.ServiceAIClient}

// Services holds every component of a running switchyard instance.
//
// It is passed explicitly to whoever needs it; there is no process-wide
// instance. Service instances themselves live in Registry and are created
// lazily by the factories registered in InitializeServices.
type Services struct {
	Config  config.SwitchyardConfig
	Version string

	Metrics  *metrics.Metrics
	Registry *services.Registry
	Router   *router.Router
	Sources  *contextsource.Filesystem

	// Watcher invalidates cached project contexts on file changes.
	// It is nil when sources.watch is disabled.
	Watcher *contextsource.Watcher

	Server *server.Server
}

// InitializeServices builds the registry, registers every service factory
// and route, and prepares the HTTP server. No service is initialized and
// nothing listens until Start.
func InitializeServices(cfg *Config) (*Services, error) {
	if cfg.SwitchyardConfig == nil {
		return nil, errors.New("configuration has not been loaded")
	}
	sc := *cfg.SwitchyardConfig

	s := &Services{
		Config:  sc,
		Version: cfg.Version,
		Metrics: metrics.New(),
		Registry: services.NewRegistry(services.Config{
			InitTimeout:      sc.Registry.InitTimeout,
			RetryInterval:    sc.Registry.RetryInterval,
			MaxRetryInterval: sc.Registry.MaxRetryInterval,
			EagerInit:        sc.Registry.EagerInit,
		}),
		Sources: contextsource.NewFilesystem(contextsource.Config{
			ProjectsRoot:    sc.Sources.ProjectsRoot,
			DocsDir:         sc.Sources.DocsDir,
			HistoryFile:     sc.Sources.HistoryFile,
			PreferencesFile: sc.Sources.PreferencesFile,
			MaxFileBytes:    sc.Sources.MaxFileBytes,
			HistoryLimit:    sc.Sources.HistoryLimit,
		}),
	}
	s.Registry.OnStateChange(s.recordStateChange)

	if err := s.registerServices(); err != nil {
		return nil, fmt.Errorf("registering services: %w", err)
	}

	s.Router = router.New(s.Registry, s.Metrics)
	if err := registerRoutes(s.Router, sc.Routes); err != nil {
		return nil, fmt.Errorf("registering routes: %w", err)
	}

	if sc.Sources.Watch {
		s.Watcher = contextsource.NewWatcher(sc.Sources.ProjectsRoot, 0, s.invalidateProject)
	}

	s.Server = server.New(server.Config{
		Host:           sc.Server.Host,
		Port:           sc.Server.Port,
		MCPPath:        sc.Server.MCPPath,
		MetricsEnabled: sc.Server.MetricsEnabled,
		Version:        cfg.Version,
	}, s.Router, s, s.Metrics)

	logging.Info("Services", "Registered %d services and %d routes", len(config.KnownServices), len(sc.Routes))
	return s, nil
}

func (s *Services) registerServices() error {
	factories := []struct {
		name    string
		factory services.Factory
	}{
		{config.ServiceAIClient, s.newAIClient},
		{config.ServiceContextManager, s.newContextManager},
		{config.ServiceDIAS, s.newDIAS},
		{config.ServiceTaskPlanner, s.newTaskPlanner},
	}
	for _, f := range factories {
		if err := s.Registry.Register(f.name, f.factory); err != nil {
			return err
		}
	}
	return nil
}

func registerRoutes(r *router.Router, routes []config.RouteDefinition) error {
	for _, def := range routes {
		rc := router.RouteConfig{
			Primary:   def.Primary,
			Fallbacks: def.Fallbacks,
			Requires:  def.Requires,
		}
		if def.FallbackMessage != "" {
			rc.FallbackResponse = def.FallbackMessage
		}
		if len(def.FallbackVars) > 0 {
			rc.FallbackVars = make(map[string]any, len(def.FallbackVars))
			for k, v := range def.FallbackVars {
				rc.FallbackVars[k] = v
			}
		}
		if err := r.RegisterRoute(def.Name, rc); err != nil {
			return err
		}
	}
	return nil
}

// orchestratorConfig converts the configuration section, rejecting unknown
// persona and capability names.
func orchestratorConfig(c config.OrchestratorConfig) (orchestrator.Config, error) {
	cfg := orchestrator.Config{
		ExecutionTimeout: c.ExecutionTimeout,
		Capacity:         c.RateLimit.Capacity,
		RefillRate:       c.RateLimit.RefillRate,
		FailureThreshold: c.CircuitBreaker.FailureThreshold,
		RecoveryTimeout:  c.CircuitBreaker.RecoveryTimeout,
	}
	if c.DefaultPersona != "" {
		p, err := orchestrator.ParsePersona(c.DefaultPersona)
		if err != nil {
			return orchestrator.Config{}, err
		}
		cfg.DefaultPersona = p
	}
	for _, name := range c.EnabledCapabilities {
		capability, err := orchestrator.ParseCapability(name)
		if err != nil {
			return orchestrator.Config{}, err
		}
		cfg.EnabledCapabilities = append(cfg.EnabledCapabilities, capability)
	}
	return cfg, nil
}

func (s *Services) newAIClient(ctx context.Context) (any, error) {
	cfg, err := orchestratorConfig(s.Config.Orchestrator)
	if err != nil {
		return nil, err
	}
	backend := orchestrator.NewSimulatedBackend(s.Config.Orchestrator.SimulatedLatency)
	return orchestrator.New(cfg, backend, orchestrator.WithMetrics(s.Metrics))
}

func (s *Services) newContextManager(ctx context.Context) (any, error) {
	cache, err := contextcache.New(contextcache.Config{
		MaxSize:              s.Config.Cache.MaxSize,
		DefaultTTL:           s.Config.Cache.DefaultTTL,
		CompressionThreshold: s.Config.Cache.CompressionThreshold,
	}, s.Metrics)
	if err != nil {
		return nil, err
	}
	summarizer := contextcache.DefaultSummarizer()
	if sum := s.Config.Cache.Summary; sum.LineThreshold > 0 {
		summarizer.LineThreshold = sum.LineThreshold
		summarizer.HeadLines = sum.HeadLines
		summarizer.TailLines = sum.TailLines
		summarizer.MaxKeyLines = sum.MaxKeyLines
	}
	return contextcache.NewManager(cache, s.Sources, summarizer, s.Config.Cache.DefaultTTL), nil
}

// newDIAS builds the enhanced client. It brings up its two dependencies
// first; a failure of either fails this attempt and the retry loop tries
// again later.
func (s *Services) newDIAS(ctx context.Context) (any, error) {
	for _, dep := range []string{config.ServiceAIClient, config.ServiceContextManager} {
		if _, err := s.Registry.ForceInitialize(ctx, dep); err != nil {
			return nil, fmt.Errorf("dependency %s is not ready: %w", dep, err)
		}
	}
	orch, ok := services.Get[*orchestrator.Orchestrator](s.Registry, config.ServiceAIClient)
	if !ok {
		return nil, fmt.Errorf("dependency %s is not ready", config.ServiceAIClient)
	}
	mgr, ok := services.Get[*contextcache.Manager](s.Registry, config.ServiceContextManager)
	if !ok {
		return nil, fmt.Errorf("dependency %s is not ready", config.ServiceContextManager)
	}
	return orchestrator.NewEnhancedClient(orch, mgr)
}

func (s *Services) newTaskPlanner(ctx context.Context) (any, error) {
	return taskplanner.New(taskplanner.Config{
		Command: s.Config.TaskPlanner.Command,
		Args:    s.Config.TaskPlanner.Args,
		WorkDir: s.Config.TaskPlanner.WorkDir,
		Timeout: s.Config.TaskPlanner.Timeout,
	})
}

func (s *Services) recordStateChange(name string, oldState, newState services.ServiceState, err error) {
	s.Metrics.SetServiceReady(name, newState == services.StateReady)
	if oldState != services.StateInitializing {
		return
	}
	if st, ok := s.Registry.GetServiceStatus(name); ok {
		s.Metrics.ObserveServiceInit(name, newState == services.StateReady, st.InitDuration)
	}
}

// invalidateProject drops cached contexts of a project whose files changed.
// Nothing is cached before the context manager is ready.
func (s *Services) invalidateProject(projectID string) {
	mgr, ok := services.Get[*contextcache.Manager](s.Registry, config.ServiceContextManager)
	if !ok {
		return
	}
	if n := mgr.InvalidateProject(projectID); n > 0 {
		logging.Debug("Services", "Invalidated %d cached contexts for project %s", n, projectID)
	}
}

// SystemStatus reports service states, route availability and overall health.
//
// Basic readiness means basic chat can be served by some service; enhanced
// readiness means enhanced chat is served by its primary.
func (s *Services) SystemStatus() api.SystemStatus {
	st := api.SystemStatus{
		Version:   s.Version,
		Services:  s.Registry.GetServiceStatuses(),
		Routes:    s.Router.GetAllRouteStatuses(),
		Timestamp: time.Now(),
	}
	if basic, ok := s.Router.GetRouteStatus(config.RouteBasicChat); ok {
		st.BasicReady = basic.Available
	}
	st.EnhancedReady = s.Router.CanRouteWithoutFallback(config.RouteEnhancedChat)

	ready := 0
	for _, svc := range st.Services {
		if svc.State == api.StateReady {
			ready++
		}
	}
	switch {
	case ready == len(st.Services) && ready > 0:
		st.Health = api.HealthHealthy
	case st.BasicReady:
		st.Health = api.HealthDegraded
	default:
		st.Health = api.HealthUnhealthy
	}
	return st
}

// Start begins background initialization, waits up to the init timeout for
// the critical services, starts the project watcher and opens the server.
// Only a server that cannot listen is fatal.
func (s *Services) Start(ctx context.Context) error {
	s.Registry.Start(ctx)

	for _, name := range criticalServices {
		if _, err := s.Registry.ForceInitialize(ctx, name); err != nil {
			logging.Warn("Services", "Critical service %s is not ready yet: %v", name, err)
		}
	}

	if s.Watcher != nil {
		if err := s.Watcher.Start(ctx); err != nil {
			logging.Warn("Services", "Project watcher disabled: %v", err)
			s.Watcher = nil
		}
	}

	return s.Server.Start(ctx)
}

// Shutdown stops the server, the watcher and every service, in that order.
func (s *Services) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.Server.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.Watcher != nil {
		if err := s.Watcher.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping watcher: %w", err))
		}
	}
	if err := s.Registry.Destroy(ctx); err != nil {
		errs = append(errs, fmt.Errorf("destroying registry: %w", err))
	}
	return errors.Join(errs...)
}
