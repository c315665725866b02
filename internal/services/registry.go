package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"switchyard/internal/api"
	"switchyard/pkg/logging"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"
)

const subsystem = "Registry"

// Config controls initialization timeouts and background retry.
type Config struct {
	InitTimeout      time.Duration
	RetryInterval    time.Duration
	MaxRetryInterval time.Duration
	EagerInit        bool
}

// DefaultConfig mirrors the registry section of the default configuration.
func DefaultConfig() Config {
	return Config{
		InitTimeout:      5 * time.Second,
		RetryInterval:    60 * time.Second,
		MaxRetryInterval: 10 * time.Minute,
		EagerInit:        true,
	}
}

type descriptor struct {
	name           string
	factory        Factory
	state          ServiceState
	instance       any
	lastTransition time.Time
	failures       int
	lastErr        error
	initDuration   time.Duration
	nextRetryAt    time.Time
	backoff        *backoff.ExponentialBackOff
}

type transition struct {
	name     string
	oldState ServiceState
	newState ServiceState
	err      error
}

// Registry owns lazily initialized services and their lifecycle.
//
// Lookups never block on initialization. Initialization is driven by
// ForceInitialize, by Start when EagerInit is set, and by the background
// retry loop for failed services.
type Registry struct {
	cfg Config

	mu        sync.RWMutex
	order     []string
	services  map[string]*descriptor
	callbacks []StateChangeCallback
	changed   chan struct{}
	started   bool
	destroyed bool

	group singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

// NewRegistry creates an empty registry. Zero config values fall back to DefaultConfig.
func NewRegistry(cfg Config) *Registry {
	defaults := DefaultConfig()
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = defaults.InitTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaults.RetryInterval
	}
	if cfg.MaxRetryInterval < cfg.RetryInterval {
		cfg.MaxRetryInterval = cfg.RetryInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		cfg:      cfg,
		services: make(map[string]*descriptor),
		changed:  make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

// Register adds a service in the uninitialized state. No work is performed.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("service has empty name")
	}
	if factory == nil {
		return fmt.Errorf("cannot register service %s with nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return fmt.Errorf("cannot register service %s: registry destroyed", name)
	}
	if _, exists := r.services[name]; exists {
		return fmt.Errorf("service %s already registered", name)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.cfg.RetryInterval
	bo.MaxInterval = r.cfg.MaxRetryInterval
	bo.RandomizationFactor = 0
	bo.Reset()

	r.services[name] = &descriptor{
		name:           name,
		factory:        factory,
		state:          StateUninitialized,
		lastTransition: r.now(),
		backoff:        bo,
	}
	r.order = append(r.order, name)
	logging.Debug(subsystem, "Registered service %s", name)
	return nil
}

// OnStateChange registers a callback fired after every state transition.
func (r *Registry) OnStateChange(cb StateChangeCallback) {
	if cb == nil {
		return
	}
	r.mu.Lock()
	r.callbacks = append(r.callbacks, cb)
	r.mu.Unlock()
}

// Changed returns a channel that is closed on the next state transition.
// Callers re-read Changed after each wake-up.
func (r *Registry) Changed() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.changed
}

// IsServiceReady reports whether name is registered and ready.
func (r *Registry) IsServiceReady(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.services[name]
	return ok && d.state == StateReady
}

// GetService returns the ready instance for name. It never blocks and never
// triggers initialization.
func (r *Registry) GetService(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.services[name]
	if !ok || d.state != StateReady {
		return nil, false
	}
	return d.instance, true
}

// Get is a typed GetService.
func Get[T any](r *Registry, name string) (T, bool) {
	var zero T
	instance, ok := r.GetService(name)
	if !ok {
		return zero, false
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// ForceInitialize initializes name now unless it is already ready.
// Concurrent callers share a single in-flight attempt. The caller's context
// only bounds how long it waits; the attempt itself is bounded by the
// registry's init timeout and keeps running for other waiters.
func (r *Registry) ForceInitialize(ctx context.Context, name string) (bool, error) {
	r.mu.RLock()
	d, ok := r.services[name]
	ready := ok && d.state == StateReady
	r.mu.RUnlock()

	if !ok {
		return false, api.NewServiceNotFoundError(name)
	}
	if ready {
		return true, nil
	}

	ch := r.group.DoChan(name, func() (any, error) {
		return nil, r.initialize(name)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// initialize runs one attempt. It must only be called through the singleflight group.
func (r *Registry) initialize(name string) error {
	r.mu.Lock()
	d, ok := r.services[name]
	if !ok {
		r.mu.Unlock()
		return api.NewServiceNotFoundError(name)
	}
	if d.state == StateReady {
		r.mu.Unlock()
		return nil
	}
	t := r.transitionLocked(d, StateInitializing, nil)
	factory := d.factory
	attempt := d.failures + 1
	r.mu.Unlock()
	r.fire(t)

	logging.Debug(subsystem, "Initializing service %s (attempt %d)", name, attempt)

	start := r.now()
	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.InitTimeout)
	defer cancel()
	instance, err := invoke(ctx, name, factory)
	elapsed := r.now().Sub(start)

	r.mu.Lock()
	if r.destroyed || r.services[name] != d {
		r.mu.Unlock()
		stopInstance(name, instance)
		return fmt.Errorf("service %s: registry destroyed during initialization", name)
	}

	d.initDuration = elapsed
	if err != nil {
		d.failures++
		d.lastErr = err
		d.nextRetryAt = r.now().Add(d.backoff.NextBackOff())
		initErr := &api.InitializationError{Service: name, Attempts: d.failures, Err: err}
		t = r.transitionLocked(d, StateFailed, initErr)
		nextRetry := d.nextRetryAt
		r.mu.Unlock()
		r.fire(t)

		logging.Warn(subsystem, "Service %s failed to initialize after %s: %v (next retry after %s)",
			name, elapsed, err, nextRetry.Format(time.RFC3339))
		return initErr
	}

	d.instance = instance
	d.failures = 0
	d.lastErr = nil
	d.nextRetryAt = time.Time{}
	d.backoff.Reset()
	t = r.transitionLocked(d, StateReady, nil)
	r.mu.Unlock()
	r.fire(t)

	logging.Info(subsystem, "Service %s ready in %s", name, elapsed)
	return nil
}

// invoke runs the factory and abandons it when ctx expires. A late instance
// from an abandoned factory is stopped once it arrives.
func invoke(ctx context.Context, name string, factory Factory) (any, error) {
	type result struct {
		instance any
		err      error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("factory panicked: %v", p)}
			}
		}()
		instance, err := factory(ctx)
		done <- result{instance: instance, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil && res.instance == nil {
			return nil, fmt.Errorf("factory returned nil instance")
		}
		return res.instance, res.err
	case <-ctx.Done():
		go func() {
			res := <-done
			stopInstance(name, res.instance)
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("initialization timed out: %w", ctx.Err())
		}
		return nil, ctx.Err()
	}
}

func stopInstance(name string, instance any) {
	s, ok := instance.(Stopper)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logging.Error(subsystem, err, "Failed to stop service %s", name)
	}
}

func (r *Registry) transitionLocked(d *descriptor, to ServiceState, err error) transition {
	t := transition{name: d.name, oldState: d.state, newState: to, err: err}
	d.state = to
	d.lastTransition = r.now()
	close(r.changed)
	r.changed = make(chan struct{})
	return t
}

func (r *Registry) fire(t transition) {
	r.mu.RLock()
	callbacks := make([]StateChangeCallback, len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.RUnlock()

	for _, cb := range callbacks {
		cb(t.name, t.oldState, t.newState, t.err)
	}
}

// Start launches the background retry loop and, when EagerInit is set,
// initializes every registered service in the background. It returns
// immediately; the system is usable while services come up.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started || r.destroyed {
		r.mu.Unlock()
		return
	}
	r.started = true
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.mu.Unlock()

	r.wg.Add(1)
	go r.retryLoop(ctx)

	if !r.cfg.EagerInit {
		return
	}
	for _, name := range names {
		r.wg.Add(1)
		go func(name string) {
			defer r.wg.Done()
			if _, err := r.ForceInitialize(r.ctx, name); err != nil {
				logging.Debug(subsystem, "Background initialization of %s did not succeed: %v", name, err)
			}
		}(name)
	}
	logging.Info(subsystem, "Started background initialization of %d services", len(names))
}

func (r *Registry) retryLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.retryDueServices()
		}
	}
}

// retryDueServices re-attempts every failed service whose backoff has elapsed.
func (r *Registry) retryDueServices() {
	now := r.now()

	r.mu.RLock()
	var due []string
	for _, name := range r.order {
		d := r.services[name]
		if d.state == StateFailed && !now.Before(d.nextRetryAt) {
			due = append(due, name)
		}
	}
	r.mu.RUnlock()

	for _, name := range due {
		logging.Debug(subsystem, "Retrying initialization of %s", name)
		r.wg.Add(1)
		go func(name string) {
			defer r.wg.Done()
			_, _ = r.ForceInitialize(r.ctx, name)
		}(name)
	}
}

// GetServiceStatus returns a snapshot of one service.
func (r *Registry) GetServiceStatus(name string) (api.ServiceStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.services[name]
	if !ok {
		return api.ServiceStatus{}, false
	}
	return d.status(), true
}

// GetServiceStatuses returns snapshots of all services in registration order.
func (r *Registry) GetServiceStatuses() []api.ServiceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	statuses := make([]api.ServiceStatus, 0, len(r.order))
	for _, name := range r.order {
		statuses = append(statuses, r.services[name].status())
	}
	return statuses
}

// GetReadyServices returns the names of ready services in registration order.
func (r *Registry) GetReadyServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ready := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.services[name].state == StateReady {
			ready = append(ready, name)
		}
	}
	return ready
}

// GetServicesInState returns the names of services currently in state.
func (r *Registry) GetServicesInState(state ServiceState) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, name := range r.order {
		if r.services[name].state == state {
			names = append(names, name)
		}
	}
	return names
}

func (d *descriptor) status() api.ServiceStatus {
	s := api.ServiceStatus{
		Name:                d.name,
		State:               d.state,
		LastTransition:      d.lastTransition,
		ConsecutiveFailures: d.failures,
		InitDuration:        d.initDuration,
	}
	if d.lastErr != nil {
		s.LastError = d.lastErr.Error()
	}
	if d.state == StateFailed && !d.nextRetryAt.IsZero() {
		next := d.nextRetryAt
		s.NextRetryAt = &next
	}
	return s
}

// Destroy stops the retry loop and background initializations, stops every
// ready instance implementing Stopper in reverse registration order, and
// clears the registry. It is safe to call more than once.
func (r *Registry) Destroy(ctx context.Context) error {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return nil
	}
	r.destroyed = true
	r.mu.Unlock()

	r.cancel()

	waited := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(waited)
	}()

	var errs []error
	select {
	case <-waited:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for background work: %w", ctx.Err()))
	}

	r.mu.Lock()
	type readyInstance struct {
		name     string
		instance any
	}
	var ready []readyInstance
	for _, name := range r.order {
		if d := r.services[name]; d.state == StateReady {
			ready = append(ready, readyInstance{name: name, instance: d.instance})
		}
	}
	r.services = make(map[string]*descriptor)
	r.order = nil
	close(r.changed)
	r.changed = make(chan struct{})
	r.mu.Unlock()

	for i := len(ready) - 1; i >= 0; i-- {
		s, ok := ready[i].instance.(Stopper)
		if !ok {
			continue
		}
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping %s: %w", ready[i].name, err))
		}
	}

	logging.Info(subsystem, "Registry destroyed (%d ready services released)", len(ready))
	return errors.Join(errs...)
}
