package services

import (
	"context"

	"switchyard/internal/api"
)

// Re-export the lifecycle states so callers of this package rarely need to import api.
type ServiceState = api.ServiceState

const (
	StateUninitialized = api.StateUninitialized
	StateInitializing  = api.StateInitializing
	StateReady         = api.StateReady
	StateFailed        = api.StateFailed
)

// Factory builds a service instance. It is invoked lazily, at most once per
// initialization attempt and never twice concurrently for the same service.
// The context carries the registry's init timeout.
type Factory func(ctx context.Context) (any, error)

// Stopper is implemented by instances that hold resources. Destroy calls Stop
// on every ready instance that implements it.
type Stopper interface {
	Stop(ctx context.Context) error
}

// StateChangeCallback is called after a service changes state. It is invoked
// outside the registry lock, so it may call back into the registry.
type StateChangeCallback func(name string, oldState, newState ServiceState, err error)
