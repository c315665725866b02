// Package services provides the lazily initializing service registry.
//
// # Core Concepts
//
// Factory: a function that builds a service instance. Registering a factory
// performs no work; the registry invokes it when a service is first forced,
// when Start runs with eager initialization, or when the background retry
// loop decides a failed service is due.
//
// ServiceState: every service moves through
//
//	uninitialized -> initializing -> ready
//	initializing  -> failed -> initializing
//
// and stays ready once it gets there.
//
// Readiness lookups (IsServiceReady, GetService) never block. Initialization
// of one service is never run twice concurrently: callers of ForceInitialize
// that arrive while an attempt is in flight wait for that attempt's outcome.
//
// # Retry
//
// Failed services are retried from a background loop. The delay before the
// next attempt grows exponentially per service and is reset on success.
//
// # Notification
//
// Changed returns a channel closed on the next state transition, which lets
// callers wait for readiness without polling. OnStateChange registers
// callbacks invoked outside the registry lock after every transition.
package services
