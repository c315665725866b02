package api

import (
	"errors"
	"fmt"
	"time"
)

// NotFoundError represents a resource not found error with contextual information.
// It is returned for programming errors such as routing to a route that was never
// registered or force-initializing an unknown service.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "service", "route")
	ResourceType string

	// ResourceName is the specific identifier of the resource that was not found
	ResourceName string

	// Message provides a custom error message if the default format is insufficient
	Message string
}

// Error implements the error interface for NotFoundError.
// Returns either the custom message if provided, or a formatted default message
// using the resource type and name.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
//
// Args:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error is or wraps a NotFoundError, false otherwise
//
// Example:
//
//	resp, err := r.RouteRequest(ctx, "unknown", handler)
//	if api.IsNotFound(err) {
//	    // the route table is misconfigured
//	}
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified resource type and name.
//
// Args:
//   - resourceType: The category of resource (e.g., "service", "route")
//   - resourceName: The specific identifier of the resource
//
// Returns:
//   - *NotFoundError: A new NotFoundError instance
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

var (
	// NewServiceNotFoundError creates a service not found error.
	NewServiceNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("service", name)
	}

	// NewRouteNotFoundError creates a route not found error.
	NewRouteNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("route", name)
	}
)

// RateLimitError is returned by the execution orchestrator when the token
// bucket cannot admit a request. Nothing else happens for a rejected request:
// the breaker is not consulted and the backend is not invoked.
type RateLimitError struct {
	// Available is the whole number of tokens left at rejection time.
	Available int
	// RetryAfter estimates when the next token becomes available.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (%d tokens available, retry after %s)", e.Available, e.RetryAfter)
}

// IsRateLimited reports whether err is or wraps a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// CircuitOpenError is returned when the circuit breaker rejects a request
// without invoking the backend.
type CircuitOpenError struct {
	// Failures is the consecutive failure count that tripped the breaker.
	Failures int
	// RetryAt is the earliest time a trial request will be admitted.
	RetryAt time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is open after %d consecutive failures; next trial at %s",
		e.Failures, e.RetryAt.Format(time.RFC3339))
}

// IsCircuitOpen reports whether err is or wraps a CircuitOpenError.
func IsCircuitOpen(err error) bool {
	var co *CircuitOpenError
	return errors.As(err, &co)
}

// ExecutionError wraps a failure reported by the execution backend.
type ExecutionError struct {
	RequestID string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of request %s failed: %v", e.RequestID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsExecutionError reports whether err is or wraps an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

// InitializationError records a failed factory invocation for a service.
type InitializationError struct {
	Service  string
	Attempts int
	Err      error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization of service %s failed (attempt %d): %v", e.Service, e.Attempts, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// IsInitializationError reports whether err is or wraps an InitializationError.
func IsInitializationError(err error) bool {
	var ie *InitializationError
	return errors.As(err, &ie)
}

// ServiceNotReadyError is returned by route handlers when the instance they
// were given is unusable, which makes the router continue its fallback walk.
type ServiceNotReadyError struct {
	Service string
	State   ServiceState
}

func (e *ServiceNotReadyError) Error() string {
	return fmt.Sprintf("service %s is not ready (state: %s)", e.Service, e.State)
}

// IsServiceNotReady reports whether err is or wraps a ServiceNotReadyError.
func IsServiceNotReady(err error) bool {
	var snr *ServiceNotReadyError
	return errors.As(err, &snr)
}
