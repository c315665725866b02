package config

import (
	"fmt"
	"slices"
	"strings"

	"switchyard/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the configuration for values the components cannot run with.
// It returns ValidationErrors, or nil when the configuration is usable.
func (c SwitchyardConfig) Validate() error {
	var errs ValidationErrors

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs.Add("server.port", "must be between 0 and 65535", c.Server.Port)
	}
	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		errs.Add("logging.level", "must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch logging.Format(c.Logging.Format) {
	case logging.FormatText, logging.FormatJSON, "":
	default:
		errs.Add("logging.format", "must be text or json", c.Logging.Format)
	}

	if c.Registry.InitTimeout <= 0 {
		errs.Add("registry.initTimeout", "must be positive", c.Registry.InitTimeout)
	}
	if c.Registry.RetryInterval <= 0 {
		errs.Add("registry.retryInterval", "must be positive", c.Registry.RetryInterval)
	}
	if c.Registry.MaxRetryInterval < c.Registry.RetryInterval {
		errs.Add("registry.maxRetryInterval", "must not be shorter than retryInterval", c.Registry.MaxRetryInterval)
	}

	if c.Orchestrator.RateLimit.Capacity <= 0 {
		errs.Add("orchestrator.rateLimit.capacity", "must be positive", c.Orchestrator.RateLimit.Capacity)
	}
	if c.Orchestrator.RateLimit.RefillRate < 0 {
		errs.Add("orchestrator.rateLimit.refillRate", "must not be negative", c.Orchestrator.RateLimit.RefillRate)
	}
	if c.Orchestrator.CircuitBreaker.FailureThreshold <= 0 {
		errs.Add("orchestrator.circuitBreaker.failureThreshold", "must be positive", c.Orchestrator.CircuitBreaker.FailureThreshold)
	}
	if c.Orchestrator.CircuitBreaker.RecoveryTimeout <= 0 {
		errs.Add("orchestrator.circuitBreaker.recoveryTimeout", "must be positive", c.Orchestrator.CircuitBreaker.RecoveryTimeout)
	}
	if c.Orchestrator.Backend != "" && c.Orchestrator.Backend != BackendSimulated {
		errs.Add("orchestrator.backend", "unknown backend", c.Orchestrator.Backend)
	}
	if c.Orchestrator.ExecutionTimeout < 0 {
		errs.Add("orchestrator.executionTimeout", "must not be negative", c.Orchestrator.ExecutionTimeout)
	}

	if c.Cache.MaxSize <= 0 {
		errs.Add("cache.maxSize", "must be positive", c.Cache.MaxSize)
	}
	if c.Cache.DefaultTTL <= 0 {
		errs.Add("cache.defaultTTL", "must be positive", c.Cache.DefaultTTL)
	}

	validateRoutes(c.Routes, &errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateRoutes(routes []RouteDefinition, errs *ValidationErrors) {
	seen := make(map[string]bool, len(routes))
	for i, r := range routes {
		field := fmt.Sprintf("routes[%d]", i)
		if strings.TrimSpace(r.Name) == "" {
			errs.Add(field+".name", "is required for route")
			continue
		}
		if seen[r.Name] {
			errs.Add(field+".name", "duplicate route name", r.Name)
		}
		seen[r.Name] = true

		if r.Primary == "" {
			errs.Add(field+".primary", "is required for route", r.Name)
		} else if !slices.Contains(KnownServices, r.Primary) {
			errs.Add(field+".primary", "references unknown service", r.Primary)
		}
		for _, name := range append(slices.Clone(r.Fallbacks), r.Requires...) {
			if !slices.Contains(KnownServices, name) {
				errs.Add(field, "references unknown service", name)
			}
		}
	}
}
