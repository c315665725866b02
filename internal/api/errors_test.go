package api

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	err := NewRouteNotFoundError("enhanced-chat")
	assert.Equal(t, "route enhanced-chat not found", err.Error())

	custom := &NotFoundError{ResourceType: "service", ResourceName: "dias", Message: "no dias here"}
	assert.Equal(t, "no dias here", custom.Error())

	wrapped := fmt.Errorf("dispatch: %w", NewServiceNotFoundError("dias"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestTypedErrorHelpers(t *testing.T) {
	cause := errors.New("backend exploded")

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"rate limit", &RateLimitError{Available: 0, RetryAfter: time.Second}, IsRateLimited},
		{"circuit open", &CircuitOpenError{Failures: 5, RetryAt: time.Unix(0, 0)}, IsCircuitOpen},
		{"execution", &ExecutionError{RequestID: "r1", Err: cause}, IsExecutionError},
		{"initialization", &InitializationError{Service: "dias", Attempts: 2, Err: cause}, IsInitializationError},
		{"not ready", &ServiceNotReadyError{Service: "dias", State: StateFailed}, IsServiceNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))
			assert.False(t, tt.check(cause))
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestWrappingErrorsExposeCause(t *testing.T) {
	cause := errors.New("timeout")

	assert.ErrorIs(t, &ExecutionError{RequestID: "r1", Err: cause}, cause)
	assert.ErrorIs(t, &InitializationError{Service: "dias", Err: cause}, cause)
}
