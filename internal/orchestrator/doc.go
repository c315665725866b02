// Package orchestrator executes structured requests against a pluggable
// backend behind admission control.
//
// Every call to Execute goes through the same steps:
//
//  1. Token bucket admission. The bucket refills lazily from elapsed time;
//     a request that finds no whole token fails with *api.RateLimitError.
//  2. Circuit breaker. After FailureThreshold consecutive backend failures
//     the circuit opens and requests fail with *api.CircuitOpenError
//     without reaching the backend. Once RecoveryTimeout has passed since
//     the last failure a single trial request is admitted.
//  3. Persona selection. An explicit persona flag wins; otherwise the
//     command table supplies a default which keywords in the free-text
//     context may refine (security, then performance, backend, frontend
//     and devops).
//  4. Capability selection. Explicit capability flags, the All and None
//     flags, or the union of the command and persona tables. The result is
//     always limited to the configured capabilities.
//  5. Tier selection (premium, standard or light).
//  6. Delegation to the Backend, optionally bounded by ExecutionTimeout.
//
// Backend failures are recorded against the breaker and returned as
// *api.ExecutionError so that the router can try a fallback service.
//
// SimulatedBackend is the in-tree backend. It returns deterministic output
// and is what the serve command wires unless another backend is injected.
package orchestrator
