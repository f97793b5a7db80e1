package portico

import (
	"errors"
	"fmt"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// Base errors meant to be matched with errors.Is. Typed errors below wrap
// these where a caller benefits from sentinel matching.

var (
	// Construction errors.
	ErrGraphNil         = errors.New("graph cannot be nil")
	ErrPortNil          = errors.New("port cannot be nil")
	ErrFactoryNil       = errors.New("factory cannot be nil")
	ErrAdapterNil       = errors.New("adapter cannot be nil")
	ErrDuplicateAdapter = errors.New("port already has an adapter")

	// Resolution errors.
	ErrAdapterNotFound = errors.New("no adapter provides the requested port")

	// Lifecycle errors.
	ErrDisposed = errors.New("container or scope has been disposed")
)

// Error is implemented by every typed error in this package. Code returns a
// stable machine-readable identifier, and IsProgrammingError distinguishes
// caller mistakes (wrong graph, use after dispose, cycles) from runtime
// failures surfaced by user factories and finalizers.
type Error interface {
	error
	Code() string
	IsProgrammingError() bool
}

var (
	_ Error = LifetimeError{}
	_ Error = CircularDependencyError{}
	_ Error = AdapterNotFoundError{}
	_ Error = ScopeRequiredError{}
	_ Error = DisposedScopeError{}
	_ Error = FactoryError{}
	_ Error = FactoryPanicError{}
	_ Error = TypeMismatchError{}
	_ Error = DisposalError{}
)

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid lifetime: %v", e.Value)
}

func (e LifetimeError) Code() string { return "INVALID_LIFETIME" }

func (e LifetimeError) IsProgrammingError() bool { return true }

// CircularDependencyError indicates that resolving a Port would require
// resolving itself. Chain holds the full resolution path in order, with the
// repeated port at both ends, e.g. ["A", "B", "A"].
type CircularDependencyError struct {
	Chain []string
}

func (e CircularDependencyError) Error() string {
	return "circular dependency detected: " + strings.Join(e.Chain, " -> ")
}

func (e CircularDependencyError) Code() string { return "CIRCULAR_DEPENDENCY" }

func (e CircularDependencyError) IsProgrammingError() bool { return true }

// AdapterNotFoundError indicates that a requested or required Port has no
// adapter in the graph. The runtime does not re-validate graph completeness,
// so a gap in an unvalidated graph surfaces as this error at resolution time.
type AdapterNotFoundError struct {
	PortName string
}

func (e AdapterNotFoundError) Error() string {
	return fmt.Sprintf("no adapter provides port %q", e.PortName)
}

func (e AdapterNotFoundError) Unwrap() error { return ErrAdapterNotFound }

func (e AdapterNotFoundError) Code() string { return "ADAPTER_NOT_FOUND" }

func (e AdapterNotFoundError) IsProgrammingError() bool { return true }

// ScopeRequiredError indicates a scoped-lifetime Port was resolved directly
// on the Container, which has no scope of its own.
type ScopeRequiredError struct {
	PortName string
}

func (e ScopeRequiredError) Error() string {
	return fmt.Sprintf("port %q has scoped lifetime and must be resolved from a scope, not the container", e.PortName)
}

func (e ScopeRequiredError) Code() string { return "SCOPE_REQUIRED" }

func (e ScopeRequiredError) IsProgrammingError() bool { return true }

// DisposedScopeError indicates a resolution or inspection was attempted after
// the owning Container or Scope was disposed.
type DisposedScopeError struct {
	PortName string // empty when the failed operation was not a resolution
}

func (e DisposedScopeError) Error() string {
	if e.PortName == "" {
		return "container or scope has been disposed"
	}
	return fmt.Sprintf("cannot resolve port %q: container or scope has been disposed", e.PortName)
}

func (e DisposedScopeError) Unwrap() error { return ErrDisposed }

func (e DisposedScopeError) Code() string { return "SCOPE_DISPOSED" }

func (e DisposedScopeError) IsProgrammingError() bool { return true }

// FactoryError wraps an error returned by a user factory. The failure aborts
// only its own resolution chain: cached instances are retained and later
// unrelated resolutions succeed.
type FactoryError struct {
	PortName string
	Cause    error
}

func (e FactoryError) Error() string {
	return fmt.Sprintf("factory for port %q failed: %v", e.PortName, e.Cause)
}

func (e FactoryError) Unwrap() error { return e.Cause }

func (e FactoryError) Code() string { return "FACTORY_FAILED" }

func (e FactoryError) IsProgrammingError() bool { return false }

// FactoryPanicError wraps a panic recovered from a user factory.
type FactoryPanicError struct {
	PortName string
	Value    any
	Stack    []byte
}

func (e FactoryPanicError) Error() string {
	return fmt.Sprintf("factory for port %q panicked: %v", e.PortName, e.Value)
}

func (e FactoryPanicError) Code() string { return "FACTORY_PANIC" }

func (e FactoryPanicError) IsProgrammingError() bool { return false }

// TypeMismatchError indicates a resolved instance did not match the type
// requested through the generic Resolve helper.
type TypeMismatchError struct {
	PortName string
	Expected string
	Actual   string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("port %q resolved to %s, not %s", e.PortName, e.Actual, e.Expected)
}

func (e TypeMismatchError) Code() string { return "TYPE_MISMATCH" }

func (e TypeMismatchError) IsProgrammingError() bool { return true }

// DisposalError aggregates every failure observed during a disposal pass.
// All finalizers in the batch run before the error is raised; the first
// failure never short-circuits the rest.
type DisposalError struct {
	Context string // "container", "scope", "memo-map"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s disposal failed with %d errors:", e.Context, len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  %d. %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the individual failures so errors.Is and errors.As traverse
// every cause.
func (e DisposalError) Unwrap() []error { return e.Errors }

func (e DisposalError) Code() string { return "DISPOSAL_FAILED" }

func (e DisposalError) IsProgrammingError() bool { return false }

// flattenDisposal appends err to errs, splicing nested DisposalError causes
// so a cascade reports one flat list.
func flattenDisposal(errs []error, err error) []error {
	if err == nil {
		return errs
	}
	var agg DisposalError
	if errors.As(err, &agg) {
		return append(errs, agg.Errors...)
	}
	return append(errs, err)
}
