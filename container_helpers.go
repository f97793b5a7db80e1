package portico

import "fmt"

// Resolver is the resolution contract shared by Container and Scope.
type Resolver interface {
	// Resolve returns the instance provided for port.
	Resolve(port *Port) (any, error)

	// CreateScope opens a child resolution boundary.
	CreateScope() (*Scope, error)

	// IsDisposed reports whether the node has been torn down.
	IsDisposed() bool
}

var (
	_ Resolver = (*Container)(nil)
	_ Resolver = (*Scope)(nil)
)

// Resolve is a generic helper that resolves port and asserts the instance to
// type T.
func Resolve[T any](r Resolver, port *Port) (T, error) {
	var zero T

	instance, err := r.Resolve(port)
	if err != nil {
		return zero, err
	}

	result, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{
			PortName: port.Name(),
			Expected: fmt.Sprintf("%T", zero),
			Actual:   fmt.Sprintf("%T", instance),
		}
	}
	return result, nil
}

// MustResolve resolves port as type T and panics on error.
func MustResolve[T any](r Resolver, port *Port) T {
	result, err := Resolve[T](r, port)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", port, err))
	}
	return result
}
