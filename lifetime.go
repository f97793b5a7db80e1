package portico

import (
	"encoding/json"
	"fmt"
)

// Lifetime specifies when an adapter's factory runs and where the resulting
// instance is cached.
type Lifetime int

const (
	// Singleton specifies that a single instance is created per Container.
	// The instance is built on first resolution, cached in the Container's
	// root memo map, and shared by every scope in the tree.
	Singleton Lifetime = iota

	// Scoped specifies that one instance is created per Scope. Sibling and
	// nested scopes each get their own instance, and the Container itself
	// rejects scoped resolutions with a ScopeRequiredError.
	Scoped

	// Request specifies that the factory runs on every resolution. Request
	// instances are never cached and never tracked for disposal.
	Request
)

// String returns the string representation of the Lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Request:
		return "request"
	default:
		return fmt.Sprintf("unknown(%d)", int(l))
	}
}

// IsValid checks if the lifetime is one of the defined values.
func (l Lifetime) IsValid() bool {
	return l >= Singleton && l <= Request
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, LifetimeError{Value: int(l)}
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "singleton", "Singleton":
		*l = Singleton
	case "scoped", "Scoped":
		*l = Scoped
	case "request", "Request":
		*l = Request
	default:
		return LifetimeError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Lifetime) MarshalJSON() ([]byte, error) {
	if !l.IsValid() {
		return nil, LifetimeError{Value: int(l)}
	}
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lifetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return l.UnmarshalText([]byte(s))
}
