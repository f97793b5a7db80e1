package portico

import "context"

// Deps is the dependency bag handed to a factory: every required Port of the
// adapter, already resolved, keyed by Port identity.
type Deps map[*Port]any

// Get returns the resolved instance for the given Port, or nil when the Port
// was not among the adapter's requirements.
func (d Deps) Get(port *Port) any {
	return d[port]
}

// Factory builds one instance of a capability from its resolved dependencies.
type Factory func(deps Deps) (any, error)

// Finalizer tears down an instance during disposal of its owning Container or
// Scope. The context carries the disposal deadline.
type Finalizer func(ctx context.Context, instance any) error

// Adapter is an immutable descriptor binding a Port to the factory that
// provides it, the Ports the factory requires, and a Lifetime. Adapters are
// never mutated after construction and outlive any Container built from them.
type Adapter struct {
	provides  *Port
	requires  []*Port
	lifetime  Lifetime
	factory   Factory
	finalizer Finalizer
}

// NewAdapter creates an Adapter. requires may be nil for leaf adapters and is
// copied, preserving order; finalizer may be nil when the instance needs no
// teardown.
func NewAdapter(provides *Port, requires []*Port, lifetime Lifetime, factory Factory, finalizer Finalizer) (*Adapter, error) {
	if provides == nil {
		return nil, ErrPortNil
	}
	if factory == nil {
		return nil, ErrFactoryNil
	}
	if !lifetime.IsValid() {
		return nil, LifetimeError{Value: lifetime}
	}
	for _, req := range requires {
		if req == nil {
			return nil, ErrPortNil
		}
	}

	reqs := make([]*Port, len(requires))
	copy(reqs, requires)

	return &Adapter{
		provides:  provides,
		requires:  reqs,
		lifetime:  lifetime,
		factory:   factory,
		finalizer: finalizer,
	}, nil
}

// MustAdapter is NewAdapter panicking on error, for static graph assembly.
func MustAdapter(provides *Port, requires []*Port, lifetime Lifetime, factory Factory, finalizer Finalizer) *Adapter {
	adapter, err := NewAdapter(provides, requires, lifetime, factory, finalizer)
	if err != nil {
		panic(err)
	}
	return adapter
}

// Provides returns the Port this adapter satisfies.
func (a *Adapter) Provides() *Port { return a.provides }

// Requires returns the adapter's dependency Ports in declaration order. The
// returned slice is a copy.
func (a *Adapter) Requires() []*Port {
	reqs := make([]*Port, len(a.requires))
	copy(reqs, a.requires)
	return reqs
}

// Lifetime returns the adapter's lifetime.
func (a *Adapter) Lifetime() Lifetime { return a.lifetime }
