package portico

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Scope is a nested resolution boundary. Scoped-lifetime adapters memoize
// one instance per Scope; singleton resolutions pass through to the root
// Container so the whole tree converges on one instance; request adapters
// run fresh here exactly as they do at the root.
//
// Scopes nest arbitrarily and are disposed explicitly or by their parent's
// cascade. A Scope is safe for concurrent use.
type Scope struct {
	id        string
	container *Container
	parent    *Scope // nil when parented directly to the Container
	memo      *memoMap

	disposed int32

	childMu sync.RWMutex
	scopes  []*Scope
}

// newScope wires a scope under the container, forking the parent's memo map
// so the child starts with an empty scoped cache and a reset order counter.
func newScope(container *Container, parent *Scope) *Scope {
	base := container.singletons
	if parent != nil {
		base = parent.memo
	}
	return &Scope{
		id:        uuid.NewString(),
		container: container,
		parent:    parent,
		memo:      base.fork(),
	}
}

// ID returns the unique identifier of this scope.
func (s *Scope) ID() string { return s.id }

// Parent returns the parent scope, or nil when this scope hangs directly off
// the Container.
func (s *Scope) Parent() *Scope { return s.parent }

// Container returns the root Container of this scope's tree.
func (s *Scope) Container() *Container { return s.container }

// IsDisposed reports whether Dispose or Close has run.
func (s *Scope) IsDisposed() bool {
	return atomic.LoadInt32(&s.disposed) == 1
}

// Resolve returns the instance provided for port within this scope.
func (s *Scope) Resolve(port *Port) (any, error) {
	if s.IsDisposed() {
		return nil, DisposedScopeError{PortName: port.Name()}
	}
	return resolvePort(s, port, newResolutionContext())
}

// CreateScope opens a child scope and registers it for cascade disposal.
func (s *Scope) CreateScope() (*Scope, error) {
	if s.IsDisposed() {
		return nil, DisposedScopeError{}
	}

	child := newScope(s.container, s)

	s.childMu.Lock()
	defer s.childMu.Unlock()
	s.scopes = append(s.scopes, child)

	return child, nil
}

// Dispose tears the scope down: all of its own child scopes first, deepest
// first, then its own scoped instances in reverse creation order, with every
// failure aggregated into one DisposalError. A second call is a no-op.
// Already-disposed children stay registered with their parent so inspection
// can still report them.
func (s *Scope) Dispose(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.disposed, 0, 1) {
		return nil
	}

	s.childMu.RLock()
	children := make([]*Scope, len(s.scopes))
	copy(children, s.scopes)
	s.childMu.RUnlock()

	var errs []error
	for _, child := range children {
		errs = flattenDisposal(errs, child.Dispose(ctx))
	}
	errs = flattenDisposal(errs, s.memo.dispose(ctx))

	if len(errs) > 0 {
		return DisposalError{Context: "scope", Errors: errs}
	}
	return nil
}

// Close disposes the scope under the container's DisposalTimeout.
func (s *Scope) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.container.options.DisposalTimeout)
	defer cancel()
	return s.Dispose(ctx)
}

// registry implements resolver.
func (s *Scope) registry() *Graph { return s.container.graph }

// memoFor implements resolver: singletons delegate to the root container's
// map, scoped instances live in this scope's own map only. Scoped caches are
// never inherited across scopes; only the singleton cache is shared.
func (s *Scope) memoFor(adapter *Adapter) (*memoMap, error) {
	switch adapter.lifetime {
	case Singleton:
		return s.container.singletons, nil
	case Scoped:
		return s.memo, nil
	default:
		return nil, LifetimeError{Value: adapter.lifetime}
	}
}
