package portico

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultDisposalTimeout bounds Close when no ContainerOptions are given.
const DefaultDisposalTimeout = 30 * time.Second

// ContainerOptions configures a Container.
type ContainerOptions struct {
	// DisposalTimeout caps the total time Close allows the disposal
	// cascade. Zero means DefaultDisposalTimeout. Dispose ignores it and
	// uses the caller's context instead.
	DisposalTimeout time.Duration
}

// Container is the root of the resolution tree. It holds the adapter
// registry and the one singleton memo map every scope converges on, creates
// scopes, and drives the disposal cascade at shutdown.
//
// A Container is safe for concurrent use.
type Container struct {
	id         string
	graph      *Graph
	singletons *memoMap
	options    ContainerOptions

	disposed int32

	childMu sync.RWMutex
	scopes  []*Scope
}

// New creates a Container over the given graph. No factories run eagerly;
// the first resolution of each Port pays for its construction. opts may be
// nil for defaults.
func New(graph *Graph, opts *ContainerOptions) (*Container, error) {
	if graph == nil {
		return nil, ErrGraphNil
	}

	options := ContainerOptions{}
	if opts != nil {
		options = *opts
	}
	if options.DisposalTimeout <= 0 {
		options.DisposalTimeout = DefaultDisposalTimeout
	}

	return &Container{
		id:         uuid.NewString(),
		graph:      graph,
		singletons: newMemoMap(),
		options:    options,
	}, nil
}

// ID returns the unique identifier of this container.
func (c *Container) ID() string { return c.id }

// IsDisposed reports whether Dispose or Close has run.
func (c *Container) IsDisposed() bool {
	return atomic.LoadInt32(&c.disposed) == 1
}

// Resolve returns the instance provided for port. Singleton adapters resolve
// into and out of the container's root memo map; scoped adapters fail with a
// ScopeRequiredError because the root has no scope of its own; request
// adapters run their factory fresh on every call.
func (c *Container) Resolve(port *Port) (any, error) {
	if c.IsDisposed() {
		return nil, DisposedScopeError{PortName: port.Name()}
	}
	return resolvePort(c, port, newResolutionContext())
}

// CreateScope opens a new Scope parented to this container and registers it
// for cascade disposal.
func (c *Container) CreateScope() (*Scope, error) {
	if c.IsDisposed() {
		return nil, DisposedScopeError{}
	}

	scope := newScope(c, nil)

	c.childMu.Lock()
	defer c.childMu.Unlock()
	c.scopes = append(c.scopes, scope)

	return scope, nil
}

// Dispose tears the container down: every live child scope first, deepest
// first, then the container's own singletons in reverse creation order.
// Every finalizer in the cascade is attempted; all failures are aggregated
// into a single DisposalError. A second call is a no-op returning nil.
func (c *Container) Dispose(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&c.disposed, 0, 1) {
		return nil
	}

	c.childMu.RLock()
	children := make([]*Scope, len(c.scopes))
	copy(children, c.scopes)
	c.childMu.RUnlock()

	var errs []error
	for _, child := range children {
		errs = flattenDisposal(errs, child.Dispose(ctx))
	}
	errs = flattenDisposal(errs, c.singletons.dispose(ctx))

	if len(errs) > 0 {
		return DisposalError{Context: "container", Errors: errs}
	}
	return nil
}

// Close disposes the container under the configured DisposalTimeout. It
// implements io.Closer-style teardown for defer sites that have no context
// at hand.
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.options.DisposalTimeout)
	defer cancel()
	return c.Dispose(ctx)
}

// registry implements resolver.
func (c *Container) registry() *Graph { return c.graph }

// memoFor implements resolver: the container serves singletons from its root
// map and has no home for scoped instances.
func (c *Container) memoFor(adapter *Adapter) (*memoMap, error) {
	switch adapter.lifetime {
	case Singleton:
		return c.singletons, nil
	case Scoped:
		return nil, ScopeRequiredError{PortName: adapter.provides.Name()}
	default:
		return nil, LifetimeError{Value: adapter.lifetime}
	}
}
