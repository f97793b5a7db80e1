package portico

import "runtime/debug"

// resolutionContext guards one external Resolve call tree against circular
// resolution paths. It lives only for the duration of that call and is never
// shared between calls, so legitimate diamond dependencies — two siblings
// requiring the same leaf within one tree — pass once the leaf's first
// resolution has exited the stack.
type resolutionContext struct {
	stack  []*Port
	active map[*Port]struct{}
}

func newResolutionContext() *resolutionContext {
	return &resolutionContext{active: make(map[*Port]struct{})}
}

// enter pushes port onto the active path, failing with a
// CircularDependencyError when the port is already on it. The error chain
// carries the full path with the repeated port at both ends.
func (rc *resolutionContext) enter(port *Port) error {
	if _, onPath := rc.active[port]; onPath {
		full := append(rc.path(), port.Name())
		return CircularDependencyError{Chain: cycleChain(full)}
	}

	rc.stack = append(rc.stack, port)
	rc.active[port] = struct{}{}
	return nil
}

// exit removes port from the active path once its factory and every nested
// resolution have finished, successfully or not.
func (rc *resolutionContext) exit(port *Port) {
	delete(rc.active, port)
	if n := len(rc.stack); n > 0 && rc.stack[n-1] == port {
		rc.stack = rc.stack[:n-1]
	}
}

// path returns a copied snapshot of the active resolution path, safe to
// embed in error payloads.
func (rc *resolutionContext) path() []string {
	out := make([]string, len(rc.stack))
	for i, p := range rc.stack {
		out[i] = p.Name()
	}
	return out
}

// resolver is the internal driver seam shared by Container and Scope: it
// decides which memo map serves an adapter's lifetime at this node.
type resolver interface {
	// registry returns the graph the node resolves against.
	registry() *Graph

	// memoFor returns the memo map caching instances of the given lifetime
	// at this node, or an error when the lifetime cannot be served here
	// (scoped at the container root).
	memoFor(adapter *Adapter) (*memoMap, error)
}

// resolvePort is the recursive resolution engine. One resolutionContext
// spans the whole external call; node stays fixed for the entire tree, so a
// singleton requested from a deep scope still lands in the root map via that
// node's memoFor routing.
func resolvePort(node resolver, port *Port, rc *resolutionContext) (any, error) {
	if port == nil {
		return nil, ErrPortNil
	}

	adapter, ok := node.registry().Adapter(port)
	if !ok {
		return nil, AdapterNotFoundError{PortName: port.Name()}
	}

	if err := rc.enter(port); err != nil {
		return nil, err
	}
	defer rc.exit(port)

	build := func() (any, error) {
		deps := make(Deps, len(adapter.requires))
		for _, req := range adapter.requires {
			instance, err := resolvePort(node, req, rc)
			if err != nil {
				return nil, err
			}
			deps[req] = instance
		}
		return invokeFactory(adapter, deps)
	}

	if adapter.lifetime == Request {
		return build()
	}

	memo, err := node.memoFor(adapter)
	if err != nil {
		return nil, err
	}
	return memo.getOrElseMemoize(port, build, adapter.finalizer)
}

// invokeFactory runs a user factory, wrapping returned errors and recovered
// panics so a misbehaving factory aborts only its own resolution chain.
func invokeFactory(adapter *Adapter, deps Deps) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = FactoryPanicError{
				PortName: adapter.provides.Name(),
				Value:    r,
				Stack:    debug.Stack(),
			}
		}
	}()

	instance, err = adapter.factory(deps)
	if err != nil {
		return nil, FactoryError{PortName: adapter.provides.Name(), Cause: err}
	}
	return instance, nil
}
