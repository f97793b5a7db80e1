// Package portico is a ports-and-adapters dependency injection runtime.
//
// A [Port] is an opaque, identity-compared token naming a capability. An
// [Adapter] binds a Port to a factory, the Ports the factory needs, and a
// [Lifetime]. Adapters are assembled into an immutable [Graph], and a
// [Container] resolves instances from that graph on demand:
//
//	configPort := portico.NewPort("config")
//	loggerPort := portico.NewPort("logger")
//
//	graph, err := portico.NewGraph(
//		portico.MustAdapter(configPort, nil, portico.Singleton,
//			func(portico.Deps) (any, error) { return loadConfig() }, nil),
//		portico.MustAdapter(loggerPort, []*portico.Port{configPort}, portico.Singleton,
//			func(deps portico.Deps) (any, error) {
//				return newLogger(deps.Get(configPort).(*Config)), nil
//			}, nil),
//	)
//	if err != nil {
//		return err
//	}
//
//	container, err := portico.New(graph, nil)
//	if err != nil {
//		return err
//	}
//	defer container.Close()
//
//	logger, err := portico.Resolve[*Logger](container, loggerPort)
//
// # Lifetimes
//
// [Singleton] adapters build one instance per Container, shared by every
// scope. [Scoped] adapters build one instance per [Scope]; sibling scopes
// never share, and resolving a scoped Port directly on the Container fails
// with a [ScopeRequiredError]. [Request] adapters run their factory on every
// resolution and are never cached.
//
// # Scopes and disposal
//
// [Container.CreateScope] opens a nested resolution boundary; scopes nest
// arbitrarily. Closing a Container or Scope first closes its child scopes,
// deepest first, then runs the finalizers of its own instances in reverse
// creation order. Every finalizer is attempted even when earlier ones fail;
// failures are aggregated into a single [DisposalError]. Close is idempotent.
//
// # Introspection
//
// [Inspector] projects read-only, serializable snapshots of a Container's
// resolution state for external tooling. It never mutates the container and
// fails once the container is disposed.
package portico
