package portico

import (
	"fmt"
	"sort"
)

// Graph is an immutable collection of Adapters, at most one per Port
// identity. A Graph is assumed to be complete — every required Port provided
// by exactly one adapter — and the runtime does not re-check that; a gap in
// an unvalidated graph surfaces as an AdapterNotFoundError at resolution
// time. Validate offers the completeness check as an explicit opt-in at
// assembly time.
type Graph struct {
	adapters map[*Port]*Adapter
	byName   map[string]*Adapter
	ordered  []*Adapter // registration order, for deterministic iteration
}

// NewGraph creates a Graph from the given adapters. It rejects nil adapters
// and two adapters providing the same Port identity; it does not check
// completeness.
func NewGraph(adapters ...*Adapter) (*Graph, error) {
	g := &Graph{
		adapters: make(map[*Port]*Adapter, len(adapters)),
		byName:   make(map[string]*Adapter, len(adapters)),
		ordered:  make([]*Adapter, 0, len(adapters)),
	}

	for _, adapter := range adapters {
		if adapter == nil {
			return nil, ErrAdapterNil
		}
		if _, exists := g.adapters[adapter.provides]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAdapter, adapter.provides.Name())
		}
		g.adapters[adapter.provides] = adapter
		g.byName[adapter.provides.Name()] = adapter
		g.ordered = append(g.ordered, adapter)
	}

	return g, nil
}

// Adapter returns the adapter providing the given Port.
func (g *Graph) Adapter(port *Port) (*Adapter, bool) {
	adapter, ok := g.adapters[port]
	return adapter, ok
}

// AdapterByName returns the adapter whose provided Port carries the given
// diagnostic name. Names are not guaranteed unique; when two Ports share a
// name the later-registered adapter wins. Identity lookup via Adapter is
// authoritative.
func (g *Graph) AdapterByName(name string) (*Adapter, bool) {
	adapter, ok := g.byName[name]
	return adapter, ok
}

// Len returns the number of adapters in the graph.
func (g *Graph) Len() int { return len(g.ordered) }

// Adapters returns the graph's adapters in registration order. The returned
// slice is a copy.
func (g *Graph) Adapters() []*Adapter {
	out := make([]*Adapter, len(g.ordered))
	copy(out, g.ordered)
	return out
}

// PortNames returns the diagnostic names of all provided Ports, sorted
// alphabetically.
func (g *Graph) PortNames() []string {
	names := make([]string, 0, len(g.ordered))
	for _, adapter := range g.ordered {
		names = append(names, adapter.provides.Name())
	}
	sort.Strings(names)
	return names
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// Validate performs the optional closure check over the graph: every
// required Port must have an adapter, and the static dependency relation
// must be acyclic. Containers never call this; a graph-builder collaborator
// may, to fail at assembly time instead of first resolution.
func (g *Graph) Validate() error {
	states := make(map[*Port]visitState, len(g.adapters))

	var visit func(port *Port, chain []string) error
	visit = func(port *Port, chain []string) error {
		chain = append(chain, port.Name())

		switch states[port] {
		case visiting:
			return CircularDependencyError{Chain: cycleChain(chain)}
		case visited:
			return nil
		}

		adapter, ok := g.adapters[port]
		if !ok {
			return AdapterNotFoundError{PortName: port.Name()}
		}

		states[port] = visiting
		for _, req := range adapter.requires {
			if err := visit(req, chain); err != nil {
				return err
			}
		}
		states[port] = visited
		return nil
	}

	for _, adapter := range g.ordered {
		if err := visit(adapter.provides, nil); err != nil {
			return err
		}
	}
	return nil
}

// cycleChain trims chain to start at the repeated tail element, so the
// reported path reads A -> B -> A rather than Root -> A -> B -> A.
func cycleChain(chain []string) []string {
	last := chain[len(chain)-1]
	for i, name := range chain[:len(chain)-1] {
		if name == last {
			out := make([]string, len(chain)-i)
			copy(out, chain[i:])
			return out
		}
	}
	out := make([]string, len(chain))
	copy(out, chain)
	return out
}
