package portico

import (
	"sort"
	"time"
)

// ResolveState is the tri-state answer of Inspector.IsResolved.
type ResolveState string

const (
	// StateResolved means the port's instance exists in the root memo map.
	StateResolved ResolveState = "resolved"
	// StateUnresolved means no instance has been built yet, or the port has
	// request lifetime and is never cached.
	StateUnresolved ResolveState = "unresolved"
	// StateScopeRequired means the port has scoped lifetime and cannot be
	// resolved outside a scope at all.
	StateScopeRequired ResolveState = "scope-required"
)

// PortStatus describes one adapter's resolution state in a Snapshot.
// ResolvedAt and ResolutionOrder are meaningful only when IsResolved is
// true; ResolutionOrder is -1 otherwise.
type PortStatus struct {
	PortName        string    `json:"portName"`
	Lifetime        Lifetime  `json:"lifetime"`
	IsResolved      bool      `json:"isResolved"`
	ResolvedAt      time.Time `json:"resolvedAt,omitzero"`
	ResolutionOrder int       `json:"resolutionOrder"`
}

// ScopeStatus is the lifecycle state of a node in the scope tree.
type ScopeStatus string

const (
	ScopeActive   ScopeStatus = "active"
	ScopeDisposed ScopeStatus = "disposed"
)

// ScopeNode is one node of the scope tree. The root node counts every
// adapter in the graph; scope nodes count only scoped-lifetime adapters,
// since those are the only ones a scope can own.
type ScopeNode struct {
	ID            string       `json:"id"`
	Status        ScopeStatus  `json:"status"`
	TotalCount    int          `json:"totalCount"`
	ResolvedCount int          `json:"resolvedCount"`
	Children      []*ScopeNode `json:"children"`
}

// Snapshot is a frozen, serializable projection of a Container's state.
type Snapshot struct {
	IsDisposed bool         `json:"isDisposed"`
	Singletons []PortStatus `json:"singletons"`
	Scopes     *ScopeNode   `json:"scopes"`
}

// Inspector is a read-only projection over a Container for external tooling.
// It never mutates container state, every value it returns is a copy, and
// every operation fails with a DisposedScopeError once the container is
// disposed.
type Inspector struct {
	container *Container
}

// NewInspector creates an Inspector over the given container.
func NewInspector(container *Container) *Inspector {
	return &Inspector{container: container}
}

func (in *Inspector) guard() error {
	if in.container.IsDisposed() {
		return DisposedScopeError{}
	}
	return nil
}

// Snapshot returns the container's full resolution state: one PortStatus per
// adapter, sorted by port name, plus the scope tree.
func (in *Inspector) Snapshot() (*Snapshot, error) {
	if err := in.guard(); err != nil {
		return nil, err
	}

	resolved := make(map[*Port]entryStatus)
	for _, status := range in.container.singletons.snapshotEntries() {
		resolved[status.port] = status
	}

	statuses := make([]PortStatus, 0, in.container.graph.Len())
	for _, adapter := range in.container.graph.Adapters() {
		status := PortStatus{
			PortName:        adapter.provides.Name(),
			Lifetime:        adapter.lifetime,
			ResolutionOrder: -1,
		}
		if entry, ok := resolved[adapter.provides]; ok {
			status.IsResolved = true
			status.ResolvedAt = entry.resolvedAt
			status.ResolutionOrder = entry.resolutionOrder
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].PortName < statuses[j].PortName
	})

	tree, err := in.ScopeTree()
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		IsDisposed: in.container.IsDisposed(),
		Singletons: statuses,
		Scopes:     tree,
	}, nil
}

// ListPorts returns the diagnostic names of every provided port, sorted
// alphabetically.
func (in *Inspector) ListPorts() ([]string, error) {
	if err := in.guard(); err != nil {
		return nil, err
	}
	return in.container.graph.PortNames(), nil
}

// IsResolved reports the resolution state of the named port at the
// container root: StateResolved when its singleton instance exists,
// StateScopeRequired for scoped-lifetime ports, StateUnresolved otherwise.
// Unknown port names fail with an AdapterNotFoundError.
func (in *Inspector) IsResolved(portName string) (ResolveState, error) {
	if err := in.guard(); err != nil {
		return "", err
	}

	adapter, ok := in.container.graph.AdapterByName(portName)
	if !ok {
		return "", AdapterNotFoundError{PortName: portName}
	}

	switch adapter.lifetime {
	case Scoped:
		return StateScopeRequired, nil
	case Singleton:
		if in.container.singletons.has(adapter.provides) {
			return StateResolved, nil
		}
	}
	return StateUnresolved, nil
}

// ScopeTree returns the container's scope hierarchy. Disposed scopes remain
// in the tree with status "disposed" until the container itself goes away.
func (in *Inspector) ScopeTree() (*ScopeNode, error) {
	if err := in.guard(); err != nil {
		return nil, err
	}

	scopedTotal := 0
	for _, adapter := range in.container.graph.Adapters() {
		if adapter.lifetime == Scoped {
			scopedTotal++
		}
	}

	in.container.childMu.RLock()
	children := make([]*Scope, len(in.container.scopes))
	copy(children, in.container.scopes)
	in.container.childMu.RUnlock()

	root := &ScopeNode{
		ID:            in.container.id,
		Status:        ScopeActive,
		TotalCount:    in.container.graph.Len(),
		ResolvedCount: len(in.container.singletons.snapshotEntries()),
		Children:      make([]*ScopeNode, 0, len(children)),
	}
	for _, child := range children {
		root.Children = append(root.Children, scopeNode(child, scopedTotal))
	}
	return root, nil
}

func scopeNode(s *Scope, scopedTotal int) *ScopeNode {
	status := ScopeActive
	if s.IsDisposed() {
		status = ScopeDisposed
	}

	s.childMu.RLock()
	children := make([]*Scope, len(s.scopes))
	copy(children, s.scopes)
	s.childMu.RUnlock()

	node := &ScopeNode{
		ID:            s.id,
		Status:        status,
		TotalCount:    scopedTotal,
		ResolvedCount: len(s.memo.snapshotEntries()),
		Children:      make([]*ScopeNode, 0, len(children)),
	}
	for _, child := range children {
		node.Children = append(node.Children, scopeNode(child, scopedTotal))
	}
	return node
}
