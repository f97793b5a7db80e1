package portico

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memoEntry records one memoized instance together with the metadata the
// disposal engine and the Inspector need.
type memoEntry struct {
	instance        any
	resolvedAt      time.Time
	resolutionOrder int
	finalizer       Finalizer
}

// memoMap is the per-Container/per-Scope instance cache. Entries carry a
// local monotonic order number so disposal can run in strict reverse
// creation order. A forked child map reads through to its ancestors for
// lookup and has, but memoization is strictly local: a child never writes
// into its parent, and getOrElseMemoize never returns an ancestor's entry.
type memoMap struct {
	mu       sync.Mutex
	entries  map[*Port]*memoEntry
	order    []*Port // creation order of local entries
	inflight map[*Port]*inflightBuild
	parent   *memoMap
	counter  int
	disposed bool
}

// inflightBuild lets concurrent resolutions of one Port wait for the single
// factory run that is already underway instead of racing it.
type inflightBuild struct {
	done     chan struct{}
	instance any
	err      error
}

func newMemoMap() *memoMap {
	return &memoMap{
		entries:  make(map[*Port]*memoEntry),
		inflight: make(map[*Port]*inflightBuild),
	}
}

// fork produces a child map whose lookups read through to this map's
// existing entries without copying them. The child starts its own order
// counter at zero, and its entries stay invisible to the parent.
func (m *memoMap) fork() *memoMap {
	return &memoMap{
		entries:  make(map[*Port]*memoEntry),
		inflight: make(map[*Port]*inflightBuild),
		parent:   m,
	}
}

// getOrElseMemoize returns the locally cached instance for port, or runs
// build exactly once, records the result with the next local order number,
// and returns it. Ancestor entries are deliberately ignored: only the
// delegation in Scope.Resolve shares instances across the tree.
func (m *memoMap) getOrElseMemoize(port *Port, build func() (any, error), finalizer Finalizer) (any, error) {
	for {
		m.mu.Lock()
		if m.disposed {
			m.mu.Unlock()
			return nil, DisposedScopeError{PortName: port.Name()}
		}
		if entry, ok := m.entries[port]; ok {
			m.mu.Unlock()
			return entry.instance, nil
		}
		if call, ok := m.inflight[port]; ok {
			m.mu.Unlock()
			<-call.done
			if call.err != nil {
				return nil, call.err
			}
			// Re-read under the lock: the winner's entry is there now.
			continue
		}

		call := &inflightBuild{done: make(chan struct{})}
		m.inflight[port] = call
		m.mu.Unlock()

		// The factory runs outside the lock so it can recursively resolve
		// its dependencies through this same map. Same-port recursion is
		// impossible here: the resolution context rejects it as a cycle
		// before the memo map is reached.
		instance, err := build()

		m.mu.Lock()
		delete(m.inflight, port)
		disposed := m.disposed
		if err == nil && !disposed {
			m.entries[port] = &memoEntry{
				instance:        instance,
				resolvedAt:      time.Now(),
				resolutionOrder: m.counter,
				finalizer:       finalizer,
			}
			m.order = append(m.order, port)
			m.counter++
		}
		m.mu.Unlock()

		call.instance, call.err = instance, err
		close(call.done)

		if err != nil {
			return nil, err
		}
		if disposed {
			return nil, DisposedScopeError{PortName: port.Name()}
		}
		return instance, nil
	}
}

// lookup walks this map and its ancestors for an entry.
func (m *memoMap) lookup(port *Port) (*memoEntry, bool) {
	for current := m; current != nil; current = current.parent {
		current.mu.Lock()
		entry, ok := current.entries[port]
		current.mu.Unlock()
		if ok {
			return entry, true
		}
	}
	return nil, false
}

// has reports whether port is memoized locally or in any ancestor.
func (m *memoMap) has(port *Port) bool {
	_, ok := m.lookup(port)
	return ok
}

func (m *memoMap) isDisposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// dispose runs the finalizers of this map's own entries in strict reverse
// creation order, each completed before the next starts. Every finalizer is
// attempted even when earlier ones fail; all failures come back as one
// DisposalError. The map is marked disposed unconditionally, so repeat calls
// are permanent no-ops.
func (m *memoMap) dispose(ctx context.Context) error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil
	}
	m.disposed = true

	type pending struct {
		port  *Port
		entry *memoEntry
	}
	toDispose := make([]pending, 0, len(m.order))
	for _, port := range m.order {
		toDispose = append(toDispose, pending{port: port, entry: m.entries[port]})
	}
	m.entries = nil
	m.order = nil
	m.mu.Unlock()

	var errs []error
	for i := len(toDispose) - 1; i >= 0; i-- {
		p := toDispose[i]
		if p.entry.finalizer == nil {
			continue
		}
		if err := callFinalizer(ctx, p.port, p.entry.finalizer, p.entry.instance); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return DisposalError{Context: "memo-map", Errors: errs}
	}
	return nil
}

// callFinalizer invokes one finalizer, converting a panic into an error so a
// misbehaving finalizer cannot halt the rest of the batch.
func callFinalizer(ctx context.Context, port *Port, finalizer Finalizer, instance any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("finalizer for port %q panicked: %v", port.Name(), r)
		}
	}()
	return finalizer(ctx, instance)
}

// entryStatus is the frozen per-entry metadata handed to the Inspector.
type entryStatus struct {
	port            *Port
	resolvedAt      time.Time
	resolutionOrder int
}

// snapshotEntries returns copied metadata for this map's own entries in
// creation order. Instances are never exposed.
func (m *memoMap) snapshotEntries() []entryStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entryStatus, 0, len(m.order))
	for _, port := range m.order {
		entry := m.entries[port]
		out = append(out, entryStatus{
			port:            port,
			resolvedAt:      entry.resolvedAt,
			resolutionOrder: entry.resolutionOrder,
		})
	}
	return out
}
