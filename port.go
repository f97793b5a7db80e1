package portico

// Port is an opaque capability token. Two Ports are the same capability only
// when they are the same *Port value; the name exists purely for diagnostics,
// so same-named Ports created by different modules never collide.
type Port struct {
	name string
}

// NewPort creates a new Port with the given diagnostic name. Every call
// returns a distinct identity, even for an identical name.
func NewPort(name string) *Port {
	return &Port{name: name}
}

// Name returns the diagnostic name of the Port.
func (p *Port) Name() string {
	if p == nil {
		return "<nil>"
	}
	return p.name
}

// String implements fmt.Stringer.
func (p *Port) String() string {
	return "Port(" + p.Name() + ")"
}
