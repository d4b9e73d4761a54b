package engine

// Host is one entry in the roster (spec.md §3). Position in the Hosts
// slice built at startup is the canonical iteration order for every
// report the engine produces; it is never reordered.
type Host struct {
	// Name is the roster entry used to build the transport command.
	Name string
	// Display is Name, or Name truncated at the first '.' when the
	// -t/--trim option is set. Display-only; never affects the command.
	Display string

	Child *ChildProcess

	// index is this host's position in roster order.
	index int
}

// NewHost creates a Host with its child record unattached; the record is
// attached at admission time (spec.md §3, Host lifecycle).
func NewHost(name, display string, index int) *Host {
	return &Host{Name: name, Display: display, index: index}
}
