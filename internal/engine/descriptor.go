package engine

// descState is the sum type spec.md's design notes (§9) call for in
// place of sentinel integers (-1/-2 in the original C source) for a
// pipe descriptor's lifecycle.
type descState int

const (
	descUninitialized descState = iota
	descOpen
	descClosed
)

// descriptor pairs a raw fd with its lifecycle state. The fd is only
// meaningful while state == descOpen.
type descriptor struct {
	fd    int
	state descState
}

func (d descriptor) isOpen() bool   { return d.state == descOpen }
func (d descriptor) isClosed() bool { return d.state == descClosed }

// openDescriptor returns a descriptor in the open state for the given fd.
func openDescriptor(fd int) descriptor {
	return descriptor{fd: fd, state: descOpen}
}

// closedDescriptor returns the "closed" state. It performs no close(2)
// itself: closeStream stores it on the ChildProcess and then closes the
// fd.
func closedDescriptor() descriptor {
	return descriptor{fd: -1, state: descClosed}
}
