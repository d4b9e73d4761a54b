package engine

// StreamKind identifies which of a child's streams a StreamContext
// belongs to (spec.md §3).
type StreamKind int

const (
	StreamStdout StreamKind = iota
	StreamStderr
	StreamMerged
)

// Color returns the palette entry this stream is framed with. Merged
// (join-mode) streams carry no color since join mode never writes
// stream bytes to stdout during the run.
func (k StreamKind) Color(p Palette) string {
	switch k {
	case StreamStdout:
		return p.Green
	case StreamStderr:
		return p.Red
	default:
		return ""
	}
}

// StreamContext is the per-descriptor state the watcher hands back on
// readiness (spec.md §3). It is a non-owning lookup handle: the owning
// Host/ChildProcess still owns the descriptor itself.
//
// Buf is the line-assembly buffer (line-by-line mode) or capture buffer
// (join mode); it is nil in group mode, which does no buffering.
type StreamContext struct {
	Host *Host
	Kind StreamKind
	FD   int

	Buf  []byte
	Fill int
}

// newStreamContext allocates a context for the given host/kind/fd,
// sizing Buf per the active mode (spec.md §4.4's fdev_create).
func newStreamContext(host *Host, kind StreamKind, fd int, mode Mode, maxLineLength, maxOutputLength int) *StreamContext {
	ctx := &StreamContext{Host: host, Kind: kind, FD: fd}
	switch mode {
	case ModeLineByLine:
		ctx.Buf = make([]byte, maxLineLength+2)
	case ModeJoin:
		ctx.Buf = make([]byte, maxOutputLength+1)
	case ModeGroup:
		// no buffering
	}
	return ctx
}
