package engine

import (
	"golang.org/x/sys/unix"

	"github.com/edirooss/sshp/internal/apperror"
)

// readChunkSize is how much a single drain reads off a ready fd. The
// watcher is level-triggered, so a short read just means another
// readiness notification follows; there is no need to loop until
// EAGAIN (spec.md §4.4).
const readChunkSize = 4096

// drain services one readiness notification: read what's available from
// ctx's fd, hand complete chunks to fmtr, and on EOF deregister the
// descriptor from w, tell fmtr to finalize, and close it. It
// returns a fatal apperror.Engine for anything other than EOF or
// EAGAIN/EWOULDBLOCK/EINTR.
func drain(w *Watcher, ctx *StreamContext, fmtr Formatter) error {
	var buf [readChunkSize]byte

	for {
		n, err := unix.Read(ctx.FD, buf[:])
		switch {
		case n > 0:
			if err := fmtr.OnData(ctx, buf[:n]); err != nil {
				return err
			}
			if n < len(buf) {
				// Short read: the pipe is drained for now, wait for the
				// next readiness event instead of looping (level-
				// triggered epoll will fire again if more arrives).
				return nil
			}
			continue

		case n == 0:
			return closeStream(w, ctx, fmtr)

		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			return nil

		case err == unix.EINTR:
			continue

		default:
			return apperror.Enginef("read fd %d: %w", ctx.FD, err)
		}
	}
}

// closeStream finalizes a stream that has hit EOF: deregisters it from
// the watcher, lets fmtr flush any pending partial line or transfer its
// capture buffer, flips the owning descriptor to descClosed, and closes
// its fd (spec.md §3, §4.4).
func closeStream(w *Watcher, ctx *StreamContext, fmtr Formatter) error {
	if err := w.Deregister(ctx.FD); err != nil {
		return err
	}
	eofErr := fmtr.OnEOF(ctx)

	closed := closedDescriptor()
	switch ctx.Kind {
	case StreamStdout, StreamMerged:
		ctx.Host.Child.Stdout = closed
	case StreamStderr:
		ctx.Host.Child.Stderr = closed
	}

	// The fd is always closed, even if OnEOF hit a fatal stdout write
	// failure: the descriptor still needs to stop being tracked as open
	// so Drained() reflects reality. A write failure takes priority over
	// a close failure when both occur.
	if closeErr := rawClose(ctx.FD); closeErr != nil {
		if eofErr != nil {
			return eofErr
		}
		return closeErr
	}
	return eofErr
}
