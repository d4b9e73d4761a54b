//go:build linux

package engine

import (
	"errors"

	"github.com/edirooss/sshp/internal/apperror"
	"golang.org/x/sys/unix"
)

// maxEpollEvents bounds how many events a single Wait call drains,
// matching the original program's EPOLL_MAX_EVENTS. Wait returns
// anywhere from zero (an interrupted wait) to this many events
// (spec.md §4.3).
const maxEpollEvents = 64

// Watcher is the level-triggered, readable-only readiness facility
// spec.md §4.3 specifies, implemented directly against Linux epoll so
// the core never touches Go's runtime netpoller (which would fight our
// own non-blocking reads on the same fds). It holds only lookup
// handles: the *StreamContext values it returns from Wait are a
// non-owning view into Host/ChildProcess-owned descriptors (spec.md
// §3).
type Watcher struct {
	epfd int
	ctxs map[int]*StreamContext

	events [maxEpollEvents]unix.EpollEvent
}

// NewWatcher creates the run-wide epoll instance (spec.md §3, "two
// run-wide singletons").
func NewWatcher() (*Watcher, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, apperror.Enginef("epoll_create1: %w", err)
	}
	return &Watcher{epfd: epfd, ctxs: make(map[int]*StreamContext)}, nil
}

// Register adds fd to the watched set for readability events.
func (w *Watcher) Register(fd int, ctx *StreamContext) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(w.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return apperror.Enginef("epoll_ctl add: %w", err)
	}
	w.ctxs[fd] = ctx
	return nil
}

// Deregister removes fd from the watched set. Callers must deregister
// before closing fd (spec.md §3's invariant on removal ordering).
func (w *Watcher) Deregister(fd int) error {
	if err := unix.EpollCtl(w.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		// ENOENT/EBADF here would mean a caller deregistered twice or
		// closed the fd first; both are invariant violations.
		return apperror.Enginef("epoll_ctl del: %w", err)
	}
	delete(w.ctxs, fd)
	return nil
}

// Wait blocks until one or more watched fds are readable, with no
// deadline (spec.md §5: "the only exit is all children terminating").
// It returns the StreamContexts ready to be drained; the returned
// slice is only valid until the next call to Wait.
func (w *Watcher) Wait() ([]*StreamContext, error) {
	n, err := unix.EpollWait(w.epfd, w.events[:], -1)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			// A signal interrupted the wait; spec.md doesn't define
			// signal handling, so just retry immediately (level-
			// triggered semantics mean nothing is lost).
			return nil, nil
		}
		return nil, apperror.Enginef("epoll_wait: %w", err)
	}

	ready := make([]*StreamContext, 0, n)
	for i := 0; i < n; i++ {
		fd := int(w.events[i].Fd)
		if ctx, ok := w.ctxs[fd]; ok {
			ready = append(ready, ctx)
		}
	}
	return ready, nil
}

// Close releases the epoll instance. Called once, after the main loop
// exits (spec.md §7: "the watcher is destroyed" on the success path).
func (w *Watcher) Close() error {
	if err := unix.Close(w.epfd); err != nil {
		return apperror.Enginef("close epoll fd: %w", err)
	}
	return nil
}
