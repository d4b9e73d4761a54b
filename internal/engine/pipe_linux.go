//go:build linux

package engine

import (
	"github.com/edirooss/sshp/internal/apperror"
	"golang.org/x/sys/unix"
)

// makePipe creates a pipe with both ends non-blocking and close-on-exec
// (spec.md §4.1). A single pipe2(2) syscall sets both flags atomically,
// which is tighter than the original's pipe(2)+fcntl(2)x4 sequence and
// avoids a window where a concurrent fork could leak the descriptors.
func makePipe() (readFD, writeFD int, err error) {
	var fds [2]int
	if perr := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); perr != nil {
		return 0, 0, apperror.Enginef("pipe2: %w", perr)
	}
	return fds[0], fds[1], nil
}

// rawClose closes a bare fd obtained from makePipe or a descriptor,
// bypassing os.File (none of the core's fds are ever wrapped in one
// except transiently, around exec.Cmd.Start, in the spawner).
func rawClose(fd int) error {
	if err := unix.Close(fd); err != nil {
		return apperror.Enginef("close: %w", err)
	}
	return nil
}
