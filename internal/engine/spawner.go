package engine

import (
	"os"
	"os/exec"

	"github.com/edirooss/sshp/internal/apperror"
)

// spawn forks and execs argv for host, wiring its pipe write end(s) to
// the child's stdout/stderr as spec.md §4.2 describes. No waiting is
// performed here; reaping is the scheduler/reaper's job.
//
// In join mode a single merged pipe backs both streams (stdio_fd in the
// original source); otherwise stdout and stderr get independent pipes.
func spawn(host *Host, argv []string, mode Mode) error {
	cp := NewChildProcess()
	host.Child = cp

	cmd := exec.Command(argv[0], argv[1:]...)

	if mode == ModeJoin {
		readFD, writeFD, err := makePipe()
		if err != nil {
			return err
		}
		w := os.NewFile(uintptr(writeFD), "sshp-stdio-w")
		cmd.Stdout = w
		cmd.Stderr = w

		if err := cmd.Start(); err != nil {
			_ = w.Close()
			_ = closeRawFD(readFD)
			return apperror.Enginef("exec %s: %w", argv[0], err)
		}
		_ = w.Close()

		cp.Stdout = openDescriptor(readFD)
		// Stderr stays descUninitialized: ChildProcess.Drained() treats
		// that as "not open", so a merged child is considered drained
		// the moment its single stream closes (spec.md §3).
	} else {
		outReadFD, outWriteFD, err := makePipe()
		if err != nil {
			return err
		}
		errReadFD, errWriteFD, err := makePipe()
		if err != nil {
			_ = closeRawFD(outReadFD)
			_ = closeRawFD(outWriteFD)
			return err
		}

		outW := os.NewFile(uintptr(outWriteFD), "sshp-stdout-w")
		errW := os.NewFile(uintptr(errWriteFD), "sshp-stderr-w")
		cmd.Stdout = outW
		cmd.Stderr = errW

		if err := cmd.Start(); err != nil {
			_ = outW.Close()
			_ = errW.Close()
			_ = closeRawFD(outReadFD)
			_ = closeRawFD(errReadFD)
			return apperror.Enginef("exec %s: %w", argv[0], err)
		}
		_ = outW.Close()
		_ = errW.Close()

		cp.Stdout = openDescriptor(outReadFD)
		cp.Stderr = openDescriptor(errReadFD)
	}

	cp.PID = cmd.Process.Pid
	host.Child.cmd = cmd

	return nil
}

// closeRawFD closes a bare fd created via makePipe, used only on
// spawn-failure cleanup paths before the descriptor is ever registered
// with a ChildProcess.
func closeRawFD(fd int) error {
	return rawClose(fd)
}
