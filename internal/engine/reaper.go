package engine

import (
	"errors"
	"io"
	"os/exec"
)

// reap waits for a drained child to exit and stamps its record. Callers
// must only call this once ChildProcess.Drained() is true: Wait() on a
// cmd whose pipes are still open can itself block, which would violate
// the single blocking point spec.md §5 mandates (the watcher's Wait).
func reap(host *Host, clock *Clock) error {
	cp := host.Child
	err := cp.cmd.Wait()
	cp.Finished = clock.NowMillis()
	cp.Reaped = true

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		cp.ExitCode = 0
	case errors.As(err, &exitErr):
		cp.ExitCode = exitErr.ExitCode()
	default:
		// cmd.Wait returning neither nil nor *exec.ExitError means the
		// wait itself failed (e.g. called twice, or the process was
		// reaped out from under us) rather than the child exiting
		// abnormally. That's an invariant violation, not a per-host
		// failure, so it aborts the run the same as any other
		// apperror.Engine (spec.md §5).
		cp.ExitCode = -1
		return err
	}
	return nil
}

// printExitCode writes the one-line "[host] exited: N (delta ms)"
// summary spec.md §4.6 describes for -e/--exit-codes (and for -d
// debug), applying the host's color so the same eye can scan output
// and summary together. A short write or I/O error aborts the run
// (spec.md §4.9), same as every other write to out.
func printExitCode(out io.Writer, host *Host, pal Palette) error {
	cp := host.Child
	color := pal.Green
	if cp.ExitCode != 0 {
		color = pal.Red
	}
	return writeAllf(out, "[%s%s%s] exited: %s%d%s (%s%d%s ms)\n",
		pal.Cyan, host.Display, pal.Reset,
		color, cp.ExitCode, pal.Reset,
		pal.Magenta, cp.Finished-cp.Started, pal.Reset)
}
