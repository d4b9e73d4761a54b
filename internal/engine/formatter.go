package engine

import (
	"fmt"
	"io"

	"github.com/edirooss/sshp/internal/apperror"
)

// Formatter is the closed sum type spec.md §4.5/§9 calls for: three
// mode strategies dispatched by tag (the concrete type held by Engine),
// never by a switch scattered across the reader and reaper.
type Formatter interface {
	// OnData handles a freshly read, non-empty chunk for ctx. It returns
	// an error whenever a write to standard output short-counts or
	// fails; spec.md §4.9 treats that as a fatal engine error that
	// aborts the run.
	OnData(ctx *StreamContext, data []byte) error
	// OnEOF finalizes ctx's stream once its descriptor reports EOF, e.g.
	// flushing a partial line or transferring a capture buffer to the
	// owning ChildProcess. Same write-failure contract as OnData.
	OnEOF(ctx *StreamContext) error
	// AtLineStart reports whether standard output is positioned at the
	// start of a line: true before anything has been written, or once
	// the last content byte written ended a line. Mirrors the original
	// program's newline_printed, which only group mode ever sets false
	// (line-by-line and join never write a partial line to Out, so they
	// report true unconditionally).
	AtLineStart() bool
}

// newFormatter builds the Formatter for the given mode. out is always
// os.Stdout in production; tests substitute a buffer.
func newFormatter(mode Mode, out io.Writer, pal Palette, anonymous bool, maxLineLength int) Formatter {
	switch mode {
	case ModeGroup:
		return &groupFormatter{out: out, pal: pal, anonymous: anonymous, lastByteNewline: true}
	case ModeJoin:
		return &joinFormatter{}
	default:
		return &lineFormatter{out: out, pal: pal, anonymous: anonymous, maxLineLength: maxLineLength}
	}
}

// writeAll performs one logical write of p to w, treating a short count
// or an I/O error as fatal: the same check sshp.c makes after every
// write(2) to stdout (spec.md §4.9, sshp.c:915-917).
func writeAll(w io.Writer, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := w.Write(p)
	if err != nil {
		return apperror.Enginef("write stdout: %w", err)
	}
	if n < len(p) {
		return apperror.Enginef("short write to stdout: wrote %d of %d bytes", n, len(p))
	}
	return nil
}

// writeAllf formats and writes in one step, through writeAll's same
// short-write check.
func writeAllf(w io.Writer, format string, args ...any) error {
	return writeAll(w, []byte(fmt.Sprintf(format, args...)))
}

// --- line-by-line --------------------------------------------------------

// lineFormatter buffers each stream into complete lines and emits one
// `[host] <color>line<reset>` per newline (spec.md §4.5, "Line-by-line").
type lineFormatter struct {
	out           io.Writer
	pal           Palette
	anonymous     bool
	maxLineLength int
}

func (f *lineFormatter) OnData(ctx *StreamContext, data []byte) error {
	for _, c := range data {
		if ctx.Fill == f.maxLineLength && c != '\n' {
			// No room left: force a line boundary by injecting a
			// newline, splitting an over-long line rather than
			// rejecting it (spec.md §4.9). The current byte starts
			// the next line.
			ctx.Buf[ctx.Fill] = '\n'
			ctx.Fill++
			if err := f.emit(ctx); err != nil {
				return err
			}
			ctx.Fill = 0
		}
		ctx.Buf[ctx.Fill] = c
		ctx.Fill++

		if c == '\n' {
			if err := f.emit(ctx); err != nil {
				return err
			}
			ctx.Fill = 0
		}
	}
	return nil
}

func (f *lineFormatter) OnEOF(ctx *StreamContext) error {
	if ctx.Fill == 0 {
		return nil
	}
	if ctx.Buf[ctx.Fill-1] != '\n' {
		ctx.Buf[ctx.Fill] = '\n'
		ctx.Fill++
	}
	if err := f.emit(ctx); err != nil {
		return err
	}
	ctx.Fill = 0
	return nil
}

func (f *lineFormatter) emit(ctx *StreamContext) error {
	color := ctx.Kind.Color(f.pal)
	var line string
	if !f.anonymous {
		line += fmt.Sprintf("[%s%s%s] ", f.pal.Cyan, ctx.Host.Display, f.pal.Reset)
	}
	line += fmt.Sprintf("%s%s%s", color, ctx.Buf[:ctx.Fill], f.pal.Reset)
	return writeAll(f.out, []byte(line))
}

// AtLineStart is always true: emit only ever writes a complete line
// already terminated by '\n' (OnEOF forces one if the child exited
// mid-line), so there is never a dangling partial line left on Out.
func (f *lineFormatter) AtLineStart() bool { return true }

// --- group -----------------------------------------------------------------

// groupFormatter streams chunks as they arrive, framed by a host header
// whenever the emitting host changes (spec.md §4.5, "Group"). lastHost
// and lastByteNewline are engine state living on this single shared
// formatter instance, not package-level statics (spec.md §9).
type groupFormatter struct {
	out             io.Writer
	pal             Palette
	anonymous       bool
	lastHost        *Host
	lastByteNewline bool
}

func (f *groupFormatter) OnData(ctx *StreamContext, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	if f.lastHost != ctx.Host {
		if !f.lastByteNewline {
			if err := writeAll(f.out, []byte("\n")); err != nil {
				return err
			}
		}
		if !f.anonymous {
			if err := writeAllf(f.out, "[%s%s%s]\n", f.pal.Cyan, ctx.Host.Display, f.pal.Reset); err != nil {
				return err
			}
		}
	}

	color := ctx.Kind.Color(f.pal)
	if err := writeAll(f.out, []byte(color)); err != nil {
		return err
	}
	if err := writeAll(f.out, data); err != nil {
		return err
	}
	if err := writeAll(f.out, []byte(f.pal.Reset)); err != nil {
		return err
	}

	// Tracked off the raw content bytes only, same as the original's
	// buf[bytes-1] check: color escapes around it never count.
	f.lastByteNewline = data[len(data)-1] == '\n'
	f.lastHost = ctx.Host
	return nil
}

func (f *groupFormatter) OnEOF(*StreamContext) error {
	// nothing to do: group mode holds no per-stream state
	return nil
}

func (f *groupFormatter) AtLineStart() bool { return f.lastByteNewline }

// --- join --------------------------------------------------------------

// joinFormatter captures bytes without emitting anything; output is
// produced once, after the run, by the join aggregator (spec.md §4.5,
// "Join", and §4.8).
type joinFormatter struct{}

func (f *joinFormatter) OnData(ctx *StreamContext, data []byte) error {
	capN := len(ctx.Buf) - 1 // reserve the trailing NUL slot
	for _, c := range data {
		if ctx.Fill < capN {
			ctx.Buf[ctx.Fill] = c
			ctx.Fill++
			continue
		}
		if ctx.Fill == capN {
			ctx.Buf[ctx.Fill] = 0
			ctx.Fill++
		}
		// at or past capacity: discard silently (spec.md §9's single rule)
	}
	return nil
}

func (f *joinFormatter) OnEOF(ctx *StreamContext) error {
	// Transfer ownership of the filled buffer to the child record.
	// OnData never lets Fill exceed len(ctx.Buf) (it stops one past the
	// reserved NUL slot), so no further trimming is needed here; doing
	// so would chop off the NUL terminator OnData just wrote for a
	// capped stream (spec.md §3: stream context is destroyed on EOF;
	// the buffer it held moves to ChildProcess).
	ctx.Host.Child.Captured = ctx.Buf[:ctx.Fill]
	ctx.Buf = nil
	return nil
}

// AtLineStart is always true: the join formatter never writes to Out;
// captured output is written once, after every host has exited, via
// writeJoinReport.
func (f *joinFormatter) AtLineStart() bool { return true }

// --- silent wrapper ------------------------------------------------------

// silentFormatter suppresses OnData while still delegating OnEOF, matching
// the original program's -s/--silent behavior exactly: bytes are still
// drained off the pipe (so children never block writing), but nothing
// reaches the writer except whatever OnEOF itself finalizes (e.g. a
// pending line-by-line flush). Join mode never wraps in this, since -j
// and -s are mutually exclusive (spec.md §6).
type silentFormatter struct {
	inner Formatter
}

func (f silentFormatter) OnData(*StreamContext, []byte) error { return nil }
func (f silentFormatter) OnEOF(ctx *StreamContext) error       { return f.inner.OnEOF(ctx) }
func (f silentFormatter) AtLineStart() bool                    { return f.inner.AtLineStart() }
