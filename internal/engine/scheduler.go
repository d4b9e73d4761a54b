package engine

import (
	"io"
	"sync"

	"github.com/edirooss/sshp/internal/apperror"
	"github.com/edirooss/sshp/internal/sshargs"
)

// progName identifies the join-mode progress line, mirroring the
// original program's PROG_NAME.
const progName = "sshp"

// Config is everything the scheduler needs to run a roster to
// completion. It is assembled once by cmd/sshp/main.go from parsed
// Options, roster entries, and the transport argument builder.
type Config struct {
	Hosts   []*Host
	Builder *sshargs.Builder
	Mode    Mode

	MaxJobs         int
	MaxLineLength   int
	MaxOutputLength int

	Anonymous bool
	Silent    bool
	ExitCodes bool
	Debug     bool

	Out          io.Writer
	Pal          Palette
	ShowProgress bool // join mode's live "finished N/M" line, gated by the caller on stdout being a TTY
}

// Engine runs one roster through to completion, single-threaded: the
// only blocking call anywhere in Run is the watcher's Wait (spec.md §5).
type Engine struct {
	cfg     Config
	watcher *Watcher
	clock   *Clock
	fmtr    Formatter

	progress progressState
}

// progressState is read by the optional status server from a different
// goroutine, so it is the one piece of engine state guarded by a mutex;
// the core scheduling loop takes it only inside setProgress to publish
// its counters, and the loop itself stays single-threaded (spec.md §5).
type progressState struct {
	mu          sync.Mutex
	total       int
	outstanding int
	done        int
}

// New builds an Engine ready to Run. The watcher is created here so a
// failure to set up epoll surfaces before any child is spawned.
func New(cfg Config) (*Engine, error) {
	w, err := NewWatcher()
	if err != nil {
		return nil, err
	}

	var fmtr Formatter = newFormatter(cfg.Mode, cfg.Out, cfg.Pal, cfg.Anonymous, cfg.MaxLineLength)
	if cfg.Silent && cfg.Mode != ModeJoin {
		fmtr = silentFormatter{inner: fmtr}
	}

	e := &Engine{
		cfg:     cfg,
		watcher: w,
		clock:   NewClock(),
		fmtr:    fmtr,
	}
	e.progress.total = len(cfg.Hosts)
	return e, nil
}

// Run drives every host in cfg.Hosts to completion: admit up to MaxJobs
// children at a time, wait for readiness, drain and format their
// output, reap them once drained, and repeat until the roster and
// every outstanding child are exhausted (spec.md §4.7).
func (e *Engine) Run() error {
	defer e.watcher.Close()

	hosts := e.cfg.Hosts
	cur := 0
	outstanding := 0
	done := 0

	if e.cfg.Mode == ModeJoin && e.cfg.ShowProgress {
		if err := writeProgressLine(e.cfg.Out, progName, done, len(hosts), e.cfg.Pal); err != nil {
			return err
		}
	}

	for cur < len(hosts) || outstanding > 0 {
		for cur < len(hosts) && outstanding < e.cfg.MaxJobs {
			h := hosts[cur]
			if err := e.admit(h); err != nil {
				return err
			}
			outstanding++
			cur++
		}
		e.setProgress(outstanding, done)

		ready, err := e.watcher.Wait()
		if err != nil {
			return err
		}

		for _, ctx := range ready {
			if err := drain(e.watcher, ctx, e.fmtr); err != nil {
				return err
			}

			cp := ctx.Host.Child
			if !cp.Drained() || cp.Reaped {
				continue
			}

			if err := reap(ctx.Host, e.clock); err != nil {
				return apperror.Enginef("host %s: %w", ctx.Host.Name, err)
			}
			outstanding--
			done++
			e.setProgress(outstanding, done)

			if e.cfg.ExitCodes || e.cfg.Debug {
				// e.fmtr.AtLineStart() reflects the formatter's own
				// view of Out (true unless group mode's last write left
				// a partial line), matching the original's
				// newline_printed check in wait_for_child exactly
				// rather than assuming every drain leaves Out mid-line.
				if !e.fmtr.AtLineStart() {
					if err := writeAll(e.cfg.Out, []byte("\n")); err != nil {
						return err
					}
				}
				if err := printExitCode(e.cfg.Out, ctx.Host, e.cfg.Pal); err != nil {
					return err
				}
			}

			if e.cfg.Mode == ModeJoin && e.cfg.ShowProgress {
				if err := writeProgressLine(e.cfg.Out, progName, done, len(hosts), e.cfg.Pal); err != nil {
					return err
				}
				if done == len(hosts) {
					if err := writeAll(e.cfg.Out, []byte("\n")); err != nil {
						return err
					}
				}
			}
		}
	}

	if e.cfg.Mode == ModeJoin {
		if err := writeJoinReport(e.cfg.Out, hosts, e.cfg.Pal); err != nil {
			return err
		}
	}

	return nil
}

// admit spawns host's child and registers its descriptor(s) with the
// watcher (spec.md §4.2 and §4.3 back to back: a child is never left
// running with nobody watching its pipes).
func (e *Engine) admit(h *Host) error {
	argv := e.cfg.Builder.Build(h.Name)
	if err := spawn(h, argv, e.cfg.Mode); err != nil {
		return err
	}
	h.Child.Started = e.clock.NowMillis()

	cp := h.Child
	if e.cfg.Mode == ModeJoin {
		ctx := newStreamContext(h, StreamMerged, cp.Stdout.fd, e.cfg.Mode, e.cfg.MaxLineLength, e.cfg.MaxOutputLength)
		return e.watcher.Register(cp.Stdout.fd, ctx)
	}

	outCtx := newStreamContext(h, StreamStdout, cp.Stdout.fd, e.cfg.Mode, e.cfg.MaxLineLength, e.cfg.MaxOutputLength)
	if err := e.watcher.Register(cp.Stdout.fd, outCtx); err != nil {
		return err
	}
	errCtx := newStreamContext(h, StreamStderr, cp.Stderr.fd, e.cfg.Mode, e.cfg.MaxLineLength, e.cfg.MaxOutputLength)
	return e.watcher.Register(cp.Stderr.fd, errCtx)
}

func (e *Engine) setProgress(outstanding, done int) {
	e.progress.mu.Lock()
	e.progress.outstanding = outstanding
	e.progress.done = done
	e.progress.mu.Unlock()
}

// Hosts returns the roster this Engine was built with, in roster order.
// Valid to call any time, but a host's Child is only complete after Run
// returns.
func (e *Engine) Hosts() []*Host {
	return e.cfg.Hosts
}

// Progress returns a point-in-time snapshot for the optional status
// server (SPEC_FULL.md §3). Safe to call from any goroutine.
func (e *Engine) Progress() (total, outstanding, done int) {
	e.progress.mu.Lock()
	defer e.progress.mu.Unlock()
	return e.progress.total, e.progress.outstanding, e.progress.done
}
