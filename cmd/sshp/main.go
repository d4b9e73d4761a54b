// Command sshp runs one shell command across a roster of hosts in
// parallel over an external transport program (ssh by default),
// multiplexing each host's stdout/stderr back to the operator.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/edirooss/sshp/internal/apperror"
	"github.com/edirooss/sshp/internal/config"
	"github.com/edirooss/sshp/internal/engine"
	"github.com/edirooss/sshp/internal/history"
	"github.com/edirooss/sshp/internal/roster"
	"github.com/edirooss/sshp/internal/sshargs"
	"github.com/edirooss/sshp/internal/statusserver"
	"github.com/edirooss/sshp/pkg/fmtt"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const progVersion = "1.0.0"

func main() {
	opts, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	if opts.Help {
		printUsage(os.Stdout)
		os.Exit(0)
	}
	if opts.Version {
		fmt.Println(progVersion)
		os.Exit(0)
	}

	log := buildLogger(opts.Debug)
	defer log.Sync()
	runID := uuid.New().String()
	log = log.Named("main").With(zap.String("run_id", runID))

	if err := run(opts, runID, log); err != nil {
		var engErr *apperror.Engine
		fmt.Fprintf(os.Stderr, "sshp: %s\n", err)

		if errors.As(err, &engErr) {
			if opts.Debug {
				fmtt.PrintErrChainDebug(err)
			} else {
				fmtt.PrintErrChain(err)
			}
			os.Exit(3)
		}

		var cfgErr *apperror.Config
		if errors.As(err, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(3)
	}
}

func run(opts *config.Options, runID string, log *zap.Logger) error {
	hostNames, err := readRoster(opts.RosterFile)
	if err != nil {
		return err
	}

	hosts := make([]*engine.Host, len(hostNames))
	for i, name := range hostNames {
		display := name
		if opts.Trim {
			display = roster.Trim(name)
		}
		hosts[i] = engine.NewHost(name, display, i)
	}

	builder := sshargs.NewBuilder(transportPrefix(opts), opts.RemoteCommand)

	if opts.DryRun {
		for _, h := range hosts {
			fmt.Println(builder.Build(h.Name))
		}
		return nil
	}

	colorEnabled := opts.Color == config.ColorOn ||
		(opts.Color == config.ColorAuto && isatty.IsTerminal(os.Stdout.Fd()))
	pal := engine.NewPalette(colorEnabled)

	log.Debug("starting run",
		zap.Int("hosts", len(hosts)),
		zap.String("mode", opts.Mode.String()),
		zap.Int("max_jobs", opts.MaxJobs),
	)

	eng, err := engine.New(engine.Config{
		Hosts:           hosts,
		Builder:         builder,
		Mode:            opts.Mode,
		MaxJobs:         opts.MaxJobs,
		MaxLineLength:   opts.MaxLineLength,
		MaxOutputLength: opts.MaxOutputLength,
		Anonymous:       opts.Anonymous,
		Silent:          opts.Silent,
		ExitCodes:       opts.ExitCodes,
		Debug:           opts.Debug,
		Out:             os.Stdout,
		Pal:             pal,
		ShowProgress:    opts.Mode == engine.ModeJoin && isatty.IsTerminal(os.Stdout.Fd()),
	})
	if err != nil {
		return err
	}

	stopStatus := maybeStartStatusServer(opts, eng, log)
	defer stopStatus()

	if err := eng.Run(); err != nil {
		return err
	}

	if opts.Mode == engine.ModeJoin && opts.HistoryRedisAddr != "" {
		saveJoinHistory(opts, runID, eng, log)
	}

	return nil
}

// transportPrefix composes the fixed argv prefix for the transport
// program, mirroring build_ssh_command's "ssh" + pushed options
// ordering from the original source.
func transportPrefix(opts *config.Options) []string {
	prefix := []string{"ssh"}
	if opts.Quiet {
		prefix = append(prefix, "-q")
	}
	if opts.Identity != "" {
		prefix = append(prefix, "-i", opts.Identity)
	}
	if opts.Login != "" {
		prefix = append(prefix, "-l", opts.Login)
	}
	if opts.Port != "" {
		prefix = append(prefix, "-p", opts.Port)
	}
	if opts.NoStrict {
		prefix = append(prefix, "-o", "StrictHostKeyChecking=no")
	}
	prefix = append(prefix, opts.ExtraTransportArgs...)
	return prefix
}

func readRoster(path string) ([]string, error) {
	if path == "" || path == "-" {
		return roster.Parse(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, apperror.Configf("open roster file: %w", err)
	}
	defer f.Close()
	return roster.Parse(f)
}

// maybeStartStatusServer starts the optional status endpoint in its own
// goroutine when --status-addr is set and returns a func that shuts it
// down; a no-op func otherwise. This goroutine is the one place this
// program's core isn't single-threaded, and it only ever reads the
// engine's progress snapshot through its exported mutex-guarded getter.
func maybeStartStatusServer(opts *config.Options, eng *engine.Engine, log *zap.Logger) func() {
	if opts.StatusAddr == "" {
		return func() {}
	}

	srv := statusserver.New(opts.StatusAddr, opts.Mode.String(), eng, log)
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("status server stopped", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func saveJoinHistory(opts *config.Options, runID string, eng *engine.Engine, log *zap.Logger) {
	store := history.NewStore(opts.HistoryRedisAddr, log)
	defer store.Close()

	report := history.Report{
		RunID:     runID,
		Command:   fmt.Sprint(opts.RemoteCommand),
		HostCount: len(eng.Hosts()),
		Finished:  time.Now(),
	}
	for _, g := range engine.JoinResults(eng.Hosts()) {
		report.Groups = append(report.Groups, history.Group{
			Hosts:  g.Hosts,
			Output: string(g.Output),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Save(ctx, report); err != nil {
		log.Error("failed to save join history", zap.Error(err))
	}
}

func buildLogger(debug bool) *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	if debug {
		logConfig.Level.SetLevel(zap.DebugLevel)
	} else {
		logConfig.Level.SetLevel(zap.InfoLevel)
	}
	return zap.Must(logConfig.Build())
}

func printUsage(w *os.File) {
	fmt.Fprintf(w, "usage: sshp [options] command\n\n")
	fmt.Fprintf(w, "options:\n")
	fmt.Fprintf(w, "  -a, --anonymous            don't prefix output with the host name\n")
	fmt.Fprintf(w, "  -c, --color <on|off|auto>  colorize output (default: auto)\n")
	fmt.Fprintf(w, "  -d, --debug                enable debug output\n")
	fmt.Fprintf(w, "  -e, --exit-codes           show the exit code for each host\n")
	fmt.Fprintf(w, "  -f, --file <file>          a file of hosts, one per line (default: stdin)\n")
	fmt.Fprintf(w, "  -g, --group                group output by host as it arrives\n")
	fmt.Fprintf(w, "  -h, --help                 print this message and exit\n")
	fmt.Fprintf(w, "  -i, --identity <ident>     ssh identity file to use\n")
	fmt.Fprintf(w, "  -j, --join                 join hosts with identical output\n")
	fmt.Fprintf(w, "  -l, --login <name>         the username to login as\n")
	fmt.Fprintf(w, "  -m, --max-jobs <num>       max number of jobs to run concurrently (default: 50)\n")
	fmt.Fprintf(w, "  -n, --dry-run              print the commands that would be run, without running them\n")
	fmt.Fprintf(w, "  -N, --no-strict            disable strict host key checking\n")
	fmt.Fprintf(w, "  -o, --option <opt>         pass an option through to the transport program\n")
	fmt.Fprintf(w, "  -p, --port <port>          the ssh port\n")
	fmt.Fprintf(w, "  -q, --quiet                disable the transport program's verbose output\n")
	fmt.Fprintf(w, "  -s, --silent               suppress output from every host\n")
	fmt.Fprintf(w, "  -t, --trim                 trim hostnames to the portion before the first dot\n")
	fmt.Fprintf(w, "  -v, --version              print the version and exit\n")
	fmt.Fprintf(w, "  --max-line-length <num>    max line length in line-by-line mode (default: 1024)\n")
	fmt.Fprintf(w, "  --max-output-length <num>  max output length in join mode (default: 8192)\n")
	fmt.Fprintf(w, "  --status-addr <addr>       serve a live JSON status endpoint on addr\n")
	fmt.Fprintf(w, "  --history-redis <addr>     persist join-mode results to a Redis instance\n")
}
