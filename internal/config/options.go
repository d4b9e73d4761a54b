// Package config parses and validates the command-line surface described
// in spec.md §6. Parsing itself is an external collaborator the core
// engine consumes as input (spec.md §1): the engine never sees raw argv,
// only a fully validated Options value plus the derived roster and
// transport argument vector.
package config

import (
	"strconv"

	"github.com/edirooss/sshp/internal/apperror"
	"github.com/edirooss/sshp/internal/engine"
)

const (
	defaultMaxJobs         = 50 // matches the value the original program actually initializes at startup
	defaultMaxLineLength   = 1 * 1024
	defaultMaxOutputLength = 8 * 1024
)

// Options holds every flag the core and its ambient collaborators read.
type Options struct {
	MaxJobs         int
	RosterFile      string // "" or "-" means stdin
	Mode            engine.Mode
	Anonymous       bool
	Silent          bool
	ExitCodes       bool
	Debug           bool
	Trim            bool
	DryRun          bool
	Color           ColorMode
	MaxLineLength   int
	MaxOutputLength int

	// SSH-adjacent passthrough, composed into the transport argument prefix.
	Identity string
	Login    string
	Port     string
	Quiet    bool
	NoStrict bool

	// Extra tokens that didn't match a known flag, forwarded verbatim to
	// the transport program ahead of the host name (spec.md §6: "Any
	// additional flags are composed into the transport program's
	// argument prefix").
	ExtraTransportArgs []string

	// Supplemented ambient features (SPEC_FULL.md §3), off by default.
	StatusAddr       string
	HistoryRedisAddr string

	// RemoteCommand is everything after the options, the command to run
	// on each host.
	RemoteCommand []string

	Help    bool
	Version bool
}

// Parse walks argv by hand (not flag.FlagSet) because, per spec.md §6,
// unrecognized flags are not an error: they're forwarded to the
// transport program. flag.FlagSet has no such passthrough mode.
func Parse(argv []string) (*Options, error) {
	o := &Options{
		MaxJobs:         defaultMaxJobs,
		Mode:            engine.ModeLineByLine,
		Color:           ColorAuto,
		MaxLineLength:   defaultMaxLineLength,
		MaxOutputLength: defaultMaxOutputLength,
	}

	var group, join bool

	i := 0
	next := func(flagName string) (string, error) {
		i++
		if i >= len(argv) {
			return "", apperror.Configf("missing argument for %s", flagName)
		}
		return argv[i], nil
	}

	for ; i < len(argv); i++ {
		arg := argv[i]

		switch arg {
		case "-h", "--help":
			o.Help = true
			return o, nil
		case "-v", "--version":
			o.Version = true
			return o, nil
		case "-a", "--anonymous":
			o.Anonymous = true
		case "-d", "--debug":
			o.Debug = true
		case "-e", "--exit-codes":
			o.ExitCodes = true
		case "-g", "--group":
			group = true
		case "-j", "--join":
			join = true
		case "-n", "--dry-run":
			o.DryRun = true
		case "-N", "--no-strict":
			o.NoStrict = true
		case "-q", "--quiet":
			o.Quiet = true
		case "-s", "--silent":
			o.Silent = true
		case "-t", "--trim":
			o.Trim = true
		case "-f", "--file":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			o.RosterFile = v
		case "-m", "--max-jobs":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, apperror.Configf("invalid value for '-m': %q", v)
			}
			o.MaxJobs = n
		case "-c", "--color":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			if err := o.Color.Set(v); err != nil {
				return nil, apperror.Configf("%w", err)
			}
		case "-i", "--identity":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			o.Identity = v
		case "-l", "--login":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			o.Login = v
		case "-p", "--port":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			o.Port = v
		case "-o", "--option":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			o.ExtraTransportArgs = append(o.ExtraTransportArgs, "-o", v)
		case "--max-line-length":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, apperror.Configf("invalid value for '--max-line-length': %q", v)
			}
			o.MaxLineLength = n
		case "--max-output-length":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, apperror.Configf("invalid value for '--max-output-length': %q", v)
			}
			o.MaxOutputLength = n
		case "--status-addr":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			o.StatusAddr = v
		case "--history-redis":
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			o.HistoryRedisAddr = v
		default:
			if len(arg) > 0 && arg[0] == '-' && arg != "-" {
				// Unknown flag: forward verbatim to the transport program
				// (spec.md §6). A bare "-" is a roster-file placeholder
				// for stdin elsewhere, never a flag, so it falls through
				// to being the start of the remote command.
				o.ExtraTransportArgs = append(o.ExtraTransportArgs, arg)
				continue
			}
			// First non-flag token: remainder is the remote command.
			o.RemoteCommand = append([]string{}, argv[i:]...)
			i = len(argv)
		}
	}

	if err := o.validate(group, join); err != nil {
		return nil, err
	}

	return o, nil
}

func (o *Options) validate(group, join bool) error {
	if o.MaxJobs < 1 {
		return apperror.Configf("invalid value for '-m': %d", o.MaxJobs)
	}
	if join && group {
		return apperror.Configf("'-j' and '-g' are mutually exclusive")
	}
	if join && o.Silent {
		return apperror.Configf("'-j' and '-s' are mutually exclusive")
	}
	if join && o.Anonymous {
		return apperror.Configf("'-j' and '-a' are mutually exclusive")
	}
	if o.MaxLineLength <= 0 {
		return apperror.Configf("invalid value for '--max-line-length': %d", o.MaxLineLength)
	}
	if o.MaxOutputLength <= 0 {
		return apperror.Configf("invalid value for '--max-output-length': %d", o.MaxOutputLength)
	}

	switch {
	case join:
		o.Mode = engine.ModeJoin
	case group:
		o.Mode = engine.ModeGroup
	default:
		o.Mode = engine.ModeLineByLine
	}

	if len(o.RemoteCommand) < 1 && !o.Help && !o.Version {
		return apperror.Configf("no command specified")
	}

	return nil
}
