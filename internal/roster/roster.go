// Package roster reads and validates the fleet of hosts a run targets.
//
// This is an "external collaborator" in the core engine's terms (spec.md
// §1): the engine consumes an already-parsed, ordered list of host names
// and never reorders it (spec.md §3's roster-order invariant). Parsing
// itself is ambient CLI plumbing, kept here so cmd/sshp stays thin.
package roster

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/edirooss/sshp/internal/apperror"
)

// maxHostNameLen mirrors the original program's use of HOST_NAME_MAX
// (Linux: 64, but POSIX systems commonly ship 255); 255 is generous
// enough to never reject a real hostname while still catching garbage
// input (binary data piped in by mistake, etc).
const maxHostNameLen = 255

// Parse reads one hostname per line from r.
//
// Blank lines, lines starting with '#', and lines starting with a space
// are ignored, matching the original `sshp` roster format. A line longer
// than maxHostNameLen is a fatal configuration error, not a truncation.
func Parse(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), maxHostNameLen+4096)

	var hosts []string
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()

		if len(line) > maxHostNameLen {
			return nil, apperror.Configf("roster line %d too long (> %d chars)", lineno, maxHostNameLen)
		}

		if line == "" {
			continue
		}
		switch line[0] {
		case '#', ' ':
			continue
		}

		if err := Validate(line); err != nil {
			return nil, apperror.Configf("roster line %d: %w", lineno, err)
		}

		hosts = append(hosts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperror.Configf("failed to read roster: %w", err)
	}

	if len(hosts) < 1 {
		return nil, apperror.Configf("no hosts specified")
	}

	return hosts, nil
}

// Trim removes everything from the first '.' onward, used for display
// purposes only when the -t/--trim option is set. The underlying host
// entry used to build the transport command is unaffected.
func Trim(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// Validate rejects obviously malformed roster entries before any child is
// spawned, so a typo in a hosts file fails fast at exit code 2 instead of
// producing a confusing transport-program error later.
func Validate(raw string) error {
	switch {
	case raw == "":
		return fmt.Errorf("empty host name")
	case looksLikeIPv4(raw):
		if !validIPv4(raw) {
			return fmt.Errorf("bad IPv4 address: %q", raw)
		}
	case looksLikeIPv6(raw):
		if !validIPv6(raw) {
			return fmt.Errorf("bad IPv6 address: %q", raw)
		}
	default:
		if !validHostname(raw) {
			return fmt.Errorf("bad host name: %q", raw)
		}
	}
	return nil
}
