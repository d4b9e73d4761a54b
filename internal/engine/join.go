package engine

import (
	"bytes"
	"io"
)

// joinGroup is one equivalence class of hosts whose captured output was
// byte-identical (spec.md §4.8).
type joinGroup struct {
	hosts  []*Host
	output []byte
}

// partitionJoinOutput groups hosts by byte-exact output equality,
// preserving roster order both across groups (a group's position is set
// by its first member's roster position) and within a group (members
// appear in roster order). This mirrors join_mode_finish's O(N²·L)
// pairwise comparison exactly rather than hashing, since the original
// never hashes and the roster sizes this tool targets make the
// quadratic pass cheap enough to not matter.
func partitionJoinOutput(hosts []*Host) []joinGroup {
	assigned := make([]bool, len(hosts))
	var groups []joinGroup

	for i, h1 := range hosts {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		group := joinGroup{hosts: []*Host{h1}, output: h1.Child.Captured}

		for j := i + 1; j < len(hosts); j++ {
			if assigned[j] {
				continue
			}
			h2 := hosts[j]
			if bytes.Equal(h1.Child.Captured, h2.Child.Captured) {
				assigned[j] = true
				group.hosts = append(group.hosts, h2)
			}
		}

		groups = append(groups, group)
	}

	return groups
}

// writeJoinReport renders the join-mode summary spec.md §4.8 describes:
// a unique-result count, then one block per equivalence class listing
// its member hosts followed by their shared output. Every write is
// checked against a short count the same way the rest of the engine's
// output is (spec.md §4.9): a failure here aborts the run.
func writeJoinReport(out io.Writer, hosts []*Host, pal Palette) error {
	groups := partitionJoinOutput(hosts)

	if err := writeAllf(out, "\nfinished with %s%d%s unique result%s\n\n",
		pal.Magenta, len(groups), pal.Reset, pluralize(len(groups))); err != nil {
		return err
	}

	for _, g := range groups {
		if err := writeAllf(out, "hosts (%s%d%s/%s%d%s):%s",
			pal.Magenta, len(g.hosts), pal.Reset,
			pal.Magenta, len(hosts), pal.Reset,
			pal.Cyan); err != nil {
			return err
		}
		for _, h := range g.hosts {
			if err := writeAllf(out, " %s", h.Display); err != nil {
				return err
			}
		}
		if err := writeAllf(out, "%s\n", pal.Reset); err != nil {
			return err
		}

		if err := writeAll(out, g.output); err != nil {
			return err
		}
		if len(g.output) == 0 || g.output[len(g.output)-1] != '\n' {
			if err := writeAll(out, []byte("\n")); err != nil {
				return err
			}
		}
		if err := writeAll(out, []byte("\n")); err != nil {
			return err
		}
	}
	return nil
}

// ResultGroup is the exported, data-only view of a join equivalence
// class, for callers outside the engine package (the optional history
// feature) that need the same grouping without an io.Writer in hand.
type ResultGroup struct {
	Hosts  []string
	Output []byte
}

// JoinResults returns the join equivalence classes for hosts, in the
// same grouping writeJoinReport renders. Only meaningful once every
// host's child has exited in join mode.
func JoinResults(hosts []*Host) []ResultGroup {
	groups := partitionJoinOutput(hosts)
	out := make([]ResultGroup, len(groups))
	for i, g := range groups {
		names := make([]string, len(g.hosts))
		for j, h := range g.hosts {
			names[j] = h.Display
		}
		out[i] = ResultGroup{Hosts: names, Output: g.output}
	}
	return out
}

// pluralize returns "s" unless num is exactly 1.
func pluralize(num int) string {
	if num == 1 {
		return ""
	}
	return "s"
}

// writeProgressLine repaints the single-line "finished N/M" counter join
// mode shows on a TTY while the run is in flight (spec.md §4.8).
func writeProgressLine(out io.Writer, progName string, done, total int, pal Palette) error {
	return writeAllf(out, "[%s%s%s] finished %s%d%s/%s%d%s\r",
		pal.Cyan, progName, pal.Reset,
		pal.Magenta, done, pal.Reset,
		pal.Magenta, total, pal.Reset)
}
