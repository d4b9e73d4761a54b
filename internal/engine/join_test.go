package engine

import (
	"bytes"
	"strings"
	"testing"
)

// hostWithCaptured builds a test host whose child already has captured
// output, as if join mode had run to completion.
func hostWithCaptured(name string, idx int, captured string) *Host {
	h := newTestHost(name, idx)
	h.Child.Captured = []byte(captured)
	return h
}

// TestPartitionJoinOutputIdenticalOutputOneGroup covers spec.md §8
// scenario 1: two hosts with byte-identical captured output fall into a
// single equivalence class containing both, in roster order.
func TestPartitionJoinOutputIdenticalOutputOneGroup(t *testing.T) {
	h1 := hostWithCaptured("host1", 0, "same output\n")
	h2 := hostWithCaptured("host2", 1, "same output\n")

	groups := partitionJoinOutput([]*Host{h1, h2})

	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if len(groups[0].hosts) != 2 {
		t.Fatalf("got %d hosts in the group, want 2", len(groups[0].hosts))
	}
	if groups[0].hosts[0] != h1 || groups[0].hosts[1] != h2 {
		t.Errorf("group members out of roster order: got %v", groups[0].hosts)
	}
	if string(groups[0].output) != "same output\n" {
		t.Errorf("group output = %q, want %q", groups[0].output, "same output\n")
	}
}

// TestPartitionJoinOutputAllDifferentSingletons covers the other half of
// spec.md §8 scenario 1: every host with distinct output becomes its own
// singleton class, and the union of class memberships equals the full
// roster with no overlap.
func TestPartitionJoinOutputAllDifferentSingletons(t *testing.T) {
	hosts := []*Host{
		hostWithCaptured("host1", 0, "output one\n"),
		hostWithCaptured("host2", 1, "output two\n"),
		hostWithCaptured("host3", 2, "output three\n"),
	}

	groups := partitionJoinOutput(hosts)

	if len(groups) != len(hosts) {
		t.Fatalf("got %d groups, want %d (one per host)", len(groups), len(hosts))
	}

	seen := make(map[*Host]bool)
	for _, g := range groups {
		if len(g.hosts) != 1 {
			t.Errorf("group %v has %d members, want 1", g.hosts, len(g.hosts))
		}
		for _, h := range g.hosts {
			if seen[h] {
				t.Errorf("host %s appears in more than one group", h.Name)
			}
			seen[h] = true
		}
	}
	for _, h := range hosts {
		if !seen[h] {
			t.Errorf("host %s missing from every group: union of groups must equal the roster", h.Name)
		}
	}
}

// TestPartitionJoinOutputMixedGroups mixes the two cases: a pair of
// hosts sharing output alongside a third with distinct output, verifying
// classes stay disjoint and every host is accounted for exactly once.
func TestPartitionJoinOutputMixedGroups(t *testing.T) {
	h1 := hostWithCaptured("host1", 0, "shared\n")
	h2 := hostWithCaptured("host2", 1, "unique\n")
	h3 := hostWithCaptured("host3", 2, "shared\n")

	groups := partitionJoinOutput([]*Host{h1, h2, h3})

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	total := 0
	for _, g := range groups {
		total += len(g.hosts)
	}
	if total != 3 {
		t.Errorf("groups contain %d hosts total, want 3 (classes must be disjoint and cover the roster)", total)
	}

	// The group containing host1 should also contain host3, not host2.
	for _, g := range groups {
		for _, h := range g.hosts {
			if h == h1 {
				if len(g.hosts) != 2 {
					t.Fatalf("host1's group has %d members, want 2 (host1 and host3)", len(g.hosts))
				}
				if g.hosts[0] != h1 || g.hosts[1] != h3 {
					t.Errorf("host1's group = %v, want [host1 host3]", g.hosts)
				}
			}
		}
	}
}

// TestWriteJoinReportIdenticalOutput renders the single-group case and
// checks the summary count, the shared host listing, and that the
// captured output appears once per group, not once per host.
func TestWriteJoinReportIdenticalOutput(t *testing.T) {
	h1 := hostWithCaptured("host1", 0, "same output\n")
	h2 := hostWithCaptured("host2", 1, "same output\n")

	var out bytes.Buffer
	if err := writeJoinReport(&out, []*Host{h1, h2}, Palette{}); err != nil {
		t.Fatalf("writeJoinReport returned error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "finished with 1 unique result") {
		t.Errorf("missing unique-result summary line: %q", got)
	}
	if !strings.Contains(got, "hosts (2/2):") {
		t.Errorf("missing member-count header: %q", got)
	}
	if !strings.Contains(got, "host1") || !strings.Contains(got, "host2") {
		t.Errorf("missing one of the member hosts: %q", got)
	}
	if strings.Count(got, "same output") != 1 {
		t.Errorf("expected the shared output to appear exactly once, got %q", got)
	}
}

// TestWriteJoinReportAllDifferent renders the all-singletons case and
// checks every host gets its own block with its own output.
func TestWriteJoinReportAllDifferent(t *testing.T) {
	hosts := []*Host{
		hostWithCaptured("host1", 0, "output one\n"),
		hostWithCaptured("host2", 1, "output two\n"),
	}

	var out bytes.Buffer
	if err := writeJoinReport(&out, hosts, Palette{}); err != nil {
		t.Fatalf("writeJoinReport returned error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "finished with 2 unique results") {
		t.Errorf("missing unique-result summary line: %q", got)
	}
	if strings.Count(got, "hosts (1/2):") != 2 {
		t.Errorf("expected two singleton-group headers, got %q", got)
	}
	if !strings.Contains(got, "output one\n") || !strings.Contains(got, "output two\n") {
		t.Errorf("missing one of the distinct outputs: %q", got)
	}
}

// TestWriteJoinReportAddsMissingTrailingNewline checks that output not
// already ending in '\n' still gets one inserted before the blank
// separator line, so blocks never run together.
func TestWriteJoinReportAddsMissingTrailingNewline(t *testing.T) {
	h := hostWithCaptured("host1", 0, "no trailing newline")

	var out bytes.Buffer
	if err := writeJoinReport(&out, []*Host{h}, Palette{}); err != nil {
		t.Fatalf("writeJoinReport returned error: %v", err)
	}

	if !strings.Contains(out.String(), "no trailing newline\n\n") {
		t.Errorf("expected a newline to be appended before the blank separator, got %q", out.String())
	}
}

// TestJoinResultsMatchesReportGrouping checks the exported, io-free
// JoinResults view groups identically to writeJoinReport's internal
// partitioning, since callers like the optional history feature rely on
// the two staying in sync.
func TestJoinResultsMatchesReportGrouping(t *testing.T) {
	h1 := hostWithCaptured("host1", 0, "same\n")
	h2 := hostWithCaptured("host2", 1, "same\n")
	h3 := hostWithCaptured("host3", 2, "different\n")

	results := JoinResults([]*Host{h1, h2, h3})

	if len(results) != 2 {
		t.Fatalf("got %d result groups, want 2", len(results))
	}
	if len(results[0].Hosts) != 2 || results[0].Hosts[0] != "host1" || results[0].Hosts[1] != "host2" {
		t.Errorf("first group = %v, want [host1 host2]", results[0].Hosts)
	}
	if string(results[0].Output) != "same\n" {
		t.Errorf("first group output = %q, want %q", results[0].Output, "same\n")
	}
	if len(results[1].Hosts) != 1 || results[1].Hosts[0] != "host3" {
		t.Errorf("second group = %v, want [host3]", results[1].Hosts)
	}
}

func TestPluralize(t *testing.T) {
	if got := pluralize(1); got != "" {
		t.Errorf("pluralize(1) = %q, want %q", got, "")
	}
	if got := pluralize(0); got != "s" {
		t.Errorf("pluralize(0) = %q, want %q", got, "s")
	}
	if got := pluralize(2); got != "s" {
		t.Errorf("pluralize(2) = %q, want %q", got, "s")
	}
}
