// Package sshargs composes the argument vector exec'd for each host.
//
// Design (adapted from pkg/remuxcmd.Builder):
//
//   - Pure "command construction" module: no execution, no I/O.
//   - A single canonical projection of intent: argv (the process argument
//     vector). The caller decides how to run it.
//   - argv is always transport-prefix..., host-name, remote-command...,
//     matching spec.md §4.2 exactly.
package sshargs

// Builder assembles the argv for one host's child process.
//
// One Builder serves every host of a run: Build never mutates its
// receiver, so the transport prefix and remote command are shared
// across hosts.
type Builder struct {
	transportPrefix []string
	remoteCommand   []string
}

// NewBuilder seeds a Builder with the transport program's fixed prefix
// (e.g. ["ssh", "-o", "StrictHostKeyChecking=no"]) and the command to run
// remotely on every host.
func NewBuilder(transportPrefix, remoteCommand []string) *Builder {
	return &Builder{
		transportPrefix: append([]string{}, transportPrefix...),
		remoteCommand:   append([]string{}, remoteCommand...),
	}
}

// Build returns the composed argv for the given host: transport prefix,
// then the host name, then the remote command. The returned slice is a
// fresh copy; mutating it never affects the Builder or other hosts.
func (b *Builder) Build(host string) []string {
	argv := make([]string, 0, len(b.transportPrefix)+1+len(b.remoteCommand))
	argv = append(argv, b.transportPrefix...)
	argv = append(argv, host)
	argv = append(argv, b.remoteCommand...)
	return argv
}
