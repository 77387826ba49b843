// Package main hosts the discprobe CLI entrypoint and command graph.
//
// The Cobra command tree probes a drive once, runs watch mode, lists the
// probe history and reports drive readiness. Configuration resolution and
// logger setup live in the command context so subcommands stay small.
package main
