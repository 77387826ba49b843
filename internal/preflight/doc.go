// Package preflight provides readiness checks for the drives and paths
// discprobe depends on.
//
// The CLI "drive status" command and watch mode startup both call RunAll;
// a failed check is reported but does not stop the caller.
package preflight
