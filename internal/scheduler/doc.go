// Package scheduler runs medium probes in the background.
//
// Each probe gets its own goroutine that opens the device with bounded
// retry, waits for the drive to become ready, runs the probe engine and
// closes the device again. At most one probe is in flight per device.
// Finished probes are published on the Events channel; cancelled probes
// publish nothing.
//
// Job.Cancel does not return before the worker has exited, so callers may
// release whatever the probe touched as soon as it returns.
package scheduler
