// Package config loads, normalizes, and validates discprobe configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the DISCPROBE_DEVICE environment
// override. Probe retry bounds and the track-size heuristics live here so
// they can be re-validated against new hardware without a rebuild.
package config
