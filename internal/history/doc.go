// Package history persists finished probes in SQLite so the watch daemon
// keeps a record of every medium it has seen.
//
// Rows carry summary columns for listing plus the full JSON medium report.
// The schema is versioned; a database from another version is rejected and
// must be cleared.
package history
