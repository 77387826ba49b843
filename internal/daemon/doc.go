// Package daemon runs watch mode: it keeps one probe scheduler alive, reacts
// to medium insertion and ejection on the configured drives, and records
// every finished probe in the history store.
//
// Insertions are detected from udev netlink events when available and from
// a CDROM_DRIVE_STATUS poll otherwise. A flock on the state directory keeps
// a second watcher from racing the first one for the same drives.
package daemon
