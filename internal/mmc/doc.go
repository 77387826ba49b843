// Package mmc binds the MMC and SPC commands used to probe optical media.
//
// Every command has one function that builds its CDB, sends it through a
// scsi.Transport, checks the minimum response size and decodes the payload
// with the wire layouts in layouts.go. Commands with self-describing lengths
// use a two-phase read: a header-sized request learns the true length and a
// second request fetches the full payload. A drive that reports a larger
// length on the second reply gets exactly one more request.
package mmc
