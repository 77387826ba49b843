// Package scsi issues single SCSI command descriptor blocks to an optical
// drive and maps every failure into a typed ErrorCode.
//
// The transport never interprets payload bytes. Callers build the CDB, pick a
// direction and hand over a buffer; Issue returns the number of bytes the
// device actually transferred. Check-condition sense data, ioctl errno values
// and short host/driver statuses all surface as *Error values that unwrap to
// one of the Err* codes, so callers branch with errors.Is.
package scsi
