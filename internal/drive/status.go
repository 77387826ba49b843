package drive

import "fmt"

// Status is the result of the CDROM_DRIVE_STATUS ioctl.
type Status int

const (
	StatusNoInfo   Status = 0
	StatusNoDisc   Status = 1
	StatusTrayOpen Status = 2
	StatusNotReady Status = 3
	StatusDiscOK   Status = 4
)

// String returns the label used in logs and CLI output.
func (s Status) String() string {
	switch s {
	case StatusNoInfo:
		return "no_info"
	case StatusNoDisc:
		return "no_disc"
	case StatusTrayOpen:
		return "tray_open"
	case StatusNotReady:
		return "not_ready"
	case StatusDiscOK:
		return "disc_ok"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// HasDisc reports whether the tray holds a medium, ready or not.
func (s Status) HasDisc() bool {
	return s == StatusDiscOK || s == StatusNotReady
}
