//go:build linux

package drive

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// ioctlCDROMDriveStatus is CDROM_DRIVE_STATUS from linux/cdrom.h.
const ioctlCDROMDriveStatus = 0x5326

// CheckStatus asks the kernel cdrom driver for the tray state. It opens the
// device non-blocking so an empty drive does not stall.
func CheckStatus(devicePath string) (Status, error) {
	devicePath = strings.TrimSpace(devicePath)
	if devicePath == "" {
		return StatusNoInfo, fmt.Errorf("empty device path")
	}

	fd, err := unix.Open(devicePath, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return StatusNoInfo, fmt.Errorf("open %s: %w", devicePath, err)
	}
	defer unix.Close(fd) //nolint:errcheck

	r, err := unix.IoctlRetInt(fd, ioctlCDROMDriveStatus)
	if err != nil {
		return StatusNoInfo, fmt.Errorf("ioctl CDROM_DRIVE_STATUS on %s: %w", devicePath, err)
	}
	return Status(r), nil
}
