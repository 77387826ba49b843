//go:build !linux

package drive

import (
	"fmt"

	"discprobe/internal/scsi"
)

// CheckStatus is only available on Linux.
func CheckStatus(devicePath string) (Status, error) {
	return StatusNoInfo, fmt.Errorf("drive status %s: %w", devicePath, scsi.ErrUnsupported)
}
