package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"discprobe/internal/drive"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDeviceAccess verifies that path is a device node the current user can
// open. Read-only access passes; most MMC reads work without write access.
func CheckDeviceAccess(path string) Result {
	name := "Drive " + path
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: "error: does not exist"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("error: stat: %v", err)}
	}
	if info.Mode()&os.ModeDevice == 0 {
		return Result{Name: name, Detail: "error: not a device node"}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("error: insufficient permissions: %v (add the user to the cdrom or optical group)", err)}
	}
	if err := unix.Access(path, unix.W_OK); err != nil {
		return Result{Name: name, Passed: true, Detail: "read-only access"}
	}
	return Result{Name: name, Passed: true, Detail: "read/write ok"}
}

// TrayStatus reports what the kernel cdrom driver knows about the tray.
type TrayStatus struct {
	Device string
	Status drive.Status
	Err    error
}

// CheckTray reads the tray state of device.
func CheckTray(device string) TrayStatus {
	st, err := drive.CheckStatus(device)
	return TrayStatus{Device: device, Status: st, Err: err}
}

// Detail renders a display-friendly summary for status output.
func (s TrayStatus) Detail() string {
	if s.Err != nil {
		return fmt.Sprintf("unknown (%v)", s.Err)
	}
	switch s.Status {
	case drive.StatusDiscOK:
		return "Disc loaded"
	case drive.StatusNotReady:
		return "Disc spinning up"
	case drive.StatusTrayOpen:
		return "Tray open"
	case drive.StatusNoDisc:
		return "No disc"
	default:
		return "No information"
	}
}
