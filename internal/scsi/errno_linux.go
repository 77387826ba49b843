package scsi

import (
	"errors"

	"golang.org/x/sys/unix"
)

func errnoCode(err error) ErrorCode {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return ErrIO
	}
	switch errno {
	case unix.EBUSY:
		return ErrBusy
	case unix.EACCES, unix.EPERM, unix.EROFS:
		return ErrPermission
	case unix.ENOMEDIUM:
		return ErrNoMedium
	case unix.ETIMEDOUT:
		return ErrTimeout
	case unix.EINVAL:
		return ErrBadArgument
	case unix.ENOENT, unix.ENODEV, unix.ENXIO:
		return ErrNoDevice
	case unix.EAGAIN:
		return ErrNotReady
	default:
		return ErrIO
	}
}
