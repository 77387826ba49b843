//go:build !linux

package scsi

func errnoCode(error) ErrorCode {
	return ErrIO
}
