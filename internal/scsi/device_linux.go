package scsi

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	sgIO = 0x2285

	sgDxferNone    = -1
	sgDxferToDev   = -2
	sgDxferFromDev = -3

	sgInfoOKMask = 0x1
	sgInfoOK     = 0x0

	senseBufferSize = 64

	driverSense = 0x08
	statusCheck = 0x02
)

// sgIOHdr mirrors struct sg_io_hdr from <scsi/sg.h>.
type sgIOHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         unsafe.Pointer
	cmdp           unsafe.Pointer
	sbp            unsafe.Pointer
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         unsafe.Pointer
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

// Device is an open SG_IO capable block device node.
type Device struct {
	fd      int
	path    string
	timeout time.Duration
}

// OpenOptions controls how a device node is opened.
type OpenOptions struct {
	// Exclusive requests O_EXCL so a mounted or burning drive reports busy.
	Exclusive bool
	// Timeout is the default per-command timeout.
	Timeout time.Duration
}

// DefaultCommandTimeout matches the usual sg driver default.
const DefaultCommandTimeout = 30 * time.Second

// Open opens path read-write and falls back to read-only, matching what
// unprivileged users usually get on /dev/sr* nodes.
func Open(path string, opts OpenOptions) (*Device, error) {
	flags := unix.O_RDWR | unix.O_NONBLOCK | unix.O_CLOEXEC
	if opts.Exclusive {
		flags |= unix.O_EXCL
	}
	fd, err := unix.Open(path, flags, 0)
	if err != nil && (errors.Is(err, unix.EACCES) || errors.Is(err, unix.EROFS)) {
		flags = (flags &^ unix.O_RDWR) | unix.O_RDONLY
		fd, err = unix.Open(path, flags, 0)
	}
	if err != nil {
		return nil, &Error{Op: "open " + path, Code: errnoCode(err), Err: err}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Device{fd: fd, path: path, timeout: timeout}, nil
}

// Opener returns an Opener that opens devices with opts.
func (opts OpenOptions) Opener() Opener {
	return OpenerFunc(func(path string) (Handle, error) {
		dev, err := Open(path, opts)
		if err != nil {
			return nil, err
		}
		return dev, nil
	})
}

// Path returns the device node path.
func (d *Device) Path() string { return d.path }

// Close releases the file descriptor.
func (d *Device) Close() error {
	if d == nil || d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	if err != nil {
		return fmt.Errorf("close %s: %w", d.path, err)
	}
	return nil
}

// Issue sends cmd through the SG_IO ioctl.
func (d *Device) Issue(ctx context.Context, cmd *Command) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if d.fd < 0 {
		return 0, &Error{Op: OpcodeName(cmd.Opcode()), Code: ErrBadArgument, Detail: "device closed"}
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = d.timeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}

	sense := make([]byte, senseBufferSize)
	hdr := sgIOHdr{
		interfaceID: 'S',
		cmdLen:      uint8(len(cmd.CDB)),
		mxSbLen:     uint8(len(sense)),
		cmdp:        unsafe.Pointer(&cmd.CDB[0]),
		sbp:         unsafe.Pointer(&sense[0]),
		timeout:     uint32(timeout / time.Millisecond),
	}
	switch cmd.Direction {
	case DirRead:
		hdr.dxferDirection = sgDxferFromDev
	case DirWrite:
		hdr.dxferDirection = sgDxferToDev
	default:
		hdr.dxferDirection = sgDxferNone
	}
	if cmd.Direction != DirNone {
		hdr.dxferLen = uint32(len(cmd.Buffer))
		hdr.dxferp = unsafe.Pointer(&cmd.Buffer[0])
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), sgIO, uintptr(unsafe.Pointer(&hdr)))
	runtime.KeepAlive(cmd)
	runtime.KeepAlive(sense)
	if errno != 0 {
		return 0, ErrnoError(cmd.Opcode(), errno)
	}

	received := int(hdr.dxferLen) - int(hdr.resid)
	if received < 0 {
		received = 0
	}
	if hdr.info&sgInfoOKMask == sgInfoOK {
		return received, nil
	}

	if hdr.sbLenWr > 0 && (hdr.status == statusCheck || hdr.maskedStatus == statusCheck>>1 || hdr.driverStatus&driverSense != 0) {
		if parsed, ok := ParseSense(sense[:hdr.sbLenWr]); ok {
			serr := SenseError(cmd.Opcode(), parsed)
			serr.Received = received
			return received, serr
		}
	}
	if hdr.hostStatus != 0 {
		return received, &Error{
			Op:       OpcodeName(cmd.Opcode()),
			Code:     hostStatusCode(hdr.hostStatus),
			Detail:   fmt.Sprintf("host status 0x%02x", hdr.hostStatus),
			Received: received,
		}
	}
	return received, &Error{
		Op:       OpcodeName(cmd.Opcode()),
		Code:     ErrUnknown,
		Detail:   fmt.Sprintf("status 0x%02x driver 0x%02x", hdr.status, hdr.driverStatus),
		Received: received,
	}
}

func hostStatusCode(status uint16) ErrorCode {
	switch status {
	case 0x01, 0x04:
		return ErrNoDevice
	case 0x02:
		return ErrBusy
	case 0x03:
		return ErrTimeout
	default:
		return ErrIO
	}
}
