package scsi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the discriminated outcome of one failed command. Each code is
// itself an error so it can be matched with errors.Is.
type ErrorCode int

const (
	ErrUnknown ErrorCode = iota + 1
	ErrBadArgument
	ErrSizeMismatch
	ErrNotReady
	ErrNoMedium
	ErrMediumChanged
	ErrBusy
	ErrPermission
	ErrNoDevice
	ErrTimeout
	ErrInvalidCommand
	ErrInvalidField
	ErrInvalidParameter
	ErrOutOfRange
	ErrInvalidAddress
	ErrInvalidTrackMode
	ErrKeyNotEstablished
	ErrMediumError
	ErrHardware
	ErrIO
	ErrUnsupported
)

var codeNames = map[ErrorCode]string{
	ErrUnknown:           "unknown scsi error",
	ErrBadArgument:       "bad argument",
	ErrSizeMismatch:      "response size mismatch",
	ErrNotReady:          "drive not ready",
	ErrNoMedium:          "no medium",
	ErrMediumChanged:     "medium may have changed",
	ErrBusy:              "device busy",
	ErrPermission:        "permission denied",
	ErrNoDevice:          "no such device",
	ErrTimeout:           "command timed out",
	ErrInvalidCommand:    "invalid command",
	ErrInvalidField:      "invalid field in cdb",
	ErrInvalidParameter:  "invalid parameter list",
	ErrOutOfRange:        "address out of range",
	ErrInvalidAddress:    "invalid address",
	ErrInvalidTrackMode:  "invalid track mode",
	ErrKeyNotEstablished: "key not established",
	ErrMediumError:       "medium error",
	ErrHardware:          "hardware error",
	ErrIO:                "i/o error",
	ErrUnsupported:       "unsupported platform",
}

func (c ErrorCode) Error() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("scsi error %d", int(c))
}

// String returns the short upper-case name used in logs.
func (c ErrorCode) String() string {
	return strings.ToUpper(strings.ReplaceAll(c.Error(), " ", "_"))
}

// Retryable reports whether waiting may clear the condition.
func (c ErrorCode) Retryable() bool {
	return c == ErrNotReady || c == ErrMediumChanged || c == ErrBusy
}

// Sense keys from fixed and descriptor format sense data.
const (
	SenseNoSense        byte = 0x00
	SenseRecovered      byte = 0x01
	SenseNotReady       byte = 0x02
	SenseMediumError    byte = 0x03
	SenseHardwareError  byte = 0x04
	SenseIllegalRequest byte = 0x05
	SenseUnitAttention  byte = 0x06
	SenseDataProtect    byte = 0x07
	SenseAbortedCommand byte = 0x0B
)

// Sense is the decoded key/ASC/ASCQ triple of a check condition.
type Sense struct {
	Key  byte
	ASC  byte
	ASCQ byte
}

func (s Sense) String() string {
	return fmt.Sprintf("key=0x%02x asc=0x%02x ascq=0x%02x", s.Key, s.ASC, s.ASCQ)
}

// ParseSense decodes fixed (0x70/0x71) or descriptor (0x72/0x73) sense data.
func ParseSense(buf []byte) (Sense, bool) {
	if len(buf) < 1 {
		return Sense{}, false
	}
	switch buf[0] & 0x7F {
	case 0x70, 0x71:
		if len(buf) < 3 {
			return Sense{}, false
		}
		s := Sense{Key: buf[2] & 0x0F}
		if len(buf) >= 14 {
			s.ASC = buf[12]
			s.ASCQ = buf[13]
		}
		return s, true
	case 0x72, 0x73:
		if len(buf) < 4 {
			return Sense{}, false
		}
		return Sense{Key: buf[1] & 0x0F, ASC: buf[2], ASCQ: buf[3]}, true
	default:
		return Sense{}, false
	}
}

// Code maps sense data to an ErrorCode.
func (s Sense) Code() ErrorCode {
	switch s.Key {
	case SenseNoSense, SenseRecovered:
		return ErrUnknown
	case SenseNotReady:
		if s.ASC == 0x3A {
			return ErrNoMedium
		}
		return ErrNotReady
	case SenseMediumError:
		return ErrMediumError
	case SenseHardwareError:
		return ErrHardware
	case SenseIllegalRequest:
		switch s.ASC {
		case 0x20:
			return ErrInvalidCommand
		case 0x21:
			if s.ASCQ == 0x02 {
				return ErrInvalidAddress
			}
			return ErrOutOfRange
		case 0x24:
			return ErrInvalidField
		case 0x26:
			return ErrInvalidParameter
		case 0x64:
			return ErrInvalidTrackMode
		case 0x6F:
			return ErrKeyNotEstablished
		}
		return ErrInvalidField
	case SenseUnitAttention:
		switch s.ASC {
		case 0x28:
			return ErrMediumChanged
		case 0x3A:
			return ErrNoMedium
		}
		return ErrNotReady
	default:
		return ErrUnknown
	}
}

// Error is the failure of one command.
type Error struct {
	// Op names the command or system call that failed.
	Op       string
	Code     ErrorCode
	Sense    *Sense
	Err      error
	Detail   string
	Received int
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Code.Error())
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteByte(')')
	}
	if e.Sense != nil {
		b.WriteString(" [")
		b.WriteString(e.Sense.String())
		b.WriteByte(']')
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the code and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code}
	}
	return []error{e.Code, e.Err}
}

// CodeOf extracts the ErrorCode carried by err. Nil yields zero and errors
// that did not come from a device yield ErrUnknown.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return 0
	}
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	return ErrUnknown
}

// SenseError builds the error for a check condition.
func SenseError(op byte, sense Sense) *Error {
	s := sense
	return &Error{Op: OpcodeName(op), Code: sense.Code(), Sense: &s}
}

// ErrnoError maps an OS level failure to a typed error.
func ErrnoError(op byte, err error) *Error {
	return &Error{Op: OpcodeName(op), Code: errnoCode(err), Err: err}
}

// ShortResponse reports a payload smaller than the command's minimum size.
func ShortResponse(op byte, got, want int) *Error {
	return &Error{
		Op:       OpcodeName(op),
		Code:     ErrSizeMismatch,
		Detail:   fmt.Sprintf("received %d bytes, need %d", got, want),
		Received: got,
	}
}
