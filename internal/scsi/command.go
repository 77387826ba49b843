package scsi

import (
	"context"
	"fmt"
	"time"
)

// Direction describes which way the data phase of a command moves.
type Direction int

const (
	// DirNone is used by commands without a data phase (TEST UNIT READY).
	DirNone Direction = iota
	// DirRead moves data from the device into Command.Buffer.
	DirRead
	// DirWrite moves Command.Buffer to the device.
	DirWrite
)

func (d Direction) String() string {
	switch d {
	case DirRead:
		return "read"
	case DirWrite:
		return "write"
	default:
		return "none"
	}
}

// Command is one CDB plus its optional data buffer.
type Command struct {
	CDB       []byte
	Direction Direction
	Buffer    []byte
	// Timeout overrides the device default when non-zero.
	Timeout time.Duration
}

// Opcode returns the operation code byte of the CDB.
func (c *Command) Opcode() byte {
	if c == nil || len(c.CDB) == 0 {
		return 0
	}
	return c.CDB[0]
}

// Validate checks the shape of the command before it reaches the device.
func (c *Command) Validate() error {
	if c == nil {
		return &Error{Code: ErrBadArgument, Detail: "nil command"}
	}
	switch len(c.CDB) {
	case 6, 10, 12, 16:
	default:
		return &Error{Op: OpcodeName(c.Opcode()), Code: ErrBadArgument, Detail: fmt.Sprintf("cdb length %d", len(c.CDB))}
	}
	if c.Direction != DirNone && len(c.Buffer) == 0 {
		return &Error{Op: OpcodeName(c.Opcode()), Code: ErrBadArgument, Detail: "data phase without buffer"}
	}
	return nil
}

// Transport sends one command to an open device and reports how many bytes
// of the data phase were transferred.
type Transport interface {
	Issue(ctx context.Context, cmd *Command) (int, error)
}

// Handle is an open device: a Transport that must be closed.
type Handle interface {
	Transport
	Path() string
	Close() error
}

// Opener opens a device node for probing.
type Opener interface {
	Open(path string) (Handle, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Handle, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Handle, error) { return f(path) }
