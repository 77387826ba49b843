package testsupport

import (
	"context"
	"sync"

	"discprobe/internal/scsi"
)

// Responder produces the full reply for one command. The fake copies as much
// of it as fits into the caller's buffer.
type Responder func(cdb []byte) ([]byte, error)

// Call records one command seen by a FakeDrive.
type Call struct {
	CDB       []byte
	Direction scsi.Direction
	Data      []byte
}

// Opcode returns the first CDB byte.
func (c Call) Opcode() byte { return c.CDB[0] }

// FakeDrive is a scripted scsi.Handle. Commands without a responder fail with
// ILLEGAL REQUEST / INVALID COMMAND, like a drive that lacks the opcode.
type FakeDrive struct {
	path string

	mu         sync.Mutex
	responders map[byte]Responder
	calls      []Call
	closed     bool
	onIssue    func(Call)
}

// NewFakeDrive returns an empty fake for the given device path.
func NewFakeDrive(path string) *FakeDrive {
	return &FakeDrive{path: path, responders: make(map[byte]Responder)}
}

// Handle installs a responder for an opcode, replacing any previous one.
func (f *FakeDrive) Handle(op byte, r Responder) *FakeDrive {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responders[op] = r
	return f
}

// Reply answers every command with opcode op with the same payload.
func (f *FakeDrive) Reply(op byte, data []byte) *FakeDrive {
	payload := append([]byte(nil), data...)
	return f.Handle(op, func([]byte) ([]byte, error) { return payload, nil })
}

// Fail answers every command with opcode op with err.
func (f *FakeDrive) Fail(op byte, err error) *FakeDrive {
	return f.Handle(op, func([]byte) ([]byte, error) { return nil, err })
}

// OnIssue registers a hook run before each command is answered.
func (f *FakeDrive) OnIssue(fn func(Call)) {
	f.mu.Lock()
	f.onIssue = fn
	f.mu.Unlock()
}

// Issue implements scsi.Transport.
func (f *FakeDrive) Issue(ctx context.Context, cmd *scsi.Command) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := cmd.Validate(); err != nil {
		return 0, err
	}
	call := Call{CDB: append([]byte(nil), cmd.CDB...), Direction: cmd.Direction}
	if cmd.Direction == scsi.DirWrite {
		call.Data = append([]byte(nil), cmd.Buffer...)
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, &scsi.Error{Op: scsi.OpcodeName(call.Opcode()), Code: scsi.ErrNoDevice}
	}
	f.calls = append(f.calls, call)
	responder := f.responders[call.Opcode()]
	hook := f.onIssue
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if responder == nil {
		return 0, IllegalRequest(call.Opcode(), 0x20)
	}
	reply, err := responder(call.CDB)
	if err != nil {
		return 0, err
	}
	if cmd.Direction != scsi.DirRead {
		return 0, nil
	}
	return copy(cmd.Buffer, reply), nil
}

// Path implements scsi.Handle.
func (f *FakeDrive) Path() string { return f.path }

// Close implements scsi.Handle.
func (f *FakeDrive) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeDrive) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Calls returns a copy of the recorded commands.
func (f *FakeDrive) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many commands with opcode op were issued.
func (f *FakeDrive) Count(op byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Opcode() == op {
			n++
		}
	}
	return n
}

// Opener returns an opener that always hands out this fake.
func (f *FakeDrive) Opener() scsi.Opener {
	return scsi.OpenerFunc(func(path string) (scsi.Handle, error) {
		f.mu.Lock()
		f.closed = false
		f.mu.Unlock()
		return f, nil
	})
}

// IllegalRequest builds the error a drive returns for an unsupported command
// or field.
func IllegalRequest(op byte, asc byte) error {
	return scsi.SenseError(op, scsi.Sense{Key: scsi.SenseIllegalRequest, ASC: asc})
}

// NotReady builds a NOT READY sense error. ASC 0x3A means no medium.
func NotReady(op byte, asc byte) error {
	return scsi.SenseError(op, scsi.Sense{Key: scsi.SenseNotReady, ASC: asc})
}

func mediumError(op byte) error {
	return scsi.SenseError(op, scsi.Sense{Key: scsi.SenseMediumError, ASC: 0x11})
}
