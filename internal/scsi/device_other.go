//go:build !linux

package scsi

import (
	"context"
	"time"
)

// Device is unavailable outside Linux.
type Device struct{ path string }

// OpenOptions controls how a device node is opened.
type OpenOptions struct {
	Exclusive bool
	Timeout   time.Duration
}

// DefaultCommandTimeout matches the usual sg driver default.
const DefaultCommandTimeout = 30 * time.Second

// Open always fails with ErrUnsupported.
func Open(path string, _ OpenOptions) (*Device, error) {
	return nil, &Error{Op: "open " + path, Code: ErrUnsupported}
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

func (d *Device) Path() string { return d.path }

func (d *Device) Close() error { return nil }

func (d *Device) Issue(context.Context, *Command) (int, error) {
	return 0, &Error{Code: ErrUnsupported}
}
