package scheduler

import (
	"context"
	"sync"
	"time"

	"discprobe/internal/media"
)

// State is the lifecycle position of one probe.
type State int

const (
	NotProbed State = iota
	Probing
	Probed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case NotProbed:
		return "not_probed"
	case Probing:
		return "probing"
	case Probed:
		return "probed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Event reports the end of a probe that was not cancelled.
type Event struct {
	ProbeID  string
	Device   string
	State    State
	Medium   *media.Medium
	Err      error
	Started  time.Time
	Finished time.Time
}

// Job is the handle of one in-flight or finished probe.
type Job struct {
	id      string
	device  string
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	state  State
	medium *media.Medium
	err    error
}

func newJob(id, device string, started time.Time, cancel context.CancelFunc) *Job {
	return &Job{
		id:      id,
		device:  device,
		started: started,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   NotProbed,
	}
}

// ID returns the probe identifier used in logs and history.
func (j *Job) ID() string { return j.id }

// Device returns the device path being probed.
func (j *Job) Device() string { return j.device }

// Done is closed once the worker has exited.
func (j *Job) Done() <-chan struct{} { return j.done }

// State returns the current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Cancel asks the worker to stop and waits until it has exited. It is safe
// to call more than once and after the probe finished.
func (j *Job) Cancel() {
	j.cancel()
	<-j.done
}

// Wait blocks until the probe ends or ctx is done. The medium is only
// returned for a completed probe.
func (j *Job) Wait(ctx context.Context) (*media.Medium, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.medium, j.err
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *Job) finish(s State, m *media.Medium, err error) {
	j.mu.Lock()
	j.state = s
	j.medium = m
	j.err = err
	j.mu.Unlock()
}
