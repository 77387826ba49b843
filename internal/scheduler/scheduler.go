package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"discprobe/internal/config"
	"discprobe/internal/logging"
	"discprobe/internal/media"
	"discprobe/internal/mmc"
	"discprobe/internal/scsi"
)

var (
	// ErrProbeInFlight is returned when a device already has a running probe.
	ErrProbeInFlight = errors.New("probe already in flight for device")
	// ErrClosed is returned by Probe after Close.
	ErrClosed = errors.New("scheduler closed")
	// ErrNotReady is returned when the drive stays not ready for every poll.
	ErrNotReady = errors.New("drive did not become ready")
)

// Prober turns an open transport into a medium.
type Prober interface {
	Probe(ctx context.Context, t scsi.Transport) (*media.Medium, error)
}

// Options configures a Scheduler.
type Options struct {
	Opener            scsi.Opener
	Prober            Prober
	OpenAttempts      int
	OpenRetryInterval time.Duration
	ReadyAttempts     int
	ReadyPollInterval time.Duration
	// EventBuffer sizes the Events channel.
	EventBuffer int
	Logger      *slog.Logger
	Now         func() time.Time
}

// OptionsFromConfig fills the retry bounds from cfg.
func OptionsFromConfig(cfg *config.Config, opener scsi.Opener, prober Prober, logger *slog.Logger) Options {
	return Options{
		Opener:            opener,
		Prober:            prober,
		OpenAttempts:      cfg.Probe.OpenAttempts,
		OpenRetryInterval: cfg.OpenRetryInterval(),
		ReadyAttempts:     cfg.Probe.ReadyAttempts,
		ReadyPollInterval: cfg.ReadyPollInterval(),
		Logger:            logger,
	}
}

// Scheduler owns the probe workers.
type Scheduler struct {
	opts   Options
	logger *slog.Logger
	events chan Event

	mu     sync.Mutex
	jobs   map[string]*Job
	closed bool
	wg     sync.WaitGroup
}

// New returns a Scheduler. Zero retry bounds mean a single attempt.
func New(opts Options) *Scheduler {
	if opts.OpenAttempts <= 0 {
		opts.OpenAttempts = 1
	}
	if opts.ReadyAttempts <= 0 {
		opts.ReadyAttempts = 1
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "scheduler"),
		events: make(chan Event, opts.EventBuffer),
		jobs:   make(map[string]*Job),
	}
}

// Events delivers one Event per probe that completed or failed. The channel
// is closed by Close.
func (s *Scheduler) Events() <-chan Event { return s.events }

// Probe starts a background probe of device. ctx bounds the probe; Close and
// Job.Cancel stop it early.
func (s *Scheduler) Probe(ctx context.Context, device string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if job, ok := s.jobs[device]; ok {
		select {
		case <-job.Done():
		default:
			return nil, fmt.Errorf("%s: %w", device, ErrProbeInFlight)
		}
	}

	id := uuid.NewString()
	jobCtx, cancel := context.WithCancel(ctx)
	jobCtx = logging.WithDevice(logging.WithProbeID(jobCtx, id), device)
	job := newJob(id, device, s.opts.Now(), cancel)
	s.jobs[device] = job

	s.wg.Add(1)
	go s.run(jobCtx, job)
	return job, nil
}

// Job returns the latest job for device.
func (s *Scheduler) Job(device string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[device]
	return job, ok
}

// Cancel stops the probe of device, if any, and waits for its worker.
func (s *Scheduler) Cancel(device string) bool {
	job, ok := s.Job(device)
	if !ok {
		return false
	}
	job.Cancel()
	return true
}

// Close cancels every probe, waits for the workers and closes Events.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()

	for _, job := range jobs {
		job.cancel()
	}
	s.wg.Wait()
	close(s.events)
}

func (s *Scheduler) run(ctx context.Context, job *Job) {
	defer s.wg.Done()
	defer close(job.done)
	defer job.cancel()

	logger := logging.WithContext(ctx, s.logger)
	job.setState(Probing)
	logger.Debug("probe started")

	m, err := s.probe(ctx, logger, job.device)
	if ctx.Err() != nil {
		job.finish(Cancelled, nil, ctx.Err())
		logger.Debug("probe cancelled")
		return
	}

	ev := Event{
		ProbeID:  job.id,
		Device:   job.device,
		Medium:   m,
		Err:      err,
		Started:  job.started,
		Finished: s.opts.Now(),
	}
	if err != nil {
		ev.State = Failed
		logging.WarnWithContext(logger, "medium unreadable", "probe_failed",
			logging.String(logging.FieldSCSICode, scsi.CodeOf(err).String()),
			logging.String(logging.FieldErrorHint, "check the disc surface or try another drive"),
			logging.Error(err),
		)
	} else {
		ev.State = Probed
	}
	job.finish(ev.State, m, err)

	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// probe owns the device handle for the duration of one probe.
func (s *Scheduler) probe(ctx context.Context, logger *slog.Logger, device string) (*media.Medium, error) {
	handle, err := s.open(ctx, logger, device)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := handle.Close(); cerr != nil {
			logger.Debug("device close failed", logging.Error(cerr))
		}
	}()

	guard := scsi.NewGuard(ctx, handle)
	if err := s.waitReady(ctx, logger, guard); err != nil {
		return nil, err
	}
	m, err := s.opts.Prober.Probe(ctx, guard)
	logger.Debug("probe commands issued", logging.Int64("commands", guard.Issued()))
	return m, err
}

// open retries while another process, typically a burn in progress, holds
// the device.
func (s *Scheduler) open(ctx context.Context, logger *slog.Logger, device string) (scsi.Handle, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.OpenAttempts; attempt++ {
		handle, err := s.opts.Opener.Open(device)
		if err == nil {
			return handle, nil
		}
		lastErr = err
		if !scsi.CodeOf(err).Retryable() {
			return nil, err
		}
		logger.Debug("device open retry",
			logging.Int("attempt", attempt),
			logging.String(logging.FieldSCSICode, scsi.CodeOf(err).String()),
		)
		if attempt == s.opts.OpenAttempts {
			break
		}
		if err := sleep(ctx, s.opts.OpenRetryInterval); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("open %s after %d attempts: %w", device, s.opts.OpenAttempts, lastErr)
}

// waitReady polls TEST UNIT READY. A missing medium ends the wait at once;
// a drive still spinning up is polled again.
func (s *Scheduler) waitReady(ctx context.Context, logger *slog.Logger, t scsi.Transport) error {
	for attempt := 1; attempt <= s.opts.ReadyAttempts; attempt++ {
		err := mmc.TestUnitReady(ctx, t)
		if err == nil {
			if attempt > 1 {
				logger.Debug("drive ready", logging.Int("attempts", attempt))
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		code := scsi.CodeOf(err)
		if code == scsi.ErrNoMedium || !code.Retryable() {
			return err
		}
		if attempt == s.opts.ReadyAttempts {
			break
		}
		if err := sleep(ctx, s.opts.ReadyPollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d polls", ErrNotReady, s.opts.ReadyAttempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
