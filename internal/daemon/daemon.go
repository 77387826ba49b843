package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"discprobe/internal/config"
	"discprobe/internal/drive"
	"discprobe/internal/history"
	"discprobe/internal/logging"
	"discprobe/internal/scheduler"
	"discprobe/internal/scsi"
)

// ErrAlreadyRunning is returned by Start when another watcher holds the lock.
var ErrAlreadyRunning = errors.New("another discprobe watcher is already running")

// Options wires a Daemon. History may be nil to skip recording.
type Options struct {
	Config    *config.Config
	Scheduler *scheduler.Scheduler
	History   *history.Store
	Logger    *slog.Logger
	// Opener identifies drives at startup. Nil skips identification.
	Opener scsi.Opener
	// CheckStatus reads the tray state for the poller. Defaults to
	// drive.CheckStatus.
	CheckStatus func(device string) (drive.Status, error)
}

// Daemon coordinates the watchers and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	sched   *scheduler.Scheduler
	history *history.Store
	opener  scsi.Opener

	drives  map[string]*drive.Drive
	netlink *netlinkMonitor
	tray    *trayMonitor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	ejectMu sync.Mutex
	ejected map[string]time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Netlink      bool
	LockFilePath string
	HistoryPath  string
	Drives       []DriveStatus
}

// DriveStatus is the known state of one watched drive.
type DriveStatus struct {
	Device  string
	Name    string
	Probing bool
	Medium  string
}

// New constructs a daemon with initialized dependencies.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil || opts.Scheduler == nil {
		return nil, errors.New("daemon requires config and scheduler")
	}
	if len(opts.Config.Drives.Devices) == 0 {
		return nil, errors.New("daemon requires at least one drive")
	}
	logger := logging.NewComponentLogger(opts.Logger, "daemon")

	d := &Daemon{
		cfg:      opts.Config,
		logger:   logger,
		sched:    opts.Scheduler,
		history:  opts.History,
		opener:   opts.Opener,
		drives:   make(map[string]*drive.Drive, len(opts.Config.Drives.Devices)),
		ejected:  make(map[string]time.Time, len(opts.Config.Drives.Devices)),
		lockPath: opts.Config.LockPath(),
		lock:     flock.New(opts.Config.LockPath()),
	}
	for _, device := range opts.Config.Drives.Devices {
		d.drives[device] = drive.New(device)
	}

	check := opts.CheckStatus
	if check == nil {
		check = drive.CheckStatus
	}
	d.tray = newTrayMonitor(d.devices(), opts.Config.PollInterval(), check, d.handleMedium, opts.Logger)
	if opts.Config.Daemon.Netlink {
		d.netlink = newNetlinkMonitor(d.devices(), d.handleUEvent, opts.Logger)
	}
	return d, nil
}

// Start acquires the lock and launches the watchers.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.identifyDrives(runCtx)

	d.wg.Add(1)
	go d.consumeEvents(runCtx)

	if err := d.netlink.Start(runCtx); err != nil {
		logging.WarnWithContext(d.logger, "netlink monitor failed to start", "netlink_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "insertions detected by polling only"),
		)
	}
	if err := d.tray.Start(runCtx); err != nil {
		d.netlink.Stop()
		cancel()
		d.wg.Wait()
		_ = d.lock.Unlock()
		return fmt.Errorf("start tray monitor: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("discprobe watcher started",
		logging.String("lock", d.lockPath),
		logging.Int("drives", len(d.drives)),
		logging.Bool("netlink", d.netlink.Running()),
	)
	return nil
}

// Stop cancels in-flight probes, stops the watchers and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.netlink.Stop()
	d.tray.Stop()
	for device := range d.drives {
		d.sched.Cancel(device)
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next watcher start may report a stale lock"),
		)
	}
	d.running.Store(false)
	d.logger.Info("discprobe watcher stopped")
}

// Close stops the daemon and releases the history store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// Drive returns the watched drive at device.
func (d *Daemon) Drive(device string) (*drive.Drive, bool) {
	dr, ok := d.drives[device]
	return dr, ok
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	st := Status{
		Running:      d.running.Load(),
		Netlink:      d.netlink.Running(),
		LockFilePath: d.lockPath,
	}
	if d.history != nil {
		st.HistoryPath = d.history.Path()
	}
	for _, device := range d.devices() {
		dr := d.drives[device]
		ds := DriveStatus{Device: device, Name: dr.DisplayName()}
		if job, ok := d.sched.Job(device); ok {
			ds.Probing = job.State() == scheduler.Probing
		}
		if m := dr.Medium(); m != nil {
			ds.Medium = m.Tooltip()
		}
		st.Drives = append(st.Drives, ds)
	}
	return st
}

// MediumInserted schedules a probe of device. A probe already in flight is
// left alone.
func (d *Daemon) MediumInserted(ctx context.Context, device string) error {
	if _, ok := d.drives[device]; !ok {
		return fmt.Errorf("device %s is not watched", device)
	}
	_, err := d.sched.Probe(ctx, device)
	if errors.Is(err, scheduler.ErrProbeInFlight) {
		d.logger.Debug("probe already in flight", logging.String(logging.FieldDevice, device))
		return nil
	}
	return err
}

// MediumRemoved cancels any probe of device and forgets its medium.
func (d *Daemon) MediumRemoved(device string) {
	dr, ok := d.drives[device]
	if !ok {
		return
	}
	d.ejectMu.Lock()
	d.ejected[device] = time.Now()
	d.ejectMu.Unlock()
	if d.sched.Cancel(device) {
		d.logger.Info("probe cancelled by ejection", logging.String(logging.FieldDevice, device))
	}
	dr.ClearMedium()
}

// ejectedSince reports whether device was ejected at or after started. Results
// of work begun before that moment describe a medium that is gone.
func (d *Daemon) ejectedSince(device string, started time.Time) bool {
	d.ejectMu.Lock()
	defer d.ejectMu.Unlock()
	at, ok := d.ejected[device]
	return ok && !at.Before(started)
}

func (d *Daemon) handleMedium(ctx context.Context, device string, present bool) {
	if !present {
		d.MediumRemoved(device)
		return
	}
	if err := d.MediumInserted(ctx, device); err != nil {
		logging.WarnWithContext(d.logger, "failed to schedule probe", "probe_schedule_failed",
			logging.Error(err),
			logging.String(logging.FieldDevice, device),
			logging.String(logging.FieldImpact, "medium not probed until next insertion"),
		)
	}
}

func (d *Daemon) handleUEvent(ctx context.Context, device string, present bool) {
	if !d.tray.markPresent(device, present) {
		d.logger.Debug("uevent repeats known tray state", logging.String(logging.FieldDevice, device))
		return
	}
	d.handleMedium(ctx, device, present)
}

func (d *Daemon) identifyDrives(ctx context.Context) {
	if d.opener == nil {
		return
	}
	for _, device := range d.devices() {
		dr := d.drives[device]
		h, err := d.opener.Open(device)
		if err != nil {
			logging.WarnWithContext(d.logger, "drive not identified", "drive_identify_failed",
				logging.Error(err),
				logging.String(logging.FieldDevice, device),
				logging.String(logging.FieldImpact, "drive shown by device path"),
			)
			continue
		}
		id, err := dr.Identify(ctx, h)
		_ = h.Close()
		if err != nil {
			logging.WarnWithContext(d.logger, "drive not identified", "drive_identify_failed",
				logging.Error(err),
				logging.String(logging.FieldDevice, device),
				logging.String(logging.FieldImpact, "drive shown by device path"),
			)
			continue
		}
		d.logger.Info("drive identified",
			logging.String(logging.FieldDevice, device),
			logging.String("vendor", id.Vendor),
			logging.String("product", id.Product),
			logging.String("revision", id.Revision),
		)
	}
}

func (d *Daemon) devices() []string {
	out := make([]string, 0, len(d.drives))
	for device := range d.drives {
		out = append(out, device)
	}
	sort.Strings(out)
	return out
}
