package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"discprobe/internal/drive"
	"discprobe/internal/logging"
)

type mediumHandler func(ctx context.Context, device string, present bool)

// trayMonitor polls CDROM_DRIVE_STATUS and reports presence changes. It
// covers hosts where netlink is unavailable and drives that send no uevent
// on tray close.
type trayMonitor struct {
	logger       *slog.Logger
	devices      []string
	pollInterval time.Duration
	check        func(device string) (drive.Status, error)
	handler      mediumHandler

	mu      sync.Mutex
	running bool
	present map[string]bool
	failing map[string]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newTrayMonitor(devices []string, poll time.Duration, check func(string) (drive.Status, error), handler mediumHandler, logger *slog.Logger) *trayMonitor {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &trayMonitor{
		logger:       logging.NewComponentLogger(logger, "tray-monitor"),
		devices:      devices,
		pollInterval: poll,
		check:        check,
		handler:      handler,
		present:      make(map[string]bool, len(devices)),
		failing:      make(map[string]bool, len(devices)),
	}
}

func (m *trayMonitor) Start(ctx context.Context) error {
	if m == nil {
		return errors.New("tray monitor unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("tray monitor already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.loop(runCtx)
	return nil
}

func (m *trayMonitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *trayMonitor) loop(ctx context.Context) {
	defer m.wg.Done()

	m.poll(ctx)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *trayMonitor) poll(ctx context.Context) {
	for _, device := range m.devices {
		if ctx.Err() != nil {
			return
		}
		m.pollDevice(ctx, device)
	}
}

func (m *trayMonitor) pollDevice(ctx context.Context, device string) {
	status, err := m.check(device)
	if err != nil {
		m.mu.Lock()
		first := !m.failing[device]
		m.failing[device] = true
		m.mu.Unlock()
		if first {
			logging.WarnWithContext(m.logger, "tray status unavailable", "tray_status_failed",
				logging.Error(err),
				logging.String(logging.FieldDevice, device),
				logging.String(logging.FieldErrorHint, "check the device exists and is readable"),
				logging.String(logging.FieldImpact, "insertions on this drive rely on netlink"),
			)
		}
		return
	}

	m.mu.Lock()
	delete(m.failing, device)
	was := m.present[device]
	now := status.HasDisc()
	m.present[device] = now
	m.mu.Unlock()

	if was == now {
		return
	}
	m.logger.Debug("tray state changed",
		logging.String(logging.FieldDevice, device),
		logging.String("status", status.String()),
	)
	if m.handler != nil {
		m.handler(ctx, device, now)
	}
}

// markPresent records presence reported by another source so the next poll
// does not repeat it. It reports whether the state changed.
func (m *trayMonitor) markPresent(device string, present bool) bool {
	if m == nil {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := m.present[device] != present
	m.present[device] = present
	return changed
}
