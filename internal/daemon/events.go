package daemon

import (
	"context"
	"log/slog"

	"discprobe/internal/history"
	"discprobe/internal/logging"
	"discprobe/internal/scheduler"
)

func (d *Daemon) consumeEvents(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.sched.Events():
			if !ok {
				return
			}
			d.handleEvent(ctx, ev)
		}
	}
}

func (d *Daemon) handleEvent(ctx context.Context, ev scheduler.Event) {
	dr, ok := d.drives[ev.Device]
	if !ok {
		return
	}
	logger := d.logger.With(
		logging.String(logging.FieldDevice, ev.Device),
		logging.String(logging.FieldProbeID, ev.ProbeID),
	)

	switch ev.State {
	case scheduler.Probed:
		if ev.Medium.DriveName() == "" {
			ev.Medium = ev.Medium.WithDriveName(dr.DisplayName())
		}
		if d.ejectedSince(ev.Device, ev.Started) {
			logger.Debug("medium ejected before result arrived; not applied")
			break
		}
		dr.SetMedium(ev.Medium)
		logger.Info("medium probed",
			logging.String(logging.FieldMediumType, ev.Medium.Type()),
			logging.String("flags", ev.Medium.Flags().String()),
			logging.String("id", ev.Medium.ID()),
			logging.Duration("elapsed", ev.Finished.Sub(ev.Started)),
		)
	case scheduler.Failed:
		dr.ClearMedium()
	default:
		return
	}
	d.record(ctx, logger, ev, dr.DisplayName())
}

func (d *Daemon) record(ctx context.Context, logger *slog.Logger, ev scheduler.Event, driveName string) {
	if d.history == nil || !d.cfg.Daemon.RecordHistory {
		return
	}
	rec, err := history.NewRecord(ev.ProbeID, ev.Device, ev.State.String(), ev.Medium, ev.Err, ev.Started, ev.Finished)
	if err != nil {
		logging.WarnWithContext(d.logger, "probe not recorded", "history_encode_failed",
			logging.Error(err),
			logging.String(logging.FieldProbeID, ev.ProbeID),
			logging.String(logging.FieldImpact, "probe missing from history"),
		)
		return
	}
	if rec.DriveName == "" {
		rec.DriveName = driveName
	}
	if err := d.history.Add(ctx, rec); err != nil {
		logging.WarnWithContext(d.logger, "probe not recorded", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldProbeID, ev.ProbeID),
			logging.String(logging.FieldImpact, "probe missing from history"),
		)
		return
	}
	removed, err := d.history.Prune(ctx, d.cfg.Daemon.HistoryLimit)
	if err != nil {
		logging.WarnWithContext(d.logger, "history prune failed", "history_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history grows past the configured limit"),
		)
		return
	}
	if removed > 0 {
		logger.Debug("history pruned", logging.Int64("removed", removed))
	}
}
