package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"discprobe/internal/config"
	"discprobe/internal/drive"
	"discprobe/internal/history"
	"discprobe/internal/logging"
	"discprobe/internal/media"
	"discprobe/internal/probe"
	"discprobe/internal/scheduler"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var output string
	var tracePath string
	var timeout time.Duration
	var noRecord bool

	cmd := &cobra.Command{
		Use:   "probe [DEVICE]",
		Short: "Probe the medium in a drive and print what was found",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			device, err := resolveDevice(cfg, args)
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			if tracePath != "" {
				trace, err := os.Create(tracePath)
				if err != nil {
					return fmt.Errorf("create trace file: %w", err)
				}
				defer trace.Close()
				logger = logging.TeeLogger(logger, logging.NewJSONHandler(trace, slog.LevelDebug))
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, timeout)
				defer cancel()
			}

			m, err := runProbe(runCtx, ctx, cfg, logger, device, !noRecord)
			if err != nil {
				return err
			}

			report := m.Report()
			if format == outputTable {
				fmt.Fprintln(cmd.OutOrStdout(), renderMedium(report))
				return nil
			}
			return writeStructured(cmd, format, report)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	cmd.Flags().StringVar(&tracePath, "trace", "", "Write a debug trace of every command to this file as JSON lines")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits for the drive)")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not store the result in the probe history")
	return cmd
}

// runProbe identifies the drive and runs one probe through a scheduler so a
// busy or spinning-up drive gets the same retries as watch mode.
func runProbe(ctx context.Context, cc *commandContext, cfg *config.Config, logger *slog.Logger, device string, record bool) (*media.Medium, error) {
	opener := cc.deviceOpener(cfg)
	dr := drive.New(device)
	if h, err := opener.Open(device); err == nil {
		_, idErr := dr.Identify(ctx, h)
		_ = h.Close()
		if errors.Is(idErr, drive.ErrNotOptical) {
			return nil, idErr
		}
		if idErr != nil {
			logging.WarnWithContext(logger, "drive not identified", "drive_identify_failed",
				logging.Error(idErr),
				logging.String(logging.FieldDevice, device),
				logging.String(logging.FieldImpact, "drive shown by device path"),
			)
		}
	}

	opts := probe.OptionsFromConfig(cfg, logger)
	opts.DriveName = dr.DisplayName()
	sched := scheduler.New(scheduler.OptionsFromConfig(cfg, opener, probe.New(opts), logger))
	defer sched.Close()

	job, err := sched.Probe(ctx, device)
	if err != nil {
		return nil, err
	}
	m, probeErr := job.Wait(ctx)

	if record && cfg.Daemon.RecordHistory {
		select {
		case ev := <-sched.Events():
			recordProbe(ctx, cfg, logger, ev, dr.DisplayName())
		default:
		}
	}
	if probeErr != nil {
		return nil, fmt.Errorf("probe %s: %w", device, probeErr)
	}
	return m, nil
}

func recordProbe(ctx context.Context, cfg *config.Config, logger *slog.Logger, ev scheduler.Event, driveName string) {
	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "probe missing from history"),
		)
		return
	}
	defer store.Close()

	rec, err := history.NewRecord(ev.ProbeID, ev.Device, ev.State.String(), ev.Medium, ev.Err, ev.Started, ev.Finished)
	if err == nil {
		if rec.DriveName == "" {
			rec.DriveName = driveName
		}
		err = store.Add(ctx, rec)
	}
	if err == nil {
		_, err = store.Prune(ctx, cfg.Daemon.HistoryLimit)
	}
	if err != nil {
		logging.WarnWithContext(logger, "probe not recorded", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "probe missing from history"),
		)
	}
}
