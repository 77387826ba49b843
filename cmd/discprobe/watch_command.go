package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"discprobe/internal/daemon"
	"discprobe/internal/history"
	"discprobe/internal/logging"
	"discprobe/internal/preflight"
	"discprobe/internal/probe"
	"discprobe/internal/scheduler"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Probe every medium inserted into the configured drives until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			for _, r := range preflight.Failed(preflight.RunAll(cfg)) {
				logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
					logging.String("check", r.Name),
					logging.String("detail", r.Detail),
					logging.String(logging.FieldImpact, "affected drives may not be probed"),
				)
			}

			var store *history.Store
			if cfg.Daemon.RecordHistory {
				store, err = history.Open(cfg)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
			}

			opener := ctx.deviceOpener(cfg)
			engine := probe.New(probe.OptionsFromConfig(cfg, logger))
			sched := scheduler.New(scheduler.OptionsFromConfig(cfg, opener, engine, logger))
			defer sched.Close()

			d, err := daemon.New(daemon.Options{
				Config:    cfg,
				Scheduler: sched,
				History:   store,
				Logger:    logger,
				Opener:    opener,
			})
			if err != nil {
				if store != nil {
					store.Close()
				}
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				if errors.Is(err, daemon.ErrAlreadyRunning) {
					return fmt.Errorf("%w (lock %s)", err, cfg.LockPath())
				}
				return err
			}
			printWatchStatus(cmd.OutOrStdout(), d.Status())
			<-runCtx.Done()
			return nil
		},
	}
}

func printWatchStatus(out io.Writer, st daemon.Status) {
	source := "tray polling"
	if st.Netlink {
		source = "udev events"
	}
	fmt.Fprintf(out, "Watching %d drive(s) via %s; press Ctrl+C to stop\n", len(st.Drives), source)
	for _, ds := range st.Drives {
		fmt.Fprintf(out, "  %s  %s\n", ds.Device, ds.Name)
	}
	if st.HistoryPath != "" {
		fmt.Fprintf(out, "Recording probes to %s\n", st.HistoryPath)
	}
}
