package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"discprobe/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var output string

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded probes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			return ctx.withHistory(func(store *history.Store) error {
				records, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if format != outputTable {
					return writeStructured(cmd, format, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No probes recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderHistory(records))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most this many probes (0 for all)")
	historyCmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show the full report of one recorded probe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			return ctx.withHistory(func(store *history.Store) error {
				rec, err := findRecord(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if rec.ReportJSON == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Probe %s %s on %s: %s\n", rec.ID, rec.State, rec.Device, rec.Error)
					return nil
				}
				var report any
				if err := json.Unmarshal([]byte(rec.ReportJSON), &report); err != nil {
					return fmt.Errorf("decode stored report: %w", err)
				}
				if format == outputYAML {
					return writeYAML(cmd, report)
				}
				return writeJSON(cmd, report)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded probe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d probe(s)\n", removed)
				return nil
			})
		},
	}
}

// findRecord accepts a full ID or a unique prefix as printed by the list.
func findRecord(ctx context.Context, store *history.Store, id string) (*history.Record, error) {
	id = strings.TrimSpace(id)
	rec, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	records, err := store.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	var match *history.Record
	for i := range records {
		if !strings.HasPrefix(records[i].ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("probe id %q is ambiguous", id)
		}
		match = &records[i]
	}
	if match == nil {
		return nil, fmt.Errorf("probe %q not found", id)
	}
	return match, nil
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}
