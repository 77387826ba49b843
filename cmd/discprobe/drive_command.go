package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"discprobe/internal/drive"
	"discprobe/internal/mmc"
	"discprobe/internal/preflight"
)

func newDriveCommand(ctx *commandContext) *cobra.Command {
	driveCmd := &cobra.Command{
		Use:   "drive",
		Short: "Drive readiness and identity",
	}
	driveCmd.AddCommand(newDriveStatusCommand(ctx))
	driveCmd.AddCommand(newDriveInfoCommand(ctx))
	return driveCmd
}

func newDriveStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check access to the state directory and every configured drive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Preflight", colorize)...)
			for _, r := range preflight.RunAll(cfg) {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Trays", colorize)...)
			for _, device := range cfg.Drives.Devices {
				tray := preflight.CheckTray(device)
				kind := statusInfo
				switch {
				case tray.Err != nil:
					kind = statusWarn
				case tray.Status.HasDisc():
					kind = statusOK
				}
				lines = append(lines, renderStatusLine(device, kind, tray.Detail(), colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func newDriveInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info [DEVICE]",
		Short: "Show the drive identity and its mode page capabilities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			device, err := resolveDevice(cfg, args)
			if err != nil {
				return err
			}

			h, err := ctx.deviceOpener(cfg).Open(device)
			if err != nil {
				return err
			}
			defer h.Close()

			dr := drive.New(device)
			id, err := dr.Identify(cmd.Context(), h)
			if err != nil {
				return err
			}
			fields := [][2]string{
				{"Device", device},
				{"Vendor", id.Vendor},
				{"Product", id.Product},
				{"Revision", id.Revision},
				{"Removable", yesNo(id.Removable)},
			}

			if profile, features, err := mmc.CurrentFeatures(cmd.Context(), h); err == nil {
				fields = append(fields,
					[2]string{"Current profile", profile.String()},
					[2]string{"Current features", featureList(features)},
				)
			} else if profile, err := mmc.CurrentProfile(cmd.Context(), h); err == nil {
				fields = append(fields, [2]string{"Current profile", profile.String()})
			}
			if caps, err := mmc.ReadCapabilities(cmd.Context(), h); err == nil {
				fields = append(fields,
					[2]string{"Reads", capabilityList(caps.CDRRead, caps.CDRWRead, caps.DVDROMRead, caps.DVDRRead, caps.DVDRAMRead)},
					[2]string{"Writes", capabilityList(caps.CDRWrite, caps.CDRWWrite, false, caps.DVDRWrite, caps.DVDRAMWrite)},
					[2]string{"Simulation", yesNo(caps.TestWrite)},
					[2]string{"BurnFree", yesNo(caps.BurnFree)},
					[2]string{"Multisession", yesNo(caps.MultiSession)},
					[2]string{"Max read speed", fmt.Sprintf("%d KB/s", caps.MaxReadSpeed)},
					[2]string{"Max write speed", fmt.Sprintf("%d KB/s", caps.MaxWriteSpeed)},
					[2]string{"Buffer", fmt.Sprintf("%d KB", caps.BufferSizeKB)},
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields(dr.DisplayName(), fields))
			return nil
		},
	}
}

func capabilityList(cdr, cdrw, dvdrom, dvdr, dvdram bool) string {
	var out []string
	for _, c := range []struct {
		ok   bool
		name string
	}{{cdr, "CD-R"}, {cdrw, "CD-RW"}, {dvdrom, "DVD-ROM"}, {dvdr, "DVD-R"}, {dvdram, "DVD-RAM"}} {
		if c.ok {
			out = append(out, c.name)
		}
	}
	if len(out) == 0 {
		return "none"
	}
	return strings.Join(out, ", ")
}

func featureList(features []mmc.Feature) string {
	names := make([]string, 0, len(features))
	for _, f := range features {
		if f.Code == mmc.FeatureProfileList {
			continue
		}
		names = append(names, f.Code.String())
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
