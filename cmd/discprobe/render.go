package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"discprobe/internal/history"
	"discprobe/internal/media"
	"discprobe/internal/volume"
)

func renderMedium(r media.Report) string {
	fields := [][2]string{
		{"Type", r.Type},
		{"Profile", fmt.Sprintf("%s (0x%04X)", r.Profile, r.ProfileCode)},
		{"Flags", strings.Join(r.Flags, ", ")},
	}
	if r.ID != "" {
		fields = append(fields, [2]string{"ID", r.ID})
	}
	if r.Drive != "" {
		fields = append(fields, [2]string{"Drive", r.Drive})
	}
	if r.Label != "" {
		label := r.Label
		if volume.IsGenericLabel(label) {
			label += " (generic)"
		}
		fields = append(fields, [2]string{"Volume label", label})
	}
	if r.Title != "" {
		fields = append(fields, [2]string{"CD-TEXT title", r.Title})
	}
	fields = append(fields,
		[2]string{"Capacity", sizeLabel(r.CapacityBytes, r.CapacityBlocks)},
		[2]string{"Data", sizeLabel(r.DataBytes, r.DataBlocks)},
		[2]string{"Free", sizeLabel(r.FreeBytes, r.FreeBlocks)},
	)
	if r.NextWritable != nil {
		fields = append(fields, [2]string{"Next writable", strconv.FormatInt(*r.NextWritable, 10)})
	}
	if r.FirstOpenTrack > 0 {
		fields = append(fields, [2]string{"First open track", strconv.Itoa(r.FirstOpenTrack)})
	}
	fields = append(fields,
		[2]string{"Read speeds", speedsLabel(r.Speeds.Read)},
		[2]string{"Write speeds", speedsLabel(r.Speeds.Write)},
		[2]string{"Write modes", writeModesLabel(r.WriteCaps)},
		[2]string{"Writable", yesNo(r.Writable)},
		[2]string{"Rewritable", yesNo(r.Rewritable)},
	)

	var b strings.Builder
	b.WriteString(renderFields(r.Tooltip, fields))
	if len(r.Tracks) > 0 {
		b.WriteString("\n")
		b.WriteString(renderTracks(r.Tracks, r.BlockSize))
	}
	return b.String()
}

func renderTracks(tracks []media.Track, blockSize int64) string {
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		number := strconv.Itoa(t.Number)
		if t.IsLeadout() {
			number = "-"
		}
		rows = append(rows, []string{
			number,
			strconv.Itoa(t.Session),
			t.Type.String(),
			strconv.FormatInt(t.Start, 10),
			strconv.FormatInt(t.Blocks, 10),
			humanize.IBytes(uint64(t.Blocks * blockSize)),
		})
	}
	return renderTable(
		[]string{"Track", "Session", "Type", "Start", "Blocks", "Size"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignRight},
	)
}

func renderHistory(records []history.Record) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		medium := rec.MediumType
		if medium == "" {
			medium = "-"
		}
		outcome := rec.State
		if rec.Error != "" {
			outcome = fmt.Sprintf("%s: %s", rec.State, truncate(rec.Error, 48))
		}
		rows = append(rows, []string{
			shortID(rec.ID),
			rec.FinishedAt.Local().Format(time.DateTime),
			rec.Device,
			medium,
			rec.VolumeLabel,
			humanize.IBytes(uint64(rec.CapacityBytes)),
			outcome,
		})
	}
	return renderTable(
		[]string{"ID", "Finished", "Device", "Medium", "Label", "Capacity", "Outcome"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func sizeLabel(bytes, blocks int64) string {
	return fmt.Sprintf("%s (%d blocks)", humanize.IBytes(uint64(bytes)), blocks)
}

func speedsLabel(kbps []int) string {
	if len(kbps) == 0 {
		return "unknown"
	}
	parts := make([]string, len(kbps))
	for i, s := range kbps {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ", ") + " KB/s"
}

func writeModesLabel(c media.WriteCaps) string {
	var modes []string
	if c.SAO {
		modes = append(modes, "SAO")
	}
	if c.TAO {
		modes = append(modes, "TAO")
	}
	if c.BurnFree {
		modes = append(modes, "BurnFree")
	}
	if c.DummySAO || c.DummyTAO {
		modes = append(modes, "simulation")
	}
	if c.Blank {
		modes = append(modes, "blank")
	}
	if len(modes) == 0 {
		return "none"
	}
	return strings.Join(modes, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
