package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"discprobe/internal/logging"
	"discprobe/internal/media"
	"discprobe/internal/mmc"
	"discprobe/internal/volume"
)

// determineContents branches on the disc status and reads the track table
// and the free space that goes with it.
func (r *run) determineContents(ctx context.Context) error {
	disc, err := mmc.ReadDiscInformation(ctx, r.t)
	if err != nil {
		if !r.flags().Any(media.FlagROM) {
			return fmt.Errorf("disc information: %w", errors.Join(ErrContentsUnreadable, err))
		}
		// Read-only drives may lack READ DISC INFORMATION; pressed media
		// are always finalized.
		r.decision("contents", "assume_finalized", err.Error())
		r.b.AddFlags(media.FlagClosed)
		return r.readSessions(ctx)
	}
	r.disc = disc
	if disc.Erasable && r.flags().Is(media.CDR) {
		r.b.SetFormat(media.CDRW)
	}
	r.log.Debug("disc information",
		logging.String("status", disc.Status.String()),
		logging.Int("sessions", disc.Sessions),
		logging.Int("last_track", disc.LastTrackLastSession),
	)

	if r.flags().RandomWritable() {
		if disc.Status == mmc.DiscEmpty {
			return r.syntheticBlank()
		}
		return r.randomContents(ctx)
	}

	switch disc.Status {
	case mmc.DiscEmpty:
		r.b.AddFlags(media.FlagBlank)
		r.b.SetFirstOpenTrack(disc.LastTrackLastSession)
		return r.optionalLeadout(ctx)
	case mmc.DiscIncomplete:
		r.b.AddFlags(media.FlagAppendable)
		r.b.ClearFlags(media.FlagUnformatted)
		r.b.SetFirstOpenTrack(disc.LastTrackLastSession)
		if err := r.readSessions(ctx); err != nil {
			return err
		}
		return r.optionalLeadout(ctx)
	case mmc.DiscFinalized:
		r.b.AddFlags(media.FlagClosed)
		return r.readSessions(ctx)
	default:
		// DVD-RAM, BD-RE and BD-R RRM report no session state.
		return r.randomContents(ctx)
	}
}

// syntheticBlank describes a blank overwritable medium as one leadout track
// spanning the whole capacity.
func (r *run) syntheticBlank() error {
	blocks := r.b.BlockCount()
	if blocks == 0 && r.disc != nil {
		blocks = int64(r.disc.LastPossibleLeadOut)
	}
	r.b.AddFlags(media.FlagBlank)
	r.b.ClearFlags(media.FlagClosed | media.FlagAppendable)
	r.b.SetBlockCount(blocks)
	r.b.AddTrack(media.Track{Number: 1, Session: 1, Type: media.TrackLeadout, Start: 0, Blocks: blocks})
	return nil
}

// randomContents handles media written in place. They have no real session
// structure, so the data extent is taken from the filesystem.
func (r *run) randomContents(ctx context.Context) error {
	start := uint32(0)
	if toc, err := mmc.ReadTOC(ctx, r.t); err == nil {
		for _, e := range toc.Entries {
			if !e.IsLeadout() {
				start = e.Start
				break
			}
		}
	} else if ctx.Err() != nil {
		return ctx.Err()
	}

	info, err := volume.Probe(ctx, r.reader, start)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.decision("contents", "blank", err.Error())
		return r.syntheticBlank()
	}

	capacity := r.b.BlockCount()
	if capacity == 0 && r.disc != nil {
		capacity = int64(r.disc.LastPossibleLeadOut)
		r.b.SetBlockCount(capacity)
	}
	end := int64(start) + info.Blocks
	r.b.AddFlags(media.FlagAppendable | media.FlagHasData)
	r.b.ClearFlags(media.FlagClosed | media.FlagBlank)
	r.b.SetVolumeLabel(info.Label)
	r.b.AddTrack(media.Track{Number: 1, Session: 1, Type: media.TrackData, Start: int64(start), Blocks: info.Blocks})
	if free := capacity - end; free > 0 {
		r.b.AddTrack(media.Track{Number: 2, Session: 1, Type: media.TrackLeadout, Start: end, Blocks: free})
	}
	return nil
}

// trackType decodes the control nibble of a TOC descriptor.
func trackType(control uint8) media.TrackType {
	var t media.TrackType
	if control&mmc.ControlData != 0 {
		t = media.TrackData
		if control&mmc.ControlIncremental != 0 {
			t |= media.TrackIncremental
		}
	} else {
		t = media.TrackAudio
		if control&mmc.ControlPreEmphasis != 0 {
			t |= media.TrackPreEmphasis
		}
		if control&mmc.ControlFourChannel != 0 {
			t |= media.TrackFourChannel
		}
	}
	if control&mmc.ControlCopy != 0 {
		t |= media.TrackCopy
	}
	return t
}

// readSessions decodes the formatted TOC into tracks.
func (r *run) readSessions(ctx context.Context) error {
	toc, err := mmc.ReadTOC(ctx, r.t)
	if err != nil {
		return fmt.Errorf("toc: %w", errors.Join(ErrContentsUnreadable, err))
	}

	entries := toc.Entries
	for i, e := range entries {
		if e.IsLeadout() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		track := media.Track{Number: e.Track, Session: 1, Type: trackType(e.Control), Start: int64(e.Start)}
		info, err := mmc.ReadTrackInformation(ctx, r.t, mmc.TrackByNumber, uint32(e.Track))
		switch {
		case err == nil:
			track.Session = info.Session
			track.Blocks = int64(info.Size)
		case i+1 < len(entries):
			// The next descriptor, or the leadout, bounds the track.
			track.Blocks = int64(entries[i+1].Start) - int64(e.Start)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if track.Type&media.TrackData != 0 {
			r.b.AddFlags(media.FlagHasData)
			track.Blocks = r.correctDataTrack(ctx, track, info)
		} else {
			r.b.AddFlags(media.FlagHasAudio)
		}
		r.log.Debug("track decoded",
			logging.Int("track", track.Number),
			logging.Int("session", track.Session),
			logging.String("type", track.Type.String()),
			logging.Int64("start_lba", track.Start),
			logging.Int64("blocks", track.Blocks),
		)
		r.b.AddTrack(track)
	}
	return nil
}

// correctDataTrack re-measures short tracks from their filesystem and
// applies the CD run-out correction to the others.
func (r *run) correctDataTrack(ctx context.Context, track media.Track, info *mmc.TrackInfo) int64 {
	if track.Blocks <= r.e.opts.ShortTrackBlocks {
		vol, err := volume.Probe(ctx, r.reader, uint32(track.Start))
		if err == nil {
			r.decision("short_track", "volume_size", fmt.Sprintf("track %d reported %d blocks, volume has %d", track.Number, track.Blocks, vol.Blocks))
			if r.b.VolumeLabel() == "" {
				r.b.SetVolumeLabel(vol.Label)
			}
			return vol.Blocks
		}
		r.log.Debug("short track kept", logging.Int("track", track.Number), logging.Error(err))
	}
	if info == nil || !r.flags().Any(media.FlagCD) || r.e.opts.RunoutBlocks <= 0 {
		return track.Blocks
	}
	if r.runoutReadable(ctx, track.End(), r.e.opts.RunoutBlocks) {
		r.decision("runout", "corrected", fmt.Sprintf("track %d run-out blocks are readable", track.Number))
		return track.Blocks + r.e.opts.RunoutBlocks
	}
	return track.Blocks
}

// tdbSignature starts every Track Descriptor Block of a packet written track.
var tdbSignature = []byte("TDI")

// runoutReadable reads the blocks right after a track's reported end. Tracks
// written in TAO or packet mode end with run-out blocks the drive does not
// count; they read back as data and do not carry a Track Descriptor Block.
func (r *run) runoutReadable(ctx context.Context, lba int64, count int64) bool {
	buf := make([]byte, int(count)*mmc.BlockSize)
	n, err := mmc.ReadCD(ctx, r.t, uint32(lba), uint32(count), buf)
	if err != nil || n < len(buf) {
		return false
	}
	for i := int64(0); i < count; i++ {
		block := buf[i*mmc.BlockSize : (i+1)*mmc.BlockSize]
		if bytes.HasPrefix(block, tdbSignature) {
			return false
		}
	}
	return true
}

// leadoutTrackNumber is the pseudo track READ TRACK INFORMATION is asked
// about for the free space.
func (r *run) leadoutTrackNumber() uint32 {
	f := r.flags()
	if f.Any(media.FlagPlus) || f.Any(media.FlagBD) {
		if n := r.b.FirstOpenTrack(); n > 0 {
			return uint32(n)
		}
	}
	return mmc.InvisibleTrack
}

// optionalLeadout reads the free space. A medium whose free space cannot be
// determined is still reported, without a leadout.
func (r *run) optionalLeadout(ctx context.Context) error {
	err := r.readLeadout(ctx)
	if err == nil || ctx.Err() != nil {
		return ctx.Err()
	}
	logging.WarnWithContext(r.log, "free space unknown", "leadout",
		logging.String(logging.FieldErrorHint, "the drive did not report the next writable address"),
		logging.Error(err),
	)
	return nil
}

// readLeadout finds the next writable address and the free space of a medium
// with an open session.
func (r *run) readLeadout(ctx context.Context) error {
	blank := r.flags().Any(media.FlagBlank)
	number := r.leadoutTrackNumber()

	info, err := mmc.ReadTrackInformation(ctx, r.t, mmc.TrackByNumber, number)
	if err == nil && !(blank && info.FreeBlocks == 0) {
		start := int64(info.Start)
		if info.NWAValid {
			start = int64(info.NWA)
			r.b.SetNextWritable(start)
		}
		r.addLeadout(info.Track, info.Session, start, int64(info.FreeBlocks))
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	reason := "zero free blocks"
	if err != nil {
		reason = err.Error()
	}

	start := r.dataEnd()
	if info != nil && info.NWAValid {
		start = int64(info.NWA)
		r.b.SetNextWritable(start)
	} else if blank {
		r.b.SetNextWritable(0)
	}

	f := r.flags()
	switch {
	case f.Any(media.FlagDVD) && f.Any(media.FlagWritable):
		r.decision("leadout", "format_capacities", reason)
		caps, ferr := mmc.ReadFormatCapacities(ctx, r.t)
		if ferr == nil && caps.Current.Blocks > 0 {
			r.addLeadout(int(number), r.lastSession(), start, int64(caps.Current.Blocks)-start)
			return nil
		}
		err = errors.Join(err, ferr)
	case f.Any(media.FlagCD):
		r.decision("leadout", "atip", reason)
		atip, aerr := r.atipInfo(ctx)
		if aerr == nil && atip.LeadOutStart > start {
			r.addLeadout(int(number), r.lastSession(), start, atip.LeadOutStart-start)
			return nil
		}
		err = errors.Join(err, aerr)
	}
	if err == nil {
		err = errors.New(reason)
	}
	return fmt.Errorf("leadout: %w", err)
}

func (r *run) addLeadout(number, session int, start, blocks int64) {
	if blocks < 0 {
		blocks = 0
	}
	r.b.AddTrack(media.Track{Number: number, Session: session, Type: media.TrackLeadout, Start: start, Blocks: blocks})
	if r.b.BlockCount() == 0 {
		r.b.SetBlockCount(start + blocks)
	}
	r.log.Debug("leadout determined", logging.Int64("start_lba", start), logging.Int64("blocks", blocks))
}

func (r *run) lastSession() int {
	if r.disc != nil && r.disc.Sessions > 0 {
		return r.disc.Sessions
	}
	return 1
}

// dataEnd is the first block after the last real track.
func (r *run) dataEnd() int64 {
	var end int64
	for _, t := range r.b.Tracks() {
		if !t.IsLeadout() && t.End() > end {
			end = t.End()
		}
	}
	return end
}
