package probe

import (
	"context"
	"errors"
	"fmt"

	"discprobe/internal/logging"
	"discprobe/internal/media"
	"discprobe/internal/mmc"
)

func (r *run) determineSpeeds(ctx context.Context) error {
	descriptors, err := mmc.WriteSpeeds(ctx, r.t)
	if err == nil {
		speeds := speedsFromPerformance(descriptors)
		if len(speeds.Write) > 0 {
			r.b.SetSpeeds(speeds)
			return nil
		}
		r.decision("speeds", "mode_page", "GET PERFORMANCE reported no write speed")
	} else {
		r.decision("speeds", "mode_page", err.Error())
	}

	caps, capsErr := r.capabilities(ctx)
	if capsErr != nil {
		return fmt.Errorf("speeds: %w", errors.Join(err, capsErr))
	}
	r.b.SetSpeeds(speedsFromCapabilities(caps))
	return nil
}

func speedsFromPerformance(descriptors []mmc.WriteSpeed) media.SpeedSet {
	var s media.SpeedSet
	seenRead := map[uint32]bool{}
	seenWrite := map[uint32]bool{}
	for _, d := range descriptors {
		if d.Write > 0 && !seenWrite[d.Write] {
			seenWrite[d.Write] = true
			s.Write = append(s.Write, int(d.Write))
		}
		if d.Read > 0 && !seenRead[d.Read] {
			seenRead[d.Read] = true
			s.Read = append(s.Read, int(d.Read))
		}
	}
	return s
}

func speedsFromCapabilities(caps *mmc.Capabilities) media.SpeedSet {
	var s media.SpeedSet
	seen := map[uint16]bool{}
	for _, w := range caps.WriteSpeeds {
		if w > 0 && !seen[w] {
			seen[w] = true
			s.Write = append(s.Write, int(w))
		}
	}
	if len(s.Write) == 0 && caps.MaxWriteSpeed > 0 {
		s.Write = []int{int(caps.MaxWriteSpeed)}
	}
	if caps.MaxReadSpeed > 0 {
		s.Read = []int{int(caps.MaxReadSpeed)}
	}
	return s
}

// determineCapacity records the full size of rewritable media. Other media
// get their size from the leadout later on.
func (r *run) determineCapacity(ctx context.Context) error {
	f := r.flags()
	r.b.SetBlockSize(mmc.BlockSize)
	if !f.Any(media.FlagRewritable) {
		return nil
	}
	if f.Any(media.FlagCD) {
		atip, err := r.atipInfo(ctx)
		if err != nil {
			return fmt.Errorf("atip: %w", err)
		}
		r.b.SetBlockCount(atip.LeadOutStart)
		return nil
	}

	caps, err := mmc.ReadFormatCapacities(ctx, r.t)
	if err != nil {
		return fmt.Errorf("format capacities: %w", err)
	}
	if caps.Unformatted() {
		r.b.AddFlags(media.FlagUnformatted)
	}
	desc, ok := selectCapacity(f, caps)
	if !ok {
		return errors.New("format capacities: no usable descriptor")
	}
	r.b.SetBlockCount(int64(desc.Blocks))
	r.log.Debug("capacity determined",
		logging.Int64("blocks", int64(desc.Blocks)),
		logging.Int("format_type", int(desc.Type)),
	)
	return nil
}

// selectCapacity picks the descriptor matching the medium's own format.
func selectCapacity(f media.Flags, caps *mmc.FormatCapacities) (mmc.CapacityDescriptor, bool) {
	var order []uint8
	switch {
	case f.Is(media.DVDPlusRW) || f.Is(media.DVDPlusRWDL):
		order = []uint8{mmc.FormatDVDPlusRW}
	case f.Is(media.BDRE):
		order = []uint8{mmc.FormatBDRESpare, mmc.FormatFull}
	default:
		order = []uint8{mmc.FormatMaxPacket, mmc.FormatFull}
	}
	for _, typ := range order {
		if d, ok := caps.Find(typ); ok && d.Blocks > 0 {
			return d, true
		}
	}
	if caps.Current.Blocks > 0 && caps.Current.Type != mmc.CapacityNoMedia {
		return caps.Current, true
	}
	return mmc.CapacityDescriptor{}, false
}

// determineWriteCaps learns SAO/TAO, dummy, burnfree and blank support. It
// only applies to CD and DVD-R/-RW media.
func (r *run) determineWriteCaps(ctx context.Context) error {
	f := r.flags()
	if !f.Any(media.FlagWritable|media.FlagRewritable) || f.Any(media.FlagPlus|media.FlagBD|media.FlagRAM) {
		return nil
	}

	var caps media.WriteCaps
	var answered bool
	if f.Any(media.FlagCD) {
		answered = r.cdWriteFeatures(ctx, &caps)
	} else {
		answered = r.dvdWriteFeatures(ctx, &caps)
	}
	if !answered {
		r.decision("write_caps", "mode_page", "no write feature reported")
		if err := r.writeCapsFromModePages(ctx, &caps); err != nil {
			return err
		}
	}
	r.b.SetWriteCaps(caps)
	return nil
}

func (r *run) cdWriteFeatures(ctx context.Context, caps *media.WriteCaps) bool {
	answered := false
	if feature, err := mmc.GetFeature(ctx, r.t, mmc.FeatureCDMastering); err == nil {
		if sao, err := feature.SAO(); err == nil {
			answered = true
			caps.SAO = sao.SAO
			caps.DummySAO = sao.TestWrite
			caps.BurnFree = caps.BurnFree || sao.BurnFree
			caps.Blank = caps.Blank || sao.CDRW
		}
	}
	if feature, err := mmc.GetFeature(ctx, r.t, mmc.FeatureCDTrackAtOnce); err == nil {
		if tao, err := feature.TAO(); err == nil {
			answered = true
			caps.TAO = true
			caps.DummyTAO = tao.TestWrite
			caps.BurnFree = caps.BurnFree || tao.BurnFree
			caps.Blank = caps.Blank || tao.CDRW
		}
	}
	return answered
}

func (r *run) dvdWriteFeatures(ctx context.Context, caps *media.WriteCaps) bool {
	answered := false
	if feature, err := mmc.GetFeature(ctx, r.t, mmc.FeatureIncrementalWrite); err == nil {
		if inc, err := feature.Incremental(); err == nil {
			answered = true
			caps.TAO = true
			caps.BurnFree = caps.BurnFree || inc.BurnFree
		}
	}
	if feature, err := mmc.GetFeature(ctx, r.t, mmc.FeatureDVDRWrite); err == nil {
		if dvd, err := feature.DVDRWrite(); err == nil {
			answered = true
			caps.SAO = true
			caps.DummySAO = dvd.TestWrite
			caps.DummyTAO = dvd.TestWrite
			caps.BurnFree = caps.BurnFree || dvd.BurnFree
			caps.Blank = dvd.DVDRW
		}
	}
	return answered
}

// writeCapsFromModePages is the fallback for drives without write features.
// Page 2Ah gives dummy, burnfree and blank support; write types are tested
// by selecting them in page 05h, which is restored afterwards.
func (r *run) writeCapsFromModePages(ctx context.Context, caps *media.WriteCaps) error {
	pageCaps, err := r.capabilities(ctx)
	if err != nil {
		return fmt.Errorf("capabilities page: %w", err)
	}
	caps.DummySAO = pageCaps.TestWrite
	caps.DummyTAO = pageCaps.TestWrite
	caps.BurnFree = pageCaps.BurnFree
	if r.flags().Any(media.FlagCD) {
		caps.Blank = pageCaps.CDRWWrite
	} else {
		caps.Blank = pageCaps.DVDRWrite && r.flags().Any(media.FlagRewritable)
	}

	original, err := mmc.ModeSense(ctx, r.t, mmc.PageWriteParameters)
	if err != nil {
		r.log.Debug("write parameters page unavailable", logging.Error(err))
		return nil
	}
	caps.SAO = r.tryWriteType(ctx, original, mmc.WriteTypeSAO)
	caps.TAO = r.tryWriteType(ctx, original, mmc.WriteTypeTAO)
	if err := mmc.ModeSelect(ctx, r.t, original); err != nil {
		logging.WarnWithContext(r.log, "write parameters page not restored", "mode_select_restore_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next burn may start with a different write type"),
		)
	}
	return nil
}

func (r *run) tryWriteType(ctx context.Context, original *mmc.ModePage, writeType uint8) bool {
	page := original.Clone()
	page.SetWriteType(writeType)
	err := mmc.ModeSelect(ctx, r.t, page)
	r.log.Debug("write type probed", logging.Int("write_type", int(writeType)), logging.Bool("accepted", err == nil))
	return err == nil
}
