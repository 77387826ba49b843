package probe

import (
	"context"
	"errors"

	"discprobe/internal/logging"
	"discprobe/internal/media"
	"discprobe/internal/mmc"
	"discprobe/internal/mmc/cdtext"
	"discprobe/internal/volume"
)

// enrich adds the optional details. Every part is best effort and the first
// failure is returned after the others have run.
func (r *run) enrich(ctx context.Context) error {
	var errs []error
	if r.e.opts.CheckCSS && r.flags().Is(media.DVDROM) {
		errs = append(errs, r.checkCSS(ctx))
	}
	if r.e.opts.ReadCDText && r.flags().Any(media.FlagCD) && r.flags().Any(media.FlagHasAudio) {
		errs = append(errs, r.readCDText(ctx))
	}
	if r.b.VolumeLabel() == "" {
		errs = append(errs, r.readLabel(ctx))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.b.SetID(r.mediumID())
	return errors.Join(errs...)
}

func (r *run) checkCSS(ctx context.Context) error {
	feature, err := mmc.GetFeature(ctx, r.t, mmc.FeatureDVDCSS)
	if errors.Is(err, mmc.ErrFeatureAbsent) {
		return nil
	}
	if err != nil {
		return err
	}
	if feature.Current {
		r.b.AddFlags(media.FlagProtected)
		r.decision("css", "protected", "CSS feature is current")
	}
	return nil
}

func (r *run) readCDText(ctx context.Context) error {
	raw, err := mmc.ReadCDTextPacks(ctx, r.t)
	if err != nil {
		r.log.Debug("no cd-text", logging.Error(err))
		return nil
	}
	text, err := cdtext.Decode(raw)
	if err != nil {
		return err
	}
	r.b.SetCDText(text)
	if title := text.Title(); title != "" {
		r.log.Debug("cd-text decoded", logging.String("title", title))
	}
	return nil
}

// readLabel takes the label of the first data track.
func (r *run) readLabel(ctx context.Context) error {
	for _, t := range r.b.Tracks() {
		if t.IsLeadout() || t.Type&media.TrackData == 0 {
			continue
		}
		info, err := volume.Probe(ctx, r.reader, uint32(t.Start))
		if errors.Is(err, volume.ErrNoVolume) {
			return nil
		}
		if err != nil {
			return err
		}
		r.b.SetVolumeLabel(info.Label)
		return nil
	}
	return nil
}
