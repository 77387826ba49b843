package probe

import (
	"context"
	"errors"
	"fmt"

	"discprobe/internal/logging"
	"discprobe/internal/media"
	"discprobe/internal/mmc"
	"discprobe/internal/scsi"
)

var profileFormats = map[mmc.Profile]media.Flags{
	mmc.ProfileCDROM:            media.CDROM,
	mmc.ProfileCDR:              media.CDR,
	mmc.ProfileCDRW:             media.CDRW,
	mmc.ProfileDVDROM:           media.DVDROM,
	mmc.ProfileDVDR:             media.DVDR,
	mmc.ProfileDVDRAM:           media.DVDRAM,
	mmc.ProfileDVDRWRestricted:  media.DVDRWRestricted,
	mmc.ProfileDVDRWSequential:  media.DVDRW,
	mmc.ProfileDVDRDLSequential: media.DVDRDL,
	mmc.ProfileDVDRDLJump:       media.DVDRJumpDL,
	mmc.ProfileDVDPlusRW:        media.DVDPlusRW,
	mmc.ProfileDVDPlusR:         media.DVDPlusR,
	mmc.ProfileDVDPlusRWDL:      media.DVDPlusRWDL,
	mmc.ProfileDVDPlusRDL:       media.DVDPlusRDL,
	mmc.ProfileBDROM:            media.BDROM,
	mmc.ProfileBDRSRM:           media.BDRSRM,
	mmc.ProfileBDRRRM:           media.BDRRandom,
	mmc.ProfileBDRE:             media.BDRE,
}

// FormatForProfile maps an MMC profile to its physical type flags.
func FormatForProfile(p mmc.Profile) (media.Flags, bool) {
	f, ok := profileFormats[p]
	return f, ok
}

// legacyProfile reports whether a GET CONFIGURATION failure means the drive
// predates MMC-2 rather than that the medium is unusable.
func legacyProfile(err error) bool {
	switch scsi.CodeOf(err) {
	case scsi.ErrInvalidCommand, scsi.ErrInvalidField, scsi.ErrSizeMismatch:
		return true
	}
	return false
}

func (r *run) determineProfile(ctx context.Context) error {
	profile, err := mmc.CurrentProfile(ctx, r.t)
	switch {
	case err == nil && profile != mmc.ProfileNone:
	case err == nil:
		return fmt.Errorf("no current profile: %w", ErrUnsupportedMedium)
	case legacyProfile(err):
		r.decision("profile", "legacy", err.Error())
		profile, err = r.legacyProfile(ctx)
		if err != nil {
			return err
		}
	default:
		return err
	}

	format, ok := FormatForProfile(profile)
	if !ok {
		return fmt.Errorf("%s: %w", profile, ErrUnsupportedMedium)
	}
	r.profile = profile
	r.b.SetProfile(uint16(profile), profile.String())
	r.b.SetFormat(format)

	if format == media.BDRSRM {
		r.determinePOW(ctx)
	}
	r.log.Debug("profile determined",
		logging.String(logging.FieldProfile, profile.String()),
		logging.String("flags", r.flags().String()),
	)
	return nil
}

// legacyProfile identifies media in drives without GET CONFIGURATION. Such
// drives only handle CDs: a readable ATIP means a writable CD.
func (r *run) legacyProfile(ctx context.Context) (mmc.Profile, error) {
	_, perfErr := mmc.WriteSpeeds(ctx, r.t)
	if perfErr != nil {
		if _, err := r.capabilities(ctx); err != nil {
			if ctx.Err() != nil {
				return mmc.ProfileNone, ctx.Err()
			}
			return mmc.ProfileNone, fmt.Errorf("drive answers neither GET PERFORMANCE nor MODE SENSE: %w", errors.Join(ErrUnsupportedMedium, err))
		}
	}
	atip, err := r.atipInfo(ctx)
	switch {
	case err == nil && atip.Erasable:
		return mmc.ProfileCDRW, nil
	case err == nil:
		return mmc.ProfileCDR, nil
	case ctx.Err() != nil:
		return mmc.ProfileNone, ctx.Err()
	default:
		return mmc.ProfileCDROM, nil
	}
}

// determinePOW upgrades BD-R SRM to SRM+POW. Drives that lack the POW feature
// query are checked through the format state instead.
func (r *run) determinePOW(ctx context.Context) {
	feature, err := mmc.GetFeature(ctx, r.t, mmc.FeatureBDRPOW)
	switch {
	case err == nil:
		if feature.Current {
			r.b.SetFormat(media.BDRSRMPOW)
		}
		return
	case errors.Is(err, mmc.ErrFeatureAbsent):
		return
	}
	r.decision("bdr_pow", "format_capacities", err.Error())
	caps, err := mmc.ReadFormatCapacities(ctx, r.t)
	if err != nil {
		r.log.Debug("pow state unknown", logging.Error(err))
		return
	}
	if caps.Unformatted() {
		r.b.AddFlags(media.FlagUnformatted)
		return
	}
	r.b.SetFormat(media.BDRSRMPOW)
}
