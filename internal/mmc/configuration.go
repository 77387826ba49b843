package mmc

import (
	"context"
	"fmt"

	"discprobe/internal/scsi"
	"discprobe/internal/scsi/wire"
)

// Profile is an MMC medium profile as reported by GET CONFIGURATION.
type Profile uint16

const (
	ProfileNone             Profile = 0x0000
	ProfileCDROM            Profile = 0x0008
	ProfileCDR              Profile = 0x0009
	ProfileCDRW             Profile = 0x000A
	ProfileDVDROM           Profile = 0x0010
	ProfileDVDR             Profile = 0x0011
	ProfileDVDRAM           Profile = 0x0012
	ProfileDVDRWRestricted  Profile = 0x0013
	ProfileDVDRWSequential  Profile = 0x0014
	ProfileDVDRDLSequential Profile = 0x0015
	ProfileDVDRDLJump       Profile = 0x0016
	ProfileDVDPlusRW        Profile = 0x001A
	ProfileDVDPlusR         Profile = 0x001B
	ProfileDVDPlusRWDL      Profile = 0x002A
	ProfileDVDPlusRDL       Profile = 0x002B
	ProfileBDROM            Profile = 0x0040
	ProfileBDRSRM           Profile = 0x0041
	ProfileBDRRRM           Profile = 0x0042
	ProfileBDRE             Profile = 0x0043
	ProfileHDDVDROM         Profile = 0x0050
	ProfileHDDVDR           Profile = 0x0051
	ProfileHDDVDRAM         Profile = 0x0052
)

var profileNames = map[Profile]string{
	ProfileNone:             "none",
	ProfileCDROM:            "CD-ROM",
	ProfileCDR:              "CD-R",
	ProfileCDRW:             "CD-RW",
	ProfileDVDROM:           "DVD-ROM",
	ProfileDVDR:             "DVD-R",
	ProfileDVDRAM:           "DVD-RAM",
	ProfileDVDRWRestricted:  "DVD-RW (restricted overwrite)",
	ProfileDVDRWSequential:  "DVD-RW (sequential)",
	ProfileDVDRDLSequential: "DVD-R DL (sequential)",
	ProfileDVDRDLJump:       "DVD-R DL (layer jump)",
	ProfileDVDPlusRW:        "DVD+RW",
	ProfileDVDPlusR:         "DVD+R",
	ProfileDVDPlusRWDL:      "DVD+RW DL",
	ProfileDVDPlusRDL:       "DVD+R DL",
	ProfileBDROM:            "BD-ROM",
	ProfileBDRSRM:           "BD-R (SRM)",
	ProfileBDRRRM:           "BD-R (RRM)",
	ProfileBDRE:             "BD-RE",
	ProfileHDDVDROM:         "HD DVD-ROM",
	ProfileHDDVDR:           "HD DVD-R",
	ProfileHDDVDRAM:         "HD DVD-RAM",
}

func (p Profile) String() string {
	if name, ok := profileNames[p]; ok {
		return name
	}
	return fmt.Sprintf("profile 0x%04x", uint16(p))
}

// FeatureCode identifies a GET CONFIGURATION feature descriptor.
type FeatureCode uint16

const (
	FeatureProfileList      FeatureCode = 0x0000
	FeatureCore             FeatureCode = 0x0001
	FeatureIncrementalWrite FeatureCode = 0x0021
	FeatureCDTrackAtOnce    FeatureCode = 0x002D
	FeatureCDMastering      FeatureCode = 0x002E
	FeatureDVDRWrite        FeatureCode = 0x002F
	FeatureBDRPOW           FeatureCode = 0x0038
	FeatureDVDCSS           FeatureCode = 0x0106
	FeatureRealTimeStream   FeatureCode = 0x0107
)

var featureNames = map[FeatureCode]string{
	FeatureProfileList:      "Profile List",
	FeatureCore:             "Core",
	FeatureIncrementalWrite: "Incremental Streaming Writable",
	FeatureCDTrackAtOnce:    "CD Track at Once",
	FeatureCDMastering:      "CD Mastering",
	FeatureDVDRWrite:        "DVD-R/-RW Write",
	FeatureBDRPOW:           "BD-R Pseudo-Overwrite",
	FeatureDVDCSS:           "DVD CSS",
	FeatureRealTimeStream:   "Real Time Streaming",
}

func (c FeatureCode) String() string {
	if name, ok := featureNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint16(c))
}

// Request type field (RT) of GET CONFIGURATION.
const (
	rtAll     = 0x00
	rtCurrent = 0x01
	rtOne     = 0x02
)

// Feature is one decoded feature descriptor. Data excludes the 4 byte
// descriptor header.
type Feature struct {
	Code       FeatureCode
	Version    uint8
	Persistent bool
	Current    bool
	Data       []byte
}

func getConfigurationCDB(rt byte, start FeatureCode, alloc int) []byte {
	cdb := make([]byte, 10)
	cdb[0] = scsi.OpGetConfiguration
	cdb[1] = rt & 0x03
	wire.Put16(cdb[2:], uint16(start))
	wire.Put16(cdb[7:], uint16(alloc))
	return cdb
}

func getConfiguration(ctx context.Context, t scsi.Transport, rt byte, start FeatureCode) ([]byte, error) {
	return variableRead{
		op:     scsi.OpGetConfiguration,
		header: configHeaderLayout.Size(),
		min:    configHeaderLayout.Size(),
		cdb:    func(alloc int) []byte { return getConfigurationCDB(rt, start, alloc) },
		size:   func(hdr []byte) int { return int(configHeaderLayout.Uint(hdr, "data_length")) + 4 },
	}.run(ctx, t)
}

// CurrentProfile returns the profile of the loaded medium. ProfileNone means
// the drive answered but no medium profile is current.
func CurrentProfile(ctx context.Context, t scsi.Transport) (Profile, error) {
	buf := make([]byte, configHeaderLayout.Size())
	n, err := readCommand(ctx, t, getConfigurationCDB(rtOne, FeatureProfileList, len(buf)), buf)
	if err != nil {
		return ProfileNone, err
	}
	if n < len(buf) {
		return ProfileNone, scsi.ShortResponse(scsi.OpGetConfiguration, n, len(buf))
	}
	return Profile(configHeaderLayout.Uint(buf, "current_profile")), nil
}

// GetFeature requests a single feature descriptor. A drive that does not
// implement the feature returns no descriptor; that is reported as
// ErrFeatureAbsent.
func GetFeature(ctx context.Context, t scsi.Transport, code FeatureCode) (*Feature, error) {
	buf, err := getConfiguration(ctx, t, rtOne, code)
	if err != nil {
		return nil, err
	}
	features := parseFeatures(buf[configHeaderLayout.Size():])
	for i := range features {
		if features[i].Code == code {
			return &features[i], nil
		}
	}
	return nil, fmt.Errorf("feature 0x%04x: %w", uint16(code), ErrFeatureAbsent)
}

// CurrentFeatures lists the descriptors the drive flags as current.
func CurrentFeatures(ctx context.Context, t scsi.Transport) (Profile, []Feature, error) {
	buf, err := getConfiguration(ctx, t, rtCurrent, FeatureProfileList)
	if err != nil {
		return ProfileNone, nil, err
	}
	profile := Profile(configHeaderLayout.Uint(buf, "current_profile"))
	return profile, parseFeatures(buf[configHeaderLayout.Size():]), nil
}

func parseFeatures(buf []byte) []Feature {
	var out []Feature
	hdr := featureDescriptorLayout.Size()
	for len(buf) >= hdr {
		length := int(featureDescriptorLayout.Uint(buf, "additional_length"))
		end := hdr + length
		if end > len(buf) {
			end = len(buf)
		}
		out = append(out, Feature{
			Code:       FeatureCode(featureDescriptorLayout.Uint(buf, "code")),
			Version:    uint8(featureDescriptorLayout.Uint(buf, "version")),
			Persistent: featureDescriptorLayout.Flag(buf, "persistent"),
			Current:    featureDescriptorLayout.Flag(buf, "current"),
			Data:       append([]byte(nil), buf[hdr:end]...),
		})
		buf = buf[end:]
	}
	return out
}

// TAOFeature is the CD Track At Once feature payload.
type TAOFeature struct {
	BurnFree  bool
	TestWrite bool
	CDRW      bool
}

// SAOFeature is the CD Mastering (SAO/raw) feature payload.
type SAOFeature struct {
	BurnFree  bool
	SAO       bool
	Raw       bool
	RawMulti  bool
	TestWrite bool
	CDRW      bool
}

// DVDRWriteFeature is the DVD-R/-RW Write feature payload.
type DVDRWriteFeature struct {
	BurnFree  bool
	DualLayer bool
	TestWrite bool
	DVDRW     bool
}

// IncrementalFeature is the Incremental Streaming Writable feature payload.
type IncrementalFeature struct {
	BurnFree  bool
	LinkSizes int
}

// TAO decodes the payload of a FeatureCDTrackAtOnce descriptor.
func (f *Feature) TAO() (TAOFeature, error) {
	if len(f.Data) < featureTAOLayout.Size() {
		return TAOFeature{}, scsi.ShortResponse(scsi.OpGetConfiguration, len(f.Data), featureTAOLayout.Size())
	}
	return TAOFeature{
		BurnFree:  featureTAOLayout.Flag(f.Data, "buf"),
		TestWrite: featureTAOLayout.Flag(f.Data, "test_write"),
		CDRW:      featureTAOLayout.Flag(f.Data, "cd_rw"),
	}, nil
}

// SAO decodes the payload of a FeatureCDMastering descriptor.
func (f *Feature) SAO() (SAOFeature, error) {
	if len(f.Data) < featureSAOLayout.Size() {
		return SAOFeature{}, scsi.ShortResponse(scsi.OpGetConfiguration, len(f.Data), featureSAOLayout.Size())
	}
	return SAOFeature{
		BurnFree:  featureSAOLayout.Flag(f.Data, "buf"),
		SAO:       featureSAOLayout.Flag(f.Data, "sao"),
		Raw:       featureSAOLayout.Flag(f.Data, "raw"),
		RawMulti:  featureSAOLayout.Flag(f.Data, "raw_ms"),
		TestWrite: featureSAOLayout.Flag(f.Data, "test_write"),
		CDRW:      featureSAOLayout.Flag(f.Data, "cd_rw"),
	}, nil
}

// DVDRWrite decodes the payload of a FeatureDVDRWrite descriptor.
func (f *Feature) DVDRWrite() (DVDRWriteFeature, error) {
	if len(f.Data) < featureDVDRWriteLayout.Size() {
		return DVDRWriteFeature{}, scsi.ShortResponse(scsi.OpGetConfiguration, len(f.Data), featureDVDRWriteLayout.Size())
	}
	return DVDRWriteFeature{
		BurnFree:  featureDVDRWriteLayout.Flag(f.Data, "buf"),
		DualLayer: featureDVDRWriteLayout.Flag(f.Data, "rdl"),
		TestWrite: featureDVDRWriteLayout.Flag(f.Data, "test_write"),
		DVDRW:     featureDVDRWriteLayout.Flag(f.Data, "dvd_rw"),
	}, nil
}

// Incremental decodes the payload of a FeatureIncrementalWrite descriptor.
func (f *Feature) Incremental() (IncrementalFeature, error) {
	if len(f.Data) < featureIncrementalLayout.Size() {
		return IncrementalFeature{}, scsi.ShortResponse(scsi.OpGetConfiguration, len(f.Data), featureIncrementalLayout.Size())
	}
	return IncrementalFeature{
		BurnFree:  featureIncrementalLayout.Flag(f.Data, "buf"),
		LinkSizes: int(featureIncrementalLayout.Uint(f.Data, "link_sizes")),
	}, nil
}

// CSSVersion decodes the payload of a FeatureDVDCSS descriptor.
func (f *Feature) CSSVersion() (int, error) {
	if len(f.Data) < featureCSSLayout.Size() {
		return 0, scsi.ShortResponse(scsi.OpGetConfiguration, len(f.Data), featureCSSLayout.Size())
	}
	return int(featureCSSLayout.Uint(f.Data, "css_version")), nil
}
