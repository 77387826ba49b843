package mmc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discprobe/internal/mmc"
	"discprobe/internal/scsi"
	"discprobe/internal/testsupport"
)

func newDrive() *testsupport.FakeDrive {
	return testsupport.NewFakeDrive("/dev/sr0")
}

func TestCurrentProfileAndFeatures(t *testing.T) {
	tao := []byte{0x46, 0x00, 0x00, 0x00} // BUF, test write, CD-RW
	drive := newDrive().Handle(scsi.OpGetConfiguration, testsupport.ConfigResponder(uint16(mmc.ProfileCDR), map[uint16][]byte{
		uint16(mmc.FeatureCDTrackAtOnce): tao,
	}))
	ctx := context.Background()

	profile, err := mmc.CurrentProfile(ctx, drive)
	require.NoError(t, err)
	assert.Equal(t, mmc.ProfileCDR, profile)
	assert.Equal(t, "CD-R", profile.String())

	feature, err := mmc.GetFeature(ctx, drive, mmc.FeatureCDTrackAtOnce)
	require.NoError(t, err)
	assert.True(t, feature.Current)
	decoded, err := feature.TAO()
	require.NoError(t, err)
	assert.Equal(t, mmc.TAOFeature{BurnFree: true, TestWrite: true, CDRW: true}, decoded)

	_, err = mmc.GetFeature(ctx, drive, mmc.FeatureCDMastering)
	assert.ErrorIs(t, err, mmc.ErrFeatureAbsent)
}

func TestCurrentFeaturesListsDescriptors(t *testing.T) {
	reply := testsupport.ConfigReply(uint16(mmc.ProfileDVDR),
		testsupport.FeatureDescriptor(uint16(mmc.FeatureCore), true, []byte{0, 0, 0, 1}),
		testsupport.FeatureDescriptor(uint16(mmc.FeatureDVDRWrite), true, []byte{0x4C, 0, 0, 0}),
	)
	drive := newDrive().Reply(scsi.OpGetConfiguration, reply)

	profile, features, err := mmc.CurrentFeatures(context.Background(), drive)
	require.NoError(t, err)
	assert.Equal(t, mmc.ProfileDVDR, profile)
	require.Len(t, features, 2)
	assert.Equal(t, mmc.FeatureCore, features[0].Code)
	assert.Equal(t, "DVD-R/-RW Write", features[1].Code.String())
	assert.Equal(t, []byte{0x4C, 0, 0, 0}, features[1].Data)
	assert.Equal(t, "0x0123", mmc.FeatureCode(0x123).String())
}

func TestReadDiscInformation(t *testing.T) {
	drive := newDrive().Reply(scsi.OpReadDiscInformation, testsupport.DiscInfoReply(testsupport.DiscInfo{
		Status:         uint8(mmc.DiscIncomplete),
		Erasable:       true,
		FirstTrack:     1,
		Sessions:       2,
		FirstTrackLast: 3,
		LastTrackLast:  260,
		LastLeadoutLBA: 359849,
	}))

	info, err := mmc.ReadDiscInformation(context.Background(), drive)
	require.NoError(t, err)
	assert.Equal(t, mmc.DiscIncomplete, info.Status)
	assert.True(t, info.Erasable)
	assert.Equal(t, 2, info.Sessions)
	assert.Equal(t, 260, info.LastTrackLastSession)
	assert.Equal(t, uint32(359849), info.LastPossibleLeadOut)
	// Header probe, then the full read.
	assert.Equal(t, 2, drive.Count(scsi.OpReadDiscInformation))
}

func TestReadTOC(t *testing.T) {
	drive := newDrive().Reply(scsi.OpReadTOC, testsupport.TOCReply(1, 2,
		testsupport.TOCEntry{Track: 1, Control: mmc.ControlData, Start: 0},
		testsupport.TOCEntry{Track: 2, Control: 0, Start: 15000},
		testsupport.TOCEntry{Track: mmc.LeadoutTrack, Control: 0, Start: 30000},
	))

	toc, err := mmc.ReadTOC(context.Background(), drive)
	require.NoError(t, err)
	assert.Equal(t, 1, toc.FirstTrack)
	assert.Equal(t, 2, toc.LastTrack)
	require.Len(t, toc.Entries, 3)
	assert.Equal(t, uint8(mmc.ControlData), toc.Entries[0].Control)
	assert.Equal(t, uint32(15000), toc.Entries[1].Start)
	assert.True(t, toc.Entries[2].IsLeadout())
}

func TestReadATIP(t *testing.T) {
	drive := newDrive().Reply(scsi.OpReadTOC, testsupport.ATIPReply(true, 79, 59, 74))

	atip, err := mmc.ReadATIP(context.Background(), drive)
	require.NoError(t, err)
	assert.True(t, atip.Erasable)
	assert.Equal(t, int64(359849), atip.LeadOutStart)
	assert.Equal(t, int64(-11634), atip.LeadInStart)
	call := drive.Calls()[0]
	assert.Equal(t, byte(0x02), call.CDB[1]&0x02, "ATIP is read in MSF form")
	assert.Equal(t, byte(0x04), call.CDB[2]&0x0F)
}

func TestReadTrackInformation(t *testing.T) {
	drive := newDrive().Handle(scsi.OpReadTrackInformation, testsupport.TrackInfoResponder(map[uint32]testsupport.TrackInfo{
		1: {Track: 1, Session: 1, TrackMode: 4, DataMode: 1, Start: 0, Size: 12000},
		2: {Track: 2, Session: 2, Blank: true, Start: 18000, NWAValid: true, NWA: 18000, FreeBlocks: 300000},
	}))
	ctx := context.Background()

	first, err := mmc.ReadTrackInformation(ctx, drive, mmc.TrackByNumber, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Session)
	assert.Equal(t, uint32(12000), first.Size)
	assert.False(t, first.Blank)

	open, err := mmc.ReadTrackInformation(ctx, drive, mmc.TrackByNumber, 2)
	require.NoError(t, err)
	assert.True(t, open.Blank)
	assert.True(t, open.NWAValid)
	assert.Equal(t, uint32(18000), open.NWA)
	assert.Equal(t, uint32(300000), open.FreeBlocks)

	_, err = mmc.ReadTrackInformation(ctx, drive, mmc.TrackByNumber, 9)
	assert.ErrorIs(t, err, scsi.ErrOutOfRange)
}

func TestReadFormatCapacities(t *testing.T) {
	drive := newDrive().Reply(scsi.OpReadFormatCapacities, testsupport.FormatCapacitiesReply(
		testsupport.Capacity{Blocks: 2295104, Type: mmc.CapacityFormatted, Param: 2048},
		testsupport.Capacity{Blocks: 2295104, Type: mmc.FormatDVDPlusRW},
		testsupport.Capacity{Blocks: 2236704, Type: mmc.FormatMaxPacket, Param: 16},
	))

	caps, err := mmc.ReadFormatCapacities(context.Background(), drive)
	require.NoError(t, err)
	assert.False(t, caps.Unformatted())
	assert.Equal(t, uint32(2048), caps.Current.Parameter)
	require.Len(t, caps.Formattable, 2)

	d, ok := caps.Find(mmc.FormatMaxPacket)
	require.True(t, ok)
	assert.Equal(t, uint32(2236704), d.Blocks)
	assert.Equal(t, uint32(16), d.Parameter)

	_, ok = caps.Find(mmc.FormatBDRESpare)
	assert.False(t, ok)
}

func TestWriteSpeeds(t *testing.T) {
	drive := newDrive().Reply(scsi.OpGetPerformance, testsupport.PerformanceReply(11080, 5540))

	speeds, err := mmc.WriteSpeeds(context.Background(), drive)
	require.NoError(t, err)
	require.Len(t, speeds, 2)
	assert.Equal(t, uint32(11080), speeds[0].Write)
	assert.Equal(t, uint32(5540), speeds[1].Write)
	assert.Equal(t, byte(0x03), drive.Calls()[0].CDB[10])
}

func TestReadCapabilities(t *testing.T) {
	drive := newDrive().Reply(scsi.OpModeSense10, testsupport.ModeSenseReply(
		testsupport.CapabilitiesPage(true, true, false, 7056, 5645, 2822),
	))

	caps, err := mmc.ReadCapabilities(context.Background(), drive)
	require.NoError(t, err)
	assert.True(t, caps.CDRWrite)
	assert.True(t, caps.CDRWWrite)
	assert.False(t, caps.DVDRWrite)
	assert.True(t, caps.DVDROMRead)
	assert.True(t, caps.MultiSession)
	assert.Equal(t, uint16(7056), caps.MaxWriteSpeed)
	assert.Equal(t, []uint16{7056, 5645, 2822}, caps.WriteSpeeds)
}

func TestDecodeCapabilitiesWithoutSpeedList(t *testing.T) {
	page := testsupport.CapabilitiesPage(true, false, false)[:20]
	page[1] = 18

	caps, err := mmc.DecodeCapabilities(page)
	require.NoError(t, err)
	assert.True(t, caps.CDRWrite)
	assert.Empty(t, caps.WriteSpeeds)

	_, err = mmc.DecodeCapabilities(page[:10])
	assert.ErrorIs(t, err, scsi.ErrSizeMismatch)
}

func TestModeSenseRejectsWrongPage(t *testing.T) {
	drive := newDrive().Reply(scsi.OpModeSense10, testsupport.ModeSenseReply(testsupport.WriteParametersPage(mmc.WriteTypeTAO)))

	_, err := mmc.ModeSense(context.Background(), drive, mmc.PageCapabilities)
	assert.ErrorIs(t, err, scsi.ErrSizeMismatch)
}

func TestModeSelectWritesPatchedPage(t *testing.T) {
	page := testsupport.WriteParametersPage(mmc.WriteTypeTAO)
	page[0] |= 0x80 // PS as returned by MODE SENSE
	drive := newDrive().
		Reply(scsi.OpModeSense10, testsupport.ModeSenseReply(page)).
		Reply(scsi.OpModeSelect10, nil)
	ctx := context.Background()

	current, err := mmc.ModeSense(ctx, drive, mmc.PageWriteParameters)
	require.NoError(t, err)
	assert.Equal(t, uint8(mmc.WriteTypeTAO), current.WriteType())

	patched := current.Clone()
	patched.SetWriteType(mmc.WriteTypeSAO)
	assert.Equal(t, uint8(mmc.WriteTypeTAO), current.WriteType(), "clone must not alias")
	require.NoError(t, mmc.ModeSelect(ctx, drive, patched))

	calls := drive.Calls()
	sel := calls[len(calls)-1]
	require.Equal(t, scsi.OpModeSelect10, sel.Opcode())
	assert.Equal(t, byte(0x10), sel.CDB[1], "PF bit")
	require.Len(t, sel.Data, 8+len(page))
	assert.Equal(t, byte(0x05), sel.Data[8], "PS cleared")
	assert.Equal(t, byte(mmc.WriteTypeSAO), sel.Data[10]&0x0F)
}

func TestInquiry(t *testing.T) {
	drive := newDrive().Reply(scsi.OpInquiry, testsupport.InquiryReply("HL-DT-ST", "BD-RE  WH16NS60", "1.02"))

	id, err := mmc.Inquiry(context.Background(), drive)
	require.NoError(t, err)
	assert.Equal(t, "HL-DT-ST", id.Vendor)
	assert.Equal(t, "BD-RE  WH16NS60", id.Product)
	assert.Equal(t, "1.02", id.Revision)
	assert.True(t, id.Removable)
	assert.Equal(t, uint8(5), id.DeviceType)
}

func TestRead10(t *testing.T) {
	drive := newDrive().Handle(scsi.OpRead10, testsupport.SectorResponder(map[uint32][]byte{
		16: testsupport.ISOPrimaryDescriptor(1000),
	}, true))
	ctx := context.Background()

	buf := make([]byte, mmc.BlockSize)
	n, err := mmc.Read10(ctx, drive, 16, 1, buf)
	require.NoError(t, err)
	assert.Equal(t, mmc.BlockSize, n)
	assert.Equal(t, "CD001", string(buf[1:6]))

	_, err = mmc.Read10(ctx, drive, 17, 1, buf)
	assert.ErrorIs(t, err, scsi.ErrMediumError)

	_, err = mmc.Read10(ctx, drive, 16, 2, buf)
	assert.ErrorIs(t, err, scsi.ErrBadArgument)
}

func TestTestUnitReady(t *testing.T) {
	drive := newDrive().Fail(scsi.OpTestUnitReady, testsupport.NotReady(scsi.OpTestUnitReady, 0x04))
	err := mmc.TestUnitReady(context.Background(), drive)
	assert.True(t, errors.Is(err, scsi.ErrNotReady))
	assert.True(t, scsi.CodeOf(err).Retryable())
}
