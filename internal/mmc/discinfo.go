package mmc

import (
	"context"

	"discprobe/internal/scsi"
	"discprobe/internal/scsi/wire"
)

// DiscStatus is the disc status field of READ DISC INFORMATION.
type DiscStatus uint8

const (
	DiscEmpty      DiscStatus = 0
	DiscIncomplete DiscStatus = 1
	DiscFinalized  DiscStatus = 2
	DiscOther      DiscStatus = 3
)

func (s DiscStatus) String() string {
	switch s {
	case DiscEmpty:
		return "empty"
	case DiscIncomplete:
		return "incomplete"
	case DiscFinalized:
		return "finalized"
	default:
		return "other"
	}
}

// DiscInfo is the standard disc information block.
type DiscInfo struct {
	Status                DiscStatus
	LastSessionState      uint8
	Erasable              bool
	FirstTrack            int
	Sessions              int
	FirstTrackLastSession int
	LastTrackLastSession  int
	DiscIDValid           bool
	DiscID                uint32
	LastSessionLeadIn     uint32
	LastPossibleLeadOut   uint32
	DiscType              uint8
}

// minDiscInfo covers everything up to and including the lead-out fields.
const minDiscInfo = 24

func readDiscInformationCDB(alloc int) []byte {
	cdb := make([]byte, 10)
	cdb[0] = scsi.OpReadDiscInformation
	wire.Put16(cdb[7:], uint16(alloc))
	return cdb
}

// ReadDiscInformation issues READ DISC INFORMATION with data type 000b.
func ReadDiscInformation(ctx context.Context, t scsi.Transport) (*DiscInfo, error) {
	buf, err := variableRead{
		op:     scsi.OpReadDiscInformation,
		header: 2,
		min:    minDiscInfo,
		cdb:    readDiscInformationCDB,
		size:   func(hdr []byte) int { return int(wire.Get16(hdr)) + 2 },
	}.run(ctx, t)
	if err != nil {
		return nil, err
	}
	l := discInfoLayout
	info := &DiscInfo{
		Status:                DiscStatus(l.Uint(buf, "status")),
		LastSessionState:      uint8(l.Uint(buf, "last_session_state")),
		Erasable:              l.Flag(buf, "erasable"),
		FirstTrack:            int(l.Uint(buf, "first_track")),
		Sessions:              int(l.Uint(buf, "sessions_msb")<<8 | l.Uint(buf, "sessions_lsb")),
		FirstTrackLastSession: int(l.Uint(buf, "first_track_last_session_msb")<<8 | l.Uint(buf, "first_track_last_session_lsb")),
		LastTrackLastSession:  int(l.Uint(buf, "last_track_last_session_msb")<<8 | l.Uint(buf, "last_track_last_session_lsb")),
		DiscIDValid:           l.Flag(buf, "did_valid"),
		DiscID:                uint32(l.Uint(buf, "disc_id")),
		LastSessionLeadIn:     uint32(l.Uint(buf, "last_session_leadin")),
		LastPossibleLeadOut:   uint32(l.Uint(buf, "last_leadout_start")),
		DiscType:              uint8(l.Uint(buf, "disc_type")),
	}
	return info, nil
}
