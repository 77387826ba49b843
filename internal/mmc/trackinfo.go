package mmc

import (
	"context"

	"discprobe/internal/scsi"
	"discprobe/internal/scsi/wire"
)

// Address types of READ TRACK INFORMATION.
const (
	TrackByLBA     = 0x00
	TrackByNumber  = 0x01
	TrackBySession = 0x02
)

// InvisibleTrack addresses the incomplete (invisible) track by number.
const InvisibleTrack = 0xFF

// TrackInfo is the decoded track information block.
type TrackInfo struct {
	Track        int
	Session      int
	TrackMode    uint8
	DataMode     uint8
	Copy         bool
	Damage       bool
	Blank        bool
	Packet       bool
	FixedPacket  bool
	Start        uint32
	NWAValid     bool
	NWA          uint32
	FreeBlocks   uint32
	PacketSize   uint32
	Size         uint32
	LastRecorded uint32
}

// minTrackInfo covers everything through the track size field.
const minTrackInfo = 28

func readTrackInfoCDB(addressType byte, number uint32, alloc int) []byte {
	cdb := make([]byte, 10)
	cdb[0] = scsi.OpReadTrackInformation
	cdb[1] = addressType & 0x03
	wire.Put32(cdb[2:], number)
	wire.Put16(cdb[7:], uint16(alloc))
	return cdb
}

// ReadTrackInformation reads the track information block for a track
// number, session number or LBA depending on addressType.
func ReadTrackInformation(ctx context.Context, t scsi.Transport, addressType byte, number uint32) (*TrackInfo, error) {
	buf, err := variableRead{
		op:     scsi.OpReadTrackInformation,
		header: 2,
		min:    minTrackInfo,
		cdb:    func(alloc int) []byte { return readTrackInfoCDB(addressType, number, alloc) },
		size:   func(hdr []byte) int { return int(wire.Get16(hdr)) + 2 },
	}.run(ctx, t)
	if err != nil {
		return nil, err
	}
	l := trackInfoLayout
	return &TrackInfo{
		Track:        int(l.Uint(buf, "track_msb")<<8 | l.Uint(buf, "track_lsb")),
		Session:      int(l.Uint(buf, "session_msb")<<8 | l.Uint(buf, "session_lsb")),
		TrackMode:    uint8(l.Uint(buf, "track_mode")),
		DataMode:     uint8(l.Uint(buf, "data_mode")),
		Copy:         l.Flag(buf, "copy"),
		Damage:       l.Flag(buf, "damage"),
		Blank:        l.Flag(buf, "blank"),
		Packet:       l.Flag(buf, "packet"),
		FixedPacket:  l.Flag(buf, "fixed_packet"),
		Start:        uint32(l.Uint(buf, "start")),
		NWAValid:     l.Flag(buf, "nwa_valid"),
		NWA:          uint32(l.Uint(buf, "nwa")),
		FreeBlocks:   uint32(l.Uint(buf, "free_blocks")),
		PacketSize:   uint32(l.Uint(buf, "packet_size")),
		Size:         uint32(l.Uint(buf, "size")),
		LastRecorded: uint32(l.Uint(buf, "last_recorded")),
	}, nil
}
