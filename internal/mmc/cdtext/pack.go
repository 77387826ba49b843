// Package cdtext decodes the CD-TEXT pack area returned by READ TOC format
// 0101b into per-block album and track text.
package cdtext

import (
	"fmt"

	"discprobe/internal/scsi/wire"
)

// PackSize is the size of one pack including its CRC.
const PackSize = 18

// PackType is the ID1 byte of a pack.
type PackType uint8

const (
	PackTitle      PackType = 0x80
	PackPerformer  PackType = 0x81
	PackSongwriter PackType = 0x82
	PackComposer   PackType = 0x83
	PackArranger   PackType = 0x84
	PackMessage    PackType = 0x85
	PackDiscID     PackType = 0x86
	PackGenre      PackType = 0x87
	PackTOC        PackType = 0x88
	PackTOC2       PackType = 0x89
	PackClosed     PackType = 0x8D
	PackCode       PackType = 0x8E
	PackSizeInfo   PackType = 0x8F
)

var packLayout = wire.NewLayout("cd_text_pack", PackSize,
	wire.U8("type", 0),
	wire.Flag("extension", 1, 7),
	wire.Bits("track", 1, 0, 7),
	wire.U8("sequence", 2),
	wire.Flag("dbcc", 3, 7),
	wire.Bits("block", 3, 4, 3),
	wire.Bits("char_position", 3, 0, 4),
	wire.Bytes("text", 4, 12),
	wire.U16("crc", 16),
)

// Pack is one decoded 18 byte pack.
type Pack struct {
	Type      PackType
	Track     int
	Extension bool
	Sequence  int
	DBCC      bool
	Block     int
	CharPos   int
	Text      []byte
	CRC       uint16
}

// ParsePacks splits a pack area into packs. A trailing fragment shorter than
// one pack is ignored.
func ParsePacks(raw []byte) ([]Pack, error) {
	if len(raw) < PackSize {
		return nil, fmt.Errorf("cd-text: %d bytes is shorter than one pack", len(raw))
	}
	packs := make([]Pack, 0, len(raw)/PackSize)
	for ; len(raw) >= PackSize; raw = raw[PackSize:] {
		l := packLayout
		packs = append(packs, Pack{
			Type:      PackType(l.Uint(raw, "type")),
			Track:     int(l.Uint(raw, "track")),
			Extension: l.Flag(raw, "extension"),
			Sequence:  int(l.Uint(raw, "sequence")),
			DBCC:      l.Flag(raw, "dbcc"),
			Block:     int(l.Uint(raw, "block")),
			CharPos:   int(l.Uint(raw, "char_position")),
			Text:      l.Bytes(raw, "text"),
			CRC:       uint16(l.Uint(raw, "crc")),
		})
	}
	return packs, nil
}
