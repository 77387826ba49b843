package mmc

import (
	"context"

	"discprobe/internal/scsi"
	"discprobe/internal/scsi/wire"
)

// READ TOC formats.
const (
	tocFormatFormatted = 0x00
	tocFormatATIP      = 0x04
	tocFormatCDText    = 0x05
)

// LeadoutTrack is the track number of the lead-out descriptor in a TOC.
const LeadoutTrack = 0xAA

// Control nibble bits of a TOC descriptor.
const (
	ControlPreEmphasis = 0x01
	ControlIncremental = 0x01
	ControlCopy        = 0x02
	ControlData        = 0x04
	ControlFourChannel = 0x08
)

// TOCEntry is one formatted TOC track descriptor.
type TOCEntry struct {
	Track   int
	ADR     uint8
	Control uint8
	Start   uint32
}

// IsLeadout reports whether the entry is the lead-out marker.
func (e TOCEntry) IsLeadout() bool { return e.Track == LeadoutTrack }

// TOC is a formatted table of contents.
type TOC struct {
	FirstTrack int
	LastTrack  int
	Entries    []TOCEntry
}

func readTOCCDB(format byte, msf bool, number byte, alloc int) []byte {
	cdb := make([]byte, 10)
	cdb[0] = scsi.OpReadTOC
	if msf {
		cdb[1] = 0x02
	}
	cdb[2] = format & 0x0F
	cdb[6] = number
	wire.Put16(cdb[7:], uint16(alloc))
	return cdb
}

func readTOC(ctx context.Context, t scsi.Transport, format byte, msf bool, number byte, min int) ([]byte, error) {
	return variableRead{
		op:     scsi.OpReadTOC,
		header: tocHeaderLayout.Size(),
		min:    min,
		cdb:    func(alloc int) []byte { return readTOCCDB(format, msf, number, alloc) },
		size:   func(hdr []byte) int { return int(tocHeaderLayout.Uint(hdr, "length")) + 2 },
	}.run(ctx, t)
}

// ReadTOC reads the formatted TOC with LBA addressing, starting at track 1.
func ReadTOC(ctx context.Context, t scsi.Transport) (*TOC, error) {
	buf, err := readTOC(ctx, t, tocFormatFormatted, false, 1, tocHeaderLayout.Size()+tocDescriptorLayout.Size())
	if err != nil {
		return nil, err
	}
	toc := &TOC{
		FirstTrack: int(tocHeaderLayout.Uint(buf, "first")),
		LastTrack:  int(tocHeaderLayout.Uint(buf, "last")),
	}
	size := tocDescriptorLayout.Size()
	for rest := buf[tocHeaderLayout.Size():]; len(rest) >= size; rest = rest[size:] {
		toc.Entries = append(toc.Entries, TOCEntry{
			Track:   int(tocDescriptorLayout.Uint(rest, "track")),
			ADR:     uint8(tocDescriptorLayout.Uint(rest, "adr")),
			Control: uint8(tocDescriptorLayout.Uint(rest, "control")),
			Start:   uint32(tocDescriptorLayout.Uint(rest, "start")),
		})
	}
	return toc, nil
}

// ATIP is the decoded Absolute Time In Pregroove of a writable CD.
type ATIP struct {
	Erasable     bool
	SubType      uint8
	LeadInStart  int64
	LeadOutStart int64
}

// minATIP covers the header and fields through the lead-out start time.
const minATIP = 16

// ReadATIP reads the ATIP. Pressed CDs and DVDs fail this command.
func ReadATIP(ctx context.Context, t scsi.Transport) (*ATIP, error) {
	buf, err := readTOC(ctx, t, tocFormatATIP, true, 0, minATIP)
	if err != nil {
		return nil, err
	}
	l := atipLayout
	leadIn := wire.MSFToLBA(int(l.Uint(buf, "leadin_m")), int(l.Uint(buf, "leadin_s")), int(l.Uint(buf, "leadin_f")))
	// Lead-in times at or above 90 minutes encode negative addresses.
	if l.Uint(buf, "leadin_m") >= 90 {
		leadIn -= 450000
	}
	return &ATIP{
		Erasable:     l.Flag(buf, "erasable"),
		SubType:      uint8(l.Uint(buf, "sub_type")),
		LeadInStart:  leadIn,
		LeadOutStart: wire.MSFToLBA(int(l.Uint(buf, "leadout_m")), int(l.Uint(buf, "leadout_s")), int(l.Uint(buf, "leadout_f"))),
	}, nil
}

// ReadCDTextPacks returns the raw CD-TEXT pack area without the header.
func ReadCDTextPacks(ctx context.Context, t scsi.Transport) ([]byte, error) {
	buf, err := readTOC(ctx, t, tocFormatCDText, false, 0, tocHeaderLayout.Size())
	if err != nil {
		return nil, err
	}
	return buf[tocHeaderLayout.Size():], nil
}
