package mmc

import (
	"context"
	"fmt"

	"discprobe/internal/scsi"
	"discprobe/internal/scsi/wire"
)

// Mode page codes.
const (
	PageWriteParameters = 0x05
	PageCapabilities    = 0x2A
)

// Write types of the Write Parameters page.
const (
	WriteTypePacket = 0x00
	WriteTypeTAO    = 0x01
	WriteTypeSAO    = 0x02
	WriteTypeRaw    = 0x03
)

// ModePage is one mode page as returned by MODE SENSE(10). Data starts at
// the page code byte.
type ModePage struct {
	Code       byte
	MediumType byte
	Data       []byte
}

func modeSenseCDB(page byte, alloc int) []byte {
	cdb := make([]byte, 10)
	cdb[0] = scsi.OpModeSense10
	cdb[1] = 0x08 // DBD
	cdb[2] = page & 0x3F
	wire.Put16(cdb[7:], uint16(alloc))
	return cdb
}

// ModeSense reads the current values of one mode page.
func ModeSense(ctx context.Context, t scsi.Transport, page byte) (*ModePage, error) {
	hdrSize := modeHeaderLayout.Size()
	buf, err := variableRead{
		op:     scsi.OpModeSense10,
		header: hdrSize,
		min:    hdrSize + 2,
		cdb:    func(alloc int) []byte { return modeSenseCDB(page, alloc) },
		size:   func(hdr []byte) int { return int(modeHeaderLayout.Uint(hdr, "length")) + 2 },
	}.run(ctx, t)
	if err != nil {
		return nil, err
	}
	offset := hdrSize + int(modeHeaderLayout.Uint(buf, "block_descriptor_length"))
	if offset+2 > len(buf) {
		return nil, scsi.ShortResponse(scsi.OpModeSense10, len(buf), offset+2)
	}
	data := buf[offset:]
	code := data[0] & 0x3F
	if code != page&0x3F {
		return nil, &scsi.Error{
			Op:     scsi.OpcodeName(scsi.OpModeSense10),
			Code:   scsi.ErrSizeMismatch,
			Detail: fmt.Sprintf("asked for page 0x%02x, got 0x%02x", page, code),
		}
	}
	length := int(data[1]) + 2
	if length < len(data) {
		data = data[:length]
	}
	return &ModePage{
		Code:       code,
		MediumType: byte(modeHeaderLayout.Uint(buf, "medium_type")),
		Data:       append([]byte(nil), data...),
	}, nil
}

// ModeSelect writes page back to the drive with the PF bit set.
func ModeSelect(ctx context.Context, t scsi.Transport, page *ModePage) error {
	hdrSize := modeHeaderLayout.Size()
	buf := make([]byte, hdrSize+len(page.Data))
	copy(buf[hdrSize:], page.Data)
	// PS is reserved on MODE SELECT.
	buf[hdrSize] &= 0x3F

	cdb := make([]byte, 10)
	cdb[0] = scsi.OpModeSelect10
	cdb[1] = 0x10
	wire.Put16(cdb[7:], uint16(len(buf)))
	_, err := t.Issue(ctx, &scsi.Command{CDB: cdb, Direction: scsi.DirWrite, Buffer: buf})
	return err
}

// WriteType returns the write type of a Write Parameters page.
func (p *ModePage) WriteType() uint8 {
	return uint8(writeParamsLayout.Uint(p.Data, "write_type"))
}

// SetWriteType patches the write type of a Write Parameters page.
func (p *ModePage) SetWriteType(v uint8) {
	writeParamsLayout.SetUint(p.Data, "write_type", uint64(v))
}

// TestWrite reports the test (dummy) write bit of a Write Parameters page.
func (p *ModePage) TestWrite() bool {
	return writeParamsLayout.Flag(p.Data, "test_write")
}

// Clone returns a deep copy of the page.
func (p *ModePage) Clone() *ModePage {
	cp := *p
	cp.Data = append([]byte(nil), p.Data...)
	return &cp
}

// Capabilities is the decoded CD/DVD Capabilities and Mechanical Status page.
type Capabilities struct {
	CDRRead       bool
	CDRWRead      bool
	DVDROMRead    bool
	DVDRRead      bool
	DVDRAMRead    bool
	CDRWrite      bool
	CDRWWrite     bool
	DVDRWrite     bool
	DVDRAMWrite   bool
	TestWrite     bool
	BurnFree      bool
	MultiSession  bool
	MaxReadSpeed  uint16
	MaxWriteSpeed uint16
	CurWriteSpeed uint16
	BufferSizeKB  uint16
	WriteSpeeds   []uint16
}

// ReadCapabilities reads and decodes mode page 2Ah.
func ReadCapabilities(ctx context.Context, t scsi.Transport) (*Capabilities, error) {
	page, err := ModeSense(ctx, t, PageCapabilities)
	if err != nil {
		return nil, err
	}
	return DecodeCapabilities(page.Data)
}

// DecodeCapabilities decodes the body of page 2Ah. Pages from MMC-1 drives
// stop before the write speed descriptor list.
func DecodeCapabilities(data []byte) (*Capabilities, error) {
	const minPage = 20
	if len(data) < minPage {
		return nil, scsi.ShortResponse(scsi.OpModeSense10, len(data), minPage)
	}
	l := statusPageLayout
	caps := &Capabilities{
		CDRRead:       l.Flag(data, "cd_r_read"),
		CDRWRead:      l.Flag(data, "cd_rw_read"),
		DVDROMRead:    l.Flag(data, "dvd_rom_read"),
		DVDRRead:      l.Flag(data, "dvd_r_read"),
		DVDRAMRead:    l.Flag(data, "dvd_ram_read"),
		CDRWrite:      l.Flag(data, "cd_r_write"),
		CDRWWrite:     l.Flag(data, "cd_rw_write"),
		DVDRWrite:     l.Flag(data, "dvd_r_write"),
		DVDRAMWrite:   l.Flag(data, "dvd_ram_write"),
		TestWrite:     l.Flag(data, "test_write"),
		BurnFree:      l.Flag(data, "buf"),
		MultiSession:  l.Flag(data, "multisession"),
		MaxReadSpeed:  uint16(l.Uint(data, "max_read_speed")),
		MaxWriteSpeed: uint16(l.Uint(data, "max_write_speed")),
		CurWriteSpeed: uint16(l.Uint(data, "current_write_speed")),
		BufferSizeKB:  uint16(l.Uint(data, "buffer_size")),
	}
	if len(data) < l.Size() {
		return caps, nil
	}
	if selected := uint16(l.Uint(data, "current_write_speed_selected")); selected != 0 {
		caps.CurWriteSpeed = selected
	}
	count := int(l.Uint(data, "write_speed_descriptors"))
	rest := data[l.Size():]
	size := pageSpeedLayout.Size()
	for i := 0; i < count && len(rest) >= size; i++ {
		caps.WriteSpeeds = append(caps.WriteSpeeds, uint16(pageSpeedLayout.Uint(rest, "speed")))
		rest = rest[size:]
	}
	return caps, nil
}
