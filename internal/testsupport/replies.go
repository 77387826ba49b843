package testsupport

import (
	"encoding/binary"
)

// Builders for raw MMC reply payloads. Field offsets follow MMC-6.

// FeatureDescriptor builds a GET CONFIGURATION feature descriptor.
func FeatureDescriptor(code uint16, current bool, payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint16(buf, code)
	if current {
		buf[2] |= 0x01
	}
	buf[3] = byte(len(payload))
	copy(buf[4:], payload)
	return buf
}

// ConfigReply builds a GET CONFIGURATION reply.
func ConfigReply(profile uint16, features ...[]byte) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[6:], profile)
	for _, f := range features {
		buf = append(buf, f...)
	}
	binary.BigEndian.PutUint32(buf, uint32(len(buf)-4))
	return buf
}

// ConfigResponder answers GET CONFIGURATION with the current profile and
// the feature descriptor matching the starting feature number, if any.
func ConfigResponder(profile uint16, features map[uint16][]byte) Responder {
	return func(cdb []byte) ([]byte, error) {
		start := binary.BigEndian.Uint16(cdb[2:])
		if payload, ok := features[start]; ok && start != 0 {
			return ConfigReply(profile, FeatureDescriptor(start, true, payload)), nil
		}
		return ConfigReply(profile), nil
	}
}

// DiscInfo describes a READ DISC INFORMATION reply.
type DiscInfo struct {
	Status          uint8
	Erasable        bool
	FirstTrack      int
	Sessions        int
	FirstTrackLast  int
	LastTrackLast   int
	LastLeadoutLBA  uint32
	LastSessionLead uint32
}

// DiscInfoReply encodes d.
func DiscInfoReply(d DiscInfo) []byte {
	buf := make([]byte, 34)
	binary.BigEndian.PutUint16(buf, 32)
	buf[2] = d.Status & 0x03
	if d.Erasable {
		buf[2] |= 0x10
	}
	buf[3] = byte(d.FirstTrack)
	buf[4] = byte(d.Sessions)
	buf[5] = byte(d.FirstTrackLast)
	buf[6] = byte(d.LastTrackLast)
	buf[9] = byte(d.Sessions >> 8)
	buf[10] = byte(d.FirstTrackLast >> 8)
	buf[11] = byte(d.LastTrackLast >> 8)
	binary.BigEndian.PutUint32(buf[16:], d.LastSessionLead)
	binary.BigEndian.PutUint32(buf[20:], d.LastLeadoutLBA)
	return buf
}

// TOCEntry is one formatted TOC descriptor.
type TOCEntry struct {
	Track   int
	Control uint8
	Start   uint32
}

// TOCReply builds a formatted READ TOC reply.
func TOCReply(first, last int, entries ...TOCEntry) []byte {
	buf := make([]byte, 4, 4+8*len(entries))
	buf[2] = byte(first)
	buf[3] = byte(last)
	for _, e := range entries {
		d := make([]byte, 8)
		d[1] = 0x10 | e.Control&0x0F
		d[2] = byte(e.Track)
		binary.BigEndian.PutUint32(d[4:], e.Start)
		buf = append(buf, d...)
	}
	binary.BigEndian.PutUint16(buf, uint16(len(buf)-2))
	return buf
}

// ATIPReply builds an ATIP reply with the given lead-out start time.
func ATIPReply(erasable bool, m, s, f int) []byte {
	buf := make([]byte, 28)
	binary.BigEndian.PutUint16(buf, 26)
	if erasable {
		buf[6] |= 0x40
	}
	buf[8], buf[9], buf[10] = 97, 26, 66
	buf[12], buf[13], buf[14] = byte(m), byte(s), byte(f)
	return buf
}

// TrackInfo describes a READ TRACK INFORMATION reply.
type TrackInfo struct {
	Track      int
	Session    int
	TrackMode  uint8
	DataMode   uint8
	Blank      bool
	Start      uint32
	NWAValid   bool
	NWA        uint32
	FreeBlocks uint32
	Size       uint32
}

// TrackInfoReply encodes t.
func TrackInfoReply(t TrackInfo) []byte {
	buf := make([]byte, 36)
	binary.BigEndian.PutUint16(buf, 34)
	buf[2] = byte(t.Track)
	buf[3] = byte(t.Session)
	buf[5] = t.TrackMode & 0x0F
	buf[6] = t.DataMode & 0x0F
	if t.Blank {
		buf[6] |= 0x40
	}
	if t.NWAValid {
		buf[7] |= 0x01
	}
	binary.BigEndian.PutUint32(buf[8:], t.Start)
	binary.BigEndian.PutUint32(buf[12:], t.NWA)
	binary.BigEndian.PutUint32(buf[16:], t.FreeBlocks)
	binary.BigEndian.PutUint32(buf[24:], t.Size)
	buf[32] = byte(t.Track >> 8)
	buf[33] = byte(t.Session >> 8)
	return buf
}

// TrackInfoResponder answers READ TRACK INFORMATION by track number from
// tracks. Unknown numbers fail with an out-of-range sense.
func TrackInfoResponder(tracks map[uint32]TrackInfo) Responder {
	return func(cdb []byte) ([]byte, error) {
		number := binary.BigEndian.Uint32(cdb[2:])
		t, ok := tracks[number]
		if !ok {
			return nil, IllegalRequest(cdb[0], 0x21)
		}
		return TrackInfoReply(t), nil
	}
}

// Capacity is one READ FORMAT CAPACITIES descriptor.
type Capacity struct {
	Blocks uint32
	Type   uint8
	Param  uint32
}

// FormatCapacitiesReply builds a capacity list.
func FormatCapacitiesReply(current Capacity, formattable ...Capacity) []byte {
	buf := make([]byte, 4, 4+8*(1+len(formattable)))
	buf[3] = byte(8 * (1 + len(formattable)))
	put := func(c Capacity, typ byte) {
		d := make([]byte, 8)
		binary.BigEndian.PutUint32(d, c.Blocks)
		d[4] = typ
		d[5] = byte(c.Param >> 16)
		d[6] = byte(c.Param >> 8)
		d[7] = byte(c.Param)
		buf = append(buf, d...)
	}
	put(current, current.Type&0x03)
	for _, c := range formattable {
		put(c, c.Type<<2)
	}
	return buf
}

// PerformanceReply builds a GET PERFORMANCE write speed reply from write
// speeds in KB/s.
func PerformanceReply(speeds ...uint32) []byte {
	buf := make([]byte, 8, 8+16*len(speeds))
	for _, s := range speeds {
		d := make([]byte, 16)
		binary.BigEndian.PutUint32(d[8:], s)
		binary.BigEndian.PutUint32(d[12:], s)
		buf = append(buf, d...)
	}
	binary.BigEndian.PutUint32(buf, uint32(len(buf)-4))
	return buf
}

// ModeSenseReply wraps a page in a MODE SENSE(10) header without block
// descriptors.
func ModeSenseReply(page []byte) []byte {
	buf := make([]byte, 8, 8+len(page))
	buf = append(buf, page...)
	binary.BigEndian.PutUint16(buf, uint16(len(buf)-2))
	return buf
}

// WriteParametersPage builds mode page 05h with the given write type.
func WriteParametersPage(writeType uint8) []byte {
	page := make([]byte, 52)
	page[0] = 0x05
	page[1] = 50
	page[2] = writeType & 0x0F
	page[3] = 0x04
	page[4] = 0x08
	return page
}

// CapabilitiesPage builds mode page 2Ah. Write bits are for CD-R, CD-RW,
// DVD-R and DVD-RAM in that order.
func CapabilitiesPage(cdr, cdrw, dvdr bool, speeds ...uint16) []byte {
	page := make([]byte, 32+4*len(speeds))
	page[0] = 0x2A
	page[1] = byte(len(page) - 2)
	page[2] = 0x3B
	if cdr {
		page[3] |= 0x01
	}
	if cdrw {
		page[3] |= 0x02
	}
	if dvdr {
		page[3] |= 0x10
	}
	page[4] = 0x40
	if len(speeds) > 0 {
		binary.BigEndian.PutUint16(page[18:], speeds[0])
		binary.BigEndian.PutUint16(page[28:], speeds[0])
	}
	binary.BigEndian.PutUint16(page[30:], uint16(len(speeds)))
	for i, s := range speeds {
		binary.BigEndian.PutUint16(page[32+4*i+2:], s)
	}
	return page
}

// InquiryReply builds standard INQUIRY data for a CD/DVD device.
func InquiryReply(vendor, product, revision string) []byte {
	buf := make([]byte, 36)
	buf[0] = 0x05
	buf[1] = 0x80
	buf[4] = 31
	pad := func(dst []byte, s string) {
		for i := range dst {
			dst[i] = ' '
		}
		copy(dst, s)
	}
	pad(buf[8:16], vendor)
	pad(buf[16:32], product)
	pad(buf[32:36], revision)
	return buf
}

// ISOPrimaryDescriptor builds an ISO9660 primary volume descriptor sector
// announcing a volume of blocks sectors.
func ISOPrimaryDescriptor(blocks uint32) []byte {
	sector := make([]byte, 2048)
	sector[0] = 0x01
	copy(sector[1:6], "CD001")
	sector[6] = 0x01
	copy(sector[40:72], "TEST_VOLUME")
	binary.LittleEndian.PutUint32(sector[80:], blocks)
	binary.BigEndian.PutUint32(sector[84:], blocks)
	binary.LittleEndian.PutUint16(sector[128:], 2048)
	binary.BigEndian.PutUint16(sector[130:], 2048)
	return sector
}

// ISOTerminator builds a volume descriptor set terminator sector.
func ISOTerminator() []byte {
	sector := make([]byte, 2048)
	sector[0] = 0xFF
	copy(sector[1:6], "CD001")
	sector[6] = 0x01
	return sector
}

// SectorResponder answers READ(10) and READ CD from a sparse map of 2048 byte
// sectors. Missing sectors read as zeros unless strict is set, in which case
// they fail with a medium error.
func SectorResponder(sectors map[uint32][]byte, strict bool) Responder {
	return func(cdb []byte) ([]byte, error) {
		lba := binary.BigEndian.Uint32(cdb[2:])
		var count uint32
		if cdb[0] == 0x28 {
			count = uint32(binary.BigEndian.Uint16(cdb[7:]))
		} else {
			count = uint32(cdb[6])<<16 | uint32(cdb[7])<<8 | uint32(cdb[8])
		}
		out := make([]byte, 0, 2048*int(count))
		for i := uint32(0); i < count; i++ {
			sector, ok := sectors[lba+i]
			if !ok {
				if strict {
					return nil, mediumError(cdb[0])
				}
				sector = make([]byte, 2048)
			}
			out = append(out, sector...)
		}
		return out, nil
	}
}

// ModePagesResponder answers MODE SENSE(10) with the page matching the
// requested page code. Unknown pages fail as an invalid field.
func ModePagesResponder(pages map[byte][]byte) Responder {
	return func(cdb []byte) ([]byte, error) {
		page, ok := pages[cdb[2]&0x3F]
		if !ok {
			return nil, IllegalRequest(cdb[0], 0x24)
		}
		return ModeSenseReply(page), nil
	}
}

// TOCResponder answers READ TOC/PMA/ATIP by format: 0 for the formatted TOC,
// 4 for the ATIP and 5 for CD-TEXT. Missing formats fail as an invalid field.
func TOCResponder(formats map[byte][]byte) Responder {
	return func(cdb []byte) ([]byte, error) {
		reply, ok := formats[cdb[2]&0x0F]
		if !ok {
			return nil, IllegalRequest(cdb[0], 0x24)
		}
		return reply, nil
	}
}
