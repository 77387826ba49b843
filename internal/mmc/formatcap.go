package mmc

import (
	"context"

	"discprobe/internal/scsi"
	"discprobe/internal/scsi/wire"
)

// Descriptor types of the current/maximum capacity descriptor.
const (
	CapacityUnformatted = 0x01
	CapacityFormatted   = 0x02
	CapacityNoMedia     = 0x03
)

// Format types of formattable capacity descriptors.
const (
	FormatFull          = 0x00
	FormatSpareArea     = 0x01
	FormatMaxPacket     = 0x10
	FormatDVDPlusRW     = 0x26
	FormatBDRESpare     = 0x30
	FormatBDREQuickCert = 0x31
	FormatBDRSRM        = 0x32
)

// CapacityDescriptor is one descriptor of the capacity list.
type CapacityDescriptor struct {
	Blocks uint32
	// Type is the descriptor type for the current descriptor and the format
	// type for formattable descriptors.
	Type      uint8
	Parameter uint32
}

// FormatCapacities is the decoded READ FORMAT CAPACITIES reply.
type FormatCapacities struct {
	Current     CapacityDescriptor
	Formattable []CapacityDescriptor
}

func readFormatCapacitiesCDB(alloc int) []byte {
	cdb := make([]byte, 10)
	cdb[0] = scsi.OpReadFormatCapacities
	wire.Put16(cdb[7:], uint16(alloc))
	return cdb
}

// ReadFormatCapacities returns the current capacity descriptor and the list
// of formattable capacities.
func ReadFormatCapacities(ctx context.Context, t scsi.Transport) (*FormatCapacities, error) {
	hdrSize := capacityListHeaderLayout.Size()
	descSize := currentCapacityLayout.Size()
	buf, err := variableRead{
		op:     scsi.OpReadFormatCapacities,
		header: hdrSize,
		min:    hdrSize + descSize,
		cdb:    readFormatCapacitiesCDB,
		size:   func(hdr []byte) int { return int(capacityListHeaderLayout.Uint(hdr, "list_length")) + hdrSize },
	}.run(ctx, t)
	if err != nil {
		return nil, err
	}
	rest := buf[hdrSize:]
	caps := &FormatCapacities{
		Current: CapacityDescriptor{
			Blocks:    uint32(currentCapacityLayout.Uint(rest, "blocks")),
			Type:      uint8(currentCapacityLayout.Uint(rest, "descriptor_type")),
			Parameter: uint32(currentCapacityLayout.Uint(rest, "block_length")),
		},
	}
	for rest = rest[descSize:]; len(rest) >= descSize; rest = rest[descSize:] {
		caps.Formattable = append(caps.Formattable, CapacityDescriptor{
			Blocks:    uint32(formattableCapacityLayout.Uint(rest, "blocks")),
			Type:      uint8(formattableCapacityLayout.Uint(rest, "format_type")),
			Parameter: uint32(formattableCapacityLayout.Uint(rest, "type_parameter")),
		})
	}
	return caps, nil
}

// Unformatted reports whether the medium is present but not formatted.
func (c *FormatCapacities) Unformatted() bool {
	return c.Current.Type == CapacityUnformatted
}

// Find returns the first formattable descriptor with the given format type.
func (c *FormatCapacities) Find(formatType uint8) (CapacityDescriptor, bool) {
	for _, d := range c.Formattable {
		if d.Type == formatType {
			return d, true
		}
	}
	return CapacityDescriptor{}, false
}
