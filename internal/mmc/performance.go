package mmc

import (
	"context"

	"discprobe/internal/scsi"
	"discprobe/internal/scsi/wire"
)

const performanceTypeWriteSpeed = 0x03

// WriteSpeed is one GET PERFORMANCE write speed descriptor. Speeds are in
// KB/s as reported by the drive.
type WriteSpeed struct {
	EndLBA          uint32
	Read            uint32
	Write           uint32
	RotationControl uint8
	Exact           bool
}

func getPerformanceCDB(alloc int) []byte {
	descriptors := 0
	if alloc > performanceHeaderLayout.Size() {
		descriptors = (alloc - performanceHeaderLayout.Size()) / writeSpeedLayout.Size()
	}
	cdb := make([]byte, 12)
	cdb[0] = scsi.OpGetPerformance
	wire.Put16(cdb[8:], uint16(descriptors))
	cdb[10] = performanceTypeWriteSpeed
	return cdb
}

// WriteSpeeds reads the write speed descriptors of the loaded medium
// (MMC-3 and later).
func WriteSpeeds(ctx context.Context, t scsi.Transport) ([]WriteSpeed, error) {
	buf, err := variableRead{
		op:     scsi.OpGetPerformance,
		header: performanceHeaderLayout.Size(),
		min:    performanceHeaderLayout.Size(),
		cdb:    getPerformanceCDB,
		size:   func(hdr []byte) int { return int(performanceHeaderLayout.Uint(hdr, "data_length")) + 4 },
	}.run(ctx, t)
	if err != nil {
		return nil, err
	}
	return parseWriteSpeeds(buf[performanceHeaderLayout.Size():]), nil
}

func parseWriteSpeeds(buf []byte) []WriteSpeed {
	size := writeSpeedLayout.Size()
	out := make([]WriteSpeed, 0, len(buf)/size)
	for ; len(buf) >= size; buf = buf[size:] {
		out = append(out, WriteSpeed{
			EndLBA:          uint32(writeSpeedLayout.Uint(buf, "end_lba")),
			Read:            uint32(writeSpeedLayout.Uint(buf, "read_speed")),
			Write:           uint32(writeSpeedLayout.Uint(buf, "write_speed")),
			RotationControl: uint8(writeSpeedLayout.Uint(buf, "wrc")),
			Exact:           writeSpeedLayout.Flag(buf, "exact"),
		})
	}
	return out
}
