package volume

import (
	"context"

	"discprobe/internal/mmc"
	"discprobe/internal/scsi"
)

type transportReader struct {
	t scsi.Transport
}

// NewReader reads blocks with READ(10) through t.
func NewReader(t scsi.Transport) BlockReader {
	return transportReader{t: t}
}

func (r transportReader) ReadBlocks(ctx context.Context, lba uint32, count uint16, buf []byte) (int, error) {
	return mmc.Read10(ctx, r.t, lba, count, buf)
}
