package mmc

import (
	"context"

	"discprobe/internal/scsi"
)

// maxAllocation is the largest length a two-byte allocation field can carry.
const maxAllocation = 0xFFFF

func clampAllocation(n int) int {
	if n > maxAllocation {
		return maxAllocation
	}
	return n
}

func readCommand(ctx context.Context, t scsi.Transport, cdb []byte, buf []byte) (int, error) {
	return t.Issue(ctx, &scsi.Command{CDB: cdb, Direction: scsi.DirRead, Buffer: buf})
}

// variableRead describes a command whose reply starts with its own length.
type variableRead struct {
	op byte
	// header is the size of the fixed header that carries the length.
	header int
	// min is the smallest complete reply accepted.
	min int
	// cdb builds the command for an allocation length.
	cdb func(alloc int) []byte
	// size returns the total reply size announced by hdr.
	size func(hdr []byte) int
}

// run performs the two-phase protocol and returns the reply trimmed to the
// size the device announced.
func (v variableRead) run(ctx context.Context, t scsi.Transport) ([]byte, error) {
	hdr := make([]byte, v.header)
	n, err := readCommand(ctx, t, v.cdb(len(hdr)), hdr)
	if err != nil {
		return nil, err
	}
	if n < v.header {
		return nil, scsi.ShortResponse(v.op, n, v.header)
	}

	size := clampAllocation(v.size(hdr))
	if size < v.min {
		return nil, scsi.ShortResponse(v.op, size, v.min)
	}
	if size <= v.header {
		return hdr[:size], nil
	}

	for attempt := 0; ; attempt++ {
		buf := make([]byte, size)
		n, err = readCommand(ctx, t, v.cdb(size), buf)
		if err != nil {
			return nil, err
		}
		if n < v.min {
			return nil, scsi.ShortResponse(v.op, n, v.min)
		}
		announced := clampAllocation(v.size(buf))
		if announced > size && attempt == 0 {
			size = announced
			continue
		}
		if announced < n {
			n = announced
		}
		if n < v.min {
			return nil, scsi.ShortResponse(v.op, n, v.min)
		}
		return buf[:n], nil
	}
}
