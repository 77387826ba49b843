package mmc

import (
	"context"
	"strings"

	"discprobe/internal/scsi"
	"discprobe/internal/scsi/wire"
)

// BlockSize is the size of a data block on every medium handled here.
const BlockSize = 2048

// RawSectorSize is the size of a full CD sector as returned by READ CD.
const RawSectorSize = 2352

// TestUnitReady reports whether the drive is ready to accept medium access
// commands. A nil error means ready.
func TestUnitReady(ctx context.Context, t scsi.Transport) error {
	cdb := make([]byte, 6)
	cdb[0] = scsi.OpTestUnitReady
	_, err := t.Issue(ctx, &scsi.Command{CDB: cdb, Direction: scsi.DirNone})
	return err
}

// DeviceTypeCDROM is the INQUIRY peripheral device type of CD/DVD/BD drives.
const DeviceTypeCDROM = 0x05

// Identity is the drive identification from standard INQUIRY data.
type Identity struct {
	DeviceType uint8
	Removable  bool
	Vendor     string
	Product    string
	Revision   string
}

// Inquiry issues a standard INQUIRY.
func Inquiry(ctx context.Context, t scsi.Transport) (*Identity, error) {
	buf := make([]byte, inquiryLayout.Size())
	cdb := make([]byte, 6)
	cdb[0] = scsi.OpInquiry
	wire.Put16(cdb[3:], uint16(len(buf)))
	n, err := readCommand(ctx, t, cdb, buf)
	if err != nil {
		return nil, err
	}
	if n < len(buf) {
		return nil, scsi.ShortResponse(scsi.OpInquiry, n, len(buf))
	}
	return &Identity{
		DeviceType: uint8(inquiryLayout.Uint(buf, "device_type")),
		Removable:  inquiryLayout.Flag(buf, "rmb"),
		Vendor:     trimASCII(inquiryLayout.Bytes(buf, "vendor")),
		Product:    trimASCII(inquiryLayout.Bytes(buf, "product")),
		Revision:   trimASCII(inquiryLayout.Bytes(buf, "revision")),
	}, nil
}

func trimASCII(b []byte) string {
	return strings.TrimSpace(strings.TrimRight(string(b), "\x00"))
}

// Read10 reads count 2048-byte blocks starting at lba into buf.
func Read10(ctx context.Context, t scsi.Transport, lba uint32, count uint16, buf []byte) (int, error) {
	want := int(count) * BlockSize
	if len(buf) < want {
		return 0, &scsi.Error{Op: scsi.OpcodeName(scsi.OpRead10), Code: scsi.ErrBadArgument, Detail: "buffer too small"}
	}
	cdb := make([]byte, 10)
	cdb[0] = scsi.OpRead10
	wire.Put32(cdb[2:], lba)
	wire.Put16(cdb[7:], count)
	n, err := readCommand(ctx, t, cdb, buf[:want])
	if err != nil {
		return n, err
	}
	if n < want {
		return n, scsi.ShortResponse(scsi.OpRead10, n, want)
	}
	return n, nil
}

// ReadCD reads count sectors of any type starting at lba and returns the
// user data portion of each (2048 bytes for data sectors, 2352 for audio).
func ReadCD(ctx context.Context, t scsi.Transport, lba uint32, count uint32, buf []byte) (int, error) {
	cdb := make([]byte, 12)
	cdb[0] = scsi.OpReadCD
	// Expected sector type: any.
	cdb[1] = 0x00
	wire.Put32(cdb[2:], lba)
	wire.Put24(cdb[6:], count)
	// User data only, no header, sync, EDC or sub-channel.
	cdb[9] = 0x10
	return readCommand(ctx, t, cdb, buf)
}
