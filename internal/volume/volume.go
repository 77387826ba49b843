// Package volume reads ISO9660 volume descriptors from an optical medium to
// learn the size of the filesystem recorded in a track.
package volume

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"discprobe/internal/scsi/wire"
)

// BlockSize is the logical sector size assumed for descriptor reads.
const BlockSize = 2048

// descriptorStart is the sector offset of the first volume descriptor
// relative to the start of the track.
const descriptorStart = 16

// maxDescriptors bounds the descriptor set walk.
const maxDescriptors = 32

// ErrNoVolume is returned when no primary volume descriptor is found.
var ErrNoVolume = errors.New("no iso9660 volume")

// BlockReader reads whole 2048 byte blocks.
type BlockReader interface {
	ReadBlocks(ctx context.Context, lba uint32, count uint16, buf []byte) (int, error)
}

// Info is the useful part of a primary volume descriptor.
type Info struct {
	Label    string
	SystemID string
	// Blocks is the volume space size in 2048 byte blocks.
	Blocks  int64
	Generic bool
}

var standardID = []byte("CD001")

const (
	descriptorPrimary    = 0x01
	descriptorTerminator = 0xFF
)

var pvdLayout = wire.NewLayout("iso9660_primary_descriptor", 132,
	wire.U8("type", 0),
	wire.Bytes("standard_id", 1, 5),
	wire.U8("version", 6),
	wire.Reserved(7, 1),
	wire.Bytes("system_id", 8, 32),
	wire.Bytes("volume_id", 40, 32),
	wire.Reserved(72, 8),
	wire.Bytes("space_size_le", 80, 4),
	wire.U32("space_size", 84),
	wire.Reserved(88, 32),
	wire.Bytes("set_size", 120, 4),
	wire.Bytes("sequence_number", 124, 4),
	wire.Bytes("block_size_le", 128, 2),
	wire.U16("block_size", 130),
)

// Probe walks the volume descriptor set of the track starting at start and
// returns the primary volume descriptor.
func Probe(ctx context.Context, r BlockReader, start uint32) (*Info, error) {
	buf := make([]byte, BlockSize)
	for i := uint32(0); i < maxDescriptors; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lba := start + descriptorStart + i
		if _, err := r.ReadBlocks(ctx, lba, 1, buf); err != nil {
			return nil, fmt.Errorf("read volume descriptor at %d: %w", lba, err)
		}
		if !bytes.Equal(pvdLayout.Bytes(buf, "standard_id"), standardID) {
			return nil, ErrNoVolume
		}
		switch pvdLayout.Uint(buf, "type") {
		case descriptorPrimary:
			return decodePrimary(buf)
		case descriptorTerminator:
			return nil, ErrNoVolume
		}
	}
	return nil, ErrNoVolume
}

func decodePrimary(buf []byte) (*Info, error) {
	blocks := int64(pvdLayout.Uint(buf, "space_size"))
	blockSize := int64(pvdLayout.Uint(buf, "block_size"))
	if blocks == 0 {
		return nil, ErrNoVolume
	}
	if blockSize != 0 && blockSize != BlockSize {
		blocks = (blocks*blockSize + BlockSize - 1) / BlockSize
	}
	label := strings.TrimRight(string(pvdLayout.Bytes(buf, "volume_id")), " \x00")
	return &Info{
		Label:    label,
		SystemID: strings.TrimRight(string(pvdLayout.Bytes(buf, "system_id")), " \x00"),
		Blocks:   blocks,
		Generic:  IsGenericLabel(label),
	}, nil
}

// Size returns only the volume size in blocks.
func Size(ctx context.Context, r BlockReader, start uint32) (int64, error) {
	info, err := Probe(ctx, r, start)
	if err != nil {
		return 0, err
	}
	return info.Blocks, nil
}
