package volume_test

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"discprobe/internal/scsi"
	"discprobe/internal/testsupport"
	"discprobe/internal/volume"
)

func driveWith(sectors map[uint32][]byte) *testsupport.FakeDrive {
	return testsupport.NewFakeDrive("/dev/sr0").
		Handle(scsi.OpRead10, testsupport.SectorResponder(sectors, false))
}

func TestProbeReadsPrimaryDescriptor(t *testing.T) {
	drive := driveWith(map[uint32][]byte{16: testsupport.ISOPrimaryDescriptor(5000)})

	info, err := volume.Probe(context.Background(), volume.NewReader(drive), 0)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Blocks != 5000 {
		t.Fatalf("blocks = %d, want 5000", info.Blocks)
	}
	if info.Label != "TEST_VOLUME" {
		t.Fatalf("label = %q", info.Label)
	}
}

func TestProbeHonoursTrackStart(t *testing.T) {
	drive := driveWith(map[uint32][]byte{12016: testsupport.ISOPrimaryDescriptor(700)})

	size, err := volume.Size(context.Background(), volume.NewReader(drive), 12000)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 700 {
		t.Fatalf("size = %d, want 700", size)
	}
}

func TestProbeSkipsSupplementaryDescriptors(t *testing.T) {
	boot := testsupport.ISOPrimaryDescriptor(0)
	boot[0] = 0x00
	drive := driveWith(map[uint32][]byte{
		16: boot,
		17: testsupport.ISOPrimaryDescriptor(1234),
	})

	size, err := volume.Size(context.Background(), volume.NewReader(drive), 0)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 1234 {
		t.Fatalf("size = %d", size)
	}
}

func TestProbeScalesLogicalBlockSize(t *testing.T) {
	pvd := testsupport.ISOPrimaryDescriptor(4000)
	binary.BigEndian.PutUint16(pvd[130:], 512)
	drive := driveWith(map[uint32][]byte{16: pvd})

	size, err := volume.Size(context.Background(), volume.NewReader(drive), 0)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 1000 {
		t.Fatalf("size = %d, want 1000", size)
	}
}

func TestProbeWithoutFilesystem(t *testing.T) {
	tests := []struct {
		name    string
		sectors map[uint32][]byte
	}{
		{name: "blank", sectors: map[uint32][]byte{}},
		{name: "terminator only", sectors: map[uint32][]byte{16: testsupport.ISOTerminator()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := volume.Probe(context.Background(), volume.NewReader(driveWith(tt.sectors)), 0)
			if !errors.Is(err, volume.ErrNoVolume) {
				t.Fatalf("err = %v, want ErrNoVolume", err)
			}
		})
	}
}

func TestProbePropagatesReadErrors(t *testing.T) {
	drive := testsupport.NewFakeDrive("/dev/sr0").
		Handle(scsi.OpRead10, testsupport.SectorResponder(nil, true))

	_, err := volume.Probe(context.Background(), volume.NewReader(drive), 0)
	if !errors.Is(err, scsi.ErrMediumError) {
		t.Fatalf("err = %v, want medium error", err)
	}
}

func TestIsGenericLabel(t *testing.T) {
	tests := map[string]bool{
		"":            true,
		"CDROM":       true,
		"20240101":    true,
		"AB1":         true,
		"NEW_VOLUME":  true,
		"Holiday2019": false,
		"Backups":     false,
	}
	for label, want := range tests {
		if got := volume.IsGenericLabel(label); got != want {
			t.Errorf("IsGenericLabel(%q) = %v, want %v", label, got, want)
		}
	}
}
