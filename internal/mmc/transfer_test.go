package mmc

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"

	"discprobe/internal/scsi"
	"discprobe/internal/scsi/wire"
	"discprobe/internal/testsupport"
)

func TestLayoutsCoverEveryBit(t *testing.T) {
	for _, l := range Layouts() {
		if err := l.CheckCoverage(); err != nil {
			t.Errorf("%v", err)
		}
	}
}

func TestLayoutsRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, l := range Layouts() {
		buf := make([]byte, l.Size())
		rng.Read(buf)
		vals, err := l.Decode(buf)
		if err != nil {
			t.Fatalf("%s: decode: %v", l.Name(), err)
		}
		out := make([]byte, l.Size())
		if err := l.Encode(vals, out); err != nil {
			t.Fatalf("%s: encode: %v", l.Name(), err)
		}
		if !bytes.Equal(buf, out) {
			t.Fatalf("%s: round trip mismatch\n in  %x\n out %x", l.Name(), buf, out)
		}
	}
}

// growingReply announces a length in a 2 byte header. Each issue records the
// allocation length it saw.
type growingReply struct {
	sizes  []int
	allocs []int
}

func (g *growingReply) Issue(_ context.Context, cmd *scsi.Command) (int, error) {
	alloc := int(wire.Get16(cmd.CDB[7:]))
	g.allocs = append(g.allocs, alloc)
	size := g.sizes[len(g.sizes)-1]
	if len(g.allocs) <= len(g.sizes) {
		size = g.sizes[len(g.allocs)-1]
	}
	reply := make([]byte, size)
	wire.Put16(reply, uint16(size-2))
	for i := 2; i < size; i++ {
		reply[i] = byte(i)
	}
	return copy(cmd.Buffer, reply), nil
}

func lengthPrefixed(min int) variableRead {
	return variableRead{
		op:     scsi.OpReadDiscInformation,
		header: 2,
		min:    min,
		cdb:    readDiscInformationCDB,
		size:   func(hdr []byte) int { return int(wire.Get16(hdr)) + 2 },
	}
}

func TestVariableReadUsesAnnouncedSize(t *testing.T) {
	g := &growingReply{sizes: []int{34, 34}}
	buf, err := lengthPrefixed(24).run(context.Background(), g)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(buf) != 34 {
		t.Fatalf("len = %d, want 34", len(buf))
	}
	if len(g.allocs) != 2 || g.allocs[0] != 2 || g.allocs[1] != 34 {
		t.Fatalf("allocations = %v, want [2 34]", g.allocs)
	}
}

func TestVariableReadReissuesOnceWhenReplyGrows(t *testing.T) {
	g := &growingReply{sizes: []int{34, 40, 40}}
	buf, err := lengthPrefixed(24).run(context.Background(), g)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(buf) != 40 {
		t.Fatalf("len = %d, want 40", len(buf))
	}
	if len(g.allocs) != 3 || g.allocs[2] != 40 {
		t.Fatalf("allocations = %v, want [2 34 40]", g.allocs)
	}
}

func TestVariableReadDoesNotReissueTwice(t *testing.T) {
	g := &growingReply{sizes: []int{30, 40, 50}}
	buf, err := lengthPrefixed(24).run(context.Background(), g)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(g.allocs) != 3 {
		t.Fatalf("allocations = %v, want 3 issues", g.allocs)
	}
	if len(buf) != 40 {
		t.Fatalf("len = %d, want 40", len(buf))
	}
}

func TestVariableReadRejectsShortAnnouncement(t *testing.T) {
	g := &growingReply{sizes: []int{10}}
	_, err := lengthPrefixed(24).run(context.Background(), g)
	if !errors.Is(err, scsi.ErrSizeMismatch) {
		t.Fatalf("err = %v, want size mismatch", err)
	}
	var serr *scsi.Error
	if !errors.As(err, &serr) || serr.Received != 10 {
		t.Fatalf("err = %#v, want received 10", err)
	}
}

func TestVariableReadPropagatesDeviceError(t *testing.T) {
	drive := testsupport.NewFakeDrive("/dev/sr0").
		Fail(scsi.OpReadDiscInformation, testsupport.NotReady(scsi.OpReadDiscInformation, 0x3A))
	_, err := ReadDiscInformation(context.Background(), drive)
	if !errors.Is(err, scsi.ErrNoMedium) {
		t.Fatalf("err = %v, want no medium", err)
	}
}

func TestClampAllocation(t *testing.T) {
	if got := clampAllocation(70000); got != maxAllocation {
		t.Fatalf("clamp = %d", got)
	}
	if got := clampAllocation(100); got != 100 {
		t.Fatalf("clamp = %d", got)
	}
}
