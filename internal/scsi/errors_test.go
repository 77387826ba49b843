package scsi_test

import (
	"errors"
	"fmt"
	"testing"

	"discprobe/internal/scsi"
)

func fixedSense(key, asc, ascq byte) []byte {
	buf := make([]byte, 18)
	buf[0] = 0x70
	buf[2] = key
	buf[7] = 10
	buf[12] = asc
	buf[13] = ascq
	return buf
}

func TestParseSenseFormats(t *testing.T) {
	sense, ok := scsi.ParseSense(fixedSense(0x02, 0x3A, 0x01))
	if !ok {
		t.Fatal("expected fixed sense to parse")
	}
	if sense.Key != 0x02 || sense.ASC != 0x3A || sense.ASCQ != 0x01 {
		t.Fatalf("unexpected fixed sense %+v", sense)
	}

	sense, ok = scsi.ParseSense([]byte{0x72, 0x05, 0x24, 0x00, 0, 0, 0, 0})
	if !ok {
		t.Fatal("expected descriptor sense to parse")
	}
	if sense.Key != 0x05 || sense.ASC != 0x24 {
		t.Fatalf("unexpected descriptor sense %+v", sense)
	}

	if _, ok := scsi.ParseSense([]byte{0x00, 0x00}); ok {
		t.Fatal("expected unknown response code to be rejected")
	}
	if _, ok := scsi.ParseSense(nil); ok {
		t.Fatal("expected empty buffer to be rejected")
	}
}

func TestSenseCodeMapping(t *testing.T) {
	cases := []struct {
		name  string
		sense scsi.Sense
		want  scsi.ErrorCode
	}{
		{"no medium", scsi.Sense{Key: scsi.SenseNotReady, ASC: 0x3A}, scsi.ErrNoMedium},
		{"becoming ready", scsi.Sense{Key: scsi.SenseNotReady, ASC: 0x04, ASCQ: 0x01}, scsi.ErrNotReady},
		{"invalid opcode", scsi.Sense{Key: scsi.SenseIllegalRequest, ASC: 0x20}, scsi.ErrInvalidCommand},
		{"lba out of range", scsi.Sense{Key: scsi.SenseIllegalRequest, ASC: 0x21}, scsi.ErrOutOfRange},
		{"invalid address", scsi.Sense{Key: scsi.SenseIllegalRequest, ASC: 0x21, ASCQ: 0x02}, scsi.ErrInvalidAddress},
		{"invalid field", scsi.Sense{Key: scsi.SenseIllegalRequest, ASC: 0x24}, scsi.ErrInvalidField},
		{"invalid parameter", scsi.Sense{Key: scsi.SenseIllegalRequest, ASC: 0x26}, scsi.ErrInvalidParameter},
		{"track mode", scsi.Sense{Key: scsi.SenseIllegalRequest, ASC: 0x64}, scsi.ErrInvalidTrackMode},
		{"medium changed", scsi.Sense{Key: scsi.SenseUnitAttention, ASC: 0x28}, scsi.ErrMediumChanged},
		{"medium error", scsi.Sense{Key: scsi.SenseMediumError, ASC: 0x11}, scsi.ErrMediumError},
		{"hardware", scsi.Sense{Key: scsi.SenseHardwareError}, scsi.ErrHardware},
		{"aborted", scsi.Sense{Key: scsi.SenseAbortedCommand}, scsi.ErrUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sense.Code(); got != tc.want {
				t.Fatalf("Code() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestErrorUnwrapsToCode(t *testing.T) {
	err := scsi.SenseError(scsi.OpTestUnitReady, scsi.Sense{Key: scsi.SenseNotReady, ASC: 0x3A})
	wrapped := fmt.Errorf("poll drive: %w", err)

	if !errors.Is(wrapped, scsi.ErrNoMedium) {
		t.Fatalf("expected wrapped error to match ErrNoMedium: %v", wrapped)
	}
	if errors.Is(wrapped, scsi.ErrNotReady) {
		t.Fatal("did not expect ErrNotReady match")
	}
	if got := scsi.CodeOf(wrapped); got != scsi.ErrNoMedium {
		t.Fatalf("CodeOf = %v, want ErrNoMedium", got)
	}
	if scsi.CodeOf(nil) != 0 {
		t.Fatal("expected CodeOf(nil) to be zero")
	}
	if scsi.CodeOf(errors.New("plain")) != scsi.ErrUnknown {
		t.Fatal("expected plain errors to map to ErrUnknown")
	}
}

func TestShortResponseCarriesCounts(t *testing.T) {
	err := scsi.ShortResponse(scsi.OpReadDiscInformation, 12, 34)
	if !errors.Is(err, scsi.ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
	if err.Received != 12 {
		t.Fatalf("Received = %d, want 12", err.Received)
	}
	want := "READ DISC INFORMATION: response size mismatch (received 12 bytes, need 34)"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestRetryableCodes(t *testing.T) {
	for _, code := range []scsi.ErrorCode{scsi.ErrNotReady, scsi.ErrMediumChanged, scsi.ErrBusy} {
		if !code.Retryable() {
			t.Fatalf("expected %v to be retryable", code)
		}
	}
	for _, code := range []scsi.ErrorCode{scsi.ErrNoMedium, scsi.ErrInvalidCommand, scsi.ErrIO} {
		if code.Retryable() {
			t.Fatalf("expected %v not to be retryable", code)
		}
	}
}

func TestCommandValidate(t *testing.T) {
	if err := (&scsi.Command{CDB: make([]byte, 6)}).Validate(); err != nil {
		t.Fatalf("expected 6 byte cdb to validate: %v", err)
	}
	if err := (&scsi.Command{CDB: make([]byte, 7)}).Validate(); !errors.Is(err, scsi.ErrBadArgument) {
		t.Fatalf("expected ErrBadArgument for odd cdb length, got %v", err)
	}
	cmd := &scsi.Command{CDB: make([]byte, 10), Direction: scsi.DirRead}
	if err := cmd.Validate(); !errors.Is(err, scsi.ErrBadArgument) {
		t.Fatalf("expected ErrBadArgument for missing buffer, got %v", err)
	}
}
