package scsi_test

import (
	"context"
	"errors"
	"testing"

	"discprobe/internal/scsi"
)

type countingTransport struct {
	calls  int
	onCall func()
}

func (c *countingTransport) Issue(_ context.Context, cmd *scsi.Command) (int, error) {
	c.calls++
	if c.onCall != nil {
		c.onCall()
	}
	return len(cmd.Buffer), nil
}

func TestGuardStopsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	next := &countingTransport{}
	guard := scsi.NewGuard(ctx, next)
	cmd := &scsi.Command{CDB: make([]byte, 6)}

	if _, err := guard.Issue(context.Background(), cmd); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	cancel()
	if _, err := guard.Issue(context.Background(), cmd); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected 1 forwarded command, got %d", next.calls)
	}
	if guard.Issued() != 1 {
		t.Fatalf("Issued() = %d, want 1", guard.Issued())
	}
}

func TestGuardReportsCancelObservedDuringCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	next := &countingTransport{onCall: cancel}
	guard := scsi.NewGuard(ctx, next)

	_, err := guard.Issue(context.Background(), &scsi.Command{CDB: make([]byte, 10)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation after command, got %v", err)
	}
}
