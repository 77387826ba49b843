package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discprobe/internal/media"
	"discprobe/internal/mmc"
	"discprobe/internal/probe"
	"discprobe/internal/scheduler"
	"discprobe/internal/scsi"
	"discprobe/internal/testsupport"
)

type stubProber struct {
	calls atomic.Int32
	fn    func(ctx context.Context, t scsi.Transport) (*media.Medium, error)
}

func (p *stubProber) Probe(ctx context.Context, t scsi.Transport) (*media.Medium, error) {
	p.calls.Add(1)
	if p.fn != nil {
		return p.fn(ctx, t)
	}
	b := media.NewBuilder()
	b.SetFormat(media.CDR)
	b.AddFlags(media.FlagBlank)
	return b.Build(), nil
}

func newScheduler(t *testing.T, opener scsi.Opener, prober scheduler.Prober) *scheduler.Scheduler {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	s := scheduler.New(scheduler.OptionsFromConfig(cfg, opener, prober, nil))
	t.Cleanup(s.Close)
	return s
}

func nextEvent(t *testing.T, s *scheduler.Scheduler) scheduler.Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for probe event")
		return scheduler.Event{}
	}
}

func TestProbeWaitsForNotReadyDrive(t *testing.T) {
	var turs atomic.Int32
	drive := testsupport.NewFakeDrive("/dev/sr0").
		Handle(scsi.OpTestUnitReady, func(cdb []byte) ([]byte, error) {
			if turs.Add(1) <= 3 {
				return nil, testsupport.NotReady(cdb[0], 0x04)
			}
			return nil, nil
		})
	prober := &stubProber{}
	s := newScheduler(t, drive.Opener(), prober)

	job, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)

	ev := nextEvent(t, s)
	require.NoError(t, ev.Err)
	assert.Equal(t, scheduler.Probed, ev.State)
	assert.Equal(t, job.ID(), ev.ProbeID)
	assert.Equal(t, "/dev/sr0", ev.Device)
	require.NotNil(t, ev.Medium)
	assert.Equal(t, media.CDR|media.FlagBlank, ev.Medium.Flags())

	assert.Equal(t, 4, drive.Count(scsi.OpTestUnitReady))
	assert.EqualValues(t, 1, prober.calls.Load())
	<-job.Done()
	assert.True(t, drive.Closed(), "device handle released")
	assert.Equal(t, scheduler.Probed, job.State())
}

func TestProbeStopsOnNoMedium(t *testing.T) {
	drive := testsupport.NewFakeDrive("/dev/sr0").
		Fail(scsi.OpTestUnitReady, testsupport.NotReady(scsi.OpTestUnitReady, 0x3A))
	prober := &stubProber{}
	s := newScheduler(t, drive.Opener(), prober)

	job, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)

	ev := nextEvent(t, s)
	assert.Equal(t, scheduler.Failed, ev.State)
	assert.ErrorIs(t, ev.Err, scsi.ErrNoMedium)
	assert.Nil(t, ev.Medium)
	assert.Equal(t, 1, drive.Count(scsi.OpTestUnitReady))
	assert.Zero(t, prober.calls.Load())

	m, err := job.Wait(context.Background())
	assert.Nil(t, m)
	assert.ErrorIs(t, err, scsi.ErrNoMedium)
}

func TestProbeGivesUpWhenNeverReady(t *testing.T) {
	drive := testsupport.NewFakeDrive("/dev/sr0").
		Fail(scsi.OpTestUnitReady, testsupport.NotReady(scsi.OpTestUnitReady, 0x04))
	cfg := testsupport.NewConfig(t)
	cfg.Probe.ReadyAttempts = 3
	s := scheduler.New(scheduler.OptionsFromConfig(cfg, drive.Opener(), &stubProber{}, nil))
	t.Cleanup(s.Close)

	_, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)

	ev := nextEvent(t, s)
	assert.ErrorIs(t, ev.Err, scheduler.ErrNotReady)
	assert.Equal(t, 3, drive.Count(scsi.OpTestUnitReady))
}

func TestOpenRetriesWhileBusy(t *testing.T) {
	drive := testsupport.NewFakeDrive("/dev/sr0").Reply(scsi.OpTestUnitReady, nil)
	var opens atomic.Int32
	opener := scsi.OpenerFunc(func(path string) (scsi.Handle, error) {
		if opens.Add(1) <= 2 {
			return nil, &scsi.Error{Op: "open " + path, Code: scsi.ErrBusy}
		}
		return drive.Opener().Open(path)
	})
	s := newScheduler(t, opener, &stubProber{})

	_, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)

	ev := nextEvent(t, s)
	require.NoError(t, ev.Err)
	assert.EqualValues(t, 3, opens.Load())
}

func TestOpenFailsFastOnPermission(t *testing.T) {
	var opens atomic.Int32
	opener := scsi.OpenerFunc(func(path string) (scsi.Handle, error) {
		opens.Add(1)
		return nil, &scsi.Error{Op: "open " + path, Code: scsi.ErrPermission}
	})
	s := newScheduler(t, opener, &stubProber{})

	_, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)

	ev := nextEvent(t, s)
	assert.Equal(t, scheduler.Failed, ev.State)
	assert.ErrorIs(t, ev.Err, scsi.ErrPermission)
	assert.EqualValues(t, 1, opens.Load())
}

func TestOpenGivesUpAfterBoundedAttempts(t *testing.T) {
	var opens atomic.Int32
	opener := scsi.OpenerFunc(func(path string) (scsi.Handle, error) {
		opens.Add(1)
		return nil, &scsi.Error{Op: "open " + path, Code: scsi.ErrBusy}
	})
	s := newScheduler(t, opener, &stubProber{})

	_, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)

	ev := nextEvent(t, s)
	assert.ErrorIs(t, ev.Err, scsi.ErrBusy)
	assert.EqualValues(t, 5, opens.Load())
}

func blockingProber(started chan<- struct{}) *stubProber {
	return &stubProber{fn: func(ctx context.Context, t scsi.Transport) (*media.Medium, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
}

func TestCancelBlocksUntilWorkerExits(t *testing.T) {
	drive := testsupport.NewFakeDrive("/dev/sr0").Reply(scsi.OpTestUnitReady, nil)
	started := make(chan struct{})
	s := newScheduler(t, drive.Opener(), blockingProber(started))

	job, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)
	<-started
	assert.Equal(t, scheduler.Probing, job.State())

	job.Cancel()

	select {
	case <-job.Done():
	default:
		t.Fatal("Cancel returned before the worker exited")
	}
	assert.Equal(t, scheduler.Cancelled, job.State())
	assert.True(t, drive.Closed())

	select {
	case ev := <-s.Events():
		t.Fatalf("cancelled probe published %+v", ev)
	default:
	}

	// Cancelling again is harmless.
	job.Cancel()
}

func TestOneProbePerDevice(t *testing.T) {
	drive := testsupport.NewFakeDrive("/dev/sr0").Reply(scsi.OpTestUnitReady, nil)
	started := make(chan struct{})
	s := newScheduler(t, drive.Opener(), blockingProber(started))

	first, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)
	<-started

	_, err = s.Probe(context.Background(), "/dev/sr0")
	assert.ErrorIs(t, err, scheduler.ErrProbeInFlight)

	assert.True(t, s.Cancel("/dev/sr0"))
	<-first.Done()

	second, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	second.Cancel()
}

func TestCloseCancelsAndClosesEvents(t *testing.T) {
	drive := testsupport.NewFakeDrive("/dev/sr0").Reply(scsi.OpTestUnitReady, nil)
	started := make(chan struct{})
	cfg := testsupport.NewConfig(t)
	s := scheduler.New(scheduler.OptionsFromConfig(cfg, drive.Opener(), blockingProber(started), nil))

	job, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)
	<-started

	s.Close()
	assert.Equal(t, scheduler.Cancelled, job.State())
	_, open := <-s.Events()
	assert.False(t, open)

	_, err = s.Probe(context.Background(), "/dev/sr0")
	assert.ErrorIs(t, err, scheduler.ErrClosed)
}

func TestCancelDuringReadyWait(t *testing.T) {
	var once sync.Once
	polled := make(chan struct{})
	drive := testsupport.NewFakeDrive("/dev/sr0").
		Handle(scsi.OpTestUnitReady, func(cdb []byte) ([]byte, error) {
			once.Do(func() { close(polled) })
			return nil, testsupport.NotReady(cdb[0], 0x04)
		})
	cfg := testsupport.NewConfig(t)
	cfg.Probe.ReadyAttempts = 1000
	cfg.Probe.ReadyPollIntervalMS = 50
	prober := &stubProber{}
	s := scheduler.New(scheduler.OptionsFromConfig(cfg, drive.Opener(), prober, nil))
	t.Cleanup(s.Close)

	job, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)
	<-polled

	job.Cancel()
	assert.Equal(t, scheduler.Cancelled, job.State())
	assert.Zero(t, prober.calls.Load())
	_, err = job.Wait(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProbeWithEngine(t *testing.T) {
	drive := testsupport.NewFakeDrive("/dev/sr0").
		Reply(scsi.OpTestUnitReady, nil).
		Handle(scsi.OpGetConfiguration, testsupport.ConfigResponder(uint16(mmc.ProfileCDR), nil)).
		Reply(scsi.OpGetPerformance, testsupport.PerformanceReply(7056)).
		Reply(scsi.OpReadDiscInformation, testsupport.DiscInfoReply(testsupport.DiscInfo{Status: uint8(mmc.DiscEmpty), LastTrackLast: 1})).
		Handle(scsi.OpReadTrackInformation, testsupport.TrackInfoResponder(map[uint32]testsupport.TrackInfo{
			mmc.InvisibleTrack: {Track: 1, Session: 1, Blank: true, NWAValid: true, FreeBlocks: 359849},
		}))
	s := newScheduler(t, drive.Opener(), probe.New(probe.DefaultOptions()))

	job, err := s.Probe(context.Background(), "/dev/sr0")
	require.NoError(t, err)
	m, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, media.CDR|media.FlagBlank, m.Flags())
	assert.False(t, m.CanBeRewritten())
}
