package daemon

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"discprobe/internal/config"
	"discprobe/internal/drive"
	"discprobe/internal/history"
	"discprobe/internal/media"
	"discprobe/internal/scheduler"
	"discprobe/internal/scsi"
	"discprobe/internal/testsupport"
)

type stubProber struct{}

func (stubProber) Probe(context.Context, scsi.Transport) (*media.Medium, error) {
	b := media.NewBuilder()
	b.SetFormat(media.DVDPlusRW)
	b.AddFlags(media.FlagBlank)
	b.AddTrack(media.Track{Number: 1, Session: 1, Type: media.TrackLeadout, Blocks: 2295104})
	return b.Build(), nil
}

type trayStub struct {
	mu     sync.Mutex
	status map[string]drive.Status
}

func (s *trayStub) set(device string, st drive.Status) {
	s.mu.Lock()
	s.status[device] = st
	s.mu.Unlock()
}

func (s *trayStub) check(device string) (drive.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[device]
	if !ok {
		return drive.StatusNoInfo, errors.New("no such device")
	}
	return st, nil
}

type fixture struct {
	cfg     *config.Config
	fake    *testsupport.FakeDrive
	tray    *trayStub
	history *history.Store
	daemon  *Daemon
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	fake := testsupport.NewFakeDrive("/dev/sr0").
		Reply(scsi.OpTestUnitReady, nil).
		Reply(scsi.OpInquiry, testsupport.InquiryReply("PIONEER", "BD-RW BDR-XD07", "1.00"))
	tray := &trayStub{status: map[string]drive.Status{"/dev/sr0": drive.StatusNoDisc}}
	store := testsupport.MustOpenHistory(t, cfg)

	sched := scheduler.New(scheduler.OptionsFromConfig(cfg, fake.Opener(), stubProber{}, nil))
	t.Cleanup(sched.Close)

	d, err := New(Options{
		Config:      cfg,
		Scheduler:   sched,
		History:     store,
		Opener:      fake.Opener(),
		CheckStatus: tray.check,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(d.Stop)
	return &fixture{cfg: cfg, fake: fake, tray: tray, history: store, daemon: d}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without config and scheduler")
	}
	cfg := testsupport.NewConfig(t, testsupport.WithDevices())
	sched := scheduler.New(scheduler.Options{})
	defer sched.Close()
	if _, err := New(Options{Config: cfg, Scheduler: sched}); err == nil {
		t.Fatal("expected error without drives")
	}
}

func TestStartRejectsSecondInstance(t *testing.T) {
	f := newFixture(t)
	if err := f.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.daemon.Start(context.Background()); err == nil {
		t.Fatal("expected error on second Start")
	}

	sched := scheduler.New(scheduler.Options{})
	defer sched.Close()
	other, err := New(Options{Config: f.cfg, Scheduler: sched, CheckStatus: f.tray.check})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := other.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second watcher Start = %v, want ErrAlreadyRunning", err)
	}

	f.daemon.Stop()
	if err := other.Start(context.Background()); err != nil {
		t.Fatalf("Start after lock release: %v", err)
	}
	other.Stop()
}

func TestInsertionProbesAndRecords(t *testing.T) {
	f := newFixture(t)
	f.tray.set("/dev/sr0", drive.StatusDiscOK)
	if err := f.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	dr, ok := f.daemon.Drive("/dev/sr0")
	if !ok {
		t.Fatal("drive not watched")
	}
	if dr.DisplayName() != "PIONEER BD-RW BDR-XD07" {
		t.Fatalf("display name = %q", dr.DisplayName())
	}

	var records []history.Record
	eventually(t, "history record", func() bool {
		var err error
		records, err = f.history.List(context.Background(), 0)
		return err == nil && len(records) == 1
	})
	rec := records[0]
	if rec.State != "probed" || rec.Device != "/dev/sr0" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.DriveName != "PIONEER BD-RW BDR-XD07" {
		t.Fatalf("drive name = %q", rec.DriveName)
	}
	if rec.MediumType != "DVD+RW" {
		t.Fatalf("medium type = %q", rec.MediumType)
	}
	if dr.Medium() == nil {
		t.Fatal("drive medium not set")
	}

	status := f.daemon.Status()
	if !status.Running || len(status.Drives) != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if !strings.Contains(status.Drives[0].Medium, "DVD+RW") {
		t.Fatalf("status medium = %q", status.Drives[0].Medium)
	}
	if !strings.Contains(status.Drives[0].Medium, dr.DisplayName()) {
		t.Fatalf("status medium %q does not name the drive", status.Drives[0].Medium)
	}

	f.tray.set("/dev/sr0", drive.StatusTrayOpen)
	eventually(t, "medium cleared", func() bool { return dr.Medium() == nil })
}

func TestFailedProbeIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.fake.Fail(scsi.OpTestUnitReady, testsupport.NotReady(scsi.OpTestUnitReady, 0x3A))
	f.tray.set("/dev/sr0", drive.StatusNotReady)
	if err := f.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var records []history.Record
	eventually(t, "failed record", func() bool {
		var err error
		records, err = f.history.List(context.Background(), 0)
		return err == nil && len(records) == 1
	})
	if records[0].State != "failed" {
		t.Fatalf("state = %q", records[0].State)
	}
	if !strings.Contains(records[0].Error, "no medium") {
		t.Fatalf("error = %q", records[0].Error)
	}
}

func probedEvent(id string) scheduler.Event {
	m, _ := stubProber{}.Probe(context.Background(), nil)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return scheduler.Event{
		ProbeID:  id,
		Device:   "/dev/sr0",
		State:    scheduler.Probed,
		Medium:   m,
		Started:  now,
		Finished: now.Add(time.Duration(len(id)) * time.Second),
	}
}

func TestHistoryPrunedToLimit(t *testing.T) {
	f := newFixture(t)
	f.cfg.Daemon.HistoryLimit = 2
	ctx := context.Background()
	for _, id := range []string{"a", "bb", "ccc"} {
		f.daemon.handleEvent(ctx, probedEvent(id))
	}
	records, err := f.history.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 || records[0].ID != "ccc" || records[1].ID != "bb" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestHistoryDisabled(t *testing.T) {
	f := newFixture(t, testsupport.WithoutHistory())
	f.daemon.handleEvent(context.Background(), probedEvent("a"))
	records, err := f.history.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	dr, _ := f.daemon.Drive("/dev/sr0")
	if dr.Medium() == nil {
		t.Fatal("medium should still be tracked")
	}
}

func TestResultFromBeforeEjectionIsNotApplied(t *testing.T) {
	f := newFixture(t)
	dr, _ := f.daemon.Drive("/dev/sr0")
	f.daemon.MediumRemoved("/dev/sr0")

	stale := probedEvent("stale")
	stale.Started = time.Now().Add(-time.Hour)
	stale.Finished = stale.Started.Add(time.Second)
	f.daemon.handleEvent(context.Background(), stale)
	if dr.Medium() != nil {
		t.Fatal("stale result should not repopulate an ejected drive")
	}

	fresh := probedEvent("fresh")
	fresh.Started = time.Now().Add(time.Second)
	fresh.Finished = fresh.Started.Add(time.Second)
	f.daemon.handleEvent(context.Background(), fresh)
	if dr.Medium() == nil {
		t.Fatal("result started after ejection should be applied")
	}
}

func TestCancelledEventIgnored(t *testing.T) {
	f := newFixture(t)
	ev := probedEvent("a")
	ev.State = scheduler.Cancelled
	f.daemon.handleEvent(context.Background(), ev)
	records, _ := f.history.List(context.Background(), 0)
	if len(records) != 0 {
		t.Fatalf("cancelled probe recorded: %+v", records)
	}
}

func TestMediumInsertedRejectsUnknownDevice(t *testing.T) {
	f := newFixture(t)
	if err := f.daemon.MediumInserted(context.Background(), "/dev/sr9"); err == nil {
		t.Fatal("expected error for unwatched device")
	}
	// Unknown devices are ignored on removal.
	f.daemon.MediumRemoved("/dev/sr9")
}

func TestUEventRepeatingTrayStateIsIgnored(t *testing.T) {
	f := newFixture(t)
	if !f.daemon.tray.markPresent("/dev/sr0", true) {
		t.Fatal("first presence should be a change")
	}
	if f.daemon.tray.markPresent("/dev/sr0", true) {
		t.Fatal("repeated presence should not be a change")
	}

	dr, _ := f.daemon.Drive("/dev/sr0")
	m, _ := stubProber{}.Probe(context.Background(), nil)
	dr.SetMedium(m)
	f.daemon.handleUEvent(context.Background(), "/dev/sr0", false)
	if dr.Medium() != nil {
		t.Fatal("ejection uevent should clear the medium")
	}
}
