package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"discprobe/internal/history"
	"discprobe/internal/media"
	"discprobe/internal/testsupport"
)

func sampleMedium() *media.Medium {
	b := media.NewBuilder()
	b.SetID("4F2A11C0")
	b.SetFormat(media.DVDPlusRW)
	b.AddFlags(media.FlagAppendable | media.FlagHasData)
	b.SetVolumeLabel("BACKUP")
	b.AddTrack(media.Track{Number: 1, Session: 1, Type: media.TrackData, Start: 0, Blocks: 5000})
	b.AddTrack(media.Track{Number: 2, Session: 1, Type: media.TrackLeadout, Start: 5000, Blocks: 1000})
	return b.Build()
}

func TestAddAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec, err := history.NewRecord("probe-1", "/dev/sr0", "probed", sampleMedium(), nil, started, started.Add(2*time.Second))
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if err := store.Add(ctx, rec); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := store.Get(ctx, "probe-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored record")
	}
	if got.MediumID != "4F2A11C0" || got.MediumType != "DVD+RW" || got.VolumeLabel != "BACKUP" {
		t.Fatalf("unexpected summary %+v", got)
	}
	if got.TrackCount != 1 {
		t.Fatalf("track count = %d, want 1", got.TrackCount)
	}
	if got.CapacityBytes != 6000*2048 {
		t.Fatalf("capacity = %d", got.CapacityBytes)
	}
	if !got.FinishedAt.Equal(started.Add(2 * time.Second)) {
		t.Fatalf("finished = %v", got.FinishedAt)
	}
	if got.ReportJSON == "" {
		t.Fatal("expected report json")
	}

	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("Get missing = %v, %v", missing, err)
	}
}

func TestFailedProbeRecord(t *testing.T) {
	rec, err := history.NewRecord("probe-2", "/dev/sr1", "failed", nil, errors.New("no medium"), time.Now(), time.Now())
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if rec.Error != "no medium" || rec.ReportJSON != "" {
		t.Fatalf("unexpected record %+v", rec)
	}

	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	if err := store.Add(context.Background(), rec); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := store.Get(context.Background(), "probe-2")
	if err != nil || got == nil {
		t.Fatalf("Get: %v, %v", got, err)
	}
	if got.State != "failed" || got.Flags != nil {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestListPruneAndClear(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		finished := base.Add(time.Duration(i) * time.Minute)
		rec, err := history.NewRecord(id, "/dev/sr0", "probed", sampleMedium(), nil, finished, finished)
		if err != nil {
			t.Fatalf("NewRecord: %v", err)
		}
		if err := store.Add(ctx, rec); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	recent, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "d" || recent[1].ID != "c" {
		t.Fatalf("unexpected order %+v", recent)
	}

	removed, err := store.Prune(ctx, 3)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("pruned %d rows, want 1", removed)
	}
	if got, _ := store.Get(ctx, "a"); got != nil {
		t.Fatal("oldest record should be pruned")
	}

	cleared, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if cleared != 3 {
		t.Fatalf("cleared %d rows, want 3", cleared)
	}
	all, err := store.List(ctx, 0)
	if err != nil || len(all) != 0 {
		t.Fatalf("List after clear = %v, %v", all, err)
	}
}

func TestAddRejectsEmptyID(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	if err := store.Add(context.Background(), history.Record{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec, _ := history.NewRecord("keep", "/dev/sr0", "probed", sampleMedium(), nil, time.Now(), time.Now())
	if err := store.Add(context.Background(), rec); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenHistory(t, cfg)
	got, err := reopened.Get(context.Background(), "keep")
	if err != nil || got == nil {
		t.Fatalf("Get after reopen: %v, %v", got, err)
	}
}
