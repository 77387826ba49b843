package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func jsonAt(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("all-nil handlers should collapse to NoopHandler")
	}
	var buf bytes.Buffer
	only := jsonAt(&buf, slog.LevelInfo)
	if h := newFanoutHandler(nil, only, nil); h != only {
		t.Fatalf("single handler wrapped as %T", h)
	}
}

func TestFanoutHandlerEnabledByAnyHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(jsonAt(&a, slog.LevelWarn), jsonAt(&b, slog.LevelDebug))
	ctx := context.Background()
	if !h.Enabled(ctx, slog.LevelDebug) {
		t.Fatal("debug should be enabled through the trace handler")
	}

	h = newFanoutHandler(jsonAt(&a, slog.LevelWarn), jsonAt(&b, slog.LevelError))
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Fatal("info should be disabled when no handler accepts it")
	}
}

func TestFanoutHandlerRoutesByLevel(t *testing.T) {
	var console, trace bytes.Buffer
	logger := slog.New(newFanoutHandler(jsonAt(&console, slog.LevelInfo), jsonAt(&trace, slog.LevelDebug)))

	logger.Debug("read track information", slog.Int("track", 1))
	logger.Info("medium probed", slog.String("medium_type", "CD-R"))

	if strings.Contains(console.String(), "read track information") {
		t.Fatalf("console handler received debug record: %s", console.String())
	}
	if !strings.Contains(console.String(), "medium probed") {
		t.Fatalf("console handler missing info record: %s", console.String())
	}
	for _, want := range []string{"read track information", `"track":1`, `"medium_type":"CD-R"`} {
		if !strings.Contains(trace.String(), want) {
			t.Fatalf("trace missing %s: %s", want, trace.String())
		}
	}
}

func TestFanoutHandlerAttrsAndGroups(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(jsonAt(&a, slog.LevelInfo), jsonAt(&b, slog.LevelInfo))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String(FieldDevice, "/dev/sr0")}).WithGroup("drive"))

	logger.Info("identified", slog.String("vendor", "PLEXTOR"))

	for name, buf := range map[string]*bytes.Buffer{"first": &a, "second": &b} {
		out := buf.String()
		if !strings.Contains(out, `"device":"/dev/sr0"`) {
			t.Errorf("%s handler missing device attr: %s", name, out)
		}
		if !strings.Contains(out, `"drive":{"vendor":"PLEXTOR"}`) {
			t.Errorf("%s handler missing grouped attr: %s", name, out)
		}
	}
}

func TestTeeLogger(t *testing.T) {
	var base, trace bytes.Buffer
	logger := TeeLogger(slog.New(jsonAt(&base, slog.LevelInfo)), jsonAt(&trace, slog.LevelDebug))
	logger.Debug("get configuration")
	logger.Info("probe complete")

	if strings.Contains(base.String(), "get configuration") || !strings.Contains(base.String(), "probe complete") {
		t.Fatalf("unexpected base output: %s", base.String())
	}
	if strings.Count(trace.String(), "\n") != 2 {
		t.Fatalf("trace should hold both records: %s", trace.String())
	}

	trace.Reset()
	TeeLogger(nil, jsonAt(&trace, slog.LevelInfo)).Info("no base")
	if !strings.Contains(trace.String(), "no base") {
		t.Fatalf("nil base should still log to the tee: %s", trace.String())
	}
}
