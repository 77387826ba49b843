package daemon

import (
	"context"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

type mediumCall struct {
	device  string
	present bool
}

func recordingHandler(calls *[]mediumCall) mediumHandler {
	return func(_ context.Context, device string, present bool) {
		*calls = append(*calls, mediumCall{device: device, present: present})
	}
}

func TestNewNetlinkMonitor(t *testing.T) {
	t.Run("no devices returns nil", func(t *testing.T) {
		if m := newNetlinkMonitor(nil, nil, nil); m != nil {
			t.Error("expected nil monitor without devices")
		}
		if m := newNetlinkMonitor([]string{"  "}, nil, nil); m != nil {
			t.Error("expected nil monitor for blank device")
		}
	})

	t.Run("valid devices create monitor", func(t *testing.T) {
		m := newNetlinkMonitor([]string{"/dev/sr0", "/dev/sr1"}, nil, nil)
		if m == nil {
			t.Fatal("expected non-nil monitor")
		}
		if len(m.devices) != 2 {
			t.Errorf("expected 2 devices, got %d", len(m.devices))
		}
	})
}

func TestNetlinkMonitorNilSafety(t *testing.T) {
	var m *netlinkMonitor
	if m.Running() {
		t.Error("expected Running() false for nil monitor")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil monitor should return nil, got: %v", err)
	}
	m.Stop()
}

func TestNetlinkMonitorStopUnstarted(t *testing.T) {
	m := newNetlinkMonitor([]string{"/dev/sr0"}, nil, nil)
	m.Stop()
	m.Stop()
	if m.Running() {
		t.Error("expected Running() false after Stop on unstarted monitor")
	}
}

func TestBuildMatcher(t *testing.T) {
	m := newNetlinkMonitor([]string{"/dev/sr0"}, nil, nil)
	matcher := m.buildMatcher()

	cases := []struct {
		name  string
		event netlink.UEvent
		want  bool
	}{
		{
			name: "insertion change",
			event: netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{
				"SUBSYSTEM": "block", "ID_CDROM": "1", "ID_CDROM_MEDIA": "1",
			}},
			want: true,
		},
		{
			name: "ejection change",
			event: netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{
				"SUBSYSTEM": "block", "ID_CDROM": "1", "DISK_EJECT_REQUEST": "1",
			}},
			want: true,
		},
		{
			name: "add",
			event: netlink.UEvent{Action: netlink.ADD, Env: map[string]string{
				"SUBSYSTEM": "block", "ID_CDROM": "1", "ID_CDROM_MEDIA": "1",
			}},
			want: true,
		},
		{
			name: "not optical",
			event: netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{
				"SUBSYSTEM": "block",
			}},
			want: false,
		},
		{
			name: "remove",
			event: netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{
				"SUBSYSTEM": "block", "ID_CDROM": "1",
			}},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := matcher.Evaluate(tc.event); got != tc.want {
				t.Errorf("Evaluate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHandleEvent(t *testing.T) {
	t.Run("ignores event without device name", func(t *testing.T) {
		var calls []mediumCall
		m := newNetlinkMonitor([]string{"/dev/sr0"}, recordingHandler(&calls), nil)
		m.handleEvent(context.Background(), netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{}})
		if len(calls) != 0 {
			t.Error("handler should not be called for event without device name")
		}
	})

	t.Run("ignores unwatched device", func(t *testing.T) {
		var calls []mediumCall
		m := newNetlinkMonitor([]string{"/dev/sr0"}, recordingHandler(&calls), nil)
		m.handleEvent(context.Background(), netlink.UEvent{
			Action: netlink.CHANGE,
			Env:    map[string]string{"DEVNAME": "/dev/sr1", "ID_CDROM_MEDIA": "1"},
		})
		if len(calls) != 0 {
			t.Error("handler should not be called for unwatched device")
		}
	})

	t.Run("reports insertion and ejection", func(t *testing.T) {
		var calls []mediumCall
		m := newNetlinkMonitor([]string{"/dev/sr0"}, recordingHandler(&calls), nil)
		m.handleEvent(context.Background(), netlink.UEvent{
			Action: netlink.CHANGE,
			Env:    map[string]string{"DEVNAME": "/dev/sr0", "ID_CDROM_MEDIA": "1"},
		})
		m.handleEvent(context.Background(), netlink.UEvent{
			Action: netlink.CHANGE,
			Env:    map[string]string{"DEVNAME": "sr0", "DISK_EJECT_REQUEST": "1"},
		})
		want := []mediumCall{{"/dev/sr0", true}, {"/dev/sr0", false}}
		if len(calls) != len(want) {
			t.Fatalf("calls = %+v", calls)
		}
		for i := range want {
			if calls[i] != want[i] {
				t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
			}
		}
	})

	t.Run("extracts device from DEVPATH when DEVNAME missing", func(t *testing.T) {
		var calls []mediumCall
		m := newNetlinkMonitor([]string{"/dev/sr0"}, recordingHandler(&calls), nil)
		m.handleEvent(context.Background(), netlink.UEvent{
			Action: netlink.CHANGE,
			Env: map[string]string{
				"DEVPATH":        "/devices/pci0000:00/0000:00:1f.2/ata1/host0/target0:0:0/0:0:0:0/block/sr0",
				"ID_CDROM_MEDIA": "1",
			},
		})
		if len(calls) != 1 || calls[0].device != "/dev/sr0" {
			t.Errorf("expected device /dev/sr0 from DEVPATH, got %+v", calls)
		}
	})
}
