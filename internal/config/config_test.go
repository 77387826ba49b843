package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"discprobe/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.DeviceEnv, "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "discprobe", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "discprobe")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.HistoryPath() != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path %q", cfg.HistoryPath())
	}
	if cfg.Paths.LogDir != "" {
		t.Fatalf("expected no log dir by default, got %q", cfg.Paths.LogDir)
	}
	if len(cfg.Drives.Devices) != 1 || cfg.Drives.Devices[0] != "/dev/sr0" {
		t.Fatalf("unexpected devices %v", cfg.Drives.Devices)
	}
	if cfg.Probe.RunoutBlocks != 2 || cfg.Probe.ShortTrackBlocks != 300 {
		t.Fatalf("unexpected heuristics: runout=%d short=%d", cfg.Probe.RunoutBlocks, cfg.Probe.ShortTrackBlocks)
	}
	if cfg.OpenRetryInterval().Seconds() != 2 {
		t.Fatalf("unexpected open retry interval %s", cfg.OpenRetryInterval())
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv(config.DeviceEnv, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")

	custom := config.Default()
	custom.Paths.StateDir = filepath.Join(dir, "state")
	custom.Drives.Devices = []string{"/dev/sr1", " /dev/sr1 ", "/dev/sr2"}
	custom.Probe.ShortTrackBlocks = 150
	custom.Logging.Format = " JSON "

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %q, got %q (exists=%v)", path, resolved, exists)
	}
	if got := strings.Join(cfg.Drives.Devices, ","); got != "/dev/sr1,/dev/sr2" {
		t.Fatalf("devices not deduplicated: %q", got)
	}
	if cfg.Probe.ShortTrackBlocks != 150 {
		t.Fatalf("short_track_blocks = %d", cfg.Probe.ShortTrackBlocks)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format not normalized: %q", cfg.Logging.Format)
	}
}

func TestDeviceEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[drives]\ndevices = [\"/dev/sr0\"]\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.DeviceEnv, "/dev/sr3,/dev/sr4")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := strings.Join(cfg.Drives.Devices, ","); got != "/dev/sr3,/dev/sr4" {
		t.Fatalf("expected env devices, got %q", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv(config.DeviceEnv, "")
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[probe]\nrunout = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if cfg.Probe.OpenAttempts != config.Default().Probe.OpenAttempts {
		t.Fatalf("sample open_attempts = %d", cfg.Probe.OpenAttempts)
	}
	if cfg.Probe.RunoutBlocks != 2 || cfg.Probe.ShortTrackBlocks != 300 {
		t.Fatalf("sample heuristics differ from defaults: %+v", cfg.Probe)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"no devices", func(c *config.Config) { c.Drives.Devices = nil }, "drives.devices"},
		{"relative device", func(c *config.Config) { c.Drives.Devices = []string{"sr0"} }, "absolute"},
		{"open attempts", func(c *config.Config) { c.Probe.OpenAttempts = 0 }, "open_attempts"},
		{"ready attempts", func(c *config.Config) { c.Probe.ReadyAttempts = 0 }, "ready_attempts"},
		{"timeout", func(c *config.Config) { c.Probe.CommandTimeoutSeconds = 0 }, "command_timeout_seconds"},
		{"runout", func(c *config.Config) { c.Probe.RunoutBlocks = -1 }, "runout_blocks"},
		{"poll", func(c *config.Config) { c.Daemon.PollIntervalSeconds = 0 }, "poll_interval_seconds"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
