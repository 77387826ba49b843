package testsupport

import (
	"path/filepath"
	"testing"

	"discprobe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test
// and retry intervals short enough for unit tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Drives.Devices = []string{"/dev/sr0"}
	cfgVal.Probe.OpenRetryIntervalMS = 1
	cfgVal.Probe.ReadyPollIntervalMS = 1
	cfgVal.Daemon.Netlink = false
	cfgVal.Daemon.PollIntervalSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDevices overrides the probed device list.
func WithDevices(paths ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Drives.Devices = append([]string(nil), paths...)
	}
}

// WithoutHistory disables probe history recording.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.RecordHistory = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
