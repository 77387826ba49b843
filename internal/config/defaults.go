package config

const (
	defaultConfigPath            = "~/.config/discprobe/config.toml"
	defaultStateDir              = "~/.local/share/discprobe"
	defaultDevice                = "/dev/sr0"
	defaultOpenAttempts          = 5
	defaultOpenRetryIntervalMS   = 2000
	defaultReadyAttempts         = 10
	defaultReadyPollIntervalMS   = 1000
	defaultCommandTimeoutSeconds = 30
	defaultRunoutBlocks          = 2
	defaultShortTrackBlocks      = 300
	defaultPollIntervalSeconds   = 2
	defaultHistoryLimit          = 500
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"

	// DeviceEnv replaces [drives].devices when set.
	DeviceEnv = "DISCPROBE_DEVICE"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Drives: Drives{
			Devices: []string{defaultDevice},
		},
		Probe: Probe{
			OpenAttempts:          defaultOpenAttempts,
			OpenRetryIntervalMS:   defaultOpenRetryIntervalMS,
			ReadyAttempts:         defaultReadyAttempts,
			ReadyPollIntervalMS:   defaultReadyPollIntervalMS,
			CommandTimeoutSeconds: defaultCommandTimeoutSeconds,
			RunoutBlocks:          defaultRunoutBlocks,
			ShortTrackBlocks:      defaultShortTrackBlocks,
			ReadCDText:            true,
			CheckCSS:              true,
		},
		Daemon: Daemon{
			Netlink:             true,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			RecordHistory:       true,
			HistoryLimit:        defaultHistoryLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
