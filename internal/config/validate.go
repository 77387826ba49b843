package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDrives(); err != nil {
		return err
	}
	if err := c.validateProbe(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDrives() error {
	if len(c.Drives.Devices) == 0 {
		return fmt.Errorf("drives.devices must list at least one device (or set %s)", DeviceEnv)
	}
	for _, device := range c.Drives.Devices {
		if !strings.HasPrefix(device, "/") {
			return fmt.Errorf("drives.devices: %q is not an absolute device path", device)
		}
	}
	return nil
}

func (c *Config) validateProbe() error {
	p := c.Probe
	if p.OpenAttempts < 1 {
		return errors.New("probe.open_attempts must be at least 1")
	}
	if p.OpenRetryIntervalMS < 0 {
		return errors.New("probe.open_retry_interval_ms must not be negative")
	}
	if p.ReadyAttempts < 1 {
		return errors.New("probe.ready_attempts must be at least 1")
	}
	if p.ReadyPollIntervalMS < 0 {
		return errors.New("probe.ready_poll_interval_ms must not be negative")
	}
	if p.CommandTimeoutSeconds < 1 {
		return errors.New("probe.command_timeout_seconds must be positive")
	}
	if p.RunoutBlocks < 0 {
		return errors.New("probe.runout_blocks must not be negative")
	}
	if p.ShortTrackBlocks < 0 {
		return errors.New("probe.short_track_blocks must not be negative")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.PollIntervalSeconds < 1 {
		return errors.New("daemon.poll_interval_seconds must be positive")
	}
	if c.Daemon.HistoryLimit < 0 {
		return errors.New("daemon.history_limit must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
