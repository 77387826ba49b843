package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"discprobe/internal/config"
	"discprobe/internal/logging"
	"discprobe/internal/scsi"
)

type commandContext struct {
	configFlag   string
	logLevelFlag string

	// opener replaces the SG_IO opener in tests.
	opener scsi.Opener
	// logOutput replaces stderr as the log destination in tests.
	logOutput io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if level := strings.TrimSpace(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if c.logOutput != nil {
		return slog.New(logging.NewJSONHandler(c.logOutput, slog.LevelDebug)), nil
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func (c *commandContext) deviceOpener(cfg *config.Config) scsi.Opener {
	if c.opener != nil {
		return c.opener
	}
	return scsi.OpenOptions{
		Exclusive: cfg.Drives.Exclusive,
		Timeout:   cfg.CommandTimeout(),
	}.Opener()
}

// resolveDevice picks the positional device argument or the first
// configured drive.
func resolveDevice(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if len(cfg.Drives.Devices) == 0 {
		return "", fmt.Errorf("no drive configured; pass a device or set [drives].devices")
	}
	return cfg.Drives.Devices[0], nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
