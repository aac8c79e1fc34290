// Package config resolves display settings from embedded defaults, an
// optional TOML file, BEOUT_* environment variables and caller overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/beout/pkg/errors"
)

// Frame period bounds in milliseconds
const (
	MinFrameMS     = 20
	MaxFrameMS     = 1000
	DefaultFrameMS = 100
)

// Mode selects between live frames and append-only output
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeTTY   Mode = "tty"
	ModePlain Mode = "plain"
)

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Mode) UnmarshalText(b []byte) error {
	switch v := Mode(strings.ToLower(strings.TrimSpace(string(b)))); v {
	case "":
		*m = ModeAuto
	case ModeAuto, ModeTTY, ModePlain:
		*m = v
	default:
		return fmt.Errorf("unknown mode %q (want auto, tty or plain)", string(b))
	}
	return nil
}

// Config holds the resolved settings for a display session
type Config struct {
	Mode      Mode   `koanf:"mode" toml:"mode"`
	FrameMS   int    `koanf:"frame_ms" toml:"frame_ms"`
	LogTail   int    `koanf:"log_tail" toml:"log_tail"`
	QueueSize int    `koanf:"queue_size" toml:"queue_size"`
	ForceTTY  bool   `koanf:"force_tty" toml:"force_tty"`
	Plain     bool   `koanf:"plain" toml:"plain"`
	NoColor   bool   `koanf:"no_color" toml:"no_color"`
	Width     int    `koanf:"width" toml:"width"`
	Theme     string `koanf:"theme" toml:"theme"`
	Summary   bool   `koanf:"summary" toml:"summary"`

	// Warnings lists values that were rejected and replaced by defaults.
	Warnings []string `koanf:"-" toml:"-"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Mode:      ModeAuto,
		FrameMS:   DefaultFrameMS,
		LogTail:   5,
		QueueSize: 1024,
	}
}

// FrameInterval returns the repaint period
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameMS) * time.Millisecond
}

// LiveFrames decides whether the session draws redraw-in-place frames given
// what the output stream reports. Plain settings win over forced TTY.
func (c *Config) LiveFrames(isTTY bool) bool {
	switch {
	case c.Plain || c.Mode == ModePlain:
		return false
	case c.ForceTTY || c.Mode == ModeTTY:
		return true
	default:
		return isTTY
	}
}

// Validate reports the first out-of-range setting
func (c *Config) Validate() error {
	if c.FrameMS < MinFrameMS || c.FrameMS > MaxFrameMS {
		return errors.Newf(errors.ErrConfigValid, "frame_ms must be within %d-%d, got %d", MinFrameMS, MaxFrameMS, c.FrameMS).
			WithDetail("key", "frame_ms")
	}
	if c.LogTail < 1 {
		return errors.Newf(errors.ErrConfigValid, "log_tail must be at least 1, got %d", c.LogTail).
			WithDetail("key", "log_tail")
	}
	if c.QueueSize < 1 {
		return errors.Newf(errors.ErrConfigValid, "queue_size must be at least 1, got %d", c.QueueSize).
			WithDetail("key", "queue_size")
	}
	if c.Width < 0 {
		return errors.Newf(errors.ErrConfigValid, "width must not be negative, got %d", c.Width).
			WithDetail("key", "width")
	}
	return nil
}

// sanitize replaces out-of-range values with defaults and records a warning
// for each one.
func (c *Config) sanitize() {
	def := Default()
	if c.FrameMS < MinFrameMS || c.FrameMS > MaxFrameMS {
		c.warn("frame_ms %d outside %d-%d, using %d", c.FrameMS, MinFrameMS, MaxFrameMS, def.FrameMS)
		c.FrameMS = def.FrameMS
	}
	if c.LogTail < 1 {
		c.warn("log_tail %d below 1, using %d", c.LogTail, def.LogTail)
		c.LogTail = def.LogTail
	}
	if c.QueueSize < 1 {
		c.warn("queue_size %d below 1, using %d", c.QueueSize, def.QueueSize)
		c.QueueSize = def.QueueSize
	}
	if c.Width < 0 {
		c.warn("width %d is negative, detecting instead", c.Width)
		c.Width = 0
	}
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
}

func (c *Config) warn(format string, args ...interface{}) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// TOML renders the configuration as a TOML document
func (c *Config) TOML() (string, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal configuration: %w", err)
	}
	return string(out), nil
}
