package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
)

// Config represents the global ~/.parley/config.toml.
type Config struct {
	DefaultSession string   `toml:"default_session"`
	Composer       Composer `toml:"composer"`
	Theme          Theme    `toml:"theme"`
	Peer           Peer     `toml:"peer"`
	Log            Log      `toml:"log"`
}

// Composer configures the message input.
type Composer struct {
	Placeholder string `toml:"placeholder"`
}

// Theme selects the color palette: "light" or "dark".
type Theme struct {
	Background string `toml:"background"`
}

// Peer configures the loopback peer used as the remote end of every chat.
type Peer struct {
	Echo        bool   `toml:"echo"`
	EchoDelayMs int    `toml:"echo_delay_ms"`
	DisplayName string `toml:"display_name"`
}

// EchoDelay returns the configured reply delay.
func (p Peer) EchoDelay() time.Duration {
	return time.Duration(p.EchoDelayMs) * time.Millisecond
}

// Log configures the session log file.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultSession: "main",
		Composer:       Composer{Placeholder: "Type a message"},
		Theme:          Theme{Background: "light"},
		Peer:           Peer{Echo: true, EchoDelayMs: 400, DisplayName: "echo"},
		Log:            Log{Level: "info"},
	}
}

// Load reads config from the given path. Keys absent from the file keep their
// default values. Returns an error if the file is missing or invalid.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Theme.Background {
	case "light", "dark":
	default:
		return fmt.Errorf("theme.background must be \"light\" or \"dark\", got %q", c.Theme.Background)
	}
	if c.Peer.EchoDelayMs < 0 {
		return fmt.Errorf("peer.echo_delay_ms must not be negative, got %d", c.Peer.EchoDelayMs)
	}
	if _, err := c.Log.ZapLevel(); err != nil {
		return err
	}
	return nil
}

// ZapLevel parses the configured log level. An empty level means info.
func (l Log) ZapLevel() (zapcore.Level, error) {
	if l.Level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
