package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDashboardURL     = "http://localhost:8000/"
	DefaultMode             = ModeStream
	DefaultStreamPath       = "/ws/stats"
	DefaultReconnectDelayMs = 5000
	DefaultStreamPayload    = "nested"
	DefaultPollPath         = "/api/status"
	DefaultPollIntervalMs   = 5000
	DefaultPollPayload      = "flat"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// Watch modes.
const (
	ModeStream = "stream"
	ModePoll   = "poll"
)

// Config is the watcher configuration file.
type Config struct {
	Dashboard DashboardConfig `yaml:"dashboard"`
	Mode      string          `yaml:"mode"`
	Stream    StreamConfig    `yaml:"stream"`
	Poll      PollConfig      `yaml:"poll"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// DashboardConfig locates the dashboard both clients talk to.
type DashboardConfig struct {
	URL         string `yaml:"url"`
	Key         string `yaml:"key"`
	KeyFromPage bool   `yaml:"key_from_page"`
}

// StreamConfig is used in stream mode.
type StreamConfig struct {
	Path             string `yaml:"path"`
	ReconnectDelayMs int    `yaml:"reconnect_delay_ms"`
	Payload          string `yaml:"payload"`
}

// PollConfig is used in poll mode and by the status command.
type PollConfig struct {
	Path       string `yaml:"path"`
	IntervalMs int    `yaml:"interval_ms"`
	Payload    string `yaml:"payload"`
}

// MetricsConfig enables the local /metrics endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ReconnectDelay returns the configured delay as a duration.
func (c StreamConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

// Interval returns the configured cadence as a duration.
func (c PollConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// Default returns a config with every default filled in.
func Default() Config {
	cfg := Config{Dashboard: DashboardConfig{URL: DefaultDashboardURL}}
	ApplyDefaults(&cfg)
	return cfg
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate performs minimal validation for required fields.
func Validate(cfg Config) error {
	if cfg.Dashboard.URL == "" {
		return fmt.Errorf("dashboard.url is required")
	}
	switch cfg.Mode {
	case ModeStream, ModePoll:
	default:
		return fmt.Errorf("mode must be %s or %s, got %q", ModeStream, ModePoll, cfg.Mode)
	}
	if cfg.Stream.ReconnectDelayMs <= 0 {
		return fmt.Errorf("stream.reconnect_delay_ms must be > 0")
	}
	if cfg.Poll.IntervalMs <= 0 {
		return fmt.Errorf("poll.interval_ms must be > 0")
	}
	if err := validPayload("stream.payload", cfg.Stream.Payload); err != nil {
		return err
	}
	if err := validPayload("poll.payload", cfg.Poll.Payload); err != nil {
		return err
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	return nil
}

func validPayload(field, value string) error {
	switch value {
	case "flat", "nested":
		return nil
	default:
		return fmt.Errorf("%s must be flat or nested, got %q", field, value)
	}
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = DefaultMode
	}

	if cfg.Stream.Path == "" {
		cfg.Stream.Path = DefaultStreamPath
	}
	if cfg.Stream.ReconnectDelayMs == 0 {
		cfg.Stream.ReconnectDelayMs = DefaultReconnectDelayMs
	}
	if cfg.Stream.Payload == "" {
		cfg.Stream.Payload = DefaultStreamPayload
	}

	if cfg.Poll.Path == "" {
		cfg.Poll.Path = DefaultPollPath
	}
	if cfg.Poll.IntervalMs == 0 {
		cfg.Poll.IntervalMs = DefaultPollIntervalMs
	}
	if cfg.Poll.Payload == "" {
		cfg.Poll.Payload = DefaultPollPayload
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
