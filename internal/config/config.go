// Package config loads the host configuration from YAML.
//
// Pomodoro preferences are not here; they live in the settings table so the
// TUI can edit them. This file covers where things are stored, how time is
// synced and where events are published.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName        = "pomotick"
	configFileName = "config.yaml"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type MQTT struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`
}

// Enabled reports whether a broker is configured.
func (m MQTT) Enabled() bool { return m.Broker != "" }

type Config struct {
	DBPath           string        `yaml:"db_path"`
	LogFile          string        `yaml:"log_file"`
	LogFormat        string        `yaml:"log_format"`
	Debug            bool          `yaml:"debug"`
	UTCOffsetSeconds int32         `yaml:"utc_offset_seconds"`
	NTPServer        string        `yaml:"ntp_server"`
	NTPTimeout       time.Duration `yaml:"ntp_timeout"`
	ResyncInterval   time.Duration `yaml:"resync_interval"`
	LockTimeout      time.Duration `yaml:"lock_timeout"`
	TickInterval     time.Duration `yaml:"tick_interval"`
	MQTT             MQTT          `yaml:"mqtt"`
}

// Default returns the configuration used when no file exists. DBPath and
// LogFile are resolved under the user config directory.
func Default() Config {
	cfg := Config{
		LogFormat:      "text",
		NTPServer:      "pool.ntp.org",
		NTPTimeout:     5 * time.Second,
		ResyncInterval: 6 * time.Hour,
		LockTimeout:    100 * time.Millisecond,
		TickInterval:   time.Second,
		MQTT: MQTT{
			TopicPrefix: appName,
			ClientID:    appName,
		},
	}
	if dir, err := os.UserConfigDir(); err == nil {
		cfg.DBPath = filepath.Join(dir, appName, appName+".db")
		cfg.LogFile = filepath.Join(dir, appName, appName+".log")
	}
	return cfg
}

// DefaultPath returns ~/.config/pomotick/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks ranges. Errors wrap ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is empty"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not text or json", c.LogFormat))
	}
	if c.UTCOffsetSeconds < -12*3600 || c.UTCOffsetSeconds > 14*3600 {
		errs = append(errs, fmt.Errorf("utc_offset_seconds %d out of range", c.UTCOffsetSeconds))
	}
	if c.NTPTimeout <= 0 {
		errs = append(errs, errors.New("ntp_timeout must be positive"))
	}
	if c.ResyncInterval < time.Minute {
		errs = append(errs, fmt.Errorf("resync_interval %s below 1m", c.ResyncInterval))
	}
	if c.LockTimeout <= 0 {
		errs = append(errs, errors.New("lock_timeout must be positive"))
	}
	if c.TickInterval < 10*time.Millisecond || c.TickInterval > time.Minute {
		errs = append(errs, fmt.Errorf("tick_interval %s out of range", c.TickInterval))
	}
	if c.MQTT.Enabled() && c.MQTT.TopicPrefix == "" {
		errs = append(errs, errors.New("mqtt.topic_prefix is empty"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
