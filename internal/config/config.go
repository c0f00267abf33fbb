// Package config loads and saves the taskboard configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. TASKBOARD_CLIENT_API.
const EnvPrefix = "TASKBOARD"

// Config is the full taskboard configuration.
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Client ClientConfig `yaml:"client" mapstructure:"client"`
	Timer  TimerConfig  `yaml:"timer" mapstructure:"timer"`

	// Timezone decides which calendar day is "today". Empty means the
	// system zone; a timezone saved in preferences takes precedence.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// ServerConfig configures the document service.
type ServerConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// ClientConfig configures the CLI and TUI.
type ClientConfig struct {
	API           string        `yaml:"api" mapstructure:"api"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	PollWait      time.Duration `yaml:"poll_wait" mapstructure:"poll_wait"`
	RetryInterval time.Duration `yaml:"retry_interval" mapstructure:"retry_interval"`
	LocalDB       string        `yaml:"local_db" mapstructure:"local_db"`
}

// TimerConfig configures the session timer.
type TimerConfig struct {
	TickInterval time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`
	MinSave      time.Duration `yaml:"min_save" mapstructure:"min_save"`
}

// Dir returns ~/.taskboard, or .taskboard when there is no home directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskboard"
	}
	return filepath.Join(home, ".taskboard")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := Dir()
	return &Config{
		Server: ServerConfig{
			Listen: "127.0.0.1:7466",
			DBPath: filepath.Join(dir, "taskboard.db"),
		},
		Client: ClientConfig{
			API:           "http://127.0.0.1:7466",
			Timeout:       10 * time.Second,
			PollWait:      25 * time.Second,
			RetryInterval: 3 * time.Second,
			LocalDB:       filepath.Join(dir, "local.db"),
		},
		Timer: TimerConfig{
			TickInterval: time.Second,
			MinSave:      time.Second,
		},
	}
}

// Load reads path over the defaults and applies TASKBOARD_* environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.db_path", d.Server.DBPath)
	v.SetDefault("client.api", d.Client.API)
	v.SetDefault("client.timeout", d.Client.Timeout)
	v.SetDefault("client.poll_wait", d.Client.PollWait)
	v.SetDefault("client.retry_interval", d.Client.RetryInterval)
	v.SetDefault("client.local_db", d.Client.LocalDB)
	v.SetDefault("timer.tick_interval", d.Timer.TickInterval)
	v.SetDefault("timer.min_save", d.Timer.MinSave)
	v.SetDefault("timezone", d.Timezone)
}

// fileConfig is the on-disk shape; durations are written as "10s".
type fileConfig struct {
	Server ServerConfig `yaml:"server"`
	Client struct {
		API           string `yaml:"api"`
		Timeout       string `yaml:"timeout"`
		PollWait      string `yaml:"poll_wait"`
		RetryInterval string `yaml:"retry_interval"`
		LocalDB       string `yaml:"local_db"`
	} `yaml:"client"`
	Timer struct {
		TickInterval string `yaml:"tick_interval"`
		MinSave      string `yaml:"min_save"`
	} `yaml:"timer"`
	Timezone string `yaml:"timezone,omitempty"`
}

// Save writes cfg to path, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Marshal renders cfg as YAML with human-readable durations.
func Marshal(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var f fileConfig
	f.Server = cfg.Server
	f.Client.API = cfg.Client.API
	f.Client.Timeout = cfg.Client.Timeout.String()
	f.Client.PollWait = cfg.Client.PollWait.String()
	f.Client.RetryInterval = cfg.Client.RetryInterval.String()
	f.Client.LocalDB = cfg.Client.LocalDB
	f.Timer.TickInterval = cfg.Timer.TickInterval.String()
	f.Timer.MinSave = cfg.Timer.MinSave.String()
	f.Timezone = cfg.Timezone

	data, err := yaml.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Server.DBPath == "" {
		return fmt.Errorf("server.db_path is required")
	}
	u, err := url.Parse(c.Client.API)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("client.api must be an http(s) URL, got %q", c.Client.API)
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be positive")
	}
	if c.Client.PollWait <= 0 || c.Client.PollWait > time.Minute {
		return fmt.Errorf("client.poll_wait must be between 0 and 1m")
	}
	if c.Client.RetryInterval <= 0 {
		return fmt.Errorf("client.retry_interval must be positive")
	}
	if c.Client.LocalDB == "" {
		return fmt.Errorf("client.local_db is required")
	}
	if c.Timer.TickInterval <= 0 {
		return fmt.Errorf("timer.tick_interval must be positive")
	}
	if c.Timer.MinSave < 0 {
		return fmt.Errorf("timer.min_save cannot be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured zone, or the system zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
