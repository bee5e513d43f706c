// Package config handles TOML configuration loading with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/setevik/droidtriage/internal/heuristic"
)

// Config is the top-level configuration for droidtriage.
type Config struct {
	Log        LogConfig        `toml:"log"`
	Parse      ParseConfig      `toml:"parse"`
	Thresholds ThresholdsConfig `toml:"thresholds"`
	Lifecycle  LifecycleConfig  `toml:"lifecycle"`
	Device     DeviceConfig     `toml:"device"`
	Ntfy       NtfyConfig       `toml:"ntfy"`
	DB         DBConfig         `toml:"db"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// ParseConfig controls the log parsers.
type ParseConfig struct {
	// TailLines is the number of preceding lines kept with each event.
	TailLines int `toml:"tail_lines"`
	// Year completes the month-day timestamps of standalone logcats.
	// Zero means the current year.
	Year int `toml:"year"`
}

// ThresholdsConfig holds the heuristic cutoffs.
type ThresholdsConfig struct {
	CPUUsage           float64  `toml:"cpu_usage"`
	MemoryUsage        float64  `toml:"memory_usage"`
	WakeLock           Duration `toml:"wake_lock"`
	MaxSystemServerPID int      `toml:"max_system_server_pid"`
}

// LifecycleConfig holds the process lifecycle limits. Zero disables a check.
type LifecycleConfig struct {
	ProcessesCreated   int      `toml:"processes_created"`
	ProcessesDestroyed int      `toml:"processes_destroyed"`
	Instances          int      `toml:"instances"`
	Lifespan           Duration `toml:"lifespan"`
	RestartLatency     Duration `toml:"restart_latency"`
}

// DeviceConfig controls pulling captures over adb.
type DeviceConfig struct {
	ADB     string   `toml:"adb"`
	Serial  string   `toml:"serial"`
	Timeout Duration `toml:"timeout"`
}

// NtfyConfig controls the ntfy notification target.
type NtfyConfig struct {
	URL      string `toml:"url"`
	Priority string `toml:"priority"`
	// Heuristics limits notifications to these heuristic types. Empty
	// means every failed heuristic is sent.
	Heuristics []string `toml:"heuristics"`
	// Filter is an optional boolean expression evaluated per failure, for
	// example `Device != "emulator-5554" && Type != "CPU_USAGE_HEURISTIC"`.
	Filter string `toml:"filter"`
	// Cooldown suppresses repeat notifications of the same heuristic on the
	// same device. It needs the history database.
	Cooldown           Duration `toml:"cooldown"`
	AggregateThreshold int      `toml:"aggregate_threshold"`
}

// DBConfig controls the verdict history database.
type DBConfig struct {
	Path      string   `toml:"path"`
	Retention Duration `toml:"retention"`
}

// Duration wraps time.Duration for TOML string parsing (e.g. "5m", "1h").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	th := heuristic.DefaultThresholds()
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Parse: ParseConfig{
			TailLines: 15,
		},
		Thresholds: ThresholdsConfig{
			CPUUsage:           th.CPUUsage,
			MemoryUsage:        th.MemoryUsage,
			WakeLock:           Duration{th.WakeLock},
			MaxSystemServerPID: th.MaxSystemServerPID,
		},
		Device: DeviceConfig{
			ADB:     "adb",
			Timeout: Duration{2 * time.Minute},
		},
		Ntfy: NtfyConfig{
			Priority:           "high",
			Cooldown:           Duration{time.Hour},
			AggregateThreshold: 3,
		},
		DB: DBConfig{
			Path:      filepath.Join(dataDir(), "droidtriage", "history.db"),
			Retention: Duration{90 * 24 * time.Hour},
		},
	}
}

func dataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return d
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "droidtriage", "config.toml")
}

// Load reads configuration from the given path, falling back to defaults
// for any unset fields. If the file does not exist, returns defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// envOverrides lists the settings that can be set from the environment.
// ANDROID_SERIAL is the variable adb itself honours.
type envOverrides struct {
	LogLevel string `env:"DROIDTRIAGE_LOG_LEVEL"`
	NtfyURL  string `env:"DROIDTRIAGE_NTFY_URL"`
	DBPath   string `env:"DROIDTRIAGE_DB_PATH"`
	ADB      string `env:"DROIDTRIAGE_ADB"`
	Serial   string `env:"ANDROID_SERIAL"`
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&c.Log.Level, o.LogLevel},
		{&c.Ntfy.URL, o.NtfyURL},
		{&c.DB.Path, o.DBPath},
		{&c.Device.ADB, o.ADB},
		{&c.Device.Serial, o.Serial},
	} {
		if f.val != "" {
			*f.dst = f.val
		}
	}
	return nil
}

func (c *Config) validate() error {
	for name, v := range map[string]float64{
		"thresholds.cpu_usage":    c.Thresholds.CPUUsage,
		"thresholds.memory_usage": c.Thresholds.MemoryUsage,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", name, v)
		}
	}
	if c.Parse.TailLines < 0 {
		return fmt.Errorf("parse.tail_lines must not be negative, got %d", c.Parse.TailLines)
	}
	return nil
}

// HeuristicThresholds converts the configured cutoffs for the heuristics.
func (c *Config) HeuristicThresholds() heuristic.Thresholds {
	return heuristic.Thresholds{
		CPUUsage:           c.Thresholds.CPUUsage,
		MemoryUsage:        c.Thresholds.MemoryUsage,
		WakeLock:           c.Thresholds.WakeLock.Duration,
		MaxSystemServerPID: c.Thresholds.MaxSystemServerPID,
		Lifecycle: heuristic.LifecycleThresholds{
			ProcessesCreated:   c.Lifecycle.ProcessesCreated,
			ProcessesDestroyed: c.Lifecycle.ProcessesDestroyed,
			Instances:          c.Lifecycle.Instances,
			Lifespan:           c.Lifecycle.Lifespan.Duration,
			RestartLatency:     c.Lifecycle.RestartLatency.Duration,
		},
	}
}

// ShouldNotify returns true if a failure of the given heuristic type should
// be sent to ntfy.
func (c *Config) ShouldNotify(heuristicType string) bool {
	if len(c.Ntfy.Heuristics) == 0 {
		return true
	}
	for _, t := range c.Ntfy.Heuristics {
		if strings.EqualFold(t, heuristicType) {
			return true
		}
	}
	return false
}
