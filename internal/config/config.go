// Package config loads the engine's YAML configuration and, via
// fsnotify, hot-reloads it: a host can change zone/tab limits, logging,
// and scheduling intervals without restarting the process.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the engine-wide tunable surface. Fields map 1:1 onto
// engine.Config/zone.Config/tab activity intervals; a host translates
// this into those concrete types after loading.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogOutput string `yaml:"log_output"`

	MaxZones        int `yaml:"max_zones"`
	MaxTabsPerZone  int `yaml:"max_tabs_per_zone"`
	EventBufferSize int `yaml:"event_buffer_size"`
	CommandBuffer   int `yaml:"command_buffer"`

	PartitionPolicy string `yaml:"partition_policy"` // "none" or "top_level_origin"

	ActiveTickMS           int `yaml:"active_tick_ms"`
	BackgroundLiveTickMS   int `yaml:"background_live_tick_ms"`
	BackgroundIdleTickMS   int `yaml:"background_idle_tick_ms"`

	TabInitTimeout Duration `yaml:"tab_init_timeout"`
	FetchTimeout   Duration `yaml:"fetch_timeout"`

	MetricsAddr string `yaml:"metrics_addr"`

	CookieStoreDir string `yaml:"cookie_store_dir"`
}

// Duration wraps time.Duration so it can parse YAML strings like "30s".
type Duration time.Duration

func (d Duration) AsDuration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the engine's baked-in defaults, used both as the
// starting point before a file is loaded and to fill any field a
// partial YAML document omits.
func Default() Config {
	return Config{
		LogLevel:             "info",
		LogFormat:            "console",
		LogOutput:            "stdout",
		MaxZones:             32,
		MaxTabsPerZone:       64,
		EventBufferSize:      1024,
		CommandBuffer:        256,
		PartitionPolicy:      "top_level_origin",
		ActiveTickMS:         16,
		BackgroundLiveTickMS: 100,
		BackgroundIdleTickMS: 1000,
		TabInitTimeout:       Duration(3 * time.Second),
		FetchTimeout:         Duration(30 * time.Second),
		MetricsAddr:          ":9090",
	}
}

// Load reads and parses a YAML config file, applying Default() to any
// zero-valued field the file left unset.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(c *Config) {
	d := Default()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.LogOutput == "" {
		c.LogOutput = d.LogOutput
	}
	if c.MaxZones <= 0 {
		c.MaxZones = d.MaxZones
	}
	if c.MaxTabsPerZone <= 0 {
		c.MaxTabsPerZone = d.MaxTabsPerZone
	}
	if c.EventBufferSize <= 0 {
		c.EventBufferSize = d.EventBufferSize
	}
	if c.CommandBuffer <= 0 {
		c.CommandBuffer = d.CommandBuffer
	}
	if c.PartitionPolicy == "" {
		c.PartitionPolicy = d.PartitionPolicy
	}
	if c.ActiveTickMS <= 0 {
		c.ActiveTickMS = d.ActiveTickMS
	}
	if c.BackgroundLiveTickMS <= 0 {
		c.BackgroundLiveTickMS = d.BackgroundLiveTickMS
	}
	if c.BackgroundIdleTickMS <= 0 {
		c.BackgroundIdleTickMS = d.BackgroundIdleTickMS
	}
	if c.TabInitTimeout == 0 {
		c.TabInitTimeout = d.TabInitTimeout
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = d.MetricsAddr
	}
}

// Diff reports the field names whose values differ between old and
// updated, for a reload callback to log what actually changed.
func Diff(old, updated Config) []string {
	var changed []string
	if old.LogLevel != updated.LogLevel {
		changed = append(changed, "log_level")
	}
	if old.LogFormat != updated.LogFormat {
		changed = append(changed, "log_format")
	}
	if old.LogOutput != updated.LogOutput {
		changed = append(changed, "log_output")
	}
	if old.EventBufferSize != updated.EventBufferSize {
		changed = append(changed, "event_buffer_size")
	}
	if old.CommandBuffer != updated.CommandBuffer {
		changed = append(changed, "command_buffer")
	}
	if old.MaxZones != updated.MaxZones {
		changed = append(changed, "max_zones")
	}
	if old.MaxTabsPerZone != updated.MaxTabsPerZone {
		changed = append(changed, "max_tabs_per_zone")
	}
	if old.PartitionPolicy != updated.PartitionPolicy {
		changed = append(changed, "partition_policy")
	}
	if old.ActiveTickMS != updated.ActiveTickMS {
		changed = append(changed, "active_tick_ms")
	}
	if old.BackgroundLiveTickMS != updated.BackgroundLiveTickMS {
		changed = append(changed, "background_live_tick_ms")
	}
	if old.BackgroundIdleTickMS != updated.BackgroundIdleTickMS {
		changed = append(changed, "background_idle_tick_ms")
	}
	if old.TabInitTimeout != updated.TabInitTimeout {
		changed = append(changed, "tab_init_timeout")
	}
	if old.FetchTimeout != updated.FetchTimeout {
		changed = append(changed, "fetch_timeout")
	}
	if old.MetricsAddr != updated.MetricsAddr {
		changed = append(changed, "metrics_addr")
	}
	if old.CookieStoreDir != updated.CookieStoreDir {
		changed = append(changed, "cookie_store_dir")
	}
	return changed
}
