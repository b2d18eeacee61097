// Package config loads and validates the optional .termserv YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when the corresponding knob is unset. Command
// timeouts and output caps default to off: the executor's contract is
// to wait for the command and hand back its complete output.
const (
	DefaultKillDelay    = 5 * time.Second
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxFetchBody = 1 << 20 // 1 MB
	DefaultHistorySize  = 32
	DefaultLogLevel     = "info"
)

// DefaultShell is the shell argv prefix used when none is configured.
var DefaultShell = []string{"/bin/sh", "-c"}

// Config holds the parsed .termserv configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int            `yaml:"version"`
	RawTimeout   string         `yaml:"timeout"`    // e.g. "5m", "30s"; empty = no limit
	RawMaxOutput int            `yaml:"max_output"` // bytes per stream; 0 = unlimited
	RawKillDelay string         `yaml:"kill_delay"` // e.g. "5s"
	RawShell     []string       `yaml:"shell"`      // e.g. ["/bin/bash", "-c"]
	RawLogLevel  string         `yaml:"log_level"`  // debug, info, warn, error
	Fetch        FetchConfig    `yaml:"fetch"`
	History      HistoryConfig  `yaml:"history"`
	Resources    []ResourceFile `yaml:"resources"`
}

// FetchConfig controls the fetch_url tool.
type FetchConfig struct {
	RawTimeout string `yaml:"timeout"`  // e.g. "30s"
	RawMaxBody int    `yaml:"max_body"` // bytes
}

// HistoryConfig controls the in-memory run cache.
type HistoryConfig struct {
	Size int `yaml:"size"` // records kept hot; default 32
}

// ResourceFile describes one file exposed as a read-only resource.
type ResourceFile struct {
	Path        string `yaml:"path"` // relative to the workspace, or absolute
	Name        string `yaml:"name"` // defaults to the base name
	Description string `yaml:"description"`
	MIMEType    string `yaml:"mime_type"` // defaults to "text/plain"
}

// Timeout returns the configured command timeout, or 0 for no limit.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// MaxOutputBytes returns the configured per-stream output cap, or 0 for
// unlimited capture.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return 0
}

// KillDelay returns the configured termination grace period or the
// default.
func (c *Config) KillDelay() time.Duration {
	if c.RawKillDelay != "" {
		d, err := time.ParseDuration(c.RawKillDelay)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultKillDelay
}

// Shell returns the configured shell argv prefix or the default.
func (c *Config) Shell() []string {
	if len(c.RawShell) > 0 {
		return c.RawShell
	}
	return DefaultShell
}

// LogLevel returns the configured log level or the default.
func (c *Config) LogLevel() string {
	if c.RawLogLevel != "" {
		return c.RawLogLevel
	}
	return DefaultLogLevel
}

// FetchTimeout returns the configured fetch timeout or the default.
func (c *Config) FetchTimeout() time.Duration {
	if c.Fetch.RawTimeout != "" {
		d, err := time.ParseDuration(c.Fetch.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultFetchTimeout
}

// MaxFetchBytes returns the configured fetch body cap or the default.
func (c *Config) MaxFetchBytes() int {
	if c.Fetch.RawMaxBody > 0 {
		return c.Fetch.RawMaxBody
	}
	return DefaultMaxFetchBody
}

// HistorySize returns the configured run cache capacity or the default.
func (c *Config) HistorySize() int {
	if c.History.Size > 0 {
		return c.History.Size
	}
	return DefaultHistorySize
}

// Load reads the .termserv file from the workspace directory. If the
// file does not exist, a default Config is returned.
func Load(workspace string) (*Config, error) {
	path := filepath.Join(workspace, ".termserv")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading .termserv: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing .termserv: %w", err)
	}
	return cfg, nil
}
